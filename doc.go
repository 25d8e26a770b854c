// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package webserver provides an embeddable HTTP(S) server which mounts
// static content and resource bundles at distinct URL prefixes.
//
// The package is built around a few collaborating pieces:
//
//   - mount.Registry: maps URL prefixes to static content or resource bundles
//   - filter.Chain: an ordered list of filters applied to every mounted context
//   - Server: owns the listeners and the lifecycle of the handler tree
//   - resource.Builder: turns resource bundles into request handlers
//
// # Basic Usage
//
// Register mounts and filters, then start the server:
//
//	srv := webserver.New(
//	    webserver.DefaultConfig(),
//	    webserver.WithBuilder(catalog),
//	)
//	srv.AddStaticContent("./public", "/")
//	srv.AddResourceClasses([]string{"health"}, "/api")
//	srv.AddFilter(filter.CORS(filter.CORSOptions{}), "/*")
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Stop(context.Background())
//
// Every call to Start rebuilds the handler tree from the registry, so
// a stopped server can be started again with its mounts re-materialized.
package webserver
