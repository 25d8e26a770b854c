// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"net/http"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/health"
	"github.com/z5labs/webserver/mux"
	"github.com/z5labs/webserver/resource"

	"github.com/swaggest/openapi-go/openapi3"
)

// registerBuiltins makes the resources every deployment gets available
// to the catalog. They are only served once mounted by config.
//
//   - class "health": GET /health
//   - class "contexts": GET /contexts
//   - package "system": both of the above
func registerBuiltins(c *resource.Catalog, srv *webserver.Server) {
	healthResource := resource.ResourceFunc(func(inj resource.Injectables) ([]resource.Route, error) {
		return []resource.Route{
			{
				Method:  mux.MethodGet,
				Pattern: "/health",
				Handler: health.Handler(srv),
				Operation: operation("Report whether the server is running"),
			},
		}, nil
	})

	contextsResource := resource.ResourceFunc(func(inj resource.Injectables) ([]resource.Route, error) {
		return []resource.Route{
			{
				Method:  mux.MethodGet,
				Pattern: "/contexts",
				Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					json.NewEncoder(w).Encode(srv.Contexts())
				}),
				Operation: operation("List the mounted context prefixes in match order"),
			},
		}, nil
	})

	c.RegisterClass("health", healthResource)
	c.RegisterClass("contexts", contextsResource)
	c.RegisterPackage("system", healthResource, contextsResource)
}

func operation(summary string) openapi3.Operation {
	return openapi3.Operation{Summary: &summary}
}
