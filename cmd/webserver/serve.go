// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/config"
	"github.com/z5labs/webserver/filter"
	"github.com/z5labs/webserver/guard"
	"github.com/z5labs/webserver/internal/otelslog"
	"github.com/z5labs/webserver/internal/slogfield"
	"github.com/z5labs/webserver/resource"
	"github.com/z5labs/webserver/session"
	"github.com/z5labs/webserver/telemetry"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the web server and block until interrupted.

Configuration is read from the optional YAML file given by --config and
then from environment variables prefixed with WEBSERVER_. Nested keys are
separated by a double underscore, e.g. WEBSERVER_SERVER__PORT=8080.`,
		Example: `  # Serve with the defaults and environment overrides
  webserver serve

  # Serve from a config file
  webserver serve --config webserver.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fsys fs.FS
				path string
				err  error
			)
			if configPath != "" {
				fsys, path, err = configFS(configPath)
				if err != nil {
					return err
				}
			}

			cfg, err := readServeConfig(fsys, path, config.FromEnv(EnvPrefix))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	return cmd
}

func newLogHandler(out io.Writer, cfg loggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.Level,
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}
	return otelslog.NewHandler(h)
}

func newTelemetry(cfg telemetryConfig) telemetry.Initializer {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout":
		return telemetry.Local(telemetry.ServiceName(cfg.ServiceName))
	case "otlp":
		return telemetry.OTLP(cfg.Target, telemetry.ServiceName(cfg.ServiceName))
	default:
		return telemetry.Noop
	}
}

// newServer assembles a server, and the catalog backing its resource
// bundles, from cfg without starting it.
func newServer(cfg serveConfig, logHandler slog.Handler) *webserver.Server {
	catalog := resource.NewCatalog(
		resource.Title(cfg.Telemetry.ServiceName),
		resource.LogHandler(logHandler),
	)

	opts := []webserver.Option{
		webserver.LogHandler(logHandler),
		webserver.WithBuilder(catalog),
	}
	if cfg.TLS.CertFile != "" || cfg.TLS.KeyFile != "" {
		opts = append(opts, webserver.WithCredential(webserver.CredentialFromFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile)))
	}

	var sessionOpts []session.Option
	if cfg.Session.CookieName != "" {
		sessionOpts = append(sessionOpts, session.CookieName(cfg.Session.CookieName))
	}
	if cfg.Session.MaxIdle > 0 {
		sessionOpts = append(sessionOpts, session.MaxIdle(cfg.Session.MaxIdle))
	}
	opts = append(opts, webserver.SessionOptions(sessionOpts...))

	srv := webserver.New(cfg.Server, opts...)
	registerBuiltins(catalog, srv)

	for _, m := range cfg.Static {
		srv.AddStaticContent(m.Location, m.Prefix)
	}
	for _, m := range cfg.Resources {
		if len(m.Packages) > 0 {
			srv.AddResourcePackages(m.Packages, m.Prefix)
		}
		if len(m.Classes) > 0 {
			srv.AddResourceClasses(m.Classes, m.Prefix)
		}
	}
	if cfg.CORS.Enabled {
		srv.AddFilter(filter.CORS(cfg.CORS.CORSOptions), cfg.CORS.Pattern)
	}
	if len(cfg.Methods.Allowed) > 0 {
		// after cors so preflight requests are answered first
		srv.AddFilter(filter.Validate("allowed-methods", filter.ForMethods(cfg.Methods.Allowed...)), cfg.Methods.Pattern)
	}
	return srv
}

func newGuard(cfg guardConfig, logHandler slog.Handler) guard.Guard {
	if !cfg.Breaker {
		return guard.Deadline{}
	}
	return guard.NewBreaker(
		guard.Deadline{},
		guard.BreakerName("execution-guard"),
		guard.BreakerLogHandler(logHandler),
		guard.BreakerTripCount(cfg.TripCount),
		guard.BreakerTimeout(cfg.Cooldown),
	)
}

func serve(ctx context.Context, out io.Writer, cfg serveConfig) (err error) {
	logHandler := newLogHandler(out, cfg.Logging)
	log := slog.New(logHandler)

	tp, err := telemetry.Install(ctx, newTelemetry(cfg.Telemetry))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tp.Shutdown(context.Background()))
	}()

	srv := newServer(cfg, logHandler)
	err = srv.Start(ctx)
	if err != nil {
		return err
	}

	if cfg.Guard.Timeout > 0 {
		err = srv.AddExecutionLimitFilter(cfg.Guard.Timeout, newGuard(cfg.Guard, logHandler))
		if err != nil {
			return errors.Join(err, srv.Stop(context.Background()))
		}
	}

	<-ctx.Done()
	log.Info("shutting down", slogfield.Error(context.Cause(ctx)))

	return srv.Stop(context.Background())
}
