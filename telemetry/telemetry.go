// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package telemetry initializes the OpenTelemetry tracer provider
// used to instrument served requests.
package telemetry

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Provider is a [trace.TracerProvider] which must be shutdown
// to flush any buffered spans.
type Provider interface {
	trace.TracerProvider

	Shutdown(context.Context) error
}

// Initializer builds a [Provider].
type Initializer interface {
	Init(context.Context) (Provider, error)
}

// Common holds settings shared by every exporter.
type Common struct {
	ServiceName string `config:"service_name"`
}

// Option configures an [Initializer].
type Option func(*Common)

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) Option {
	return func(c *Common) {
		c.ServiceName = name
	}
}

func (c Common) resource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(c.ServiceName),
		),
	)
}

type noopProvider struct {
	noop.TracerProvider
}

func (noopProvider) Shutdown(context.Context) error { return nil }

// Noop disables tracing.
var Noop Initializer = noopInitializer{}

type noopInitializer struct{}

func (noopInitializer) Init(context.Context) (Provider, error) {
	return noopProvider{TracerProvider: noop.NewTracerProvider()}, nil
}

// LocalConfig exports spans as JSON to Out.
type LocalConfig struct {
	Common
	Out io.Writer
}

// Local returns an [Initializer] which writes spans to stdout.
func Local(opts ...Option) LocalConfig {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt(&cfg.Common)
	}
	return cfg
}

// Init implements the [Initializer] interface.
func (cfg LocalConfig) Init(ctx context.Context) (Provider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// OTLPConfig exports spans to an OTLP collector over gRPC.
type OTLPConfig struct {
	Common

	// gRPC target string which is passed to grpc.DialContext
	Target string

	DialTimeout time.Duration
}

// OTLP returns an [Initializer] which exports spans to target.
func OTLP(target string, opts ...Option) OTLPConfig {
	cfg := OTLPConfig{
		Target:      target,
		DialTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&cfg.Common)
	}
	return cfg
}

// Init implements the [Initializer] interface.
func (cfg OTLPConfig) Init(ctx context.Context) (Provider, error) {
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		cfg.Target,
		// TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)
	return tp, nil
}

// Install initializes a [Provider] and registers it, along with
// the W3C trace context propagator, as the global otel defaults.
func Install(ctx context.Context, init Initializer) (Provider, error) {
	tp, err := init.Init(ctx)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}
