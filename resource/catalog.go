// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/z5labs/webserver/internal/noop"
	"github.com/z5labs/webserver/internal/slogfield"
	"github.com/z5labs/webserver/internal/try"
	"github.com/z5labs/webserver/mount"
	"github.com/z5labs/webserver/mux"

	"github.com/swaggest/openapi-go/openapi3"
)

// Route is a single request handler contributed by a [Resource].
type Route struct {
	Method  mux.Method
	Pattern string
	Handler http.Handler

	// Operation documents the route in the API description.
	Operation openapi3.Operation
}

// Resource contributes routes to a resource bundle.
type Resource interface {
	Routes(Injectables) ([]Route, error)
}

// ResourceFunc is a func variant of the [Resource] interface.
type ResourceFunc func(Injectables) ([]Route, error)

// Routes implements the [Resource] interface.
func (f ResourceFunc) Routes(inj Injectables) ([]Route, error) {
	return f(inj)
}

// UnknownNameError is returned by [Catalog.Build] when a bundle
// names a package or class which was never registered.
type UnknownNameError struct {
	Kind mount.Kind
	Name string
}

// Error implements the [builtin.error] interface.
func (e UnknownNameError) Error() string {
	return fmt.Sprintf("no resource registered in %s with name: %s", e.Kind, e.Name)
}

// RoutesError is returned by [Catalog.Build] when a [Resource]
// fails to provide its routes.
type RoutesError struct {
	Name  string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e RoutesError) Error() string {
	return fmt.Sprintf("resource %s failed to provide routes: %s", e.Name, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e RoutesError) Unwrap() error {
	return e.Cause
}

// DuplicateRouteError is returned by [Catalog.Build] when two resources
// of one bundle register the same method and pattern.
type DuplicateRouteError struct {
	Name    string
	Method  mux.Method
	Pattern string
}

// Error implements the [builtin.error] interface.
func (e DuplicateRouteError) Error() string {
	return fmt.Sprintf("resource %s registers an already registered route: %s %s", e.Name, e.Method, e.Pattern)
}

// CatalogOption configures a [Catalog].
type CatalogOption func(*Catalog)

// Title sets the title of the API in its OpenAPI description.
func Title(s string) CatalogOption {
	return func(c *Catalog) {
		c.title = s
	}
}

// Version sets the API version in its OpenAPI description.
func Version(s string) CatalogOption {
	return func(c *Catalog) {
		c.version = s
	}
}

// LogHandler sets the [slog.Handler] used to report each built bundle.
func LogHandler(h slog.Handler) CatalogOption {
	return func(c *Catalog) {
		c.log = slog.New(h)
	}
}

// NotFound overrides the handler used for requests matching no route.
func NotFound(h http.Handler) CatalogOption {
	return func(c *Catalog) {
		c.notFound = h
	}
}

// MethodNotAllowed overrides the handler used for requests whose
// method is not registered for the requested path.
func MethodNotAllowed(h http.Handler) CatalogOption {
	return func(c *Catalog) {
		c.methodNotAllowed = h
	}
}

// Catalog is a [Builder] assembling bundles out of resources registered by name.
//
// A package name refers to a group of resources while a class name refers
// to a single resource. All resources named by a bundle are served by a
// single router, along with "/openapi.json" and "/openapi.yaml" when the
// bundle asks for an API description.
type Catalog struct {
	log     *slog.Logger
	title   string
	version string

	notFound         http.Handler
	methodNotAllowed http.Handler

	packages map[string][]Resource
	classes  map[string]Resource
}

// NewCatalog returns an empty [Catalog].
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		log:              slog.New(noop.LogHandler{}),
		title:            "webserver",
		version:          "0.0.0",
		notFound:         ErrorHandler(http.StatusNotFound),
		methodNotAllowed: ErrorHandler(http.StatusMethodNotAllowed),
		packages:         make(map[string][]Resource),
		classes:          make(map[string]Resource),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ErrorHandler responds with status and a small JSON body naming it.
// It is what a [Catalog] serves for unmatched paths and methods unless
// overridden by [NotFound] or [MethodNotAllowed].
func ErrorHandler(status int) http.Handler {
	b, _ := json.Marshal(errorBody{Status: status, Message: http.StatusText(status)})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(status)
		w.Write(b)
	})
}

// RegisterPackage adds resources to the package called name.
func (c *Catalog) RegisterPackage(name string, resources ...Resource) {
	c.packages[name] = append(c.packages[name], resources...)
}

// RegisterClass registers r as the class called name, replacing any
// class previously registered with that name.
func (c *Catalog) RegisterClass(name string, r Resource) {
	c.classes[name] = r
}

// Build implements the [Builder] interface. A panic raised while
// assembling the bundle is returned as a [try.PanicError].
func (c *Catalog) Build(ctx context.Context, spec Spec) (_ http.Handler, err error) {
	defer try.Recover(&err)

	resources, err := c.resolve(spec.Kind, spec.Names)
	if err != nil {
		return nil, err
	}

	api := &openapi3.Spec{
		Openapi: "3.0.3",
	}
	api.Info.Title = c.title
	api.Info.Version = c.version

	router := mux.New(
		mux.NotFoundHandler(c.notFound),
		mux.MethodNotAllowedHandler(c.methodNotAllowed),
	)
	seen := make(map[string]struct{})
	for _, nr := range resources {
		routes, err := nr.resource.Routes(spec.Injectables)
		if err != nil {
			return nil, RoutesError{Name: nr.name, Cause: err}
		}

		for _, route := range routes {
			key := string(route.Method) + " " + route.Pattern
			if _, ok := seen[key]; ok {
				return nil, DuplicateRouteError{Name: nr.name, Method: route.Method, Pattern: route.Pattern}
			}
			seen[key] = struct{}{}

			err := addOperation(api, spec.Prefix, route)
			if err != nil {
				return nil, RoutesError{Name: nr.name, Cause: err}
			}
			router.Handle(route.Method, route.Pattern, inject(spec.Injectables, route.Handler))
		}
	}

	if spec.APIDescription {
		router.Handle(mux.MethodGet, "/openapi.json", OpenApiJsonHandler(api))
		router.Handle(mux.MethodGet, "/openapi.yaml", OpenApiYamlHandler(api))
	}

	c.log.InfoContext(
		ctx,
		"built resource bundle",
		slogfield.Prefix(spec.Prefix),
		slogfield.String("kind", spec.Kind.String()),
		slogfield.Strings("names", spec.Names),
		slogfield.Int("routes", len(router.Routes())),
	)
	return router, nil
}

type namedResource struct {
	name     string
	resource Resource
}

func (c *Catalog) resolve(kind mount.Kind, names []string) ([]namedResource, error) {
	var resources []namedResource
	for _, name := range names {
		switch kind {
		case mount.Packages:
			rs, ok := c.packages[name]
			if !ok {
				return nil, UnknownNameError{Kind: kind, Name: name}
			}
			for _, r := range rs {
				resources = append(resources, namedResource{name: name, resource: r})
			}
		case mount.Classes:
			r, ok := c.classes[name]
			if !ok {
				return nil, UnknownNameError{Kind: kind, Name: name}
			}
			resources = append(resources, namedResource{name: name, resource: r})
		default:
			return nil, UnknownNameError{Kind: kind, Name: name}
		}
	}
	return resources, nil
}

func addOperation(api *openapi3.Spec, prefix string, route Route) error {
	// Per the net/http.ServeMux docs, https://pkg.go.dev/net/http#ServeMux:
	//
	// 		The special wildcard {$} matches only the end of the URL.
	//
	// OpenAPI would treat {$} as a path parameter so it must be stripped.
	pattern := strings.TrimSuffix(route.Pattern, "{$}")

	// The '...' wildcard has no equivalent in OpenAPI.
	pattern = strings.ReplaceAll(pattern, "...", "")

	return api.AddOperation(string(route.Method), path.Join(prefix, pattern), route.Operation)
}
