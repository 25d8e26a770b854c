// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource defines how dynamically registered resource bundles
// become request handlers.
//
// A server never discovers resources on its own. Instead, for every prefix
// holding a package or class bundle, it hands a [Spec] to a caller supplied
// [Builder]. [Catalog] is a [Builder] backed by resources registered by name.
package resource

import (
	"context"
	"net/http"

	"github.com/z5labs/webserver/mount"
)

// Spec describes a single resource bundle mount.
type Spec struct {
	// Prefix is the URL prefix the bundle is mounted at. Requests reach
	// the built handler with Prefix already removed from their path.
	Prefix string

	// Kind is either [mount.Packages] or [mount.Classes].
	Kind mount.Kind

	Names       []string
	Injectables Injectables

	// APIDescription requests a machine-readable description of the
	// bundles routes be served alongside them.
	APIDescription bool
}

// Builder builds the request handler for a resource bundle.
type Builder interface {
	Build(context.Context, Spec) (http.Handler, error)
}

// BuilderFunc is a func variant of the [Builder] interface.
type BuilderFunc func(context.Context, Spec) (http.Handler, error)

// Build implements the [Builder] interface.
func (f BuilderFunc) Build(ctx context.Context, spec Spec) (http.Handler, error) {
	return f(ctx, spec)
}

// Injectables are the dependencies made available to resources.
type Injectables []any

// Lookup returns the last injectable assignable to T.
func Lookup[T any](inj Injectables) (T, bool) {
	for i := len(inj) - 1; i >= 0; i-- {
		v, ok := inj[i].(T)
		if ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type injectablesKey struct{}

// NewContext returns a copy of parent carrying inj.
func NewContext(parent context.Context, inj Injectables) context.Context {
	return context.WithValue(parent, injectablesKey{}, inj)
}

// FromContext returns the last injectable of type T made available to
// the handler serving the current request.
func FromContext[T any](ctx context.Context) (T, bool) {
	inj, _ := ctx.Value(injectablesKey{}).(Injectables)
	return Lookup[T](inj)
}

func inject(inj Injectables, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(NewContext(r.Context(), inj)))
	})
}
