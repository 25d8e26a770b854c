// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mux provides the request router used inside a mounted resource context.
package mux

import (
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"
)

// Method defines an HTTP method a route can be registered for.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPut     Method = http.MethodPut
	MethodPost    Method = http.MethodPost
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
)

// Option defines a configuration option for [Router].
type Option func(*Router)

// NotFoundHandler will register the given [http.Handler] to handle
// any HTTP requests that do not match any other method-pattern combinations.
func NotFoundHandler(h http.Handler) Option {
	return func(r *Router) {
		r.notFound = h
	}
}

// MethodNotAllowedHandler will register the given [http.Handler] to handle
// any HTTP requests whose method does not match the method registered to a pattern.
func MethodNotAllowedHandler(h http.Handler) Option {
	return func(r *Router) {
		r.methodNotAllowed = h
	}
}

// Route is a method and pattern registered with a [Router].
type Route struct {
	Method  Method
	Pattern string
}

// Router wraps a [http.ServeMux] and provides some helpers around overriding
// the default "HTTP 404 Not Found" and "HTTP 405 Method Not Allowed" behaviour.
//
// Routes must all be registered before the first request is served.
type Router struct {
	mux *http.ServeMux

	initFallbacksOnce sync.Once
	notFound          http.Handler
	methodNotAllowed  http.Handler

	routes      []Route
	pathMethods map[string][]Method
}

// New initializes a [Router] using the standard [http.ServeMux].
func New(opts ...Option) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		pathMethods: make(map[string][]Method),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Routes returns the routes registered with [Router.Handle] in registration order.
func (r *Router) Routes() []Route {
	return slices.Clone(r.routes)
}

// Handle will register the [http.Handler] for the given method and pattern
// with the underlying [http.ServeMux]. A pattern without a trailing slash
// also matches the same path with one, and a pattern ending in "/" also
// matches the path without it.
func (r *Router) Handle(method Method, pattern string, h http.Handler) {
	r.routes = append(r.routes, Route{Method: method, Pattern: pattern})
	r.register(method, pattern, h)

	// {$} is a special case where we only want to exact match the path pattern.
	if strings.HasSuffix(pattern, "{$}") {
		return
	}

	if strings.HasSuffix(pattern, "/") {
		withoutTrailingSlash := pattern[:len(pattern)-1]
		if len(withoutTrailingSlash) == 0 {
			return
		}
		r.register(method, withoutTrailingSlash, h)
		return
	}

	// "..." must be the final segment of a pattern so nothing can follow it.
	if strings.Contains(path.Base(pattern), "...") {
		return
	}
	r.register(method, pattern+"/{$}", h)
}

func (r *Router) register(method Method, pattern string, h http.Handler) {
	r.pathMethods[pattern] = append(r.pathMethods[pattern], method)
	r.mux.Handle(fmt.Sprintf("%s %s", method, pattern), h)
}

// ServeHTTP implements the [http.Handler] interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.initFallbacksOnce.Do(r.registerFallbackHandlers)

	r.mux.ServeHTTP(w, req)
}

func (r *Router) registerFallbackHandlers() {
	registerNotFoundHandler(r.mux, r.notFound)
	registerMethodNotAllowedHandler(r.mux, r.methodNotAllowed, r.pathMethods)
}

func registerNotFoundHandler(mux *http.ServeMux, h http.Handler) {
	if h == nil {
		return
	}
	mux.Handle("/{path...}", h)
}

func registerMethodNotAllowedHandler(mux *http.ServeMux, h http.Handler, pathMethods map[string][]Method) {
	if h == nil {
		return
	}

	supportedMethods := []Method{
		MethodGet,
		MethodHead,
		MethodPut,
		MethodPost,
		MethodPatch,
		MethodDelete,
		MethodOptions,
		http.MethodTrace,
	}

	for path, methods := range pathMethods {
		for _, method := range diffSets(supportedMethods, methods) {
			mux.Handle(fmt.Sprintf("%s %s", method, path), h)
		}
	}
}

func diffSets[T comparable](xs, ys []T) []T {
	zs := make([]T, 0, len(xs))
	for _, x := range xs {
		if slices.Contains(ys, x) {
			continue
		}
		zs = append(zs, x)
	}
	return zs
}
