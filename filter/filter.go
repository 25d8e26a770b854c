// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package filter provides an ordered chain of request filters, each bound
// to a servlet style path pattern.
package filter

import (
	"net/http"
	"slices"
	"strings"
)

// Filter wraps a [http.Handler] with additional request processing.
//
// A Filter is identified by its interface value so implementations
// should be pointer types.
type Filter interface {
	Wrap(http.Handler) http.Handler
}

// Func is a named [Filter] built from a plain middleware func.
type Func struct {
	name string
	wrap func(http.Handler) http.Handler
}

// New returns a [Filter] which applies wrap. Every call returns a
// distinct filter, even for the same name and func.
func New(name string, wrap func(http.Handler) http.Handler) *Func {
	return &Func{
		name: name,
		wrap: wrap,
	}
}

// Name returns the name given to [New].
func (f *Func) Name() string {
	return f.name
}

// Wrap implements the [Filter] interface.
func (f *Func) Wrap(h http.Handler) http.Handler {
	return f.wrap(h)
}

// Entry is a [Filter] bound to a path pattern.
type Entry struct {
	Filter  Filter
	Pattern string
}

// Chain is an ordered list of filter entries. It is not safe for concurrent use.
type Chain struct {
	entries []Entry
}

// Add appends f, applied to requests matching pattern, to the end of the chain.
func (c *Chain) Add(f Filter, pattern string) {
	c.entries = append(c.entries, Entry{Filter: f, Pattern: pattern})
}

// Remove deletes every entry with the same filter and pattern.
func (c *Chain) Remove(f Filter, pattern string) {
	c.entries = slices.DeleteFunc(c.entries, func(e Entry) bool {
		return e.Filter == f && e.Pattern == pattern
	})
}

// Entries returns a copy of the chain in registration order.
func (c *Chain) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Len returns the number of entries in the chain.
func (c *Chain) Len() int {
	return len(c.entries)
}

// Apply wraps h so that every matching filter runs, in registration order,
// before h is called. The request path is matched relative to prefix,
// the URL prefix h is mounted at.
//
// Apply takes a snapshot of the chain; later changes to the chain do
// not affect the returned handler.
func (c *Chain) Apply(prefix string, h http.Handler) http.Handler {
	for i := len(c.entries) - 1; i >= 0; i-- {
		e := c.entries[i]
		h = &matchHandler{
			prefix:   prefix,
			pattern:  e.Pattern,
			filtered: e.Filter.Wrap(h),
			next:     h,
		}
	}
	return h
}

type matchHandler struct {
	prefix   string
	pattern  string
	filtered http.Handler
	next     http.Handler
}

func (h *matchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if Match(h.pattern, RelativePath(h.prefix, r.URL.Path)) {
		h.filtered.ServeHTTP(w, r)
		return
	}
	h.next.ServeHTTP(w, r)
}

// RelativePath returns path with prefix removed. The result always
// begins with a "/".
func RelativePath(prefix, path string) string {
	if prefix == "/" || prefix == "" {
		return path
	}
	rel := strings.TrimPrefix(path, prefix)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return rel
}

// Match reports whether path matches the servlet style pattern:
//
//   - "/*" and "" match every path
//   - "/foo/*" matches "/foo" and everything below it
//   - "*.ext" matches any path ending in ".ext"
//   - anything else must equal path exactly
func Match(pattern, path string) bool {
	switch {
	case pattern == "" || pattern == "/*":
		return true
	case strings.HasSuffix(pattern, "/*"):
		base := strings.TrimSuffix(pattern, "/*")
		return path == base || strings.HasPrefix(path, base+"/")
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(path, pattern[1:])
	default:
		return path == pattern
	}
}
