// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/z5labs/webserver/filter"
	"github.com/z5labs/webserver/internal/otelslog"
	"github.com/z5labs/webserver/internal/slogfield"
	"github.com/z5labs/webserver/internal/try"
	"github.com/z5labs/webserver/mount"
	"github.com/z5labs/webserver/resource"
	"github.com/z5labs/webserver/session"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// StaticResolver resolves a static content location into the
// file system served at its prefix.
type StaticResolver interface {
	Resolve(location string) (fs.FS, error)
}

// StaticResolverFunc is a func variant of the [StaticResolver] interface.
type StaticResolverFunc func(location string) (fs.FS, error)

// Resolve implements the [StaticResolver] interface.
func (f StaticResolverFunc) Resolve(location string) (fs.FS, error) {
	return f(location)
}

// DirResolver resolves locations as directories on the local disk.
func DirResolver() StaticResolver {
	return StaticResolverFunc(func(location string) (fs.FS, error) {
		info, err := os.Stat(location)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, &fs.PathError{
				Op:   "resolve",
				Path: location,
				Err:  fmt.Errorf("static content location is not a directory: %w", fs.ErrNotExist),
			}
		}
		return os.DirFS(location), nil
	})
}

// tree is the live set of handler contexts. Requests are matched
// against contexts in order and the first whose prefix contains the
// request path serves it.
type tree struct {
	handler      http.Handler
	redirectRoot string
	contexts     []*handlerContext
}

func (t *tree) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if t.redirectRoot != "" && r.URL.Path == "/" {
		http.Redirect(w, r, t.redirectRoot, http.StatusFound)
		return
	}
	for _, c := range t.contexts {
		if contains(c.prefix, r.URL.Path) {
			c.ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

func contains(prefix, path string) bool {
	return prefix == "/" || path == prefix || strings.HasPrefix(path, prefix+"/")
}

type handlerContext struct {
	prefix  string
	kind    mount.Kind
	handler atomic.Pointer[http.Handler]
}

func newHandlerContext(prefix string, kind mount.Kind, h http.Handler) *handlerContext {
	c := &handlerContext{
		prefix: prefix,
		kind:   kind,
	}
	c.handler.Store(&h)
	return c
}

func (c *handlerContext) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*c.handler.Load()).ServeHTTP(w, r)
}

// wrap decorates the context with f. Requests already in flight
// finish on the previous handler.
func (c *handlerContext) wrap(f filter.Filter) {
	h := f.Wrap(*c.handler.Load())
	c.handler.Store(&h)
}

// load materializes every registered mount, in descending prefix order,
// into a fresh handler tree.
func (s *Server) load(ctx context.Context) (*tree, error) {
	mounts, err := s.registry.Mounts()
	if err != nil {
		return nil, err
	}

	t := &tree{
		redirectRoot: s.cfg.RedirectRoot,
		contexts:     make([]*handlerContext, 0, len(mounts)),
	}
	for _, m := range mounts {
		h, err := s.materialize(ctx, m)
		if err != nil {
			return nil, err
		}
		if h == nil {
			continue
		}

		t.contexts = append(t.contexts, newHandlerContext(m.Prefix, m.Kind, s.contextHandler(m.Prefix, m.Kind, h)))
		s.log.DebugContext(
			ctx,
			"mounted context",
			slogfield.Prefix(m.Prefix),
			slogfield.String("kind", m.Kind.String()),
		)
	}
	return t, nil
}

func (s *Server) materialize(ctx context.Context, m mount.Mount) (http.Handler, error) {
	if m.Kind == mount.Static {
		// Only missing content is skipped. Any other failure aborts the start.
		fsys, err := s.static.Resolve(m.Location)
		if errors.Is(err, fs.ErrNotExist) {
			s.log.ErrorContext(
				ctx,
				"skipping static content mount",
				slogfield.Prefix(m.Prefix),
				slogfield.String("location", m.Location),
				slogfield.Error(err),
			)
			return nil, nil
		}
		if err != nil {
			return nil, &MountError{Prefix: m.Prefix, Kind: m.Kind, Cause: err}
		}
		return http.FileServerFS(fsys), nil
	}

	if s.builder == nil {
		return nil, &MountError{Prefix: m.Prefix, Kind: m.Kind, Cause: ErrNoBuilder}
	}

	injectables := append(slices.Clone(s.injectables), m.Injectables...)
	h, err := s.build(ctx, resource.Spec{
		Prefix:         m.Prefix,
		Kind:           m.Kind,
		Names:          m.Names,
		Injectables:    injectables,
		APIDescription: s.cfg.APIDescription,
	})
	if err != nil {
		return nil, &MountError{Prefix: m.Prefix, Kind: m.Kind, Cause: err}
	}
	return h, nil
}

func (s *Server) build(ctx context.Context, spec resource.Spec) (_ http.Handler, err error) {
	defer try.Recover(&err)

	return s.builder.Build(ctx, spec)
}

// contextHandler roots h at prefix. Filters see the full request path
// while h sees the path relative to prefix.
func (s *Server) contextHandler(prefix string, kind mount.Kind, h http.Handler) http.Handler {
	h = stripPrefix(prefix, h)
	h = s.chain.Apply(prefix, h)
	h = session.NewManager(prefix, s.sessionOpts...).Handler(h)
	h = logContext(h, slogfield.Prefix(prefix), slogfield.String("kind", kind.String()))
	return otelhttp.WithRouteTag(prefix, h)
}

// logContext tags requests so records logged while serving them
// name the context they were routed to.
func logContext(h http.Handler, attrs ...slog.Attr) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(otelslog.ContextWith(r.Context(), attrs...)))
	})
}

func stripPrefix(prefix string, h http.Handler) http.Handler {
	if prefix == "/" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = filter.RelativePath(prefix, r.URL.Path)
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	})
}
