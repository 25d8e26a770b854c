// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/z5labs/webserver/accesslog"
	"github.com/z5labs/webserver/filter"
	"github.com/z5labs/webserver/guard"
	"github.com/z5labs/webserver/internal/fixedpool"
	"github.com/z5labs/webserver/internal/noop"
	"github.com/z5labs/webserver/internal/otelslog"
	"github.com/z5labs/webserver/internal/slogfield"
	"github.com/z5labs/webserver/lifecycle"
	"github.com/z5labs/webserver/mount"
	"github.com/z5labs/webserver/resource"
	"github.com/z5labs/webserver/session"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle state of a [Server].
type State int32

const (
	Uninitialized State = iota
	Running
	Stopped
)

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// ListenerFactory opens the plain listener.
type ListenerFactory func(ctx context.Context, network, address string) (net.Listener, error)

// TLSListenerFactory opens the encrypted listener from a credential,
// a bind address and a port.
type TLSListenerFactory func(ctx context.Context, cred Credential, address string, port int) (net.Listener, error)

// Option configures a [Server].
type Option func(*Server)

// LogHandler sets the [slog.Handler] every component of the server logs to.
func LogHandler(h slog.Handler) Option {
	return func(s *Server) {
		s.logHandler = h
	}
}

// WithCredential sets the TLS material used when [Config.TLSEnabled] is true.
func WithCredential(cred Credential) Option {
	return func(s *Server) {
		s.cred = cred
	}
}

// DefaultInjectables are handed to every resource bundle in addition
// to the bundle's own injectables.
func DefaultInjectables(injectables ...any) Option {
	return func(s *Server) {
		s.injectables = append(s.injectables, injectables...)
	}
}

// WithBuilder sets the [resource.Builder] used to materialize resource bundles.
func WithBuilder(b resource.Builder) Option {
	return func(s *Server) {
		s.builder = b
	}
}

// ListenFunc overrides how the plain listener is opened.
func ListenFunc(f ListenerFactory) Option {
	return func(s *Server) {
		s.listen = f
	}
}

// TLSListenerFunc overrides how the encrypted listener is opened.
func TLSListenerFunc(f TLSListenerFactory) Option {
	return func(s *Server) {
		s.listenTLS = f
	}
}

// WithStaticResolver overrides how static content locations are resolved.
func WithStaticResolver(r StaticResolver) Option {
	return func(s *Server) {
		s.static = r
	}
}

// AccessLog sets the access log writer. It takes precedence over
// [Config.AccessLogPath] and is never closed by the server.
func AccessLog(w *accesslog.Writer) Option {
	return func(s *Server) {
		s.accessLog = w
	}
}

// SessionOptions configures the session manager of every mounted context.
func SessionOptions(opts ...session.Option) Option {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// Server mounts static content and resource bundles at URL prefixes and
// serves them over a plain and, optionally, an encrypted listener.
//
// Configuration methods are not safe for concurrent use. Requests may be
// served concurrently with any method.
type Server struct {
	cfg        Config
	log        *slog.Logger
	logHandler slog.Handler

	registry *mount.Registry
	chain    filter.Chain
	observer lifecycle.Observer

	builder     resource.Builder
	injectables []any
	cred        Credential
	listen      ListenerFactory
	listenTLS   TLSListenerFactory
	static      StaticResolver
	accessLog   *accesslog.Writer
	sessionOpts []session.Option

	state atomic.Int32
	tree  atomic.Pointer[tree]
	inst  *instance
}

type instance struct {
	servers   []*http.Server
	listeners []net.Listener
	accessLog *accesslog.Writer
	ownsLog   bool
	eg        errgroup.Group
}

// New returns a [Server] in the [Uninitialized] state. It performs no I/O.
func New(cfg Config, opts ...Option) *Server {
	if cfg.MaxThreads == 0 {
		cfg.MaxThreads = defaultMaxThreads()
	}
	s := &Server{
		cfg:        cfg,
		logHandler: noop.LogHandler{},
		static:     DirResolver(),
		listen: func(ctx context.Context, network, address string) (net.Listener, error) {
			var lc net.ListenConfig
			return lc.Listen(ctx, network, address)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.listenTLS == nil {
		s.listenTLS = tlsListener(s.listen)
	}
	s.logHandler = otelslog.NewHandler(s.logHandler)
	s.log = slog.New(s.logHandler)
	s.registry = mount.NewRegistry(mount.LogHandler(s.logHandler))
	return s
}

func tlsListener(listen ListenerFactory) TLSListenerFactory {
	return func(ctx context.Context, cred Credential, address string, port int) (net.Listener, error) {
		cfg, err := cred.TLSConfig()
		if err != nil {
			return nil, err
		}
		ln, err := listen(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
		if err != nil {
			return nil, err
		}
		return tls.NewListener(ln, cfg), nil
	}
}

// AddStaticContent serves the static content found at location under prefix.
func (s *Server) AddStaticContent(location, prefix string) {
	s.registry.AddStaticContent(location, prefix)
}

// RemoveStaticContent removes the static content mount at prefix,
// whichever location it was added with.
func (s *Server) RemoveStaticContent(location, prefix string) {
	s.registry.RemoveStaticContent(location, prefix)
}

// AddResourcePackages adds the named resource packages to the bundle mounted at prefix.
func (s *Server) AddResourcePackages(names []string, prefix string, injectables ...any) {
	s.registry.AddResourcePackages(names, prefix, injectables...)
}

// AddResourceClasses adds the named resource classes to the bundle mounted at prefix.
func (s *Server) AddResourceClasses(names []string, prefix string, injectables ...any) {
	s.registry.AddResourceClasses(names, prefix, injectables...)
}

// RemoveResourcePackages removes the named packages from the bundle at prefix.
// The prefix stays mounted even once its bundle is empty.
func (s *Server) RemoveResourcePackages(names []string, prefix string) {
	s.registry.RemoveResourcePackages(names, prefix)
}

// RemoveResourceClasses removes the named classes from the bundle at prefix.
// The prefix stays mounted even once its bundle is empty.
func (s *Server) RemoveResourceClasses(names []string, prefix string) {
	s.registry.RemoveResourceClasses(names, prefix)
}

// AddFilter applies f to every request of every mounted context whose
// context relative path matches pattern.
func (s *Server) AddFilter(f filter.Filter, pattern string) {
	s.chain.Add(f, pattern)
}

// RemoveFilter removes every registration of f with pattern.
func (s *Server) RemoveFilter(f filter.Filter, pattern string) {
	s.chain.Remove(f, pattern)
}

// OnStarted registers a hook fired each time the server enters [Running].
func (s *Server) OnStarted(hook lifecycle.Hook) {
	s.observer.OnStarted(hook)
}

// OnStopped registers a hook fired each time the server enters [Stopped].
func (s *Server) OnStopped(hook lifecycle.Hook) {
	s.observer.OnStopped(hook)
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Healthy implements the health.Metric interface. A server is
// healthy while it is running.
func (s *Server) Healthy(ctx context.Context) bool {
	return s.State() == Running
}

// Addr returns the address of the plain listener, or nil if not running.
func (s *Server) Addr() net.Addr {
	if s.inst == nil || len(s.inst.listeners) == 0 {
		return nil
	}
	return s.inst.listeners[0].Addr()
}

// TLSAddr returns the address of the encrypted listener, or nil
// if not running or TLS is disabled.
func (s *Server) TLSAddr() net.Addr {
	if s.inst == nil || len(s.inst.listeners) < 2 {
		return nil
	}
	return s.inst.listeners[1].Addr()
}

// Contexts returns the prefixes of the live handler contexts in the
// order requests are matched against them.
func (s *Server) Contexts() []string {
	t := s.tree.Load()
	if t == nil {
		return nil
	}
	prefixes := make([]string, len(t.contexts))
	for i, c := range t.contexts {
		prefixes[i] = c.prefix
	}
	return prefixes
}

// Start materializes every registered mount into the handler tree and,
// if the server is not yet running, opens its listeners and begins
// serving. Starting a running server rebuilds and swaps the handler
// tree without touching the listeners.
func (s *Server) Start(ctx context.Context) error {
	err := s.start(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to start server", slogfield.Error(err))
		return &StartError{Cause: err}
	}
	s.log.InfoContext(
		ctx,
		"server started",
		slogfield.Any("addr", s.Addr()),
		slogfield.Any("tls_addr", s.TLSAddr()),
		slogfield.Strings("contexts", s.Contexts()),
	)
	return s.observer.Started().Run(ctx)
}

func (s *Server) start(ctx context.Context) error {
	if s.inst != nil {
		t, err := s.load(ctx)
		if err != nil {
			return err
		}
		s.tree.Store(s.wrap(t, s.inst.accessLog))
		return nil
	}

	err := s.cfg.Validate()
	if err != nil {
		return err
	}
	if s.cfg.TLSEnabled && s.cred == nil {
		return ErrMissingCredential
	}

	t, err := s.load(ctx)
	if err != nil {
		return err
	}

	inst, err := s.open(ctx)
	if err != nil {
		return err
	}

	s.tree.Store(s.wrap(t, inst.accessLog))
	s.inst = inst
	s.serve(inst)
	s.state.Store(int32(Running))
	return nil
}

func (s *Server) open(ctx context.Context) (inst *instance, err error) {
	inst = &instance{
		accessLog: s.accessLog,
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, inst.close())
		}
	}()

	if inst.accessLog == nil && s.cfg.AccessLogPath != "" {
		inst.accessLog, err = accesslog.Open(s.cfg.AccessLogPath)
		if err != nil {
			return nil, err
		}
		inst.ownsLog = true
	}

	ln, err := s.listen(ctx, "tcp", net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return nil, err
	}
	inst.listeners = append(inst.listeners, ln)

	if s.cfg.TLSEnabled {
		ln, err := s.listenTLS(ctx, s.cred, s.cfg.Address, s.cfg.TLSPort)
		if err != nil {
			return nil, err
		}
		inst.listeners = append(inst.listeners, ln)
	}

	for range inst.listeners {
		inst.servers = append(inst.servers, &http.Server{
			Handler:           s,
			ReadTimeout:       s.cfg.ReadTimeout,
			ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
			WriteTimeout:      s.cfg.WriteTimeout,
			IdleTimeout:       s.cfg.IdleTimeout,
			MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
			ErrorLog:          slog.NewLogLogger(s.logHandler, slog.LevelError),
		})
	}
	return inst, nil
}

func (s *Server) serve(inst *instance) {
	for i, srv := range inst.servers {
		ln := inst.listeners[i]
		inst.eg.Go(func() error {
			err := srv.Serve(ln)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
}

// close releases the listeners and access log of an instance which never served.
func (inst *instance) close() error {
	var errs []error
	for _, ln := range inst.listeners {
		errs = append(errs, ln.Close())
	}
	if inst.ownsLog {
		errs = append(errs, inst.accessLog.Close())
	}
	return errors.Join(errs...)
}

// Stop gracefully shuts down every listener, waits for them to finish
// serving and releases the server instance so a later [Server.Start]
// begins clean. Stopping a server which is not running does nothing.
func (s *Server) Stop(ctx context.Context) error {
	inst := s.inst
	if inst == nil {
		return nil
	}

	shutdownCtx := ctx
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	tasks := make([]fixedpool.Task, len(inst.servers))
	for i, srv := range inst.servers {
		tasks[i] = func(ctx context.Context) error {
			err := srv.Shutdown(ctx)
			if err != nil {
				return errors.Join(err, srv.Close())
			}
			return nil
		}
	}
	shutdownErr := fixedpool.Wait(shutdownCtx, tasks...)
	serveErr := inst.eg.Wait()

	var closeErr error
	if inst.ownsLog {
		closeErr = inst.accessLog.Close()
	}

	s.inst = nil
	s.tree.Store(nil)
	s.state.Store(int32(Stopped))

	err := errors.Join(shutdownErr, serveErr, closeErr)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to stop server cleanly", slogfield.Error(err))
		err = &StopError{Cause: err}
	} else {
		s.log.InfoContext(ctx, "server stopped")
	}
	return errors.Join(err, s.observer.Stopped().Run(ctx))
}

// ServeHTTP implements the [http.Handler] interface by dispatching
// to the live handler tree.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t := s.tree.Load()
	if t == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	t.handler.ServeHTTP(w, r)
}

// Invoke dispatches r against the live handler tree as if it had been
// sent to path, without any network I/O.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request, path string) error {
	if s.State() != Running {
		return ErrNotRunning
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = path
	r2.URL.RawPath = ""
	r2.RequestURI = r2.URL.RequestURI()
	s.ServeHTTP(w, r2)
	return nil
}

// AddExecutionLimitFilter installs a filter which runs every request to a
// resource bundle under g with the given timeout. The filter is installed
// into the live handler tree immediately and again each time the server
// is started.
func (s *Server) AddExecutionLimitFilter(timeout time.Duration, g guard.Guard) error {
	if g == nil {
		return ErrNilGuard
	}
	if s.State() != Running {
		return ErrNotRunning
	}

	s.installGuard(timeout, g)
	s.observer.OnStarted(lifecycle.HookFunc(func(ctx context.Context) error {
		s.installGuard(timeout, g)
		return nil
	}))
	return nil
}

func (s *Server) installGuard(timeout time.Duration, g guard.Guard) {
	t := s.tree.Load()
	if t == nil {
		return
	}

	f := guard.Filter(timeout, g)
	for _, c := range t.contexts {
		if c.kind == mount.Static {
			continue
		}
		c.wrap(f)
	}
	s.log.Info(
		"installed execution limit filter",
		slogfield.Duration("timeout", timeout),
		slogfield.String("guard", fmt.Sprintf("%T", g)),
	)
}

// wrap assembles the outer layers of the handler tree. The access log
// is outermost so it records every request.
func (s *Server) wrap(t *tree, al *accesslog.Writer) *tree {
	var h http.Handler = t
	h = limit(int64(s.cfg.MaxThreads), h)
	if al != nil {
		h = al.Handler(h)
	}
	t.handler = otelhttp.NewHandler(h, "webserver")
	return t
}

// limit bounds the number of requests served concurrently by h.
func limit(n int64, h http.Handler) http.Handler {
	sem := semaphore.NewWeighted(n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := sem.Acquire(r.Context(), 1)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		defer sem.Release(1)

		h.ServeHTTP(w, r)
	})
}
