// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package session provides cookie identified, in-memory sessions scoped
// to a single mounted handler context.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

// DefaultCookieName is used when no [CookieName] option is given.
const DefaultCookieName = "WEBSERVER_SESSION"

// Session holds values for a single client.
type Session struct {
	id string

	mu     sync.Mutex
	values map[string]any
	seen   time.Time
}

// ID returns the session identifier sent to the client.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores v under key.
func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

// Delete removes the value stored under key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = now
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.seen)
}

// Option configures a [Manager].
type Option func(*Manager)

// CookieName overrides [DefaultCookieName].
func CookieName(name string) Option {
	return func(m *Manager) {
		m.cookieName = name
	}
}

// MaxIdle discards sessions which have not been used for d.
// Default is 30 minutes.
func MaxIdle(d time.Duration) Option {
	return func(m *Manager) {
		m.maxIdle = d
	}
}

// Manager tracks the sessions of one handler context. Sessions are
// created lazily, the first time a handler asks for one.
type Manager struct {
	path       string
	cookieName string
	maxIdle    time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a [Manager] whose cookies are scoped to path.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:       path,
		cookieName: DefaultCookieName,
		maxIdle:    30 * time.Minute,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Handler makes the manager available to h through [FromContext].
func (m *Manager) Handler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := &accessor{m: m, w: w, r: r}
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey, a)))
	})
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	now := m.now()
	if s.idleSince(now) > m.maxIdle {
		delete(m.sessions, id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

func (m *Manager) create() (*Session, error) {
	b := make([]byte, 24)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:     base64.RawURLEncoding.EncodeToString(b),
		values: make(map[string]any),
		seen:   m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictIdle(s.seen)
	m.sessions[s.id] = s
	return s, nil
}

func (m *Manager) evictIdle(now time.Time) {
	for id, s := range m.sessions {
		if s.idleSince(now) > m.maxIdle {
			delete(m.sessions, id)
		}
	}
}

type accessor struct {
	m *Manager
	w http.ResponseWriter
	r *http.Request

	once sync.Once
	s    *Session
	err  error
}

func (a *accessor) session() (*Session, error) {
	a.once.Do(func() {
		c, err := a.r.Cookie(a.m.cookieName)
		if err == nil {
			s, ok := a.m.lookup(c.Value)
			if ok {
				a.s = s
				return
			}
		}

		a.s, a.err = a.m.create()
		if a.err != nil {
			return
		}
		http.SetCookie(a.w, &http.Cookie{
			Name:     a.m.cookieName,
			Value:    a.s.id,
			Path:     a.m.path,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	})
	return a.s, a.err
}

type key struct{}

var contextKey = key{}

// FromContext returns the session of the current request, creating it
// if needed. A new session sets its cookie on the response, so it must
// be requested before the response headers are written.
func FromContext(ctx context.Context) (*Session, error) {
	a, ok := ctx.Value(contextKey).(*accessor)
	if !ok {
		return nil, ErrNoManager
	}
	return a.session()
}
