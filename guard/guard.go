// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package guard enforces a maximum wall clock duration on requests.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/webserver/filter"
	"github.com/z5labs/webserver/internal/noop"
	"github.com/z5labs/webserver/internal/slogfield"

	"github.com/sony/gobreaker"
)

// Release must be called once the guarded request has finished. The error
// is nil when the request completed within its deadline.
type Release func(error)

// Guard decides whether a request may run and bounds how long it may run for.
type Guard interface {
	Guard(ctx context.Context, timeout time.Duration) (context.Context, Release, error)
}

// ErrRejected is returned by a [Guard] which refuses to run a request.
var ErrRejected = errors.New("guard: request rejected")

// Deadline is a [Guard] which only applies a context deadline.
type Deadline struct{}

// Guard implements the [Guard] interface.
func (Deadline) Guard(ctx context.Context, timeout time.Duration) (context.Context, Release, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func(error) { cancel() }, nil
}

type breakerOptions struct {
	name        string
	log         *slog.Logger
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
}

// BreakerOption configures a [Breaker].
type BreakerOption func(*breakerOptions)

// BreakerName names the circuit breaker in state change logs.
func BreakerName(name string) BreakerOption {
	return func(bo *breakerOptions) {
		bo.name = name
	}
}

// BreakerLogHandler sets the [slog.Handler] which receives breaker state changes.
func BreakerLogHandler(h slog.Handler) BreakerOption {
	return func(bo *breakerOptions) {
		bo.log = slog.New(h)
	}
}

// BreakerMaxRequests is the number of requests allowed through while half-open.
func BreakerMaxRequests(n uint32) BreakerOption {
	return func(bo *breakerOptions) {
		bo.maxRequests = n
	}
}

// BreakerInterval is the cyclic period of the closed state after which
// failure counts are cleared. Zero never clears them.
func BreakerInterval(d time.Duration) BreakerOption {
	return func(bo *breakerOptions) {
		bo.interval = d
	}
}

// BreakerTimeout is how long the breaker stays open before half-opening.
func BreakerTimeout(d time.Duration) BreakerOption {
	return func(bo *breakerOptions) {
		bo.timeout = d
	}
}

// BreakerTripCount is the number of consecutive timed out requests
// required to open the breaker. Default is 5.
func BreakerTripCount(n uint32) BreakerOption {
	return func(bo *breakerOptions) {
		bo.tripCount = n
	}
}

// Breaker wraps another [Guard] with a circuit breaker. Once enough
// consecutive requests time out, new requests are rejected with
// [ErrRejected] until the breaker half-opens again.
type Breaker struct {
	base Guard
	cb   *gobreaker.TwoStepCircuitBreaker
}

// NewBreaker returns a [Breaker] around base.
func NewBreaker(base Guard, opts ...BreakerOption) *Breaker {
	bo := &breakerOptions{
		name:      "execution-guard",
		log:       slog.New(noop.LogHandler{}),
		tripCount: 5,
	}
	for _, opt := range opts {
		opt(bo)
	}

	cb := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        bo.name,
		MaxRequests: bo.maxRequests,
		Interval:    bo.interval,
		Timeout:     bo.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bo.tripCount
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			bo.log.Warn(
				"execution guard changed state",
				slogfield.String("name", name),
				slogfield.String("from", from.String()),
				slogfield.String("to", to.String()),
			)
		},
	})
	return &Breaker{
		base: base,
		cb:   cb,
	}
}

// Guard implements the [Guard] interface.
func (b *Breaker) Guard(ctx context.Context, timeout time.Duration) (context.Context, Release, error) {
	done, err := b.cb.Allow()
	if err != nil {
		return nil, nil, errors.Join(ErrRejected, err)
	}

	gctx, release, err := b.base.Guard(ctx, timeout)
	if err != nil {
		done(false)
		return nil, nil, err
	}
	return gctx, func(err error) {
		defer release(err)

		done(!errors.Is(err, context.DeadlineExceeded))
	}, nil
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Filter returns a [filter.Filter] which runs every request under g with
// the given timeout. Requests refused by g, or which do not finish in time,
// receive a "503 Service Unavailable".
func Filter(timeout time.Duration, g Guard) *filter.Func {
	return filter.New("execution-guard", func(h http.Handler) http.Handler {
		th := http.TimeoutHandler(h, timeout, "request exceeded its execution time limit")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, release, err := g.Guard(r.Context(), timeout)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			th.ServeHTTP(w, r.WithContext(ctx))
			release(ctx.Err())
		})
	})
}
