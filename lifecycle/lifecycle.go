// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lifecycle provides hooks which observe a servers state transitions.
package lifecycle

import (
	"context"
	"errors"
)

// Hook represents functionality that needs to be performed
// when a server changes state.
type Hook interface {
	Run(context.Context) error
}

// HookFunc is a func variant of the [Hook] interface.
type HookFunc func(context.Context) error

// Run implements the [Hook] interface.
func (f HookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type multiHook []Hook

func (mh multiHook) Run(ctx context.Context) error {
	errs := make([]error, 0, len(mh))
	for _, h := range mh {
		err := h.Run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// MultiHook returns a [Hook] that's the logical concatenation
// of the provided [Hook]s. They're applied sequentially and every
// hook runs even if an earlier one fails.
func MultiHook(hooks ...Hook) Hook {
	return multiHook(hooks)
}

// Observer collects the hooks to run on each transition to the
// running and stopped states.
type Observer struct {
	started multiHook
	stopped multiHook
}

// OnStarted registers hook to run once per transition to running.
func (o *Observer) OnStarted(hook Hook) {
	o.started = append(o.started, hook)
}

// OnStopped registers hook to run once per transition to stopped.
func (o *Observer) OnStopped(hook Hook) {
	o.stopped = append(o.stopped, hook)
}

// Started returns the [Hook] composed of every hook registered with [Observer.OnStarted].
func (o *Observer) Started() Hook {
	return o.started
}

// Stopped returns the [Hook] composed of every hook registered with [Observer.OnStopped].
func (o *Observer) Stopped() Hook {
	return o.stopped
}
