// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiHook(t *testing.T) {
	t.Run("will run every hook in order", func(t *testing.T) {
		var calls []string
		hook := func(name string) Hook {
			return HookFunc(func(ctx context.Context) error {
				calls = append(calls, name)
				return nil
			})
		}

		err := MultiHook(hook("one"), hook("two")).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"one", "two"}, calls)
	})

	t.Run("will join every error", func(t *testing.T) {
		oneErr := errors.New("one")
		twoErr := errors.New("two")

		err := MultiHook(
			HookFunc(func(ctx context.Context) error { return oneErr }),
			HookFunc(func(ctx context.Context) error { return twoErr }),
		).Run(context.Background())
		require.ErrorIs(t, err, oneErr)
		require.ErrorIs(t, err, twoErr)
	})
}

func TestObserver(t *testing.T) {
	t.Run("will keep started and stopped hooks apart", func(t *testing.T) {
		var started, stopped int

		var o Observer
		o.OnStarted(HookFunc(func(ctx context.Context) error {
			started++
			return nil
		}))
		o.OnStopped(HookFunc(func(ctx context.Context) error {
			stopped++
			return nil
		}))

		require.NoError(t, o.Started().Run(context.Background()))
		require.Equal(t, 1, started)
		require.Zero(t, stopped)

		require.NoError(t, o.Stopped().Run(context.Background()))
		require.Equal(t, 1, stopped)
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if no hooks are registered", func(t *testing.T) {
			var o Observer
			require.NoError(t, o.Started().Run(context.Background()))
		})
	})
}
