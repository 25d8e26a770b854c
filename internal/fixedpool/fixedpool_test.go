// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fixedpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/z5labs/webserver/internal/try"
)

func TestWait(t *testing.T) {
	t.Run("will run every task", func(t *testing.T) {
		var counter atomic.Int32
		task := func(ctx context.Context) error {
			counter.Add(1)
			return nil
		}

		err := Wait(context.Background(), task, task, task)
		require.NoError(t, err)
		require.Equal(t, int32(3), counter.Load())
	})

	t.Run("will return nil", func(t *testing.T) {
		t.Run("if there are no tasks", func(t *testing.T) {
			require.NoError(t, Wait(context.Background()))
		})
	})

	t.Run("will join every task error", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")

		err := Wait(
			context.Background(),
			func(ctx context.Context) error { return err1 },
			func(ctx context.Context) error { return err2 },
		)
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("will cancel the remaining tasks", func(t *testing.T) {
		t.Run("if a task fails", func(t *testing.T) {
			cause := errors.New("failed")
			var canceled atomic.Bool

			err := Wait(
				context.Background(),
				func(ctx context.Context) error { return cause },
				func(ctx context.Context) error {
					<-ctx.Done()
					canceled.Store(true)
					return nil
				},
			)
			require.ErrorIs(t, err, cause)
			require.True(t, canceled.Load())
		})
	})

	t.Run("will recover a panicking task", func(t *testing.T) {
		err := Wait(
			context.Background(),
			func(ctx context.Context) error { panic("boom") },
		)

		var perr try.PanicError
		require.ErrorAs(t, err, &perr)
		require.Equal(t, "boom", perr.Value)
	})
}
