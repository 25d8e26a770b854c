// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package try

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecover(t *testing.T) {
	t.Run("will return a PanicError", func(t *testing.T) {
		t.Run("if the recovered value is not an error", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				panic("hello")
			}

			err := f()

			var perr PanicError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, "hello", perr.Value)
		})

		t.Run("which unwraps to the recovered error", func(t *testing.T) {
			cause := errors.New("boom")
			f := func() (err error) {
				defer Recover(&err)
				panic(cause)
			}

			err := f()
			require.ErrorIs(t, err, cause)
		})
	})

	t.Run("will join the panic with an existing error", func(t *testing.T) {
		existing := errors.New("existing")
		f := func() (err error) {
			defer Recover(&err)
			err = existing
			panic("after")
		}

		err := f()
		require.ErrorIs(t, err, existing)

		var perr PanicError
		require.ErrorAs(t, err, &perr)
	})
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func TestClose(t *testing.T) {
	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if the value is not a closer", func(t *testing.T) {
			var err error
			Close(&err, "not a closer")
			require.NoError(t, err)
		})
	})

	t.Run("will return a CloseError", func(t *testing.T) {
		t.Run("if the closer fails", func(t *testing.T) {
			cause := errors.New("failed")

			var err error
			Close(&err, closerFunc(func() error { return cause }))

			var cerr CloseError
			require.ErrorAs(t, err, &cerr)
			require.ErrorIs(t, err, cause)
		})
	})
}
