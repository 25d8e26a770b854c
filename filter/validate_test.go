// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("will reach the handler", func(t *testing.T) {
		t.Run("if every validator accepts the request", func(t *testing.T) {
			f := Validate("validate", ForMethods(http.MethodGet, http.MethodHead), MinProto(1, 1))

			w := httptest.NewRecorder()
			f.Wrap(ok).ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/", nil))
			require.Equal(t, http.StatusNoContent, w.Code)
		})
	})

	t.Run("will respond with 405", func(t *testing.T) {
		t.Run("if the method is not allowed", func(t *testing.T) {
			f := Validate("validate", ForMethods(http.MethodGet, http.MethodHead))

			w := httptest.NewRecorder()
			f.Wrap(ok).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusMethodNotAllowed, w.Code)
			require.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
		})
	})

	t.Run("will respond with 505", func(t *testing.T) {
		t.Run("if the protocol is too old", func(t *testing.T) {
			f := Validate("validate", MinProto(1, 1))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Proto = "HTTP/1.0"
			r.ProtoMajor = 1
			r.ProtoMinor = 0

			w := httptest.NewRecorder()
			f.Wrap(ok).ServeHTTP(w, r)
			require.Equal(t, http.StatusHTTPVersionNotSupported, w.Code)
		})
	})
}
