// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func recordingFilter(name string, calls *[]string) *Func {
	return New(name, func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*calls = append(*calls, name)
			h.ServeHTTP(w, r)
		})
	})
}

func TestMatch(t *testing.T) {
	testCases := []struct {
		Pattern string
		Path    string
		Expect  bool
	}{
		{Pattern: "/*", Path: "/anything", Expect: true},
		{Pattern: "", Path: "/", Expect: true},
		{Pattern: "/api/*", Path: "/api", Expect: true},
		{Pattern: "/api/*", Path: "/api/users", Expect: true},
		{Pattern: "/api/*", Path: "/apis", Expect: false},
		{Pattern: "*.js", Path: "/app/main.js", Expect: true},
		{Pattern: "*.js", Path: "/app/main.css", Expect: false},
		{Pattern: "/exact", Path: "/exact", Expect: true},
		{Pattern: "/exact", Path: "/exact/more", Expect: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Pattern+" "+testCase.Path, func(t *testing.T) {
			require.Equal(t, testCase.Expect, Match(testCase.Pattern, testCase.Path))
		})
	}
}

func TestRelativePath(t *testing.T) {
	require.Equal(t, "/users", RelativePath("/db", "/db/users"))
	require.Equal(t, "/", RelativePath("/db", "/db"))
	require.Equal(t, "/db/users", RelativePath("/", "/db/users"))
}

func TestChain_Apply(t *testing.T) {
	t.Run("will run filters in registration order", func(t *testing.T) {
		var calls []string

		var c Chain
		c.Add(recordingFilter("first", &calls), "/*")
		c.Add(recordingFilter("second", &calls), "/*")
		c.Add(recordingFilter("third", &calls), "/*")

		h := c.Apply("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls = append(calls, "handler")
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, []string{"first", "second", "third", "handler"}, calls)
	})

	t.Run("will skip filters", func(t *testing.T) {
		t.Run("if the context relative path does not match", func(t *testing.T) {
			var calls []string

			var c Chain
			c.Add(recordingFilter("api", &calls), "/api/*")
			c.Add(recordingFilter("js", &calls), "*.js")

			h := c.Apply("/db", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, "handler")
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/db/api/users", nil))
			require.Equal(t, []string{"api", "handler"}, calls)
		})
	})

	t.Run("will not be affected by later changes to the chain", func(t *testing.T) {
		var calls []string

		var c Chain
		f := recordingFilter("first", &calls)
		c.Add(f, "/*")

		h := c.Apply("/", http.NotFoundHandler())
		c.Remove(f, "/*")
		c.Add(recordingFilter("late", &calls), "/*")

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, []string{"first"}, calls)
	})
}

func TestChain_Remove(t *testing.T) {
	t.Run("will remove every entry matching identity and pattern", func(t *testing.T) {
		var calls []string
		a := recordingFilter("a", &calls)
		b := recordingFilter("a", &calls)

		var c Chain
		c.Add(a, "/*")
		c.Add(a, "/api/*")
		c.Add(b, "/*")
		c.Add(a, "/*")

		c.Remove(a, "/*")

		require.Equal(t, []Entry{
			{Filter: a, Pattern: "/api/*"},
			{Filter: b, Pattern: "/*"},
		}, c.Entries())
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if no entry matches", func(t *testing.T) {
			var calls []string
			a := recordingFilter("a", &calls)

			var c Chain
			c.Add(a, "/*")
			c.Remove(a, "/other")

			require.Equal(t, 1, c.Len())
		})
	})
}

func TestCORS(t *testing.T) {
	t.Run("will answer a preflight request", func(t *testing.T) {
		var c Chain
		c.Add(CORS(CORSOptions{
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}), "/*")

		h := c.Apply("/", http.NotFoundHandler())

		req := httptest.NewRequest(http.MethodOptions, "/db", nil)
		req.Header.Set("Origin", "https://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.True(t, strings.HasPrefix(w.Header().Get("Access-Control-Allow-Origin"), "https://example.com"))
		require.NotEqual(t, http.StatusNotFound, w.Code)
	})
}
