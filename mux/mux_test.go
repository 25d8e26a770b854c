// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mux

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusCodeHandler int

func (h statusCodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(int(h))
}

func TestNotFoundHandler(t *testing.T) {
	testCases := []struct {
		Name            string
		RegisterPattern string
		RequestPath     string
		NotFound        bool
	}{
		{
			Name:        "will match not found if no routes are registered and '/' is requested",
			RequestPath: "/",
			NotFound:    true,
		},
		{
			Name:            "will match not found if an unknown path is requested",
			RegisterPattern: "/hello",
			RequestPath:     "/bye",
			NotFound:        true,
		},
		{
			Name:            "will match not found if '/{$}' is registered and a sub-path is requested",
			RegisterPattern: "/{$}",
			RequestPath:     "/bye",
			NotFound:        true,
		},
		{
			Name:            "will not match not found if the route is requested",
			RegisterPattern: "/hello",
			RequestPath:     "/hello",
		},
		{
			Name:            "will not match not found if the route is requested with a trailing slash",
			RegisterPattern: "/hello",
			RequestPath:     "/hello/",
		},
		{
			Name:            "will match not found if a path below the route is requested",
			RegisterPattern: "/hello",
			RequestPath:     "/hello/world",
			NotFound:        true,
		},
		{
			Name:            "will not match not found if a route ending in a slash is requested without it",
			RegisterPattern: "/hello/",
			RequestPath:     "/hello",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			router := New(NotFoundHandler(statusCodeHandler(http.StatusTeapot)))
			if testCase.RegisterPattern != "" {
				router.Handle(MethodGet, testCase.RegisterPattern, statusCodeHandler(http.StatusOK))
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, testCase.RequestPath, nil))

			if testCase.NotFound {
				require.Equal(t, http.StatusTeapot, w.Code)
				return
			}
			require.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestMethodNotAllowedHandler(t *testing.T) {
	t.Run("will call the method not allowed handler", func(t *testing.T) {
		t.Run("if the path is registered for another method", func(t *testing.T) {
			router := New(MethodNotAllowedHandler(statusCodeHandler(http.StatusConflict)))
			router.Handle(MethodGet, "/users", statusCodeHandler(http.StatusOK))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
			require.Equal(t, http.StatusConflict, w.Code)
		})
	})

	t.Run("will call the registered handler", func(t *testing.T) {
		t.Run("if the method matches", func(t *testing.T) {
			router := New(MethodNotAllowedHandler(statusCodeHandler(http.StatusConflict)))
			router.Handle(MethodGet, "/users", statusCodeHandler(http.StatusOK))
			router.Handle(MethodPost, "/users", statusCodeHandler(http.StatusCreated))

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users", nil))
			require.Equal(t, http.StatusCreated, w.Code)
		})
	})
}

func TestRouter_Routes(t *testing.T) {
	t.Run("will return routes in registration order", func(t *testing.T) {
		router := New()
		router.Handle(MethodPost, "/b", statusCodeHandler(http.StatusOK))
		router.Handle(MethodGet, "/a", statusCodeHandler(http.StatusOK))

		require.Equal(t, []Route{
			{Method: MethodPost, Pattern: "/b"},
			{Method: MethodGet, Pattern: "/a"},
		}, router.Routes())
	})
}
