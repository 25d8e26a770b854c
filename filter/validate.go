// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"net/http"
	"slices"
	"strings"
)

// Validator inspects a request before it reaches the mounted handler.
// A Validator which rejects a request must write the response itself.
type Validator interface {
	Validate(http.ResponseWriter, *http.Request) bool
}

// ValidatorFunc is a func variant of the [Validator] interface.
type ValidatorFunc func(http.ResponseWriter, *http.Request) bool

// Validate implements the [Validator] interface.
func (f ValidatorFunc) Validate(w http.ResponseWriter, r *http.Request) bool {
	return f(w, r)
}

// Validate returns a [Filter] which only lets a request through once
// every validator, in order, has accepted it.
func Validate(name string, validators ...Validator) *Func {
	return New(name, func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, v := range validators {
				if !v.Validate(w, r) {
					return
				}
			}
			h.ServeHTTP(w, r)
		})
	})
}

// ForMethods rejects requests whose method is not one of methods
// with a "405 Method Not Allowed".
func ForMethods(methods ...string) Validator {
	allowed := strings.Join(methods, ", ")
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		if slices.Contains(methods, r.Method) {
			return true
		}
		w.Header().Set("Allow", allowed)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	})
}

// MinProto rejects requests older than HTTP/major.minor with a
// "505 HTTP Version Not Supported".
func MinProto(major, minor int) Validator {
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		if r.ProtoAtLeast(major, minor) {
			return true
		}
		w.WriteHeader(http.StatusHTTPVersionNotSupported)
		return false
	})
}
