// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filter

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSOptions configures the filter returned by [CORS].
type CORSOptions struct {
	AllowedOrigins   []string `config:"allowed_origins"`
	AllowedMethods   []string `config:"allowed_methods"`
	AllowedHeaders   []string `config:"allowed_headers"`
	AllowCredentials bool     `config:"allow_credentials"`
	MaxAge           int      `config:"max_age"`
}

// CORS returns a [Filter] handling cross origin resource sharing.
func CORS(opts CORSOptions) *Func {
	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   opts.AllowedMethods,
		AllowedHeaders:   opts.AllowedHeaders,
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           opts.MaxAge,
	})
	return New("cors", func(h http.Handler) http.Handler {
		return c.Handler(h)
	})
}
