// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"errors"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the configuration surface of a [Server]. Changes made
// after the server is running are ignored until the next [Server.Start].
type Config struct {
	Address    string `config:"address" validate:"omitempty,ip|hostname"`
	Port       int    `config:"port" validate:"gte=0,lte=65535"`
	TLSPort    int    `config:"tls_port" validate:"gte=0,lte=65535"`
	TLSEnabled bool   `config:"tls_enabled"`

	// MaxThreads bounds the number of requests served concurrently.
	// Zero means ten per CPU.
	MaxThreads int `config:"max_threads" validate:"gte=0"`

	// AccessLogPath enables the access log when set.
	AccessLogPath string `config:"access_log_path"`

	// APIDescription asks the resource builder to serve a
	// machine-readable description of every resource bundle.
	APIDescription bool `config:"api_description"`

	// RedirectRoot, when set, is where requests for "/" are redirected.
	RedirectRoot string `config:"redirect_root" validate:"omitempty,startswith=/"`

	ShutdownTimeout   time.Duration `config:"shutdown_timeout" validate:"gte=0"`
	ReadTimeout       time.Duration `config:"read_timeout" validate:"gte=0"`
	ReadHeaderTimeout time.Duration `config:"read_header_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `config:"write_timeout" validate:"gte=0"`
	IdleTimeout       time.Duration `config:"idle_timeout" validate:"gte=0"`
	MaxHeaderBytes    int           `config:"max_header_bytes" validate:"gte=0"`
}

// DefaultConfig returns the default [Config].
func DefaultConfig() Config {
	return Config{
		Address:           "0.0.0.0",
		Port:              80,
		TLSPort:           7473,
		MaxThreads:        defaultMaxThreads(),
		ShutdownTimeout:   30 * time.Second,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1048576,
	}
}

func defaultMaxThreads() int {
	return 10 * runtime.NumCPU()
}

var validate = validator.New()

// Validate reports the first invalid field as a [*ConfigError].
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	return &ConfigError{
		Field: e.Namespace(),
		Tag:   e.Tag(),
		Value: e.Value(),
	}
}
