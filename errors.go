// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"errors"
	"fmt"

	"github.com/z5labs/webserver/mount"
)

var (
	// ErrMissingCredential is returned by [Server.Start] when TLS is
	// enabled but no [Credential] was provided.
	ErrMissingCredential = errors.New("webserver: tls is enabled but no credential was provided")

	// ErrNotRunning is returned by operations which require a running server.
	ErrNotRunning = errors.New("webserver: server is not running")

	// ErrNilGuard is returned by [Server.AddExecutionLimitFilter] when given a nil guard.
	ErrNilGuard = errors.New("webserver: guard must not be nil")

	// ErrNoBuilder is the cause of a [MountError] for resource bundles
	// registered on a server without a [resource.Builder].
	ErrNoBuilder = errors.New("webserver: no resource builder configured")
)

// StartError wraps any failure which aborted [Server.Start].
type StartError struct {
	Cause error
}

// Error implements the [error] interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start server: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *StartError) Unwrap() error {
	return e.Cause
}

// StopError wraps any failure encountered by [Server.Stop].
type StopError struct {
	Cause error
}

// Error implements the [error] interface.
func (e *StopError) Error() string {
	return fmt.Sprintf("failed to stop server: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *StopError) Unwrap() error {
	return e.Cause
}

// MountError occurs when a resource bundle could not be materialized.
type MountError struct {
	Prefix string
	Kind   mount.Kind
	Cause  error
}

// Error implements the [error] interface.
func (e *MountError) Error() string {
	return fmt.Sprintf("failed to mount %s at %s: %s", e.Kind, e.Prefix, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *MountError) Unwrap() error {
	return e.Cause
}

// ConfigError describes the first field of a [Config] which failed validation.
type ConfigError struct {
	Field string
	Tag   string
	Value any
}

// Error implements the [error] interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s failed on '%s' (value: %v)", e.Field, e.Tag, e.Value)
}
