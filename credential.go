// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"crypto/tls"
	"fmt"
)

// Credential supplies the TLS material for the encrypted listener.
type Credential interface {
	TLSConfig() (*tls.Config, error)
}

// CredentialFunc is a func variant of the [Credential] interface.
type CredentialFunc func() (*tls.Config, error)

// TLSConfig implements the [Credential] interface.
func (f CredentialFunc) TLSConfig() (*tls.Config, error) {
	return f()
}

// CredentialFromFiles loads a PEM encoded certificate and key pair from disk.
func CredentialFromFiles(certPath, keyPath string) Credential {
	return CredentialFunc(func() (*tls.Config, error) {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load tls certificate: %w", err)
		}
		return newTLSConfig(cert), nil
	})
}

// CredentialFromPEM uses an in-memory PEM encoded certificate and key pair.
func CredentialFromPEM(certPEM, keyPEM []byte) Credential {
	return CredentialFunc(func() (*tls.Config, error) {
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to load tls certificate from memory: %w", err)
		}
		return newTLSConfig(cert), nil
	})
}

// CredentialFromConfig uses cfg as is. A clone is handed to each listener.
func CredentialFromConfig(cfg *tls.Config) Credential {
	return CredentialFunc(func() (*tls.Config, error) {
		if cfg == nil {
			return nil, ErrMissingCredential
		}
		return cfg.Clone(), nil
	})
}

func newTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}
