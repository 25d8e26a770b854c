// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package webserver

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Run("will use the documented defaults", func(t *testing.T) {
		cfg := DefaultConfig()

		require.Equal(t, "0.0.0.0", cfg.Address)
		require.Equal(t, 80, cfg.Port)
		require.Equal(t, 7473, cfg.TLSPort)
		require.Equal(t, 10*runtime.NumCPU(), cfg.MaxThreads)
		require.False(t, cfg.TLSEnabled)
		require.NoError(t, cfg.Validate())
	})
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		Name  string
		Edit  func(*Config)
		Field string
	}{
		{
			Name:  "will reject a port out of range",
			Edit:  func(c *Config) { c.TLSPort = -1 },
			Field: "Config.TLSPort",
		},
		{
			Name:  "will reject negative max threads",
			Edit:  func(c *Config) { c.MaxThreads = -1 },
			Field: "Config.MaxThreads",
		},
		{
			Name:  "will reject a relative redirect root",
			Edit:  func(c *Config) { c.RedirectRoot = "app" },
			Field: "Config.RedirectRoot",
		},
		{
			Name:  "will reject a malformed address",
			Edit:  func(c *Config) { c.Address = "not an address" },
			Field: "Config.Address",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			cfg := DefaultConfig()
			testCase.Edit(&cfg)

			err := cfg.Validate()

			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			require.Equal(t, testCase.Field, cerr.Field)
		})
	}
}
