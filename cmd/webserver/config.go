// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/z5labs/webserver"
	"github.com/z5labs/webserver/config"
	"github.com/z5labs/webserver/filter"
)

// EnvPrefix is the prefix of every environment variable read by serve.
const EnvPrefix = "WEBSERVER_"

type staticMount struct {
	Location string `config:"location"`
	Prefix   string `config:"prefix"`
}

type resourceMount struct {
	Packages []string `config:"packages"`
	Classes  []string `config:"classes"`
	Prefix   string   `config:"prefix"`
}

type corsConfig struct {
	filter.CORSOptions `config:",squash"`

	Enabled bool   `config:"enabled"`
	Pattern string `config:"pattern"`
}

type methodsConfig struct {
	Allowed []string `config:"allowed"`
	Pattern string   `config:"pattern"`
}

type guardConfig struct {
	Timeout   time.Duration `config:"timeout"`
	Breaker   bool          `config:"breaker"`
	TripCount uint32        `config:"trip_count"`
	Cooldown  time.Duration `config:"cooldown"`
}

type tlsConfig struct {
	CertFile string `config:"cert_file"`
	KeyFile  string `config:"key_file"`
}

type sessionConfig struct {
	CookieName string        `config:"cookie_name"`
	MaxIdle    time.Duration `config:"max_idle"`
}

type telemetryConfig struct {
	Exporter    string `config:"exporter"`
	ServiceName string `config:"service_name"`
	Target      string `config:"target"`
}

type loggingConfig struct {
	Level  slog.Level `config:"level"`
	Format string     `config:"format"`
}

type serveConfig struct {
	Server    webserver.Config `config:"server"`
	TLS       tlsConfig        `config:"tls"`
	Static    []staticMount    `config:"static"`
	Resources []resourceMount  `config:"resources"`
	CORS      corsConfig       `config:"cors"`
	Methods   methodsConfig    `config:"methods"`
	Guard     guardConfig      `config:"guard"`
	Session   sessionConfig    `config:"session"`
	Telemetry telemetryConfig  `config:"telemetry"`
	Logging   loggingConfig    `config:"logging"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Server: webserver.DefaultConfig(),
		CORS: corsConfig{
			Pattern: "/*",
		},
		Methods: methodsConfig{
			Pattern: "/*",
		},
		Guard: guardConfig{
			TripCount: 5,
			Cooldown:  time.Minute,
		},
		Telemetry: telemetryConfig{
			Exporter:    "none",
			ServiceName: "webserver",
		},
		Logging: loggingConfig{
			Level:  slog.LevelInfo,
			Format: "json",
		},
	}
}

// readServeConfig layers the YAML file at path, when given, and then
// the environment over the defaults.
func readServeConfig(fsys fs.FS, path string, env config.Source) (serveConfig, error) {
	cfg := defaultServeConfig()

	srcs := []config.Source{}
	if path != "" {
		srcs = append(srcs, config.FromYaml(config.NewFileReader(fsys, path)))
	}
	if env != nil {
		srcs = append(srcs, env)
	}

	m, err := config.Read(srcs...)
	if err != nil {
		return cfg, err
	}
	err = m.Unmarshal(&cfg)
	if err != nil {
		return cfg, err
	}

	switch strings.ToLower(cfg.Telemetry.Exporter) {
	case "", "none", "stdout", "otlp":
	default:
		return cfg, fmt.Errorf("unknown telemetry exporter: %s", cfg.Telemetry.Exporter)
	}
	return cfg, nil
}

// configFS resolves config file paths against the file system root so
// that both relative and absolute paths work with [fs.FS].
func configFS(path string) (fs.FS, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	root := filepath.VolumeName(abs) + string(filepath.Separator)
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return nil, "", err
	}
	return os.DirFS(root), filepath.ToSlash(rel), nil
}
