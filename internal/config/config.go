// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package config loads the demo shell's settings: connection defaults,
// queue timeouts and logging knobs. It is consumed only by cmd/fbshell —
// the root fbasync package itself takes every parameter as an explicit
// Go value and never reads a config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the demo shell's runtime settings, loaded from a TOML
// file with environment variable overrides.
type Config struct {
	DSN      string `toml:"dsn" mapstructure:"dsn"`
	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`

	LogLevel string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath  string `toml:"logPath" mapstructure:"logPath"`

	LogMaxSizeMB  int `toml:"logMaxSizeMB" mapstructure:"logMaxSizeMB"`
	LogMaxBackups int `toml:"logMaxBackups" mapstructure:"logMaxBackups"`

	QueueTimeoutSeconds  int `toml:"queueTimeoutSeconds" mapstructure:"queueTimeoutSeconds"`
	MaterializeTimeoutMS int `toml:"materializeTimeoutMS" mapstructure:"materializeTimeoutMS"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dsn", "mem:fbshell")
	v.SetDefault("username", "SYSDBA")
	v.SetDefault("logLevel", "info")
	v.SetDefault("logMaxSizeMB", 50)
	v.SetDefault("logMaxBackups", 3)
	v.SetDefault("queueTimeoutSeconds", 30)
	v.SetDefault("materializeTimeoutMS", 5000)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", 9090)
}

// New loads configuration from the TOML file at path, layering in
// defaults below it and FBASYNC_-prefixed environment variables above
// it. path may point to a file that does not yet exist — defaults and
// environment variables still apply.
func New(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix("FBASYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("fbasync: reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("fbasync: parsing config: %w", err)
	}
	return &cfg, nil
}

// QueueTimeout is QueueTimeoutSeconds as a time.Duration, the default
// bound passed to every synchronous Connection/Transaction/Statement
// call the demo shell issues.
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutSeconds) * time.Second
}

// MaterializeTimeout is MaterializeTimeoutMS as a time.Duration, the
// bound passed to NewDualStatementBuffer.
func (c *Config) MaterializeTimeout() time.Duration {
	return time.Duration(c.MaterializeTimeoutMS) * time.Millisecond
}

// MetricsAddr is the host:port the demo shell's /metrics endpoint binds
// to when MetricsEnabled is set.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// ResolveLogPath returns LogPath unchanged if it's already absolute or
// empty (meaning stderr); otherwise it's resolved relative to dir,
// mirroring how a sibling config file anchors a relative database path.
func (c *Config) ResolveLogPath(dir string) string {
	if c.LogPath == "" || filepath.IsAbs(c.LogPath) {
		return c.LogPath
	}
	return filepath.Join(dir, c.LogPath)
}
