// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhall/duskhall/pkg/errutil"
)

// newServeForConfig parses flags without running the command so
// loadServeConfig sees the same state Execute would.
func newServeForConfig(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := NewServeCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestServeConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      serveConfig
		wantCode string
	}{
		{
			name: "valid",
			cfg:  serveConfig{DatabaseURL: "postgres://localhost/duskhall", LogFormat: "json", LogLevel: "info"},
		},
		{
			name:     "missing database url",
			cfg:      serveConfig{LogFormat: "json", LogLevel: "info"},
			wantCode: "CONFIG_INVALID",
		},
		{
			name:     "bad log format",
			cfg:      serveConfig{DatabaseURL: "postgres://localhost/duskhall", LogFormat: "xml", LogLevel: "info"},
			wantCode: "CONFIG_INVALID",
		},
		{
			name:     "bad log level",
			cfg:      serveConfig{DatabaseURL: "postgres://localhost/duskhall", LogFormat: "json", LogLevel: "loud"},
			wantCode: "INVALID_LOG_LEVEL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestLoadServeConfig_Defaults(t *testing.T) {
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://localhost/duskhall")

	cmd := newServeForConfig(t)
	cfg, err := loadServeConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/duskhall", cfg.DatabaseURL)
	assert.Equal(t, defaultMetricsAddr, cfg.MetricsAddr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadServeConfig_FlagsOverride(t *testing.T) {
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cmd := newServeForConfig(t,
		"--database.url", "postgres://db:5432/duskhall",
		"--metrics.addr", "127.0.0.1:9200",
		"--log.format", "text",
		"--log.level", "debug",
		"--auto-migrate",
	)
	cfg, err := loadServeConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/duskhall", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:9200", cfg.MetricsAddr)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoadServeConfig_YAMLFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "duskhall.yaml")
	yaml := []byte("database:\n  url: postgres://file-host/duskhall\nlog:\n  level: warn\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	configFile = path
	defer func() { configFile = "" }()

	cmd := newServeForConfig(t)
	cfg, err := loadServeConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, "postgres://file-host/duskhall", cfg.DatabaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat, "flag default still applies")
}

func TestLoadServeConfig_MissingFile(t *testing.T) {
	configFile = "/nonexistent/duskhall.yaml"
	defer func() { configFile = "" }()

	cmd := newServeForConfig(t)
	_, err := loadServeConfig(cmd)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}
