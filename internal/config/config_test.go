package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trailstore.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	for _, key := range []string{EnvStorePath, EnvLogLevel, EnvMetricsAddr, EnvWorkers} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[store]
path = "build/project"
clear = true

[import]
workers = 4
commit_every = 250
include = ["src/**"]
exclude = ["**/*_test.cpp", "third_party/**"]

[server]
metrics_addr = "127.0.0.1:9464"

[log]
level = "DEBUG"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "build/project", cfg.Store.Path)
	assert.True(t, cfg.Store.Clear)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, 250, cfg.Import.CommitEvery)
	assert.Equal(t, []string{"src/**"}, cfg.Import.Include)
	assert.Len(t, cfg.Import.Exclude, 2)
	assert.Equal(t, "127.0.0.1:9464", cfg.Server.MetricsAddr)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, 1000, cfg.Import.CommitEvery)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Server.MetricsAddr)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvStorePath, "/tmp/override")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvMetricsAddr, ":9000")
	t.Setenv(EnvWorkers, "3")

	path := writeConfig(t, `
[store]
path = "from-file"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9000", cfg.Server.MetricsAddr)
	assert.Equal(t, 3, cfg.Import.Workers)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"malformed toml", "[store\npath = 1"},
		{"negative workers", "[import]\nworkers = -1"},
		{"negative commit interval", "[import]\ncommit_every = -5"},
		{"unknown level", "[log]\nlevel = \"loud\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
