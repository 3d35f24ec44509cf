package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.LogsPath)
	assert.Equal(t, "127.0.0.1:37544", cfg.Address)
	assert.Equal(t, "static", cfg.Content)
	assert.Equal(t, "cache", cfg.Cache)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://vrchat.com/api", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.API.CacheTTL)
	assert.InDelta(t, 1.0, cfg.API.Rate, 1e-9)
}

func TestLoad_FileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := `
logs_path = 'D:\VRChat\Logs'
address = "0.0.0.0:8080"
poll_interval = "250ms"

[api]
max_retries = 5
cache_ttl = "1h"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, `D:\VRChat\Logs`, cfg.LogsPath)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.API.MaxRetries)
	assert.Equal(t, time.Hour, cfg.API.CacheTTL)
	assert.Equal(t, "static", cfg.Content, "unset keys keep their defaults")
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("address = [unterminated"), 0644))

	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`address = "0.0.0.0:1"`), 0644))
	t.Setenv("WHEREAMI_ADDRESS", "127.0.0.1:9999")
	t.Setenv("WHEREAMI_API_MAX_RETRIES", "7")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Address)
	assert.Equal(t, 7, cfg.API.MaxRetries)
}

func TestLoad_ExplicitOverridesViaSet(t *testing.T) {
	t.Chdir(t.TempDir())
	v := New()
	v.Set(KeyLogsPath, "/logs")

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "/logs", cfg.LogsPath)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Address:      "127.0.0.1:1",
			PollInterval: time.Millisecond,
			API:          API{Rate: 1},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty address", func(c *Config) { c.Address = "" }, "address"},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, "poll_interval"},
		{"zero rate", func(c *Config) { c.API.Rate = 0 }, "api.rate"},
		{"negative retries", func(c *Config) { c.API.MaxRetries = -1 }, "api.max_retries"},
		{"negative ttl", func(c *Config) { c.API.CacheTTL = -time.Second }, "api.cache_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestWrite_RoundTrips(t *testing.T) {
	v := New()
	v.Set(KeyAddress, "127.0.0.1:1234")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, v))

	var decoded map[string]any
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:1234", decoded["address"])
	api, ok := decoded["api"].(map[string]any)
	require.True(t, ok, "api table missing")
	assert.Equal(t, "24h", api["cache_ttl"])
}
