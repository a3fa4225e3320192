package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), dataDir)
	require.NoError(t, err)

	want := DefaultConfig()
	want.DataDir = dataDir
	assert.Equal(t, &want, cfg)
	assert.Equal(t, filepath.Join(dataDir, "sessions.json"), cfg.SessionsFile())
	assert.Equal(t, filepath.Join(dataDir, "transcripts"), cfg.TranscriptsDir())
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, `
token: abc123
relay:
  url: wss://relay.example.com/ws
sync:
  fetch_timeout: 2s
  prefer_image_cache: false
  poll_interval: 30s
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.Token)
	assert.Equal(t, "wss://relay.example.com/ws", cfg.Relay.URL)
	assert.Equal(t, "127.0.0.1:7420", cfg.Relay.Listen, "unset keys keep defaults")
	assert.Equal(t, 2*time.Second, cfg.Sync.FetchTimeout)
	assert.Equal(t, 4, cfg.Sync.ImageWorkers)
	assert.False(t, cfg.Sync.PreferImageCache)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
}

func TestLoad_ParseError(t *testing.T) {
	path := writeConfig(t, "relay: [not, a, map")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty relay url disables push", mutate: func(c *Config) { c.Relay.URL = "" }},
		{
			name:   "http scheme",
			mutate: func(c *Config) { c.Relay.URL = "http://relay.example.com" },
			fields: []string{"relay.url"},
		},
		{
			name:   "missing host",
			mutate: func(c *Config) { c.Relay.URL = "ws:///ws" },
			fields: []string{"relay.url"},
		},
		{
			name:   "bad listen address",
			mutate: func(c *Config) { c.Relay.Listen = "7420" },
			fields: []string{"relay.listen"},
		},
		{
			name: "several problems at once",
			mutate: func(c *Config) {
				c.DataDir = ""
				c.Sync.ImageWorkers = 0
				c.Sync.FetchTimeout = -time.Second
				c.Sync.PollInterval = -time.Second
			},
			fields: []string{"data_dir", "sync.fetch_timeout", "sync.image_workers", "sync.poll_interval"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)

			got := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				got[i] = fe.Field
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestParse_SkipsValidation(t *testing.T) {
	path := writeConfig(t, "sync:\n  poll_interval: -1s\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)

	cfg, err := Parse(path, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, -time.Second, cfg.Sync.PollInterval)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.Validate(), &fieldErrs)
	assert.Equal(t, "sync.poll_interval", fieldErrs[0].Field)
}
