// Package config handles configuration loading and validation for huddle.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// Token identifies the local viewer. Usually supplied with --token.
	Token   string      `yaml:"token"`
	Relay   RelayConfig `yaml:"relay"`
	Sync    SyncConfig  `yaml:"sync"`
	DataDir string      `yaml:"-"` // set by caller, not from config file
}

// RelayConfig configures the notification relay.
type RelayConfig struct {
	// URL is the websocket endpoint session views connect to. Empty disables
	// push updates.
	URL string `yaml:"url"`
	// Listen is the address `huddle relay` binds to.
	Listen string `yaml:"listen"`
}

// SyncConfig tunes transcript and image synchronization.
type SyncConfig struct {
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	ImageWorkers     int           `yaml:"image_workers"`
	PreferImageCache bool          `yaml:"prefer_image_cache"`
	// PollInterval makes views refresh on a timer as well as on
	// notifications. Zero disables polling.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Relay: RelayConfig{
			URL:    "ws://127.0.0.1:7420/ws",
			Listen: "127.0.0.1:7420",
		},
		Sync: SyncConfig{
			FetchTimeout:     5 * time.Second,
			ImageWorkers:     4,
			PreferImageCache: true,
		},
	}
}

// Load reads configuration from the given path, sets the data directory and
// validates the result. If configPath is empty or doesn't exist, returns
// defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Parse(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse is Load without validation. Commands that report on configuration
// problems use it so an invalid file still loads.
func Parse(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Sync.FetchTimeout == 0 {
		c.Sync.FetchTimeout = defaults.Sync.FetchTimeout
	}
	if c.Sync.ImageWorkers == 0 {
		c.Sync.ImageWorkers = defaults.Sync.ImageWorkers
	}
	if c.Relay.Listen == "" {
		c.Relay.Listen = defaults.Relay.Listen
	}
}

// Validate checks that the configuration is valid. All problems are reported
// as criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("cannot be empty"))
	}

	if c.Relay.URL != "" {
		u, err := url.Parse(c.Relay.URL)
		switch {
		case err != nil:
			errs = errs.Append("relay.url", err)
		case u.Scheme != "ws" && u.Scheme != "wss":
			errs = errs.Append("relay.url", fmt.Errorf("scheme must be ws or wss, got %q", u.Scheme))
		case u.Host == "":
			errs = errs.Append("relay.url", fmt.Errorf("host is required"))
		}
	}

	if _, _, err := net.SplitHostPort(c.Relay.Listen); err != nil {
		errs = errs.Append("relay.listen", err)
	}

	if c.Sync.FetchTimeout < 0 {
		errs = errs.Append("sync.fetch_timeout", fmt.Errorf("must not be negative"))
	}
	if c.Sync.ImageWorkers < 1 {
		errs = errs.Append("sync.image_workers", fmt.Errorf("must be at least 1"))
	}
	if c.Sync.PollInterval < 0 {
		errs = errs.Append("sync.poll_interval", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}

// SessionsFile returns the path to the sessions JSON file.
func (c *Config) SessionsFile() string {
	return filepath.Join(c.DataDir, "sessions.json")
}

// AccountsFile returns the path to the accounts JSON file.
func (c *Config) AccountsFile() string {
	return filepath.Join(c.DataDir, "accounts.json")
}

// TranscriptsDir returns the directory holding one transcript per session.
func (c *Config) TranscriptsDir() string {
	return filepath.Join(c.DataDir, "transcripts")
}

// ImagesDir returns the directory holding profile images.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.DataDir, "images")
}
