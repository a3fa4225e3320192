package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/notify"
	"github.com/hay-kot/huddle/internal/relay"
	"github.com/hay-kot/huddle/internal/sessionview"
	"github.com/hay-kot/huddle/internal/store/jsonfile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Token      string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Stores are opened in the Before hook from Config
	Stores *Stores
}

// Stores bundles the file-backed services a command talks to.
type Stores struct {
	Accounts *jsonfile.AccountStore
	Sessions *jsonfile.SessionStore
	Messages *jsonfile.MessageStore
	Images   *jsonfile.ImageStore
}

// OpenStores builds the stores rooted at the configured data directory.
func OpenStores(cfg *config.Config) *Stores {
	var (
		accounts = jsonfile.NewAccountStore(cfg.AccountsFile())
		sessions = jsonfile.NewSessionStore(cfg.SessionsFile())
	)

	return &Stores{
		Accounts: accounts,
		Sessions: sessions,
		Messages: jsonfile.NewMessageStore(cfg.TranscriptsDir(), accounts, sessions),
		Images:   jsonfile.NewImageStore(cfg.ImagesDir()),
	}
}

// token returns the --token flag, falling back to the config file.
func (f *Flags) token() string {
	if f.Token != "" {
		return f.Token
	}
	return f.Config.Token
}

// dialer returns the relay dialer, or nil when push updates are disabled.
func (f *Flags) dialer() notify.Dialer {
	if f.Config.Relay.URL == "" {
		return nil
	}
	return relay.NewDialer(f.Config.Relay.URL, log.With().Str("component", "relay").Logger())
}

// newController builds an unattached view of sessionID for the current token.
func (f *Flags) newController(sessionID string) *sessionview.Controller {
	deps := sessionview.Deps{
		Accounts: f.Stores.Accounts,
		Sessions: f.Stores.Sessions,
		Messages: f.Stores.Messages,
		Images:   f.Stores.Images,
		Dialer:   f.dialer(),
	}

	opts := sessionview.Options{
		Token:            f.token(),
		SessionID:        sessionID,
		FetchTimeout:     f.Config.Sync.FetchTimeout,
		ImageWorkers:     f.Config.Sync.ImageWorkers,
		PreferImageCache: f.Config.Sync.PreferImageCache,
		PollInterval:     f.Config.Sync.PollInterval,
	}

	logger := log.With().Str("component", "view").Str("session", sessionID).Logger()
	return sessionview.New(deps, logger, opts)
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "huddle", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "huddle")
}
