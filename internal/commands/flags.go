package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/hay-kot/huddle/internal/chatapi"
	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/config"
	"github.com/hay-kot/huddle/internal/live"
	"github.com/hay-kot/huddle/internal/store/jsonfile"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	Server     string
	Me         int64

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Client talks to the chat REST API
	Client *chatapi.Client

	// State remembers per-identity client state
	State *jsonfile.StateStore
}

// Identity returns the user the client acts as.
func (f *Flags) Identity() chat.UserID {
	return f.Config.Me()
}

// NewDialer builds the live channel dialer from config.
func (f *Flags) NewDialer() *live.StompDialer {
	return &live.StompDialer{
		URL:       f.Config.Server.WSURL,
		HeartBeat: f.Config.Live.HeartBeat,
		Log:       log.With().Str("component", "stomp").Logger(),
	}
}

// NewManager builds a live session manager from config. The caller runs
// and closes it.
func (f *Flags) NewManager() *live.Manager {
	cfg := f.Config.Live

	opts := live.Options{
		TopicPrefix:    cfg.TopicPrefix,
		SendPrefix:     cfg.SendPrefix,
		ReconnectDelay: cfg.ReconnectDelay,
	}
	if cfg.ReconnectStrategy == config.StrategyExponential {
		opts.Backoff = live.ExponentialBackOff(cfg.ReconnectDelay)
	}

	return live.NewManager(f.NewDialer(), opts, log.With().Str("component", "live").Logger())
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
