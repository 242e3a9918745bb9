// Package config handles configuration loading and validation for huddle.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Reconnect strategies for the live channel.
const (
	StrategyConstant    = "constant"
	StrategyExponential = "exponential"
)

// wsPath is the STOMP-over-WebSocket endpoint served next to the REST API.
const wsPath = "/ws-chat/websocket"

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Identity IdentityConfig `yaml:"identity"`
	Live     LiveConfig     `yaml:"live"`
	History  HistoryConfig  `yaml:"history"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	BaseURL string        `yaml:"base_url"`
	WSURL   string        `yaml:"ws_url"` // derived from base_url when empty
	Timeout time.Duration `yaml:"timeout"`
}

// IdentityConfig holds the user the client acts as.
type IdentityConfig struct {
	// Me is the current user id. Zero falls back to chat.PlaceholderUser.
	Me int64 `yaml:"me"`
}

// LiveConfig tunes the realtime channel.
type LiveConfig struct {
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ReconnectStrategy string        `yaml:"reconnect_strategy"`
	HeartBeat         time.Duration `yaml:"heartbeat"`
	TopicPrefix       string        `yaml:"topic_prefix"`
	SendPrefix        string        `yaml:"send_prefix"`
}

// HistoryConfig tunes history paging.
type HistoryConfig struct {
	PageSize int `yaml:"page_size"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Live: LiveConfig{
			ReconnectDelay:    2 * time.Second,
			ReconnectStrategy: StrategyConstant,
			HeartBeat:         10 * time.Second,
			TopicPrefix:       "/topic/rooms/",
			SendPrefix:        "/app/rooms/",
		},
		History: HistoryConfig{
			PageSize: chat.DefaultPageSize,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.WSURL == "" {
		c.Server.WSURL = DeriveWSURL(c.Server.BaseURL)
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = defaults.Server.Timeout
	}
	if c.Live.ReconnectDelay == 0 {
		c.Live.ReconnectDelay = defaults.Live.ReconnectDelay
	}
	if c.Live.ReconnectStrategy == "" {
		c.Live.ReconnectStrategy = defaults.Live.ReconnectStrategy
	}
	if c.Live.TopicPrefix == "" {
		c.Live.TopicPrefix = defaults.Live.TopicPrefix
	}
	if c.Live.SendPrefix == "" {
		c.Live.SendPrefix = defaults.Live.SendPrefix
	}
	if c.History.PageSize == 0 {
		c.History.PageSize = defaults.History.PageSize
	}
}

// DeriveWSURL maps an http(s) base URL to the live endpoint on the same
// host. Returns "" when the base URL cannot be parsed.
func DeriveWSURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return ""
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + wsPath
	u.RawQuery = ""
	return u.String()
}

// Me returns the configured user id, or the placeholder user when unset.
func (c *Config) Me() chat.UserID {
	if c.Identity.Me <= 0 {
		return chat.PlaceholderUser
	}
	return chat.UserID(c.Identity.Me)
}

// StateFile returns the path to the client state JSON file.
func (c *Config) StateFile() string {
	return filepath.Join(c.DataDir, "state.json")
}

// Override applies command line overrides on top of the loaded file and
// validates the result. A new server resets the live endpoint to the one
// derived from it.
func (c *Config) Override(server string, me int64) error {
	if server != "" {
		c.Server.BaseURL = strings.TrimRight(server, "/")
		c.Server.WSURL = DeriveWSURL(c.Server.BaseURL)
	}
	if me != 0 {
		c.Identity.Me = me
	}
	return c.Validate()
}
