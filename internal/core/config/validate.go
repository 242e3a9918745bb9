package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hay-kot/criterio"
)

const maxPageSize = 500

// Warning is a non-fatal configuration issue.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks that the configuration is usable. Errors are returned as
// criterio.FieldErrors keyed by their YAML path.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("cannot be empty"))
	}

	if err := checkURL(c.Server.BaseURL, "http", "https"); err != nil {
		errs = errs.Append("server.base_url", err)
	}
	if err := checkURL(c.Server.WSURL, "ws", "wss"); err != nil {
		errs = errs.Append("server.ws_url", err)
	}
	if c.Server.Timeout < 0 {
		errs = errs.Append("server.timeout", fmt.Errorf("must not be negative"))
	}

	if c.Identity.Me < 0 {
		errs = errs.Append("identity.me", fmt.Errorf("must be a positive user id"))
	}

	if c.Live.ReconnectDelay <= 0 {
		errs = errs.Append("live.reconnect_delay", fmt.Errorf("must be positive"))
	}
	switch c.Live.ReconnectStrategy {
	case StrategyConstant, StrategyExponential:
	default:
		errs = errs.Append("live.reconnect_strategy",
			fmt.Errorf("unknown strategy %q (want %s or %s)", c.Live.ReconnectStrategy, StrategyConstant, StrategyExponential))
	}
	if c.Live.HeartBeat < 0 {
		errs = errs.Append("live.heartbeat", fmt.Errorf("must not be negative"))
	}
	if !strings.HasPrefix(c.Live.TopicPrefix, "/") || !strings.HasSuffix(c.Live.TopicPrefix, "/") {
		errs = errs.Append("live.topic_prefix", fmt.Errorf("must start and end with /"))
	}
	if !strings.HasPrefix(c.Live.SendPrefix, "/") || !strings.HasSuffix(c.Live.SendPrefix, "/") {
		errs = errs.Append("live.send_prefix", fmt.Errorf("must start and end with /"))
	}

	if c.History.PageSize < 1 || c.History.PageSize > maxPageSize {
		errs = errs.Append("history.page_size", fmt.Errorf("must be between 1 and %d", maxPageSize))
	}

	return errs.ToError()
}

// Warnings returns issues that do not prevent the client from running.
func (c *Config) Warnings() []Warning {
	var warnings []Warning

	if c.Identity.Me == 0 {
		warnings = append(warnings, Warning{
			Field:   "identity.me",
			Message: fmt.Sprintf("not set, acting as placeholder user %d", c.Me()),
		})
	}
	if c.Live.HeartBeat == 0 {
		warnings = append(warnings, Warning{
			Field:   "live.heartbeat",
			Message: "heart-beats disabled, dead connections are only noticed on the next write",
		})
	}
	if u, err := url.Parse(c.Server.BaseURL); err == nil && u.Scheme == "http" && !isLocal(u.Hostname()) {
		warnings = append(warnings, Warning{
			Field:   "server.base_url",
			Message: "plain http to a remote host",
		})
	}

	return warnings
}

func checkURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("missing host")
			}
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %s", strings.Join(schemes, ", "))
}

func isLocal(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
