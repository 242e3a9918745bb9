package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors for chat operations.
var (
	// ErrNetwork matches any *NetworkError.
	ErrNetwork = errors.New("network error")
	// ErrNotConnected is returned when a publish is attempted while the live
	// channel is down. The message is not queued.
	ErrNotConnected = errors.New("live channel not connected")
	// ErrSubscription is reported when a topic subscription fails. It is
	// transient and cleared by the next reconnect cycle.
	ErrSubscription = errors.New("subscription failed")
)

// NetworkError describes a non-success REST response.
type NetworkError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *NetworkError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrNetwork) match.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
