package doctor

import (
	"context"
	"time"

	"github.com/hay-kot/huddle/internal/live"
)

// liveTimeout bounds the handshake attempt.
const liveTimeout = 10 * time.Second

// LiveCheck verifies the realtime endpoint completes a session handshake.
type LiveCheck struct {
	dialer live.Dialer
	url    string
}

// NewLiveCheck creates a check that dials the live endpoint once.
func NewLiveCheck(dialer live.Dialer, url string) *LiveCheck {
	return &LiveCheck{dialer: dialer, url: url}
}

func (c *LiveCheck) Name() string {
	return "Live Channel"
}

func (c *LiveCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	ctx, cancel := context.WithTimeout(ctx, liveTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.url,
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}
	_ = conn.Close()

	result.Items = append(result.Items, CheckItem{
		Label:  c.url,
		Status: StatusPass,
		Detail: "handshake ok",
	})
	return result
}
