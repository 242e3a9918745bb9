package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// ServerCheck verifies the REST API answers for the configured identity.
type ServerCheck struct {
	dir     chat.Directory
	baseURL string
	me      chat.UserID
}

// NewServerCheck creates a check against the room directory endpoint.
func NewServerCheck(dir chat.Directory, baseURL string, me chat.UserID) *ServerCheck {
	return &ServerCheck{dir: dir, baseURL: baseURL, me: me}
}

func (c *ServerCheck) Name() string {
	return "Chat Server"
}

func (c *ServerCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	start := time.Now()
	rooms, err := c.dir.ListMyRooms(ctx, c.me)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  c.baseURL,
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  c.baseURL,
		Status: StatusPass,
		Detail: fmt.Sprintf("%d room(s) in %s", len(rooms), time.Since(start).Round(time.Millisecond)),
	})

	return result
}
