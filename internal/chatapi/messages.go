package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// GetMessages returns a page of history, newest first. A zero BeforeID
// requests the most recent page; otherwise the page strictly precedes it.
func (c *Client) GetMessages(ctx context.Context, roomID chat.RoomID, q chat.PageQuery) ([]chat.Message, error) {
	query := url.Values{}
	if q.BeforeID > 0 {
		query.Set("beforeId", q.BeforeID.String())
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}

	var msgs []chat.Message
	path := fmt.Sprintf("/api/chat/rooms/%d/messages", roomID)
	if err := c.doJSON(ctx, "get messages", http.MethodGet, path, query, &msgs); err != nil {
		return nil, err
	}

	// The REST payload may omit the room; the caller relies on it to route.
	for i := range msgs {
		if msgs[i].RoomID == 0 {
			msgs[i].RoomID = roomID
		}
	}

	return msgs, nil
}
