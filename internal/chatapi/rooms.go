package chatapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// previewWorkers bounds concurrent preview fetches in LoadDirectory.
const previewWorkers = 4

// ListMyRooms returns the rooms the user belongs to, without previews.
func (c *Client) ListMyRooms(ctx context.Context, me chat.UserID) ([]chat.Room, error) {
	var rooms []chat.Room
	query := url.Values{"me": {me.String()}}
	if err := c.doJSON(ctx, "list rooms", http.MethodGet, "/api/chat/rooms/my", query, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateDirectRoom creates or fetches the direct room for userA and userB.
// The server is idempotent per pair; when it omits peerId, userB is used.
func (c *Client) CreateDirectRoom(ctx context.Context, userA, userB chat.UserID) (chat.DirectRoom, error) {
	var room chat.DirectRoom
	query := url.Values{
		"userA": {userA.String()},
		"userB": {userB.String()},
	}
	if err := c.doJSON(ctx, "create direct room", http.MethodPost, "/api/chat/rooms/direct", query, &room); err != nil {
		return chat.DirectRoom{}, err
	}
	if room.PeerID == 0 {
		room.PeerID = userB
	}
	return room, nil
}

// LeaveRoom removes the user's membership. The room itself may be deleted
// server-side when the last member leaves (RoomRemoved).
func (c *Client) LeaveRoom(ctx context.Context, roomID chat.RoomID, me chat.UserID) (chat.LeaveResult, error) {
	var result chat.LeaveResult
	path := fmt.Sprintf("/api/chat/rooms/%d/leave", roomID)
	query := url.Values{"me": {me.String()}}
	if err := c.doJSON(ctx, "leave room", http.MethodDelete, path, query, &result); err != nil {
		return chat.LeaveResult{}, err
	}
	return result, nil
}

// LoadDirectory lists the user's rooms and decorates each with a preview of
// its newest message. A failed preview leaves that room's preview empty; a
// failed room list fails the call.
func (c *Client) LoadDirectory(ctx context.Context, me chat.UserID) ([]chat.Room, error) {
	rooms, err := c.ListMyRooms(ctx, me)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(previewWorkers)

	for i := range rooms {
		g.Go(func() error {
			page, err := c.GetMessages(ctx, rooms[i].RoomID, chat.PageQuery{Size: 1})
			if err != nil {
				c.log.Warn().Err(err).Int64("room_id", int64(rooms[i].RoomID)).Msg("preview unavailable")
				return nil
			}
			if len(page) > 0 {
				rooms[i].LastText = page[0].Content
				rooms[i].LastTime = page[0].Time
			}
			return nil
		})
	}

	_ = g.Wait()
	return rooms, nil
}
