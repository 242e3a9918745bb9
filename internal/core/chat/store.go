package chat

import "context"

// Directory lists, creates and leaves rooms for a user.
type Directory interface {
	// ListMyRooms returns the rooms the user is a member of.
	ListMyRooms(ctx context.Context, me UserID) ([]Room, error)
	// CreateDirectRoom creates the direct room for a pair of users, or returns
	// the existing one. Safe to call repeatedly.
	CreateDirectRoom(ctx context.Context, userA, userB UserID) (DirectRoom, error)
	// LeaveRoom removes the user's membership of a room.
	LeaveRoom(ctx context.Context, roomID RoomID, me UserID) (LeaveResult, error)
}

// History pages backward through a room's messages.
type History interface {
	// GetMessages returns a page of messages, newest first. An empty page
	// means there is no more history before the cursor.
	GetMessages(ctx context.Context, roomID RoomID, q PageQuery) ([]Message, error)
}

// Reverse returns a copy of msgs in reverse order. Used to turn a
// newest-first page into oldest-first.
func Reverse(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
