// Package chat defines the direct-messaging domain types shared by the
// REST clients, the live session and the view-models.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID identifies a portal user.
type UserID int64

// RoomID identifies a chat room. Zero means "no room".
type RoomID int64

// MessageID identifies a message. IDs increase monotonically within the
// service and double as the history pagination cursor.
type MessageID int64

// PlaceholderUser is used when no identity was supplied.
const PlaceholderUser UserID = 1001

// ParseUserID parses a positive decimal user id.
func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return UserID(id), nil
}

// ParseRoomID parses a positive decimal room id.
func ParseRoomID(s string) (RoomID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", s)
	}
	return RoomID(id), nil
}

func (id UserID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id RoomID) String() string    { return strconv.FormatInt(int64(id), 10) }
func (id MessageID) String() string { return strconv.FormatInt(int64(id), 10) }

// Room is a directory entry. LastText and LastTime are a denormalized
// preview of the newest message known for the room.
type Room struct {
	RoomID   RoomID    `json:"roomId"`
	PeerID   UserID    `json:"peerId,omitempty"`
	LastText string    `json:"lastText,omitempty"`
	LastTime Timestamp `json:"lastTime,omitempty"`
}

// HasPeer reports whether the room names another participant.
func (r Room) HasPeer() bool {
	return r.PeerID != 0
}

// Title returns the label shown for the room in lists and headers.
func (r Room) Title() string {
	if r.HasPeer() {
		return fmt.Sprintf("Peer %d", r.PeerID)
	}
	return fmt.Sprintf("Room #%d", r.RoomID)
}

// Message is a single chat message. Messages are immutable once created.
type Message struct {
	ID       MessageID `json:"id"`
	RoomID   RoomID    `json:"roomId,omitempty"`
	SenderID UserID    `json:"senderId"`
	Content  string    `json:"content"`
	Time     Timestamp `json:"time"`
}

// DirectRoom is returned when a direct room is created or fetched.
type DirectRoom struct {
	RoomID    RoomID    `json:"roomId"`
	ChatKey   string    `json:"chatKey,omitempty"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	PeerID    UserID    `json:"peerId,omitempty"`
}

// Room converts the response into a directory entry with an empty preview.
// LastTime stays zero until a message arrives.
func (d DirectRoom) Room() Room {
	return Room{RoomID: d.RoomID, PeerID: d.PeerID}
}

// LeaveResult is returned when the current user leaves a room.
type LeaveResult struct {
	Left        bool `json:"left"`
	RoomRemoved bool `json:"roomRemoved"`
}

// OutboundMessage is the body published to a room's send destination.
type OutboundMessage struct {
	SenderID UserID `json:"senderId"`
	Content  string `json:"content"`
}

// PageQuery selects a page of history. A zero BeforeID requests the most
// recent page.
type PageQuery struct {
	BeforeID MessageID
	Size     int
}

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 50

// Timestamp is a message or room time. The service serializes local
// date-times without a zone; RFC 3339 values are accepted as well.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses any of the layouts the service is known to emit.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("parse timestamp %q: unknown layout", s)
}

// UnmarshalJSON accepts null, a date-time string, or epoch milliseconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("parse timestamp %s: %w", data, err)
		}
		*t = Timestamp{Time: time.UnixMilli(ms)}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON writes the zero value as null and everything else as RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
