// Package roomlist holds the room directory view-model: the merged room
// collection, its search filter and the active selection.
//
// A Model is owned by a single goroutine (the UI loop) and is not safe for
// concurrent use.
package roomlist

import (
	"slices"
	"strings"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Model is the room list view-model. The active selection always names a
// room present in the directory, or is zero.
type Model struct {
	rooms  []chat.Room
	active chat.RoomID
	query  string
}

// New creates an empty Model.
func New() *Model {
	return &Model{}
}

// Rooms returns all rooms in display order.
func (m *Model) Rooms() []chat.Room {
	return slices.Clone(m.rooms)
}

// Len returns the number of rooms in the directory.
func (m *Model) Len() int {
	return len(m.rooms)
}

// Get returns the room with the given id.
func (m *Model) Get(roomID chat.RoomID) (chat.Room, bool) {
	if i := m.index(roomID); i >= 0 {
		return m.rooms[i], true
	}
	return chat.Room{}, false
}

// Active returns the selected room id, or zero.
func (m *Model) Active() chat.RoomID {
	return m.active
}

// ActiveRoom returns the selected room.
func (m *Model) ActiveRoom() (chat.Room, bool) {
	if m.active == 0 {
		return chat.Room{}, false
	}
	return m.Get(m.active)
}

// Replace swaps in a freshly loaded directory. When the active room is not
// part of it, the first room becomes active. Previews already known locally
// are kept when the new entry has none.
func (m *Model) Replace(rooms []chat.Room) {
	next := make([]chat.Room, 0, len(rooms))
	seen := make(map[chat.RoomID]struct{}, len(rooms))

	for _, r := range rooms {
		if _, dup := seen[r.RoomID]; dup {
			continue
		}
		seen[r.RoomID] = struct{}{}

		if old, ok := m.Get(r.RoomID); ok && r.LastText == "" && r.LastTime.IsZero() {
			r.LastText = old.LastText
			r.LastTime = old.LastTime
		}
		next = append(next, r)
	}

	m.rooms = next
	if m.index(m.active) < 0 {
		m.active = 0
		if len(m.rooms) > 0 {
			m.active = m.rooms[0].RoomID
		}
	}
}

// Merge adds a room to the front of the directory if it is not already
// present. Returns true if the room was added.
func (m *Model) Merge(room chat.Room) bool {
	if m.index(room.RoomID) >= 0 {
		return false
	}
	m.rooms = append([]chat.Room{room}, m.rooms...)
	return true
}

// Select makes roomID the active room. Selecting an unknown room is
// ignored. Returns true when the selection changed.
func (m *Model) Select(roomID chat.RoomID) bool {
	if roomID == m.active || m.index(roomID) < 0 {
		return false
	}
	m.active = roomID
	return true
}

// Remove drops a room. If it was active, the selection moves to the room
// that took its place in the list, or the last room, or is cleared.
func (m *Model) Remove(roomID chat.RoomID) bool {
	i := m.index(roomID)
	if i < 0 {
		return false
	}

	m.rooms = slices.Delete(m.rooms, i, i+1)

	if m.active == roomID {
		switch {
		case len(m.rooms) == 0:
			m.active = 0
		case i < len(m.rooms):
			m.active = m.rooms[i].RoomID
		default:
			m.active = m.rooms[len(m.rooms)-1].RoomID
		}
	}

	return true
}

// ApplyMessage updates the preview of the message's room, whether or not it
// is active. Returns false when the room is not in the directory.
func (m *Model) ApplyMessage(msg chat.Message) bool {
	i := m.index(msg.RoomID)
	if i < 0 {
		return false
	}
	m.rooms[i].LastText = msg.Content
	m.rooms[i].LastTime = msg.Time
	return true
}

// SetQuery sets the search filter.
func (m *Model) SetQuery(q string) {
	m.query = q
}

// Query returns the search filter.
func (m *Model) Query() string {
	return m.query
}

// Filtered returns the rooms matching the search filter.
func (m *Model) Filtered() []chat.Room {
	q := strings.ToLower(strings.TrimSpace(m.query))
	if q == "" {
		return m.Rooms()
	}

	out := make([]chat.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a room matches a lower-cased query on room id,
// peer id, or preview text.
func Matches(r chat.Room, q string) bool {
	if strings.Contains(r.RoomID.String(), q) {
		return true
	}
	if r.HasPeer() && strings.Contains(r.PeerID.String(), q) {
		return true
	}
	return strings.Contains(strings.ToLower(r.LastText), q)
}

func (m *Model) index(roomID chat.RoomID) int {
	if roomID == 0 {
		return -1
	}
	return slices.IndexFunc(m.rooms, func(r chat.Room) bool { return r.RoomID == roomID })
}
