// Package timeline holds the message timeline view-model for the active
// room: an oldest-first buffer built from history pages and live messages.
//
// A Model is owned by a single goroutine (the UI loop) and is not safe for
// concurrent use.
package timeline

import (
	"slices"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// nearTopLines is how close to the top of the scroll region the viewer must
// be before older history is requested.
const nearTopLines = 1

// Ticket identifies one visit to a room. Every page request carries the
// ticket current when it was made; a page whose ticket no longer matches is
// stale, even when the user has come back to the same room since.
type Ticket struct {
	RoomID chat.RoomID
	visit  uint64
}

// Model is the timeline view-model. Message ids in the buffer are unique.
type Model struct {
	roomID   chat.RoomID
	visit    uint64
	messages []chat.Message
	seen     map[chat.MessageID]struct{}
	pageSize int

	hasMore bool
	loading bool
}

// New creates a Model that requests pages of pageSize messages. A
// non-positive size uses chat.DefaultPageSize.
func New(pageSize int) *Model {
	if pageSize <= 0 {
		pageSize = chat.DefaultPageSize
	}
	return &Model{
		pageSize: pageSize,
		seen:     make(map[chat.MessageID]struct{}),
	}
}

// RoomID returns the room the buffer belongs to, or zero.
func (m *Model) RoomID() chat.RoomID { return m.roomID }

// Messages returns the buffer, oldest first.
func (m *Model) Messages() []chat.Message { return slices.Clone(m.messages) }

// Len returns the number of buffered messages.
func (m *Model) Len() int { return len(m.messages) }

// Loading reports whether a page request is outstanding.
func (m *Model) Loading() bool { return m.loading }

// HasMore reports whether older history may exist.
func (m *Model) HasMore() bool { return m.hasMore }

// PageSize returns the page size used for requests.
func (m *Model) PageSize() int { return m.pageSize }

// Ticket returns the ticket page requests made now must carry.
func (m *Model) Ticket() Ticket { return Ticket{RoomID: m.roomID, visit: m.visit} }

// Activate discards the buffer and returns the request for the newest page of
// roomID. Activating zero clears the timeline and returns false.
func (m *Model) Activate(roomID chat.RoomID) (chat.PageQuery, bool) {
	m.roomID = roomID
	m.visit++
	m.messages = nil
	m.seen = make(map[chat.MessageID]struct{})
	m.hasMore = false
	m.loading = false

	if roomID == 0 {
		return chat.PageQuery{}, false
	}

	m.hasMore = true
	m.loading = true
	return chat.PageQuery{Size: m.pageSize}, true
}

// ApplyPage applies a history page as returned by the server (newest first).
// Pages requested under another ticket are discarded and false is returned.
// The initial page replaces the buffer, keeping live messages that are newer
// than the page; older pages are prepended.
func (m *Model) ApplyPage(t Ticket, page []chat.Message, older bool) bool {
	if !m.current(t) {
		return false
	}

	m.loading = false
	if len(page) < m.pageSize {
		m.hasMore = false
	}

	chunk := make([]chat.Message, 0, len(page))
	inPage := make(map[chat.MessageID]struct{}, len(page))
	for _, msg := range chat.Reverse(page) {
		if _, dup := inPage[msg.ID]; dup {
			continue
		}
		if _, dup := m.seen[msg.ID]; dup && older {
			continue
		}
		inPage[msg.ID] = struct{}{}
		chunk = append(chunk, msg)
	}

	if older {
		m.messages = append(chunk, m.messages...)
		m.index()
		return true
	}

	var newest chat.MessageID
	for _, msg := range chunk {
		newest = max(newest, msg.ID)
	}
	for _, msg := range m.messages {
		if _, dup := inPage[msg.ID]; dup || msg.ID < newest {
			continue
		}
		chunk = append(chunk, msg)
	}

	m.messages = chunk
	m.index()
	return true
}

// FailPage clears the loading flag after a failed request so the next
// scroll can retry. Failures under a stale ticket are ignored and false is
// returned.
func (m *Model) FailPage(t Ticket) bool {
	if !m.current(t) {
		return false
	}
	m.loading = false
	return true
}

func (m *Model) current(t Ticket) bool {
	return t.RoomID != 0 && t.RoomID == m.roomID && t.visit == m.visit
}

// CanLoadMore reports whether an older page may be requested now.
func (m *Model) CanLoadMore() bool {
	return m.roomID != 0 && m.hasMore && !m.loading && len(m.messages) > 0
}

// LoadMoreQuery returns the request for the page before the oldest buffered
// message and marks the model as loading. Returns false when no request
// should be made.
func (m *Model) LoadMoreQuery() (chat.PageQuery, bool) {
	if !m.CanLoadMore() {
		return chat.PageQuery{}, false
	}
	m.loading = true
	return chat.PageQuery{BeforeID: m.messages[0].ID, Size: m.pageSize}, true
}

// Append adds a live message to the end of the buffer. Messages for another
// room or already buffered are dropped and false is returned.
func (m *Model) Append(msg chat.Message) bool {
	if m.roomID == 0 || msg.RoomID != m.roomID {
		return false
	}
	if _, dup := m.seen[msg.ID]; dup {
		return false
	}
	m.seen[msg.ID] = struct{}{}
	m.messages = append(m.messages, msg)
	return true
}

// NearTop reports whether a scroll offset (in lines from the top) is close
// enough to the top to request older history.
func NearTop(offset int) bool {
	return offset <= nearTopLines
}

func (m *Model) index() {
	m.seen = make(map[chat.MessageID]struct{}, len(m.messages))
	for _, msg := range m.messages {
		m.seen[msg.ID] = struct{}{}
	}
}
