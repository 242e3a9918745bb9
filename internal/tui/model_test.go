package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/live"
)

type fakeBackend struct {
	mu       sync.Mutex
	rooms    []chat.Room
	pages    map[chat.RoomID][]chat.Message // newest first
	queries  []chat.PageQuery
	leaveErr error
	left     []chat.RoomID
}

func (b *fakeBackend) ListMyRooms(ctx context.Context, me chat.UserID) ([]chat.Room, error) {
	return append([]chat.Room(nil), b.rooms...), nil
}

func (b *fakeBackend) LoadDirectory(ctx context.Context, me chat.UserID) ([]chat.Room, error) {
	return b.ListMyRooms(ctx, me)
}

func (b *fakeBackend) CreateDirectRoom(ctx context.Context, userA, userB chat.UserID) (chat.DirectRoom, error) {
	return chat.DirectRoom{RoomID: 99, PeerID: userB}, nil
}

func (b *fakeBackend) LeaveRoom(ctx context.Context, roomID chat.RoomID, me chat.UserID) (chat.LeaveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.leaveErr != nil {
		return chat.LeaveResult{}, b.leaveErr
	}
	b.left = append(b.left, roomID)
	return chat.LeaveResult{Left: true}, nil
}

func (b *fakeBackend) GetMessages(ctx context.Context, roomID chat.RoomID, q chat.PageQuery) ([]chat.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q)

	var out []chat.Message
	for _, m := range b.pages[roomID] {
		if q.BeforeID != 0 && m.ID >= q.BeforeID {
			continue
		}
		out = append(out, m)
		if len(out) == q.Size {
			break
		}
	}
	return out, nil
}

type fakeLive struct {
	events   chan live.Event
	switches []chat.RoomID
	sent     []string
	sendErr  error
}

func newFakeLive() *fakeLive {
	return &fakeLive{events: make(chan live.Event, 8)}
}

func (l *fakeLive) Events() <-chan live.Event { return l.events }
func (l *fakeLive) State() live.State         { return live.StateConnected }

func (l *fakeLive) SwitchActiveRoom(roomID chat.RoomID) {
	l.switches = append(l.switches, roomID)
}

func (l *fakeLive) Send(roomID chat.RoomID, senderID chat.UserID, content string) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, content)
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	last      chat.RoomID
	forgotten []chat.RoomID
}

func (s *fakeStore) LastRoom(ctx context.Context, me chat.UserID) (chat.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, nil
}

func (s *fakeStore) SetLastRoom(ctx context.Context, me chat.UserID, roomID chat.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = roomID
	return nil
}

func (s *fakeStore) ForgetRoom(ctx context.Context, me chat.UserID, roomID chat.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, roomID)
	if s.last == roomID {
		s.last = 0
	}
	return nil
}

func msgs(room chat.RoomID, ids ...chat.MessageID) []chat.Message {
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		out[i] = chat.Message{ID: id, RoomID: room, SenderID: 2002, Content: "m" + id.String()}
	}
	return out
}

func newTestModel(t *testing.T, backend *fakeBackend, l *fakeLive, store StateStore) Model {
	t.Helper()
	m := New(backend, l, Options{Me: 1001, Store: store, Log: zerolog.Nop()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model)
}

// drain runs cmd and feeds every resulting message back into the model
// until no work is left.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for len(pending) > 0 {
		results := runCmds(pending)
		pending = nil
		for _, msg := range results {
			next, c := m.Update(msg)
			m = next.(Model)
			pending = append(pending, c)
		}
	}
	return m
}

// runCmds runs cmds concurrently and returns the messages of those that
// finish promptly. Commands that wait on the live channel or on timers are
// abandoned, as are the messages they would produce.
func runCmds(cmds []tea.Cmd) []tea.Msg {
	out := make(chan tea.Msg, 64)
	var wg sync.WaitGroup

	var run func(c tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, bc := range batch {
					run(bc)
				}
				return
			}
			out <- msg
		}()
	}
	for _, c := range cmds {
		run(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var msgs []tea.Msg
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case msg := <-out:
			switch msg.(type) {
			case nil, noticeClearMsg, liveEventMsg, liveClosedMsg:
			default:
				msgs = append(msgs, msg)
			}
		case <-done:
			for {
				select {
				case msg := <-out:
					switch msg.(type) {
					case nil, noticeClearMsg, liveEventMsg, liveClosedMsg:
					default:
						msgs = append(msgs, msg)
					}
				default:
					return msgs
				}
			}
		case <-deadline:
			return msgs
		}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return drain(t, next.(Model), cmd)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func ids(messages []chat.Message) []chat.MessageID {
	out := make([]chat.MessageID, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestModel_LoadsDirectoryAndActivatesFirstRoom(t *testing.T) {
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1, PeerID: 2002}, {RoomID: 2, PeerID: 3003}},
		pages: map[chat.RoomID][]chat.Message{1: msgs(1, 10, 9)},
	}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)

	m = update(t, m, loadDirectory(backend, nil, 1001)())

	assert.Equal(t, chat.RoomID(1), m.rooms.Active())
	assert.Equal(t, []chat.RoomID{1}, l.switches)
	assert.Equal(t, []chat.MessageID{9, 10}, ids(m.timeline.Messages()))
	assert.Equal(t, []chat.PageQuery{{Size: chat.DefaultPageSize}}, backend.queries)
}

func TestModel_PrefersRememberedRoom(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}, {RoomID: 2}}}
	store := &fakeStore{last: 2}
	l := newFakeLive()
	m := newTestModel(t, backend, l, store)

	m = update(t, m, loadDirectory(backend, store, 1001)())

	assert.Equal(t, chat.RoomID(2), m.rooms.Active())
	assert.Equal(t, []chat.RoomID{2}, l.switches)
}

func TestModel_LiveMessageAppendsAndUpdatesPreview(t *testing.T) {
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1, PeerID: 2002}, {RoomID: 2, PeerID: 3003}},
		pages: map[chat.RoomID][]chat.Message{1: msgs(1, 10, 9)},
	}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, liveEventMsg{event: live.MessageEvent{Message: chat.Message{ID: 11, RoomID: 1, Content: "hi"}}})
	assert.Equal(t, []chat.MessageID{9, 10, 11}, ids(m.timeline.Messages()))

	// Duplicate delivery is ignored.
	m = update(t, m, liveEventMsg{event: live.MessageEvent{Message: chat.Message{ID: 11, RoomID: 1, Content: "hi"}}})
	assert.Len(t, m.timeline.Messages(), 3)

	// Another room's message only touches its preview.
	m = update(t, m, liveEventMsg{event: live.MessageEvent{Message: chat.Message{ID: 50, RoomID: 2, Content: "psst"}}})
	assert.Len(t, m.timeline.Messages(), 3)
	r, _ := m.rooms.Get(2)
	assert.Equal(t, "psst", r.LastText)
}

func TestModel_SwitchRoomDiscardsStalePage(t *testing.T) {
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1}, {RoomID: 2}},
		pages: map[chat.RoomID][]chat.Message{1: msgs(1, 5), 2: msgs(2, 8, 7)},
	}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())
	first := m.timeline.Ticket()

	m = update(t, m, keyPress("down"))
	require.Equal(t, chat.RoomID(2), m.rooms.Active())
	assert.Equal(t, []chat.RoomID{1, 2}, l.switches)

	// A late response for room 1 must not land in room 2's timeline.
	m = update(t, m, pageLoadedMsg{ticket: first, page: msgs(1, 5)})
	assert.Equal(t, []chat.MessageID{7, 8}, ids(m.timeline.Messages()))
}

func TestModel_SendClearsInputAndRestoresOnFailure(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}}}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, keyPress("enter"))
	require.Equal(t, stateComposing, m.state)

	m = update(t, m, keyPress("hello"))
	m = update(t, m, keyPress("enter"))
	assert.Equal(t, []string{"hello"}, l.sent)
	assert.Empty(t, m.input.Value())

	l.sendErr = chat.ErrNotConnected
	m = update(t, m, keyPress("again"))
	m = update(t, m, keyPress("enter"))
	assert.Equal(t, "again", m.input.Value(), "unsent text is restored")
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "not connected")
}

func TestModel_LeaveActiveRoomSelectsNext(t *testing.T) {
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1}, {RoomID: 2}},
		pages: map[chat.RoomID][]chat.Message{1: msgs(1, 5), 2: msgs(2, 8)},
	}
	store := &fakeStore{}
	l := newFakeLive()
	m := newTestModel(t, backend, l, store)
	m = update(t, m, loadDirectory(backend, store, 1001)())

	m = update(t, m, keyPress("x"))
	require.Equal(t, stateConfirmingLeave, m.state)
	m = update(t, m, keyPress("enter"))

	assert.Equal(t, []chat.RoomID{1}, backend.left)
	_, present := m.rooms.Get(1)
	assert.False(t, present)
	assert.Equal(t, chat.RoomID(2), m.rooms.Active())
	assert.Equal(t, chat.RoomID(2), m.timeline.RoomID())
	assert.Equal(t, []chat.MessageID{8}, ids(m.timeline.Messages()))
	assert.Equal(t, []chat.RoomID{1, 2}, l.switches)
	assert.Equal(t, []chat.RoomID{1}, store.forgotten)
}

func TestModel_LeaveLastRoomClearsEverything(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}}}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, roomLeftMsg{roomID: 1, result: chat.LeaveResult{Left: true, RoomRemoved: true}})

	assert.Equal(t, chat.RoomID(0), m.rooms.Active())
	assert.Equal(t, chat.RoomID(0), m.timeline.RoomID())
	assert.Equal(t, []chat.RoomID{1, 0}, l.switches)
	assert.Contains(t, m.notice, "room closed")
}

func TestModel_LeaveFailureKeepsState(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}}, leaveErr: errors.New("boom")}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, keyPress("x"))
	m = update(t, m, keyPress("enter"))

	assert.Equal(t, chat.RoomID(1), m.rooms.Active())
	assert.True(t, m.noticeErr)
}

func TestModel_LeaveCancelled(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}}}
	m := newTestModel(t, backend, newFakeLive(), nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, keyPress("x"))
	m = update(t, m, keyPress("esc"))

	assert.Equal(t, stateNormal, m.state)
	assert.Empty(t, backend.left)
}

func TestModel_CreatedRoomIsMergedAndActivated(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{{RoomID: 1}}}
	l := newFakeLive()
	m := newTestModel(t, backend, l, nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, roomCreatedMsg{room: chat.DirectRoom{RoomID: 99, PeerID: 2002}})
	m = update(t, m, roomCreatedMsg{room: chat.DirectRoom{RoomID: 99, PeerID: 2002}})

	assert.Equal(t, 2, m.rooms.Len(), "repeat create does not duplicate")
	assert.Equal(t, chat.RoomID(99), m.rooms.Active())
	assert.Equal(t, chat.RoomID(99), l.switches[len(l.switches)-1])
}

func TestModel_FilterNarrowsNavigation(t *testing.T) {
	backend := &fakeBackend{rooms: []chat.Room{
		{RoomID: 1, LastText: "lunch?"},
		{RoomID: 2, LastText: "report"},
		{RoomID: 3, LastText: "more lunch"},
	}}
	m := newTestModel(t, backend, newFakeLive(), nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())

	m = update(t, m, keyPress("/"))
	require.Equal(t, stateFiltering, m.state)
	m = update(t, m, keyPress("lunch"))
	m = update(t, m, keyPress("enter"))

	assert.Equal(t, "lunch", m.rooms.Query())

	m = update(t, m, keyPress("down"))
	assert.Equal(t, chat.RoomID(3), m.rooms.Active(), "room 2 is filtered out")
}

func TestModel_ScrollToTopLoadsOlderHistory(t *testing.T) {
	var page []chat.Message
	for id := chat.MessageID(120); id >= 1; id-- {
		page = append(page, chat.Message{ID: id, RoomID: 1, SenderID: 2002, Content: "x"})
	}
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1}},
		pages: map[chat.RoomID][]chat.Message{1: page},
	}
	m := newTestModel(t, backend, newFakeLive(), nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())
	require.Equal(t, 50, m.timeline.Len())

	m.viewport.SetYOffset(0)
	m = update(t, m, keyPress("pgup"))

	assert.Equal(t, 100, m.timeline.Len())
	assert.Equal(t, chat.PageQuery{BeforeID: 71, Size: 50}, backend.queries[1])
	assert.Positive(t, m.viewport.YOffset, "scroll position kept after prepend")
}

func TestModel_OlderPageFromEarlierVisitDiscarded(t *testing.T) {
	var page []chat.Message
	for id := chat.MessageID(120); id >= 1; id-- {
		page = append(page, chat.Message{ID: id, RoomID: 1, SenderID: 2002, Content: "x"})
	}
	backend := &fakeBackend{
		rooms: []chat.Room{{RoomID: 1}, {RoomID: 2}},
		pages: map[chat.RoomID][]chat.Message{1: page, 2: msgs(2, 8, 7)},
	}
	m := newTestModel(t, backend, newFakeLive(), nil)
	m = update(t, m, loadDirectory(backend, nil, 1001)())
	require.Equal(t, 50, m.timeline.Len())

	// Ask for older history but hold the response back.
	m.viewport.SetYOffset(0)
	next, olderCmd := m.Update(keyPress("pgup"))
	m = next.(Model)
	held := runCmds([]tea.Cmd{olderCmd})
	require.Len(t, held, 1)

	// Room 1 -> 2 -> 1, with the new first page still in flight.
	m = update(t, m, keyPress("down"))
	require.Equal(t, chat.RoomID(2), m.rooms.Active())
	next, firstCmd := m.Update(keyPress("up"))
	m = next.(Model)
	require.Equal(t, chat.RoomID(1), m.rooms.Active())

	for _, msg := range held {
		m = update(t, m, msg)
	}
	assert.Equal(t, 0, m.timeline.Len(), "held page belongs to the earlier visit")
	assert.True(t, m.timeline.Loading())

	m = drain(t, m, firstCmd)
	require.Equal(t, 50, m.timeline.Len())

	m.viewport.SetYOffset(0)
	m = update(t, m, keyPress("pgup"))

	got := ids(m.timeline.Messages())
	require.Len(t, got, 100)
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1]+1, got[i], "gap in timeline at %d", i)
	}
	assert.Equal(t, chat.MessageID(21), got[0])
}

func TestModel_StatusEvents(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, newFakeLive(), nil)

	m = update(t, m, liveEventMsg{event: live.StatusEvent{State: live.StateDisconnected, Err: errors.New("eof")}})
	assert.Equal(t, live.StateDisconnected, m.conn)
	assert.True(t, m.noticeErr)

	m = update(t, m, liveEventMsg{event: live.StatusEvent{State: live.StateConnected}})
	assert.Equal(t, live.StateConnected, m.conn)
}

func TestValidatePeer(t *testing.T) {
	assert.NoError(t, validatePeer("2002", 1001))
	assert.Error(t, validatePeer("1001", 1001))
	assert.Error(t, validatePeer("abc", 1001))
}
