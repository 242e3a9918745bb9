package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/timeline"
	"github.com/hay-kot/huddle/internal/live"
)

// requestTimeout bounds every REST call made from the UI.
const requestTimeout = 15 * time.Second

// directoryLoadedMsg is sent when the room directory is loaded.
type directoryLoadedMsg struct {
	rooms     []chat.Room
	preferred chat.RoomID // room open in the previous run, if remembered
	err       error
}

// pageLoadedMsg is sent when a history page arrives.
type pageLoadedMsg struct {
	ticket timeline.Ticket
	page   []chat.Message
	older  bool
	err    error
}

// roomCreatedMsg is sent when a direct room is created or fetched.
type roomCreatedMsg struct {
	room chat.DirectRoom
	err  error
}

// roomLeftMsg is sent when leaving a room completes.
type roomLeftMsg struct {
	roomID chat.RoomID
	result chat.LeaveResult
	err    error
}

// sentMsg is sent after a publish attempt.
type sentMsg struct {
	roomID  chat.RoomID
	content string
	err     error
}

// liveEventMsg wraps an event from the live channel.
type liveEventMsg struct {
	event live.Event
}

// liveClosedMsg is sent when the live event channel closes.
type liveClosedMsg struct{}

// noticeClearMsg clears a notice unless a newer one replaced it.
type noticeClearMsg struct {
	seq int
}

func loadDirectory(backend Backend, store StateStore, me chat.UserID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		rooms, err := backend.LoadDirectory(ctx, me)
		if err != nil {
			return directoryLoadedMsg{err: err}
		}

		var preferred chat.RoomID
		if store != nil {
			// A missing or unreadable state file only loses the preference.
			preferred, _ = store.LastRoom(ctx, me)
		}

		return directoryLoadedMsg{rooms: rooms, preferred: preferred}
	}
}

func loadPage(backend Backend, ticket timeline.Ticket, q chat.PageQuery, older bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		page, err := backend.GetMessages(ctx, ticket.RoomID, q)
		return pageLoadedMsg{ticket: ticket, page: page, older: older, err: err}
	}
}

func createRoom(backend Backend, me, peer chat.UserID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		room, err := backend.CreateDirectRoom(ctx, me, peer)
		return roomCreatedMsg{room: room, err: err}
	}
}

func leaveRoom(backend Backend, roomID chat.RoomID, me chat.UserID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		result, err := backend.LeaveRoom(ctx, roomID, me)
		return roomLeftMsg{roomID: roomID, result: result, err: err}
	}
}

func sendMessage(l Live, roomID chat.RoomID, me chat.UserID, content string) tea.Cmd {
	return func() tea.Msg {
		err := l.Send(roomID, me, content)
		return sentMsg{roomID: roomID, content: content, err: err}
	}
}

// rememberRoom persists the active room. Failures are not surfaced.
func rememberRoom(store StateStore, me chat.UserID, roomID chat.RoomID) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = store.SetLastRoom(ctx, me, roomID)
		return nil
	}
}

// forgetRoom drops a left room from the persisted state.
func forgetRoom(store StateStore, me chat.UserID, roomID chat.RoomID) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = store.ForgetRoom(ctx, me, roomID)
		return nil
	}
}

// listenForEvents waits for the next live event. It is re-issued after
// every event so exactly one listener is outstanding.
func listenForEvents(events <-chan live.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return liveClosedMsg{}
		}
		return liveEventMsg{event: ev}
	}
}

const noticeTTL = 5 * time.Second

func scheduleNoticeClear(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeClearMsg{seq: seq}
	})
}
