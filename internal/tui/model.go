package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/roomlist"
	"github.com/hay-kot/huddle/internal/core/timeline"
	"github.com/hay-kot/huddle/internal/live"
	"github.com/hay-kot/huddle/internal/styles"
)

// UIState represents the current state of the TUI.
type UIState int

const (
	stateNormal UIState = iota
	stateComposing
	stateFiltering
	stateCreatingRoom
	stateConfirmingLeave
)

// Key constants for event handling.
const (
	keyEnter = "enter"
	keyEsc   = "esc"
	keyCtrlC = "ctrl+c"
)

// Backend is the REST side of the chat service.
type Backend interface {
	chat.Directory
	chat.History
	// LoadDirectory lists rooms with a preview of each room's newest message.
	LoadDirectory(ctx context.Context, me chat.UserID) ([]chat.Room, error)
}

// Live is the realtime side of the chat service.
type Live interface {
	Events() <-chan live.Event
	State() live.State
	SwitchActiveRoom(roomID chat.RoomID)
	Send(roomID chat.RoomID, senderID chat.UserID, content string) error
}

// StateStore remembers the last open room between runs.
type StateStore interface {
	LastRoom(ctx context.Context, me chat.UserID) (chat.RoomID, error)
	SetLastRoom(ctx context.Context, me chat.UserID, roomID chat.RoomID) error
	ForgetRoom(ctx context.Context, me chat.UserID, roomID chat.RoomID) error
}

// Options configures the TUI.
type Options struct {
	Me       chat.UserID
	PageSize int
	Store    StateStore // optional
	Log      zerolog.Logger
}

// createRoomForm holds the huh form used to pick a peer. The bound value
// lives behind a pointer so it survives Model copies.
type createRoomForm struct {
	form *huh.Form
	peer string
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	backend Backend
	live    Live
	store   StateStore
	me      chat.UserID
	log     zerolog.Logger

	rooms    *roomlist.Model
	timeline *timeline.Model

	state      UIState
	keys       keyMap
	help       help.Model
	viewport   viewport.Model
	input      textinput.Model
	filter     textinput.Model
	spinner    spinner.Model
	modal      Modal
	createForm *createRoomForm
	leaving    chat.RoomID

	conn       live.State
	loading    bool // directory request in flight
	notice     string
	noticeErr  bool
	noticeSeq  int
	width      int
	height     int
	followTail bool
	quitting   bool
}

// New creates the TUI model.
func New(backend Backend, l Live, opts Options) Model {
	me := opts.Me
	if me == 0 {
		me = chat.PlaceholderUser
	}

	input := textinput.New()
	input.Placeholder = "Write a message…"
	input.Prompt = "› "
	input.CharLimit = 2000

	filter := textinput.New()
	filter.Placeholder = "room, peer or text"
	filter.Prompt = "/ "

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		backend:    backend,
		live:       l,
		store:      opts.Store,
		me:         me,
		log:        opts.Log,
		rooms:      roomlist.New(),
		timeline:   timeline.New(opts.PageSize),
		keys:       defaultKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(0, 0),
		input:      input,
		filter:     filter,
		spinner:    s,
		conn:       l.State(),
		loading:    true,
		followTail: true,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadDirectory(m.backend, m.store, m.me),
		listenForEvents(m.live.Events()),
		m.spinner.Tick,
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case directoryLoadedMsg:
		return m.handleDirectory(msg)

	case pageLoadedMsg:
		return m.handlePage(msg)

	case roomCreatedMsg:
		if msg.err != nil {
			return m.setError("create room", msg.err)
		}
		room := msg.room.Room()
		m.rooms.Merge(room)

		var cmd, notice tea.Cmd
		m, cmd = m.activate(room.RoomID)
		m, notice = m.setNotice(fmt.Sprintf("opened %s", room.Title()))
		return m, tea.Batch(cmd, notice)

	case roomLeftMsg:
		return m.handleLeft(msg)

	case sentMsg:
		if msg.err != nil {
			if m.input.Value() == "" {
				m.input.SetValue(msg.content)
			}
			if errors.Is(msg.err, chat.ErrNotConnected) {
				return m.setError("send", fmt.Errorf("not connected, message not sent"))
			}
			return m.setError("send", msg.err)
		}
		return m, nil

	case liveEventMsg:
		var cmd tea.Cmd
		m, cmd = m.handleLiveEvent(msg.event)
		return m, tea.Batch(cmd, listenForEvents(m.live.Events()))

	case liveClosedMsg:
		m.conn = live.StateDisconnected
		return m, nil

	case noticeClearMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonWheelUp {
			return m.scroll(-3)
		}
		if msg.Button == tea.MouseButtonWheelDown {
			return m.scroll(3)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Route everything else (cursor blink, form internals) to the focused
	// component.
	var cmd tea.Cmd
	switch m.state {
	case stateCreatingRoom:
		if m.createForm != nil {
			return m.updateCreateForm(msg)
		}
	case stateComposing:
		m.input, cmd = m.input.Update(msg)
	case stateFiltering:
		m.filter, cmd = m.filter.Update(msg)
	}

	return m, cmd
}

func (m Model) handleDirectory(msg directoryLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		return m.setError("load rooms", msg.err)
	}

	before := m.rooms.Active()
	m.rooms.Replace(msg.rooms)
	if before == 0 && msg.preferred != 0 {
		m.rooms.Select(msg.preferred)
	}

	after := m.rooms.Active()
	if after == before && after != 0 {
		return m, nil
	}

	m, cmd := m.activate(after)
	return m, cmd
}

func (m Model) handlePage(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if !m.timeline.FailPage(msg.ticket) {
			return m, nil
		}
		return m.setError("load history", msg.err)
	}

	linesBefore := m.viewport.TotalLineCount()
	offsetBefore := m.viewport.YOffset

	if !m.timeline.ApplyPage(msg.ticket, msg.page, msg.older) {
		m.log.Debug().Int64("room_id", int64(msg.ticket.RoomID)).Msg("discarding stale page")
		return m, nil
	}

	m.renderTimeline()
	if msg.older {
		// Keep the same message under the cursor after prepending.
		m.viewport.SetYOffset(offsetBefore + m.viewport.TotalLineCount() - linesBefore)
	} else {
		m.viewport.GotoBottom()
		m.followTail = true
	}

	return m, nil
}

func (m Model) handleLeft(msg roomLeftMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.setError("leave room", msg.err)
	}

	title := fmt.Sprintf("Room #%d", msg.roomID)
	if r, ok := m.rooms.Get(msg.roomID); ok {
		title = r.Title()
	}

	wasActive := m.rooms.Active() == msg.roomID
	m.rooms.Remove(msg.roomID)

	cmds := []tea.Cmd{forgetRoom(m.store, m.me, msg.roomID)}
	if wasActive {
		var cmd tea.Cmd
		m, cmd = m.activate(m.rooms.Active())
		cmds = append(cmds, cmd)
	}

	text := "left " + title
	if msg.result.RoomRemoved {
		text += ", room closed"
	}
	m, notice := m.setNotice(text)
	cmds = append(cmds, notice)

	return m, tea.Batch(cmds...)
}

func (m Model) handleLiveEvent(ev live.Event) (Model, tea.Cmd) {
	switch ev := ev.(type) {
	case live.MessageEvent:
		m.rooms.ApplyMessage(ev.Message)
		if m.timeline.Append(ev.Message) {
			atBottom := m.followTail || m.viewport.AtBottom()
			m.renderTimeline()
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		return m, nil

	case live.StatusEvent:
		m.conn = ev.State
		if ev.Err != nil && ev.State == live.StateDisconnected {
			m.log.Debug().Err(ev.Err).Msg("live channel down")
			return m.setErrorNotice(fmt.Sprintf("connection lost: %v", ev.Err))
		}
		return m, nil

	case live.SubscriptionErrorEvent:
		return m.setErrorNotice(fmt.Sprintf("live updates unavailable for room %d", ev.RoomID))
	}

	return m, nil
}

// activate makes roomID the active room everywhere: selection, live
// subscription, and timeline. Zero clears all three.
func (m Model) activate(roomID chat.RoomID) (Model, tea.Cmd) {
	if roomID != 0 {
		m.rooms.Select(roomID)
	}
	m.live.SwitchActiveRoom(roomID)

	q, ok := m.timeline.Activate(roomID)
	m.renderTimeline()
	m.followTail = true

	if !ok {
		return m, nil
	}

	return m, tea.Batch(
		loadPage(m.backend, m.timeline.Ticket(), q, false),
		rememberRoom(m.store, m.me, roomID),
	)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	switch m.state {
	case stateCreatingRoom:
		return m.handleCreateFormKey(msg, keyStr)
	case stateConfirmingLeave:
		return m.handleConfirmModalKey(keyStr)
	case stateComposing:
		return m.handleComposeKey(msg, keyStr)
	case stateFiltering:
		return m.handleFilterKey(msg, keyStr)
	}

	return m.handleNormalKey(msg)
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		return m.moveSelection(-1)

	case key.Matches(msg, m.keys.Down):
		return m.moveSelection(1)

	case key.Matches(msg, m.keys.Compose):
		if m.rooms.Active() == 0 {
			return m, nil
		}
		m.state = stateComposing
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Filter):
		m.state = stateFiltering
		m.filter.SetValue(m.rooms.Query())
		m.filter.CursorEnd()
		return m, m.filter.Focus()

	case key.Matches(msg, m.keys.Create):
		return m.openCreateForm()

	case key.Matches(msg, m.keys.Leave):
		room, ok := m.rooms.ActiveRoom()
		if !ok {
			return m, nil
		}
		m.leaving = room.RoomID
		m.modal = NewModal("Leave room", fmt.Sprintf("Leave %s? History stays on the server.", room.Title()))
		m.state = stateConfirmingLeave
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, loadDirectory(m.backend, m.store, m.me)

	case key.Matches(msg, m.keys.PageUp):
		return m.scroll(-m.viewport.Height / 2)

	case key.Matches(msg, m.keys.PageDown):
		return m.scroll(m.viewport.Height / 2)
	}

	return m, nil
}

func (m Model) handleComposeKey(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	switch {
	case keyStr == keyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case keyStr == keyEsc:
		m.state = stateNormal
		m.input.Blur()
		return m, nil
	case keyStr == keyEnter:
		content := strings.TrimSpace(m.input.Value())
		roomID := m.rooms.Active()
		if content == "" || roomID == 0 {
			return m, nil
		}
		m.input.Reset()
		m.followTail = true
		return m, sendMessage(m.live, roomID, m.me, content)
	case key.Matches(msg, m.keys.PageUp):
		return m.scroll(-m.viewport.Height / 2)
	case key.Matches(msg, m.keys.PageDown):
		return m.scroll(m.viewport.Height / 2)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case keyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case keyEsc:
		m.filter.Reset()
		m.rooms.SetQuery("")
		m.filter.Blur()
		m.state = stateNormal
		return m, nil
	case keyEnter:
		m.filter.Blur()
		m.state = stateNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.rooms.SetQuery(m.filter.Value())
	return m, cmd
}

// handleConfirmModalKey handles keys when the leave confirmation is shown.
func (m Model) handleConfirmModalKey(keyStr string) (tea.Model, tea.Cmd) {
	switch keyStr {
	case keyEnter:
		m.state = stateNormal
		roomID := m.leaving
		m.leaving = 0
		if m.modal.ConfirmSelected() && roomID != 0 {
			return m, leaveRoom(m.backend, roomID, m.me)
		}
		return m, nil
	case keyEsc, "n":
		m.state = stateNormal
		m.leaving = 0
		return m, nil
	case "left", "right", "h", "l", "tab":
		m.modal.ToggleSelection()
		return m, nil
	case keyCtrlC:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) openCreateForm() (tea.Model, tea.Cmd) {
	f := &createRoomForm{}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start a direct room").
				Description("User id of the person to chat with").
				Placeholder("2002").
				Value(&f.peer).
				Validate(func(s string) error {
					return validatePeer(s, m.me)
				}),
		),
	).WithShowHelp(false).WithTheme(styles.FormTheme())

	m.createForm = f
	m.state = stateCreatingRoom
	return m, f.form.Init()
}

// handleCreateFormKey handles keys when the new room form is shown.
func (m Model) handleCreateFormKey(msg tea.KeyMsg, keyStr string) (tea.Model, tea.Cmd) {
	if keyStr == keyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}
	if keyStr == keyEsc {
		m.state = stateNormal
		m.createForm = nil
		return m, nil
	}
	return m.updateCreateForm(msg)
}

// updateCreateForm routes a message to the form and handles completion.
func (m Model) updateCreateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.createForm.form.Update(msg)
	f, ok := model.(*huh.Form)
	if !ok {
		return m, cmd
	}
	m.createForm.form = f

	switch f.State {
	case huh.StateCompleted:
		peer, err := chat.ParseUserID(m.createForm.peer)
		m.state = stateNormal
		m.createForm = nil
		if err != nil {
			return m.setError("create room", err)
		}
		return m, createRoom(m.backend, m.me, peer)
	case huh.StateAborted:
		m.state = stateNormal
		m.createForm = nil
		return m, nil
	}

	return m, cmd
}

// validatePeer checks a peer id entered by the user.
func validatePeer(s string, me chat.UserID) error {
	peer, err := chat.ParseUserID(s)
	if err != nil {
		return err
	}
	if peer == me {
		return fmt.Errorf("that is you")
	}
	return nil
}

// moveSelection selects the neighbouring room in the filtered list.
func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	visible := m.rooms.Filtered()
	if len(visible) == 0 {
		return m, nil
	}

	idx := -1
	for i, r := range visible {
		if r.RoomID == m.rooms.Active() {
			idx = i
			break
		}
	}

	next := idx + delta
	if idx < 0 {
		next = 0
	}
	next = max(0, min(len(visible)-1, next))

	target := visible[next].RoomID
	if target == m.rooms.Active() {
		return m, nil
	}
	m, cmd := m.activate(target)
	return m, cmd
}

// scroll moves the timeline and requests older history when the top is
// reached.
func (m Model) scroll(delta int) (tea.Model, tea.Cmd) {
	if delta == 0 {
		delta = -1
	}
	m.viewport.SetYOffset(m.viewport.YOffset + delta)
	m.followTail = m.viewport.AtBottom()

	if delta > 0 || !timeline.NearTop(m.viewport.YOffset) {
		return m, nil
	}

	q, ok := m.timeline.LoadMoreQuery()
	if !ok {
		return m, nil
	}
	return m, loadPage(m.backend, m.timeline.Ticket(), q, true)
}

func (m Model) setNotice(text string) (Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = false
	return m, scheduleNoticeClear(m.noticeSeq)
}

func (m Model) setErrorNotice(text string) (Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = true
	return m, scheduleNoticeClear(m.noticeSeq)
}

func (m Model) setError(op string, err error) (tea.Model, tea.Cmd) {
	m.log.Warn().Err(err).Str("op", op).Msg("request failed")
	return m.setErrorNotice(fmt.Sprintf("%s: %v", op, err))
}

// Quitting reports whether the user asked to quit.
func (m Model) Quitting() bool {
	return m.quitting
}
