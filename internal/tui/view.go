package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/live"
	"github.com/hay-kot/huddle/internal/styles"
)

const (
	sidebarWidth = 32
	headerHeight = 1
	// input box (3 with border) + notice (1) + help (1)
	footerHeight = 5
	roomHeader   = 1
)

// layout sizes the sub-models after a resize.
func (m *Model) layout() {
	mainWidth := max(10, m.width-sidebarWidth-2)
	bodyHeight := max(3, m.height-headerHeight-footerHeight)

	m.viewport.Width = mainWidth
	m.viewport.Height = max(1, bodyHeight-roomHeader)
	m.input.Width = max(10, mainWidth-6)
	m.filter.Width = sidebarWidth - 4
	m.help.Width = m.width

	m.renderTimeline()
	if m.followTail {
		m.viewport.GotoBottom()
	}
}

// renderTimeline refreshes the viewport content from the timeline.
func (m *Model) renderTimeline() {
	msgs := m.timeline.Messages()
	width := max(10, m.viewport.Width)

	var b strings.Builder
	switch {
	case m.timeline.RoomID() == 0:
		b.WriteString(styles.BannerStyle.Render(styles.Banner))
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("No room selected. Press n to start one."))
	case len(msgs) == 0 && m.timeline.Loading():
		b.WriteString(hintStyle.Render("Loading history…"))
	case len(msgs) == 0:
		b.WriteString(hintStyle.Render("No messages yet. Say hello."))
	default:
		if m.timeline.HasMore() {
			b.WriteString(hintStyle.Render("↑ scroll for older messages"))
			b.WriteString("\n")
		} else {
			b.WriteString(hintStyle.Render("· beginning of conversation ·"))
			b.WriteString("\n")
		}
		for i, msg := range msgs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(renderMessage(msg, m.me, width))
		}
	}

	m.viewport.SetContent(b.String())
}

func renderMessage(msg chat.Message, me chat.UserID, width int) string {
	sender := peerSenderStyle.Render(fmt.Sprintf("%d", msg.SenderID))
	if msg.SenderID == me {
		sender = ownSenderStyle.Render("you")
	}

	head := timeStyle.Render(formatClock(msg.Time)) + " " + sender
	body := contentStyle.Width(max(10, width-2)).Render(msg.Content)

	return head + "\n" + lipgloss.NewStyle().PaddingLeft(2).Render(body)
}

// formatClock renders a timestamp compactly: time of day for today, date
// otherwise.
func formatClock(ts chat.Timestamp) string {
	if ts.IsZero() {
		return "--:--"
	}
	t := ts.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("Jan 2 15:04")
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return m.spinner.View() + " starting…"
	}

	switch m.state {
	case stateConfirmingLeave:
		return m.modal.Render(m.width, m.height)
	case stateCreatingRoom:
		if m.createForm != nil {
			box := modalStyle.Render(m.createForm.form.View() + "\n" + modalHelpStyle.Render("enter confirm  esc cancel"))
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderMain())

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	left := titleStyle.Render("huddle") + " " + previewStyle.Render(fmt.Sprintf("as %d", m.me))
	right := renderConn(m.conn)

	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-1)
	return left + strings.Repeat(" ", gap) + right
}

func renderConn(s live.State) string {
	switch s {
	case live.StateConnected:
		return connectedStyle.Render(iconDot + " live")
	case live.StateConnecting:
		return connectingStyle.Render(iconDot + " connecting")
	default:
		return disconnectedStyle.Render(iconDot + " offline")
	}
}

func (m Model) renderSidebar() string {
	height := max(3, m.height-headerHeight-footerHeight)
	inner := sidebarWidth - 2

	var lines []string
	if m.state == stateFiltering || m.rooms.Query() != "" {
		lines = append(lines, m.filter.View())
	}

	rooms := m.rooms.Filtered()
	switch {
	case m.loading && m.rooms.Len() == 0:
		lines = append(lines, m.spinner.View()+" loading rooms")
	case len(rooms) == 0 && m.rooms.Query() != "":
		lines = append(lines, hintStyle.Render("no matches"))
	case len(rooms) == 0:
		lines = append(lines, hintStyle.Render("no rooms yet"))
	}

	// Two lines per room; keep the active room visible.
	capacity := max(1, (height-len(lines))/2)
	start := 0
	for i, r := range rooms {
		if r.RoomID == m.rooms.Active() && i >= capacity {
			start = i - capacity + 1
		}
	}
	end := min(len(rooms), start+capacity)

	for _, r := range rooms[start:end] {
		lines = append(lines, renderRoom(r, r.RoomID == m.rooms.Active(), inner)...)
	}

	return sidebarStyle.Width(sidebarWidth).Height(height).Render(strings.Join(lines, "\n"))
}

func renderRoom(r chat.Room, active bool, width int) []string {
	title := r.Title()
	preview := r.LastText
	if preview == "" {
		preview = "no messages"
	}
	preview = truncate(strings.ReplaceAll(preview, "\n", " "), width-2)

	if active {
		bar := selectedBorderStyle.Render("┃")
		return []string{
			bar + " " + selectedStyle.Render(truncate(title, width-2)),
			bar + " " + previewStyle.Render(preview),
		}
	}
	return []string{
		"  " + normalStyle.Render(truncate(title, width-2)),
		"  " + previewStyle.Render(preview),
	}
}

func (m Model) renderMain() string {
	header := hintStyle.Render("select a room")
	if r, ok := m.rooms.ActiveRoom(); ok {
		header = titleStyle.Render(r.Title()) + " " + previewStyle.Render(fmt.Sprintf("#%d", r.RoomID))
		if m.timeline.Loading() {
			header += " " + m.spinner.View()
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View())
}

func (m Model) renderFooter() string {
	box := inputBorderStyle
	if m.state == stateComposing {
		box = inputFocusedBorderStyle
	}
	input := box.Width(max(10, m.width-2)).Render(m.input.View())

	notice := ""
	if m.notice != "" {
		if m.noticeErr {
			notice = errorStyle.Render(m.notice)
		} else {
			notice = noticeStyle.Render(m.notice)
		}
	}

	helpView := m.help.View(m.keys)
	if m.state == stateComposing {
		helpView = hintStyle.Render("enter send  esc back  pgup older")
	}

	return lipgloss.JoinVertical(lipgloss.Left, input, notice, helpView)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
