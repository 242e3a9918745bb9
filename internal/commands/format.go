package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/styles"
)

const (
	formatText = "text"
	formatJSON = "json"

	defaultRenderWidth = 80
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

// messageLine formats a message as a single transcript line.
func messageLine(msg chat.Message, me chat.UserID) string {
	sender := msg.SenderID.String()
	if msg.SenderID == me {
		sender = styles.OwnSenderStyle.Render("you")
	} else {
		sender = styles.SenderStyle.Render(sender)
	}

	return fmt.Sprintf("%s %s: %s", styles.MutedStyle.Render(messageClock(msg.Time)), sender, msg.Content)
}

func messageClock(ts chat.Timestamp) string {
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

// roomBanner is the heading printed before streaming a room.
func roomBanner(roomID chat.RoomID, width int) string {
	if width <= 0 {
		width = defaultRenderWidth
	}
	title := styles.RoomStyle.Render(fmt.Sprintf("Room #%d", roomID))
	return title + "\n" + styles.DividerStyle.Render(strings.Repeat("─", min(width, 40)))
}

// writeMessages prints messages oldest first, as text lines or one JSON
// object per line.
func writeMessages(w io.Writer, msgs []chat.Message, me chat.UserID, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		for _, msg := range msgs {
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
		return nil
	}

	for _, msg := range msgs {
		if _, err := fmt.Fprintln(w, messageLine(msg, me)); err != nil {
			return err
		}
	}
	return nil
}

// transcriptMarkdown builds a markdown transcript of a room for glamour.
func transcriptMarkdown(roomID chat.RoomID, msgs []chat.Message, me chat.UserID) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Room #%d\n\n", roomID)

	if len(msgs) == 0 {
		b.WriteString("_No messages yet._\n")
		return b.String()
	}

	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}

		sender := "User " + msg.SenderID.String()
		if msg.SenderID == me {
			sender = "You"
		}
		fmt.Fprintf(&b, "**%s** · _%s_\n\n%s\n", sender, messageClock(msg.Time), msg.Content)
	}

	return b.String()
}

// renderTranscript renders a transcript with the shared glamour style.
func renderTranscript(roomID chat.RoomID, msgs []chat.Message, me chat.UserID, width int) (string, error) {
	if width <= 0 {
		width = defaultRenderWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styles.GlamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}

	out, err := r.Render(transcriptMarkdown(roomID, msgs, me))
	if err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}
	return out, nil
}
