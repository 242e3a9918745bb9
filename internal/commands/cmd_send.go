package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/live"
	"github.com/hay-kot/huddle/internal/printer"
)

const maxStdinMessage = 64 << 10

type SendCmd struct {
	flags *Flags
	wait  bool
}

// NewSendCmd creates a new send command.
func NewSendCmd(flags *Flags) *SendCmd {
	return &SendCmd{flags: flags}
}

// Register adds the send command to the application.
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Send a message to a room",
		UsageText: "huddle send [options] <room-id> [message...]",
		Description: `Publishes a message over the live channel.

The message is taken from the remaining arguments, or read from stdin when
none are given and stdin is not a terminal:

  echo "deploy finished" | huddle send 42`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "wait",
				Aliases:     []string{"w"},
				Usage:       "wait until the server echoes the message back",
				Destination: &cmd.wait,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("expected a room id")
	}

	roomID, err := chat.ParseRoomID(args[0])
	if err != nil {
		return err
	}

	content, err := readMessage(args[1:], os.Stdin, term.IsTerminal(int(os.Stdin.Fd())))
	if err != nil {
		return err
	}

	var (
		me      = cmd.flags.Identity()
		timeout = cmd.flags.Config.Server.Timeout
		mgr     = cmd.flags.NewManager()
	)

	// Subscribing before connect means the echo cannot be missed.
	if cmd.wait {
		mgr.SwitchActiveRoom(roomID)
	}

	session := startLive(ctx, mgr)
	defer session.stop()

	ready := func() bool { return !cmd.wait || mgr.SubscribedRoom() == roomID }
	if err := session.waitConnected(ctx, timeout, ready); err != nil {
		return err
	}

	if err := mgr.Send(roomID, me, content); err != nil {
		return err
	}

	p := printer.Ctx(ctx)

	if !cmd.wait {
		p.Successf("Sent to room %d", roomID)
		return nil
	}

	msg, err := waitForEcho(ctx, mgr.Events(), roomID, me, content, timeout)
	if err != nil {
		return err
	}

	p.Successf("Delivered to room %d (message %d)", roomID, msg.ID)
	return nil
}

// readMessage joins args into the message, falling back to stdin when it is
// piped. Surrounding whitespace is trimmed; an empty message is an error.
func readMessage(args []string, stdin io.Reader, isTerminal bool) (string, error) {
	var content string

	switch {
	case len(args) > 0:
		content = strings.Join(args, " ")
	case !isTerminal:
		data, err := io.ReadAll(io.LimitReader(stdin, maxStdinMessage))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		content = string(data)
	default:
		return "", fmt.Errorf("no message given")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("message is empty")
	}
	return content, nil
}

// waitForEcho reads events until the server delivers our own message back.
func waitForEcho(ctx context.Context, events <-chan live.Event, roomID chat.RoomID, me chat.UserID, content string, timeout time.Duration) (chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return chat.Message{}, fmt.Errorf("no delivery confirmation after %s", timeout)
		case ev, ok := <-events:
			if !ok {
				return chat.Message{}, fmt.Errorf("live channel closed")
			}

			switch ev := ev.(type) {
			case live.MessageEvent:
				msg := ev.Message
				if msg.RoomID == roomID && msg.SenderID == me && msg.Content == content {
					return msg, nil
				}
			case live.StatusEvent:
				if ev.Err != nil {
					log.Debug().Err(ev.Err).Msg("live channel status")
				}
			}
		}
	}
}
