package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/live"
	"github.com/hay-kot/huddle/internal/printer"
)

type TailCmd struct {
	flags   *Flags
	history int
	format  string
}

// NewTailCmd creates a new tail command.
func NewTailCmd(flags *Flags) *TailCmd {
	return &TailCmd{flags: flags}
}

// Register adds the tail command to the application.
func (cmd *TailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tail",
		Usage:     "Stream new messages of a room",
		UsageText: "huddle tail [options] <room-id>",
		Description: `Subscribes to a room and prints messages as they arrive until
interrupted. Reconnects automatically when the live channel drops.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "history",
				Aliases:     []string{"n"},
				Usage:       "print this many recent messages first",
				Destination: &cmd.history,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       formatText,
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TailCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one room id")
	}
	if err := checkFormat(cmd.format); err != nil {
		return err
	}

	roomID, err := chat.ParseRoomID(c.Args().First())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		w    = c.Root().Writer
		me   = cmd.flags.Identity()
		p    = printer.Ctx(ctx)
		seen = make(map[chat.MessageID]struct{})
	)

	mgr := cmd.flags.NewManager()
	mgr.SwitchActiveRoom(roomID)

	session := startLive(ctx, mgr)
	defer session.stop()

	if cmd.format == formatText {
		_, _ = fmt.Fprintln(w, roomBanner(roomID, defaultRenderWidth))
	}

	if cmd.history > 0 {
		msgs, err := fetchHistory(ctx, cmd.flags.Client, roomID, chat.PageQuery{Size: cmd.history}, false)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		for _, msg := range msgs {
			seen[msg.ID] = struct{}{}
		}
		if err := writeMessages(w, msgs, me, cmd.format); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-mgr.Events():
			if !ok {
				return nil
			}

			switch ev := ev.(type) {
			case live.MessageEvent:
				msg := ev.Message
				if msg.RoomID != roomID {
					continue
				}
				if _, dup := seen[msg.ID]; dup {
					continue
				}
				seen[msg.ID] = struct{}{}

				if err := writeMessages(w, []chat.Message{msg}, me, cmd.format); err != nil {
					return err
				}
			default:
				if cmd.format == formatText {
					reportEvent(p, ev)
				}
			}
		}
	}
}

// reportEvent prints connection and subscription problems. Both are
// transient: the manager reconnects and subscribes again on its own.
func reportEvent(p *printer.Printer, ev live.Event) {
	switch ev := ev.(type) {
	case live.StatusEvent:
		switch {
		case ev.State == live.StateConnected:
			p.Infof("connected")
		case ev.Err != nil:
			p.Warnf("%s: %v", ev.State, ev.Err)
		}
	case live.SubscriptionErrorEvent:
		p.Warnf("%v (retrying on reconnect)", ev.Err)
	}
}
