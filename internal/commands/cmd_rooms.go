package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/printer"
	"github.com/hay-kot/huddle/internal/styles"
)

type RoomsCmd struct {
	flags  *Flags
	format string
	peer   int64
	yes    bool
}

// NewRoomsCmd creates a new rooms command.
func NewRoomsCmd(flags *Flags) *RoomsCmd {
	return &RoomsCmd{flags: flags}
}

// Register adds the rooms commands to the application.
func (cmd *RoomsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "rooms",
		Usage: "List, create, and leave rooms",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Aliases:   []string{"list"},
				Usage:     "List your rooms with their latest message",
				UsageText: "huddle rooms ls [options]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       formatText,
						Destination: &cmd.format,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "create",
				Usage:     "Open a direct room with another user",
				UsageText: "huddle rooms create [--peer <user-id>]",
				Description: `Creates the direct room between you and a peer, or returns the existing
one. Prompts for the peer when --peer is not given and stdin is a terminal.`,
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:        "peer",
						Aliases:     []string{"p"},
						Usage:       "user id of the other participant",
						Destination: &cmd.peer,
					},
				},
				Action: cmd.runCreate,
			},
			{
				Name:      "leave",
				Usage:     "Leave a room",
				UsageText: "huddle rooms leave [--yes] <room-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip confirmation",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runLeave,
			},
		},
	})

	return app
}

func (cmd *RoomsCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := checkFormat(cmd.format); err != nil {
		return err
	}

	rooms, err := cmd.flags.Client.LoadDirectory(ctx, cmd.flags.Identity())
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}

	w := c.Root().Writer

	if cmd.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rooms == nil {
			rooms = []chat.Room{}
		}
		return enc.Encode(rooms)
	}

	if len(rooms) == 0 {
		printer.Ctx(ctx).Infof("No rooms yet. Create one with 'huddle rooms create'.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ROOM\tPEER\tLAST\tMESSAGE")
	for _, r := range rooms {
		peer := "-"
		if r.HasPeer() {
			peer = r.PeerID.String()
		}
		last := "-"
		if !r.LastTime.IsZero() {
			last = messageClock(r.LastTime)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.RoomID, peer, last, preview(r.LastText, 48))
	}

	return tw.Flush()
}

func (cmd *RoomsCmd) runCreate(ctx context.Context, c *cli.Command) error {
	me := cmd.flags.Identity()
	peer := chat.UserID(cmd.peer)

	if peer == 0 {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--peer is required when not running in a terminal")
		}

		var raw string
		err := huh.NewInput().
			Title("Peer user id").
			Validate(func(s string) error {
				_, err := chat.ParseUserID(s)
				return err
			}).
			Value(&raw).
			WithTheme(styles.FormTheme()).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}

		peer, err = chat.ParseUserID(raw)
		if err != nil {
			return err
		}
	}

	if peer < 0 {
		return fmt.Errorf("invalid peer id %d", peer)
	}

	room, err := cmd.flags.Client.CreateDirectRoom(ctx, me, peer)
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	log.Debug().Int64("room_id", int64(room.RoomID)).Str("chat_key", room.ChatKey).Msg("direct room ready")
	printer.Ctx(ctx).Successf("Room %d with user %d", room.RoomID, peer)
	return nil
}

func (cmd *RoomsCmd) runLeave(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one room id")
	}

	roomID, err := chat.ParseRoomID(c.Args().First())
	if err != nil {
		return err
	}

	if !cmd.yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("refusing to leave room %d without --yes", roomID)
		}

		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Leave room %d?", roomID)).
			Description("The room is deleted when its last member leaves.").
			Affirmative("Leave").
			Negative("Cancel").
			Value(&confirmed).
			WithTheme(styles.FormTheme()).
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	me := cmd.flags.Identity()
	p := printer.Ctx(ctx)

	result, err := cmd.flags.Client.LeaveRoom(ctx, roomID, me)
	if err != nil {
		return fmt.Errorf("leave room: %w", err)
	}

	if cmd.flags.State != nil {
		if err := cmd.flags.State.ForgetRoom(ctx, me, roomID); err != nil {
			log.Warn().Err(err).Msg("failed to update client state")
		}
	}

	switch {
	case result.RoomRemoved:
		p.Successf("Left room %d (room removed)", roomID)
	case result.Left:
		p.Successf("Left room %d", roomID)
	default:
		p.Warnf("Not a member of room %d", roomID)
	}

	return nil
}

// preview shortens a message to n runes for table output.
func preview(s string, n int) string {
	if s == "" {
		return "-"
	}
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' {
			r[i] = ' '
		}
	}
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

