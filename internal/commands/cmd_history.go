package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
)

type HistoryCmd struct {
	flags  *Flags
	before int64
	size   int
	all    bool
	render bool
	format string
}

// NewHistoryCmd creates a new history command.
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application.
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "Print the message history of a room",
		UsageText: "huddle history [options] <room-id>",
		Description: `Prints messages of a room oldest first.

By default the most recent page is printed. Use --before to page from an
older message id, or --all to walk back to the start of the room.`,
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "before",
				Usage:       "only messages older than this message id",
				Destination: &cmd.before,
			},
			&cli.IntFlag{
				Name:        "size",
				Aliases:     []string{"n"},
				Usage:       "page size (defaults to history.page_size)",
				Destination: &cmd.size,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "page back through the entire history",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "render",
				Usage:       "render the transcript as markdown",
				Destination: &cmd.render,
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

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
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
	if cmd.before < 0 {
		return fmt.Errorf("--before must be positive")
	}

	size := cmd.size
	if size <= 0 {
		size = cmd.flags.Config.History.PageSize
	}

	msgs, err := fetchHistory(ctx, cmd.flags.Client, roomID, chat.PageQuery{
		BeforeID: chat.MessageID(cmd.before),
		Size:     size,
	}, cmd.all)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	w := c.Root().Writer
	me := cmd.flags.Identity()

	if cmd.render && cmd.format == formatText {
		width := defaultRenderWidth
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = tw
			}
		}

		out, err := renderTranscript(roomID, msgs, me, width)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	}

	return writeMessages(w, msgs, me, cmd.format)
}
