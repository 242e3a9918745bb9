package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/tui"
)

type TuiCmd struct {
	flags *Flags
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{flags: flags}
}

// Register adds the tui command to the application
func (cmd *TuiCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "tui",
		Usage: "Open the interactive chat client",
		Description: `Opens the chat client with your rooms on the left and the
selected conversation on the right. This is also the default when huddle is
run without a command.`,
		Action: cmd.Run,
	})

	return app
}

// Run starts the live session and the interactive UI. It is also the
// default action when no subcommand is given.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := cmd.flags.NewManager()
	session := startLive(ctx, mgr)
	defer session.stop()

	var store tui.StateStore
	if cmd.flags.State != nil {
		store = cmd.flags.State
	}

	model := tui.New(cmd.flags.Client, mgr, tui.Options{
		Me:       cmd.flags.Identity(),
		PageSize: cmd.flags.Config.History.PageSize,
		Store:    store,
		Log:      log.With().Str("component", "tui").Logger(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
