package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/tui"
)

type ViewCmd struct {
	flags *Flags
}

// NewViewCmd creates a new view command
func NewViewCmd(flags *Flags) *ViewCmd {
	return &ViewCmd{flags: flags}
}

// Register adds the view command to the application
func (cmd *ViewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "view",
		Usage:     "Open a session in the interactive chat view",
		UsageText: "huddle view <session>",
		Description: `Attaches to a session and shows its transcript, refreshing whenever
another participant posts.

Keys:
  enter       send the message
  ctrl+r      refresh now
  tab         cycle through participants
  ctrl+o      show the session details
  pgup/pgdown scroll the transcript
  ctrl+c      quit`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ViewCmd) run(ctx context.Context, c *cli.Command) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session required\n\nUsage: huddle view <session>")
	}

	ctrl := cmd.flags.newController(sessionID)
	if err := ctrl.Attach(ctx); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer ctrl.Detach()

	p := tea.NewProgram(tui.New(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
