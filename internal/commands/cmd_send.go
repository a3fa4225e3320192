package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/core/validate"
	"github.com/hay-kot/huddle/internal/printer"
)

type SendCmd struct {
	flags *Flags
	file  string
}

// NewSendCmd creates a new send command.
func NewSendCmd(flags *Flags) *SendCmd {
	return &SendCmd{flags: flags}
}

// Register adds the send command to the application.
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "send",
		Usage:     "Post a message to a session",
		UsageText: "huddle send <session> [message...]",
		Description: `Posts a message as the current account and notifies open views.

The message can be provided as:
- Command-line arguments
- From a file with -f/--file
- From stdin if no message argument is provided

Examples:
  huddle send standup "blocked on review"
  echo "deploy done" | huddle send ops
  huddle send ops -f notes.md`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "read message from file",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	args := c.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("session required\n\nUsage: huddle send <session> [message...]")
	}
	sessionID := args[0]

	var text string
	switch {
	case len(args) > 1:
		text = strings.Join(args[1:], " ")
	case cmd.file != "":
		data, err := os.ReadFile(cmd.file)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimRight(text, "\n")

	if err := validate.MessageText(text); err != nil {
		return err
	}

	ctrl := cmd.flags.newController(sessionID)
	if err := ctrl.Attach(ctx); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer ctrl.Detach()

	if _, err := ctrl.SendMessage(ctx, text); err != nil {
		return err
	}

	p.Success("Message sent", sessionID)
	return nil
}
