package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/validate"
	"github.com/hay-kot/huddle/internal/printer"
)

type AccountCmd struct {
	flags *Flags
	image string
}

// NewAccountCmd creates a new account command.
func NewAccountCmd(flags *Flags) *AccountCmd {
	return &AccountCmd{flags: flags}
}

// Register adds the account command to the application.
func (cmd *AccountCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "account",
		Usage: "Manage local accounts and profile images",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register an account and print its token",
				UsageText: "huddle account add <email> [--image <path>]",
				Description: `Registers an account and prints a new token for it. Pass the token with
--token, HUDDLE_TOKEN or the token key of the config file.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "image",
						Usage:       "profile image file to upload",
						Destination: &cmd.image,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "whoami",
				Usage:     "Print the account behind the current token",
				UsageText: "huddle account whoami",
				Action:    cmd.runWhoami,
			},
			{
				Name:      "set-image",
				Usage:     "Set the profile image of the current account",
				UsageText: "huddle account set-image <path>",
				Action:    cmd.runSetImage,
			},
		},
	})

	return app
}

func (cmd *AccountCmd) runAdd(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	email := c.Args().First()
	if err := validate.Email(email); err != nil {
		return err
	}
	id := chat.ParticipantID(email)

	token, err := cmd.flags.Stores.Accounts.Add(ctx, id)
	if err != nil {
		return fmt.Errorf("add account: %w", err)
	}

	if cmd.image != "" {
		if err := cmd.setImage(ctx, id, cmd.image); err != nil {
			return err
		}
	}

	p.Success("Account created", email)
	_, _ = fmt.Fprintln(c.Root().Writer, token)
	return nil
}

func (cmd *AccountCmd) runWhoami(ctx context.Context, c *cli.Command) error {
	id, err := cmd.flags.Stores.Accounts.Whoami(ctx, cmd.flags.token())
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, id)
	return nil
}

func (cmd *AccountCmd) runSetImage(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("image path required\n\nUsage: huddle account set-image <path>")
	}

	id, err := cmd.flags.Stores.Accounts.Whoami(ctx, cmd.flags.token())
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}

	if err := cmd.setImage(ctx, id, path); err != nil {
		return err
	}

	p.Success("Profile image updated", id.String())
	return nil
}

func (cmd *AccountCmd) setImage(ctx context.Context, id chat.ParticipantID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if err := cmd.flags.Stores.Images.SetProfileImage(ctx, id, data); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}
