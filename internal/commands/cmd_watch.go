package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/chatsync"
	"github.com/hay-kot/huddle/internal/printer"
	"github.com/hay-kot/huddle/pkg/tmpl"
)

type WatchCmd struct {
	flags    *Flags
	once     bool
	template string
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Stream a session transcript to stdout",
		UsageText: "huddle watch <session> [--once]",
		Description: `Attaches to a session, prints the transcript and then prints new
messages as they arrive. Output is uncolored when stdout is not a terminal.

Example:
  huddle watch standup
  huddle watch standup --once > standup.txt
  huddle watch standup --template '{{ clock .Timestamp }} {{ .Sender }}: {{ oneline .Content }}'

Template fields: Sender, Content, Timestamp, Local, Pending, Boundary.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "print the current transcript and exit",
				Destination: &cmd.once,
			},
			&cli.StringFlag{
				Name:        "template",
				Aliases:     []string{"t"},
				Usage:       "Go template applied to each message instead of the default layout",
				Destination: &cmd.template,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session required\n\nUsage: huddle watch <session>")
	}

	var write rowWriter
	if cmd.template != "" {
		tpl, err := tmpl.Parse(cmd.template)
		if err != nil {
			return fmt.Errorf("--template: %w", err)
		}
		write = templateWriter(c.Root().Writer, tpl)
	} else {
		p := printer.New(c.Root().Writer)
		if f, ok := c.Root().Writer.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			p = printer.NewPlain(c.Root().Writer)
		}
		write = printerWriter(p)
	}

	ctrl := cmd.flags.newController(sessionID)
	if err := ctrl.Attach(ctx); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer ctrl.Detach()

	printed := printRows(write, ctrl.Rows(), 0)
	if cmd.once {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ctrl.Changes():
			printed = printRows(write, ctrl.Rows(), printed)
		}
	}
}

// rowWriter outputs a single transcript row.
type rowWriter func(chatsync.Row) error

func printerWriter(p *printer.Printer) rowWriter {
	return func(r chatsync.Row) error {
		p.Message(messageLine(r))
		return nil
	}
}

func templateWriter(w io.Writer, tpl *tmpl.Template) rowWriter {
	return func(r chatsync.Row) error {
		out, err := tpl.Execute(messageLine(r))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, out)
		return err
	}
}

// printRows writes rows[from:] and returns the new printed count. A row that
// fails to render is logged and skipped.
func printRows(write rowWriter, rows []chatsync.Row, from int) int {
	if from > len(rows) {
		from = len(rows)
	}
	for _, r := range rows[from:] {
		if err := write(r); err != nil {
			log.Warn().Err(err).Str("message", r.ID).Msg("render message failed")
		}
	}
	return len(rows)
}

func messageLine(r chatsync.Row) printer.MessageLine {
	return printer.MessageLine{
		Sender:    r.Sender.String(),
		Timestamp: r.Timestamp,
		Content:   r.Content,
		Boundary:  r.GroupBoundary,
		Local:     r.IsLocalUser,
		Pending:   r.Pending,
		HasImage:  r.Image != nil,
	}
}
