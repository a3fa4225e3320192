package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/printer"
	"github.com/hay-kot/huddle/internal/sessionform"
)

type SessionsCmd struct {
	flags *Flags

	// ls flags
	match  string
	format string

	// create flags
	id           string
	title        string
	description  string
	participants []string
	noInput      bool
}

// NewSessionsCmd creates a new sessions command.
func NewSessionsCmd(flags *Flags) *SessionsCmd {
	return &SessionsCmd{flags: flags}
}

// Register adds the sessions command to the application.
func (cmd *SessionsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "sessions",
		Aliases: []string{"s"},
		Usage:   "List, inspect and create chat sessions",
		Commands: []*cli.Command{
			cmd.lsCmd(),
			cmd.infoCmd(),
			cmd.createCmd(),
		},
	})

	return app
}

func (cmd *SessionsCmd) lsCmd() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List all sessions",
		UsageText: "huddle sessions ls [--match <glob>] [--format text|json]",
		Description: `Displays a table of sessions with their ID, title, owner and size.

--match filters session IDs with a glob pattern, for example 'team-*'.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "only list sessions whose ID matches the glob",
				Destination: &cmd.match,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.runLs,
	}
}

func (cmd *SessionsCmd) infoCmd() *cli.Command {
	return &cli.Command{
		Name:        "info",
		Usage:       "Display a session as JSON",
		UsageText:   "huddle sessions info <session>",
		Description: "Outputs the session record and whether the current account owns it.",
		Action:      cmd.runInfo,
	}
}

func (cmd *SessionsCmd) createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a session owned by the current account",
		UsageText: "huddle sessions create [--title <title>] [--participant <email>...]",
		Description: `Creates a session. The current account becomes its owner and first
participant. When --title is missing and the terminal is interactive, a form
prompts for the fields.

Example:
  huddle sessions create --title "Standup" -p bob@example.com -p cat@example.com`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "session ID (derived from the title when empty)",
				Destination: &cmd.id,
			},
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "session title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "session description (markdown)",
				Destination: &cmd.description,
			},
			&cli.StringSliceFlag{
				Name:        "participant",
				Aliases:     []string{"p"},
				Usage:       "participant email, repeatable",
				Destination: &cmd.participants,
			},
			&cli.BoolFlag{
				Name:        "no-input",
				Usage:       "never prompt; fail when required fields are missing",
				Destination: &cmd.noInput,
			},
		},
		Action: cmd.runCreate,
	}
}

// sessionRow is the JSON shape of a listed session.
type sessionRow struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Owner        chat.ParticipantID   `json:"owner"`
	Participants []chat.ParticipantID `json:"participants"`
}

func (cmd *SessionsCmd) runLs(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if cmd.match != "" && !doublestar.ValidatePattern(cmd.match) {
		return fmt.Errorf("invalid --match pattern %q", cmd.match)
	}

	sessions, err := cmd.flags.Stores.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	sessions = filterSessions(sessions, cmd.match)

	slices.SortFunc(sessions, func(a, b chat.Session) int {
		return strings.Compare(a.ID, b.ID)
	})

	if cmd.format == "json" {
		rows := make([]sessionRow, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, sessionRow{ID: s.ID, Title: s.Title, Owner: s.Owner(), Participants: s.Participants})
		}
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(sessions) == 0 {
		p.Infof("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tOWNER\tPARTICIPANTS")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.Title, s.Owner(), len(s.Participants))
	}
	return w.Flush()
}

// filterSessions keeps sessions whose ID matches pattern. An empty pattern
// keeps everything. The pattern must already be valid.
func filterSessions(sessions []chat.Session, pattern string) []chat.Session {
	if pattern == "" {
		return sessions
	}
	out := make([]chat.Session, 0, len(sessions))
	for _, s := range sessions {
		if ok, _ := doublestar.Match(pattern, s.ID); ok {
			out = append(out, s)
		}
	}
	return out
}

func (cmd *SessionsCmd) runInfo(ctx context.Context, c *cli.Command) error {
	sessionID := c.Args().First()
	if sessionID == "" {
		return fmt.Errorf("session required\n\nUsage: huddle sessions info <session>")
	}

	sess, err := cmd.flags.Stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	info := struct {
		chat.Session
		Owner   chat.ParticipantID `json:"owner"`
		IsOwner bool               `json:"is_owner"`
	}{Session: sess, Owner: sess.Owner()}

	if token := cmd.flags.token(); token != "" {
		if viewer, err := cmd.flags.Stores.Accounts.Whoami(ctx, token); err == nil {
			info.IsOwner = sess.IsOwner(viewer)
		}
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (cmd *SessionsCmd) runCreate(ctx context.Context, _ *cli.Command) error {
	p := printer.Ctx(ctx)

	owner, err := cmd.flags.Stores.Accounts.Whoami(ctx, cmd.flags.token())
	if err != nil {
		return fmt.Errorf("resolve account: %w", err)
	}

	draft := sessionform.Draft{
		ID:          cmd.id,
		Title:       cmd.title,
		Description: cmd.description,
	}
	if len(cmd.participants) > 0 {
		parsed, err := sessionform.ParseParticipants(strings.Join(cmd.participants, ","))
		if err != nil {
			return err
		}
		draft.Participants = parsed
	}

	if !draft.Complete() {
		if cmd.noInput || !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("--title is required when not running interactively")
		}
		draft, err = sessionform.Run(draft)
		if err != nil {
			return fmt.Errorf("session form: %w", err)
		}
	}

	sess, err := sessionform.Build(owner, draft)
	if err != nil {
		return err
	}

	if _, err := cmd.flags.Stores.Sessions.Get(ctx, sess.ID); err == nil {
		return fmt.Errorf("session %q already exists", sess.ID)
	}

	if err := cmd.flags.Stores.Sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	p.Success("Session created", sess.ID)
	return nil
}
