package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/validate"
	"github.com/hay-kot/huddle/internal/sessionform"
	"github.com/hay-kot/huddle/pkg/randid"
)

const (
	// StatusCreated indicates the session was created successfully.
	StatusCreated = "created"
	// StatusFailed indicates the session creation failed.
	StatusFailed = "failed"
	// StatusSkipped indicates the session was not attempted due to failure threshold.
	StatusSkipped = "skipped"

	// maxFailures is the number of failures before stopping batch processing.
	maxFailures = 3
)

// BatchInput is the JSON input schema for batch session creation.
type BatchInput struct {
	Sessions []BatchSession `json:"sessions"`
}

// Validate checks the batch input for errors using criterio.
func (b BatchInput) Validate() error {
	if len(b.Sessions) == 0 {
		return criterio.NewFieldErrors("sessions", fmt.Errorf("array is empty"))
	}

	var errs criterio.FieldErrorsBuilder
	seenIDs := make(map[string]bool)

	for i, sess := range b.Sessions {
		field := fmt.Sprintf("sessions[%d]", i)

		if strings.TrimSpace(sess.Title) == "" {
			errs = errs.Append(field+".title", fmt.Errorf("cannot be empty"))
			continue
		}

		if sess.ID != "" {
			if err := validate.SessionID(sess.ID); err != nil {
				errs = errs.Append(field+".id", err)
				continue
			}
			if seenIDs[sess.ID] {
				errs = errs.Append(field+".id", fmt.Errorf("duplicate id %q", sess.ID))
				continue
			}
			seenIDs[sess.ID] = true
		}

		for j, p := range sess.Participants {
			if err := validate.Email(p); err != nil {
				errs = errs.Append(fmt.Sprintf("%s.participants[%d]", field, j), err)
			}
		}
	}

	return errs.ToError()
}

// BatchSession defines a single session to create.
type BatchSession struct {
	ID           string   `json:"id,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Participants []string `json:"participants,omitempty"`
	// Message is posted by the owner right after the session is created.
	Message string `json:"message,omitempty"`
}

func (s BatchSession) draft() sessionform.Draft {
	participants := make([]chat.ParticipantID, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = chat.ParticipantID(p)
	}
	return sessionform.Draft{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Participants: participants,
	}
}

// BatchResult is the output for a single session creation attempt.
type BatchResult struct {
	Title     string `json:"title"`
	SessionID string `json:"session_id,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// BatchOutput is the JSON output schema.
type BatchOutput struct {
	BatchID string        `json:"batch_id"`
	Results []BatchResult `json:"results"`
}

// BatchErrorOutput is the JSON output for fatal errors.
type BatchErrorOutput struct {
	Error string `json:"error"`
}

type BatchCmd struct {
	flags *Flags
	file  string
}

func NewBatchCmd(flags *Flags) *BatchCmd {
	return &BatchCmd{flags: flags}
}

func (cmd *BatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "batch",
		Usage: "Create multiple sessions from JSON input",
		UsageText: `huddle batch [options]

Read from stdin:
  echo '{"sessions":[{"title":"Standup","participants":["bob@example.com"]}]}' | huddle batch

Read from file:
  huddle batch -f sessions.json`,
		Description: `Creates multiple sessions owned by the current account from a JSON
document. Sessions are created sequentially; processing stops after 3
failures and sessions not attempted are marked as skipped.

Input JSON schema:
  {
    "sessions": [
      {
        "id": "optional-id",
        "title": "Session title",
        "description": "optional markdown",
        "participants": ["bob@example.com"],
        "message": "optional first message"
      }
    ]
  }

Output is JSON with a batch ID and results for each session.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to JSON file (reads from stdin if not provided)",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *BatchCmd) run(ctx context.Context, c *cli.Command) error {
	batchID := randid.Generate(6)
	logger := log.With().Str("batch_id", batchID).Logger()
	out := c.Root().Writer

	logger.Info().Msg("starting batch processing")

	input, err := cmd.readInput()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return writeBatchError(out, fmt.Errorf("read input: %w", err))
	}

	if err := input.Validate(); err != nil {
		logger.Error().Err(err).Msg("input validation failed")
		return writeBatchError(out, fmt.Errorf("invalid input: %w", err))
	}

	owner, err := cmd.flags.Stores.Accounts.Whoami(ctx, cmd.flags.token())
	if err != nil {
		return writeBatchError(out, fmt.Errorf("resolve account: %w", err))
	}

	output := BatchOutput{
		BatchID: batchID,
		Results: make([]BatchResult, 0, len(input.Sessions)),
	}

	failures := 0
	for i, sess := range input.Sessions {
		if failures >= maxFailures {
			logger.Warn().Str("title", sess.Title).Msg("skipping session due to failure threshold")
			for j := i; j < len(input.Sessions); j++ {
				output.Results = append(output.Results, BatchResult{
					Title:  input.Sessions[j].Title,
					Status: StatusSkipped,
				})
			}
			break
		}

		result := cmd.createSession(ctx, logger, owner, sess)
		output.Results = append(output.Results, result)

		if result.Status == StatusFailed {
			failures++
			logger.Error().Str("title", sess.Title).Str("error", result.Error).Msg("session creation failed")
		} else {
			logger.Info().Str("title", sess.Title).Str("session_id", result.SessionID).Msg("session created")
		}
	}

	logger.Info().
		Int("total", len(input.Sessions)).
		Int("created", countByStatus(output.Results, StatusCreated)).
		Int("failed", countByStatus(output.Results, StatusFailed)).
		Int("skipped", countByStatus(output.Results, StatusSkipped)).
		Msg("batch processing complete")

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func (cmd *BatchCmd) readInput() (BatchInput, error) {
	var reader io.Reader

	if cmd.file != "" {
		f, err := os.Open(cmd.file)
		if err != nil {
			return BatchInput{}, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return BatchInput{}, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	return decodeBatchInput(reader)
}

func decodeBatchInput(r io.Reader) (BatchInput, error) {
	var input BatchInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return BatchInput{}, fmt.Errorf("decode JSON: %w", err)
	}
	return input, nil
}

func (cmd *BatchCmd) createSession(ctx context.Context, logger zerolog.Logger, owner chat.ParticipantID, in BatchSession) BatchResult {
	failed := func(err error) BatchResult {
		return BatchResult{Title: in.Title, Status: StatusFailed, Error: err.Error()}
	}

	sess, err := sessionform.Build(owner, in.draft())
	if err != nil {
		return failed(err)
	}

	if _, err := cmd.flags.Stores.Sessions.Get(ctx, sess.ID); err == nil {
		return failed(fmt.Errorf("session %q already exists", sess.ID))
	}

	if err := cmd.flags.Stores.Sessions.Save(ctx, sess); err != nil {
		return failed(fmt.Errorf("save session: %w", err))
	}

	if in.Message != "" {
		if err := validate.MessageText(in.Message); err != nil {
			logger.Warn().Err(err).Str("session_id", sess.ID).Msg("first message skipped")
		} else if err := cmd.flags.Stores.Messages.Append(ctx, cmd.flags.token(), sess.ID, in.Message); err != nil {
			logger.Warn().Err(err).Str("session_id", sess.ID).Msg("first message failed")
		}
	}

	return BatchResult{
		Title:     in.Title,
		SessionID: sess.ID,
		Status:    StatusCreated,
	}
}

func writeBatchError(w io.Writer, err error) error {
	output := BatchErrorOutput{Error: err.Error()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(output); encErr != nil {
		fmt.Fprintf(os.Stderr, "error: %s (failed to write JSON: %v)\n", err, encErr)
	}
	return err
}

func countByStatus(results []BatchResult, status string) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}
