// Package sessionform collects and validates the fields of a new session,
// prompting for missing values with a huh form.
package sessionform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/validate"
	"github.com/hay-kot/huddle/internal/styles"
	"github.com/hay-kot/huddle/pkg/randid"
)

// Draft holds the user supplied fields of a session before it is saved.
type Draft struct {
	ID           string
	Title        string
	Description  string
	Participants []chat.ParticipantID
}

// Complete reports whether the draft can be saved without prompting.
func (d Draft) Complete() bool {
	return d.Title != ""
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// SuggestID derives a session ID from a title: a lowercase slug with a short
// random suffix so two sessions with the same title do not collide.
func SuggestID(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	return randid.Suffixed(slug, 4)
}

// ParseParticipants splits a comma or whitespace separated list of emails.
// Duplicates are dropped; order is kept.
func ParseParticipants(raw string) ([]chat.ParticipantID, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})

	out := make([]chat.ParticipantID, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		if err := validate.Email(f); err != nil {
			return nil, err
		}
		seen[f] = true
		out = append(out, chat.ParticipantID(f))
	}
	return out, nil
}

// Build turns a draft into a session owned by owner. The owner is always the
// first participant; an empty ID is filled with SuggestID.
func Build(owner chat.ParticipantID, d Draft) (chat.Session, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return chat.Session{}, fmt.Errorf("title is required")
	}

	id := d.ID
	if id == "" {
		id = SuggestID(title)
	}
	if err := validate.SessionID(id); err != nil {
		return chat.Session{}, err
	}

	participants := []chat.ParticipantID{owner}
	for _, p := range d.Participants {
		if p == owner {
			continue
		}
		if err := validate.Email(p.String()); err != nil {
			return chat.Session{}, err
		}
		if !containsID(participants, p) {
			participants = append(participants, p)
		}
	}

	return chat.Session{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(d.Description),
		Participants: participants,
	}, nil
}

func containsID(ids []chat.ParticipantID, id chat.ParticipantID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Run prompts for the draft fields, using d as defaults.
func Run(d Draft) (Draft, error) {
	var (
		title        = d.Title
		id           = d.ID
		description  = d.Description
		participants = joinParticipants(d.Participants)
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&title).
				Validate(requiredValidator("title")),
			huh.NewInput().
				Title("Session ID").
				Description("Leave empty to derive one from the title").
				Value(&id).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					return validate.SessionID(s)
				}),
			huh.NewText().
				Title("Description").
				Value(&description),
			huh.NewText().
				Title("Participants").
				Description("Emails separated by commas or new lines").
				Value(&participants).
				Validate(func(s string) error {
					_, err := ParseParticipants(s)
					return err
				}),
		),
	).WithTheme(styles.FormTheme())

	if err := form.Run(); err != nil {
		return Draft{}, err
	}

	parsed, err := ParseParticipants(participants)
	if err != nil {
		return Draft{}, err
	}

	return Draft{
		ID:           strings.TrimSpace(id),
		Title:        strings.TrimSpace(title),
		Description:  description,
		Participants: parsed,
	}, nil
}

func joinParticipants(ids []chat.ParticipantID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

func requiredValidator(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}
