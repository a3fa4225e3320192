package chat

import (
	"context"
	"errors"
)

// Sentinel errors for chat operations.
var (
	ErrNotFound       = errors.New("session not found")
	ErrImageNotFound  = errors.New("profile image not found")
	ErrUnauthorized   = errors.New("unknown or expired token")
	ErrNotParticipant = errors.New("not a participant of this session")
	ErrEmptyPayload   = errors.New("message store returned no payload")
	ErrChannelClosed  = errors.New("notification channel closed")
	ErrDetached       = errors.New("session view detached")
)

// Accounts resolves the identity behind a token.
type Accounts interface {
	// Whoami returns the account email for token. Returns ErrUnauthorized if
	// the token is unknown.
	Whoami(ctx context.Context, token string) (ParticipantID, error)
}

// Messages is the remote session/message store.
type Messages interface {
	// Messages returns the full transcript of a session, newest first.
	// A nil slice with a nil error means the store returned no payload.
	Messages(ctx context.Context, token, sessionID string) ([]Message, error)
	// Append adds a message authored by the token's account to a session.
	Append(ctx context.Context, token, sessionID, text string) error
}

// Images is the remote profile image store.
type Images interface {
	// ProfileImage returns the raw image bytes for a participant.
	// Returns ErrImageNotFound if the participant has no image.
	ProfileImage(ctx context.Context, id ParticipantID, preferCache bool) ([]byte, error)
}

// Sessions lists and loads session descriptors.
type Sessions interface {
	// List returns all sessions.
	List(ctx context.Context) ([]Session, error)
	// Get returns a session by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (Session, error)
	// Save creates or updates a session.
	Save(ctx context.Context, s Session) error
}
