package jsonfile

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/huddle/internal/core/chat"
)

var _ chat.Messages = (*MessageStore)(nil)

// TranscriptFile is the on-disk transcript of one session, oldest first.
type TranscriptFile struct {
	SessionID string         `json:"session_id"`
	Messages  []chat.Message `json:"messages"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MessageStore implements chat.Messages using one JSON file per session.
// Every call authenticates its token against accounts.
type MessageStore struct {
	dir      string
	accounts chat.Accounts
	sessions chat.Sessions
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMessageStore creates a message store keeping transcripts in dir.
func NewMessageStore(dir string, accounts chat.Accounts, sessions chat.Sessions) *MessageStore {
	return &MessageStore{
		dir:      dir,
		accounts: accounts,
		sessions: sessions,
		now:      time.Now,
	}
}

func (s *MessageStore) transcriptPath(sessionID string) string {
	return filepath.Join(s.dir, safeName(sessionID)+".json")
}

// Messages returns the full transcript, newest first. A session without
// messages yields an empty, non-nil slice.
func (s *MessageStore) Messages(ctx context.Context, token, sessionID string) ([]chat.Message, error) {
	if _, err := s.authorize(ctx, token, sessionID, false); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.transcriptPath(sessionID)
	var file TranscriptFile
	err := withSharedLock(path, func() error {
		return readJSON(path, &file)
	})
	if err != nil {
		return nil, err
	}

	out := slices.Clone(file.Messages)
	if out == nil {
		out = []chat.Message{}
	}
	slices.Reverse(out)
	return out, nil
}

// Append adds text to the session as the token's account. The sender must be
// a session participant.
func (s *MessageStore) Append(ctx context.Context, token, sessionID, text string) error {
	sender, err := s.authorize(ctx, token, sessionID, true)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.transcriptPath(sessionID)
	return withExclusiveLock(path, func() error {
		file := TranscriptFile{SessionID: sessionID}
		if err := readJSON(path, &file); err != nil {
			return err
		}

		now := s.now()
		file.Messages = append(file.Messages, chat.Message{
			ID:        uuid.NewString(),
			Timestamp: now,
			Sender:    sender,
			Content:   text,
		})
		file.UpdatedAt = now

		return writeJSON(path, file)
	})
}

func (s *MessageStore) authorize(ctx context.Context, token, sessionID string, write bool) (chat.ParticipantID, error) {
	viewer, err := s.accounts.Whoami(ctx, token)
	if err != nil {
		return "", err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("session %s: %w", sessionID, err)
	}

	if write && !sess.HasParticipant(viewer) {
		return "", fmt.Errorf("%s in %s: %w", viewer, sessionID, chat.ErrNotParticipant)
	}
	return viewer, nil
}
