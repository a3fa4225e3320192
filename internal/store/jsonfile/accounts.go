package jsonfile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/huddle/internal/core/chat"
)

var _ chat.Accounts = (*AccountStore)(nil)

// Account binds a bearer token to a participant.
type Account struct {
	Token     string             `json:"token"`
	Email     chat.ParticipantID `json:"email"`
	CreatedAt time.Time          `json:"created_at"`
}

// AccountFile is the root JSON structure of accounts.json.
type AccountFile struct {
	Accounts []Account `json:"accounts"`
}

// AccountStore implements chat.Accounts using a single JSON file.
type AccountStore struct {
	path string
	mu   sync.RWMutex
}

// NewAccountStore creates an account store at path.
func NewAccountStore(path string) *AccountStore {
	return &AccountStore{path: path}
}

// Whoami returns the participant for token. Returns chat.ErrUnauthorized if
// the token is unknown.
func (s *AccountStore) Whoami(ctx context.Context, token string) (chat.ParticipantID, error) {
	if token == "" {
		return "", chat.ErrUnauthorized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var file AccountFile
	err := withSharedLock(s.path, func() error {
		return readJSON(s.path, &file)
	})
	if err != nil {
		return "", err
	}

	for _, a := range file.Accounts {
		if a.Token == token {
			return a.Email, nil
		}
	}
	return "", chat.ErrUnauthorized
}

// Add issues a new token for email and returns it.
func (s *AccountStore) Add(ctx context.Context, email chat.ParticipantID) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	err := withExclusiveLock(s.path, func() error {
		var file AccountFile
		if err := readJSON(s.path, &file); err != nil {
			return err
		}

		file.Accounts = append(file.Accounts, Account{
			Token:     token,
			Email:     email,
			CreatedAt: time.Now(),
		})
		return writeJSON(s.path, file)
	})
	if err != nil {
		return "", err
	}
	return token, nil
}
