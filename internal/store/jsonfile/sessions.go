package jsonfile

import (
	"context"
	"sync"

	"github.com/hay-kot/huddle/internal/core/chat"
)

var _ chat.Sessions = (*SessionStore)(nil)

// SessionFile is the root JSON structure of sessions.json.
type SessionFile struct {
	Sessions []chat.Session `json:"sessions"`
}

// SessionStore implements chat.Sessions using a single JSON file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a session store at path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// List returns all sessions in creation order.
func (s *SessionStore) List(ctx context.Context) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var file SessionFile
	err := withSharedLock(s.path, func() error {
		return readJSON(s.path, &file)
	})
	if err != nil {
		return nil, err
	}
	return file.Sessions, nil
}

// Get returns a session by ID. Returns chat.ErrNotFound if not found.
func (s *SessionStore) Get(ctx context.Context, id string) (chat.Session, error) {
	sessions, err := s.List(ctx)
	if err != nil {
		return chat.Session{}, err
	}

	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return chat.Session{}, chat.ErrNotFound
}

// Save creates or updates a session.
func (s *SessionStore) Save(ctx context.Context, sess chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return withExclusiveLock(s.path, func() error {
		var file SessionFile
		if err := readJSON(s.path, &file); err != nil {
			return err
		}

		found := false
		for i, existing := range file.Sessions {
			if existing.ID == sess.ID {
				file.Sessions[i] = sess
				found = true
				break
			}
		}
		if !found {
			file.Sessions = append(file.Sessions, sess)
		}

		return writeJSON(s.path, file)
	})
}
