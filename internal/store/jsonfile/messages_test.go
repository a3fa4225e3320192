package jsonfile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hay-kot/huddle/internal/core/chat"
)

type messageFixture struct {
	store    *MessageStore
	annToken string
	bobToken string
	eveToken string
}

func newMessageFixture(t *testing.T) messageFixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	accounts := NewAccountStore(filepath.Join(dir, "accounts.json"))
	sessions := NewSessionStore(filepath.Join(dir, "sessions.json"))

	err := sessions.Save(ctx, chat.Session{
		ID:           "s1",
		Participants: []chat.ParticipantID{"ann@example.com", "bob@example.com"},
	})
	if err != nil {
		t.Fatalf("Save session: %v", err)
	}

	var f messageFixture
	f.annToken, _ = accounts.Add(ctx, "ann@example.com")
	f.bobToken, _ = accounts.Add(ctx, "bob@example.com")
	f.eveToken, _ = accounts.Add(ctx, "eve@example.com")
	f.store = NewMessageStore(filepath.Join(dir, "transcripts"), accounts, sessions)
	return f
}

func TestMessageStore_AppendNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	msgs, err := f.store.Messages(ctx, f.annToken, "s1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Fatalf("empty session should return an empty non-nil slice, got %#v", msgs)
	}

	for _, step := range []struct {
		token string
		text  string
	}{
		{f.annToken, "hi"},
		{f.bobToken, "yo"},
		{f.annToken, "sup"},
	} {
		if err := f.store.Append(ctx, step.token, "s1", step.text); err != nil {
			t.Fatalf("Append(%q): %v", step.text, err)
		}
	}

	msgs, err = f.store.Messages(ctx, f.bobToken, "s1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}

	want := []struct {
		sender  chat.ParticipantID
		content string
	}{
		{"ann@example.com", "sup"},
		{"bob@example.com", "yo"},
		{"ann@example.com", "hi"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Sender != w.sender || msgs[i].Content != w.content {
			t.Errorf("msgs[%d] = %s:%q, want %s:%q", i, msgs[i].Sender, msgs[i].Content, w.sender, w.content)
		}
		if msgs[i].ID == "" {
			t.Errorf("msgs[%d] has no ID", i)
		}
	}
}

func TestMessageStore_Authorization(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name:    "unknown token cannot read",
			call:    func() error { _, err := f.store.Messages(ctx, "bogus", "s1"); return err },
			wantErr: chat.ErrUnauthorized,
		},
		{
			name:    "unknown session",
			call:    func() error { _, err := f.store.Messages(ctx, f.annToken, "nope"); return err },
			wantErr: chat.ErrNotFound,
		},
		{
			name:    "non participant cannot append",
			call:    func() error { return f.store.Append(ctx, f.eveToken, "s1", "let me in") },
			wantErr: chat.ErrNotParticipant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.store.Append(ctx, f.annToken, "s1", "ping"); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := f.store.Messages(ctx, f.annToken, "s1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != n {
		t.Errorf("got %d messages, want %d", len(msgs), n)
	}
}
