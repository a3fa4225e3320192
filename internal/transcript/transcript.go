// Package transcript holds the ordered message transcript of a session view
// together with the display metadata derived from it.
package transcript

import (
	"slices"
	"sync"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// Band is the alternating row tint. It advances at every group boundary.
type Band int

const (
	BandLight Band = iota
	BandDark
)

func (b Band) String() string {
	if b == BandDark {
		return "dark"
	}
	return "light"
}

// Entry wraps a message with derived display state.
type Entry struct {
	chat.Message

	// IsLocalUser is true when the sender is the viewer.
	IsLocalUser bool
	// GroupBoundary is true when the sender differs from the previous entry
	// in display order. The first entry is always a boundary.
	GroupBoundary bool
	Band          Band
	// Pending marks an optimistic local entry not yet seen in a remote fetch.
	Pending bool
}

// Store is the transcript of one session view.
//
// Entries are kept in remote order (newest first), which lets a merge splice
// newly arrived messages at the front without touching existing positions.
// Snapshot returns display order (oldest first) with local pending entries at
// the end.
type Store struct {
	mu      sync.RWMutex
	viewer  chat.ParticipantID
	entries []Entry
	pending []Entry
	// claimed holds the positions, counted from the oldest entry, of
	// confirmed entries that already stood in for a local send.
	claimed map[int]struct{}
	closed  bool
}

// New creates an empty transcript for viewer.
func New(viewer chat.ParticipantID) *Store {
	return &Store{viewer: viewer}
}

// Initialize replaces the contents with msgs, given newest first.
func (s *Store) Initialize(msgs []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.entries = make([]Entry, len(msgs))
	for i, m := range msgs {
		s.entries[i] = s.wrap(m)
	}
	s.pending = nil
	s.claimed = nil
	s.annotate()
}

// MergeNewer merges a full remote transcript, given newest first, into the
// store. The number of new messages is inferred from the length difference
// and those messages are taken from the front of remote. Returns the inserted
// messages, newest first.
//
// A remote that did not grow is ignored: shrinkage and in-place edits are not
// detected.
func (s *Store) MergeNewer(remote []chat.Message) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	countNew := len(remote) - len(s.entries)
	if countNew <= 0 {
		return nil
	}

	inserted := slices.Clone(remote[:countNew])
	fresh := make([]Entry, 0, countNew+len(s.entries))
	for _, m := range inserted {
		fresh = append(fresh, s.wrap(m))
	}
	s.entries = append(fresh, s.entries...)
	s.dropConfirmed(countNew)
	s.annotate()

	return inserted
}

// AppendLocal appends an optimistic entry for a message the viewer just sent.
// It stays at the end of display order until a merge brings in a message with
// the same sender and content.
//
// since is the Len observed before the send was issued. When a merge that ran
// in the meantime already brought in the message, no pending entry is added
// and AppendLocal reports false.
func (s *Store) AppendLocal(msg chat.Message, since int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if i := s.unclaimed(msg, len(s.entries)-max(since, 0)); i >= 0 {
		s.claim(i)
		return false
	}

	e := s.wrap(msg)
	e.Pending = true
	s.pending = append(s.pending, e)
	s.annotate()
	return true
}

// Snapshot returns a copy of the entries in display order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries)+len(s.pending))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return append(out, s.pending...)
}

// Len returns the number of confirmed (non-pending) entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close discards the contents. Every later mutation is a no-op.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	s.pending = nil
	s.claimed = nil
}

func (s *Store) wrap(m chat.Message) Entry {
	return Entry{Message: m, IsLocalUser: m.Sender == s.viewer}
}

// annotate recomputes boundaries and bands over display order: confirmed
// entries back to front, then pending. Caller must hold s.mu.
func (s *Store) annotate() {
	ordered := make([]*Entry, 0, len(s.entries)+len(s.pending))
	for i := len(s.entries) - 1; i >= 0; i-- {
		ordered = append(ordered, &s.entries[i])
	}
	for i := range s.pending {
		ordered = append(ordered, &s.pending[i])
	}
	annotate(ordered)
}

// Annotate recomputes GroupBoundary and Band over entries in display order.
func Annotate(entries []Entry) {
	ptrs := make([]*Entry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}
	annotate(ptrs)
}

func annotate(ordered []*Entry) {
	var (
		last   chat.ParticipantID
		groups int
	)
	for i, e := range ordered {
		e.GroupBoundary = i == 0 || e.Sender != last
		if e.GroupBoundary {
			groups++
		}
		e.Band = Band((groups - 1) % 2)
		last = e.Sender
	}
}

// dropConfirmed removes pending entries matched by one of the newest n
// confirmed entries. Each confirmed entry stands in for at most one pending
// entry. Caller must hold s.mu.
func (s *Store) dropConfirmed(n int) {
	if len(s.pending) == 0 {
		return
	}

	kept := s.pending[:0]
	for _, p := range s.pending {
		if i := s.unclaimed(p.Message, n); i >= 0 {
			s.claim(i)
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
}

// unclaimed returns the index of the first of the newest n entries that
// matches msg by sender and content and has not been claimed, or -1.
func (s *Store) unclaimed(msg chat.Message, n int) int {
	n = min(n, len(s.entries))
	for i := range n {
		e := s.entries[i]
		if e.Sender != msg.Sender || e.Content != msg.Content {
			continue
		}
		if _, ok := s.claimed[len(s.entries)-1-i]; !ok {
			return i
		}
	}
	return -1
}

func (s *Store) claim(i int) {
	if s.claimed == nil {
		s.claimed = make(map[int]struct{})
	}
	s.claimed[len(s.entries)-1-i] = struct{}{}
}
