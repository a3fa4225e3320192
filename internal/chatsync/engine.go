// Package chatsync keeps a session transcript and its profile images in step
// with the remote message store.
package chatsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/avatar"
	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/transcript"
)

const defaultFetchTimeout = 5 * time.Second

// ErrRefreshQueued is returned by Refresh when another refresh is running and
// the call was folded into its follow-up pass.
var ErrRefreshQueued = errors.New("refresh queued")

// Row is a transcript entry ready for display. Image is set on group
// boundaries once the sender's profile image resolved; nil means the
// placeholder.
type Row struct {
	transcript.Entry
	Image []byte
}

// Options configures an Engine.
type Options struct {
	Token   string
	Session chat.Session
	Viewer  chat.ParticipantID
	// FetchTimeout bounds each message fetch. Zero uses a default.
	FetchTimeout time.Duration
	// ImageWorkers bounds concurrent image fetches during bulk resolution.
	ImageWorkers int
	// PreferImageCache is forwarded to the image store.
	PreferImageCache bool
}

// Engine sequences initial load, refresh merges and image resolution for one
// session view.
type Engine struct {
	messages   chat.Messages
	opts       Options
	log        zerolog.Logger
	transcript *transcript.Store
	images     *avatar.Cache
	changes    chan struct{}

	mu         sync.Mutex
	refreshing bool
	followUp   bool
	detached   bool
}

// New creates an engine for the session in opts.
func New(messages chat.Messages, images chat.Images, log zerolog.Logger, opts Options) *Engine {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}

	e := &Engine{
		messages:   messages,
		opts:       opts,
		log:        log,
		transcript: transcript.New(opts.Viewer),
		changes:    make(chan struct{}, 1),
	}
	e.images = avatar.New(images, log.With().Str("component", "avatar").Logger(), avatar.Options{
		Workers:     opts.ImageWorkers,
		PreferCache: opts.PreferImageCache,
		OnResolve:   func(chat.ParticipantID) { e.notify() },
	})
	return e
}

// Changes returns a channel that receives a value whenever the transcript or
// an image changed. Signals are coalesced: one pending value stands for any
// number of changes since the last receive.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// InitialLoad fetches the full transcript, replaces the local one and
// resolves images for every session participant and sender.
func (e *Engine) InitialLoad(ctx context.Context) error {
	msgs, err := e.fetch(ctx)
	if err != nil {
		return err
	}
	if e.isDetached() {
		return chat.ErrDetached
	}

	e.transcript.Initialize(msgs)
	e.log.Debug().Int("messages", len(msgs)).Msg("transcript loaded")
	e.notify()

	ids := slices.Clone(e.opts.Session.Participants)
	for _, s := range chat.Senders(msgs) {
		if !slices.Contains(ids, s) {
			ids = append(ids, s)
		}
	}
	e.images.ResolveAll(ctx, ids)

	return nil
}

// Refresh fetches the full transcript and merges anything new. It returns the
// number of messages inserted.
//
// Only one refresh runs at a time. A call made while another is running
// returns (0, ErrRefreshQueued) immediately and schedules one follow-up pass, which the
// running call performs before it returns. Any number of such calls collapse
// into a single follow-up.
//
// A failed fetch leaves the transcript and images untouched.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return 0, chat.ErrDetached
	}
	if e.refreshing {
		e.followUp = true
		e.mu.Unlock()
		e.log.Debug().Msg("refresh in progress, scheduling follow-up")
		return 0, ErrRefreshQueued
	}
	e.refreshing = true
	e.mu.Unlock()

	var (
		total   int
		lastErr error
	)
	for {
		n, err := e.refreshOnce(ctx)
		total += n
		lastErr = err

		e.mu.Lock()
		if !e.followUp || e.detached || ctx.Err() != nil {
			e.refreshing = false
			e.followUp = false
			e.mu.Unlock()
			return total, lastErr
		}
		e.followUp = false
		e.mu.Unlock()
	}
}

func (e *Engine) refreshOnce(ctx context.Context) (int, error) {
	msgs, err := e.fetch(ctx)
	if err != nil {
		return 0, err
	}
	if e.isDetached() {
		return 0, chat.ErrDetached
	}

	inserted := e.transcript.MergeNewer(msgs)
	if len(inserted) == 0 {
		return 0, nil
	}

	e.log.Debug().Int("inserted", len(inserted)).Msg("transcript merged")
	e.notify()

	var fresh []chat.ParticipantID
	for _, s := range chat.Senders(inserted) {
		if !e.images.Resolved(s) {
			fresh = append(fresh, s)
		}
	}
	if len(fresh) > 0 {
		e.images.ResolveAll(ctx, fresh)
	}

	return len(inserted), nil
}

// AppendLocal adds an optimistic entry for a message the viewer just sent, so
// it renders without waiting for the next refresh. since is the Len taken
// before the send; if a refresh already merged the message it is not added
// again and AppendLocal reports false.
func (e *Engine) AppendLocal(content string, since int) bool {
	if e.isDetached() {
		return false
	}
	added := e.transcript.AppendLocal(chat.Message{
		Timestamp: time.Now(),
		Sender:    e.opts.Viewer,
		Content:   content,
	}, since)
	if !added {
		e.log.Debug().Msg("sent message already merged")
		return false
	}
	e.images.EnsureResolved(context.Background(), e.opts.Viewer)
	e.notify()
	return true
}

// Len returns the number of confirmed messages in the transcript.
func (e *Engine) Len() int {
	return e.transcript.Len()
}

// Snapshot returns the current rows in display order.
func (e *Engine) Snapshot() []Row {
	entries := e.transcript.Snapshot()
	rows := make([]Row, len(entries))
	for i, entry := range entries {
		rows[i] = Row{Entry: entry}
		if entry.GroupBoundary {
			if img := e.images.Get(entry.Sender); !img.Default {
				rows[i].Image = img.Data
			}
		}
	}
	return rows
}

// Image returns the cached profile image for a participant.
func (e *Engine) Image(id chat.ParticipantID) avatar.Image {
	return e.images.Get(id)
}

// Detach stops the engine. Results of fetches still in flight are discarded.
func (e *Engine) Detach() {
	e.mu.Lock()
	if e.detached {
		e.mu.Unlock()
		return
	}
	e.detached = true
	e.followUp = false
	e.mu.Unlock()

	e.images.Close()
	e.transcript.Close()
}

func (e *Engine) isDetached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

func (e *Engine) fetch(ctx context.Context) ([]chat.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	msgs, err := e.messages.Messages(ctx, e.opts.Token, e.opts.Session.ID)
	if err != nil {
		e.log.Warn().Err(err).Str("session", e.opts.Session.ID).Msg("fetch messages failed")
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	if msgs == nil {
		e.log.Warn().Str("session", e.opts.Session.ID).Msg("fetch messages returned no payload")
		return nil, chat.ErrEmptyPayload
	}
	return msgs, nil
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}
