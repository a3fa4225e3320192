// Package sessionview composes the sync engine and the notification listener
// into the lifecycle of one attached session view.
package sessionview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/chatsync"
	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/notify"
)

// Deps are the collaborators a view talks to.
type Deps struct {
	Accounts chat.Accounts
	Sessions chat.Sessions
	Messages chat.Messages
	Images   chat.Images
	// Dialer opens the notification channel. Nil disables push updates.
	Dialer notify.Dialer
}

// Options configures a view.
type Options struct {
	Token            string
	SessionID        string
	FetchTimeout     time.Duration
	ImageWorkers     int
	PreferImageCache bool
	// PollInterval adds timer-driven refreshes on top of notifications.
	// Zero disables polling.
	PollInterval time.Duration
}

// Controller is one attached view of a session.
type Controller struct {
	deps Deps
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	viewer   chat.ParticipantID
	session  chat.Session
	engine   *chatsync.Engine
	listener *notify.Listener
	attached bool
	detached bool
	stopPoll context.CancelFunc
	pollDone chan struct{}
}

// New creates an unattached controller.
func New(deps Deps, log zerolog.Logger, opts Options) *Controller {
	return &Controller{deps: deps, opts: opts, log: log}
}

// Attach resolves the viewer, loads the transcript and opens the notification
// channel. Identity and session lookups are required; a failed initial load
// or dial is logged and leaves a usable, possibly empty, view.
func (c *Controller) Attach(ctx context.Context) error {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return chat.ErrDetached
	}
	if c.attached {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	viewer, err := c.deps.Accounts.Whoami(ctx, c.opts.Token)
	if err != nil {
		return fmt.Errorf("resolve viewer: %w", err)
	}

	session, err := c.deps.Sessions.Get(ctx, c.opts.SessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", c.opts.SessionID, err)
	}

	engine := chatsync.New(c.deps.Messages, c.deps.Images, c.log.With().Str("component", "sync").Logger(), chatsync.Options{
		Token:            c.opts.Token,
		Session:          session,
		Viewer:           viewer,
		FetchTimeout:     c.opts.FetchTimeout,
		ImageWorkers:     c.opts.ImageWorkers,
		PreferImageCache: c.opts.PreferImageCache,
	})

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		engine.Detach()
		return chat.ErrDetached
	}
	c.viewer = viewer
	c.session = session
	c.engine = engine
	c.attached = true
	c.mu.Unlock()

	c.log.Info().
		Str("session", session.ID).
		Str("viewer", viewer.String()).
		Bool("owner", session.IsOwner(viewer)).
		Msg("attaching session view")

	if err := engine.InitialLoad(ctx); err != nil {
		c.log.Warn().Err(err).Str("session", session.ID).Msg("initial load failed")
	}

	if c.opts.PollInterval > 0 {
		c.startPolling()
	}

	if c.deps.Dialer == nil {
		return nil
	}

	listener := notify.NewListener(c.deps.Dialer, session.ID, c.onSessionUpdated, c.log.With().Str("component", "notify").Logger())
	if err := listener.Open(ctx); err != nil {
		c.log.Warn().Err(err).Str("session", session.ID).Msg("push updates unavailable")
	}

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		_ = listener.Close()
		return chat.ErrDetached
	}
	c.listener = listener
	c.mu.Unlock()
	return nil
}

func (c *Controller) onSessionUpdated(ctx context.Context) {
	n, err := c.Refresh(ctx)
	switch {
	case errors.Is(err, chat.ErrDetached), errors.Is(err, chatsync.ErrRefreshQueued):
	case err != nil:
		c.log.Warn().Err(err).Msg("refresh after notification failed")
	case n > 0:
		c.log.Debug().Int("inserted", n).Msg("refreshed after notification")
	}
}

func (c *Controller) startPolling() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		cancel()
		return
	}
	c.stopPoll, c.pollDone = cancel, done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.opts.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.onSessionUpdated(ctx)
			}
		}
	}()
}

// Refresh pulls new messages. See chatsync.Engine.Refresh; a call folded into a
// running refresh returns chatsync.ErrRefreshQueued.
func (c *Controller) Refresh(ctx context.Context) (int, error) {
	engine := c.currentEngine()
	if engine == nil {
		return 0, chat.ErrDetached
	}
	return engine.Refresh(ctx)
}

// SendMessage appends text to the session. Blank text is ignored and reports
// false without calling the store. On success the message is appended
// locally and the other viewers are signalled; a failed signal is only
// logged. The bool reports whether the caller should clear its input.
func (c *Controller) SendMessage(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	c.mu.Lock()
	engine, listener, sessionID := c.engine, c.listener, c.session.ID
	detached := c.detached
	c.mu.Unlock()

	if detached || engine == nil {
		return false, chat.ErrDetached
	}

	since := engine.Len()
	if err := c.deps.Messages.Append(ctx, c.opts.Token, sessionID, text); err != nil {
		c.log.Warn().Err(err).Str("session", sessionID).Msg("send message failed")
		return false, fmt.Errorf("send message: %w", err)
	}

	engine.AppendLocal(text, since)

	if listener != nil {
		if err := listener.Emit(ctx); err != nil {
			c.log.Warn().Err(err).Str("session", sessionID).Msg("could not notify other viewers")
		}
	}
	return true, nil
}

// IsOwner reports whether the viewer is the session owner.
func (c *Controller) IsOwner() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached && c.session.IsOwner(c.viewer)
}

// Viewer returns the attached viewer identity.
func (c *Controller) Viewer() chat.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewer
}

// Session returns the attached session descriptor.
func (c *Controller) Session() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Rows returns the current display rows.
func (c *Controller) Rows() []chatsync.Row {
	engine := c.currentEngine()
	if engine == nil {
		return nil
	}
	return engine.Snapshot()
}

// Changes signals when Rows may have changed. Nil before Attach.
func (c *Controller) Changes() <-chan struct{} {
	engine := c.currentEngine()
	if engine == nil {
		return nil
	}
	return engine.Changes()
}

// Connected reports whether push updates are live.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	l := c.listener
	c.mu.Unlock()
	return l != nil && l.State() == notify.StateConnected
}

// Participant resolves the navigate-to-participant intent for the session
// participant at index. The bool reports whether it is the viewer's own
// profile.
func (c *Controller) Participant(index int) (chat.ParticipantID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.session.Participants) {
		return "", false, fmt.Errorf("participant %d: %w", index, chat.ErrNotParticipant)
	}
	id := c.session.Participants[index]
	return id, id == c.viewer, nil
}

// ParticipantAt resolves the navigate-to-participant intent for the sender of
// the display row at index. Senders no longer listed on the session resolve
// too. The bool reports whether it is the viewer's own profile.
func (c *Controller) ParticipantAt(index int) (chat.ParticipantID, bool, error) {
	rows := c.Rows()
	if index < 0 || index >= len(rows) {
		return "", false, fmt.Errorf("row %d: %w", index, chat.ErrNotParticipant)
	}
	id := rows[index].Sender
	return id, rows[index].IsLocalUser, nil
}

// Detach closes the notification channel and stops the engine. In-flight
// work finishes silently without touching state. Detach is idempotent.
func (c *Controller) Detach() {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return
	}
	c.detached = true
	listener, engine := c.listener, c.engine
	stopPoll, pollDone := c.stopPoll, c.pollDone
	c.mu.Unlock()

	if stopPoll != nil {
		stopPoll()
		<-pollDone
	}
	if listener != nil {
		if err := listener.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close notification channel")
		}
	}
	if engine != nil {
		engine.Detach()
	}
	c.log.Info().Str("session", c.opts.SessionID).Msg("session view detached")
}

func (c *Controller) currentEngine() *chatsync.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return nil
	}
	return c.engine
}
