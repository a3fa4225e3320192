// Package notify connects a session view to the "session updated"
// notification channel.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// EventSessionUpdated is the event name used in both directions.
const EventSessionUpdated = "SessionUpdated"

// Channel is an open notification channel bound to one session.
type Channel interface {
	// Updates delivers a value for each inbound "session updated" signal.
	// It is closed when the channel drops or is closed.
	Updates() <-chan struct{}
	// Emit sends the outbound "session updated" signal for sessionID.
	Emit(ctx context.Context, sessionID string) error
	// Close terminates the channel.
	Close() error
}

// Dialer opens channels.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Channel, error)
}

// State is the listener connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	// StateClosed is the terminal disconnected state reached by Close.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

// Handler is invoked for each inbound signal. The listener waits for it to
// return before handling the next signal.
type Handler func(ctx context.Context)

// Listener owns the notification channel of one session view.
type Listener struct {
	dialer    Dialer
	sessionID string
	handler   Handler
	log       zerolog.Logger

	mu      sync.Mutex
	state   State
	ch      Channel
	cancel  context.CancelFunc
	done    chan struct{}
	dialing chan struct{} // closed when the dial in progress returns
}

// NewListener creates a disconnected listener.
func NewListener(dialer Dialer, sessionID string, handler Handler, log zerolog.Logger) *Listener {
	return &Listener{
		dialer:    dialer,
		sessionID: sessionID,
		handler:   handler,
		log:       log,
	}
}

// State returns the current connection state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Open dials the channel and starts delivering signals to the handler.
// A listener is opened at most once; reconnection is not supported. The dial
// runs without holding the lock, so State and Close stay responsive. A
// concurrent Open waits for the dial in progress.
func (l *Listener) Open(ctx context.Context) error {
	l.mu.Lock()
	for l.dialing != nil {
		wait := l.dialing
		l.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		l.mu.Lock()
	}

	switch {
	case l.state == StateConnected:
		l.mu.Unlock()
		return nil
	case l.state == StateClosed, l.done != nil:
		// Closed, or dropped after a previous Open.
		l.mu.Unlock()
		return chat.ErrChannelClosed
	}

	dialing := make(chan struct{})
	l.dialing = dialing
	l.mu.Unlock()

	ch, err := l.dialer.Dial(ctx, l.sessionID)

	l.mu.Lock()
	l.dialing = nil
	close(dialing)

	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("dial notification channel: %w", err)
	}

	if l.state == StateClosed {
		l.mu.Unlock()
		if err := ch.Close(); err != nil {
			l.log.Debug().Err(err).Msg("close channel dialed after listener closed")
		}
		return chat.ErrChannelClosed
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	l.ch = ch
	l.cancel = cancel
	l.done = make(chan struct{})
	l.state = StateConnected

	go l.loop(loopCtx, ch, l.done)
	l.mu.Unlock()

	l.log.Debug().Str("session", l.sessionID).Msg("notification channel connected")
	return nil
}

func (l *Listener) loop(ctx context.Context, ch Channel, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch.Updates():
			if !ok {
				l.mu.Lock()
				if l.state == StateConnected {
					l.state = StateDisconnected
					l.log.Warn().Str("session", l.sessionID).Msg("notification channel dropped")
				}
				l.mu.Unlock()
				return
			}
			l.handler(ctx)
		}
	}
}

// Emit sends the outbound "session updated" signal. It returns
// chat.ErrChannelClosed when the listener is not connected.
func (l *Listener) Emit(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateConnected {
		l.mu.Unlock()
		return chat.ErrChannelClosed
	}
	ch := l.ch
	l.mu.Unlock()

	if err := ch.Emit(ctx, l.sessionID); err != nil {
		return fmt.Errorf("emit %s: %w", EventSessionUpdated, err)
	}
	return nil
}

// Close closes the channel and waits for the delivery loop to exit. A handler
// that is running is cancelled through its context. Close is idempotent.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		return nil
	}
	l.state = StateClosed
	ch, cancel, done := l.ch, l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	err := ch.Close()
	<-done

	l.log.Debug().Str("session", l.sessionID).Msg("notification channel closed")
	if err != nil {
		return fmt.Errorf("close notification channel: %w", err)
	}
	return nil
}
