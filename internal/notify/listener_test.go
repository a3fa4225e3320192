package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/core/chat"
)

// fakeChannel implements Channel for testing.
type fakeChannel struct {
	updates chan struct{}
	once    sync.Once
	closed  atomic.Bool

	mu      sync.Mutex
	emitted []string
	emitErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{updates: make(chan struct{}, 4)}
}

func (f *fakeChannel) Updates() <-chan struct{} { return f.updates }

func (f *fakeChannel) Emit(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	f.emitted = append(f.emitted, sessionID)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed.Store(true)
	f.drop()
	return nil
}

func (f *fakeChannel) drop() {
	f.once.Do(func() { close(f.updates) })
}

// fakeDialer implements Dialer for testing.
type fakeDialer struct {
	ch    *fakeChannel
	err   error
	dials atomic.Int32
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Channel, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return d.ch, nil
}

// gatedDialer blocks in Dial until gate is closed.
type gatedDialer struct {
	ch      *fakeChannel
	entered chan struct{}
	gate    chan struct{}
	dials   atomic.Int32
}

func (d *gatedDialer) Dial(ctx context.Context, _ string) (Channel, error) {
	d.dials.Add(1)
	d.entered <- struct{}{}
	select {
	case <-d.gate:
		return d.ch, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newGatedDialer() *gatedDialer {
	return &gatedDialer{
		ch:      newFakeChannel(),
		entered: make(chan struct{}, 4),
		gate:    make(chan struct{}),
	}
}

func TestListener_DeliversSignals(t *testing.T) {
	ch := newFakeChannel()
	var calls atomic.Int32
	l := NewListener(&fakeDialer{ch: ch}, "s1", func(context.Context) { calls.Add(1) }, zerolog.Nop())

	assert.Equal(t, StateDisconnected, l.State())
	require.NoError(t, l.Open(context.Background()))
	assert.Equal(t, StateConnected, l.State())

	ch.updates <- struct{}{}
	ch.updates <- struct{}{}

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
	require.NoError(t, l.Close())
	assert.Equal(t, StateClosed, l.State())
	assert.True(t, ch.closed.Load())
}

func TestListener_HandlerRunsSequentially(t *testing.T) {
	ch := newFakeChannel()
	var (
		active  atomic.Int32
		maxSeen atomic.Int32
		calls   atomic.Int32
	)
	handler := func(context.Context) {
		n := active.Add(1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		calls.Add(1)
	}

	l := NewListener(&fakeDialer{ch: ch}, "s1", handler, zerolog.Nop())
	require.NoError(t, l.Open(context.Background()))
	defer l.Close() //nolint:errcheck

	for range 4 {
		ch.updates <- struct{}{}
	}

	require.Eventually(t, func() bool { return calls.Load() == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestListener_Emit(t *testing.T) {
	ch := newFakeChannel()
	l := NewListener(&fakeDialer{ch: ch}, "s1", func(context.Context) {}, zerolog.Nop())

	err := l.Emit(context.Background())
	require.ErrorIs(t, err, chat.ErrChannelClosed, "emit before open")

	require.NoError(t, l.Open(context.Background()))
	require.NoError(t, l.Emit(context.Background()))
	assert.Equal(t, []string{"s1"}, ch.emitted)

	ch.emitErr = errors.New("broken pipe")
	require.Error(t, l.Emit(context.Background()))

	require.NoError(t, l.Close())
	require.ErrorIs(t, l.Emit(context.Background()), chat.ErrChannelClosed)
}

func TestListener_DialFailure(t *testing.T) {
	l := NewListener(&fakeDialer{err: errors.New("refused")}, "s1", func(context.Context) {}, zerolog.Nop())

	require.Error(t, l.Open(context.Background()))
	assert.Equal(t, StateDisconnected, l.State())
	require.NoError(t, l.Close())
}

func TestListener_DroppedChannel(t *testing.T) {
	ch := newFakeChannel()
	d := &fakeDialer{ch: ch}
	l := NewListener(d, "s1", func(context.Context) {}, zerolog.Nop())
	require.NoError(t, l.Open(context.Background()))

	ch.drop()

	require.Eventually(t, func() bool { return l.State() == StateDisconnected }, time.Second, time.Millisecond)
	require.ErrorIs(t, l.Emit(context.Background()), chat.ErrChannelClosed)
	require.ErrorIs(t, l.Open(context.Background()), chat.ErrChannelClosed, "no reconnection")
	assert.Equal(t, int32(1), d.dials.Load())

	require.NoError(t, l.Close())
}

func TestListener_CloseIsTerminal(t *testing.T) {
	ch := newFakeChannel()
	d := &fakeDialer{ch: ch}
	l := NewListener(d, "s1", func(context.Context) {}, zerolog.Nop())

	require.NoError(t, l.Open(context.Background()))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	require.ErrorIs(t, l.Open(context.Background()), chat.ErrChannelClosed)
	assert.Equal(t, int32(1), d.dials.Load())
}

func TestListener_CloseCancelsRunningHandler(t *testing.T) {
	ch := newFakeChannel()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	handler := func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	}

	l := NewListener(&fakeDialer{ch: ch}, "s1", handler, zerolog.Nop())
	require.NoError(t, l.Open(context.Background()))

	ch.updates <- struct{}{}
	<-started

	require.NoError(t, l.Close())
	select {
	case <-cancelled:
	default:
		t.Fatal("handler context was not cancelled before Close returned")
	}
}

func TestListener_SlowDialDoesNotBlock(t *testing.T) {
	d := newGatedDialer()
	l := NewListener(d, "s1", func(context.Context) {}, zerolog.Nop())

	opened := make(chan error, 1)
	go func() { opened <- l.Open(context.Background()) }()
	<-d.entered

	assert.Equal(t, StateDisconnected, l.State(), "state readable during the dial")

	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close blocked behind the dial")
	}

	close(d.gate)
	require.ErrorIs(t, <-opened, chat.ErrChannelClosed)
	assert.True(t, d.ch.closed.Load(), "channel dialed after Close is closed")
	assert.Equal(t, StateClosed, l.State())
}

func TestListener_ConcurrentOpenDialsOnce(t *testing.T) {
	d := newGatedDialer()
	l := NewListener(d, "s1", func(context.Context) {}, zerolog.Nop())
	t.Cleanup(func() { _ = l.Close() })

	errs := make(chan error, 2)
	go func() { errs <- l.Open(context.Background()) }()
	<-d.entered
	go func() { errs <- l.Open(context.Background()) }()

	close(d.gate)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	assert.Equal(t, int32(1), d.dials.Load())
	assert.Equal(t, StateConnected, l.State())
}
