package avatar

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

// fakeImages implements chat.Images for testing.
type fakeImages struct {
	mu     sync.Mutex
	images map[chat.ParticipantID][]byte
	errs   map[chat.ParticipantID]error
	calls  map[chat.ParticipantID]int
	total  atomic.Int32
	delay  time.Duration
	gate   chan struct{}
}

func newFakeImages() *fakeImages {
	return &fakeImages{
		images: make(map[chat.ParticipantID][]byte),
		errs:   make(map[chat.ParticipantID]error),
		calls:  make(map[chat.ParticipantID]int),
	}
}

func (f *fakeImages) ProfileImage(ctx context.Context, id chat.ParticipantID, _ bool) ([]byte, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[id]++
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[id]; ok {
		return nil, err
	}
	data, ok := f.images[id]
	if !ok {
		return nil, chat.ErrImageNotFound
	}
	return data, nil
}

func (f *fakeImages) callsFor(id chat.ParticipantID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestCache_GetUnresolvedIsPlaceholder(t *testing.T) {
	c := New(newFakeImages(), zerolog.Nop(), Options{})

	assert.Equal(t, Placeholder, c.Get("nobody"))
	assert.False(t, c.Resolved("nobody"))
}

func TestCache_EnsureResolved(t *testing.T) {
	images := newFakeImages()
	images.images["ann"] = []byte("png")
	images.errs["bob"] = errors.New("connection reset")

	c := New(images, zerolog.Nop(), Options{})
	ctx := context.Background()

	tests := []struct {
		name string
		id   chat.ParticipantID
		want Image
	}{
		{name: "found", id: "ann", want: Image{Data: []byte("png")}},
		{name: "fetch failure caches default", id: "bob", want: Placeholder},
		{name: "not found caches default", id: "carl", want: Placeholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.EnsureResolved(ctx, tt.id)
			c.EnsureResolved(ctx, tt.id)

			assert.Equal(t, tt.want, c.Get(tt.id))
			assert.True(t, c.Resolved(tt.id))
			assert.Equal(t, 1, images.callsFor(tt.id), "resolution never retries")
		})
	}
}

func TestCache_FailureNeverRefetched(t *testing.T) {
	images := newFakeImages()
	images.errs["x"] = errors.New("boom")

	c := New(images, zerolog.Nop(), Options{})
	c.EnsureResolved(context.Background(), "x")

	// The image appears later; the negative result still wins for this view.
	images.mu.Lock()
	delete(images.errs, "x")
	images.images["x"] = []byte("late")
	images.mu.Unlock()

	for range 5 {
		c.EnsureResolved(context.Background(), "x")
		assert.Equal(t, Placeholder, c.Get("x"))
	}
	assert.Equal(t, 1, images.callsFor("x"))
}

func TestCache_ConcurrentEnsureResolvedFetchesOnce(t *testing.T) {
	images := newFakeImages()
	images.images["ann"] = []byte("png")
	images.gate = make(chan struct{})

	c := New(images, zerolog.Nop(), Options{})

	const n = 32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.EnsureResolved(context.Background(), "ann")
		}()
	}

	// Let the callers pile up on the in-flight fetch before releasing it.
	require.Eventually(t, func() bool { return images.callsFor("ann") == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(images.gate)
	wg.Wait()

	assert.Equal(t, 1, images.callsFor("ann"))
	assert.Equal(t, []byte("png"), c.Get("ann").Data)
}

func TestCache_ResolveAll(t *testing.T) {
	images := newFakeImages()
	images.images["a"] = []byte("A")
	images.images["c"] = []byte("C")
	images.delay = 5 * time.Millisecond

	var resolved atomic.Int32
	c := New(images, zerolog.Nop(), Options{
		Workers:   2,
		OnResolve: func(chat.ParticipantID) { resolved.Add(1) },
	})

	ids := []chat.ParticipantID{"a", "b", "c", "a"}
	c.ResolveAll(context.Background(), ids)

	assert.Equal(t, []byte("A"), c.Get("a").Data)
	assert.Equal(t, Placeholder, c.Get("b"))
	assert.Equal(t, []byte("C"), c.Get("c").Data)
	assert.Equal(t, int32(3), images.total.Load())
	assert.Equal(t, int32(3), resolved.Load())

	c.ResolveAll(context.Background(), ids)
	assert.Equal(t, int32(3), images.total.Load(), "already resolved participants are skipped")
}

func TestCache_CloseDropsResults(t *testing.T) {
	images := newFakeImages()
	images.images["ann"] = []byte("png")
	images.gate = make(chan struct{})

	c := New(images, zerolog.Nop(), Options{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.EnsureResolved(context.Background(), "ann")
	}()

	require.Eventually(t, func() bool { return images.callsFor("ann") == 1 }, time.Second, time.Millisecond)
	c.Close()
	close(images.gate)
	<-done

	assert.False(t, c.Resolved("ann"))
	assert.Equal(t, Placeholder, c.Get("ann"))

	c.EnsureResolved(context.Background(), "ann")
	assert.Equal(t, 1, images.callsFor("ann"), "closed cache does not fetch")
}
