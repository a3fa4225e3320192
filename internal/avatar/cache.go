// Package avatar caches participant profile images for the lifetime of a
// session view.
package avatar

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/pkg/kv"
)

const defaultWorkers = 4

// Image is a resolved profile image. Default means the placeholder should be
// shown, either because the participant is unresolved or because resolution
// failed or found nothing.
type Image struct {
	Data    []byte
	Default bool
}

// Placeholder is the image returned for unresolved or failed participants.
var Placeholder = Image{Default: true}

// Options configures a Cache.
type Options struct {
	// Workers bounds concurrent fetches in ResolveAll. Zero uses a default.
	Workers int
	// PreferCache is forwarded to the image store.
	PreferCache bool
	// OnResolve is called after a participant's image is stored.
	OnResolve func(id chat.ParticipantID)
}

// Cache resolves each participant at most once. Negative results are cached
// as well, so a failed or missing image is never fetched again.
type Cache struct {
	images   chat.Images
	opts     Options
	log      zerolog.Logger
	resolved *kv.Store[chat.ParticipantID, Image]
	inflight singleflight.Group
	closed   atomic.Bool
}

// New creates a cache backed by images.
func New(images chat.Images, log zerolog.Logger, opts Options) *Cache {
	if opts.Workers < 1 {
		opts.Workers = defaultWorkers
	}
	return &Cache{
		images:   images,
		opts:     opts,
		log:      log,
		resolved: kv.New[chat.ParticipantID, Image](),
	}
}

// EnsureResolved fetches the image for id unless it was already resolved.
// Concurrent callers for the same participant share one fetch.
func (c *Cache) EnsureResolved(ctx context.Context, id chat.ParticipantID) {
	if c.closed.Load() {
		return
	}
	if _, ok := c.resolved.Get(id); ok {
		return
	}

	_, _, _ = c.inflight.Do(string(id), func() (any, error) {
		// A previous flight may have finished between the check above and Do.
		if _, ok := c.resolved.Get(id); ok {
			return nil, nil
		}

		img := c.fetch(ctx, id)
		if c.closed.Load() {
			return nil, nil
		}
		if c.resolved.SetIfAbsent(id, img) && c.opts.OnResolve != nil {
			c.opts.OnResolve(id)
		}
		return nil, nil
	})
}

// ResolveAll resolves every participant in ids concurrently, bounded by
// Options.Workers. It returns once all of them are resolved.
func (c *Cache) ResolveAll(ctx context.Context, ids []chat.ParticipantID) {
	var g errgroup.Group
	g.SetLimit(c.opts.Workers)

	for _, id := range ids {
		if _, ok := c.resolved.Get(id); ok {
			continue
		}
		g.Go(func() error {
			c.EnsureResolved(ctx, id)
			return nil
		})
	}

	_ = g.Wait()
}

// Get returns the cached image for id, or Placeholder if it is unresolved.
// It never blocks on a fetch.
func (c *Cache) Get(id chat.ParticipantID) Image {
	if img, ok := c.resolved.Get(id); ok {
		return img
	}
	return Placeholder
}

// Resolved reports whether id has a cached result, including a negative one.
func (c *Cache) Resolved(id chat.ParticipantID) bool {
	_, ok := c.resolved.Get(id)
	return ok
}

// Close stops the cache from storing results. Fetches already running are
// allowed to finish but their results are dropped.
func (c *Cache) Close() {
	c.closed.Store(true)
}

func (c *Cache) fetch(ctx context.Context, id chat.ParticipantID) Image {
	data, err := c.images.ProfileImage(ctx, id, c.opts.PreferCache)
	switch {
	case errors.Is(err, chat.ErrImageNotFound):
		c.log.Debug().Str("participant", id.String()).Msg("no profile image, using default")
		return Placeholder
	case err != nil:
		c.log.Warn().Err(err).Str("participant", id.String()).Msg("profile image fetch failed, using default")
		return Placeholder
	case len(data) == 0:
		return Placeholder
	}
	return Image{Data: data}
}
