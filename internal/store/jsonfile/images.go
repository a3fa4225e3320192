package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/pkg/kv"
)

var _ chat.Images = (*ImageStore)(nil)

// ImageStore implements chat.Images over raw image files named after the
// participant. Reads that prefer the cache are served from memory once a
// file has been read.
type ImageStore struct {
	dir   string
	cache *kv.Store[chat.ParticipantID, []byte]
}

// NewImageStore creates an image store reading from dir.
func NewImageStore(dir string) *ImageStore {
	return &ImageStore{
		dir:   dir,
		cache: kv.New[chat.ParticipantID, []byte](),
	}
}

func (s *ImageStore) imagePath(id chat.ParticipantID) string {
	return filepath.Join(s.dir, safeName(id.String()))
}

// ProfileImage returns the image bytes for id. Returns chat.ErrImageNotFound
// if no file exists.
func (s *ImageStore) ProfileImage(ctx context.Context, id chat.ParticipantID, preferCache bool) ([]byte, error) {
	if preferCache {
		if data, ok := s.cache.Get(id); ok {
			return data, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.imagePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, chat.ErrImageNotFound
		}
		return nil, fmt.Errorf("read profile image: %w", err)
	}

	s.cache.Set(id, data)
	return data, nil
}

// SetProfileImage stores data as the image for id.
func (s *ImageStore) SetProfileImage(ctx context.Context, id chat.ParticipantID, data []byte) error {
	path := s.imagePath(id)
	err := withExclusiveLock(path, func() error {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("create images directory: %w", err)
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Set(id, data)
	return nil
}
