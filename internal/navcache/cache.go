// Package navcache is a disk-backed memoization layer with per-entry TTLs.
// It replaces the scattering of ad-hoc timeout decorators the engine would
// otherwise need: the NAV series and the live-quote fallback both go through
// the same GetOrCompute path with their own TTLs.
//
// Concurrency discipline: entries are written to a temp file and renamed
// into place, so a concurrent reader sees either the old complete entry or
// a miss — never a partial file. A forced refresh deletes the entry before
// recomputing for the same reason. Concurrent computations for the same key
// in one process are collapsed by singleflight; across processes, redundant
// recomputes are acceptable (same inputs, same outputs).
package navcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rmartins/navengine/internal/apperrors"
)

// Cache stores JSON-encoded entries as files under a single directory,
// one file per key. The file modification time is the entry timestamp,
// readable without deserializing the payload.
type Cache struct {
	dir   string
	group singleflight.Group
}

// New creates a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// ModTime returns the last-modified timestamp of the entry for key.
// Returns ErrCacheMiss when no entry exists.
func (c *Cache) ModTime(key string) (time.Time, error) {
	info, err := os.Stat(c.path(key))
	if err != nil {
		return time.Time{}, apperrors.ErrCacheMiss
	}
	return info.ModTime().UTC(), nil
}

// Fresh reports whether an entry for key exists and is younger than ttl.
func (c *Cache) Fresh(key string, ttl time.Duration) bool {
	modified, err := c.ModTime(key)
	if err != nil {
		return false
	}
	return time.Since(modified) < ttl
}

// Read decodes the entry for key into v, regardless of age.
// Returns ErrCacheMiss when absent and ErrCacheCorrupt when undecodable;
// a corrupt entry is removed so the next write starts clean.
func (c *Cache) Read(key string, v any) error {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return apperrors.ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = os.Remove(c.path(key))
		return fmt.Errorf("%w: %v", apperrors.ErrCacheCorrupt, err)
	}
	return nil
}

// Write persists v as the entry for key. The temp-file-and-rename sequence
// keeps concurrent readers away from partial writes.
func (c *Cache) Write(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish cache entry: %w", err)
	}
	return nil
}

// Invalidate deletes the entry for key. Deleting a missing entry is not an
// error; the point is that subsequent readers see a miss.
func (c *Cache) Invalidate(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// GetOrCompute returns the cached value for key when younger than ttl,
// otherwise runs compute, stores the result and returns it. Concurrent
// calls for the same key share one compute. compute errors are returned
// unchanged and nothing is stored.
func GetOrCompute[T any](c *Cache, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var cached T
	if c.Fresh(key, ttl) {
		if err := c.Read(key, &cached); err == nil {
			return cached, nil
		}
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		value, err := compute()
		if err != nil {
			return value, err
		}
		if err := c.Write(key, value); err != nil {
			return value, err
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
