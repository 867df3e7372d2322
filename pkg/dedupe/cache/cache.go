// Package cache remembers file digests for the life of the process so that
// rescanning an unchanged tree skips reading file contents.
package cache

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
)

// Cache maps (path, size, mtime) to a digest.
type Cache struct {
	store *Store
}

// Open creates an empty cache.
func Open() (*Cache, error) {
	store, err := OpenStore()
	if err != nil {
		return nil, err
	}
	return &Cache{store: store}, nil
}

// Close releases the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Lookup returns the cached digest for path when the stored size and
// modification time still match.
func (c *Cache) Lookup(path string, size int64, mtime time.Time) (digest, mimeType string, ok bool) {
	entry, err := c.store.Get(path)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.Get("cache").Warn("lookup failed", "path", path, "error", err)
		}
		return "", "", false
	}
	if !entry.Matches(size, mtime) {
		return "", "", false
	}
	return entry.Digest, entry.MimeType, true
}

// Store records the digest of path at the given size and modification time.
func (c *Cache) Store(path string, size int64, mtime time.Time, digest, mimeType string) {
	err := c.store.Put(path, &Entry{
		Size:     size,
		Mtime:    mtime.UnixNano(),
		Digest:   digest,
		MimeType: mimeType,
	})
	if err != nil {
		logging.Get("cache").Warn("store failed", "path", path, "error", err)
	}
}

// Invalidate drops path, and everything below it when path is a directory.
func (c *Cache) Invalidate(path string) error {
	if err := c.store.Delete(path); err != nil {
		return err
	}
	return c.store.DeletePrefix(path + string(filepath.Separator))
}

// Len returns the number of cached digests.
func (c *Cache) Len() int {
	n, err := c.store.Count()
	if err != nil {
		return 0
	}
	return n
}
