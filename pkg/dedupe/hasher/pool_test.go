package hasher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string]Sum
	stores  int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]Sum)}
}

func (c *memCache) Lookup(path string, _ int64, _ time.Time) (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[path]
	return s.Digest, s.MimeType, ok
}

func (c *memCache) Store(path string, _ int64, _ time.Time, digest, mimeType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = Sum{Digest: digest, MimeType: mimeType}
	c.stores++
}

func TestHashBucket_RefinesByDigest(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("xxxx"))
	b := writeFile(t, dir, "b", []byte("yyyy"))
	c := writeFile(t, dir, "c", []byte("xxxx"))
	d := writeFile(t, dir, "d", []byte("yyyy"))
	e := writeFile(t, dir, "e", []byte("zzzz"))

	res, err := NewPool(4, nil).HashBucket(context.Background(), 4, []string{a, b, c, d, e})
	require.NoError(t, err)

	require.Len(t, res.Groups, 2)
	assert.Equal(t, []string{a, c}, res.Groups[0].Paths)
	assert.Equal(t, []string{b, d}, res.Groups[1].Paths)
	assert.Equal(t, HashBytes([]byte("xxxx")), res.Groups[0].Digest)
	assert.Equal(t, 5, res.Hashed)
	assert.Empty(t, res.Failures)

	for _, g := range res.Groups {
		assert.Equal(t, int64(4), g.Size)
		assert.GreaterOrEqual(t, len(g.Paths), 2)
		for _, p := range g.Paths {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			assert.Equal(t, g.Digest, HashBytes(data))
		}
	}
}

func TestHashBucket_AllDistinct(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("1"))
	b := writeFile(t, dir, "b", []byte("2"))

	res, err := NewPool(2, nil).HashBucket(context.Background(), 1, []string{a, b})
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
}

func TestHashBucket_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("dup"))
	b := writeFile(t, dir, "b", []byte("dup"))
	grown := writeFile(t, dir, "grown", []byte("dupe"))
	missing := filepath.Join(dir, "missing")

	res, err := NewPool(2, nil).HashBucket(context.Background(), 3, []string{a, missing, b, grown})
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{a, b}, res.Groups[0].Paths)
	require.Len(t, res.Failures, 2)

	failed := map[string]error{}
	for _, f := range res.Failures {
		failed[f.Path] = f.Err
	}
	assert.ErrorIs(t, failed[missing], os.ErrNotExist)
	assert.ErrorIs(t, failed[grown], ErrSizeChanged)
}

func TestHashBucket_UsesCache(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("abc"))
	b := writeFile(t, dir, "b", []byte("abc"))

	cache := newMemCache()
	pool := NewPool(2, cache)

	_, err := pool.HashBucket(context.Background(), 3, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.stores)

	var reads atomic.Int64
	pool.hashFile = func(ctx context.Context, path string, size int64) (Sum, error) {
		reads.Add(1)
		return HashFile(ctx, path, size)
	}

	res, err := pool.HashBucket(context.Background(), 3, []string{a, b})
	require.NoError(t, err)
	assert.Zero(t, reads.Load())
	assert.Equal(t, 2, res.CacheHits)
	require.Len(t, res.Groups, 1)
}

func TestHashBucket_CancelledDiscardsBucket(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 8)
	for i := range paths {
		paths[i] = writeFile(t, dir, string(rune('a'+i)), []byte("same"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(1, nil)
	var calls atomic.Int64
	pool.hashFile = func(ctx context.Context, path string, size int64) (Sum, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return HashFile(ctx, path, size)
	}

	res, err := pool.HashBucket(ctx, 4, paths)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Groups)
	assert.Less(t, calls.Load(), int64(len(paths)))
}

func TestHashBucket_BoundedConcurrency(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = writeFile(t, dir, string(rune('a'+i)), []byte("x"))
	}

	var inFlight, peak atomic.Int64
	pool := NewPool(3, nil)
	pool.hashFile = func(ctx context.Context, path string, size int64) (Sum, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return HashFile(ctx, path, size)
	}

	res, err := pool.HashBucket(context.Background(), 1, paths)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(3))
	require.Len(t, res.Groups, 1)
	assert.Len(t, res.Groups[0].Paths, 12)
}
