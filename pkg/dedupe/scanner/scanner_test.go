package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// tree writes files under a temp dir; keys are slash-separated relative paths.
func tree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestOptionsValidate(t *testing.T) {
	opts := Options{Workers: -1, MinSize: -5}
	require.NoError(t, opts.Validate())
	assert.Equal(t, ".", opts.Root)
	assert.Equal(t, 4, opts.Workers)
	assert.Zero(t, opts.MinSize)
}

func TestScan_PartitionsBySize(t *testing.T) {
	root := tree(t, map[string]string{
		"a.txt":     "hello",
		"b.txt":     "world",
		"sub/c.txt": "hello",
		"d.txt":     "x",
		"empty1":    "",
		"sub/empty": "",
	})

	res, err := New(Options{Root: root, Recursive: true}).Scan(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Cancelled)
	assert.Equal(t, int64(6), res.FilesScanned)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b.txt"),
		filepath.Join(root, "sub", "c.txt"),
	}, res.Buckets[5])
	assert.Len(t, res.Buckets[1], 1)
	assert.Len(t, res.Buckets[0], 2)

	// Every path lands in exactly one bucket, the one matching its size.
	seen := map[string]bool{}
	for size, paths := range res.Buckets {
		for _, p := range paths {
			require.False(t, seen[p], p)
			seen[p] = true
			info, err := os.Stat(p)
			require.NoError(t, err)
			assert.Equal(t, size, info.Size())
		}
	}
	assert.Len(t, seen, 6)
}

func TestScan_NonRecursive(t *testing.T) {
	root := tree(t, map[string]string{
		"a":       "same",
		"b":       "same",
		"sub/c":   "same",
		"sub/d/e": "same",
	})

	res, err := New(Options{Root: root}).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.FilesScanned)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, res.Buckets[4])
}

func TestScan_MinSizeAndExclude(t *testing.T) {
	root := tree(t, map[string]string{
		"big1":        "0123456789",
		"big2":        "abcdefghij",
		"small":       "ab",
		"skip.tmp":    "0123456789",
		".git/object": "0123456789",
	})

	res, err := New(Options{
		Root:      root,
		Recursive: true,
		MinSize:   5,
		Exclude:   []string{"*.tmp", ".git"},
	}).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "big1"), filepath.Join(root, "big2")}, res.Buckets[10])
	assert.NotContains(t, res.Buckets, int64(2))
	assert.Equal(t, int64(3), res.FilesScanned)
}

func TestScan_SkipsSymlinks(t *testing.T) {
	root := tree(t, map[string]string{"real": "data"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	for _, recursive := range []bool{true, false} {
		res, err := New(Options{Root: root, Recursive: recursive}).Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "real")}, res.Buckets[4])
	}
}

func TestScan_InvalidRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	for _, root := range []string{filepath.Join(t.TempDir(), "missing"), file} {
		_, err := New(Options{Root: root, Recursive: true}).Scan(context.Background())
		assert.ErrorIs(t, err, types.ErrInvalidRoot, root)
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := tree(t, map[string]string{"a": "1", "b": "1", "c/d": "1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, recursive := range []bool{true, false} {
		res, err := New(Options{Root: root, Recursive: recursive}).Scan(ctx)
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
	}
}

func TestScan_ReportsUnreadableDirectories(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := tree(t, map[string]string{"ok": "1", "locked/x": "1"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var mu sync.Mutex
	var reported []string
	res, err := New(Options{
		Root:      root,
		Recursive: true,
		OnError: func(path string, _ error) {
			mu.Lock()
			reported = append(reported, path)
			mu.Unlock()
		},
	}).Scan(context.Background())
	require.NoError(t, err)

	assert.Contains(t, reported, locked)
	assert.Len(t, res.Errors, len(reported))
	assert.Equal(t, []string{filepath.Join(root, "ok")}, res.Buckets[1])
}

func TestScan_Progress(t *testing.T) {
	root := tree(t, map[string]string{"a": "1"})

	var calls int
	var mu sync.Mutex
	_, err := New(Options{
		Root:      root,
		Recursive: true,
		OnProgress: func(Progress) {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	}).Scan(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestScan_RootRemovedDuringWalk(t *testing.T) {
	root := tree(t, map[string]string{"sub/a": "1", "sub/b": "1"})
	sub := filepath.Join(root, "sub")

	// One worker keeps callbacks ordered. Sleeping past the progress
	// throttle guarantees the callback for sub is delivered.
	_, err := New(Options{
		Root:      root,
		Recursive: true,
		Workers:   1,
		OnProgress: func(p Progress) {
			if p.CurrentPath == sub {
				_ = os.RemoveAll(root)
				return
			}
			time.Sleep(15 * time.Millisecond)
		},
	}).Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "scan root lost")
}

func TestMatchesExclusionPattern(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"/a/b/c.tmp", "*.tmp", true},
		{"/a/node_modules", "node_modules", true},
		{"/a/b", "/a", true},
		{"/ab", "/a", false},
		{"/a/b/c.txt", "/a/*/c.txt", true},
		{"/a/b/c.txt", "", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesExclusionPattern(tt.path, tt.pattern), "%s ~ %s", tt.path, tt.pattern)
	}
}
