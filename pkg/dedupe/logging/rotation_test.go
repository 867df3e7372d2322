package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backups(t *testing.T, dir, name string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var out []string
	for _, e := range entries {
		if e.Name() != name && strings.HasSuffix(e.Name(), ".log") {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestRotatingWriter_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "dedupe.log")

	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dedupe.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefghij\n"))
	require.NoError(t, err)

	assert.Len(t, backups(t, dir, "dedupe.log"), 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij\n", string(data))
}

func TestRotatingWriter_PrunesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dedupe.log")

	old := time.Now().Add(-time.Hour)
	for i, name := range []string{"dedupe.2024-01-01-000000.log", "dedupe.2024-01-02-000000.log", "dedupe.2024-01-03-000000.log"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		mt := old.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	w, err := NewRotatingWriter(path, RotationConfig{MaxBackups: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	left := backups(t, dir, "dedupe.log")
	assert.Len(t, left, 2)
	assert.NotContains(t, left, "dedupe.2024-01-01-000000.log")
}

func TestRotatingWriter_PrunesByAge(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "dedupe.2020-01-01-000000.log")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	mt := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, mt, mt))

	w, err := NewRotatingWriter(filepath.Join(dir, "dedupe.log"), RotationConfig{MaxAge: 7})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	assert.NoFileExists(t, stale)
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "dedupe.log"), RotationConfig{})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dedupe.log")
	w, err := NewRotatingWriter(path, RotationConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 400, strings.Count(string(data), "line\n"))
}

func TestBackupName(t *testing.T) {
	w := &RotatingWriter{path: "/var/log/dedupe.log"}
	ts := time.Date(2024, 1, 20, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "/var/log/dedupe.2024-01-20-150405.log", w.backupName(ts))
}
