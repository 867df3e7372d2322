// Package watcher reports files that disappear or change under a scanned
// tree so duplicate groups and cached digests can be reconciled.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
)

// Handler receives reconciliation callbacks. Either field may be nil.
type Handler struct {
	// Removed is called when path was removed or renamed away. path may be
	// a directory.
	Removed func(path string)

	// Changed is called when a file was written or created.
	Changed func(path string)
}

// Watcher watches directories for removals and modifications.
type Watcher struct {
	watcher   *fsnotify.Watcher
	paths     map[string]bool
	recursive bool
	mu        sync.RWMutex
	closed    bool
}

// New creates a new Watcher. recursive controls whether directories
// created after Watch are picked up.
func New(recursive bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:   fsw,
		paths:     make(map[string]bool),
		recursive: recursive,
	}, nil
}

// Watch starts watching root, and every directory below it when the
// watcher is recursive. Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	if !w.recursive {
		return w.addWatch(absRoot)
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			// Running out of inotify watches leaves the rest unwatched
			// rather than failing the job.
			if err := w.addWatch(path); err != nil {
				return fs.SkipAll
			}
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Watching reports whether path is a watched directory.
func (w *Watcher) Watching(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paths[path]
}

// Run dispatches events to h until ctx is cancelled or the watcher closes.
func (w *Watcher) Run(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, h)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get("watcher").Error("watcher error", "error", err)
		}
	}
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event, h Handler) {
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename shows up as a create under the new name.
		w.handleRemove(event.Name)
		if h.Removed != nil {
			h.Removed(event.Name)
		}
	case event.Op&fsnotify.Create != 0:
		if w.handleCreate(event.Name) && h.Changed != nil {
			h.Changed(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		if h.Changed != nil {
			h.Changed(event.Name)
		}
	}
}

// handleCreate watches new directories and reports whether path is a file.
func (w *Watcher) handleCreate(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink != 0 {
		return false
	}

	if !info.IsDir() {
		return true
	}

	if w.recursive {
		_ = filepath.WalkDir(path, func(sub string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if d.IsDir() && d.Type()&fs.ModeSymlink == 0 {
				_ = w.addWatch(sub)
			}
			return nil
		})
	}
	return false
}

// handleRemove drops watches on path and everything below it.
func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.watcher.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

// IsSubPath reports whether path lies strictly below parent.
func IsSubPath(path, parent string) bool {
	return isSubPath(path, parent)
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
