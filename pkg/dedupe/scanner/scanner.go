package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Result is the outcome of a scan.
type Result struct {
	// Root is the absolute path that was scanned.
	Root string

	// Buckets maps a byte length to every path that had it. Paths within a
	// bucket are sorted.
	Buckets map[int64][]string

	FilesScanned int64
	DirsScanned  int64
	Errors       []types.ScanError

	// Cancelled is set when the context ended the walk early. Buckets then
	// hold whatever was seen before cancellation.
	Cancelled bool

	Elapsed time.Duration
}

// Scanner partitions files under a root by size.
type Scanner struct {
	opts Options
	root string

	dirsScanned  atomic.Int64
	filesScanned atomic.Int64
	currentPath  atomic.Value
	lastProgress atomic.Int64

	mu      sync.Mutex
	buckets map[int64][]string
	errors  []types.ScanError
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	_ = opts.Validate()

	s := &Scanner{
		opts:    opts,
		buckets: make(map[int64][]string),
	}
	s.currentPath.Store("")
	return s
}

// ValidateRoot resolves root to an absolute path and checks that it is a
// readable directory. Failures wrap types.ErrInvalidRoot.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", types.ErrInvalidRoot, root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", types.ErrInvalidRoot, abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrInvalidRoot, err)
	}
	_ = f.Close()

	return abs, nil
}

// Scan walks the tree and returns the size buckets. It blocks until the
// walk finishes or ctx is cancelled; cancellation is not an error.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	start := time.Now()

	root, err := ValidateRoot(s.opts.Root)
	if err != nil {
		return nil, err
	}
	s.root = root
	s.currentPath.Store(root)
	s.reportProgressForce()

	if s.opts.Recursive {
		err = s.walk(ctx)
	} else {
		err = s.list(ctx)
	}
	if err != nil {
		return nil, err
	}

	cancelled := ctx.Err() != nil
	if !cancelled {
		// A root that disappeared mid-walk yields a silently short result.
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("scan root lost during walk: %w", err)
		}
	}

	for size := range s.buckets {
		slices.Sort(s.buckets[size])
	}
	s.reportProgressForce()

	return &Result{
		Root:         root,
		Buckets:      s.buckets,
		FilesScanned: s.filesScanned.Load(),
		DirsScanned:  s.dirsScanned.Load(),
		Errors:       s.errors,
		Cancelled:    cancelled,
		Elapsed:      time.Since(start),
	}, nil
}

// walk visits the whole tree with fastwalk.
func (s *Scanner) walk(ctx context.Context) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: s.opts.Workers,
	}

	err := fastwalk.Walk(&conf, s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == s.root {
				return fmt.Errorf("reading scan root: %w", err)
			}
			s.addError(path, err)
			return nil
		}

		if path != s.root && s.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			s.dirsScanned.Add(1)
			s.currentPath.Store(path)
			s.reportProgress()
			return nil
		}

		if d.Type().IsRegular() {
			s.processFile(path, d)
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// list considers only the root's direct children.
func (s *Scanner) list(ctx context.Context) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("reading scan root: %w", err)
	}
	s.dirsScanned.Add(1)

	for _, e := range entries {
		if ctx.Err() != nil {
			return nil
		}
		path := filepath.Join(s.root, e.Name())
		if e.IsDir() || !e.Type().IsRegular() || s.isExcluded(path) {
			continue
		}
		s.processFile(path, e)
	}
	return nil
}

// processFile stats a regular file and places it in its bucket.
func (s *Scanner) processFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	s.filesScanned.Add(1)

	size := info.Size()
	if size < s.opts.MinSize {
		return
	}

	s.mu.Lock()
	s.buckets[size] = append(s.buckets[size], path)
	s.mu.Unlock()
}

// addError records a skipped entry and forwards it to OnError.
func (s *Scanner) addError(path string, err error) {
	s.mu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.mu.Unlock()

	if s.opts.OnError != nil {
		s.opts.OnError(path, err)
	}
}

// reportProgress calls OnProgress at most every 10ms.
func (s *Scanner) reportProgress() {
	if s.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if now-last < 10 {
		return
	}
	if !s.lastProgress.CompareAndSwap(last, now) {
		return
	}

	s.sendProgress()
}

func (s *Scanner) reportProgressForce() {
	if s.opts.OnProgress == nil {
		return
	}
	s.lastProgress.Store(time.Now().UnixMilli())
	s.sendProgress()
}

func (s *Scanner) sendProgress() {
	current, _ := s.currentPath.Load().(string)
	s.opts.OnProgress(Progress{
		DirsScanned:  s.dirsScanned.Load(),
		FilesScanned: s.filesScanned.Load(),
		CurrentPath:  current,
	})
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string) bool {
	for _, pattern := range s.opts.Exclude {
		if matchesExclusionPattern(path, pattern) {
			return true
		}
	}
	return false
}

// matchesExclusionPattern matches a directory prefix, a glob against the
// base name, or a glob against the full path.
func matchesExclusionPattern(path, pattern string) bool {
	if pattern == "" {
		return false
	}

	if path == pattern || (len(path) > len(pattern) && path[:len(pattern)+1] == pattern+string(filepath.Separator)) {
		return true
	}

	if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	return false
}
