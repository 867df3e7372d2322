// Package job owns the single live duplicate scan: its lifecycle, the
// snapshot callers read, and the deletions that mutate it.
//
// Every read and write of job state goes through the Controller's lock.
// The pipeline goroutine publishes discovered groups in batches while
// deletions may run at any time, including mid-hash.
package job

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/dedupe/pkg/dedupe/hasher"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/manifest"
	"github.com/jamesainslie/dedupe/pkg/dedupe/scanner"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
	"github.com/jamesainslie/dedupe/pkg/dedupe/watcher"
)

// DefaultPublishInterval is how often the pipeline merges new groups into
// the snapshot.
const DefaultPublishInterval = 30 * time.Second

// Messages shown in Snapshot.Message.
const (
	MessageIdle     = "waiting for command"
	MessageStopping = "stopping"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("controller closed")

// Cache is the digest cache used by the hash pool.
type Cache interface {
	hasher.Cache
	Invalidate(path string) error
}

// Publisher receives job events. Publish must not block.
type Publisher interface {
	Publish(types.JobEvent)
}

// Recorder persists deletion records.
type Recorder interface {
	Record(types.DeletionRecord) (*manifest.Entry, error)
}

// Options configures a Controller.
type Options struct {
	// PublishInterval is the minimum wall-clock time between partial
	// publications. Zero means DefaultPublishInterval.
	PublishInterval time.Duration

	// Workers bounds concurrent file hashing within a bucket.
	Workers int

	// ScanWorkers is the number of directory walker workers.
	ScanWorkers int

	// Exclude holds glob patterns skipped by the scan.
	Exclude []string

	// MinSize skips files smaller than this many bytes.
	MinSize int64

	// Cache is optional.
	Cache Cache

	// Remover deletes files. Nil means OSRemover.
	Remover Remover

	// Manifest records deletions. Optional.
	Manifest Recorder

	// Events receives job events. Optional.
	Events Publisher

	// Watch drops group members removed outside the engine.
	Watch bool
}

// Handle identifies a started job.
type Handle struct {
	ID string

	// Done is closed when the pipeline goroutine exits.
	Done <-chan struct{}
}

// state is the mutable job. Guarded by Controller.mu.
type state struct {
	id         string
	root       string
	recursive  bool
	status     types.Status
	message    string
	startedAt  time.Time
	finishedAt time.Time
	log        *logging.LogBuffer
	summary    types.Summary
	progress   types.Progress
	groups     []types.DuplicateGroup
	err        string
}

func idleState() *state {
	return &state{
		status:  types.StatusIdle,
		message: MessageIdle,
		log:     logging.NewLogBuffer(logging.DefaultBufferSize),
	}
}

// Controller runs at most one job at a time.
type Controller struct {
	opts Options

	mu         sync.RWMutex
	job        *state
	gen        uint64
	cancel     context.CancelFunc
	done       chan struct{}
	stopLogged bool
	closed     bool

	// watchCancel stops the reconciler of the current job.
	watchCancel context.CancelFunc

	// deleteMu serializes deletion calls.
	deleteMu sync.Mutex
}

// NewController returns an idle controller.
func NewController(opts Options) *Controller {
	if opts.PublishInterval <= 0 {
		opts.PublishInterval = DefaultPublishInterval
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Remover == nil {
		opts.Remover = OSRemover{}
	}
	return &Controller{
		opts: opts,
		job:  idleState(),
	}
}

func logger() *logging.Logger {
	return logging.Get("job")
}

// Start validates root and launches a new job. It fails with
// types.ErrInvalidRoot before touching any state, and with
// types.ErrAlreadyRunning while a job is scanning or hashing.
func (c *Controller) Start(root string, recursive bool) (Handle, error) {
	abs, err := scanner.ValidateRoot(root)
	if err != nil {
		return Handle{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Handle{}, ErrClosed
	}
	if c.job.status.Active() {
		c.mu.Unlock()
		return Handle{}, types.ErrAlreadyRunning
	}

	c.stopWatchLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.gen++
	gen := c.gen
	c.job = &state{
		id:        uuid.NewString(),
		root:      abs,
		recursive: recursive,
		status:    types.StatusScanning,
		message:   "scanning " + abs,
		startedAt: time.Now(),
		log:       logging.NewLogBuffer(logging.DefaultBufferSize),
	}
	c.cancel = cancel
	c.done = done
	c.stopLogged = false
	id := c.job.id
	c.mu.Unlock()

	mode := "recursive"
	if !recursive {
		mode = "top level only"
	}
	c.logf(gen, "scanning %s (%s)", abs, mode)
	c.emit(types.EventStatus, "")

	go c.run(ctx, gen, abs, recursive, done)

	return Handle{ID: id, Done: done}, nil
}

// RequestStop asks the running pipeline to stop. It never blocks and is a
// no-op when nothing is running.
func (c *Controller) RequestStop() {
	c.mu.Lock()
	if !c.job.status.Active() {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	first := !c.stopLogged
	c.stopLogged = true
	if first {
		c.job.message = MessageStopping
	}
	gen := c.gen
	c.mu.Unlock()

	if first {
		c.logf(gen, "stop requested")
		c.emit(types.EventStatus, "")
	}
}

// Snapshot returns a deep copy of the current job.
func (c *Controller) Snapshot() types.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() types.Snapshot {
	j := c.job
	groups := make([]types.DuplicateGroup, len(j.groups))
	for i := range j.groups {
		groups[i] = j.groups[i].Clone()
	}
	return types.Snapshot{
		ID:           j.id,
		Root:         j.root,
		Recursive:    j.recursive,
		Status:       j.status,
		Message:      j.message,
		StartedAt:    j.startedAt,
		FinishedAt:   j.finishedAt,
		Log:          j.log.Messages(),
		Summary:      j.summary,
		Progress:     j.progress,
		Groups:       groups,
		ScanComplete: j.status == types.StatusDone,
		Error:        j.err,
	}
}

// AppendLog adds a line to the job log, evicting the oldest beyond 500.
func (c *Controller) AppendLog(msg string) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()
	c.appendLog(gen, logging.LevelInfo, msg)
}

func (c *Controller) logf(gen uint64, format string, args ...any) {
	c.appendLog(gen, logging.LevelInfo, fmt.Sprintf(format, args...))
}

func (c *Controller) warnf(gen uint64, format string, args ...any) {
	c.appendLog(gen, logging.LevelWarn, fmt.Sprintf(format, args...))
}

// appendLog drops lines from a job that has since been replaced.
func (c *Controller) appendLog(gen uint64, level logging.Level, msg string) {
	c.mu.RLock()
	if gen != c.gen {
		c.mu.RUnlock()
		return
	}
	c.job.log.Add(logging.LogEntry{
		Time:      time.Now(),
		Level:     level,
		Component: "job",
		Message:   msg,
	})
	id := c.job.id
	c.mu.RUnlock()

	logger().Log(level, msg, "job", id)
	c.emit(types.EventLog, "")
}

// PublishPartial merges groups into the snapshot in one step.
func (c *Controller) PublishPartial(groups []types.DuplicateGroup) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()
	c.publishPartial(gen, groups)
}

func (c *Controller) publishPartial(gen uint64, groups []types.DuplicateGroup) {
	if len(groups) == 0 {
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	added := 0
	for _, g := range groups {
		if c.mergeLocked(g) {
			added++
		}
	}
	c.recomputeLocked()
	total := len(c.job.groups)
	c.mu.Unlock()

	c.logf(gen, "partial update: %d new groups, %d total", added, total)
	c.emit(types.EventGroups, "")
}

// mergeLocked adds g, or unions its paths into an existing group with the
// same key. Reports whether a group was added.
func (c *Controller) mergeLocked(g types.DuplicateGroup) bool {
	key := g.Key()
	for i := range c.job.groups {
		existing := &c.job.groups[i]
		if existing.Key() != key {
			continue
		}
		for _, p := range g.Paths {
			if !slices.Contains(existing.Paths, p) {
				existing.Paths = append(existing.Paths, p)
			}
		}
		existing.Resolved = len(existing.Paths) <= 1
		return false
	}
	c.job.groups = append(c.job.groups, g.Clone())
	return true
}

// recomputeLocked refreshes the group counters of the summary.
func (c *Controller) recomputeLocked() {
	s := &c.job.summary
	s.DuplicateGroups = 0
	s.DuplicateFiles = 0
	s.ReclaimedBytes = 0
	for _, g := range c.job.groups {
		s.ReclaimedBytes += g.ReclaimedBytes
		if len(g.Paths) >= 2 {
			s.DuplicateGroups++
			s.DuplicateFiles += len(g.Paths)
		}
	}
}

// Clear resets the controller to Idle. It fails while a job is active.
func (c *Controller) Clear() error {
	c.mu.Lock()
	if c.job.status.Active() {
		c.mu.Unlock()
		return types.ErrAlreadyRunning
	}
	c.stopWatchLocked()
	c.gen++
	c.job = idleState()
	c.cancel = nil
	c.mu.Unlock()

	logger().Info("state cleared")
	c.emit(types.EventCleared, "")
	return nil
}

// PruneResolved drops groups that no longer hold duplicates and returns
// how many were removed.
func (c *Controller) PruneResolved() int {
	c.mu.Lock()
	before := len(c.job.groups)
	c.job.groups = slices.DeleteFunc(c.job.groups, func(g types.DuplicateGroup) bool {
		return g.Resolved || len(g.Paths) < 2
	})
	pruned := before - len(c.job.groups)
	c.recomputeLocked()
	gen := c.gen
	c.mu.Unlock()

	if pruned > 0 {
		c.logf(gen, "pruned %d resolved groups", pruned)
		c.emit(types.EventGroups, "")
	}
	return pruned
}

// Wait blocks until the current job's pipeline exits or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any running job, waits for it and stops the reconciler.
// Later Start calls fail with ErrClosed.
func (c *Controller) Close() error {
	c.RequestStop()
	_ = c.Wait(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopWatchLocked()
	return nil
}

// emit publishes the current counters. Safe to call without the lock.
func (c *Controller) emit(kind types.EventKind, digest string) {
	if c.opts.Events == nil {
		return
	}
	c.mu.RLock()
	ev := types.JobEvent{
		Kind:     kind,
		JobID:    c.job.id,
		Status:   c.job.status,
		Message:  c.job.message,
		Summary:  c.job.summary,
		Progress: c.job.progress,
		Digest:   digest,
		Time:     time.Now(),
	}
	c.mu.RUnlock()
	c.opts.Events.Publish(ev)
}

// startWatch runs the reconciler for the job identified by gen.
func (c *Controller) startWatch(gen uint64, root string, recursive bool) {
	w, err := watcher.New(recursive)
	if err != nil {
		c.warnf(gen, "watch disabled: %v", err)
		return
	}
	if err := w.Watch(root); err != nil {
		_ = w.Close()
		c.warnf(gen, "watch disabled: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		cancel()
		_ = w.Close()
		return
	}
	c.watchCancel = cancel
	c.mu.Unlock()

	go func() {
		defer func() { _ = w.Close() }()
		w.Run(ctx, watcher.Handler{
			Removed: func(path string) { c.reconcile(gen, path) },
			Changed: c.invalidate,
		})
	}()
}

func (c *Controller) stopWatchLocked() {
	if c.watchCancel != nil {
		c.watchCancel()
		c.watchCancel = nil
	}
}

func (c *Controller) invalidate(path string) {
	if c.opts.Cache == nil {
		return
	}
	if err := c.opts.Cache.Invalidate(path); err != nil {
		logger().Warn("cache invalidation failed", "path", path, "error", err)
	}
}
