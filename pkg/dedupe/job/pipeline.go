package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dedupe/pkg/dedupe/hasher"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/scanner"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Log every progressEvery buckets, and for any bucket larger than
// largeBucket files.
const (
	progressEvery = 100
	largeBucket   = 10
)

// run drives one job from scanning to a terminal state. Every state write
// checks gen so a replaced job never touches its successor.
func (c *Controller) run(ctx context.Context, gen uint64, root string, recursive bool, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			c.finish(gen, types.StatusFailed, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	sc := scanner.New(scanner.Options{
		Root:      root,
		Recursive: recursive,
		MinSize:   c.opts.MinSize,
		Exclude:   c.opts.Exclude,
		Workers:   c.opts.ScanWorkers,
		OnError: func(path string, err error) {
			c.warnf(gen, "skipped %s: %v", path, err)
		},
		OnProgress: func(p scanner.Progress) {
			c.scanProgress(ctx, gen, p)
		},
	})

	res, err := sc.Scan(ctx)
	if err != nil {
		c.finish(gen, types.StatusFailed, err)
		return
	}

	c.update(gen, func(j *state) {
		j.summary.TotalFiles = res.FilesScanned
	})
	c.logf(gen, "scanned %d files in %d directories (%s)",
		res.FilesScanned, res.DirsScanned, res.Elapsed.Round(time.Millisecond))

	if res.Cancelled {
		c.finish(gen, types.StatusStopped, nil)
		return
	}

	candidates := scanner.Candidates(res.Buckets)
	if len(candidates) == 0 {
		c.logf(gen, "no duplicate candidates")
		c.finish(gen, types.StatusDone, nil)
		return
	}

	c.logf(gen, "found %d candidate groups covering %d files",
		len(candidates), scanner.CountPaths(candidates))

	c.update(gen, func(j *state) {
		j.status = types.StatusHashing
		j.message = fmt.Sprintf("hashing %d candidate groups", len(candidates))
		j.progress.BucketsTotal = len(candidates)
	})
	c.logf(gen, "hashing with %d workers, %d buckets", c.opts.Workers, len(candidates))
	c.emit(types.EventStatus, "")

	if c.opts.Watch {
		go c.startWatch(gen, root, recursive)
	}

	pool := hasher.NewPool(c.opts.Workers, c.opts.Cache)
	c.hashBuckets(ctx, gen, pool, candidates)

	if ctx.Err() != nil {
		c.finish(gen, types.StatusStopped, nil)
		return
	}
	c.finish(gen, types.StatusDone, nil)
}

// hashBuckets refines each bucket in turn, publishing accumulated groups
// whenever the publish interval has elapsed and once more on the way out.
func (c *Controller) hashBuckets(ctx context.Context, gen uint64, pool *hasher.Pool, buckets []types.SizeGroup) {
	var pending []types.DuplicateGroup
	last := time.Now()

	defer func() {
		c.publishPartial(gen, pending)
	}()

	for i, bucket := range buckets {
		if ctx.Err() != nil {
			return
		}

		size, paths := bucket.Size, bucket.Paths
		if (i+1)%progressEvery == 0 || len(paths) > largeBucket {
			c.logf(gen, "bucket %d/%d: %d files of %s",
				i+1, len(buckets), len(paths), humanize.IBytes(uint64(size)))
		}

		res, err := pool.HashBucket(ctx, size, paths)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.warnf(gen, "bucket of %d bytes skipped: %v", size, err)
			continue
		}

		for _, f := range res.Failures {
			c.warnf(gen, "could not hash %s: %v", f.Path, f.Err)
		}
		for _, g := range res.Groups {
			c.logf(gen, "duplicates found: %d files of %s (%s)",
				len(g.Paths), humanize.IBytes(uint64(g.Size)), g.Digest)
		}
		pending = append(pending, res.Groups...)

		c.update(gen, func(j *state) {
			j.progress.BucketsDone = i + 1
			j.progress.FilesHashed += int64(res.Hashed)
			j.progress.HashFailures += int64(len(res.Failures))
		})

		if time.Since(last) >= c.opts.PublishInterval {
			c.publishPartial(gen, pending)
			pending = nil
			last = time.Now()
		}
	}
}

// scanProgress publishes the live file count while the walk runs.
func (c *Controller) scanProgress(ctx context.Context, gen uint64, p scanner.Progress) {
	ok := c.update(gen, func(j *state) {
		j.summary.TotalFiles = p.FilesScanned
		if ctx.Err() == nil && p.CurrentPath != "" {
			j.message = "scanning " + p.CurrentPath
		}
	})
	if ok {
		c.emit(types.EventStatus, "")
	}
}

// update applies fn to the job if gen is still current.
func (c *Controller) update(gen uint64, fn func(*state)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	fn(c.job)
	return true
}

// finish moves the job to a terminal status. Failed keeps whatever the
// snapshot already holds.
func (c *Controller) finish(gen uint64, status types.Status, cause error) {
	var msg string
	ok := c.update(gen, func(j *state) {
		j.status = status
		j.finishedAt = time.Now()
		switch status {
		case types.StatusDone:
			j.message = fmt.Sprintf("done: %d duplicate groups", j.summary.DuplicateGroups)
		case types.StatusStopped:
			j.message = "stopped"
		case types.StatusFailed:
			j.message = "failed"
			if cause != nil {
				j.err = cause.Error()
				j.message = "failed: " + cause.Error()
			}
		}
		msg = j.message
	})
	if !ok {
		return
	}

	if status == types.StatusFailed {
		c.appendLog(gen, logging.LevelError, msg)
	} else {
		c.logf(gen, "%s", msg)
	}
	c.emit(types.EventStatus, "")
}
