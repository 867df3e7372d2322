package job

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
	"github.com/jamesainslie/dedupe/pkg/dedupe/watcher"
)

// plan is the part of a group a deletion works on, copied under the read
// lock.
type plan struct {
	gen   uint64
	jobID string
	root  string
	group types.DuplicateGroup
}

// outcome is what the removal step did, applied under the write lock.
type outcome struct {
	removed []string
	gone    []string
	errs    []string
}

// DeleteGroup keeps the first member of the group and removes every other
// one. It fails with types.ErrNotFound when no group with at least two
// members has the digest.
func (c *Controller) DeleteGroup(digest string) (types.DeleteResult, error) {
	c.deleteMu.Lock()
	defer c.deleteMu.Unlock()

	p, ok := c.plan(digest)
	if !ok || len(p.group.Paths) < 2 {
		return types.DeleteResult{}, fmt.Errorf("group %s: %w", digest, types.ErrNotFound)
	}

	keep := p.group.Paths[0]
	out := c.removeAll(p.group.Paths[1:])
	return c.apply(p, keep, out), nil
}

// DeleteSelected removes the given members of a group. Paths that are not
// members are reported as errors and left alone. A selection covering every
// remaining member is refused so the last copy always survives.
func (c *Controller) DeleteSelected(digest string, paths []string) (types.DeleteResult, error) {
	if len(paths) == 0 {
		return types.DeleteResult{}, fmt.Errorf("no paths selected: %w", types.ErrInvalidArgument)
	}

	c.deleteMu.Lock()
	defer c.deleteMu.Unlock()

	p, ok := c.plan(digest)
	if !ok {
		return types.DeleteResult{}, fmt.Errorf("group %s: %w", digest, types.ErrNotFound)
	}

	var (
		selected []string
		foreign  []string
	)
	for _, path := range paths {
		switch {
		case slices.Contains(selected, path):
		case slices.Contains(p.group.Paths, path):
			selected = append(selected, path)
		default:
			foreign = append(foreign, path)
		}
	}

	if len(selected) > 0 && len(selected) >= len(p.group.Paths) {
		return types.DeleteResult{}, fmt.Errorf("selection would remove every copy: %w", types.ErrInvalidArgument)
	}

	out := c.removeAll(selected)
	for _, path := range foreign {
		out.errs = append(out.errs, path+": not a member of the group")
	}

	var keep string
	for _, path := range p.group.Paths {
		if !slices.Contains(selected, path) {
			keep = path
			break
		}
	}
	return c.apply(p, keep, out), nil
}

// plan copies the group with digest under the read lock.
func (c *Controller) plan(digest string) (plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := range c.job.groups {
		if c.job.groups[i].Digest == digest {
			return plan{
				gen:   c.gen,
				jobID: c.job.id,
				root:  c.job.root,
				group: c.job.groups[i].Clone(),
			}, true
		}
	}
	return plan{}, false
}

// removeAll runs without holding the state lock.
func (c *Controller) removeAll(paths []string) outcome {
	var out outcome
	for _, path := range paths {
		err := c.opts.Remover.Remove(path)
		switch {
		case err == nil:
			out.removed = append(out.removed, path)
		case errors.Is(err, fs.ErrNotExist):
			out.gone = append(out.gone, path)
		default:
			out.errs = append(out.errs, fmt.Sprintf("%s: %v", path, err))
		}
	}
	return out
}

// apply folds the outcome into the group in one step and records it.
func (c *Controller) apply(p plan, keep string, out outcome) types.DeleteResult {
	size := p.group.Size
	res := types.DeleteResult{
		Digest:         p.group.Digest,
		Kept:           keep,
		DeletedCount:   len(out.removed),
		ReclaimedBytes: int64(len(out.removed)) * size,
		Errors:         out.errs,
	}

	drop := append(slices.Clone(out.removed), out.gone...)

	res.Resolved = len(p.group.Paths)-len(drop) <= 1

	c.mu.Lock()
	if p.gen == c.gen {
		key := p.group.Key()
		for i := range c.job.groups {
			g := &c.job.groups[i]
			if g.Key() != key {
				continue
			}
			g.Paths = slices.DeleteFunc(g.Paths, func(path string) bool {
				return slices.Contains(drop, path)
			})
			g.DeletedCount += res.DeletedCount
			g.ReclaimedBytes += res.ReclaimedBytes
			g.Resolved = len(g.Paths) <= 1
			res.Resolved = g.Resolved
			break
		}
		c.recomputeLocked()
	}
	c.mu.Unlock()

	for _, e := range out.errs {
		c.warnf(p.gen, "delete failed: %s", e)
	}
	if len(out.removed) > 0 {
		c.logf(p.gen, "deleted %d files from group %s, reclaimed %s",
			len(out.removed), p.group.Digest, humanize.IBytes(uint64(res.ReclaimedBytes)))
		c.record(p, keep, out.removed)
	}
	c.emit(types.EventDeleted, p.group.Digest)

	return res
}

func (c *Controller) record(p plan, keep string, removed []string) {
	if c.opts.Manifest == nil {
		return
	}
	var kept []string
	if keep != "" {
		kept = []string{keep}
	}
	_, err := c.opts.Manifest.Record(types.DeletionRecord{
		JobID:   p.jobID,
		Root:    p.root,
		Digest:  p.group.Digest,
		Size:    p.group.Size,
		Kept:    kept,
		Removed: removed,
		Time:    time.Now(),
	})
	if err != nil {
		c.warnf(p.gen, "manifest write failed: %v", err)
	}
}

// Reconcile drops path from the current job's groups. The watcher calls it
// for files deleted outside the engine.
func (c *Controller) Reconcile(path string) {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()
	c.reconcile(gen, path)
}

// reconcile drops path, and anything below it, from every group after it
// disappeared from disk.
func (c *Controller) reconcile(gen uint64, path string) {
	gone := func(p string) bool {
		return p == path || watcher.IsSubPath(p, path)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	dropped := 0
	for i := range c.job.groups {
		g := &c.job.groups[i]
		before := len(g.Paths)
		g.Paths = slices.DeleteFunc(g.Paths, gone)
		dropped += before - len(g.Paths)
	}
	c.job.groups = slices.DeleteFunc(c.job.groups, func(g types.DuplicateGroup) bool {
		return len(g.Paths) == 0
	})
	if dropped > 0 {
		c.recomputeLocked()
	}
	c.mu.Unlock()

	c.invalidate(path)
	if dropped > 0 {
		c.logf(gen, "%s removed outside dedupe, dropped %d paths", path, dropped)
		c.emit(types.EventReconciled, "")
	}
}
