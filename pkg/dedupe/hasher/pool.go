package hasher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Cache remembers digests of unchanged files.
type Cache interface {
	Lookup(path string, size int64, mtime time.Time) (digest, mimeType string, ok bool)
	Store(path string, size int64, mtime time.Time, digest, mimeType string)
}

// Failure is a file that could not be hashed.
type Failure struct {
	Path string
	Err  error
}

// BucketResult is the refinement of one size bucket.
type BucketResult struct {
	Size int64

	// Groups holds one entry per digest shared by two or more files, in the
	// order their first member appeared in the bucket.
	Groups []types.DuplicateGroup

	// Failures are files dropped from the bucket.
	Failures []Failure

	Hashed    int
	CacheHits int
}

// Pool hashes the members of a bucket concurrently.
type Pool struct {
	// Workers bounds concurrent file reads. Values below 1 mean 1.
	Workers int

	// Cache is optional.
	Cache Cache

	// hashFile is swapped in tests.
	hashFile func(ctx context.Context, path string, size int64) (Sum, error)
}

// NewPool returns a pool with the given worker bound and optional cache.
func NewPool(workers int, cache Cache) *Pool {
	return &Pool{Workers: workers, Cache: cache}
}

// HashBucket hashes every path, which all had the given size when scanned,
// and groups them by digest. Per-file failures are collected, never
// returned. If ctx is cancelled the partial work is discarded and the
// context error returned.
func (p *Pool) HashBucket(ctx context.Context, size int64, paths []string) (BucketResult, error) {
	sums := make([]Sum, len(paths))
	ok := make([]bool, len(paths))

	var (
		mu        sync.Mutex
		failures  []Failure
		cacheHits atomic.Int64
	)

	g := new(errgroup.Group)
	g.SetLimit(max(p.Workers, 1))

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			sum, hit, err := p.hashOne(ctx, path, size)
			if err != nil {
				if ctx.Err() == nil {
					mu.Lock()
					failures = append(failures, Failure{Path: path, Err: err})
					mu.Unlock()
				}
				return nil
			}
			if hit {
				cacheHits.Add(1)
			}
			sums[i] = sum
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return BucketResult{}, err
	}

	res := BucketResult{
		Size:      size,
		Failures:  failures,
		CacheHits: int(cacheHits.Load()),
	}

	index := make(map[string]int)
	var groups []types.DuplicateGroup
	for i, path := range paths {
		if !ok[i] {
			continue
		}
		res.Hashed++
		sum := sums[i]
		if gi, seen := index[sum.Digest]; seen {
			groups[gi].Paths = append(groups[gi].Paths, path)
			continue
		}
		index[sum.Digest] = len(groups)
		groups = append(groups, types.DuplicateGroup{
			Digest:   sum.Digest,
			Size:     size,
			Paths:    []string{path},
			MimeType: sum.MimeType,
		})
	}

	for _, grp := range groups {
		if len(grp.Paths) >= 2 {
			res.Groups = append(res.Groups, grp)
		}
	}
	return res, nil
}

// hashOne consults the cache before reading the file.
func (p *Pool) hashOne(ctx context.Context, path string, size int64) (Sum, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Sum{}, false, err
	}
	if !info.Mode().IsRegular() {
		return Sum{}, false, errors.New("no longer a regular file")
	}
	if info.Size() != size {
		return Sum{}, false, fmt.Errorf("%w: now %d bytes, scanned at %d", ErrSizeChanged, info.Size(), size)
	}

	if p.Cache != nil {
		if digest, mimeType, ok := p.Cache.Lookup(path, size, info.ModTime()); ok {
			return Sum{Digest: digest, MimeType: mimeType}, true, nil
		}
	}

	hash := p.hashFile
	if hash == nil {
		hash = HashFile
	}
	sum, err := hash(ctx, path, size)
	if err != nil {
		return Sum{}, false, err
	}

	if p.Cache != nil {
		p.Cache.Store(path, size, info.ModTime(), sum.Digest, sum.MimeType)
	}
	return sum, false, nil
}
