// Package scanner walks a directory tree and partitions its regular files
// into buckets of identical byte length. Buckets with a single member can
// never hold duplicates and are dropped by Candidates before hashing.
package scanner

import (
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
)

// Progress is reported periodically while the walk runs.
type Progress struct {
	DirsScanned  int64
	FilesScanned int64
	CurrentPath  string
}

// Options configures the scanner behavior.
type Options struct {
	// Root is the starting directory for the scan.
	Root string

	// Recursive descends into subdirectories. When false only the root's
	// direct children are considered.
	Recursive bool

	// MinSize is the smallest file, in bytes, placed in a bucket. Smaller
	// files are still counted in FilesScanned.
	MinSize int64

	// Exclude contains glob patterns matched against base names and full
	// paths. A matching directory is not descended into.
	Exclude []string

	// Workers is the number of fastwalk workers in recursive mode.
	Workers int

	// OnError is called for every entry that could not be read or stat'ed.
	// It must be safe to call from multiple goroutines.
	OnError func(path string, err error)

	// OnProgress is called periodically with walk progress.
	// It must be safe to call from multiple goroutines.
	OnProgress func(Progress)
}

// DefaultOptions returns options with sensible defaults for most systems.
func DefaultOptions() Options {
	return Options{
		Root:      config.DefaultPath,
		Recursive: true,
		Exclude:   config.DefaultExclusions,
		Workers:   config.DefaultScanWorkers,
	}
}

// Validate fills defaults for unset values.
func (o *Options) Validate() error {
	if o.Root == "" {
		o.Root = config.DefaultPath
	}
	if o.Workers < 1 {
		o.Workers = config.DefaultScanWorkers
	}
	if o.MinSize < 0 {
		o.MinSize = 0
	}
	return nil
}
