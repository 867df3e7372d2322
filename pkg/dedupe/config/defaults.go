// Package config loads dedupe settings from the YAML config file and
// DEDUPE_* environment variables.
package config

import "time"

// Default configuration values.
const (
	// DefaultMinSize includes every regular file, empty ones too.
	DefaultMinSize = "0"

	// DefaultPath is the path scanned when none is given.
	DefaultPath = "."

	// DefaultPublishInterval is how often partial results reach the snapshot.
	DefaultPublishInterval = 30 * time.Second

	// DefaultDeleteMode removes files outright.
	DefaultDeleteMode = DeleteModeRemove

	// DefaultRetentionDays is how long deletion manifests are kept.
	DefaultRetentionDays = 30

	// DefaultScanWorkers is the number of directory walker workers.
	DefaultScanWorkers = 4

	// DefaultHashWorkers lets the tuner pick 2x NumCPU, capped at 64.
	DefaultHashWorkers = 0

	// MaxHashWorkers caps the hash pool.
	MaxHashWorkers = 64
)

// Deletion modes.
const (
	DeleteModeRemove = "remove"
	DeleteModeTrash  = "trash"
)

// DefaultExclusions are glob patterns skipped by every scan.
var DefaultExclusions = []string{
	".git",
	".Trash",
	".DS_Store",
}
