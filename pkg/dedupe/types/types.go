// Package types provides the core data types of the dedupe engine: size
// buckets, duplicate groups, job status and the read-only snapshot handed
// to callers, along with helpers for parsing and formatting sizes.
package types

import (
	"time"
)

// Status is the lifecycle state of a scan job.
type Status int

// Job states. Done, Stopped and Failed are terminal until the job is cleared
// or replaced by a new one.
const (
	StatusIdle Status = iota
	StatusScanning
	StatusHashing
	StatusDone
	StatusStopped
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusScanning:
		return "scanning"
	case StatusHashing:
		return "hashing"
	case StatusDone:
		return "done"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Active reports whether a pipeline is running for the job.
func (s Status) Active() bool {
	return s == StatusScanning || s == StatusHashing
}

// Terminal reports whether the job has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusStopped || s == StatusFailed
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// ParseStatus converts a status name back into a Status.
// Unknown names map to StatusIdle.
func ParseStatus(name string) Status {
	for s := StatusIdle; s <= StatusFailed; s++ {
		if s.String() == name {
			return s
		}
	}
	return StatusIdle
}

// SizeGroup is a set of files that had identical byte length when stat'ed.
type SizeGroup struct {
	Size  int64    `json:"size" yaml:"size"`
	Paths []string `json:"paths" yaml:"paths"`
}

// DuplicateGroup is a set of files confirmed to share size and digest.
//
// Paths always holds at least one entry. Paths[0] is the copy kept by a
// whole-group deletion. ReclaimedBytes always equals DeletedCount * Size.
type DuplicateGroup struct {
	// Digest is the 16 character hex content fingerprint.
	Digest string `json:"digest" yaml:"digest"`

	// Size is the byte length shared by every member.
	Size int64 `json:"size" yaml:"size"`

	// Paths are the remaining members in bucket order.
	Paths []string `json:"paths" yaml:"paths"`

	// MimeType is sniffed from the leading bytes of the first member.
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`

	// DeletedCount is the number of members removed so far.
	DeletedCount int `json:"deleted_count" yaml:"deleted_count"`

	// ReclaimedBytes is the space freed by deletions in this group.
	ReclaimedBytes int64 `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`

	// Resolved is set once a deletion leaves at most one member.
	Resolved bool `json:"resolved" yaml:"resolved"`
}

// Key returns the identity of the group inside a snapshot.
func (g *DuplicateGroup) Key() GroupKey {
	return GroupKey{Size: g.Size, Digest: g.Digest}
}

// Wasted returns the bytes that deleting all but one member would free.
func (g *DuplicateGroup) Wasted() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return int64(len(g.Paths)-1) * g.Size
}

// Clone returns a deep copy of the group.
func (g *DuplicateGroup) Clone() DuplicateGroup {
	c := *g
	c.Paths = append([]string(nil), g.Paths...)
	return c
}

// GroupKey identifies a duplicate group. Two groups with the same digest but
// different sizes are distinct.
type GroupKey struct {
	Size   int64
	Digest string
}

// Summary holds the counters shown alongside the groups.
type Summary struct {
	// TotalFiles is the number of files successfully stat'ed by the scan.
	TotalFiles int64 `json:"total_files" yaml:"total_files"`

	// DuplicateGroups counts groups that still hold two or more members.
	DuplicateGroups int `json:"duplicate_groups" yaml:"duplicate_groups"`

	// DuplicateFiles counts the members of those groups.
	DuplicateFiles int `json:"duplicate_files" yaml:"duplicate_files"`

	// ReclaimedBytes is the total space freed by deletions so far.
	ReclaimedBytes int64 `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
}

// Progress reports how far hashing has advanced.
type Progress struct {
	BucketsTotal int   `json:"buckets_total" yaml:"buckets_total"`
	BucketsDone  int   `json:"buckets_done" yaml:"buckets_done"`
	FilesHashed  int64 `json:"files_hashed" yaml:"files_hashed"`
	HashFailures int64 `json:"hash_failures" yaml:"hash_failures"`
}

// Snapshot is a consistent, read-only copy of the current job.
// Callers own the returned slices.
type Snapshot struct {
	ID           string           `json:"id,omitempty" yaml:"id,omitempty"`
	Root         string           `json:"root,omitempty" yaml:"root,omitempty"`
	Recursive    bool             `json:"recursive" yaml:"recursive"`
	Status       Status           `json:"status" yaml:"status"`
	Message      string           `json:"message" yaml:"message"`
	StartedAt    time.Time        `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt   time.Time        `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Log          []string         `json:"log" yaml:"log"`
	Summary      Summary          `json:"summary" yaml:"summary"`
	Progress     Progress         `json:"progress" yaml:"progress"`
	Groups       []DuplicateGroup `json:"groups" yaml:"groups"`
	ScanComplete bool             `json:"scan_complete" yaml:"scan_complete"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Group returns the group with the given digest, if present.
func (s *Snapshot) Group(digest string) (DuplicateGroup, bool) {
	for _, g := range s.Groups {
		if g.Digest == digest {
			return g, true
		}
	}
	return DuplicateGroup{}, false
}

// Elapsed returns how long the job ran, or has been running.
func (s *Snapshot) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// DeleteResult reports the outcome of a single deletion call.
type DeleteResult struct {
	Digest         string   `json:"digest"`
	Kept           string   `json:"kept,omitempty"`
	DeletedCount   int      `json:"deleted_count"`
	ReclaimedBytes int64    `json:"reclaimed_bytes"`
	Errors         []string `json:"errors,omitempty"`
	Resolved       bool     `json:"resolved"`
}

// ScanError pairs a path with the reason it was skipped.
type ScanError struct {
	// Path is the file or directory where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}
