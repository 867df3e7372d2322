// Package manifest keeps an audit trail of deletions, one JSON file per
// deletion call. The engine only ever writes it; the history command reads
// it back.
package manifest

import "time"

// Entry represents a single deletion call.
type Entry struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	JobID     string       `json:"job_id"`
	Root      string       `json:"root"`
	Digest    string       `json:"digest"`
	Kept      []string     `json:"kept"`
	Files     []FileRecord `json:"files"`
	Summary   Summary      `json:"summary"`
}

// FileRecord is one removed file.
type FileRecord struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Summary totals the removed files.
type Summary struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}
