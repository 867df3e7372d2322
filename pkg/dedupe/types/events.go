package types

import "time"

// EventKind names what changed in a job.
type EventKind string

// Job event kinds.
const (
	EventStatus     EventKind = "status"
	EventLog        EventKind = "log"
	EventGroups     EventKind = "groups"
	EventDeleted    EventKind = "deleted"
	EventReconciled EventKind = "reconciled"
	EventCleared    EventKind = "cleared"
)

// JobEvent is pushed to watchers whenever the job changes. It carries the
// counters so a watcher can render progress without fetching a snapshot.
type JobEvent struct {
	Kind     EventKind `json:"kind"`
	JobID    string    `json:"job_id,omitempty"`
	Status   Status    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Summary  Summary   `json:"summary"`
	Progress Progress  `json:"progress"`
	Digest   string    `json:"digest,omitempty"`
	Time     time.Time `json:"time"`
}

// DeletionRecord describes one deletion call that removed files.
type DeletionRecord struct {
	JobID   string    `json:"job_id"`
	Root    string    `json:"root"`
	Digest  string    `json:"digest"`
	Size    int64     `json:"size"`
	Kept    []string  `json:"kept"`
	Removed []string  `json:"removed"`
	Time    time.Time `json:"time"`
}
