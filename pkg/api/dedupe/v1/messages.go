// Package dedupev1 declares the dedupe.v1.DedupeDaemon gRPC service spoken
// between the dedupe CLI and the dedupd daemon. Messages are plain Go
// structs carried by a JSON codec.
package dedupev1

import "github.com/jamesainslie/dedupe/pkg/dedupe/types"

// StartScanRequest starts a job on Root.
type StartScanRequest struct {
	Root      string `json:"root" validate:"required"`
	Recursive bool   `json:"recursive"`
}

// StartScanResponse reports admission. Error holds a short code such as
// AlreadyRunning or InvalidRoot when OK is false.
type StartScanResponse struct {
	OK      bool   `json:"ok"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type RequestStopRequest struct{}

type RequestStopResponse struct {
	OK bool `json:"ok"`
}

type GetSnapshotRequest struct{}

type GetSnapshotResponse struct {
	Snapshot types.Snapshot `json:"snapshot"`
}

// DeleteGroupRequest keeps the first member of a group and removes the rest.
type DeleteGroupRequest struct {
	Digest string `json:"digest" validate:"required,len=16,hexadecimal"`
}

// DeleteSelectedRequest removes the given members of a group.
type DeleteSelectedRequest struct {
	Digest string   `json:"digest" validate:"required,len=16,hexadecimal"`
	Paths  []string `json:"paths" validate:"required,min=1,dive,required"`
}

// DeleteResponse is shared by both deletion calls.
type DeleteResponse struct {
	OK             bool     `json:"ok"`
	Kept           string   `json:"kept,omitempty"`
	DeletedCount   int      `json:"deleted_count"`
	ReclaimedBytes int64    `json:"reclaimed_bytes"`
	Errors         []string `json:"errors,omitempty"`
	Resolved       bool     `json:"resolved"`
	Error          string   `json:"error,omitempty"`
	Message        string   `json:"message,omitempty"`
}

type ClearStateRequest struct{}

type ClearStateResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type PruneResolvedRequest struct{}

type PruneResolvedResponse struct {
	OK     bool `json:"ok"`
	Pruned int  `json:"pruned"`
}

// WatchJobRequest subscribes to job events. Empty Kinds means every kind.
type WatchJobRequest struct {
	Kinds []types.EventKind `json:"kinds,omitempty" validate:"dive,oneof=status log groups deleted reconciled cleared"`
}

// JobEvent is streamed by WatchJob.
type JobEvent = types.JobEvent

type GetDaemonStatusRequest struct{}

// DaemonStatus describes the running daemon.
type DaemonStatus struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryBytes   int64  `json:"memory_bytes"`
	JobID         string `json:"job_id,omitempty"`
	JobStatus     string `json:"job_status"`
	Watchers      int    `json:"watchers"`
	CacheEntries  int    `json:"cache_entries"`
}

type ShutdownRequest struct{}

type ShutdownResponse struct {
	Success bool `json:"success"`
}
