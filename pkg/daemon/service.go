package daemon

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dedupev1 "github.com/jamesainslie/dedupe/pkg/api/dedupe/v1"
	"github.com/jamesainslie/dedupe/pkg/daemon/broadcaster"
	"github.com/jamesainslie/dedupe/pkg/dedupe/engine"
	"github.com/jamesainslie/dedupe/pkg/dedupe/job"
	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Service implements the DedupeDaemon gRPC service on top of one engine.
type Service struct {
	dedupev1.UnimplementedDedupeDaemonServer

	engine    *engine.Engine
	events    *broadcaster.Broadcaster
	startTime time.Time
	version   string

	// shutdown is called once a Shutdown RPC has been answered.
	shutdown func()
}

// NewService creates the service. events may be nil, in which case WatchJob
// is unavailable. shutdown may be nil.
func NewService(e *engine.Engine, events *broadcaster.Broadcaster, version string, shutdown func()) *Service {
	return &Service{
		engine:    e,
		events:    events,
		startTime: time.Now(),
		version:   version,
		shutdown:  shutdown,
	}
}

// rpcError converts errors that are not part of a response body into gRPC
// status errors.
func rpcError(err error) error {
	if errors.Is(err, job.ErrClosed) {
		return status.Error(codes.Unavailable, "daemon is shutting down")
	}
	return status.Error(codes.Internal, err.Error())
}

// StartScan starts a job. Admission failures are reported in the body.
func (s *Service) StartScan(_ context.Context, req *dedupev1.StartScanRequest) (*dedupev1.StartScanResponse, error) {
	log := logging.Get("daemon")

	if err := validate.Struct(req); err != nil {
		return &dedupev1.StartScanResponse{
			Error:   types.ErrInvalidRoot.Error(),
			Message: err.Error(),
		}, nil
	}

	h, err := s.engine.Start(req.Root, req.Recursive)
	if err != nil {
		code := types.Code(err)
		if code == "" {
			return nil, rpcError(err)
		}
		log.Debug("scan rejected", "root", req.Root, "code", code)
		return &dedupev1.StartScanResponse{Error: code, Message: err.Error()}, nil
	}

	log.Info("scan started", "root", req.Root, "recursive", req.Recursive, "job", h.ID)
	return &dedupev1.StartScanResponse{OK: true, JobID: h.ID}, nil
}

// RequestStop asks the current job to stop. It succeeds when idle.
func (s *Service) RequestStop(context.Context, *dedupev1.RequestStopRequest) (*dedupev1.RequestStopResponse, error) {
	s.engine.RequestStop()
	return &dedupev1.RequestStopResponse{OK: true}, nil
}

// GetSnapshot returns a copy of the current job.
func (s *Service) GetSnapshot(context.Context, *dedupev1.GetSnapshotRequest) (*dedupev1.GetSnapshotResponse, error) {
	return &dedupev1.GetSnapshotResponse{Snapshot: s.engine.Snapshot()}, nil
}

// DeleteGroup keeps the first member of a group and removes the others.
func (s *Service) DeleteGroup(_ context.Context, req *dedupev1.DeleteGroupRequest) (*dedupev1.DeleteResponse, error) {
	if err := validate.Struct(req); err != nil {
		return invalidDelete(err), nil
	}
	res, err := s.engine.DeleteGroup(req.Digest)
	return deleteResponse(res, err)
}

// DeleteSelected removes the chosen members of a group.
func (s *Service) DeleteSelected(_ context.Context, req *dedupev1.DeleteSelectedRequest) (*dedupev1.DeleteResponse, error) {
	if err := validate.Struct(req); err != nil {
		return invalidDelete(err), nil
	}
	res, err := s.engine.DeleteSelected(req.Digest, req.Paths)
	return deleteResponse(res, err)
}

func invalidDelete(err error) *dedupev1.DeleteResponse {
	return &dedupev1.DeleteResponse{
		Error:   types.ErrInvalidArgument.Error(),
		Message: err.Error(),
	}
}

func deleteResponse(res types.DeleteResult, err error) (*dedupev1.DeleteResponse, error) {
	if err != nil {
		code := types.Code(err)
		if code == "" {
			return nil, rpcError(err)
		}
		return &dedupev1.DeleteResponse{Error: code, Message: err.Error()}, nil
	}
	return &dedupev1.DeleteResponse{
		OK:             true,
		Kept:           res.Kept,
		DeletedCount:   res.DeletedCount,
		ReclaimedBytes: res.ReclaimedBytes,
		Errors:         res.Errors,
		Resolved:       res.Resolved,
	}, nil
}

// ClearState resets the daemon to Idle.
func (s *Service) ClearState(context.Context, *dedupev1.ClearStateRequest) (*dedupev1.ClearStateResponse, error) {
	if err := s.engine.Clear(); err != nil {
		code := types.Code(err)
		if code == "" {
			return nil, rpcError(err)
		}
		return &dedupev1.ClearStateResponse{Error: code}, nil
	}
	logging.Get("daemon").Info("state cleared")
	return &dedupev1.ClearStateResponse{OK: true}, nil
}

// PruneResolved drops resolved groups from the snapshot.
func (s *Service) PruneResolved(context.Context, *dedupev1.PruneResolvedRequest) (*dedupev1.PruneResolvedResponse, error) {
	return &dedupev1.PruneResolvedResponse{OK: true, Pruned: s.engine.PruneResolved()}, nil
}

// WatchJob streams job events until the client goes away or the daemon
// shuts down. The first event always describes the current state.
func (s *Service) WatchJob(req *dedupev1.WatchJobRequest, stream grpc.ServerStreamingServer[dedupev1.JobEvent]) error {
	if s.events == nil {
		return status.Error(codes.Unavailable, "job events not available")
	}
	if err := validate.Struct(req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	sub := s.events.Subscribe(req.Kinds...)
	if sub == nil {
		return status.Error(codes.Unavailable, "daemon is shutting down")
	}
	defer s.events.Unsubscribe(sub.ID)

	snap := s.engine.Snapshot()
	initial := &dedupev1.JobEvent{
		Kind:     types.EventStatus,
		JobID:    snap.ID,
		Status:   snap.Status,
		Message:  snap.Message,
		Summary:  snap.Summary,
		Progress: snap.Progress,
		Time:     time.Now(),
	}
	if err := stream.Send(initial); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			if err := stream.Send(&ev); err != nil {
				return err
			}
		}
	}
}

// GetDaemonStatus returns daemon health information.
func (s *Service) GetDaemonStatus(context.Context, *dedupev1.GetDaemonStatusRequest) (*dedupev1.DaemonStatus, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := s.engine.Snapshot()

	watchers := 0
	if s.events != nil {
		watchers = s.events.SubscriberCount()
	}

	return &dedupev1.DaemonStatus{
		Running:       true,
		PID:           os.Getpid(),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc),
		JobID:         snap.ID,
		JobStatus:     snap.Status.String(),
		Watchers:      watchers,
		CacheEntries:  s.engine.CacheLen(),
	}, nil
}

// Shutdown answers the caller, then stops the daemon in the background.
func (s *Service) Shutdown(context.Context, *dedupev1.ShutdownRequest) (*dedupev1.ShutdownResponse, error) {
	logging.Get("daemon").Info("shutdown requested")
	if s.shutdown != nil {
		go s.shutdown()
	}
	return &dedupev1.ShutdownResponse{Success: true}, nil
}
