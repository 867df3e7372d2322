// Package client connects the dedupe CLI to the dedupd daemon. It wraps the
// gRPC client, turns response codes back into the engine's sentinel errors
// and manages the daemon process.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	dedupev1 "github.com/jamesainslie/dedupe/pkg/api/dedupe/v1"
	"github.com/jamesainslie/dedupe/pkg/daemon"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// ErrDaemonNotRunning is returned when the daemon socket does not exist.
var ErrDaemonNotRunning = errors.New("daemon is not running")

// Client connects to the dedupd daemon via gRPC.
type Client struct {
	conn   *grpc.ClientConn
	client dedupev1.DedupeDaemonClient
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // dedupd binary, auto-discovered if empty
	Socket string
	PID    string
	Status string
}

// DefaultPaths returns the paths dedupd uses when started without flags.
func DefaultPaths() DaemonPaths {
	return DaemonPaths{}.withDefaults()
}

func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	if p.Status == "" {
		p.Status = daemon.StatusPath(filepath.Dir(p.Socket))
	}
	return p
}

// Connect establishes a connection to the daemon with a 5 second timeout.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext connects and waits until the daemon answers a health
// check or ctx expires.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no socket at %s", ErrDaemonNotRunning, socketPath)
	}

	conn, err := grpc.NewClient("unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	_, err = healthpb.NewHealthClient(conn).Check(ctx,
		&healthpb.HealthCheckRequest{Service: dedupev1.ServiceName},
		grpc.WaitForReady(true))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return &Client{
		conn:   conn,
		client: dedupev1.NewDedupeDaemonClient(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// codeError turns a response error code back into the matching sentinel.
func codeError(code, message string) error {
	sentinel := types.FromCode(code)
	if sentinel == nil {
		sentinel = errors.New(code)
	}
	if message == "" || message == code {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, message)
}

// StartScan starts a job on root and returns its ID.
func (c *Client) StartScan(ctx context.Context, root string, recursive bool) (string, error) {
	resp, err := c.client.StartScan(ctx, &dedupev1.StartScanRequest{Root: root, Recursive: recursive})
	if err != nil {
		return "", fmt.Errorf("StartScan RPC failed: %w", err)
	}
	if !resp.OK {
		return "", codeError(resp.Error, resp.Message)
	}
	return resp.JobID, nil
}

// RequestStop asks the running job to stop.
func (c *Client) RequestStop(ctx context.Context) error {
	if _, err := c.client.RequestStop(ctx, &dedupev1.RequestStopRequest{}); err != nil {
		return fmt.Errorf("RequestStop RPC failed: %w", err)
	}
	return nil
}

// Snapshot returns the daemon's current job.
func (c *Client) Snapshot(ctx context.Context) (types.Snapshot, error) {
	resp, err := c.client.GetSnapshot(ctx, &dedupev1.GetSnapshotRequest{})
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("GetSnapshot RPC failed: %w", err)
	}
	return resp.Snapshot, nil
}

// DeleteGroup keeps the first member of a group and removes the rest.
func (c *Client) DeleteGroup(ctx context.Context, digest string) (types.DeleteResult, error) {
	resp, err := c.client.DeleteGroup(ctx, &dedupev1.DeleteGroupRequest{Digest: digest})
	if err != nil {
		return types.DeleteResult{}, fmt.Errorf("DeleteGroup RPC failed: %w", err)
	}
	return deleteResult(digest, resp)
}

// DeleteSelected removes the given members of a group.
func (c *Client) DeleteSelected(ctx context.Context, digest string, paths []string) (types.DeleteResult, error) {
	resp, err := c.client.DeleteSelected(ctx, &dedupev1.DeleteSelectedRequest{Digest: digest, Paths: paths})
	if err != nil {
		return types.DeleteResult{}, fmt.Errorf("DeleteSelected RPC failed: %w", err)
	}
	return deleteResult(digest, resp)
}

func deleteResult(digest string, resp *dedupev1.DeleteResponse) (types.DeleteResult, error) {
	if !resp.OK {
		return types.DeleteResult{}, codeError(resp.Error, resp.Message)
	}
	return types.DeleteResult{
		Digest:         digest,
		Kept:           resp.Kept,
		DeletedCount:   resp.DeletedCount,
		ReclaimedBytes: resp.ReclaimedBytes,
		Errors:         resp.Errors,
		Resolved:       resp.Resolved,
	}, nil
}

// Clear resets the daemon to Idle.
func (c *Client) Clear(ctx context.Context) error {
	resp, err := c.client.ClearState(ctx, &dedupev1.ClearStateRequest{})
	if err != nil {
		return fmt.Errorf("ClearState RPC failed: %w", err)
	}
	if !resp.OK {
		return codeError(resp.Error, "")
	}
	return nil
}

// PruneResolved drops resolved groups and returns how many were removed.
func (c *Client) PruneResolved(ctx context.Context) (int, error) {
	resp, err := c.client.PruneResolved(ctx, &dedupev1.PruneResolvedRequest{})
	if err != nil {
		return 0, fmt.Errorf("PruneResolved RPC failed: %w", err)
	}
	return resp.Pruned, nil
}

// Watch subscribes to job events. The channel is closed when ctx is done or
// the daemon ends the stream.
func (c *Client) Watch(ctx context.Context, kinds ...types.EventKind) (<-chan types.JobEvent, error) {
	stream, err := c.client.WatchJob(ctx, &dedupev1.WatchJobRequest{Kinds: kinds})
	if err != nil {
		return nil, fmt.Errorf("WatchJob RPC failed: %w", err)
	}

	events := make(chan types.JobEvent, 100)
	go func() {
		defer close(events)
		for {
			ev, err := stream.Recv()
			if err != nil {
				return
			}
			select {
			case events <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// DaemonStatus returns the current status of the daemon.
func (c *Client) DaemonStatus(ctx context.Context) (*dedupev1.DaemonStatus, error) {
	status, err := c.client.GetDaemonStatus(ctx, &dedupev1.GetDaemonStatusRequest{})
	if err != nil {
		return nil, fmt.Errorf("GetDaemonStatus RPC failed: %w", err)
	}
	return status, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.client.Shutdown(ctx, &dedupev1.ShutdownRequest{})
	if err != nil {
		return fmt.Errorf("Shutdown RPC failed: %w", err)
	}
	if !resp.Success {
		return errors.New("shutdown request was not successful")
	}
	return nil
}

// EnsureDaemon starts the daemon unless it is already running and returns
// a connected client.
func EnsureDaemon(ctx context.Context, paths DaemonPaths) (*Client, error) {
	paths = paths.withDefaults()
	if err := StartDaemon(paths); err != nil {
		return nil, err
	}
	return ConnectWithContext(ctx, paths.Socket)
}

// StartDaemon starts dedupd in the background.
// Idempotent: returns nil if the daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if daemon.IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find dedupd: %w", err)
	}

	_ = daemon.RemoveStatus(paths.Status)

	// exec.Command, not CommandContext: the daemon must outlive the caller.
	cmd := exec.Command(binary, //nolint:gosec // binary path is validated
		"--socket", paths.Socket,
		"--pid", paths.PID,
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	for range 50 {
		time.Sleep(100 * time.Millisecond)

		if status, err := daemon.ReadStatus(paths.Status); err == nil {
			if status.Ready() {
				return nil
			}
			if status.Error != "" {
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via RPC.
// Idempotent: returns nil if the daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !daemon.IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer c.Close()

	if err := c.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !daemon.IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

// resolveBinary finds dedupd.
// Priority: configured path > next to the executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "dedupd")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if goBinPath := config.DefaultBinaryPath(); goBinPath != "" {
		return goBinPath, nil
	}

	if path, err := exec.LookPath("dedupd"); err == nil {
		return path, nil
	}

	return "", errors.New("dedupd not found")
}
