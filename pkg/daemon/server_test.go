package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	dedupev1 "github.com/jamesainslie/dedupe/pkg/api/dedupe/v1"
	"github.com/jamesainslie/dedupe/pkg/daemon"
	"github.com/jamesainslie/dedupe/pkg/dedupe/config"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

type testDaemon struct {
	srv    *daemon.Server
	conn   *grpc.ClientConn
	client dedupev1.DedupeDaemonClient
}

func startDaemon(t *testing.T) *testDaemon {
	t.Helper()
	dir := t.TempDir()

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: filepath.Join(dir, "d.sock"),
		DataDir:    dir,
		Version:    "test",
		Engine: &config.Config{
			DefaultPath: ".",
			Recursive:   true,
			MinSize:     "0",
			Workers:     config.WorkersConfig{Scan: 2, Hash: 2},
			Delete:      config.DeleteConfig{Mode: config.DeleteModeRemove},
			Cache:       config.CacheConfig{Enabled: true},
		},
	})
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-served)
	})

	conn, err := grpc.NewClient("unix://"+filepath.Join(dir, "d.sock"),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testDaemon{srv: srv, conn: conn, client: dedupev1.NewDedupeDaemonClient(conn)}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func (d *testDaemon) waitTerminal(t *testing.T) types.Snapshot {
	t.Helper()
	var snap types.Snapshot
	require.Eventually(t, func() bool {
		resp, err := d.client.GetSnapshot(context.Background(), &dedupev1.GetSnapshotRequest{})
		require.NoError(t, err)
		snap = resp.Snapshot
		return snap.Status.Terminal()
	}, 10*time.Second, 10*time.Millisecond)
	return snap
}

func TestServer_ScanAndDelete(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	root := writeTree(t, map[string]string{
		"a.txt":     "hello",
		"sub/b.txt": "hello",
		"c.txt":     "world",
		"d.txt":     "x",
	})

	start, err := d.client.StartScan(ctx, &dedupev1.StartScanRequest{Root: root, Recursive: true})
	require.NoError(t, err)
	require.True(t, start.OK, start.Message)
	assert.NotEmpty(t, start.JobID)

	snap := d.waitTerminal(t)
	assert.Equal(t, types.StatusDone, snap.Status)
	assert.True(t, snap.ScanComplete)
	assert.Equal(t, start.JobID, snap.ID)
	assert.EqualValues(t, 4, snap.Summary.TotalFiles)
	require.Len(t, snap.Groups, 1)

	group := snap.Groups[0]
	require.Len(t, group.Paths, 2)

	del, err := d.client.DeleteGroup(ctx, &dedupev1.DeleteGroupRequest{Digest: group.Digest})
	require.NoError(t, err)
	require.True(t, del.OK, del.Message)
	assert.Equal(t, group.Paths[0], del.Kept)
	assert.Equal(t, 1, del.DeletedCount)
	assert.EqualValues(t, 5, del.ReclaimedBytes)
	assert.True(t, del.Resolved)
	assert.NoFileExists(t, group.Paths[1])
	assert.FileExists(t, group.Paths[0])

	again, err := d.client.DeleteGroup(ctx, &dedupev1.DeleteGroupRequest{Digest: group.Digest})
	require.NoError(t, err)
	assert.False(t, again.OK)
	assert.Equal(t, "NotFound", again.Error)

	pruned, err := d.client.PruneResolved(ctx, &dedupev1.PruneResolvedRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, pruned.Pruned)

	cleared, err := d.client.ClearState(ctx, &dedupev1.ClearStateRequest{})
	require.NoError(t, err)
	assert.True(t, cleared.OK)

	resp, err := d.client.GetSnapshot(ctx, &dedupev1.GetSnapshotRequest{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusIdle, resp.Snapshot.Status)
	assert.Empty(t, resp.Snapshot.Groups)
}

func TestServer_AdmissionErrors(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dedupev1.StartScanRequest
	}{
		{"empty root", &dedupev1.StartScanRequest{}},
		{"missing root", &dedupev1.StartScanRequest{Root: filepath.Join(t.TempDir(), "nope")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := d.client.StartScan(ctx, tt.req)
			require.NoError(t, err)
			assert.False(t, resp.OK)
			assert.Equal(t, "InvalidRoot", resp.Error)
		})
	}

	t.Run("malformed digest", func(t *testing.T) {
		resp, err := d.client.DeleteGroup(ctx, &dedupev1.DeleteGroupRequest{Digest: "xyz"})
		require.NoError(t, err)
		assert.False(t, resp.OK)
		assert.Equal(t, "InvalidArgument", resp.Error)
	})

	t.Run("unknown digest", func(t *testing.T) {
		resp, err := d.client.DeleteGroup(ctx, &dedupev1.DeleteGroupRequest{Digest: "00000000000000ff"})
		require.NoError(t, err)
		assert.False(t, resp.OK)
		assert.Equal(t, "NotFound", resp.Error)
	})

	t.Run("empty selection", func(t *testing.T) {
		resp, err := d.client.DeleteSelected(ctx, &dedupev1.DeleteSelectedRequest{Digest: "00000000000000ff"})
		require.NoError(t, err)
		assert.False(t, resp.OK)
		assert.Equal(t, "InvalidArgument", resp.Error)
	})

	t.Run("stop when idle", func(t *testing.T) {
		resp, err := d.client.RequestStop(ctx, &dedupev1.RequestStopRequest{})
		require.NoError(t, err)
		assert.True(t, resp.OK)
	})
}

func TestServer_WatchJob(t *testing.T) {
	d := startDaemon(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := d.client.WatchJob(ctx, &dedupev1.WatchJobRequest{
		Kinds: []types.EventKind{types.EventStatus},
	})
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, types.EventStatus, first.Kind)
	assert.Equal(t, types.StatusIdle, first.Status)

	root := writeTree(t, map[string]string{"a": "same", "b": "same"})
	start, err := d.client.StartScan(ctx, &dedupev1.StartScanRequest{Root: root, Recursive: true})
	require.NoError(t, err)
	require.True(t, start.OK)

	for {
		ev, err := stream.Recv()
		require.NoError(t, err)
		require.Equal(t, types.EventStatus, ev.Kind)
		assert.Equal(t, start.JobID, ev.JobID)
		if ev.Status == types.StatusDone {
			assert.Equal(t, 1, ev.Summary.DuplicateGroups)
			break
		}
	}
}

func TestServer_DaemonStatusAndHealth(t *testing.T) {
	d := startDaemon(t)
	ctx := context.Background()

	st, err := d.client.GetDaemonStatus(ctx, &dedupev1.GetDaemonStatusRequest{})
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Equal(t, os.Getpid(), st.PID)
	assert.Equal(t, "test", st.Version)
	assert.Equal(t, "idle", st.JobStatus)

	health, err := healthpb.NewHealthClient(d.conn).Check(ctx, &healthpb.HealthCheckRequest{
		Service: dedupev1.ServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, health.GetStatus())
}

func TestServer_ShutdownClosesDone(t *testing.T) {
	d := startDaemon(t)

	resp, err := d.client.Shutdown(context.Background(), &dedupev1.ShutdownRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	select {
	case <-d.srv.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done was not closed after Shutdown")
	}
}
