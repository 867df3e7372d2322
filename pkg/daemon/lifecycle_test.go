package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jamesainslie/dedupe/pkg/daemon"
)

// stalePID is far above any pid_max.
const stalePID = 999999999

func TestWriteAndReadPID(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "dedupe.pid")

	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatalf("WritePIDFile failed: %v", err)
	}

	pid, err := daemon.ReadPIDFile(pidPath)
	if err != nil {
		t.Fatalf("ReadPIDFile failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), pid)
	}

	if err := daemon.RemovePIDFile(pidPath); err != nil {
		t.Fatalf("RemovePIDFile failed: %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should have been removed")
	}
}

func TestReadPIDFile_Garbage(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "dedupe.pid")
	if err := os.WriteFile(pidPath, []byte("not-a-number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemon.ReadPIDFile(pidPath); err == nil {
		t.Error("Expected an error for a non-numeric pid")
	}
}

func TestIsDaemonRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "dedupe.pid")

	if daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected false when PID file doesn't exist")
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatal(err)
	}
	if !daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected true when PID file has current process")
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(stalePID)), 0o644); err != nil {
		t.Fatal(err)
	}
	if daemon.IsDaemonRunning(pidPath) {
		t.Error("Expected false when PID is not alive")
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !daemon.IsProcessRunning(os.Getpid()) {
		t.Error("Expected current process to be running")
	}
	if daemon.IsProcessRunning(stalePID) {
		t.Error("Expected non-existent PID to not be running")
	}
	if daemon.IsProcessRunning(0) {
		t.Error("Expected pid 0 to not be running")
	}
}

func stalePaths(t *testing.T) (pidPath, socketPath, statusPath string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "dedupe.pid"), filepath.Join(dir, "dedupe.sock"), daemon.StatusPath(dir)
}

func TestRecoverFromStaleDaemon_NoPIDFile(t *testing.T) {
	pidPath, socketPath, statusPath := stalePaths(t)

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, statusPath); err != nil {
		t.Errorf("Expected nil when no PID file exists, got %v", err)
	}
}

func TestRecoverFromStaleDaemon_ProcessRunning(t *testing.T) {
	pidPath, socketPath, statusPath := stalePaths(t)
	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatal(err)
	}

	err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, statusPath)
	if !errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
		t.Errorf("Expected ErrDaemonAlreadyRunning, got %v", err)
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Error("PID file of a live daemon must be kept")
	}
}

func TestRecoverFromStaleDaemon_StaleProcess(t *testing.T) {
	pidPath, socketPath, statusPath := stalePaths(t)

	files := map[string]string{
		pidPath:    strconv.Itoa(stalePID),
		socketPath: "fake socket",
		statusPath: `{"status":"ready"}`,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, statusPath); err != nil {
		t.Errorf("Expected nil after cleaning up stale daemon, got %v", err)
	}

	for path := range files {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("File %s should have been removed after recovery", path)
		}
	}
}

func TestRecoverFromStaleDaemon_PartialStaleFiles(t *testing.T) {
	pidPath, socketPath, statusPath := stalePaths(t)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(stalePID)), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, statusPath); err != nil {
		t.Errorf("Expected nil when cleaning up partial stale files, got %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file should have been removed")
	}
}
