package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/jamesainslie/dedupe/pkg/dedupe/logging"
)

// ErrDaemonAlreadyRunning is returned when the PID file names a live process.
var ErrDaemonAlreadyRunning = errors.New("daemon already running")

// WritePIDFile records the current process ID.
func WritePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile reads a PID written by WritePIDFile.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pid file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(path string) error {
	return os.Remove(path)
}

// IsProcessRunning reports whether pid is alive, using signal 0.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// IsDaemonRunning checks the process named by the PID file.
func IsDaemonRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return false
	}
	return IsProcessRunning(pid)
}

// RecoverFromStaleDaemon removes the PID, socket and status files left by
// a daemon that died without cleaning up. It returns
// ErrDaemonAlreadyRunning when the recorded process is still alive, and nil
// when there is nothing to recover.
func RecoverFromStaleDaemon(pidPath, socketPath, statusPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return nil //nolint:nilerr // missing or unreadable pid file: nothing to recover
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	logging.Get("daemon").Warn("cleaning up stale daemon files", "stale_pid", pid)

	for _, path := range []string{pidPath, socketPath, statusPath} {
		if path != "" {
			_ = os.Remove(path)
		}
	}
	return nil
}
