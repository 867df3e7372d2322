package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// StatusFile is written once at startup so `dedupe daemon start` can tell
// whether the detached process came up.
type StatusFile struct {
	Status  string `json:"status"` // "ready" or "error"
	PID     int    `json:"pid,omitempty"`
	Socket  string `json:"socket,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ready reports whether the daemon started.
func (s *StatusFile) Ready() bool {
	return s.Status == "ready"
}

// WriteStatusReady writes a ready status file for this process.
func WriteStatusReady(path, socket, version string) error {
	return writeStatus(path, &StatusFile{
		Status:  "ready",
		PID:     os.Getpid(),
		Socket:  socket,
		Version: version,
	})
}

// WriteStatusError writes an error status file.
func WriteStatusError(path string, err error) error {
	return writeStatus(path, &StatusFile{
		Status: "error",
		Error:  err.Error(),
	})
}

func writeStatus(path string, status *StatusFile) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus removes the status file.
func RemoveStatus(path string) error {
	return os.Remove(path)
}

// StatusPath returns the status file path for a data directory.
func StatusPath(dataDir string) string {
	return filepath.Join(dataDir, "dedupe.status")
}
