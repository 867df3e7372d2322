// Package trash moves duplicate files to the system trash where one is
// available, falling back to permanent removal.
package trash

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

// commandTimeout is the maximum time to wait for trash commands.
const commandTimeout = 30 * time.Second

// Remover moves files to the trash. The zero value is ready to use.
type Remover struct {
	// lookPath finds trash helpers; swapped in tests.
	lookPath func(string) (string, error)
}

// Remove moves a file to the system trash: Finder via AppleScript on
// macOS, gio trash or trash-put on Linux. It falls back to permanent
// removal if no trash is available.
func (r Remover) Remove(path string) error {
	return r.moveToTrash(path)
}

func (r Remover) moveToTrash(path string) error {
	// Lstat keeps a symlink planted in place of a duplicate from redirecting
	// the removal.
	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("cannot trash %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot trash %q: is a directory", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path for %q: %w", path, err)
	}

	switch runtime.GOOS {
	case "darwin":
		return r.moveToTrashMacOS(absPath)
	case "linux":
		return r.moveToTrashLinux(absPath)
	default:
		return fallbackDelete(absPath)
	}
}

func (r Remover) look(name string) (string, error) {
	if r.lookPath != nil {
		return r.lookPath(name)
	}
	return exec.LookPath(name)
}

// moveToTrashMacOS uses Finder so "Put Back" works.
func (r Remover) moveToTrashMacOS(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	osascript, err := r.look("osascript")
	if err != nil {
		return fallbackDelete(path)
	}

	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	if err := exec.CommandContext(ctx, osascript, "-e", script).Run(); err != nil {
		return fallbackDelete(path)
	}
	return nil
}

func (r Remover) moveToTrashLinux(path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if gio, err := r.look("gio"); err == nil {
		if err := exec.CommandContext(ctx, gio, "trash", path).Run(); err == nil {
			return nil
		}
	}

	if trashPut, err := r.look("trash-put"); err == nil {
		if err := exec.CommandContext(ctx, trashPut, path).Run(); err == nil {
			return nil
		}
	}

	return fallbackDelete(path)
}

// fallbackDelete permanently removes a single file.
func fallbackDelete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %q: %w", path, err)
	}
	return nil
}
