package job

import "os"

//go:generate mockgen -destination=mocks/mock_remover.go -package=mocks github.com/jamesainslie/dedupe/pkg/dedupe/job Remover

// Remover deletes a single file. Errors wrapping fs.ErrNotExist mean the
// file was already gone.
type Remover interface {
	Remove(path string) error
}

// OSRemover removes files permanently.
type OSRemover struct{}

// Remove deletes path with os.Remove.
func (OSRemover) Remove(path string) error {
	return os.Remove(path)
}
