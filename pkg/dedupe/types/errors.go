package types

import "errors"

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the daemon translates them into response codes.
var (
	// ErrAlreadyRunning is returned when a job is scanning or hashing.
	ErrAlreadyRunning = errors.New("AlreadyRunning")

	// ErrNotFound is returned for an unknown digest or a group with fewer
	// than two remaining members.
	ErrNotFound = errors.New("NotFound")

	// ErrInvalidArgument is returned for malformed deletion requests.
	ErrInvalidArgument = errors.New("InvalidArgument")

	// ErrInvalidRoot is returned when the scan root is missing, not a
	// directory, or unreadable.
	ErrInvalidRoot = errors.New("InvalidRoot")
)

// Code returns the short name of the sentinel wrapped by err, or the empty
// string when err matches none of them.
func Code(err error) string {
	for _, sentinel := range []error{ErrAlreadyRunning, ErrNotFound, ErrInvalidArgument, ErrInvalidRoot} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}

// FromCode maps a short name produced by Code back to its sentinel.
// Unknown codes yield nil.
func FromCode(code string) error {
	switch code {
	case ErrAlreadyRunning.Error():
		return ErrAlreadyRunning
	case ErrNotFound.Error():
		return ErrNotFound
	case ErrInvalidArgument.Error():
		return ErrInvalidArgument
	case ErrInvalidRoot.Error():
		return ErrInvalidRoot
	default:
		return nil
	}
}
