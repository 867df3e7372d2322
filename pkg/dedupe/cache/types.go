package cache

import (
	"bytes"
	"encoding/gob"
	"time"
)

// Entry is the cached digest of one file, valid while the file's size and
// modification time are unchanged.
type Entry struct {
	Size     int64
	Mtime    int64 // UnixNano
	Digest   string
	MimeType string
}

// Matches reports whether the entry still describes a file with the given
// size and modification time.
func (e *Entry) Matches(size int64, mtime time.Time) bool {
	return e.Size == size && e.Mtime == mtime.UnixNano()
}

// Encode serializes the entry to bytes using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey returns the store key for a file path.
func MakeKey(path string) []byte {
	return []byte(path)
}
