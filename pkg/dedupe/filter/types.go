// Package filter narrows, orders and truncates the duplicate groups shown
// to the user. It never changes a snapshot; deletions still address groups
// by digest.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// SortField specifies the field to sort groups by.
type SortField int

const (
	// SortWasted sorts by the bytes deleting the extra copies would free.
	SortWasted SortField = iota
	// SortSize sorts by the size of one member.
	SortSize
	// SortCount sorts by the number of members.
	SortCount
	// SortPath sorts by the first member's path.
	SortPath
)

var sortFieldNames = []string{"wasted", "size", "count", "path"}

// String returns the string representation of the sort field.
func (s SortField) String() string {
	if int(s) >= 0 && int(s) < len(sortFieldNames) {
		return sortFieldNames[s]
	}
	return sortFieldNames[SortWasted]
}

// ErrInvalidSortField indicates that the sort field string could not be parsed.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField parses "wasted", "size", "count" or "path" (case-insensitive).
func ParseSortField(s string) (SortField, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range sortFieldNames {
		if n == name {
			return SortField(i), nil
		}
	}
	return SortWasted, fmt.Errorf("%w: %q", ErrInvalidSortField, s)
}

// TypeGroup selects files by extension or by the MIME type sniffed while
// hashing.
type TypeGroup struct {
	Extensions []string
	MimePrefix string
}

// TypeGroups maps the names accepted by --type to their matchers.
var TypeGroups = map[string]TypeGroup{
	"video": {
		Extensions: []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm", ".m4v", ".mpg"},
		MimePrefix: "video/",
	},
	"audio": {
		Extensions: []string{".mp3", ".flac", ".wav", ".aac", ".ogg", ".m4a", ".opus", ".aiff"},
		MimePrefix: "audio/",
	},
	"image": {
		Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".heic", ".raw"},
		MimePrefix: "image/",
	},
	"archive": {
		Extensions: []string{".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".tgz"},
	},
	"document": {
		Extensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".odt", ".rtf", ".txt", ".epub"},
	},
}

// TypeGroupNames returns the accepted --type values in a stable order.
func TypeGroupNames() []string {
	return []string{"archive", "audio", "document", "image", "video"}
}
