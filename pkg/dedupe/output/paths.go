package output

import (
	"bytes"
)

// PathsFormatter prints the redundant copies, one per line: every member
// of each group except the first. Piping it to rm deletes the same files a
// whole-group delete would.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	writeRedundant(w, r, '\n')
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

var _ Formatter = (*PathsFormatter)(nil)

// NullFormatter is PathsFormatter with NUL separators, for xargs -0.
type NullFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NullFormatter) Format(w *bytes.Buffer, r *Result) error {
	writeRedundant(w, r, 0)
	return nil
}

func writeRedundant(w *bytes.Buffer, r *Result, sep byte) {
	for _, g := range r.Snapshot.Groups {
		if len(g.Paths) < 2 {
			continue
		}
		for _, p := range g.Paths[1:] {
			w.WriteString(p)
			w.WriteByte(sep)
		}
	}
}

func init() {
	Register("null", func() Formatter {
		return &NullFormatter{}
	})
}

var _ Formatter = (*NullFormatter)(nil)
