package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
)

// PlainFormatter writes one aligned row per group member, without styling.
// The first member of each group is the one a whole-group delete keeps.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if _, err := fmt.Fprintln(tw, "DIGEST\tSIZE\tKEEP\tPATH"); err != nil {
		return err
	}
	for _, g := range r.Snapshot.Groups {
		size := humanize.IBytes(uint64(g.Size))
		for i, p := range g.Paths {
			keep := ""
			if i == 0 {
				keep = "*"
			}
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.Digest, size, keep, p); err != nil {
				return err
			}
		}
	}
	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
