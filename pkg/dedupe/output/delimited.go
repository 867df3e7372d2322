package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// CSVFormatter writes one RFC 4180 record per group member.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"digest", "size", "keep", "path"}); err != nil {
		return err
	}
	for _, g := range r.Snapshot.Groups {
		for i, p := range g.Paths {
			record := []string{g.Digest, strconv.FormatInt(g.Size, 10), strconv.FormatBool(i == 0), p}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter writes a GitHub-flavored table with one row per group.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| DIGEST | SIZE | PATHS |\n")
	w.WriteString("|--------|------|-------|\n")
	for _, g := range r.Snapshot.Groups {
		paths := make([]string, len(g.Paths))
		for i, p := range g.Paths {
			paths[i] = escapeMarkdownPipe(p)
		}
		fmt.Fprintf(w, "| %s | %s | %s |\n",
			g.Digest, humanize.IBytes(uint64(g.Size)), strings.Join(paths, "<br>"))
	}
	return nil
}

func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

var _ Formatter = (*MarkdownFormatter)(nil)
