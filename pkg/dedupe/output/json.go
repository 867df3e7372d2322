package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// document is the machine-readable layout shared by the json and yaml
// formatters.
type document struct {
	Job     jobMeta                `json:"job" yaml:"job"`
	Summary types.Summary          `json:"summary" yaml:"summary"`
	Groups  []types.DuplicateGroup `json:"groups" yaml:"groups"`
	Meta    docMeta                `json:"meta" yaml:"meta"`
}

type jobMeta struct {
	ID           string         `json:"id,omitempty" yaml:"id,omitempty"`
	Root         string         `json:"root,omitempty" yaml:"root,omitempty"`
	Recursive    bool           `json:"recursive" yaml:"recursive"`
	Status       string         `json:"status" yaml:"status"`
	Message      string         `json:"message,omitempty" yaml:"message,omitempty"`
	ScanComplete bool           `json:"scan_complete" yaml:"scan_complete"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	Elapsed      string         `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Progress     types.Progress `json:"progress" yaml:"progress"`
}

type docMeta struct {
	DaemonUp    bool     `json:"daemon_up" yaml:"daemon_up"`
	WastedBytes int64    `json:"wasted_bytes" yaml:"wasted_bytes"`
	Warnings    []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func buildDocument(r *Result) document {
	s := r.Snapshot
	groups := s.Groups
	if groups == nil {
		groups = []types.DuplicateGroup{}
	}
	return document{
		Job: jobMeta{
			ID:           s.ID,
			Root:         s.Root,
			Recursive:    s.Recursive,
			Status:       s.Status.String(),
			Message:      s.Message,
			ScanComplete: s.ScanComplete,
			Error:        s.Error,
			Elapsed:      formatDurationString(s.Elapsed()),
			Progress:     s.Progress,
		},
		Summary: s.Summary,
		Groups:  groups,
		Meta: docMeta{
			DaemonUp:    r.DaemonUp,
			WastedBytes: r.Wasted(),
			Warnings:    r.Warnings,
		},
	}
}

func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.Round(time.Millisecond).String()
}

// JSONFormatter writes a single indented JSON document.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildDocument(r))
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per group, suitable for jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, g := range r.Snapshot.Groups {
		data, err := json.Marshal(g)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

var _ Formatter = (*JSONLFormatter)(nil)
