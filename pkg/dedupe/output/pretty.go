package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders a styled report for the terminal.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatGroups(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Result) string {
	s := r.Snapshot
	var lines []string

	root := s.Root
	if root == "" {
		root = "-"
	}
	lines = append(lines, LabelStyle.Render("Root:")+" "+ValueStyle.Render(root))

	status := s.Status.String()
	info := []string{
		LabelStyle.Render("Status:") + " " + StatusStyle(status).Render(status),
		LabelStyle.Render("Scanned:") + " " + ValueStyle.Render(fmt.Sprintf("%d files in %s",
			s.Summary.TotalFiles, formatDuration(s.Elapsed()))),
	}
	if s.Progress.BucketsTotal > 0 {
		info = append(info, LabelStyle.Render("Buckets:")+" "+ValueStyle.Render(fmt.Sprintf("%d/%d",
			s.Progress.BucketsDone, s.Progress.BucketsTotal)))
	}
	if r.DaemonUp {
		info = append(info, SuccessStyle.Render("daemon: up"))
	}
	lines = append(lines, strings.Join(info, "  "))

	if s.Message != "" {
		lines = append(lines, MutedStyle.Render(s.Message))
	}
	if s.Error != "" {
		lines = append(lines, ErrorStyle.Bold(true).Render(s.Error))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatGroups(r *Result) string {
	if len(r.Snapshot.Groups) == 0 {
		return MutedStyle.Render("  No duplicates found") + "\n"
	}

	var sb strings.Builder
	for _, g := range r.Snapshot.Groups {
		title := fmt.Sprintf("%s × %d", humanize.IBytes(uint64(g.Size)), len(g.Paths))
		sb.WriteString("  " + SizeStyle.Render(title) + "  " + MutedStyle.Render(g.Digest))
		if g.MimeType != "" {
			sb.WriteString("  " + MutedStyle.Render(g.MimeType))
		}
		if g.Resolved {
			sb.WriteString("  " + SuccessStyle.Render("resolved"))
		}
		sb.WriteString("\n")

		for i, p := range g.Paths {
			marker := "   "
			if i == 0 {
				marker = " * "
			}
			sb.WriteString("  " + LabelStyle.Render(marker) + PathStyle.Render(p) + "\n")
		}
		if g.DeletedCount > 0 {
			sb.WriteString("     " + MutedStyle.Render(fmt.Sprintf("deleted %d, reclaimed %s",
				g.DeletedCount, humanize.IBytes(uint64(g.ReclaimedBytes)))) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	s := r.Snapshot
	parts := []string{
		LabelStyle.Render("Groups:") + " " + ValueStyle.Render(fmt.Sprintf("%d", s.Summary.DuplicateGroups)),
		LabelStyle.Render("Files:") + " " + ValueStyle.Render(fmt.Sprintf("%d", s.Summary.DuplicateFiles)),
		LabelStyle.Render("Wasted:") + " " + SizeStyle.Render(humanize.IBytes(uint64(r.Wasted()))),
		LabelStyle.Render("Reclaimed:") + " " + SizeStyle.Render(humanize.IBytes(uint64(s.Summary.ReclaimedBytes))),
		MutedStyle.Render("* kept by delete"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
