package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jamesainslie/dedupe/pkg/dedupe/filter"
	"github.com/jamesainslie/dedupe/pkg/dedupe/output"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// viewFlags control how a snapshot is filtered and printed. Shared by
// `scan` and `job status`.
type viewFlags struct {
	output   string
	template string

	limit     int
	sortBy    string
	reverse   bool
	types     string
	exts      string
	include   string
	minGroup  string
	minCopies int
}

func (vf *viewFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&vf.output, "output", "o", "pretty",
		"output format ("+strings.Join(output.Available(), ", ")+")")
	fs.StringVar(&vf.template, "template", "", "Go template for -o template")

	fs.IntVarP(&vf.limit, "limit", "l", 0, "show at most this many groups (0=all)")
	fs.StringVar(&vf.sortBy, "sort", "wasted", "sort groups by wasted, size, count or path")
	fs.BoolVarP(&vf.reverse, "reverse", "r", false, "reverse the sort order")
	fs.StringVarP(&vf.types, "type", "t", "", "only groups of these types ("+strings.Join(filter.TypeGroupNames(), ", ")+")")
	fs.StringVar(&vf.exts, "ext", "", "only groups with these extensions (e.g. jpg,png)")
	fs.StringVar(&vf.include, "include", "", "only groups with a member matching these globs")
	fs.StringVar(&vf.minGroup, "min-group-size", "", "only groups whose files are at least this large")
	fs.IntVar(&vf.minCopies, "min-copies", 2, "hide groups with fewer remaining copies (0 shows resolved groups)")
}

// buildFilter creates a filter.Filter from the view flags.
func (vf *viewFlags) buildFilter() (*filter.Filter, error) {
	opts := []filter.Option{
		filter.WithLimit(vf.limit),
		filter.WithMinCopies(vf.minCopies),
	}

	if vf.minGroup != "" {
		n, err := types.ParseSize(vf.minGroup)
		if err != nil {
			return nil, fmt.Errorf("invalid min-group-size %q: %w", vf.minGroup, err)
		}
		opts = append(opts, filter.WithMinSize(n))
	}

	if groups := parseCommaSeparated(vf.types); len(groups) > 0 {
		for _, g := range groups {
			if _, ok := filter.TypeGroups[g]; !ok {
				return nil, fmt.Errorf("unknown type %q: available types are %v", g, filter.TypeGroupNames())
			}
		}
		opts = append(opts, filter.WithTypeGroups(groups...))
	}
	if exts := parseCommaSeparated(vf.exts); len(exts) > 0 {
		opts = append(opts, filter.WithExtensions(exts...))
	}
	if patterns := parseCommaSeparated(vf.include); len(patterns) > 0 {
		opts = append(opts, filter.WithInclude(patterns...))
	}

	sortField, err := filter.ParseSortField(vf.sortBy)
	if err != nil {
		return nil, err
	}
	opts = append(opts, filter.WithSortBy(sortField))

	// Largest first is the natural order, except for paths.
	descending := !vf.reverse
	if sortField == filter.SortPath {
		descending = vf.reverse
	}
	opts = append(opts, filter.WithSortDescending(descending))

	return filter.New(opts...)
}

// formatter resolves the -o flag.
func (vf *viewFlags) formatter() (output.Formatter, error) {
	if vf.output == "template" {
		if vf.template == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(vf.template), nil
	}
	f, err := output.Get(vf.output)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", vf.output, output.Available())
	}
	return f, nil
}

// render filters the snapshot and formats it.
func (vf *viewFlags) render(snap types.Snapshot, daemonUp bool, warnings []string) (string, error) {
	f, err := vf.buildFilter()
	if err != nil {
		return "", err
	}
	formatter, err := vf.formatter()
	if err != nil {
		return "", err
	}

	snap.Groups = f.Apply(snap.Groups)
	result := output.NewResult(snap)
	result.DaemonUp = daemonUp
	result.Warnings = warnings

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return "", fmt.Errorf("failed to format output: %w", err)
	}
	return buf.String(), nil
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
