package filter

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/lo"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Filter selects duplicate groups for display. A group matches when its
// size and member count pass, and at least one member passes the path
// criteria.
type Filter struct {
	// MinSize is the minimum size of one member.
	MinSize int64

	// MinCopies is the minimum number of remaining members. Zero keeps
	// resolved groups too.
	MinCopies int

	// Include holds glob patterns; a member must match one when set.
	Include []string

	// Exclude holds glob patterns; matching members are ignored.
	Exclude []string

	// Extensions limits members to these lowercase extensions.
	Extensions []string

	// MimePrefixes also admits groups whose sniffed MIME type starts with
	// one of these.
	MimePrefixes []string

	SortBy         SortField
	SortDescending bool

	// Limit caps the number of groups returned. Zero means unlimited.
	Limit int

	include []glob.Glob
	exclude []glob.Glob
}

// Option is a functional option for configuring a Filter.
type Option func(*Filter)

// New creates a filter sorted by wasted bytes, largest first, with no
// limit. Glob patterns are compiled here; an invalid one is an error.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{
		SortBy:         SortWasted,
		SortDescending: true,
	}
	for _, opt := range opts {
		opt(f)
	}

	var err error
	if f.include, err = compile(f.Include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(f.Exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, filepath.Separator)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// WithLimit sets the maximum number of groups. Negative means unlimited.
func WithLimit(limit int) Option {
	return func(f *Filter) {
		f.Limit = max(limit, 0)
	}
}

// WithMinSize sets the minimum member size in bytes.
func WithMinSize(minSize int64) Option {
	return func(f *Filter) {
		f.MinSize = max(minSize, 0)
	}
}

// WithMinCopies hides groups with fewer remaining members.
func WithMinCopies(n int) Option {
	return func(f *Filter) {
		f.MinCopies = max(n, 0)
	}
}

// WithInclude sets the include glob patterns.
func WithInclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Include = patterns
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(f *Filter) {
		f.Exclude = patterns
	}
}

// WithExtensions restricts members to the given extensions, normalized to
// lowercase with a leading dot.
func WithExtensions(extensions ...string) Option {
	return func(f *Filter) {
		f.Extensions = append(f.Extensions, lo.Map(extensions, func(ext string, _ int) string {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			return ext
		})...)
	}
}

// WithTypeGroups expands type group names. Unknown names are ignored.
func WithTypeGroups(groups ...string) Option {
	return func(f *Filter) {
		for _, name := range groups {
			tg, ok := TypeGroups[name]
			if !ok {
				continue
			}
			f.Extensions = append(f.Extensions, tg.Extensions...)
			if tg.MimePrefix != "" {
				f.MimePrefixes = append(f.MimePrefixes, tg.MimePrefix)
			}
		}
	}
}

// WithSortBy sets the field to sort groups by.
func WithSortBy(field SortField) Option {
	return func(f *Filter) {
		f.SortBy = field
	}
}

// WithSortDescending sets whether to sort in descending order.
func WithSortDescending(desc bool) Option {
	return func(f *Filter) {
		f.SortDescending = desc
	}
}

// Match reports whether the group passes every criterion.
func (f *Filter) Match(g types.DuplicateGroup) bool {
	if g.Size < f.MinSize || len(g.Paths) < f.MinCopies {
		return false
	}
	mimeOK := f.matchMime(g.MimeType)
	return lo.SomeBy(g.Paths, func(path string) bool {
		if f.typed() && !mimeOK && !f.matchExtension(path) {
			return false
		}
		return f.matchPatterns(path)
	})
}

func (f *Filter) typed() bool {
	return len(f.Extensions) > 0 || len(f.MimePrefixes) > 0
}

func (f *Filter) matchMime(mime string) bool {
	return mime != "" && lo.SomeBy(f.MimePrefixes, func(prefix string) bool {
		return strings.HasPrefix(mime, prefix)
	})
}

func (f *Filter) matchExtension(path string) bool {
	return slices.Contains(f.Extensions, strings.ToLower(filepath.Ext(path)))
}

func (f *Filter) matchPatterns(path string) bool {
	matches := func(g glob.Glob) bool { return g.Match(path) }
	if lo.SomeBy(f.exclude, matches) {
		return false
	}
	return len(f.include) == 0 || lo.SomeBy(f.include, matches)
}

// Sort returns a sorted copy of groups. Ties keep their snapshot order.
func (f *Filter) Sort(groups []types.DuplicateGroup) []types.DuplicateGroup {
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, b types.DuplicateGroup) int {
		var result int
		switch f.SortBy {
		case SortSize:
			result = cmp.Compare(a.Size, b.Size)
		case SortCount:
			result = cmp.Compare(len(a.Paths), len(b.Paths))
		case SortPath:
			result = cmp.Compare(firstPath(a), firstPath(b))
		default:
			result = cmp.Compare(a.Wasted(), b.Wasted())
		}
		if f.SortDescending {
			return -result
		}
		return result
	})
	return sorted
}

func firstPath(g types.DuplicateGroup) string {
	if len(g.Paths) == 0 {
		return ""
	}
	return g.Paths[0]
}

// Apply matches, sorts and limits groups. The input is not modified.
func (f *Filter) Apply(groups []types.DuplicateGroup) []types.DuplicateGroup {
	sorted := f.Sort(lo.Filter(groups, func(g types.DuplicateGroup, _ int) bool {
		return f.Match(g)
	}))
	if f.Limit > 0 && len(sorted) > f.Limit {
		return sorted[:f.Limit]
	}
	return sorted
}
