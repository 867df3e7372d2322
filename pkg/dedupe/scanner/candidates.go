package scanner

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// Candidates returns the buckets that can hold duplicates, those with two
// or more paths, as size groups ordered largest first so the biggest
// potential savings are hashed first. The input is not modified.
func Candidates(buckets map[int64][]string) []types.SizeGroup {
	groups := lo.FilterMap(lo.Entries(buckets), func(e lo.Entry[int64, []string], _ int) (types.SizeGroup, bool) {
		return types.SizeGroup{Size: e.Key, Paths: e.Value}, len(e.Value) >= 2
	})
	slices.SortFunc(groups, func(a, b types.SizeGroup) int {
		return cmp.Compare(b.Size, a.Size)
	})
	return groups
}

// CountPaths returns the number of paths across all groups.
func CountPaths(groups []types.SizeGroup) int {
	return lo.SumBy(groups, func(g types.SizeGroup) int {
		return len(g.Paths)
	})
}
