package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

func TestCandidates_DropsSingletons(t *testing.T) {
	buckets := map[int64][]string{
		5:  {"/a", "/b"},
		7:  {"/c"},
		0:  {"/e1", "/e2", "/e3"},
		99: {},
	}

	got := Candidates(buckets)

	assert.Equal(t, []types.SizeGroup{
		{Size: 5, Paths: []string{"/a", "/b"}},
		{Size: 0, Paths: []string{"/e1", "/e2", "/e3"}},
	}, got)
	assert.Len(t, buckets, 4, "input must not be modified")
}

func TestCandidates_LargestFirst(t *testing.T) {
	buckets := map[int64][]string{
		3:   {"/a", "/b"},
		100: {"/c", "/d"},
		0:   {"/e", "/f"},
		42:  {"/g", "/h"},
	}

	sizes := make([]int64, 0, 4)
	for _, g := range Candidates(buckets) {
		sizes = append(sizes, g.Size)
	}
	assert.Equal(t, []int64{100, 42, 3, 0}, sizes)
}

func TestCandidates_Empty(t *testing.T) {
	assert.Empty(t, Candidates(nil))
	assert.Empty(t, Candidates(map[int64][]string{1: {"/only"}}))
}

func TestCountPaths(t *testing.T) {
	assert.Equal(t, 5, CountPaths([]types.SizeGroup{
		{Size: 1, Paths: []string{"a", "b"}},
		{Size: 2, Paths: []string{"c", "d", "e"}},
	}))
	assert.Zero(t, CountPaths(nil))
}
