package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

func sampleGroups() []types.DuplicateGroup {
	return []types.DuplicateGroup{
		{Digest: "0000000000000001", Size: 100, Paths: []string{"/photos/a.jpg", "/backup/a.jpg"}, MimeType: "image/jpeg"},
		{Digest: "0000000000000002", Size: 10, Paths: []string{"/docs/r.txt", "/docs/old/r.txt", "/tmp/r.txt"}, MimeType: "text/plain"},
		{Digest: "0000000000000003", Size: 5000, Paths: []string{"/videos/clip.bin", "/backup/clip.bin"}, MimeType: "video/mp4"},
		{Digest: "0000000000000004", Size: 50, Paths: []string{"/music/song.mp3"}, Resolved: true, DeletedCount: 1},
	}
}

func digests(groups []types.DuplicateGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Digest[len(g.Digest)-1:]
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	f, err := New()
	require.NoError(t, err)
	assert.Equal(t, SortWasted, f.SortBy)
	assert.True(t, f.SortDescending)
	assert.Zero(t, f.Limit)
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New(WithInclude("[unclosed"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{
			name: "default sorts by wasted bytes",
			want: []string{"3", "1", "2", "4"},
		},
		{
			name: "min copies hides resolved groups",
			opts: []Option{WithMinCopies(2)},
			want: []string{"3", "1", "2"},
		},
		{
			name: "min size",
			opts: []Option{WithMinSize(60)},
			want: []string{"3", "1"},
		},
		{
			name: "extension",
			opts: []Option{WithExtensions("TXT")},
			want: []string{"2"},
		},
		{
			name: "type group matches mime type",
			opts: []Option{WithTypeGroups("video")},
			want: []string{"3"},
		},
		{
			name: "type group matches extension",
			opts: []Option{WithTypeGroups("audio", "nonsense")},
			want: []string{"4"},
		},
		{
			name: "include",
			opts: []Option{WithInclude("/backup/**")},
			want: []string{"3", "1"},
		},
		{
			name: "exclude needs every member excluded",
			opts: []Option{WithExclude("/docs/**")},
			want: []string{"3", "1", "2", "4"},
		},
		{
			name: "exclude whole group",
			opts: []Option{WithExclude("/music/**")},
			want: []string{"3", "1", "2"},
		},
		{
			name: "count ascending",
			opts: []Option{WithSortBy(SortCount), WithSortDescending(false)},
			want: []string{"4", "1", "3", "2"},
		},
		{
			name: "path ascending",
			opts: []Option{WithSortBy(SortPath), WithSortDescending(false)},
			want: []string{"2", "4", "1", "3"},
		},
		{
			name: "size with limit",
			opts: []Option{WithSortBy(SortSize), WithLimit(2)},
			want: []string{"3", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, digests(f.Apply(sampleGroups())))
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	groups := sampleGroups()
	f, err := New(WithSortBy(SortPath), WithSortDescending(false))
	require.NoError(t, err)

	_ = f.Apply(groups)
	assert.Equal(t, sampleGroups(), groups)
}

func TestParseSortField(t *testing.T) {
	for _, name := range []string{"wasted", "size", "count", "path"} {
		field, err := ParseSortField(name)
		require.NoError(t, err)
		assert.Equal(t, name, field.String())
	}

	field, err := ParseSortField(" SIZE ")
	require.NoError(t, err)
	assert.Equal(t, SortSize, field)

	_, err = ParseSortField("age")
	assert.ErrorIs(t, err, ErrInvalidSortField)
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "30d", want: "720h0m0s"},
		{in: "2w", want: "336h0m0s"},
		{in: "1mo", want: "720h0m0s"},
		{in: "1y", want: "8760h0m0s"},
		{in: "1.5d", want: "36h0m0s"},
		{in: "90m", want: "1h30m0s"},
		{in: "", wantErr: true},
		{in: "-1d", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseAge(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAge)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}
