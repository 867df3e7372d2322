package main

import (
	"reflect"
	"testing"

	"github.com/jamesainslie/dedupe/pkg/dedupe/filter"
	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

func defaultView() viewFlags {
	return viewFlags{output: "pretty", sortBy: "wasted", minCopies: 2}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name           string
		modify         func(*viewFlags)
		wantSortBy     filter.SortField
		wantDescending bool
		wantLimit      int
		wantMinSize    int64
		wantErr        bool
	}{
		{
			name:           "defaults",
			modify:         func(*viewFlags) {},
			wantSortBy:     filter.SortWasted,
			wantDescending: true,
		},
		{
			name:           "reverse wasted",
			modify:         func(vf *viewFlags) { vf.reverse = true },
			wantSortBy:     filter.SortWasted,
			wantDescending: false,
		},
		{
			name:           "path sorts A-Z",
			modify:         func(vf *viewFlags) { vf.sortBy = "path" },
			wantSortBy:     filter.SortPath,
			wantDescending: false,
		},
		{
			name: "reverse path",
			modify: func(vf *viewFlags) {
				vf.sortBy = "path"
				vf.reverse = true
			},
			wantSortBy:     filter.SortPath,
			wantDescending: true,
		},
		{
			name: "limit and min group size",
			modify: func(vf *viewFlags) {
				vf.limit = 5
				vf.minGroup = "1K"
			},
			wantSortBy:     filter.SortWasted,
			wantDescending: true,
			wantLimit:      5,
			wantMinSize:    1024,
		},
		{
			name:    "invalid sort",
			modify:  func(vf *viewFlags) { vf.sortBy = "age" },
			wantErr: true,
		},
		{
			name:    "unknown type",
			modify:  func(vf *viewFlags) { vf.types = "image,spreadsheet" },
			wantErr: true,
		},
		{
			name:    "invalid min group size",
			modify:  func(vf *viewFlags) { vf.minGroup = "lots" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vf := defaultView()
			tt.modify(&vf)

			f, err := vf.buildFilter()
			if tt.wantErr {
				if err == nil {
					t.Fatal("buildFilter() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildFilter() error = %v", err)
			}
			if f.SortBy != tt.wantSortBy {
				t.Errorf("SortBy = %v, want %v", f.SortBy, tt.wantSortBy)
			}
			if f.SortDescending != tt.wantDescending {
				t.Errorf("SortDescending = %v, want %v", f.SortDescending, tt.wantDescending)
			}
			if f.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", f.Limit, tt.wantLimit)
			}
			if f.MinSize != tt.wantMinSize {
				t.Errorf("MinSize = %d, want %d", f.MinSize, tt.wantMinSize)
			}
			if f.MinCopies != 2 {
				t.Errorf("MinCopies = %d, want 2", f.MinCopies)
			}
		})
	}
}

func TestBuildFilterTypesAndExtensions(t *testing.T) {
	vf := defaultView()
	vf.types = "image"
	vf.exts = ".JPG, png"
	vf.include = "/photos/*"

	f, err := vf.buildFilter()
	if err != nil {
		t.Fatalf("buildFilter() error = %v", err)
	}
	if len(f.MimePrefixes) == 0 {
		t.Error("expected image MIME prefixes to be set")
	}
	if len(f.Extensions) == 0 {
		t.Error("expected extensions to be set")
	}
	if !reflect.DeepEqual(f.Include, []string{"/photos/*"}) {
		t.Errorf("Include = %v, want [/photos/*]", f.Include)
	}
}

func TestFormatter(t *testing.T) {
	vf := defaultView()
	if _, err := vf.formatter(); err != nil {
		t.Errorf("formatter() for pretty returned error: %v", err)
	}

	vf.output = "template"
	if _, err := vf.formatter(); err == nil {
		t.Error("formatter() expected error for -o template without --template")
	}

	vf.template = "{{len .Snapshot.Groups}}"
	if _, err := vf.formatter(); err != nil {
		t.Errorf("formatter() with template returned error: %v", err)
	}

	vf.output = "xml"
	if _, err := vf.formatter(); err == nil {
		t.Error("formatter() expected error for unknown format")
	}
}

func TestRender(t *testing.T) {
	snap := types.Snapshot{
		Status: types.StatusDone,
		Groups: []types.DuplicateGroup{
			{Digest: "0000000000000001", Size: 10, Paths: []string{"/a/r.txt", "/b/r.txt", "/c/r.txt"}},
			{Digest: "0000000000000002", Size: 100, Paths: []string{"/a/p.jpg", "/b/p.jpg"}},
			{Digest: "0000000000000003", Size: 500, Paths: []string{"/a/done.bin"}},
		},
	}

	vf := defaultView()
	vf.output = "paths"

	got, err := vf.render(snap, false, nil)
	if err != nil {
		t.Fatalf("render() error = %v", err)
	}
	want := "/b/p.jpg\n/b/r.txt\n/c/r.txt\n"
	if got != want {
		t.Errorf("render() = %q, want %q", got, want)
	}

	vf.limit = 1
	got, err = vf.render(snap, false, nil)
	if err != nil {
		t.Fatalf("render() error = %v", err)
	}
	if got != "/b/p.jpg\n" {
		t.Errorf("render() with limit = %q, want %q", got, "/b/p.jpg\n")
	}
}

func TestParseCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"jpg", []string{"jpg"}},
		{"jpg, png ,gif", []string{"jpg", "png", "gif"}},
		{"a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := parseCommaSeparated(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseCommaSeparated(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
