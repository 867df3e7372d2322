package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func render(t *testing.T, name string, r *Result) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestPrettyFormatter(t *testing.T) {
	r := sampleResult()
	r.DaemonUp = true
	r.Warnings = []string{"2 files could not be hashed"}

	out := render(t, "pretty", r)

	assert.Contains(t, out, "/data")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "2.0 KiB × 3")
	assert.Contains(t, out, "image/png")
	assert.Contains(t, out, " * /data/a")
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "daemon: up")
	assert.Contains(t, out, "2 files could not be hashed")
}

func TestPrettyFormatter_Empty(t *testing.T) {
	r := sampleResult()
	r.Snapshot.Groups = nil
	assert.Contains(t, render(t, "pretty", r), "No duplicates found")
}

func TestPlainFormatter(t *testing.T) {
	out := render(t, "plain", sampleResult())
	lines := strings.Split(strings.TrimSpace(out), "\n")

	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "DIGEST"))
	assert.Contains(t, lines[1], "*")
	assert.Contains(t, lines[1], "/data/a")
	assert.NotContains(t, lines[2], "*")
}

func TestTableFormatter(t *testing.T) {
	out := render(t, "table", sampleResult())

	assert.Contains(t, out, "DIGEST")
	assert.Contains(t, out, "00000000000000aa")
	assert.Contains(t, out, "/data/b, /data/c|d")
	assert.Contains(t, out, "4.0 KiB")
}

func TestJSONFormatter(t *testing.T) {
	out := render(t, "json", sampleResult())

	var doc struct {
		Job struct {
			Status       string `json:"status"`
			ScanComplete bool   `json:"scan_complete"`
			Elapsed      string `json:"elapsed"`
		} `json:"job"`
		Summary struct {
			ReclaimedBytes int64 `json:"reclaimed_bytes"`
		} `json:"summary"`
		Groups []struct {
			Digest string   `json:"digest"`
			Paths  []string `json:"paths"`
		} `json:"groups"`
		Meta struct {
			WastedBytes int64 `json:"wasted_bytes"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "done", doc.Job.Status)
	assert.True(t, doc.Job.ScanComplete)
	assert.Equal(t, "2s", doc.Job.Elapsed)
	assert.Equal(t, int64(100), doc.Summary.ReclaimedBytes)
	require.Len(t, doc.Groups, 2)
	assert.Equal(t, []string{"/data/a", "/data/b", "/data/c|d"}, doc.Groups[0].Paths)
	assert.Equal(t, int64(4096), doc.Meta.WastedBytes)
}

func TestJSONFormatter_EmptyGroupsIsArray(t *testing.T) {
	r := sampleResult()
	r.Snapshot.Groups = nil
	assert.Contains(t, render(t, "json", r), `"groups": []`)
}

func TestJSONLFormatter(t *testing.T) {
	out := render(t, "jsonl", sampleResult())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var g struct {
		Digest   string `json:"digest"`
		Resolved bool   `json:"resolved"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &g))
	assert.Equal(t, "00000000000000bb", g.Digest)
	assert.True(t, g.Resolved)
}

func TestYAMLFormatter(t *testing.T) {
	out := render(t, "yaml", sampleResult())

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	job := doc["job"].(map[string]any)
	assert.Equal(t, "done", job["status"])
	assert.Len(t, doc["groups"], 2)
}

func TestPathsFormatter(t *testing.T) {
	assert.Equal(t, "/data/b\n/data/c|d\n", render(t, "paths", sampleResult()))
	assert.Equal(t, "/data/b\x00/data/c|d\x00", render(t, "null", sampleResult()))
}

func TestCSVFormatter(t *testing.T) {
	records, err := csv.NewReader(strings.NewReader(render(t, "csv", sampleResult()))).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 5)
	assert.Equal(t, []string{"digest", "size", "keep", "path"}, records[0])
	assert.Equal(t, []string{"00000000000000aa", "2048", "true", "/data/a"}, records[1])
	assert.Equal(t, "false", records[2][2])
}

func TestMarkdownFormatter(t *testing.T) {
	out := render(t, "markdown", sampleResult())
	assert.Contains(t, out, "| DIGEST | SIZE | PATHS |")
	assert.Contains(t, out, `/data/a<br>/data/b<br>/data/c\|d`)
}

func TestTemplateFormatter(t *testing.T) {
	f := NewTemplateFormatter(`{{.Snapshot.Root}} {{date .Snapshot.StartedAt "2006-01-02"}}{{range .Snapshot.Groups}} {{bytes .Size}}{{end}}`)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleResult()))
	assert.Equal(t, "/data 2024-01-15 2.0 KiB 100 B", buf.String())

	f.SetTemplate("{{.Missing")
	assert.Error(t, f.Format(&buf, sampleResult()))
}

func TestTemplateFormatter_Default(t *testing.T) {
	out := render(t, "template", sampleResult())
	assert.Equal(t, "00000000000000aa\t2.0 KiB\t3\n00000000000000bb\t100 B\t1\n", out)
}
