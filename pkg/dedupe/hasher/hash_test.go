package hasher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var digestPattern = regexp.MustCompile(`^[0-9a-f]{16}$`)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	dir := t.TempDir()
	inputs := map[string][]byte{
		"empty":  {},
		"small":  []byte("hello"),
		"chunk":  bytes.Repeat([]byte{'a'}, ChunkSize),
		"chunks": bytes.Repeat([]byte("0123456789"), ChunkSize),
	}

	for name, data := range inputs {
		p := writeFile(t, dir, name, data)
		sum, err := HashFile(context.Background(), p, int64(len(data)))
		require.NoError(t, err, name)
		assert.Regexp(t, digestPattern, sum.Digest, name)
		assert.Equal(t, HashBytes(data), sum.Digest, name)
		assert.NotEmpty(t, sum.MimeType, name)
	}
}

func TestHashFile_IdenticalContentSameDigest(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", []byte("same bytes"))
	b := writeFile(t, dir, "b", []byte("same bytes"))
	c := writeFile(t, dir, "c", []byte("diff bytes"))

	sa, err := HashFile(context.Background(), a, 10)
	require.NoError(t, err)
	sb, err := HashFile(context.Background(), b, 10)
	require.NoError(t, err)
	sc, err := HashFile(context.Background(), c, 10)
	require.NoError(t, err)

	assert.Equal(t, sa.Digest, sb.Digest)
	assert.NotEqual(t, sa.Digest, sc.Digest)
}

func TestHashBytes_LengthIsMixedIn(t *testing.T) {
	// A zero-filled file and its one byte longer sibling differ only in size.
	assert.NotEqual(t, HashBytes(make([]byte, 3)), HashBytes(make([]byte, 4)))
}

func TestHashFile_SizeChanged(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "f", []byte("12345"))

	_, err := HashFile(context.Background(), p, 4)
	assert.ErrorIs(t, err, ErrSizeChanged)

	_, err = HashFile(context.Background(), p, 6)
	assert.ErrorIs(t, err, ErrSizeChanged)
}

func TestHashFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "f", []byte("12345"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := HashFile(ctx, p, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashFile_Missing(t *testing.T) {
	_, err := HashFile(context.Background(), filepath.Join(t.TempDir(), "nope"), 1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHashFile_DetectsMimeType(t *testing.T) {
	dir := t.TempDir()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	p := writeFile(t, dir, "img", png)

	sum, err := HashFile(context.Background(), p, int64(len(png)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", sum.MimeType)
}

func TestFormatDigest(t *testing.T) {
	assert.Equal(t, "0000000000000001", FormatDigest(1))
	assert.Equal(t, "ffffffffffffffff", FormatDigest(^uint64(0)))
}
