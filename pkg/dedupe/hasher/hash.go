// Package hasher computes content digests and refines size buckets into
// groups of byte-identical files.
package hasher

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gabriel-vasile/mimetype"
)

// ChunkSize is the read size used while streaming a file.
const ChunkSize = 8 * 1024

// ErrSizeChanged is returned when a file no longer has the size it was
// bucketed under.
var ErrSizeChanged = errors.New("file size changed since scan")

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, ChunkSize)
		return &b
	},
}

var digestPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// Sum is the result of hashing one file.
type Sum struct {
	// Digest is 16 lowercase hex characters.
	Digest string

	// MimeType is detected from the first chunk.
	MimeType string
}

// FormatDigest renders a 64-bit hash as 16 lowercase hex characters.
func FormatDigest(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

// HashBytes returns the digest of in-memory content, computed exactly as
// HashFile would for a file holding data.
func HashBytes(data []byte) string {
	d := xxhash.New()
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(len(data)))
	_, _ = d.Write(prefix[:])
	_, _ = d.Write(data)
	return FormatDigest(d.Sum64())
}

// HashFile streams path in ChunkSize reads and returns its digest. The
// byte length is hashed ahead of the content so files of different sizes
// never share a digest. ctx is checked between chunks. Reading a different
// number of bytes than size yields ErrSizeChanged.
func HashFile(ctx context.Context, path string, size int64) (Sum, error) {
	if err := ctx.Err(); err != nil {
		return Sum{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Sum{}, err
	}
	defer func() { _ = f.Close() }()

	d := digestPool.Get().(*xxhash.Digest)
	d.Reset()
	defer digestPool.Put(d)

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	buf := *bufPtr

	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(size))
	_, _ = d.Write(prefix[:])

	var (
		read     int64
		mimeType string
	)
	for {
		if err := ctx.Err(); err != nil {
			return Sum{}, err
		}

		n, err := f.Read(buf)
		if n > 0 {
			if read == 0 {
				mimeType = mimetype.Detect(buf[:n]).String()
			}
			read += int64(n)
			if read > size {
				return Sum{}, fmt.Errorf("%w: read more than %d bytes", ErrSizeChanged, size)
			}
			_, _ = d.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sum{}, err
		}
	}

	if read != size {
		return Sum{}, fmt.Errorf("%w: read %d of %d bytes", ErrSizeChanged, read, size)
	}
	if size == 0 {
		mimeType = mimetype.Detect(nil).String()
	}

	return Sum{Digest: FormatDigest(d.Sum64()), MimeType: mimeType}, nil
}
