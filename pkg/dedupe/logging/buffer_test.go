package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(buf *LogBuffer, n int) {
	for i := range n {
		buf.Add(LogEntry{Component: "job", Message: fmt.Sprintf("m%d", i)})
	}
}

func TestLogBuffer_AddAndEntries(t *testing.T) {
	buf := NewLogBuffer(3)
	fill(buf, 3)

	entries := buf.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "m0", entries[0].Message)
	assert.Equal(t, "m2", entries[2].Message)
}

func TestLogBuffer_EvictsOldest(t *testing.T) {
	buf := NewLogBuffer(3)
	fill(buf, 5)

	assert.Equal(t, []string{"m2", "m3", "m4"}, buf.Messages())
	assert.Equal(t, 3, buf.Len())
}

func TestLogBuffer_JobLogCapacity(t *testing.T) {
	buf := NewLogBuffer(0)
	fill(buf, DefaultBufferSize+20)

	msgs := buf.Messages()
	require.Len(t, msgs, DefaultBufferSize)
	assert.Equal(t, "m20", msgs[0])
	assert.Equal(t, fmt.Sprintf("m%d", DefaultBufferSize+19), msgs[len(msgs)-1])
}

func TestLogBuffer_Last(t *testing.T) {
	buf := NewLogBuffer(5)
	fill(buf, 5)

	last := buf.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, "m3", last[0].Message)
	assert.Equal(t, "m4", last[1].Message)

	assert.Len(t, buf.Last(100), 5)
	assert.Empty(t, buf.Last(-1))
}

func TestNewLogBuffer_InvalidSize(t *testing.T) {
	assert.Equal(t, DefaultBufferSize, NewLogBuffer(0).Cap())
	assert.Equal(t, DefaultBufferSize, NewLogBuffer(-5).Cap())
}
