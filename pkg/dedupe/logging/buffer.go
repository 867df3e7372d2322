package logging

import "sync"

// DefaultBufferSize is the number of entries a job log keeps.
const DefaultBufferSize = 500

// LogBuffer is a fixed-capacity ring of log entries. When full, adding an
// entry evicts the oldest one.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	start   int // index of oldest entry
	count   int
}

// NewLogBuffer creates a buffer holding at most capacity entries.
// A non-positive capacity uses DefaultBufferSize.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, capacity)}
}

// Add appends an entry, overwriting the oldest when the buffer is full.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.entries)
	b.entries[(b.start+b.count)%capacity] = entry
	if b.count < capacity {
		b.count++
		return
	}
	b.start = (b.start + 1) % capacity
}

// Entries returns a copy of all entries, oldest first.
func (b *LogBuffer) Entries() []LogEntry {
	return b.Last(b.Cap())
}

// Messages returns the message of every entry, oldest first.
func (b *LogBuffer) Messages() []string {
	entries := b.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Last returns the newest n entries, oldest of them first.
func (b *LogBuffer) Last(n int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n = max(0, min(n, b.count))
	out := make([]LogEntry, n)
	skip := b.count - n
	for i := range n {
		out[i] = b.entries[(b.start+skip+i)%len(b.entries)]
	}
	return out
}

// Len returns the number of entries currently held.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap returns the buffer capacity.
func (b *LogBuffer) Cap() int {
	return len(b.entries)
}

