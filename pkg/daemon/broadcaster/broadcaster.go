// Package broadcaster fans job events out to WatchJob subscribers.
package broadcaster

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jamesainslie/dedupe/pkg/dedupe/types"
)

// DefaultBuffer is the channel capacity used when Subscribe is given none.
const DefaultBuffer = 100

// Subscriber receives job events.
type Subscriber struct {
	ID string

	// Kinds limits delivery to these event kinds. Empty means all.
	Kinds []types.EventKind

	Events chan types.JobEvent

	dropped atomic.Int64
}

// Dropped returns how many events were discarded because Events was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Subscriber) wants(kind types.EventKind) bool {
	return len(s.Kinds) == 0 || slices.Contains(s.Kinds, kind)
}

// Broadcaster distributes job events without ever blocking the publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	buffer      int
	closed      bool
}

// New creates a Broadcaster whose subscriber channels hold buffer events.
func New(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
		buffer:      buffer,
	}
}

// Subscribe registers a subscriber. It returns nil after Close.
func (b *Broadcaster) Subscribe(kinds ...types.EventKind) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Kinds:  kinds,
		Events: make(chan types.JobEvent, b.buffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Publish sends ev to every interested subscriber. Full channels drop the
// event.
func (b *Broadcaster) Publish(ev types.JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		if !sub.wants(ev.Kind) {
			continue
		}
		select {
		case sub.Events <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
