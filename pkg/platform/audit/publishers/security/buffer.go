// Package security provides a buffered audit publisher for fraud and
// forensics events. Events are staged in a bounded ring buffer and flushed
// in batches so a slow store never blocks the verification hot path.
package security

import (
	"sync"

	audit "idswyft/pkg/platform/audit"
)

// RingBuffer is a fixed-capacity staging area for security events. Once
// full, the oldest events are evicted first; Dropped counts the evictions
// so the publisher can surface loss in its metrics.
type RingBuffer struct {
	mu       sync.Mutex
	events   []audit.Event
	head     int // next write slot
	tail     int // oldest buffered event
	count    int
	capacity int
	dropped  int64
}

// NewRingBuffer creates a buffer holding at most capacity events.
// Non-positive capacities get a 10000 slot default.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{
		events:   make([]audit.Event, capacity),
		capacity: capacity,
	}
}

// TryEnqueue stages an event without evicting. It reports false when the
// buffer is full.
func (b *RingBuffer) TryEnqueue(event audit.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		return false
	}
	b.push(event)
	return true
}

// Enqueue stages an event, evicting the oldest one if the buffer is full.
func (b *RingBuffer) Enqueue(event audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.evict()
	}
	b.push(event)
}

// DropOldest evicts the oldest buffered event. It reports false when the
// buffer is empty.
func (b *RingBuffer) DropOldest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return false
	}
	b.evict()
	return true
}

// DequeueBatch removes and returns up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	batch := make([]audit.Event, n)
	for i := range batch {
		batch[i] = b.events[b.tail]
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return batch
}

// Len reports how many events are currently buffered.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped reports how many events have been evicted since creation.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// push and evict require b.mu held.

func (b *RingBuffer) push(event audit.Event) {
	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
}

func (b *RingBuffer) evict() {
	b.tail = (b.tail + 1) % b.capacity
	b.count--
	b.dropped++
}
