package cdc

import "sync"

// RingBuffer is a bounded, thread-safe buffer of captured changes. When full,
// the oldest records are dropped to make room for new ones. Queries read
// without consuming.
type RingBuffer struct {
	mu       sync.Mutex
	records  []ChangeRecord
	head     int // next write position
	count    int
	capacity int

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer{
		records:  make([]ChangeRecord, capacity),
		capacity: capacity,
	}
}

// Append adds a record, dropping the oldest if the buffer is full.
func (b *RingBuffer) Append(record ChangeRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[b.head] = record
	b.head = (b.head + 1) % b.capacity
	if b.count < b.capacity {
		b.count++
	} else {
		b.dropped++
	}
}

// LastN returns up to n records, newest first.
func (b *RingBuffer) LastN(n int) []ChangeRecord {
	return b.lastWhere(n, nil)
}

// LastNWhere returns up to n records matching keep, newest first.
func (b *RingBuffer) LastNWhere(n int, keep func(ChangeRecord) bool) []ChangeRecord {
	return b.lastWhere(n, keep)
}

func (b *RingBuffer) lastWhere(n int, keep func(ChangeRecord) bool) []ChangeRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || b.count == 0 {
		return nil
	}
	out := make([]ChangeRecord, 0, min(n, b.count))
	for i := 0; i < b.count && len(out) < n; i++ {
		idx := (b.head - 1 - i + b.capacity*2) % b.capacity
		record := b.records[idx]
		if keep == nil || keep(record) {
			out = append(out, record)
		}
	}
	return out
}

// Len returns the current number of buffered records.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of evicted records.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
