// Package ring provides a fixed-capacity FIFO buffer used as the sample
// window backing all rolling estimators.
package ring

import (
	"github.com/eluv-io/errors-go"
)

// New creates a ring buffer with the given capacity. The full backing array
// is allocated up front; pushing never allocates.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity < 1 {
		return nil, errors.E("ring.New", errors.K.Invalid,
			"reason", "capacity must be positive",
			"capacity", capacity)
	}
	return &Buffer[T]{
		entries: make([]T, capacity),
	}, nil
}

// Buffer is a fixed-capacity FIFO of the most recent values pushed into it.
// Once full, every push evicts the oldest value, which Push returns to the
// caller so that dependent accumulators can retire its contribution.
type Buffer[T any] struct {
	entries []T // circular storage
	oldest  int // index of the oldest value
	count   int // number of values currently stored
}

// Push appends a value. If the buffer is at capacity, the evicted oldest
// value is returned with evicted=true; the evicted value is always the one
// pushed exactly Cap() calls earlier.
func (b *Buffer[T]) Push(v T) (old T, evicted bool) {
	if b.count < len(b.entries) {
		b.entries[(b.oldest+b.count)%len(b.entries)] = v
		b.count++
		return old, false
	}
	old = b.entries[b.oldest]
	b.entries[b.oldest] = v
	b.oldest = (b.oldest + 1) % len(b.entries)
	return old, true
}

// Len returns the number of values currently stored.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.entries)
}

// Full returns true once the buffer holds Cap() values.
func (b *Buffer[T]) Full() bool {
	return b.count == len(b.entries)
}

// At returns the i-th value in insertion order, 0 being the oldest. The
// index must be in [0, Len()).
func (b *Buffer[T]) At(i int) T {
	return b.entries[(b.oldest+i)%len(b.entries)]
}

// Do calls fn for every stored value in insertion order, oldest first.
func (b *Buffer[T]) Do(fn func(v T)) {
	for i := 0; i < b.count; i++ {
		fn(b.entries[(b.oldest+i)%len(b.entries)])
	}
}

// Reset discards all values. The backing array is retained.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.entries {
		b.entries[i] = zero
	}
	b.oldest = 0
	b.count = 0
}
