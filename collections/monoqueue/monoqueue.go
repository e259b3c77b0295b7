// Package monoqueue provides a monotonic queue for rolling minimum and
// maximum over a sliding window in amortized O(1) per sample.
package monoqueue

import (
	"github.com/gammazero/deque"
	"golang.org/x/exp/constraints"

	"github.com/eluv-io/errors-go"
)

// NewMin creates a queue whose Front tracks the minimum of the last window
// samples pushed into it.
func NewMin[T constraints.Ordered](window int) (*Queue[T], error) {
	return newQueue[T]("monoqueue.NewMin", window, func(existing, next T) bool {
		return existing > next
	})
}

// NewMax creates a queue whose Front tracks the maximum of the last window
// samples pushed into it.
func NewMax[T constraints.Ordered](window int) (*Queue[T], error) {
	return newQueue[T]("monoqueue.NewMax", window, func(existing, next T) bool {
		return existing < next
	})
}

func newQueue[T constraints.Ordered](op string, window int, dominated func(existing, next T) bool) (*Queue[T], error) {
	if window < 1 {
		return nil, errors.E(op, errors.K.Invalid,
			"reason", "window must be positive",
			"window", window)
	}
	return &Queue[T]{
		dq:        deque.New[entry[T]](window),
		window:    uint64(window),
		dominated: dominated,
	}, nil
}

type entry[T any] struct {
	val T
	pos uint64 // 0-based position in the sample stream
}

// Queue holds (value, position) pairs whose values are kept monotone from
// front to back: entries strictly dominated by a newly pushed value are
// popped from the back, and entries whose position has slid out of the
// window are popped from the front. The front therefore always holds the
// window extremum. Each sample enters and leaves each end at most once.
type Queue[T constraints.Ordered] struct {
	dq        *deque.Deque[entry[T]]
	window    uint64
	pushed    uint64 // total samples pushed
	dominated func(existing, next T) bool
}

// Push records the next sample in stream order.
func (q *Queue[T]) Push(v T) {
	for q.dq.Len() > 0 && q.dominated(q.dq.Back().val, v) {
		q.dq.PopBack()
	}
	q.dq.PushBack(entry[T]{val: v, pos: q.pushed})
	q.pushed++
	for q.dq.Front().pos+q.window < q.pushed {
		q.dq.PopFront()
	}
}

// Front returns the extremum of the active window, or false if nothing has
// been pushed yet.
func (q *Queue[T]) Front() (T, bool) {
	if q.dq.Len() == 0 {
		var zero T
		return zero, false
	}
	return q.dq.Front().val, true
}

// Len returns the number of candidate entries currently retained.
func (q *Queue[T]) Len() int {
	return q.dq.Len()
}

// Pushed returns the total number of samples pushed since creation or the
// last Reset.
func (q *Queue[T]) Pushed() uint64 {
	return q.pushed
}

// Reset discards all entries and restarts the stream position at 0.
func (q *Queue[T]) Reset() {
	q.dq.Clear()
	q.pushed = 0
}
