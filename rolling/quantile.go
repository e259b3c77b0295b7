package rolling

import (
	"math"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/rolling-go/collections/ostree"
)

// NewQuantiles creates an order-statistic estimator over a window of the
// given period. Two trees are allocated: one holding the window samples and
// one scratch tree for absolute deviations (MAD).
func NewQuantiles(period int) (*Quantiles, error) {
	e := errors.Template("rolling.NewQuantiles", errors.K.Invalid, "period", period)
	if period < 1 {
		return nil, e("reason", "period must be positive")
	}
	tree, err := ostree.New(period)
	if err != nil {
		return nil, e(err)
	}
	dev, err := ostree.New(period)
	if err != nil {
		return nil, e(err)
	}
	return &Quantiles{tree: tree, dev: dev}, nil
}

// Quantiles answers median, quantile, IQR and MAD queries over the current
// window contents using an order-statistic tree. Each sample is keyed by
// (value, seq) where seq is its position in the stream, so duplicates are
// distinct nodes and evicting the oldest occurrence is deterministic.
//
// The caller (SingleStatistics) owns the window and drives Push/Pop with
// matching sequence numbers.
type Quantiles struct {
	tree *ostree.Tree
	dev  *ostree.Tree
}

// Push inserts a sample with its stream sequence number.
func (q *Quantiles) Push(value float64, seq uint64) error {
	return q.tree.Insert(value, seq)
}

// Pop removes the sample that was inserted with the given sequence number.
func (q *Quantiles) Pop(value float64, seq uint64) bool {
	return q.tree.Delete(value, seq)
}

// Len returns the number of samples currently held.
func (q *Quantiles) Len() int {
	return q.tree.Len()
}

// Reset discards all samples.
func (q *Quantiles) Reset() {
	q.tree.Clear()
	q.dev.Clear()
}

// Median returns the middle order statistic, averaging the two middle
// values for an even count.
func (q *Quantiles) Median() (float64, bool) {
	return median(q.tree)
}

func median(t *ostree.Tree) (float64, bool) {
	n := t.Len()
	if n == 0 {
		return 0, false
	}
	if n%2 == 1 {
		return t.Select((n - 1) / 2)
	}
	lo, _ := t.Select(n/2 - 1)
	hi, _ := t.Select(n / 2)
	return (lo + hi) / 2, true
}

// Quantile returns the p-th quantile for p in [0, 1], interpolating
// linearly between adjacent order statistics at position p*(n-1) (type-7).
func (q *Quantiles) Quantile(p float64) (float64, bool) {
	n := q.tree.Len()
	if n == 0 || p < 0 || p > 1 {
		return 0, false
	}
	pos := p * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	lo, ok := q.tree.Select(lower)
	if !ok {
		return 0, false
	}
	if lower == upper {
		return lo, true
	}
	hi, _ := q.tree.Select(upper)
	weight := pos - float64(lower)
	return lo + weight*(hi-lo), true
}

// IQR returns the interquartile range Q3 - Q1.
func (q *Quantiles) IQR() (float64, bool) {
	q1, ok := q.Quantile(0.25)
	if !ok {
		return 0, false
	}
	q3, _ := q.Quantile(0.75)
	return q3 - q1, true
}

// MAD returns the median absolute deviation: the median of |x - median|
// over the window. The deviations are recomputed against the current
// median on every call by refilling the scratch tree — O(n log n), with no
// allocation thanks to the tree's node arena. There is no known O(log n)
// incremental MAD for sliding windows: a median shift invalidates every
// stored deviation.
func (q *Quantiles) MAD() (float64, bool) {
	med, ok := q.Median()
	if !ok {
		return 0, false
	}
	q.dev.Clear()
	seq := uint64(0)
	q.tree.Do(func(v float64) {
		_ = q.dev.Insert(math.Abs(v-med), seq)
		seq++
	})
	return median(q.dev)
}
