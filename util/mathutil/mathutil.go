// Package mathutil provides numeric helpers for the rolling estimators:
// compensated summation and order-statistic interpolation over sorted data.
package mathutil

import "math"

// Kbn is a Kahan-Babuska-Neumaier compensated sum supporting both addition
// and removal of terms. The running compensation absorbs the rounding error
// of each operation, so the accumulated sum stays accurate to O(epsilon)
// regardless of how many add/remove cycles a sliding window performs. The
// zero value is an empty sum, ready for use.
type Kbn struct {
	sum float64
	c   float64 // running compensation for lost low-order bits
}

// Add adds v to the sum.
func (k *Kbn) Add(v float64) {
	t := k.sum + v
	if math.Abs(k.sum) >= math.Abs(v) {
		k.c += (k.sum - t) + v
	} else {
		k.c += (v - t) + k.sum
	}
	k.sum = t
}

// Remove removes v from the sum. Removal is the mirror of Add: the
// compensation term absorbs the error of the subtraction, which keeps a
// late small removal near a large accumulated value from cancelling
// catastrophically.
func (k *Kbn) Remove(v float64) {
	k.Add(-v)
}

// Value returns the compensated total.
func (k *Kbn) Value() float64 {
	return k.sum + k.c
}

// Reset clears the sum and its compensation.
func (k *Kbn) Reset() {
	k.sum = 0
	k.c = 0
}

// MedianOfSorted returns the median of a sorted, non-empty slice: the middle
// element for odd lengths, the average of the two middle elements otherwise.
func MedianOfSorted(ss []float64) float64 {
	mid := len(ss) / 2
	if len(ss)%2 == 0 {
		return (ss[mid-1] + ss[mid]) / 2
	}
	return ss[mid]
}

// QuantileOfSorted returns the q-th quantile of a sorted slice using linear
// interpolation between adjacent order statistics at position q*(n-1)
// (type-7 estimation, the numpy/pandas default). Returns false if the slice
// is empty or q is outside [0, 1].
func QuantileOfSorted(ss []float64, q float64) (float64, bool) {
	if len(ss) == 0 || q < 0 || q > 1 {
		return 0, false
	}
	pos := q * float64(len(ss)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return ss[lower], true
	}
	weight := pos - float64(lower)
	return ss[lower] + weight*(ss[upper]-ss[lower]), true
}

// IsFinite returns true if v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
