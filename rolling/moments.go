package rolling

import (
	"math"

	elog "github.com/eluv-io/log-go"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/rolling-go/collections/monoqueue"
	"github.com/eluv-io/rolling-go/collections/ring"
	"github.com/eluv-io/rolling-go/util/mathutil"
)

var log = elog.Get("/eluv/rolling")

// driftTolerance is the relative disagreement between the incrementally
// maintained sums and a fresh recomputation above which Recompute logs the
// discrepancy.
const driftTolerance = 1e-9

// NewMoments creates a moment accumulator over a window of the given period.
func NewMoments(period int) (*Moments, error) {
	e := errors.Template("rolling.NewMoments", errors.K.Invalid, "period", period)
	if period < 1 {
		return nil, e("reason", "period must be positive")
	}
	buf, err := ring.New[float64](period)
	if err != nil {
		return nil, e(err)
	}
	min, err := monoqueue.NewMin[float64](period)
	if err != nil {
		return nil, e(err)
	}
	max, err := monoqueue.NewMax[float64](period)
	if err != nil {
		return nil, e(err)
	}
	return &Moments{
		period: period,
		buf:    buf,
		min:    min,
		max:    max,
	}, nil
}

// Moments maintains rolling statistical moments over a fixed-size window of
// samples: mean, variance, skewness and kurtosis, plus the window extrema.
//
// The raw power sums Σx, Σx², Σx³ and Σx⁴ are kept in compensated (KBN)
// form, which supports exact removal of an evicted sample — the reason
// power sums are used instead of Welford's recurrence, which has no clean
// sliding-window removal. Central moments are rederived from the power sums
// after every update. Extrema come from two monotonic queues.
//
// A Moments instance is owned by a single producer; none of its methods are
// safe for concurrent use.
type Moments struct {
	period    int
	buf       *ring.Buffer[float64]
	value     float64 // most recent sample
	popped    float64 // most recently evicted sample
	hasValue  bool
	hasPopped bool
	ddof      bool

	sum     mathutil.Kbn
	sumSq   mathutil.Kbn
	sumCube mathutil.Kbn
	sumQuad mathutil.Kbn

	mean float64
	m2   float64 // second central moment (population, per sample)
	m3   float64
	m4   float64

	min *monoqueue.Queue[float64]
	max *monoqueue.Queue[float64]
}

// Next feeds the next sample in stream order. Non-finite samples are
// rejected and leave the state untouched.
func (m *Moments) Next(value float64) error {
	if !mathutil.IsFinite(value) {
		return errors.E("rolling.Next", errors.K.Invalid,
			"reason", "sample must be finite",
			"value", value)
	}

	m.value = value
	m.hasValue = true
	if old, evicted := m.buf.Push(value); evicted {
		m.popped = old
		m.hasPopped = true
		m.sum.Remove(old)
		m.sumSq.Remove(old * old)
		m.sumCube.Remove(old * old * old)
		m.sumQuad.Remove(old * old * old * old)
	}

	m.sum.Add(value)
	m.sumSq.Add(value * value)
	m.sumCube.Add(value * value * value)
	m.sumQuad.Add(value * value * value * value)

	m.updateCentralMoments()
	m.min.Push(value)
	m.max.Push(value)
	return nil
}

// updateCentralMoments rederives mean and m2..m4 from the power sums.
func (m *Moments) updateCentralMoments() {
	n := float64(m.buf.Len())
	if n == 0 {
		m.mean, m.m2, m.m3, m.m4 = 0, 0, 0, 0
		return
	}

	m1 := m.sum.Value() / n
	m2raw := m.sumSq.Value() / n
	m3raw := m.sumCube.Value() / n
	m4raw := m.sumQuad.Value() / n

	m1sq := m1 * m1
	m1cb := m1sq * m1

	m.mean = m1
	m.m2 = m2raw - m1sq
	m.m3 = m3raw - 3*m1*m2raw + 2*m1cb
	m.m4 = m4raw - 4*m1*m3raw + 6*m1sq*m2raw - 3*m1cb*m1
}

// Recompute rebuilds the power sums from the window contents, discarding
// any accumulated floating point drift. Logs when the drift exceeded
// driftTolerance relative to the recomputed sum.
func (m *Moments) Recompute() {
	before := m.sum.Value()

	m.sum.Reset()
	m.sumSq.Reset()
	m.sumCube.Reset()
	m.sumQuad.Reset()
	m.buf.Do(func(v float64) {
		m.sum.Add(v)
		m.sumSq.Add(v * v)
		m.sumCube.Add(v * v * v)
		m.sumQuad.Add(v * v * v * v)
	})
	m.updateCentralMoments()

	after := m.sum.Value()
	if diff := math.Abs(after - before); diff > driftTolerance*math.Max(1, math.Abs(after)) {
		log.Debug("rolling sum drift detected on recompute",
			"sum_before", before, "sum_after", after, "count", m.buf.Len())
	}
}

// Reset returns the accumulator to the empty (filling) state.
func (m *Moments) Reset() {
	m.buf.Reset()
	m.hasValue = false
	m.hasPopped = false
	m.sum.Reset()
	m.sumSq.Reset()
	m.sumCube.Reset()
	m.sumQuad.Reset()
	m.mean, m.m2, m.m3, m.m4 = 0, 0, 0, 0
	m.min.Reset()
	m.max.Reset()
}

// DDOF returns the delta-degrees-of-freedom flag: false for population
// estimators (divisor n), true for sample estimators (divisor n-1).
func (m *Moments) DDOF() bool {
	return m.ddof
}

// SetDDOF selects sample (true) or population (false) variance-family
// estimators.
func (m *Moments) SetDDOF(ddof bool) {
	m.ddof = ddof
}

// Period returns the window size.
func (m *Moments) Period() int {
	return m.period
}

// Count returns the number of samples currently in the window.
func (m *Moments) Count() int {
	return m.buf.Len()
}

// Ready returns true once the window is full. All statistic accessors return
// ok=false before that; Value reports the most recent sample as soon as one
// has been pushed.
func (m *Moments) Ready() bool {
	return m.buf.Full()
}

// Value returns the most recent sample.
func (m *Moments) Value() (float64, bool) {
	return m.value, m.hasValue
}

// Popped returns the most recently evicted sample.
func (m *Moments) Popped() (float64, bool) {
	return m.popped, m.hasPopped
}

// Do calls fn for every sample in the window, oldest first.
func (m *Moments) Do(fn func(v float64)) {
	m.buf.Do(fn)
}

// At returns the i-th sample in insertion order, 0 being the oldest.
func (m *Moments) At(i int) float64 {
	return m.buf.At(i)
}

// Sum returns the compensated sum of the window.
func (m *Moments) Sum() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.sum.Value(), true
}

// SumSq returns the compensated sum of squares of the window.
func (m *Moments) SumSq() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.sumSq.Value(), true
}

// Mean returns the window mean.
func (m *Moments) Mean() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.mean, true
}

// MeanSq returns the mean of the squared samples.
func (m *Moments) MeanSq() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.sumSq.Value() / float64(m.buf.Len()), true
}

// Min returns the window minimum.
func (m *Moments) Min() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.min.Front()
}

// Max returns the window maximum.
func (m *Moments) Max() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	return m.max.Front()
}

// Variance returns the window variance, with divisor n or n-1 according to
// the DDOF flag. A slightly negative m2 from rounding is clamped to 0.
func (m *Moments) Variance() (float64, bool) {
	if !m.Ready() {
		return 0, false
	}
	n := float64(m.buf.Len())
	denom := n
	if m.ddof {
		denom = n - 1
	}
	if denom <= 0 {
		return 0, false
	}
	v := m.m2 * n / denom
	if v < 0 {
		v = 0
	}
	return v, true
}

// Stddev returns the window standard deviation.
func (m *Moments) Stddev() (float64, bool) {
	v, ok := m.Variance()
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// ZScore returns the standard score of the most recent sample. Undefined
// when the standard deviation is zero.
func (m *Moments) ZScore() (float64, bool) {
	if !m.hasValue {
		return 0, false
	}
	mean, ok := m.Mean()
	if !ok {
		return 0, false
	}
	stddev, ok := m.Stddev()
	if !ok || stddev <= 0 {
		return 0, false
	}
	return (m.value - mean) / stddev, true
}

// Skew returns the skewness of the window: the population coefficient
// g1 = m3/m2^(3/2), or the bias-corrected sample version when DDOF is set.
// Undefined for a degenerate (zero variance) window or n < 3.
func (m *Moments) Skew() (float64, bool) {
	if !m.Ready() || m.m2 <= 0 {
		return 0, false
	}
	n := float64(m.buf.Len())
	if n < 3 {
		return 0, false
	}

	g1 := m.m3 / (m.m2 * math.Sqrt(m.m2))
	if !m.ddof {
		return g1, true
	}
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return correction * g1, true
}

// Kurt returns the excess kurtosis of the window: population m4/m2²-3, or
// the bias-corrected sample version when DDOF is set. Undefined for a
// degenerate window or n < 4.
func (m *Moments) Kurt() (float64, bool) {
	if !m.Ready() || m.m2 <= 0 {
		return 0, false
	}
	n := float64(m.buf.Len())
	if n < 4 {
		return 0, false
	}

	if !m.ddof {
		return m.m4/(m.m2*m.m2) - 3, true
	}
	sampleVar := m.m2 * n / (n - 1)
	numerator := n * n * (n + 1)
	denominator := (n - 1) * (n - 2) * (n - 3)
	correction := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return (numerator/denominator)*(m.m4/(sampleVar*sampleVar)) - correction, true
}
