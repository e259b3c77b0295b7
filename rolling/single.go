// Package rolling provides incremental statistical estimators over
// fixed-size sliding windows of streaming numeric samples: moments (mean,
// variance, skewness, kurtosis), extrema, mode, order statistics (median,
// quantiles, IQR, MAD), drawdown, linear regression, and paired estimators
// (covariance, correlation, beta).
//
// Every estimator is updated in amortized O(1) or O(log W) per sample and
// allocates all of its state at construction. Instances are single-owner:
// there is one writer and no internal locking.
package rolling

import (
	"math"

	"github.com/eluv-io/errors-go"
)

// New creates a SingleStatistics computing all single-series rolling
// statistics over a window of the given period.
func New(period int) (*SingleStatistics, error) {
	e := errors.Template("rolling.New", errors.K.Invalid, "period", period)
	moments, err := NewMoments(period)
	if err != nil {
		return nil, e(err)
	}
	quantiles, err := NewQuantiles(period)
	if err != nil {
		return nil, e(err)
	}
	return &SingleStatistics{
		moments:   moments,
		mode:      NewMode(period),
		quantiles: quantiles,
	}, nil
}

// SingleStatistics bundles the rolling estimators for a single sample
// stream behind one update call. Each Next pushes the sample into the ring
// buffer once and fans the (inserted, evicted) pair out to the moment
// accumulators, the min/max queues, the mode buckets, the order-statistic
// tree and the regression sum.
//
// All statistic accessors follow a uniform readiness policy: they return
// ok=false until the window has received its first full period of samples.
// Value is the exception: it reports the most recent sample as soon as one
// has been pushed.
type SingleStatistics struct {
	moments   *Moments
	mode      *Mode
	quantiles *Quantiles
	reg       regression
	seq       uint64 // stream position of the next sample
}

// Next feeds the next sample in stream order. Non-finite samples are
// rejected with an error and do not modify any state.
func (s *SingleStatistics) Next(value float64) error {
	sumBefore := s.moments.sum.Value()
	countBefore := s.moments.Count()

	if err := s.moments.Next(value); err != nil {
		return err
	}

	s.mode.Push(value)
	popped, evicted := s.moments.Popped()
	if evicted && countBefore == s.moments.Period() {
		s.mode.Pop(popped)
		s.quantiles.Pop(popped, s.seq-uint64(s.moments.Period()))
		s.reg.roll(value, sumBefore, countBefore, popped, true)
	} else {
		s.reg.roll(value, sumBefore, countBefore, 0, false)
	}
	if err := s.quantiles.Push(value, s.seq); err != nil {
		return err
	}
	s.seq++
	return nil
}

// Period returns the window size.
func (s *SingleStatistics) Period() int {
	return s.moments.Period()
}

// Count returns the number of samples currently in the window.
func (s *SingleStatistics) Count() int {
	return s.moments.Count()
}

// Ready returns true once the window is full.
func (s *SingleStatistics) Ready() bool {
	return s.moments.Ready()
}

// DDOF returns the delta-degrees-of-freedom flag.
func (s *SingleStatistics) DDOF() bool {
	return s.moments.DDOF()
}

// SetDDOF selects sample (true) or population (false) variance-family
// estimators.
func (s *SingleStatistics) SetDDOF(ddof bool) {
	s.moments.SetDDOF(ddof)
}

// Reset discards all samples and returns to the filling state. The stream
// sequence keeps counting, so a reused instance keeps deterministic
// eviction bookkeeping.
func (s *SingleStatistics) Reset() {
	s.moments.Reset()
	s.mode.Reset()
	s.quantiles.Reset()
	s.reg.reset()
}

// Recompute rebuilds all derived state from the window contents,
// discarding accumulated floating point drift. Equivalent to replaying the
// current window into a fresh instance.
func (s *SingleStatistics) Recompute() {
	s.moments.Recompute()
	s.reg.recompute(s.moments.Do)

	s.mode.Reset()
	s.quantiles.Reset()
	count := uint64(s.moments.Count())
	i := uint64(0)
	s.moments.Do(func(v float64) {
		s.mode.Push(v)
		_ = s.quantiles.Push(v, s.seq-count+i)
		i++
	})
}

// Value returns the most recent sample.
func (s *SingleStatistics) Value() (float64, bool) {
	return s.moments.Value()
}

// Popped returns the most recently evicted sample.
func (s *SingleStatistics) Popped() (float64, bool) {
	return s.moments.Popped()
}

// Sum returns the compensated window sum.
func (s *SingleStatistics) Sum() (float64, bool) { return s.moments.Sum() }

// SumSq returns the compensated window sum of squares.
func (s *SingleStatistics) SumSq() (float64, bool) { return s.moments.SumSq() }

// Mean returns the window mean.
func (s *SingleStatistics) Mean() (float64, bool) { return s.moments.Mean() }

// MeanSq returns the mean of the squared samples.
func (s *SingleStatistics) MeanSq() (float64, bool) { return s.moments.MeanSq() }

// Min returns the window minimum.
func (s *SingleStatistics) Min() (float64, bool) { return s.moments.Min() }

// Max returns the window maximum.
func (s *SingleStatistics) Max() (float64, bool) { return s.moments.Max() }

// Variance returns the window variance per the DDOF flag.
func (s *SingleStatistics) Variance() (float64, bool) { return s.moments.Variance() }

// Stddev returns the window standard deviation.
func (s *SingleStatistics) Stddev() (float64, bool) { return s.moments.Stddev() }

// ZScore returns the standard score of the most recent sample.
func (s *SingleStatistics) ZScore() (float64, bool) { return s.moments.ZScore() }

// Skew returns the window skewness.
func (s *SingleStatistics) Skew() (float64, bool) { return s.moments.Skew() }

// Kurt returns the window excess kurtosis.
func (s *SingleStatistics) Kurt() (float64, bool) { return s.moments.Kurt() }

// Mode returns the most frequent value in the window, smallest value
// winning ties.
func (s *SingleStatistics) Mode() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.mode.Value()
}

// Modes appends all values tied at the maximum frequency to dst and
// returns it.
func (s *SingleStatistics) Modes(dst []float64) []float64 {
	if !s.Ready() {
		return dst
	}
	return s.mode.Modes(dst)
}

// Median returns the window median.
func (s *SingleStatistics) Median() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.quantiles.Median()
}

// Quantile returns the q-th window quantile for q in [0, 1], with type-7
// linear interpolation.
func (s *SingleStatistics) Quantile(q float64) (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.quantiles.Quantile(q)
}

// IQR returns the interquartile range.
func (s *SingleStatistics) IQR() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.quantiles.IQR()
}

// MedianAbsoluteDeviation returns the median of |x - median| over the
// window, recomputed exactly against the current median (O(W log W)).
func (s *SingleStatistics) MedianAbsoluteDeviation() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	return s.quantiles.MAD()
}

// MeanAbsoluteDeviation returns the mean of |x - mean| over the window.
func (s *SingleStatistics) MeanAbsoluteDeviation() (float64, bool) {
	mean, ok := s.Mean()
	if !ok {
		return 0, false
	}
	var sum float64
	s.moments.Do(func(v float64) {
		sum += math.Abs(v - mean)
	})
	return sum / float64(s.Count()), true
}

// Drawdown returns the fractional decline of the most recent sample from
// the window peak: (x - peak)/peak, which is <= 0. Undefined when the peak
// is zero.
func (s *SingleStatistics) Drawdown() (float64, bool) {
	peak, ok := s.Max()
	if !ok || peak == 0 {
		return 0, false
	}
	value, _ := s.Value()
	return (value - peak) / peak, true
}

// MaxDrawdown returns the deepest drawdown within the window: the minimum
// of (x_i - peak_i)/peak_i where peak_i is the running maximum of the
// window prefix. Recomputed by a single scan on demand. Undefined when no
// prefix has a nonzero peak.
func (s *SingleStatistics) MaxDrawdown() (float64, bool) {
	if !s.Ready() {
		return 0, false
	}
	worst := math.Inf(1)
	peak := math.Inf(-1)
	s.moments.Do(func(v float64) {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			return
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	})
	if math.IsInf(worst, 1) {
		return 0, false
	}
	return worst, true
}

// LinRegSlope returns the least-squares slope of the window samples over
// their 0-based positions.
func (s *SingleStatistics) LinRegSlope() (float64, bool) {
	slope, _, ok := s.linreg()
	return slope, ok
}

// LinRegIntercept returns the least-squares intercept at position 0, the
// oldest sample in the window.
func (s *SingleStatistics) LinRegIntercept() (float64, bool) {
	_, intercept, ok := s.linreg()
	return intercept, ok
}

// LinRegAngle returns the slope angle, atan(slope), in radians.
func (s *SingleStatistics) LinRegAngle() (float64, bool) {
	slope, _, ok := s.linreg()
	if !ok {
		return 0, false
	}
	return angle(slope), true
}

// LinReg returns the fitted value at the newest position, slope*(W-1) +
// intercept.
func (s *SingleStatistics) LinReg() (float64, bool) {
	slope, intercept, ok := s.linreg()
	if !ok {
		return 0, false
	}
	return slope*float64(s.Period()-1) + intercept, true
}

func (s *SingleStatistics) linreg() (slope, intercept float64, ok bool) {
	if !s.Ready() {
		return 0, 0, false
	}
	return s.reg.fit(s.Count(), s.moments.sum.Value())
}

// Diff returns the difference between the most recent sample and the most
// recently evicted one, i.e. the change across one full window.
func (s *SingleStatistics) Diff() (float64, bool) {
	value, ok := s.Value()
	if !ok {
		return 0, false
	}
	popped, ok := s.Popped()
	if !ok {
		return 0, false
	}
	return value - popped, true
}

// PctChange returns Diff as a fraction of the evicted sample. Undefined
// when the evicted sample is zero.
func (s *SingleStatistics) PctChange() (float64, bool) {
	diff, ok := s.Diff()
	if !ok {
		return 0, false
	}
	popped, _ := s.Popped()
	if popped == 0 {
		return 0, false
	}
	return diff / popped, true
}

// LogReturn returns ln(value) - ln(popped). Undefined unless both samples
// are positive.
func (s *SingleStatistics) LogReturn() (float64, bool) {
	value, ok := s.Value()
	if !ok {
		return 0, false
	}
	popped, ok := s.Popped()
	if !ok || value <= 0 || popped <= 0 {
		return 0, false
	}
	return math.Log(value) - math.Log(popped), true
}
