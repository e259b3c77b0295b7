package rolling

import (
	"math"

	"github.com/eluv-io/errors-go"

	"github.com/eluv-io/rolling-go/collections/ring"
	"github.com/eluv-io/rolling-go/util/mathutil"
)

// Sample is one observation of a paired stream, updated atomically.
type Sample struct {
	X float64
	Y float64
}

// NewPaired creates a PairedStatistics computing rolling covariance,
// correlation and beta over a window of the given period. X is the
// independent series (e.g. market returns), Y the dependent one.
func NewPaired(period int) (*PairedStatistics, error) {
	e := errors.Template("rolling.NewPaired", errors.K.Invalid, "period", period)
	if period < 1 {
		return nil, e("reason", "period must be positive")
	}
	buf, err := ring.New[Sample](period)
	if err != nil {
		return nil, e(err)
	}
	return &PairedStatistics{period: period, buf: buf}, nil
}

// PairedStatistics maintains compensated sums Σx, Σy, Σx², Σy² and Σxy
// over a sliding window of paired samples. Like the single-series
// estimators it is single-owner and allocation-free after construction,
// and all accessors require a full window.
type PairedStatistics struct {
	period int
	buf    *ring.Buffer[Sample]
	ddof   bool

	sumX  mathutil.Kbn
	sumY  mathutil.Kbn
	sumXX mathutil.Kbn
	sumYY mathutil.Kbn
	sumXY mathutil.Kbn
}

// Next feeds the next paired sample in stream order. Non-finite components
// are rejected and leave the state untouched.
func (p *PairedStatistics) Next(x, y float64) error {
	if !mathutil.IsFinite(x) || !mathutil.IsFinite(y) {
		return errors.E("rolling.PairedStatistics.Next", errors.K.Invalid,
			"reason", "sample must be finite",
			"x", x, "y", y)
	}

	if old, evicted := p.buf.Push(Sample{X: x, Y: y}); evicted {
		p.sumX.Remove(old.X)
		p.sumY.Remove(old.Y)
		p.sumXX.Remove(old.X * old.X)
		p.sumYY.Remove(old.Y * old.Y)
		p.sumXY.Remove(old.X * old.Y)
	}
	p.sumX.Add(x)
	p.sumY.Add(y)
	p.sumXX.Add(x * x)
	p.sumYY.Add(y * y)
	p.sumXY.Add(x * y)
	return nil
}

// Period returns the window size.
func (p *PairedStatistics) Period() int {
	return p.period
}

// Count returns the number of paired samples currently in the window.
func (p *PairedStatistics) Count() int {
	return p.buf.Len()
}

// Ready returns true once the window is full.
func (p *PairedStatistics) Ready() bool {
	return p.buf.Full()
}

// DDOF returns the delta-degrees-of-freedom flag.
func (p *PairedStatistics) DDOF() bool {
	return p.ddof
}

// SetDDOF selects sample (true) or population (false) covariance.
func (p *PairedStatistics) SetDDOF(ddof bool) {
	p.ddof = ddof
}

// Reset discards all samples and returns to the filling state.
func (p *PairedStatistics) Reset() {
	p.buf.Reset()
	p.sumX.Reset()
	p.sumY.Reset()
	p.sumXX.Reset()
	p.sumYY.Reset()
	p.sumXY.Reset()
}

// Recompute rebuilds the compensated sums from the window contents.
func (p *PairedStatistics) Recompute() {
	p.sumX.Reset()
	p.sumY.Reset()
	p.sumXX.Reset()
	p.sumYY.Reset()
	p.sumXY.Reset()
	p.buf.Do(func(s Sample) {
		p.sumX.Add(s.X)
		p.sumY.Add(s.Y)
		p.sumXX.Add(s.X * s.X)
		p.sumYY.Add(s.Y * s.Y)
		p.sumXY.Add(s.X * s.Y)
	})
}

// covPop returns the population covariance Σxy/n - mean(x)*mean(y).
func (p *PairedStatistics) covPop() float64 {
	n := float64(p.buf.Len())
	meanX := p.sumX.Value() / n
	meanY := p.sumY.Value() / n
	return p.sumXY.Value()/n - meanX*meanY
}

// varPop returns the population variances of both series, clamped at zero.
func (p *PairedStatistics) varPop() (vx, vy float64) {
	n := float64(p.buf.Len())
	meanX := p.sumX.Value() / n
	meanY := p.sumY.Value() / n
	vx = p.sumXX.Value()/n - meanX*meanX
	vy = p.sumYY.Value()/n - meanY*meanY
	return math.Max(vx, 0), math.Max(vy, 0)
}

// Cov returns the rolling covariance, with divisor n or n-1 according to
// the DDOF flag.
func (p *PairedStatistics) Cov() (float64, bool) {
	if !p.Ready() {
		return 0, false
	}
	cov := p.covPop()
	if p.ddof {
		n := float64(p.buf.Len())
		if n < 2 {
			return 0, false
		}
		cov *= n / (n - 1)
	}
	return cov, true
}

// Corr returns the Pearson correlation coefficient. Undefined when either
// series has zero standard deviation.
func (p *PairedStatistics) Corr() (float64, bool) {
	if !p.Ready() {
		return 0, false
	}
	vx, vy := p.varPop()
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return p.covPop() / (math.Sqrt(vx) * math.Sqrt(vy)), true
}

// Beta returns the regression slope of Y on X, cov(x,y)/var(x). The DDOF
// corrections cancel, so the DDOF flag has no effect. Undefined when X has
// zero variance.
func (p *PairedStatistics) Beta() (float64, bool) {
	if !p.Ready() {
		return 0, false
	}
	vx, _ := p.varPop()
	if vx == 0 {
		return 0, false
	}
	return p.covPop() / vx, true
}
