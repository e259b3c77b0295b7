package rolling

import (
	"math"

	"github.com/eluv-io/rolling-go/util/mathutil"
)

// regression maintains the least-squares fit of the window samples against
// their 0-based position: y_i = slope*i + intercept for i in [0, n).
//
// Σi and Σi² are closed-form in n, so the only rolling state is Σi·y, kept
// in a compensated sum. When the window slides by one, every remaining
// sample's position drops by one, giving the slide identity
//
//	Σiy' = Σiy - (Σy - popped) + (n-1)*new
//
// where Σy and popped refer to the window before the slide.
type regression struct {
	sumIY mathutil.Kbn
}

// roll updates Σi·y for a new sample. sumYBefore is the window sum before
// the update (including the sample about to be evicted), countBefore the
// window count before the update.
func (r *regression) roll(value float64, sumYBefore float64, countBefore int, popped float64, evicted bool) {
	if !evicted {
		// filling: the new sample lands at position countBefore
		r.sumIY.Add(float64(countBefore) * value)
		return
	}
	r.sumIY.Remove(sumYBefore - popped)
	r.sumIY.Add(float64(countBefore-1) * value)
}

// recompute rebuilds Σi·y from the window contents.
func (r *regression) recompute(do func(fn func(v float64))) {
	r.sumIY.Reset()
	i := 0
	do(func(v float64) {
		r.sumIY.Add(float64(i) * v)
		i++
	})
}

func (r *regression) reset() {
	r.sumIY.Reset()
}

// fit returns slope and intercept for a window of n samples summing to
// sumY. Undefined for n < 2 (the position variance is zero).
func (r *regression) fit(n int, sumY float64) (slope, intercept float64, ok bool) {
	if n < 2 {
		return 0, 0, false
	}
	nf := float64(n)
	meanI := (nf - 1) / 2
	// Σi² = n(n-1)(2n-1)/6, so var(i) has a closed form in n
	sumI2 := nf * (nf - 1) * (2*nf - 1) / 6
	varI := sumI2/nf - meanI*meanI
	if varI <= 0 {
		return 0, 0, false
	}
	meanY := sumY / nf
	covIY := r.sumIY.Value()/nf - meanI*meanY
	slope = covIY / varI
	intercept = meanY - slope*meanI
	return slope, intercept, true
}

// angle returns the slope angle in radians.
func angle(slope float64) float64 {
	return math.Atan(slope)
}
