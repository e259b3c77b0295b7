package rolling_test

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eluv-io/rolling-go/rolling"
)

func TestSingleInvalidPeriod(t *testing.T) {
	_, err := rolling.New(0)
	require.Error(t, err)
	_, err = rolling.New(-5)
	require.Error(t, err)
}

func TestSingleScenarioS1S2(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)

	for _, v := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, s.Next(v))
	}

	mean, ok := s.Mean()
	require.True(t, ok)
	require.Equal(t, 3.0, mean)
	variance, _ := s.Variance()
	require.InDelta(t, 2.0, variance, 1e-12)
	stddev, _ := s.Stddev()
	require.InDelta(t, 1.41421356, stddev, 1e-8)
	min, _ := s.Min()
	require.Equal(t, 1.0, min)
	max, _ := s.Max()
	require.Equal(t, 5.0, max)
	med, _ := s.Median()
	require.Equal(t, 3.0, med)

	require.NoError(t, s.Next(6))
	mean, _ = s.Mean()
	require.Equal(t, 4.0, mean)
	min, _ = s.Min()
	require.Equal(t, 2.0, min)
	max, _ = s.Max()
	require.Equal(t, 6.0, max)
	med, _ = s.Median()
	require.Equal(t, 4.0, med)
}

func TestSingleUniformReadiness(t *testing.T) {
	s, err := rolling.New(4)
	require.NoError(t, err)

	notReady := func() {
		_, ok := s.Mean()
		require.False(t, ok)
		_, ok = s.Min()
		require.False(t, ok)
		_, ok = s.Max()
		require.False(t, ok)
		_, ok = s.Median()
		require.False(t, ok)
		_, ok = s.Mode()
		require.False(t, ok)
		_, ok = s.IQR()
		require.False(t, ok)
		_, ok = s.MedianAbsoluteDeviation()
		require.False(t, ok)
		_, ok = s.Drawdown()
		require.False(t, ok)
		_, ok = s.MaxDrawdown()
		require.False(t, ok)
		_, ok = s.LinRegSlope()
		require.False(t, ok)
	}

	notReady()
	for _, v := range []float64{1, 2, 3} {
		require.NoError(t, s.Next(v))
		notReady()
	}
	require.NoError(t, s.Next(4))
	require.True(t, s.Ready())
	_, ok := s.Mean()
	require.True(t, ok)
}

func TestSingleModeScenarioS3(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range []float64{2, 2, 2, 3, 3} {
		require.NoError(t, s.Next(v))
	}
	mode, ok := s.Mode()
	require.True(t, ok)
	require.Equal(t, 2.0, mode)

	require.NoError(t, s.Next(3)) // window [2 2 3 3 3]
	mode, ok = s.Mode()
	require.True(t, ok)
	require.Equal(t, 3.0, mode)
}

func TestSingleQuantilesScenarioS6(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range []float64{7, 2, 5, 1, 9} {
		require.NoError(t, s.Next(v))
	}

	med, _ := s.Median()
	require.Equal(t, 5.0, med)
	q1, _ := s.Quantile(0.25)
	require.Equal(t, 2.0, q1)
	q3, _ := s.Quantile(0.75)
	require.Equal(t, 7.0, q3)
	iqr, _ := s.IQR()
	require.Equal(t, 5.0, iqr)
	mad, _ := s.MedianAbsoluteDeviation()
	require.Equal(t, 3.0, mad)
}

func TestSingleMeanAbsoluteDeviation(t *testing.T) {
	s, err := rolling.New(4)
	require.NoError(t, err)
	for _, v := range []float64{2, 4, 6, 8} {
		require.NoError(t, s.Next(v))
	}
	// mean 5, deviations {3 1 1 3}
	mad, ok := s.MeanAbsoluteDeviation()
	require.True(t, ok)
	require.InDelta(t, 2.0, mad, 1e-12)
}

func TestSingleZScore(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, s.Next(v))
	}
	z, ok := s.ZScore()
	require.True(t, ok)
	require.InDelta(t, (5.0-3.0)/math.Sqrt(2), z, 1e-12)
}

func TestSingleDrawdown(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range []float64{10, 8, 9, 7, 10} {
		require.NoError(t, s.Next(v))
	}

	// latest sample equals the peak
	dd, ok := s.Drawdown()
	require.True(t, ok)
	require.Equal(t, 0.0, dd)

	// deepest decline within the window: 7 against peak 10
	maxDD, ok := s.MaxDrawdown()
	require.True(t, ok)
	require.InDelta(t, -0.3, maxDD, 1e-12)

	require.NoError(t, s.Next(9)) // window [8 9 7 10 9]
	dd, ok = s.Drawdown()
	require.True(t, ok)
	require.InDelta(t, -0.1, dd, 1e-12)
}

func TestSingleDrawdownZeroPeak(t *testing.T) {
	s, err := rolling.New(3)
	require.NoError(t, err)
	for _, v := range []float64{-1, -2, 0} {
		require.NoError(t, s.Next(v))
	}
	// peak is 0: the ratio is undefined
	_, ok := s.Drawdown()
	require.False(t, ok)
}

func TestSingleLinReg(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		require.NoError(t, s.Next(v))
	}

	slope, ok := s.LinRegSlope()
	require.True(t, ok)
	require.InDelta(t, 1.0, slope, 1e-12)
	intercept, ok := s.LinRegIntercept()
	require.True(t, ok)
	require.InDelta(t, 1.0, intercept, 1e-12)
	angle, ok := s.LinRegAngle()
	require.True(t, ok)
	require.InDelta(t, math.Atan(1), angle, 1e-12)
	fit, ok := s.LinReg()
	require.True(t, ok)
	require.InDelta(t, 5.0, fit, 1e-12)

	// slide: window [2 3 4 5 6], still slope 1, intercept shifts to 2
	require.NoError(t, s.Next(6))
	slope, _ = s.LinRegSlope()
	require.InDelta(t, 1.0, slope, 1e-12)
	intercept, _ = s.LinRegIntercept()
	require.InDelta(t, 2.0, intercept, 1e-12)
}

// the incrementally maintained Σi·y must track a direct fit over any stream
func TestSingleLinRegAgainstBatch(t *testing.T) {
	const window = 6
	rng := rand.New(rand.NewSource(11))

	s, err := rolling.New(window)
	require.NoError(t, err)

	var stream []float64
	for i := 0; i < 400; i++ {
		v := rng.Float64()*20 - 10
		stream = append(stream, v)
		require.NoError(t, s.Next(v))
		if !s.Ready() {
			continue
		}

		win := stream[len(stream)-window:]
		var sumI, sumI2, sumY, sumIY float64
		for j, y := range win {
			fj := float64(j)
			sumI += fj
			sumI2 += fj * fj
			sumY += y
			sumIY += fj * y
		}
		n := float64(window)
		wantSlope := (n*sumIY - sumI*sumY) / (n*sumI2 - sumI*sumI)
		wantIntercept := sumY/n - wantSlope*sumI/n

		slope, ok := s.LinRegSlope()
		require.True(t, ok)
		require.InDelta(t, wantSlope, slope, 1e-9, "step %d", i)
		intercept, ok := s.LinRegIntercept()
		require.True(t, ok)
		require.InDelta(t, wantIntercept, intercept, 1e-9, "step %d", i)
	}
}

func TestSingleDiffPctChangeLogReturn(t *testing.T) {
	s, err := rolling.New(3)
	require.NoError(t, err)

	for _, v := range []float64{4, 5, 6} {
		require.NoError(t, s.Next(v))
	}
	// no eviction yet
	_, ok := s.Diff()
	require.False(t, ok)

	require.NoError(t, s.Next(8)) // evicts 4
	diff, ok := s.Diff()
	require.True(t, ok)
	require.Equal(t, 4.0, diff)
	pct, ok := s.PctChange()
	require.True(t, ok)
	require.Equal(t, 1.0, pct)
	lr, ok := s.LogReturn()
	require.True(t, ok)
	require.InDelta(t, math.Log(2), lr, 1e-12)
}

func TestSingleRejectsNonFinite(t *testing.T) {
	s, err := rolling.New(3)
	require.NoError(t, err)
	require.NoError(t, s.Next(1))
	require.Error(t, s.Next(math.NaN()))
	require.Error(t, s.Next(math.Inf(-1)))
	require.Equal(t, 1, s.Count())

	// the estimator recovers with the next valid samples
	require.NoError(t, s.Next(2))
	require.NoError(t, s.Next(3))
	med, ok := s.Median()
	require.True(t, ok)
	require.Equal(t, 2.0, med)
}

// recompute must reproduce the state of replaying the window into a fresh
// instance
func TestSingleRecomputeIdempotence(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)
	stream := []float64{3.5, -1.25, 8, 0.5, 2.75, 9.125, -4, 6.5}
	for _, v := range stream {
		require.NoError(t, s.Next(v))
	}

	fresh, err := rolling.New(5)
	require.NoError(t, err)
	for _, v := range stream[len(stream)-5:] {
		require.NoError(t, fresh.Next(v))
	}

	s.Recompute()

	type acc func() (float64, bool)
	pairs := [][2]acc{
		{s.Mean, fresh.Mean},
		{s.Variance, fresh.Variance},
		{s.Skew, fresh.Skew},
		{s.Kurt, fresh.Kurt},
		{s.Median, fresh.Median},
		{s.IQR, fresh.IQR},
		{s.MedianAbsoluteDeviation, fresh.MedianAbsoluteDeviation},
		{s.Mode, fresh.Mode},
		{s.LinRegSlope, fresh.LinRegSlope},
	}
	for i, p := range pairs {
		got, gotOK := p[0]()
		want, wantOK := p[1]()
		require.Equal(t, wantOK, gotOK, "accessor %d", i)
		require.InDelta(t, want, got, 1e-12, "accessor %d", i)
	}

	// sliding must keep working after a recompute
	require.NoError(t, s.Next(1.5))
	require.NoError(t, fresh.Next(1.5))
	gotMed, _ := s.Median()
	wantMed, _ := fresh.Median()
	require.Equal(t, wantMed, gotMed)
}

func TestSingleReset(t *testing.T) {
	s, err := rolling.New(3)
	require.NoError(t, err)
	for _, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, s.Next(v))
	}
	s.Reset()
	require.Equal(t, 0, s.Count())
	require.False(t, s.Ready())
	_, ok := s.Mean()
	require.False(t, ok)

	// refill and slide: eviction bookkeeping must survive the reset
	for _, v := range []float64{5, 6, 7, 8, 9} {
		require.NoError(t, s.Next(v))
	}
	med, ok := s.Median()
	require.True(t, ok)
	require.Equal(t, 8.0, med)
	min, _ := s.Min()
	require.Equal(t, 7.0, min)
}

// every accessor must agree with a batch computation over the window at
// every step of a long random stream
func TestSingleAgainstBatch(t *testing.T) {
	const window = 13
	rng := rand.New(rand.NewSource(99))

	s, err := rolling.New(window)
	require.NoError(t, err)

	var stream []float64
	for i := 0; i < 600; i++ {
		v := float64(rng.Intn(25)) + rng.Float64()
		stream = append(stream, v)
		require.NoError(t, s.Next(v))
		if !s.Ready() || i%7 != 0 {
			continue
		}

		win := append([]float64(nil), stream[len(stream)-window:]...)

		var sum float64
		for _, y := range win {
			sum += y
		}
		mean := sum / window
		var m2 float64
		for _, y := range win {
			m2 += (y - mean) * (y - mean)
		}
		m2 /= window

		sorted := append([]float64(nil), win...)
		sort.Float64s(sorted)

		gotMean, _ := s.Mean()
		require.InDelta(t, mean, gotMean, 1e-10, "mean step %d", i)
		gotVar, _ := s.Variance()
		require.InDelta(t, m2, gotVar, 1e-10, "variance step %d", i)
		gotMin, _ := s.Min()
		require.Equal(t, sorted[0], gotMin, "min step %d", i)
		gotMax, _ := s.Max()
		require.Equal(t, sorted[window-1], gotMax, "max step %d", i)
		gotMed, _ := s.Median()
		require.Equal(t, sorted[window/2], gotMed, "median step %d", i)
	}
}

func TestSummary(t *testing.T) {
	s, err := rolling.New(5)
	require.NoError(t, err)

	// filling: undefined statistics are omitted
	require.NoError(t, s.Next(1))
	sum := s.Summary()
	require.Equal(t, 5, sum.Period)
	require.Equal(t, 1, sum.Count)
	require.Nil(t, sum.Mean)
	require.NotNil(t, sum.Value)

	for _, v := range []float64{2, 3, 4, 5} {
		require.NoError(t, s.Next(v))
	}
	sum = s.Summary()
	require.NotNil(t, sum.Mean)
	require.Equal(t, 3.0, *sum.Mean)
	require.NotNil(t, sum.Median)
	require.Equal(t, 3.0, *sum.Median)

	// JSON round trip
	var decoded rolling.Summary
	require.NoError(t, json.Unmarshal([]byte(sum.String()), &decoded))
	require.Equal(t, 5, decoded.Period)
	require.NotNil(t, decoded.Mean)
	require.Equal(t, 3.0, *decoded.Mean)

	// CBOR round trip
	bts, err := sum.CBOR()
	require.NoError(t, err)
	fromCBOR, err := rolling.SummaryFromCBOR(bts)
	require.NoError(t, err)
	require.Equal(t, 5, fromCBOR.Period)
	require.NotNil(t, fromCBOR.Mean)
	require.Equal(t, 3.0, *fromCBOR.Mean)
}
