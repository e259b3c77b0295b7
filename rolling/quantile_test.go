package rolling_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eluv-io/rolling-go/rolling"
)

func TestQuantilesInvalidPeriod(t *testing.T) {
	_, err := rolling.NewQuantiles(0)
	require.Error(t, err)
}

func TestQuantilesScenarioS6(t *testing.T) {
	q, err := rolling.NewQuantiles(5)
	require.NoError(t, err)
	for i, v := range []float64{7, 2, 5, 1, 9} {
		require.NoError(t, q.Push(v, uint64(i)))
	}

	med, ok := q.Median()
	require.True(t, ok)
	require.Equal(t, 5.0, med)

	q1, ok := q.Quantile(0.25)
	require.True(t, ok)
	require.Equal(t, 2.0, q1)
	q3, ok := q.Quantile(0.75)
	require.True(t, ok)
	require.Equal(t, 7.0, q3)

	iqr, ok := q.IQR()
	require.True(t, ok)
	require.Equal(t, 5.0, iqr)

	// MAD: median of |{7 2 5 1 9} - 5| = median of {4 3 0 2 4} = 3
	mad, ok := q.MAD()
	require.True(t, ok)
	require.Equal(t, 3.0, mad)
}

func TestQuantilesEvenMedian(t *testing.T) {
	q, err := rolling.NewQuantiles(4)
	require.NoError(t, err)
	for i, v := range []float64{4, 1, 3, 2} {
		require.NoError(t, q.Push(v, uint64(i)))
	}
	med, ok := q.Median()
	require.True(t, ok)
	require.Equal(t, 2.5, med)
}

func TestQuantilesInterpolation(t *testing.T) {
	q, err := rolling.NewQuantiles(5)
	require.NoError(t, err)
	for i, v := range []float64{1, 2, 5, 7, 9} {
		require.NoError(t, q.Push(v, uint64(i)))
	}

	// type-7: position 0.6*(5-1) = 2.4 => 5 + 0.4*(7-5)
	got, ok := q.Quantile(0.6)
	require.True(t, ok)
	require.InDelta(t, 5.8, got, 1e-12)

	got, ok = q.Quantile(0)
	require.True(t, ok)
	require.Equal(t, 1.0, got)
	got, ok = q.Quantile(1)
	require.True(t, ok)
	require.Equal(t, 9.0, got)

	_, ok = q.Quantile(-0.01)
	require.False(t, ok)
	_, ok = q.Quantile(1.01)
	require.False(t, ok)
}

func TestQuantilesSlidingPopPush(t *testing.T) {
	q, err := rolling.NewQuantiles(3)
	require.NoError(t, err)

	require.NoError(t, q.Push(1, 0))
	require.NoError(t, q.Push(2, 1))
	require.NoError(t, q.Push(3, 2))
	med, _ := q.Median()
	require.Equal(t, 2.0, med)

	require.True(t, q.Pop(1, 0))
	require.NoError(t, q.Push(4, 3))
	med, _ = q.Median()
	require.Equal(t, 3.0, med)

	require.True(t, q.Pop(2, 1))
	require.NoError(t, q.Push(5, 4))
	med, _ = q.Median()
	require.Equal(t, 4.0, med)

	// popping a key that never existed reports false
	require.False(t, q.Pop(99, 99))
}

// the rolling MAD must equal the batch computation at every step
func TestQuantilesMADAgainstBatch(t *testing.T) {
	const window = 11
	rng := rand.New(rand.NewSource(5))

	q, err := rolling.NewQuantiles(window)
	require.NoError(t, err)

	var stream []float64
	for i := 0; i < 300; i++ {
		v := math.Round(rng.Float64()*100) / 4
		stream = append(stream, v)
		if len(stream) > window {
			require.True(t, q.Pop(stream[len(stream)-window-1], uint64(i-window)))
		}
		require.NoError(t, q.Push(v, uint64(i)))

		if len(stream) < window {
			continue
		}
		win := append([]float64(nil), stream[len(stream)-window:]...)
		sort.Float64s(win)
		wantMed := win[window/2]

		devs := make([]float64, window)
		for j, s := range win {
			devs[j] = math.Abs(s - wantMed)
		}
		sort.Float64s(devs)
		wantMAD := devs[window/2]

		med, ok := q.Median()
		require.True(t, ok)
		require.Equal(t, wantMed, med, "step %d", i)
		mad, ok := q.MAD()
		require.True(t, ok)
		require.Equal(t, wantMAD, mad, "step %d", i)
	}
}

func TestQuantilesReset(t *testing.T) {
	q, err := rolling.NewQuantiles(3)
	require.NoError(t, err)
	require.NoError(t, q.Push(1, 0))
	q.Reset()
	require.Equal(t, 0, q.Len())
	_, ok := q.Median()
	require.False(t, ok)
	require.NoError(t, q.Push(8, 10))
	med, ok := q.Median()
	require.True(t, ok)
	require.Equal(t, 8.0, med)
}
