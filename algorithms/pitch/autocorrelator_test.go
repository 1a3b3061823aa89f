package pitch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

func windowFrom(size int, bit func(i int) bool) *common.Bitset {
	w := common.NewBitset(size)
	for i := 0; i < size; i++ {
		if bit(i) {
			w.SetRange(i, i+1)
		}
	}
	return w
}

func sineBits(period float64, shape func(x float64) float64) func(int) bool {
	return func(i int) bool {
		return shape(2*math.Pi*float64(i)/period) > 0
	}
}

func TestAutocorrelatorSquareWave(t *testing.T) {
	for _, interp := range []common.InterpolationType{common.Triangular, common.Parabolic} {
		a := NewAutocorrelator(20, 100, 100, interp, testPolicy)
		first, second := a.Process(windowFrom(256, func(i int) bool { return i%40 < 20 }))

		assert.InDelta(t, 40.0, first.Period, 0.1, interp.String())
		assert.InDelta(t, 1.0, first.Periodicity, 1e-9, interp.String())
		assert.Equal(t, NoCandidate, second, interp.String())
	}
}

func TestAutocorrelatorFractionalPeriod(t *testing.T) {
	a := NewAutocorrelator(20, 90, 300, common.Triangular, testPolicy)
	first, second := a.Process(windowFrom(1024, sineBits(37.5, math.Sin)))

	assert.InDelta(t, 37.5, first.Period, 0.05)
	assert.InDelta(t, 0.973, first.Periodicity, 0.005)
	assert.Equal(t, NoCandidate, second)
}

func TestAutocorrelatorPlateauCentre(t *testing.T) {
	// A period of 40.5 leaves lags 40 and 41 equally good.
	a := NewAutocorrelator(20, 100, 200, common.Triangular, testPolicy)
	first, second := a.Process(windowFrom(512, func(i int) bool {
		return math.Mod(float64(i), 40.5) < 20.25
	}))

	curve := a.Curve()
	assert.Equal(t, curve[20], curve[21])
	assert.InDelta(t, 40.5, first.Period, 0.05)
	assert.InDelta(t, 0.975, first.Periodicity, 1e-9)
	assert.Equal(t, NoCandidate, second)
}

func TestAutocorrelatorStrongSecondHarmonic(t *testing.T) {
	shape := func(x float64) float64 { return 0.2*math.Sin(x) + 0.8*math.Sin(2*x) }

	a := NewAutocorrelator(30, 120, 400, common.Triangular, testPolicy)
	first, second := a.Process(windowFrom(1024, sineBits(100, shape)))

	assert.InDelta(t, 100.0, first.Period, 0.05)
	assert.InDelta(t, 1.0, first.Periodicity, 0.01)

	// Half a period apart the signs only disagree where |cos x| < 0.125,
	// six samples in every hundred.
	require.True(t, second.IsValid())
	assert.InDelta(t, 50.0, second.Period, 0.5)
	assert.InDelta(t, 0.94, second.Periodicity, 0.005)
}

func TestAutocorrelatorDegenerateWindows(t *testing.T) {
	a := NewAutocorrelator(20, 100, 100, common.Triangular, testPolicy)

	first, second := a.Process(windowFrom(256, func(int) bool { return true }))
	assert.Equal(t, NoCandidate, first, "constant window")
	assert.Equal(t, NoCandidate, second)

	first, second = a.Process(windowFrom(64, func(i int) bool { return i%10 < 5 }))
	assert.Equal(t, NoCandidate, first, "window shorter than the longest lag")
	assert.Equal(t, NoCandidate, second)
}

func TestAutocorrelatorCurve(t *testing.T) {
	a := NewAutocorrelator(20, 100, 100, common.Triangular, testPolicy)
	lagMin, lagMax := a.LagRange()
	assert.Equal(t, 20, lagMin)
	assert.Equal(t, 100, lagMax)

	a.Process(windowFrom(256, func(i int) bool { return i%40 < 20 }))
	curve := a.Curve()
	require.Len(t, curve, 81)

	for _, d := range curve {
		assert.GreaterOrEqual(t, d, 0.0)
		assert.LessOrEqual(t, d, 1.0)
	}
	assert.Equal(t, 1.0, curve[0], "lag 20 is half a period")
	assert.Equal(t, 0.0, curve[20], "lag 40 is a full period")
	assert.Equal(t, 0.0, curve[60], "lag 80 is two periods")
	assert.InDelta(t, 0.1, curve[22], 1e-9, "two lags off costs two bits per edge")
}
