package pitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPeriodDetectorParams(t *testing.T) {
	p := DefaultPeriodDetectorParams(100, 400, testSampleRate, -60)

	assert.Equal(t, defaultHysteresisRatio, p.HysteresisRatio)
	assert.Equal(t, defaultReleasePeriods, p.ReleasePeriods)
	assert.Equal(t, defaultBaselineCutoffRatio, p.BaselineCutoffRatio)
	assert.Equal(t, defaultPulseThreshold, p.PulseThreshold)
	assert.Equal(t, defaultWindowMultiplier, p.WindowMultiplier)
	assert.Equal(t, defaultHopDivisor, p.HopDivisor)
	assert.Equal(t, defaultHarmonicTolerance, p.HarmonicTolerance)
	assert.Equal(t, defaultPeriodicityTolerance, p.PeriodicityTolerance)
	assert.Equal(t, defaultMinSecondPeriodicity, p.MinSecondPeriodicity)
	assert.Equal(t, defaultMaxHarmonicOrder, p.MaxHarmonicOrder)
	assert.Equal(t, "triangular", p.Interpolation)
	require.NoError(t, p.Validate())

	// Zero knobs are legal and mean "default".
	bare := PeriodDetectorParams{LowestFrequency: 100, HighestFrequency: 400, SampleRate: testSampleRate, NoiseFloorDB: -60}
	require.NoError(t, bare.Validate())
	assert.Equal(t, p, bare.withDefaults())
}

func TestGeometry(t *testing.T) {
	tests := []struct {
		name       string
		lowest     float64
		highest    float64
		divisor    int
		multiplier float64
		want       geometry
	}{
		{
			name:    "100-400 Hz",
			lowest:  100,
			highest: 400,
			want: geometry{
				minPeriod: 110.25, maxPeriod: 441,
				lagMin: 109, lagMax: 442,
				windowSize: 896, span: 441, hop: 448, warmup: 441,
			},
		},
		{
			name:    "low E string",
			lowest:  lowE * 0.8,
			highest: lowE * 5,
			want: geometry{
				lagMin: 106, lagMax: 670,
				windowSize: 1344, span: 669, hop: 672, warmup: 669,
			},
		},
		{
			name:    "quarter hop",
			lowest:  100,
			highest: 400,
			divisor: 4,
			want: geometry{
				lagMin: 109, lagMax: 442,
				windowSize: 896, span: 441, hop: 224, warmup: 441,
			},
		},
		{
			name:       "narrow window shortens the span",
			lowest:     100,
			highest:    400,
			multiplier: 1.5,
			want: geometry{
				lagMin: 109, lagMax: 442,
				windowSize: 704, span: 262, hop: 352, warmup: 441,
			},
		},
	}

	for _, tt := range tests {
		p := DefaultPeriodDetectorParams(tt.lowest, tt.highest, testSampleRate, -60)
		if tt.divisor != 0 {
			p.HopDivisor = tt.divisor
		}
		if tt.multiplier != 0 {
			p.WindowMultiplier = tt.multiplier
		}
		g := p.geometry()

		if tt.want.maxPeriod != 0 {
			assert.InDelta(t, tt.want.minPeriod, g.minPeriod, 1e-9, tt.name)
			assert.InDelta(t, tt.want.maxPeriod, g.maxPeriod, 1e-9, tt.name)
		}
		assert.Equal(t, tt.want.lagMin, g.lagMin, tt.name)
		assert.Equal(t, tt.want.lagMax, g.lagMax, tt.name)
		assert.Equal(t, tt.want.windowSize, g.windowSize, tt.name)
		assert.Equal(t, tt.want.span, g.span, tt.name)
		assert.Equal(t, tt.want.hop, g.hop, tt.name)
		assert.Equal(t, tt.want.warmup, g.warmup, tt.name)
		assert.Zero(t, g.windowSize%64, tt.name)
		assert.GreaterOrEqual(t, g.windowSize, g.lagMax+g.span, tt.name)
	}
}

func TestHighLagMinimumIsClamped(t *testing.T) {
	// 44100 / 20000 = 2.2 samples, so the lag range starts at 1
	p := DefaultPeriodDetectorParams(5000, 20000, testSampleRate, -60)
	require.NoError(t, p.Validate())
	assert.Equal(t, 1, p.geometry().lagMin)
}
