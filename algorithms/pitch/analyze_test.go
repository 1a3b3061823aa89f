package pitch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	params := DefaultPeriodDetectorParams(100, 400, testSampleRate, -60)
	results, err := Analyze(defaultHarmonics().generate(200), params)
	require.NoError(t, err)
	require.Greater(t, len(results), 2)

	for i, r := range results {
		assert.Equal(t, int64(i+1), r.Frame)
		assertClose(t, 220.5, r.First.Period, 0.002, "frame %d", r.Frame)
		assert.NotZero(t, r.PredictedPeriod)
		if i > 0 {
			assert.Equal(t, int64(448), r.SampleIndex-results[i-1].SampleIndex)
		}
	}
}

func TestAnalyzeInvalidParams(t *testing.T) {
	_, err := Analyze(nil, PeriodDetectorParams{LowestFrequency: 400, HighestFrequency: 100, SampleRate: testSampleRate})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnalyzeContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	params := DefaultPeriodDetectorParams(100, 400, testSampleRate, -60)
	results, err := AnalyzeContext(ctx, defaultHarmonics().generate(100), params)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

func TestAnalyzeChannels(t *testing.T) {
	channels := [][]float64{
		defaultHarmonics().generate(100),
		defaultHarmonics().generate(200),
		make([]float64, testSampleRate/10),
	}

	params := DefaultPeriodDetectorParams(100, 400, testSampleRate, -60)
	results, err := AnalyzeChannels(context.Background(), channels, params)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NotEmpty(t, results[0])
	require.NotEmpty(t, results[1])
	assertClose(t, 441.0, results[0][0].First.Period, 0.001)
	assertClose(t, 220.5, results[1][0].First.Period, 0.002)
	assert.Empty(t, results[2], "silent channel")

	// Each channel matches a serial run of its own.
	serial, err := Analyze(channels[1], params)
	require.NoError(t, err)
	assert.Equal(t, serial, results[1])
}

func TestAnalyzeChannelsErrors(t *testing.T) {
	bad := PeriodDetectorParams{LowestFrequency: 100, HighestFrequency: 400}
	_, err := AnalyzeChannels(context.Background(), [][]float64{{0}}, bad)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "sample_rate", cfgErr.Field)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	params := DefaultPeriodDetectorParams(100, 400, testSampleRate, -60)
	_, err = AnalyzeChannels(ctx, [][]float64{defaultHarmonics().generate(100)}, params)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	results := []FrameResult{
		{Frame: 1, First: CandidatePeriod{100, 0.99}, PredictedPeriod: 50},
		{Frame: 2, First: NoCandidate},
		{Frame: 3, First: CandidatePeriod{102, 0.97}, PredictedPeriod: 101},
		{Frame: 4, First: CandidatePeriod{300, 0.4}},
	}

	s := Summarize(results, testSampleRate, 0.9)
	assert.Equal(t, 4, s.Frames)
	assert.Equal(t, 2, s.ValidFrames)
	assert.InDelta(t, 101.0, s.MeanPeriod, 1e-9)
	assert.InDelta(t, math.Sqrt2, s.PeriodStdDev, 1e-9)
	assert.InDelta(t, 0.98, s.MeanPeriodicity, 1e-9)
	assert.InDelta(t, testSampleRate/101.0, s.Frequency, 1e-9)
	assert.Equal(t, 101.0, s.PredictedPeriod)
}

func TestSummarizeNoValidFrames(t *testing.T) {
	s := Summarize([]FrameResult{{Frame: 1, First: NoCandidate}}, testSampleRate, 0.5)
	assert.Equal(t, 1, s.Frames)
	assert.Zero(t, s.ValidFrames)
	assert.Zero(t, s.MeanPeriod)
	assert.Zero(t, s.Frequency)

	assert.Equal(t, TrackSummary{}, Summarize(nil, testSampleRate, 0.5))
}
