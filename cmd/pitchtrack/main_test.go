package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-pitch/algorithms/pitch"
	"github.com/RyanBlaney/sonido-pitch/config"
)

func tone(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := 2 * math.Pi * freq * float64(i) / float64(sampleRate)
		out[i] = 0.3*math.Sin(x) + 0.4*math.Sin(2*x) + 0.3*math.Sin(3*x)
	}
	return out
}

func analyzeTones(t *testing.T, opts reportOptions) fileReport {
	t.Helper()

	params := pitch.DefaultPeriodDetectorParams(100, 400, 44100, -60)
	channels := [][]float64{tone(100, 44100, 8820), make([]float64, 8820)}
	results, err := pitch.AnalyzeChannels(context.Background(), channels, params)
	require.NoError(t, err)

	return buildReport("tones.wav", params, channels, results, opts)
}

func TestBuildReport(t *testing.T) {
	report := analyzeTones(t, reportOptions{spectral: true, minPeriodicity: 0.9})

	assert.Equal(t, "tones.wav", report.Source)
	assert.Equal(t, 44100, report.SampleRate)
	require.Len(t, report.Channels, 2)

	voiced := report.Channels[0]
	assert.InDelta(t, 100.0, voiced.Summary.Frequency, 0.2)
	assert.Greater(t, voiced.Summary.ValidFrames, 0)
	assert.Empty(t, voiced.Frames, "frames are opt-in")
	require.NotNil(t, voiced.Spectral)
	assert.Greater(t, voiced.Spectral.Frequency, 90.0)

	silent := report.Channels[1]
	assert.Zero(t, silent.Summary.Frames)
	assert.Nil(t, silent.Spectral)
}

func TestWriteText(t *testing.T) {
	report := analyzeTones(t, reportOptions{frames: true, minPeriodicity: 0.9})

	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, report))
	out := buf.String()

	assert.Contains(t, out, "tones.wav (44100 Hz, 100.0-400.0 Hz)")
	assert.Regexp(t, `ch0\s+(99\.9|100\.[01])\d Hz`, out)
	assert.Contains(t, out, "no pitch")
	assert.Regexp(t, `first 44[01]\.\d{3} \(`, out)
	assert.Contains(t, out, "second -")
}

func TestWriteJSON(t *testing.T) {
	report := analyzeTones(t, reportOptions{frames: true, minPeriodicity: 0.9})

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, report))

	var decoded fileReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report, decoded)
}

func TestFormatCandidate(t *testing.T) {
	assert.Equal(t, "-", formatCandidate(pitch.NoCandidate))
	assert.Equal(t, "220.500 (0.915)", formatCandidate(pitch.CandidatePeriod{Period: 220.5, Periodicity: 0.915}))
}

func TestRunUsageErrors(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 2, run(nil, strings.NewReader(""), &out), "no inputs")
	assert.Equal(t, 2, run([]string{"-nope"}, strings.NewReader(""), &out), "unknown flag")

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	assert.Equal(t, 1, run([]string{"-config", missing, "a.wav"}, strings.NewReader(""), &out))
	assert.Empty(t, out.String())
}

func TestPrefilter(t *testing.T) {
	channels := [][]float64{tone(100, 44100, 8820)}
	orig := append([]float64(nil), channels[0]...)

	require.NoError(t, prefilter(channels, 44100, config.PrefilterConfig{}))
	assert.Equal(t, orig, channels[0], "disabled prefilter leaves samples alone")

	require.NoError(t, prefilter(channels, 44100, config.PrefilterConfig{LowpassHz: 1000}))
	assert.NotEqual(t, orig, channels[0])

	// The fundamental survives the lowpass.
	params := pitch.DefaultPeriodDetectorParams(100, 400, 44100, -60)
	results, err := pitch.Analyze(channels[0], params)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.InDelta(t, 441.0, results[len(results)-1].First.Period, 1.0)

	err = prefilter(channels, 44100, config.PrefilterConfig{LowpassHz: 30000})
	assert.Error(t, err)
}
