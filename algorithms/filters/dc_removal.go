package filters

import (
	"math"
)

// DCRemoval implements a DC blocking filter (high-pass filter) and exposes the
// removed low-frequency component as a running baseline.
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//     https://ccrma.stanford.edu/~jos/filters/DC_Blocker.html
//
// The edge detector centres its hysteresis band on Baseline(), so a slow
// offset in the input does not bias the bitstream towards 0 or 1.
type DCRemoval struct {
	poleLocation float64 // R parameter (0 < R < 1)
	cutoffFreq   float64 // -3dB cutoff frequency in Hz
	sampleRate   int     // Sample rate in Hz

	// State variables
	x1 float64 // Previous input sample x[n-1]
	y1 float64 // Previous output sample y[n-1]

	baseline float64
}

// NewDCRemovalWithCutoff creates a DC removal filter with specified cutoff frequency.
//
// The pole location R is calculated as:
// R = 1 - 2*pi*fc/fs
// Where fc is the cutoff frequency and fs is the sample rate.
func NewDCRemovalWithCutoff(sampleRate int, cutoffFreq float64) *DCRemoval {
	dc := &DCRemoval{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
	}

	dc.computePoleLocation()
	return dc
}

// computePoleLocation calculates the pole location from the desired cutoff frequency.
// Valid for small cutoff frequencies (fc << fs/2).
func (dc *DCRemoval) computePoleLocation() {
	dc.poleLocation = 0.995
	if dc.sampleRate <= 0 || dc.cutoffFreq <= 0 {
		return
	}

	dc.poleLocation = 1.0 - (2.0 * math.Pi * dc.cutoffFreq / float64(dc.sampleRate))

	// Very low cutoffs are legitimate for a baseline tracker, so only keep
	// the pole strictly inside the unit circle.
	if dc.poleLocation >= 1.0 {
		dc.poleLocation = 0.99999
	} else if dc.poleLocation <= 0.0 {
		dc.poleLocation = 0.001
	}
}

// Process applies DC removal to a single sample.
// Implements the difference equation:
// y[n] = x[n] - x[n-1] + R * y[n-1]
func (dc *DCRemoval) Process(input float64) float64 {
	output := input - dc.x1 + dc.poleLocation*dc.y1

	dc.x1 = input
	dc.y1 = output
	dc.baseline = input - output

	return output
}

// Baseline returns the low-frequency component removed from the most recent
// sample (x[n] - y[n]). It starts at zero.
func (dc *DCRemoval) Baseline() float64 {
	return dc.baseline
}

// Reset clears the filter's internal state.
func (dc *DCRemoval) Reset() {
	dc.x1 = 0.0
	dc.y1 = 0.0
	dc.baseline = 0.0
}

// GetCutoffFrequency calculates the approximate -3dB cutoff frequency.
// Uses the inverse of the design formula: fc ≈ (1-R)*fs/(2*pi)
func (dc *DCRemoval) GetCutoffFrequency(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0.0
	}

	return (1.0 - dc.poleLocation) * float64(sampleRate) / (2.0 * math.Pi)
}

// GetPoleLocation returns the current pole location parameter.
func (dc *DCRemoval) GetPoleLocation() float64 {
	return dc.poleLocation
}
