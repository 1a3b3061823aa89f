package pitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroCrossingPredictor(t *testing.T) {
	p := NewZeroCrossingPredictor(20, 0.6)
	assert.Zero(t, p.Period())

	pulses := []pulse{{lead: 11, trail: 40, position: 10.5, peak: 1.0}}
	p.observe(pulses)
	assert.Zero(t, p.Period(), "one pulse is not an interval")

	// A weak pulse in between is a minor crossing and is skipped.
	pulses = append(pulses, pulse{lead: 61, trail: 70, position: 60.2, peak: 0.3})
	p.observe(pulses)
	assert.Zero(t, p.Period())

	pulses = append(pulses, pulse{lead: 111, trail: 140, position: 110.75, peak: 0.9})
	p.observe(pulses)
	assert.InDelta(t, 100.25, p.Period(), 1e-12)

	// Only the latest interval counts.
	pulses = append(pulses, pulse{lead: 161, trail: 190, position: 160.75, peak: 0.95})
	p.observe(pulses)
	assert.InDelta(t, 50.0, p.Period(), 1e-12)

	p.Reset()
	assert.Zero(t, p.Period())
}

func TestZeroCrossingPredictorMinimumPeriod(t *testing.T) {
	p := NewZeroCrossingPredictor(30, 0.6)

	// The closest prominent pulse is too near, the one before it counts.
	p.observe([]pulse{
		{lead: 0, trail: 10, position: 0, peak: 1.0},
		{lead: 40, trail: 45, position: 40, peak: 0.8},
		{lead: 50, trail: 60, position: 50, peak: 1.0},
	})
	assert.InDelta(t, 50.0, p.Period(), 1e-12)
}

func TestZeroCrossingPredictorFollowsStrongHarmonic(t *testing.T) {
	p := NewZeroCrossingPredictor(20, 0.6)

	// Both crossings of a strong second harmonic are prominent, so the
	// estimate is half the true period of 100.
	p.observe([]pulse{
		{lead: 0, trail: 20, position: 0, peak: 1.0},
		{lead: 50, trail: 70, position: 50, peak: 0.7},
	})
	assert.InDelta(t, 50.0, p.Period(), 1e-12)
}
