package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// EnvelopeFollower tracks the amplitude envelope of a sample stream with
// separate attack and release time constants. It is a streaming counterpart
// of a per-frame peak envelope: one call per sample, no allocation.
type EnvelopeFollower struct {
	attackCoeff  float64
	releaseCoeff float64
	value        float64
}

// NewEnvelopeFollower creates an envelope follower.
// A zero attack time makes the follower jump to new peaks immediately.
func NewEnvelopeFollower(sampleRate int, attackSeconds, releaseSeconds float64) *EnvelopeFollower {
	return &EnvelopeFollower{
		attackCoeff:  smoothingCoeff(sampleRate, attackSeconds),
		releaseCoeff: smoothingCoeff(sampleRate, releaseSeconds),
	}
}

// smoothingCoeff returns the one-pole coefficient exp(-1/(t*fs))
func smoothingCoeff(sampleRate int, seconds float64) float64 {
	if sampleRate <= 0 || seconds <= 0 {
		return 0.0
	}
	return math.Exp(-1.0 / (seconds * float64(sampleRate)))
}

// Process feeds one sample and returns the updated envelope
func (e *EnvelopeFollower) Process(sample float64) float64 {
	level := math.Abs(sample)

	coeff := e.releaseCoeff
	if level > e.value {
		coeff = e.attackCoeff
	}
	e.value = level + coeff*(e.value-level)

	return e.value
}

// Value returns the current envelope without advancing it
func (e *EnvelopeFollower) Value() float64 {
	return e.value
}

// Reset clears the envelope state
func (e *EnvelopeFollower) Reset() {
	e.value = 0.0
}

// NoiseGate decides whether the signal is live, i.e. whether its envelope is
// above a noise floor given in dB.
//
// The gate never zeroes samples. Instead it exposes Threshold(), the linear
// floor amplitude, which the edge detector uses as the minimum width of its
// hysteresis band. Below the floor the band is wider than the signal, so the
// bitstream simply stops toggling and there is no hard switch to create
// false edges at the gate boundary.
type NoiseGate struct {
	follower  *EnvelopeFollower
	floorDB   float64
	threshold float64
}

// NewNoiseGate creates a noise gate with the given floor (e.g. -60 dB) and
// envelope release time.
func NewNoiseGate(sampleRate int, floorDB, releaseSeconds float64) *NoiseGate {
	return &NoiseGate{
		follower:  NewEnvelopeFollower(sampleRate, 0, releaseSeconds),
		floorDB:   floorDB,
		threshold: common.DBToAmplitude(floorDB),
	}
}

// Process feeds one sample and reports whether the signal is live
func (g *NoiseGate) Process(sample float64) bool {
	return g.follower.Process(sample) > g.threshold
}

// Envelope returns the smoothed peak envelope
func (g *NoiseGate) Envelope() float64 {
	return g.follower.Value()
}

// Threshold returns the noise floor as a linear amplitude
func (g *NoiseGate) Threshold() float64 {
	return g.threshold
}

// FloorDB returns the configured noise floor in dB
func (g *NoiseGate) FloorDB() float64 {
	return g.floorDB
}

// Reset clears the envelope and closes the gate
func (g *NoiseGate) Reset() {
	g.follower.Reset()
}
