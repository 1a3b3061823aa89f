package pitch

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// PeriodDetectorParams contains parameters for period detection.
//
// The first four fields are required. The remaining fields are tuning knobs;
// a zero value selects the default listed next to the field.
type PeriodDetectorParams struct {
	// Required
	LowestFrequency  float64 `json:"lowest_frequency" yaml:"lowest_frequency"`   // Hz
	HighestFrequency float64 `json:"highest_frequency" yaml:"highest_frequency"` // Hz
	SampleRate       int     `json:"sample_rate" yaml:"sample_rate"`             // samples per second
	NoiseFloorDB     float64 `json:"noise_floor_db" yaml:"noise_floor_db"`       // e.g. -60

	// Edge detection
	HysteresisRatio     float64 `json:"hysteresis_ratio,omitempty" yaml:"hysteresis_ratio,omitempty"`           // band half-width / envelope (0.01)
	ReleasePeriods      float64 `json:"release_periods,omitempty" yaml:"release_periods,omitempty"`             // envelope release, in lowest periods (4)
	BaselineCutoffRatio float64 `json:"baseline_cutoff_ratio,omitempty" yaml:"baseline_cutoff_ratio,omitempty"` // baseline cutoff / lowest frequency (0.002)
	PulseThreshold      float64 `json:"pulse_threshold,omitempty" yaml:"pulse_threshold,omitempty"`             // weakest kept pulse peak / window peak (0.6)

	// Windowing
	WindowMultiplier float64 `json:"window_multiplier,omitempty" yaml:"window_multiplier,omitempty"` // window / longest lag (2.0)
	HopDivisor       int     `json:"hop_divisor,omitempty" yaml:"hop_divisor,omitempty"`             // hop = window / divisor (2)

	// Candidate ranking
	HarmonicTolerance    float64 `json:"harmonic_tolerance,omitempty" yaml:"harmonic_tolerance,omitempty"`         // integer ratio tolerance (0.03)
	PeriodicityTolerance float64 `json:"periodicity_tolerance,omitempty" yaml:"periodicity_tolerance,omitempty"`   // submultiple preference (0.02)
	MinSecondPeriodicity float64 `json:"min_second_periodicity,omitempty" yaml:"min_second_periodicity,omitempty"` // (0.75)
	MaxHarmonicOrder     int     `json:"max_harmonic_order,omitempty" yaml:"max_harmonic_order,omitempty"`         // P/n grid excluded from second (4)
	Interpolation        string  `json:"interpolation,omitempty" yaml:"interpolation,omitempty"`                   // "triangular" or "parabolic"
}

const (
	defaultHysteresisRatio      = 0.01
	defaultReleasePeriods       = 4.0
	defaultBaselineCutoffRatio  = 0.002
	defaultPulseThreshold       = 0.6
	defaultWindowMultiplier     = 2.0
	defaultHopDivisor           = 2
	defaultHarmonicTolerance    = 0.03
	defaultPeriodicityTolerance = 0.02
	defaultMinSecondPeriodicity = 0.75
	defaultMaxHarmonicOrder     = 4

	minWindowMultiplier = 1.5
)

// DefaultPeriodDetectorParams returns params for the given range, rate and
// noise floor with every tuning knob at its default
func DefaultPeriodDetectorParams(lowest, highest float64, sampleRate int, noiseFloorDB float64) PeriodDetectorParams {
	return PeriodDetectorParams{
		LowestFrequency:  lowest,
		HighestFrequency: highest,
		SampleRate:       sampleRate,
		NoiseFloorDB:     noiseFloorDB,
	}.withDefaults()
}

// withDefaults fills zero tuning knobs
func (p PeriodDetectorParams) withDefaults() PeriodDetectorParams {
	if p.HysteresisRatio == 0 {
		p.HysteresisRatio = defaultHysteresisRatio
	}
	if p.ReleasePeriods == 0 {
		p.ReleasePeriods = defaultReleasePeriods
	}
	if p.BaselineCutoffRatio == 0 {
		p.BaselineCutoffRatio = defaultBaselineCutoffRatio
	}
	if p.PulseThreshold == 0 {
		p.PulseThreshold = defaultPulseThreshold
	}
	if p.WindowMultiplier == 0 {
		p.WindowMultiplier = defaultWindowMultiplier
	}
	if p.HopDivisor == 0 {
		p.HopDivisor = defaultHopDivisor
	}
	if p.HarmonicTolerance == 0 {
		p.HarmonicTolerance = defaultHarmonicTolerance
	}
	if p.PeriodicityTolerance == 0 {
		p.PeriodicityTolerance = defaultPeriodicityTolerance
	}
	if p.MinSecondPeriodicity == 0 {
		p.MinSecondPeriodicity = defaultMinSecondPeriodicity
	}
	if p.MaxHarmonicOrder == 0 {
		p.MaxHarmonicOrder = defaultMaxHarmonicOrder
	}
	if p.Interpolation == "" {
		p.Interpolation = common.Triangular.String()
	}
	return p
}

// Validate checks the frequency range against the sample rate and the tuning
// knobs against their legal ranges. Zero tuning knobs are accepted.
func (p PeriodDetectorParams) Validate() error {
	if p.SampleRate <= 0 {
		return configError("sample_rate", p.SampleRate, "must be positive")
	}
	if !(p.LowestFrequency > 0) || math.IsInf(p.LowestFrequency, 0) {
		return configError("lowest_frequency", p.LowestFrequency, "must be positive")
	}
	if !(p.HighestFrequency > 0) || math.IsInf(p.HighestFrequency, 0) {
		return configError("highest_frequency", p.HighestFrequency, "must be positive")
	}
	if p.LowestFrequency >= p.HighestFrequency {
		return configError("lowest_frequency", p.LowestFrequency, "must be below highest_frequency")
	}
	if nyquist := float64(p.SampleRate) / 2; p.HighestFrequency >= nyquist {
		return configError("highest_frequency", p.HighestFrequency, "must be below the Nyquist frequency")
	}
	if math.IsNaN(p.NoiseFloorDB) || math.IsInf(p.NoiseFloorDB, 1) {
		return configError("noise_floor_db", p.NoiseFloorDB, "must be a finite level")
	}

	q := p.withDefaults()
	switch {
	case q.HysteresisRatio < 0 || q.HysteresisRatio >= 1:
		return configError("hysteresis_ratio", q.HysteresisRatio, "must be in [0, 1)")
	case q.ReleasePeriods < 0:
		return configError("release_periods", q.ReleasePeriods, "must not be negative")
	case q.BaselineCutoffRatio < 0 || q.BaselineCutoffRatio >= 1:
		return configError("baseline_cutoff_ratio", q.BaselineCutoffRatio, "must be in [0, 1)")
	case q.PulseThreshold < 0 || q.PulseThreshold > 1:
		return configError("pulse_threshold", q.PulseThreshold, "must be in [0, 1]")
	case q.WindowMultiplier < minWindowMultiplier:
		return configError("window_multiplier", q.WindowMultiplier, "must be at least 1.5")
	case q.HopDivisor < 1:
		return configError("hop_divisor", q.HopDivisor, "must be at least 1")
	case q.HarmonicTolerance < 0 || q.HarmonicTolerance >= 0.5:
		return configError("harmonic_tolerance", q.HarmonicTolerance, "must be in [0, 0.5)")
	case q.PeriodicityTolerance < 0 || q.PeriodicityTolerance > 1:
		return configError("periodicity_tolerance", q.PeriodicityTolerance, "must be in [0, 1]")
	case q.MinSecondPeriodicity < 0 || q.MinSecondPeriodicity > 1:
		return configError("min_second_periodicity", q.MinSecondPeriodicity, "must be in [0, 1]")
	case q.MaxHarmonicOrder < 1:
		return configError("max_harmonic_order", q.MaxHarmonicOrder, "must be at least 1")
	}
	if _, ok := common.ParseInterpolationType(q.Interpolation); !ok {
		return configError("interpolation", q.Interpolation, "must be triangular or parabolic")
	}
	return nil
}

// geometry holds everything derived once from the params
type geometry struct {
	minPeriod  float64 // samples per period at the highest frequency
	maxPeriod  float64 // samples per period at the lowest frequency
	lagMin     int
	lagMax     int
	windowSize int
	span       int // bits compared per lag
	hop        int
	warmup     int
}

func (p PeriodDetectorParams) geometry() geometry {
	sps := float64(p.SampleRate)
	g := geometry{
		minPeriod: sps / p.HighestFrequency,
		maxPeriod: sps / p.LowestFrequency,
	}

	// One extra lag on each side so minima at the range ends can be refined.
	g.lagMin = max(1, int(math.Floor(g.minPeriod))-1)
	g.lagMax = int(math.Ceil(g.maxPeriod)) + 1
	g.windowSize = common.RoundUpToMultiple(int(math.Ceil(p.WindowMultiplier*float64(g.lagMax))), 64)
	g.hop = max(1, g.windowSize/p.HopDivisor)
	g.warmup = int(math.Ceil(g.maxPeriod))

	// One lowest period of comparison, shortened when a narrow window cannot
	// hold it past the longest lag.
	g.span = min(int(math.Ceil(g.maxPeriod)), g.windowSize-g.lagMax)
	return g
}
