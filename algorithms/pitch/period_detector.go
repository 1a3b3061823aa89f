package pitch

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/temporal"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// DetectorState tells whether the candidates reflect a freshly completed frame
type DetectorState int

const (
	// Collecting while the window fills or between frame boundaries
	Collecting DetectorState = iota
	// Ready on the sample that completed a frame
	Ready
)

func (s DetectorState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// EdgeInfo is the window metadata a renderer needs to line the bitstream up
// with the waveform: bit i of Bits() belongs to sample WindowStart + i.
type EdgeInfo struct {
	SampleIndex int64 `json:"sample_index"` // samples pushed so far
	WindowStart int64 `json:"window_start"` // absolute sample index of the oldest bit
	WindowSize  int   `json:"window_size"`
	Frame       int64 `json:"frame"`     // completed frames
	NumEdges    int   `json:"num_edges"` // transitions inside the window
}

// BitstreamView is read-only access to the current window
type BitstreamView interface {
	Size() int
	Len() int
	Get(i int) bool
	Recent(offset int) bool
}

// PeriodDetector estimates the period of a quasi-periodic signal one sample
// at a time.
//
// Each sample is centred on a running baseline, passed through the noise
// gate's envelope, and binarised by the edge detector. After a warm-up of
// one lowest period of live signal the bits are recorded in a window of W
// bits. The first frame completes when the window is full and then every W/2
// bits. Each frame keeps only the prominent pulses of the window, runs the
// autocorrelator over them and updates First and Second. Every pulse that
// closes updates the coarse predictor.
//
// A PeriodDetector is not safe for concurrent use. Process each channel with
// its own instance.
type PeriodDetector struct {
	params PeriodDetectorParams
	geo    geometry

	baseline  *filters.DCRemoval
	gate      *temporal.NoiseGate
	edges     *EdgeDetector
	pulses    *pulseTrain
	predictor *ZeroCrossingPredictor
	bits      *common.BitRing
	window    *common.Bitset
	acf       *Autocorrelator

	sampleIndex  int64
	liveSamples  int
	recording    bool
	recordStart  int64
	startupEdges int64
	frame        int64
	ready        bool

	first  CandidatePeriod
	second CandidatePeriod
}

// NewPeriodDetector creates a detector for frequencies in [lowest, highest]
// Hz at the given sample rate, ignoring signal below noiseFloorDB
func NewPeriodDetector(lowest, highest float64, sampleRate int, noiseFloorDB float64) (*PeriodDetector, error) {
	return NewPeriodDetectorWithParams(PeriodDetectorParams{
		LowestFrequency:  lowest,
		HighestFrequency: highest,
		SampleRate:       sampleRate,
		NoiseFloorDB:     noiseFloorDB,
	})
}

// NewPeriodDetectorWithParams creates a detector with custom parameters.
// Invalid parameters return an error wrapping ErrInvalidConfig.
func NewPeriodDetectorWithParams(params PeriodDetectorParams) (*PeriodDetector, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "period_detector",
		"function":  "NewPeriodDetectorWithParams",
	})

	if err := params.Validate(); err != nil {
		logger.Error(err, "Invalid period detector configuration")
		return nil, err
	}

	params = params.withDefaults()
	geo := params.geometry()
	interp, _ := common.ParseInterpolationType(params.Interpolation)

	releaseSeconds := params.ReleasePeriods / params.LowestFrequency

	pd := &PeriodDetector{
		params:    params,
		geo:       geo,
		baseline:  filters.NewDCRemovalWithCutoff(params.SampleRate, params.BaselineCutoffRatio*params.LowestFrequency),
		gate:      temporal.NewNoiseGate(params.SampleRate, params.NoiseFloorDB, releaseSeconds),
		edges:     NewEdgeDetector(params.HysteresisRatio),
		pulses:    newPulseTrain(params.PulseThreshold, geo.windowSize),
		predictor: NewZeroCrossingPredictor(geo.minPeriod, params.PulseThreshold),
		bits:      common.NewBitRing(geo.windowSize),
		window:    common.NewBitset(geo.windowSize),
		acf: NewAutocorrelator(geo.lagMin, geo.lagMax, geo.span, interp, HarmonicPolicy{
			RatioTolerance:       params.HarmonicTolerance,
			PeriodicityTolerance: params.PeriodicityTolerance,
			MinSecondPeriodicity: params.MinSecondPeriodicity,
			MaxHarmonicOrder:     params.MaxHarmonicOrder,
		}),
		first:  NoCandidate,
		second: NoCandidate,
	}

	logger.Debug("Period detector configured", logging.Fields{
		"sample_rate":    params.SampleRate,
		"lowest_hz":      params.LowestFrequency,
		"highest_hz":     params.HighestFrequency,
		"noise_floor_db": pd.gate.FloorDB(),
		"baseline_hz":    pd.baseline.GetCutoffFrequency(params.SampleRate),
		"window_size":    geo.windowSize,
		"span":           geo.span,
		"hop_size":       geo.hop,
		"lag_min":        geo.lagMin,
		"lag_max":        geo.lagMax,
	})

	return pd, nil
}

// Push feeds one sample. It returns true when this sample completed a frame,
// in which case First and Second hold the new candidates.
func (pd *PeriodDetector) Push(sample float64) bool {
	pd.ready = false

	centred := pd.baseline.Process(sample)
	live := pd.gate.Process(centred)
	bit, edge, flipped := pd.edges.Process(centred, pd.gate.Envelope(), pd.gate.Threshold())
	pd.pulses.Observe(centred, bit, edge, flipped)

	index := pd.sampleIndex
	pd.sampleIndex++

	// Bits before the envelope has seen a full lowest period are startup
	// transients and never enter the window.
	if !pd.recording {
		if live {
			pd.liveSamples++
		}
		if pd.liveSamples < pd.geo.warmup {
			return false
		}
		pd.recording = true
		pd.recordStart = index
		pd.startupEdges = pd.edges.NumEdges()
	}

	if flipped && !edge.Rising {
		pd.predictor.observe(pd.pulses.remembered())
	}

	pd.bits.Push(bit)
	if !pd.frameBoundary() {
		return false
	}

	start := pd.recordStart + pd.bits.Pushes() - int64(pd.geo.windowSize)
	pd.pulses.Render(pd.window, start)
	pd.first, pd.second = pd.acf.Process(pd.window)
	pd.frame++
	pd.ready = true
	return true
}

// frameBoundary reports whether the latest push closes a frame
func (pd *PeriodDetector) frameBoundary() bool {
	pushed := pd.bits.Pushes()
	window := int64(pd.geo.windowSize)
	if pushed < window {
		return false
	}
	return (pushed-window)%int64(pd.geo.hop) == 0
}

// PushSamples feeds a block of samples and returns the number of frames
// completed
func (pd *PeriodDetector) PushSamples(samples []float64) int {
	frames := 0
	for _, s := range samples {
		if pd.Push(s) {
			frames++
		}
	}
	return frames
}

// IsReady is true only right after the push that completed a frame
func (pd *PeriodDetector) IsReady() bool {
	return pd.ready
}

// State returns Ready or Collecting
func (pd *PeriodDetector) State() DetectorState {
	if pd.ready {
		return Ready
	}
	return Collecting
}

// First returns the fundamental candidate of the latest frame, or
// NoCandidate before the first frame
func (pd *PeriodDetector) First() CandidatePeriod {
	return pd.first
}

// Second returns the secondary candidate of the latest frame, or
// NoCandidate when there is none
func (pd *PeriodDetector) Second() CandidatePeriod {
	return pd.second
}

// PredictPeriod returns the coarse estimate from prominent pulses, 0 until a full
// cycle of edges has been seen after warm-up
func (pd *PeriodDetector) PredictPeriod() float64 {
	if !pd.recording || pd.edges.NumEdges()-pd.startupEdges < minTrustedEdges {
		return 0.0
	}
	return pd.predictor.Period()
}

// Bits returns a read-only view of the current window
func (pd *PeriodDetector) Bits() BitstreamView {
	return bitsView{ring: pd.bits}
}

// bitsView hides the mutating half of the ring
type bitsView struct {
	ring *common.BitRing
}

func (v bitsView) Size() int              { return v.ring.Size() }
func (v bitsView) Len() int               { return v.ring.Len() }
func (v bitsView) Get(i int) bool         { return v.ring.Get(i) }
func (v bitsView) Recent(offset int) bool { return v.ring.Recent(offset) }

// Edges returns the current window metadata
func (pd *PeriodDetector) Edges() EdgeInfo {
	held := int64(pd.bits.Len())
	return EdgeInfo{
		SampleIndex: pd.sampleIndex,
		WindowStart: pd.recordStart + pd.bits.Pushes() - held,
		WindowSize:  pd.geo.windowSize,
		Frame:       pd.frame,
		NumEdges:    pd.bits.Transitions(),
	}
}

// Curve returns the dissimilarity curve of the latest frame, indexed by
// lag - MinimumLag(). It is overwritten by the next frame.
func (pd *PeriodDetector) Curve() []float64 {
	return pd.acf.Curve()
}

// WindowSize returns the number of bits in a full window
func (pd *PeriodDetector) WindowSize() int {
	return pd.geo.windowSize
}

// HopSize returns the number of bits between frames
func (pd *PeriodDetector) HopSize() int {
	return pd.geo.hop
}

// LagRange returns the inclusive lag range searched each frame
func (pd *PeriodDetector) LagRange() (int, int) {
	return pd.acf.LagRange()
}

// MinimumPeriod returns the period of the highest frequency in samples
func (pd *PeriodDetector) MinimumPeriod() float64 {
	return pd.geo.minPeriod
}

// MaximumPeriod returns the period of the lowest frequency in samples
func (pd *PeriodDetector) MaximumPeriod() float64 {
	return pd.geo.maxPeriod
}

// Params returns the effective parameters, defaults included
func (pd *PeriodDetector) Params() PeriodDetectorParams {
	return pd.params
}

// Reset returns the detector to its just-constructed state without
// reallocating
func (pd *PeriodDetector) Reset() {
	pd.baseline.Reset()
	pd.gate.Reset()
	pd.edges.Reset()
	pd.pulses.Reset()
	pd.predictor.Reset()
	pd.bits.Reset()
	pd.window.Clear()

	pd.sampleIndex = 0
	pd.liveSamples = 0
	pd.recording = false
	pd.recordStart = 0
	pd.startupEdges = 0
	pd.frame = 0
	pd.ready = false
	pd.first = NoCandidate
	pd.second = NoCandidate
}
