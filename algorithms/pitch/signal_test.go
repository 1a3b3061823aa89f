package pitch

import (
	"math"
)

const testSampleRate = 44100

// Guitar open-string frequencies used by the range tests.
const (
	lowE  = 82.4069
	bNote = 246.942
	highE = 329.628
)

// harmonics describes a test tone made of a fundamental and two partials
type harmonics struct {
	offset      float64 // waveform offset in samples
	secondRatio float64
	thirdRatio  float64
	firstLevel  float64
	secondLevel float64
	thirdLevel  float64
	firstPhase  float64 // in cycles
	secondPhase float64
	thirdPhase  float64
}

func defaultHarmonics() harmonics {
	return harmonics{
		secondRatio: 2,
		thirdRatio:  3,
		firstLevel:  0.3,
		secondLevel: 0.4,
		thirdLevel:  0.3,
	}
}

// generate returns 100 ms of the tone at freq
func (h harmonics) generate(freq float64) []float64 {
	period := testSampleRate / freq
	signal := make([]float64, testSampleRate/10)
	for i := range signal {
		angle := (float64(i) + h.offset) / period
		signal[i] = h.firstLevel*math.Sin(2*math.Pi*(angle+h.firstPhase)) +
			h.secondLevel*math.Sin(h.secondRatio*2*math.Pi*(angle+h.secondPhase)) +
			h.thirdLevel*math.Sin(h.thirdRatio*2*math.Pi*(angle+h.thirdPhase))
	}
	return signal
}

// detection is what a caller typically keeps from a run: the first frame's
// candidates, every frame's fundamental and the first coarse prediction
type detection struct {
	first     CandidatePeriod
	second    CandidatePeriod
	frames    []CandidatePeriod
	predicted float64
}

func detect(samples []float64, lowest, highest float64) (detection, error) {
	result := detection{first: NoCandidate, second: NoCandidate}

	pd, err := NewPeriodDetector(lowest, highest, testSampleRate, -60)
	if err != nil {
		return result, err
	}

	for _, s := range samples {
		pd.Push(s)
		if pd.IsReady() {
			if len(result.frames) == 0 {
				result.first = pd.First()
				result.second = pd.Second()
			}
			result.frames = append(result.frames, pd.First())
		}
		if result.predicted == 0 {
			result.predicted = pd.PredictPeriod()
		}
	}
	return result, nil
}
