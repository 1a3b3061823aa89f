package pitch

import (
	"cmp"
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// CandidatePeriod is one ranked period estimate
type CandidatePeriod struct {
	Period      float64 `json:"period"`      // Period in samples, possibly fractional
	Periodicity float64 `json:"periodicity"` // 1.0 = the bitstream repeats exactly at Period
}

// NoCandidate is the sentinel reported when no qualifying candidate exists
var NoCandidate = CandidatePeriod{Period: -1, Periodicity: -1}

// IsValid reports whether c carries a real estimate rather than the sentinel
func (c CandidatePeriod) IsValid() bool {
	return c.Period > 0
}

// Frequency converts the period to Hz, or returns 0 for the sentinel
func (c CandidatePeriod) Frequency(sampleRate int) float64 {
	if !c.IsValid() {
		return 0.0
	}
	return float64(sampleRate) / c.Period
}

// lagMinimum is a local minimum of the dissimilarity curve after refinement.
// periodicity is measured at the lag; score is the refined estimate used to
// rank minima against each other.
type lagMinimum struct {
	lag         int
	period      float64
	periodicity float64
	score       float64
}

func (m lagMinimum) candidate() CandidatePeriod {
	return CandidatePeriod{Period: m.period, Periodicity: m.periodicity}
}

// HarmonicPolicy holds the thresholds used to tell a harmonic apart from a
// competing fundamental
type HarmonicPolicy struct {
	RatioTolerance       float64 // relative tolerance of the integer period ratio test
	PeriodicityTolerance float64 // how close a submultiple must score to replace the best
	MinSecondPeriodicity float64 // weakest minimum accepted as the second candidate
	MaxHarmonicOrder     int     // highest n for which periods on the P/n grid are related
}

// related reports whether period sits on the grid of fundamental/n for some
// n up to MaxHarmonicOrder: a near-integer multiple or submultiple of the
// fundamental, or a rational step such as 3P/2 or 2P/3. Those minima are
// echoes of the fundamental. The octave P/2 is the exception; it is a
// competing period in its own right and stays eligible.
func (h HarmonicPolicy) related(period, fundamental float64) bool {
	if period <= 0 || fundamental <= 0 {
		return false
	}

	for n := 1; n <= max(h.MaxHarmonicOrder, 1); n++ {
		ratio := period / (fundamental / float64(n))
		m := int(math.Round(ratio))
		if m < 1 || math.Abs(ratio-float64(m)) > h.RatioTolerance*max(ratio, 1) {
			continue
		}
		switch {
		case n == 2 && m == 1:
			return false
		case n > 1 && m%n == 0:
			// a multiple of the fundamental, already tested with n = 1
			continue
		}
		return true
	}
	return false
}

// rankedPair is the capacity-2 result of a frame: the fundamental candidate
// and a secondary candidate that is not harmonically related to it.
type rankedPair struct {
	first  CandidatePeriod
	second CandidatePeriod
}

func (p *rankedPair) reset() {
	p.first = NoCandidate
	p.second = NoCandidate
}

// rank sorts minima in place by score and fills the pair.
func (p *rankedPair) rank(minima []lagMinimum, policy HarmonicPolicy) {
	p.reset()
	if len(minima) == 0 {
		return
	}

	slices.SortFunc(minima, func(a, b lagMinimum) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.lag, b.lag)
	})

	// A lag that repeats as well as the best one and divides it evenly is the
	// real period; the best one is just its multiple.
	best := 0
	for i := 1; i < len(minima); i++ {
		m := minima[i]
		if m.score < minima[0].score-policy.PeriodicityTolerance {
			break
		}
		if m.period >= minima[best].period {
			continue
		}
		if _, ok := common.NearIntegerRatio(minima[0].period, m.period, policy.RatioTolerance); ok {
			best = i
		}
	}
	p.first = refineByMultiple(minima, minima[best], policy)

	for i, m := range minima {
		if i == best {
			continue
		}
		if m.score < policy.MinSecondPeriodicity {
			break
		}
		if policy.related(m.period, minima[best].period) {
			continue
		}
		p.second = m.candidate()
		return
	}
}

// refineByMultiple sharpens the fundamental with the longest equally strong
// minimum at an integer multiple of it: dividing the k-th multiple by k
// divides its sub-sample error by k.
func refineByMultiple(minima []lagMinimum, fundamental lagMinimum, policy HarmonicPolicy) CandidatePeriod {
	result := fundamental.candidate()
	order := 1
	for _, m := range minima {
		if m.score < fundamental.score-policy.PeriodicityTolerance {
			continue
		}
		k, ok := common.NearIntegerRatio(m.period, fundamental.period, policy.RatioTolerance)
		if ok && k > order {
			order = k
			result.Period = m.period / float64(k)
		}
	}
	return result
}
