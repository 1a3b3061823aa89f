package pitch

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// Autocorrelator searches a bitstream window for its period.
//
// For every integer lag in [lagMin, lagMax] it computes the dissimilarity
// mismatches(bit[i], bit[i+lag]) / span over the first span bits of the
// window, a Hamming distance over the packed words. Local minima of that
// curve are refined to sub-sample precision, scored as
// periodicity = 1 - dissimilarity, and ranked into a fundamental and a
// secondary candidate.
//
// All workspace is allocated by NewAutocorrelator.
type Autocorrelator struct {
	lagMin int
	lagMax int
	span   int
	interp common.InterpolationType
	policy HarmonicPolicy

	curve  []float64
	minima []lagMinimum
	pair   rankedPair
}

// NewAutocorrelator creates an autocorrelator for the inclusive lag range,
// comparing span bits per lag
func NewAutocorrelator(lagMin, lagMax, span int, interp common.InterpolationType, policy HarmonicPolicy) *Autocorrelator {
	n := max(lagMax-lagMin+1, 1)
	a := &Autocorrelator{
		lagMin: lagMin,
		lagMax: lagMax,
		span:   max(span, 1),
		interp: interp,
		policy: policy,
		curve:  make([]float64, n),
		minima: make([]lagMinimum, 0, n/2+2),
	}
	a.pair.reset()
	return a
}

// Process runs one search over the window, which must hold at least
// lagMax + span bits. A window without a single transition carries no period
// information and yields two sentinels.
func (a *Autocorrelator) Process(window *common.Bitset) (first, second CandidatePeriod) {
	a.minima = a.minima[:0]
	a.pair.reset()

	span := min(a.span, window.Size()-a.lagMax)
	if span <= 0 || window.Transitions() == 0 {
		return a.pair.first, a.pair.second
	}

	for i := range a.curve {
		diff := window.HammingDistance(a.lagMin+i, span)
		a.curve[i] = float64(diff) / float64(span)
	}

	a.collectMinima()
	a.pair.rank(a.minima, a.policy)
	return a.pair.first, a.pair.second
}

// collectMinima finds local minima of the curve. A run of equal values
// bounded by higher values on both sides counts once. A run touching either
// end of the range only counts when it is the global minimum.
func (a *Autocorrelator) collectMinima() {
	curve := a.curve
	n := len(curve)
	globalMin := common.MinValue(curve)

	for j := 0; j < n; {
		k := j
		for k+1 < n && curve[k+1] == curve[j] {
			k++
		}

		fallsIn := j == 0 || curve[j-1] > curve[j]
		risesOut := k == n-1 || curve[k+1] > curve[j]
		boundary := j == 0 || k == n-1

		if fallsIn && risesOut && (!boundary || curve[j] == globalMin) {
			if j == k {
				a.minima = append(a.minima, a.refine(j))
			} else {
				a.minima = append(a.minima, a.plateau(j, k))
			}
		}
		j = k + 1
	}
}

// refine fits the interpolation through a single-lag minimum and its
// neighbours. The periodicity is the measured value at the lag; the score
// used for ranking is the fitted value at the vertex.
func (a *Autocorrelator) refine(i int) lagMinimum {
	lag := a.lagMin + i
	offset, value := 0.0, a.curve[i]
	if i > 0 && i < len(a.curve)-1 {
		offset, value = common.RefineMinimum(a.interp, a.curve[i-1], a.curve[i], a.curve[i+1])
	}

	return lagMinimum{
		lag:         lag,
		period:      float64(lag) + offset,
		periodicity: common.Clamp(1-a.curve[i], 0, 1),
		score:       common.Clamp(1-value, 0, 1),
	}
}

// plateau places a run of equal values [j, k] at its centre. A run of two
// inside the range is the flat bottom of a V whose vertex lies halfway
// between them, so it is scored by extending the shallower side.
func (a *Autocorrelator) plateau(j, k int) lagMinimum {
	v := a.curve[j]
	value := v
	if k == j+1 && j > 0 && k < len(a.curve)-1 {
		value = max(v-0.5*min(a.curve[j-1]-v, a.curve[k+1]-v), 0)
	}

	return lagMinimum{
		lag:         a.lagMin + (j+k)/2,
		period:      float64(a.lagMin) + float64(j+k)/2,
		periodicity: common.Clamp(1-v, 0, 1),
		score:       common.Clamp(1-value, 0, 1),
	}
}

// LagRange returns the inclusive lag range searched
func (a *Autocorrelator) LagRange() (int, int) {
	return a.lagMin, a.lagMax
}

// Curve returns the dissimilarity curve of the last search, indexed by
// lag - lagMin. The slice is reused by the next search and must not be
// modified.
func (a *Autocorrelator) Curve() []float64 {
	return a.curve
}
