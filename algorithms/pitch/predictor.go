package pitch

// minTrustedEdges is the number of edges, rising and falling, the detector
// must see after warm-up before it reports a prediction
const minTrustedEdges = 4

// ZeroCrossingPredictor is the coarse period estimate: the distance between
// the rising crossings of the two most recent prominent pulses.
//
// A pulse is prominent when its peak reaches threshold times the highest
// peak still remembered. When a harmonic crosses zero as strongly as the
// fundamental it counts too, so under strong harmonics the predictor readily
// reports a harmonic period. That is expected; the windowed search is the
// authoritative answer and this is only a fast seed.
type ZeroCrossingPredictor struct {
	minPeriod float64
	threshold float64

	period  float64
	updates int
}

// NewZeroCrossingPredictor creates an empty predictor that ignores intervals
// not longer than minPeriod samples
func NewZeroCrossingPredictor(minPeriod, threshold float64) *ZeroCrossingPredictor {
	return &ZeroCrossingPredictor{
		minPeriod: minPeriod,
		threshold: threshold,
	}
}

// observe is called when the newest pulse closes. pulses are the remembered
// pulses, oldest first, ending with the one that just closed.
func (p *ZeroCrossingPredictor) observe(pulses []pulse) {
	n := len(pulses)
	if n < 2 {
		return
	}

	peak := 0.0
	for _, q := range pulses {
		peak = max(peak, q.peak)
	}
	limit := p.threshold * peak

	last := pulses[n-1]
	if last.peak < limit {
		return
	}
	for i := n - 2; i >= 0; i-- {
		q := pulses[i]
		if q.peak < limit {
			continue
		}
		if interval := last.position - q.position; interval > p.minPeriod {
			p.period = interval
			p.updates++
			return
		}
	}
}

// Period returns the latest interval in samples, or 0 before the first one
func (p *ZeroCrossingPredictor) Period() float64 {
	if p.updates == 0 {
		return 0.0
	}
	return p.period
}

// Reset forgets all observed pulses
func (p *ZeroCrossingPredictor) Reset() {
	p.period = 0
	p.updates = 0
}
