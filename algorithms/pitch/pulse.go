package pitch

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// openTrail marks a pulse that is still high
const openTrail = -1

// pulse is one high run of the bitstream
type pulse struct {
	lead     int64   // first high sample
	trail    int64   // first low sample after the run, or openTrail
	position float64 // interpolated rising crossing
	peak     float64
}

func (p pulse) open() bool {
	return p.trail == openTrail
}

func (p pulse) overlaps(start, end int64) bool {
	return p.lead < end && (p.open() || p.trail > start)
}

// pulseTrain remembers the pulses that can still reach into a window and
// renders the window from the prominent ones.
//
// A pulse whose peak stays below threshold times the highest peak in the
// window is a minor crossing, usually a harmonic riding on the fundamental,
// and is left out. The pulse still open at the end of the window is always
// kept since its peak is not known yet.
type pulseTrain struct {
	threshold float64
	horizon   int64
	pulses    []pulse
	head      int
}

func newPulseTrain(threshold float64, window int) *pulseTrain {
	return &pulseTrain{
		threshold: threshold,
		horizon:   int64(window),
		pulses:    make([]pulse, 0, window/2+2),
	}
}

// Observe follows the edge detector output for one centred sample
func (t *pulseTrain) Observe(sample float64, bit bool, edge Edge, flipped bool) {
	if flipped && edge.Rising {
		t.pulses = append(t.pulses, pulse{
			lead:     edge.Index,
			trail:    openTrail,
			position: edge.Position,
			peak:     sample,
		})
		return
	}
	if len(t.pulses) == t.head {
		return
	}

	last := &t.pulses[len(t.pulses)-1]
	switch {
	case bit:
		last.peak = max(last.peak, sample)
	case flipped:
		last.trail = edge.Index
		t.prune(edge.Index - t.horizon)
	}
}

// prune drops closed pulses that ended at or before sample
func (t *pulseTrain) prune(sample int64) {
	for t.head < len(t.pulses) {
		p := t.pulses[t.head]
		if p.open() || p.trail > sample {
			break
		}
		t.head++
	}

	if t.head > 0 && t.head >= len(t.pulses)/2 {
		n := copy(t.pulses, t.pulses[t.head:])
		t.pulses = t.pulses[:n]
		t.head = 0
	}
}

// remembered returns the pulses still within reach of a window, oldest first
func (t *pulseTrain) remembered() []pulse {
	return t.pulses[t.head:]
}

// Render clears window and sets the bits of the prominent pulses covering
// samples [start, start+window.Size())
func (t *pulseTrain) Render(window *common.Bitset, start int64) {
	window.Clear()
	end := start + int64(window.Size())

	peak := 0.0
	for _, p := range t.remembered() {
		if p.overlaps(start, end) {
			peak = max(peak, p.peak)
		}
	}

	limit := t.threshold * peak
	for _, p := range t.remembered() {
		if !p.overlaps(start, end) || (!p.open() && p.peak < limit) {
			continue
		}
		to := end
		if !p.open() {
			to = min(p.trail, end)
		}
		window.SetRange(int(max(p.lead, start)-start), int(to-start))
	}
}

func (t *pulseTrain) Reset() {
	t.pulses = t.pulses[:0]
	t.head = 0
}
