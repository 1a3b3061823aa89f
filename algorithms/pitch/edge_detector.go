package pitch

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// Edge is a transition of the bitstream
type Edge struct {
	Index    int64   `json:"index"`    // sample at which the bit flipped
	Position float64 `json:"position"` // interpolated threshold crossing, in samples
	Rising   bool    `json:"rising"`
}

// EdgeDetector turns centred samples into one bit per sample using a
// hysteresis band around zero. The band half-width follows the signal
// envelope (HysteresisRatio * envelope) but never drops below the noise
// floor, so low-level noise cannot toggle the bit.
type EdgeDetector struct {
	ratio float64

	state bool
	prev  float64
	index int64
	count int64
}

// NewEdgeDetector creates an edge detector with the given band ratio
func NewEdgeDetector(hysteresisRatio float64) *EdgeDetector {
	return &EdgeDetector{ratio: hysteresisRatio}
}

// Band returns the hysteresis half-width for an envelope and noise floor
func (d *EdgeDetector) Band(envelope, floor float64) float64 {
	return max(floor, d.ratio*envelope)
}

// Process consumes one centred sample and returns the current bit. When the
// bit flips on this sample, the edge is returned with ok set.
func (d *EdgeDetector) Process(sample, envelope, floor float64) (bit bool, edge Edge, ok bool) {
	h := d.Band(envelope, floor)
	index := d.index
	d.index++

	switch {
	case !d.state && sample > h:
		edge = d.crossing(index, h, sample, true)
	case d.state && sample < -h:
		edge = d.crossing(index, -h, sample, false)
	default:
		d.prev = sample
		return d.state, Edge{}, false
	}

	d.state = edge.Rising
	d.prev = sample
	d.count++
	return d.state, edge, true
}

// crossing locates where the line from the previous sample to this one
// passes the threshold
func (d *EdgeDetector) crossing(index int64, threshold, sample float64, rising bool) Edge {
	frac := 1.0
	if index > 0 && sample != d.prev {
		frac = common.Clamp((threshold-d.prev)/(sample-d.prev), 0, 1)
	}
	return Edge{
		Index:    index,
		Position: float64(index-1) + frac,
		Rising:   rising,
	}
}

// State returns the current bit
func (d *EdgeDetector) State() bool {
	return d.state
}

// NumEdges returns the number of edges seen since the last reset
func (d *EdgeDetector) NumEdges() int64 {
	return d.count
}

// Reset returns the detector to the low state
func (d *EdgeDetector) Reset() {
	d.state = false
	d.prev = 0
	d.index = 0
	d.count = 0
}
