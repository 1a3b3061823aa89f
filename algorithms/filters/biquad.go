package filters

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Biquad is a second-order IIR section with coefficients from Robert
// Bristow-Johnson's "Cookbook formulae for audio EQ biquad filter
// coefficients".
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
//
// It is used as an optional pre-filter ahead of the period detector, where
// removing partials far above the highest frequency of interest cuts down on
// extra zero crossings.
type Biquad struct {
	sampleRate int
	freq       float64
	q          float64

	b0, b1, b2 float64 // Numerator, normalised by a0
	a1, a2     float64 // Denominator, normalised by a0

	w1, w2 float64 // Direct form II delay line
}

// ButterworthQ is the Q of a maximally flat second-order section
const ButterworthQ = math.Sqrt2 / 2

// NewLowpass creates a lowpass section with the given cutoff and Q
func NewLowpass(sampleRate int, cutoff, q float64) (*Biquad, error) {
	bq, err := newBiquad(sampleRate, cutoff, q)
	if err != nil {
		return nil, err
	}

	cosW0, alpha := bq.prewarp()
	bq.setCoefficients(
		(1-cosW0)/2, 1-cosW0, (1-cosW0)/2,
		1+alpha, -2*cosW0, 1-alpha,
	)
	return bq, nil
}

// NewBandpass creates a constant 0 dB peak gain bandpass section centred on
// center with the given Q (center / bandwidth)
func NewBandpass(sampleRate int, center, q float64) (*Biquad, error) {
	bq, err := newBiquad(sampleRate, center, q)
	if err != nil {
		return nil, err
	}

	cosW0, alpha := bq.prewarp()
	bq.setCoefficients(
		alpha, 0, -alpha,
		1+alpha, -2*cosW0, 1-alpha,
	)
	return bq, nil
}

func newBiquad(sampleRate int, freq, q float64) (*Biquad, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if freq <= 0 || freq >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("frequency must be between 0 and Nyquist frequency (%d Hz): %v", sampleRate/2, freq)
	}
	if q <= 0 {
		return nil, fmt.Errorf("q must be positive: %v", q)
	}
	return &Biquad{sampleRate: sampleRate, freq: freq, q: q}, nil
}

// prewarp returns cos(w0) and alpha = sin(w0)/(2Q)
func (bq *Biquad) prewarp() (cosW0, alpha float64) {
	w0 := 2.0 * math.Pi * bq.freq / float64(bq.sampleRate)
	return math.Cos(w0), math.Sin(w0) / (2.0 * bq.q)
}

func (bq *Biquad) setCoefficients(b0, b1, b2, a0, a1, a2 float64) {
	bq.b0, bq.b1, bq.b2 = b0/a0, b1/a0, b2/a0
	bq.a1, bq.a2 = a1/a0, a2/a0
}

// Process filters one sample.
//
//	w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
//	y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
func (bq *Biquad) Process(input float64) float64 {
	w := input - bq.a1*bq.w1 - bq.a2*bq.w2
	output := bq.b0*w + bq.b1*bq.w1 + bq.b2*bq.w2

	bq.w2 = bq.w1
	bq.w1 = w

	return output
}

// ProcessBuffer filters a buffer into a new slice
func (bq *Biquad) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = bq.Process(sample)
	}
	return output
}

// Reset clears the delay line
func (bq *Biquad) Reset() {
	bq.w1, bq.w2 = 0.0, 0.0
}

// Response returns the magnitude and phase (radians) of the filter at
// frequency Hz
func (bq *Biquad) Response(frequency float64) (magnitude, phase float64) {
	z := cmplx.Exp(complex(0, -2.0*math.Pi*frequency/float64(bq.sampleRate)))
	z2 := z * z

	num := complex(bq.b0, 0) + complex(bq.b1, 0)*z + complex(bq.b2, 0)*z2
	den := 1 + complex(bq.a1, 0)*z + complex(bq.a2, 0)*z2
	h := num / den

	return cmplx.Abs(h), cmplx.Phase(h)
}

// Frequency returns the cutoff or centre frequency in Hz
func (bq *Biquad) Frequency() float64 {
	return bq.freq
}
