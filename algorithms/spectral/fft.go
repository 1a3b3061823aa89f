package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// FFT provides Fast Fourier Transform functionality for spectral
// cross-checks of the period detector
type FFT struct {
	windowCache []float64
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal using
// mjibson/go-dsp, which handles non-power-of-2 sizes
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	return fft.FFTReal(x)
}

// hann returns a Hann window of length n, reusing the last one when the
// length is unchanged
func (f *FFT) hann(n int) []float64 {
	if len(f.windowCache) != n {
		f.windowCache = window.Hann(n)
	}
	return f.windowCache
}

// Peak is the strongest spectral component found by PeakFrequency
type Peak struct {
	Frequency float64 `json:"frequency"` // Hz, interpolated between bins
	Magnitude float64 `json:"magnitude"`
}

// PeakFrequency windows the signal with a Hann window and returns the
// strongest component in [minFreq, maxFreq]. It reports false when the signal
// is too short or the band holds no bins.
func (f *FFT) PeakFrequency(samples []float64, sampleRate int, minFreq, maxFreq float64) (Peak, bool) {
	n := len(samples)
	if n < 4 || sampleRate <= 0 {
		return Peak{}, false
	}

	coeffs := f.hann(n)
	windowed := make([]float64, n)
	for i, v := range samples {
		windowed[i] = v * coeffs[i]
	}
	spectrum := f.Compute(windowed)

	binRes := float64(sampleRate) / float64(n)
	lo := max(1, int(minFreq/binRes))
	hi := min(n/2, int(maxFreq/binRes)+1)

	best, bestMag := -1, 0.0
	for i := lo; i < hi; i++ {
		if m := cmplx.Abs(spectrum[i]); m > bestMag {
			best, bestMag = i, m
		}
	}
	if best < 0 {
		return Peak{}, false
	}

	// Parabolic refinement of the maximum, run as a minimum on the negated
	// magnitudes
	left := cmplx.Abs(spectrum[best-1])
	right := cmplx.Abs(spectrum[best+1])
	offset, _ := common.RefineMinimum(common.Parabolic, -left, -bestMag, -right)

	return Peak{
		Frequency: (float64(best) + offset) * binRes,
		Magnitude: bestMag,
	}, true
}
