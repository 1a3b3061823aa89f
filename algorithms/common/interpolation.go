package common

// InterpolationType defines how a sampled minimum is refined to sub-sample
// precision
type InterpolationType int

const (
	// Triangular fits a symmetric V through three points. Exact for
	// piecewise-linear curves such as bit-level Hamming distances.
	Triangular InterpolationType = iota
	// Parabolic fits a parabola through three points.
	Parabolic
)

// String returns the configuration name of the interpolation type
func (t InterpolationType) String() string {
	switch t {
	case Triangular:
		return "triangular"
	case Parabolic:
		return "parabolic"
	default:
		return "unknown"
	}
}

// ParseInterpolationType maps a configuration name to an InterpolationType
func ParseInterpolationType(name string) (InterpolationType, bool) {
	switch name {
	case "", "triangular":
		return Triangular, true
	case "parabolic":
		return Parabolic, true
	default:
		return Triangular, false
	}
}

// RefineMinimum refines a local minimum at the centre of three equally
// spaced samples. It returns the offset of the refined minimum relative to
// the centre (in [-0.5, 0.5]) and the estimated value there.
func RefineMinimum(method InterpolationType, left, center, right float64) (offset, value float64) {
	switch method {
	case Parabolic:
		return parabolicMinimum(left, center, right)
	default:
		return triangularMinimum(left, center, right)
	}
}

// triangularMinimum fits y = value + slope*|x - offset|
func triangularMinimum(left, center, right float64) (float64, float64) {
	slope := max(left-center, right-center)
	if slope <= 0 {
		return 0, center
	}

	offset := Clamp((left-right)/(2*slope), -0.5, 0.5)
	value := center - slope*abs(offset)
	return offset, value
}

// parabolicMinimum fits y = a*x^2 + b*x + c
func parabolicMinimum(left, center, right float64) (float64, float64) {
	denom := left - 2*center + right
	if denom <= 0 {
		return 0, center
	}

	offset := Clamp(0.5*(left-right)/denom, -0.5, 0.5)
	value := center - 0.25*(left-right)*offset
	return offset, value
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
