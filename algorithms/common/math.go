package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic numeric helpers shared by the streaming algorithms, using gonum where
// a slice is involved.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// StandardDeviation calculates the sample standard deviation using gonum
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.StdDev(data, nil)
}

// MinValue returns the smallest element, or +Inf for an empty slice
func MinValue(data []float64) float64 {
	if len(data) == 0 {
		return math.Inf(1)
	}
	return floats.Min(data)
}

// DBToAmplitude converts decibels to a linear amplitude (0 dB = 1.0)
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// AmplitudeToDB converts a linear amplitude to decibels.
// Zero or negative amplitudes map to -Inf.
func AmplitudeToDB(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}

// NearIntegerRatio reports whether a/b is within tolerance (relative to the
// ratio) of an integer n >= 2, and returns n.
func NearIntegerRatio(a, b, tolerance float64) (int, bool) {
	if a <= 0 || b <= 0 {
		return 0, false
	}

	ratio := a / b
	n := math.Round(ratio)
	if n < 2 {
		return 0, false
	}
	if math.Abs(ratio-n) > tolerance*ratio {
		return 0, false
	}
	return int(n), true
}

// RoundUpToMultiple rounds n up to the next multiple of m
func RoundUpToMultiple(n, m int) int {
	if m <= 0 {
		return n
	}
	return ((n + m - 1) / m) * m
}

// Clamp restricts value to [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
