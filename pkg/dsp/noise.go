package dsp

import (
	"math"
	"math/rand/v2"
)

// ComplexGaussian draws n circular complex Gaussian samples with total
// variance variance (variance/2 per quadrature).
func ComplexGaussian(rng *rand.Rand, n int, variance float64) []complex128 {
	out := make([]complex128, n)
	if variance <= 0 {
		return out
	}
	std := math.Sqrt(variance / 2)
	for i := range out {
		out[i] = complex(std*rng.NormFloat64(), std*rng.NormFloat64())
	}
	return out
}

// Gaussian draws n real zero-mean samples with standard deviation std.
func Gaussian(rng *rand.Rand, n int, std float64) []float64 {
	out := make([]float64, n)
	if std <= 0 {
		return out
	}
	for i := range out {
		out[i] = std * rng.NormFloat64()
	}
	return out
}
