package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
)

// LaserParams parameterizes a continuous-wave laser.
type LaserParams struct {
	PowerDBm     float64
	LinewidthHz  float64
	RINdBHz      float64
	SampleRateHz float64
	Samples      int
}

// BasicLaser models a CW laser with Wiener phase noise and relative
// intensity noise.
type BasicLaser struct{}

// Carrier synthesizes the noisy optical field.
func (BasicLaser) Carrier(p LaserParams, rng *rand.Rand) ([]complex128, error) {
	if p.Samples <= 0 || p.SampleRateHz <= 0 || p.LinewidthHz < 0 {
		return nil, fmt.Errorf("%w: laser parameters %+v", ErrInvalidInput, p)
	}

	phi := make([]float64, p.Samples)
	step := math.Sqrt(2 * math.Pi * p.LinewidthHz / p.SampleRateHz)
	for i := 1; i < len(phi); i++ {
		phi[i] = phi[i-1] + step*rng.NormFloat64()
	}

	power := DBmToWatts(p.PowerDBm)
	rin := ComplexGaussian(rng, p.Samples, math.Pow(10, p.RINdBHz/10))

	out := make([]complex128, p.Samples)
	for i := range out {
		out[i] = cmplx.Sqrt(complex(power, 0)+rin[i]) * cmplx.Rect(1, phi[i])
	}
	return out, nil
}

// IdealCarrier is a noiseless field of constant power whose phase advances by
// one full turn over the record.
func IdealCarrier(powerDBm float64, samples int) []complex128 {
	amp := math.Sqrt(DBmToWatts(powerDBm))
	out := make([]complex128, samples)
	for i := range out {
		out[i] = cmplx.Rect(amp, 2*math.Pi*float64(i)/float64(samples))
	}
	return out
}
