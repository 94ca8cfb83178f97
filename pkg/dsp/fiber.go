package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	// SpeedOfLight in m/s.
	SpeedOfLight = 299792458.0
	// Planck constant in J*s.
	Planck = 6.62607015e-34
	// ElementaryCharge in C.
	ElementaryCharge = 1.602176634e-19
	// Boltzmann constant in J/K.
	Boltzmann = 1.380649e-23
)

// FiberParams describes one fiber span.
type FiberParams struct {
	LengthKm           float64
	AttenuationDBPerKm float64
	DispersionPsNmKm   float64
	CenterFrequencyHz  float64
	SampleRateHz       float64
}

// LinearFiber propagates a field through a span with loss and chromatic
// dispersion, ignoring nonlinearity.
type LinearFiber struct{}

// Propagate applies H(w) = exp(-aL/2 - j*b2/2*w^2*L) in the frequency domain.
func (LinearFiber) Propagate(x []complex128, p FiberParams) ([]complex128, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: empty field", ErrInvalidInput)
	}
	if p.LengthKm < 0 || p.CenterFrequencyHz <= 0 || p.SampleRateHz <= 0 {
		return nil, fmt.Errorf("%w: fiber parameters %+v", ErrInvalidInput, p)
	}

	cKms := SpeedOfLight / 1e3
	lambda := cKms / p.CenterFrequencyHz
	alpha := p.AttenuationDBPerKm / (10 * math.Log10(math.E))
	beta2 := -(p.DispersionPsNmKm * lambda * lambda) / (2 * math.Pi * cKms)

	coeff := FFT(x)
	for i, f := range FFTFreq(len(x), p.SampleRateHz) {
		w := 2 * math.Pi * f
		coeff[i] *= cmplx.Exp(complex(-alpha*p.LengthKm/2, -beta2/2*w*w*p.LengthKm))
	}
	return IFFT(coeff), nil
}

// Attenuate scales x by the field loss of lengthKm of fiber.
func Attenuate(x []complex128, attenuationDBPerKm, lengthKm float64) []complex128 {
	scale := complex(math.Sqrt(math.Pow(10, -attenuationDBPerKm*lengthKm/10)), 0)
	out := make([]complex128, len(x))
	for i, v := range x {
		out[i] = v * scale
	}
	return out
}
