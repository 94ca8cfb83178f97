package dsp

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	defaultTemperatureC = 25.0
	defaultDarkCurrentA = 5e-9
	defaultLoadOhm      = 50.0
)

// PhotodiodeParams parameterizes a PIN photodiode.
type PhotodiodeParams struct {
	Ideal        bool
	Responsivity float64 // A/W
	BandwidthHz  float64
	SampleRateHz float64
	TemperatureC float64
	DarkCurrentA float64
	LoadOhm      float64
}

func (p PhotodiodeParams) withDefaults() PhotodiodeParams {
	if p.Ideal {
		p.Responsivity = 1
	}
	if p.TemperatureC == 0 {
		p.TemperatureC = defaultTemperatureC
	}
	if p.DarkCurrentA == 0 {
		p.DarkCurrentA = defaultDarkCurrentA
	}
	if p.LoadOhm == 0 {
		p.LoadOhm = defaultLoadOhm
	}
	return p
}

func (p PhotodiodeParams) validate() error {
	if p.Responsivity <= 0 || math.IsInf(p.Responsivity, 0) {
		return fmt.Errorf("%w: responsivity %g A/W", ErrInvalidInput, p.Responsivity)
	}
	if p.Ideal {
		return nil
	}
	if p.SampleRateHz <= 0 || p.BandwidthHz <= 0 || math.IsInf(p.BandwidthHz, 0) {
		return fmt.Errorf("%w: bandwidth %g Hz at %g Sa/s", ErrInvalidInput, p.BandwidthHz, p.SampleRateHz)
	}
	if p.SampleRateHz < 2*p.BandwidthHz {
		return fmt.Errorf("%w: sample rate %g below twice the bandwidth %g", ErrInvalidInput, p.SampleRateHz, p.BandwidthHz)
	}
	return nil
}

// OpticalFrontend implements square-law and coherent detection.
type OpticalFrontend struct{}

// Photodiode converts the field E into photocurrent R|E|^2. A non-ideal diode
// adds shot and thermal noise and is band-limited to BandwidthHz.
func (OpticalFrontend) Photodiode(field []complex128, p PhotodiodeParams, rng *rand.Rand) ([]float64, error) {
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	current := squareLaw(field, p, rng)
	if p.Ideal {
		return current, nil
	}
	return LowPass(current, p.BandwidthHz, p.SampleRateHz), nil
}

// Coherent mixes the signal with the local oscillator in a 2x4 90 degree
// hybrid and detects the outputs with two balanced photodiode pairs. The
// result approximates R*Es*conj(Elo).
func (OpticalFrontend) Coherent(signal, lo []complex128, p PhotodiodeParams, rng *rand.Rand) ([]complex128, error) {
	if len(signal) != len(lo) {
		return nil, fmt.Errorf("%w: signal has %d samples, local oscillator %d", ErrInvalidInput, len(signal), len(lo))
	}
	p = p.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	out := Hybrid90(signal, lo)
	inPhase := balanced(out[1], out[0], p, rng)
	quadrature := balanced(out[2], out[3], p, rng)

	res := make([]complex128, len(signal))
	for i := range res {
		res[i] = complex(inPhase[i], quadrature[i])
	}
	return res, nil
}

// Hybrid90 applies the 2x4 90 degree optical hybrid to (Es, Elo).
func Hybrid90(es, elo []complex128) [4][]complex128 {
	t := [4][2]complex128{
		{0.5, -0.5},
		{0.5i, 0.5i},
		{0.5i, -0.5},
		{-0.5, 0.5i},
	}
	var out [4][]complex128
	for k := range out {
		out[k] = make([]complex128, len(es))
		for i := range es {
			out[k][i] = t[k][0]*es[i] + t[k][1]*elo[i]
		}
	}
	return out
}

func balanced(plus, minus []complex128, p PhotodiodeParams, rng *rand.Rand) []float64 {
	a := squareLaw(plus, p, rng)
	b := squareLaw(minus, p, rng)
	for i := range a {
		a[i] -= b[i]
	}
	if p.Ideal {
		return a
	}
	return LowPass(a, p.BandwidthHz, p.SampleRateHz)
}

// squareLaw returns the unfiltered photocurrent including noise.
func squareLaw(field []complex128, p PhotodiodeParams, rng *rand.Rand) []float64 {
	current := make([]float64, len(field))
	var mean float64
	for i, e := range field {
		current[i] = p.Responsivity * (real(e)*real(e) + imag(e)*imag(e))
		mean += current[i]
	}
	if p.Ideal || len(field) == 0 {
		return current
	}
	mean /= float64(len(field))

	shotVar := 2 * ElementaryCharge * (mean + p.DarkCurrentA) * p.BandwidthHz
	thermalVar := 4 * Boltzmann * (p.TemperatureC + 273.15) * p.BandwidthHz / p.LoadOhm

	// noise is white over Fs; the low-pass brings it back to the variance above
	scale := p.SampleRateHz / (2 * p.BandwidthHz)
	shot := Gaussian(rng, len(current), math.Sqrt(scale*shotVar))
	thermal := Gaussian(rng, len(current), math.Sqrt(scale*thermalVar))
	for i := range current {
		current[i] += shot[i] + thermal[i]
	}
	return current
}
