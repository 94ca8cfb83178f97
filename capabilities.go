package gooptcore

import (
	"math/rand/v2"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// LaserModel synthesizes a noisy continuous-wave carrier.
type LaserModel interface {
	Carrier(p dsp.LaserParams, rng *rand.Rand) ([]complex128, error)
}

// FiberChannel propagates a field through a span with loss and dispersion.
type FiberChannel interface {
	Propagate(signal []complex128, p dsp.FiberParams) ([]complex128, error)
}

// Receiver converts optical fields to electrical signals.
type Receiver interface {
	Photodiode(field []complex128, p dsp.PhotodiodeParams, rng *rand.Rand) ([]float64, error)
	Coherent(signal, lo []complex128, p dsp.PhotodiodeParams, rng *rand.Rand) ([]complex128, error)
}

// ErrorEstimator compares transmitted and recovered symbols.
type ErrorEstimator interface {
	Estimate(tx, rx []complex128, c *dsp.Constellation) (dsp.ErrorRates, error)
}

func constellationFor(link LinkConfig) (*dsp.Constellation, error) {
	kind := dsp.PAM
	switch link.Format {
	case FormatPSK:
		kind = dsp.PSK
	case FormatQAM:
		kind = dsp.QAM
	}
	c, err := dsp.NewConstellation(kind, link.Order)
	return c, capabilityError("constellation", err)
}
