package gooptcore

import (
	"fmt"
	"math"
	"math/cmplx"
)

const (
	phaseVpi     = 2.0
	mzmVpi       = 2.0
	mzmBias      = -1.0
	iqmVpi       = 2.0
	iqmBias      = -2.0
	iqmPhaseBias = 1.0
	// 4-pam drive is scaled into the linear part of the MZM transfer.
	pam4Drive = 0.7
)

// Modulate imposes the electrical signal u on the carrier.
func Modulate(typ ModulatorType, link LinkConfig, u, carrier []complex128) ([]complex128, error) {
	if len(u) != len(carrier) {
		return nil, capabilityError("modulate", fmt.Errorf("electrical signal has %d samples, carrier %d", len(u), len(carrier)))
	}
	out := make([]complex128, len(u))

	switch typ {
	case ModulatorPhase:
		for i := range out {
			out[i] = phaseModulate(carrier[i], u[i], phaseVpi)
		}
	case ModulatorIntensity:
		drive := complex(1, 0)
		if link.Format == FormatPAM && link.Order == 4 {
			drive = pam4Drive
		}
		for i := range out {
			out[i] = machZehnder(carrier[i], u[i]*drive, mzmVpi, mzmBias)
		}
	case ModulatorIQ:
		for i := range out {
			boosted := carrier[i] * math.Sqrt2
			a := boosted / math.Sqrt2 // one arm
			in := machZehnder(a, complex(real(u[i]), 0), iqmVpi, iqmBias)
			quad := machZehnder(a, complex(imag(u[i]), 0), iqmVpi, iqmBias)
			out[i] = in + phaseModulate(quad, iqmPhaseBias, iqmVpi)
		}
	default:
		return nil, &ConfigurationError{Field: "modulator.type", Reason: fmt.Sprintf("unsupported modulator %v", typ)}
	}
	return out, nil
}

func phaseModulate(a, u complex128, vpi float64) complex128 {
	return a * cmplx.Exp(1i*u/complex(vpi, 0)*math.Pi)
}

func machZehnder(a, u complex128, vpi, vb float64) complex128 {
	return a * cmplx.Cos(complex(0.5/vpi*math.Pi, 0)*(u+complex(vb, 0)))
}
