package gooptcore

import (
	"fmt"
	"math/rand/v2"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// Detector converts the received optical field to an electrical signal.
type Detector struct {
	receiver Receiver
}

// Detect runs direct or coherent detection. lo is the transmitter carrier,
// used as local oscillator by the coherent receiver. Direct detection returns
// the photocurrent in the real part.
func (d Detector) Detect(cfg DetectorConfig, rx, lo []complex128, fs float64, rng *rand.Rand) ([]complex128, error) {
	params := dsp.PhotodiodeParams{
		Ideal:        cfg.Ideal,
		Responsivity: cfg.ResponsivityAW,
		BandwidthHz:  cfg.BandwidthHz,
		SampleRateHz: fs,
	}

	switch cfg.Type {
	case DetectorDirect:
		current, err := d.receiver.Photodiode(rx, params, rng)
		if err != nil {
			return nil, capabilityError("photodiode", err)
		}
		out := make([]complex128, len(current))
		for i, v := range current {
			out[i] = complex(v, 0)
		}
		return out, nil
	case DetectorCoherent:
		out, err := d.receiver.Coherent(rx, lo, params, rng)
		if err != nil {
			return nil, capabilityError("coherent receiver", err)
		}
		return out, nil
	default:
		return nil, &ConfigurationError{Field: "detector.type", Reason: fmt.Sprintf("unsupported detector %v", cfg.Type)}
	}
}
