package gooptcore

import (
	"errors"
	"math"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// RecoverSymbols samples the detected signal once per symbol and hard-decides
// it against the constellation for link.
//
// Sampling is fixed at offset 0 with no timing search. This is exact only
// because the NRZ pulse peaks on its zero-delay tap and spans less than two
// symbol periods, so sample i*SpS of the shaped signal is symbol i. Changing
// the pulse or its alignment breaks this receiver.
func RecoverSymbols(detected []complex128, link LinkConfig) ([]complex128, []uint8, error) {
	sd := dsp.StdDev(detected)
	if sd == 0 || math.IsNaN(sd) {
		return nil, nil, capabilityError("recover", errors.New("detected signal has no variance"))
	}
	scaled := make([]complex128, len(detected))
	for i, v := range detected {
		scaled[i] = v / complex(sd, 0)
	}

	samples := dsp.Downsample(scaled, link.SamplesPerSymbol, 0)
	mean := dsp.Mean(samples)
	for i := range samples {
		samples[i] -= mean
	}
	symbols := dsp.Normalize(samples)

	c, err := constellationFor(link)
	if err != nil {
		return nil, nil, err
	}
	scale := complex(math.Sqrt(c.Energy()), 0)
	decided := make([]complex128, len(symbols))
	for i, s := range symbols {
		decided[i] = s * scale
	}
	return symbols, c.Demap(decided), nil
}
