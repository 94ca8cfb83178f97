package gooptcore

import (
	"math/rand/v2"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// Transmission is the output of the information source.
type Transmission struct {
	Bits       []uint8
	Symbols    []complex128
	Electrical []complex128
}

// InformationSource generates bits, maps them to Gray-coded symbols and
// shapes them with the NRZ pulse.
type InformationSource struct {
	symbols int
}

// NewInformationSource returns a source producing SymbolCount symbols per run.
func NewInformationSource() InformationSource {
	return InformationSource{symbols: SymbolCount}
}

// Generate draws log2(order) bits per symbol from rng. The returned symbols
// have unit average power and the electrical signal carries each symbol
// exactly at sample index i*SpS.
func (s InformationSource) Generate(link LinkConfig, rng *rand.Rand) (Transmission, error) {
	n := s.symbols
	if n <= 0 {
		n = SymbolCount
	}
	c, err := constellationFor(link)
	if err != nil {
		return Transmission{}, err
	}

	bits := make([]uint8, n*link.BitsPerSymbol())
	for i := range bits {
		bits[i] = uint8(rng.IntN(2))
	}
	raw, err := c.Map(bits)
	if err != nil {
		return Transmission{}, capabilityError("map", err)
	}
	symbols := dsp.Normalize(raw)

	pulse := dsp.NRZPulse(link.SamplesPerSymbol)
	electrical := dsp.FIRFilter(pulse, dsp.Upsample(symbols, link.SamplesPerSymbol))

	return Transmission{Bits: bits, Symbols: symbols, Electrical: electrical}, nil
}

// CarrierSource produces the optical carrier.
type CarrierSource struct {
	laser LaserModel
}

// Generate returns n samples of carrier at sample rate fs.
func (c CarrierSource) Generate(src SourceConfig, fs float64, n int, rng *rand.Rand) ([]complex128, error) {
	if src.Ideal {
		return dsp.IdealCarrier(src.PowerDBm, n), nil
	}
	out, err := c.laser.Carrier(dsp.LaserParams{
		PowerDBm:     src.PowerDBm,
		LinewidthHz:  src.LinewidthHz,
		RINdBHz:      src.RINdBHz,
		SampleRateHz: fs,
		Samples:      n,
	}, rng)
	if err != nil {
		return nil, capabilityError("laser", err)
	}
	return out, nil
}
