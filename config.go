package gooptcore

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultSeed reseeds the pseudo-random generator at the start of every run.
const DefaultSeed int64 = 123

// SymbolCount is the number of symbols generated per run, independent of
// order and symbol rate.
const SymbolCount = 1_000_000

const (
	maxSymbolRate    = 1e12
	maxOOKSymbolRate = 1e11
)

var validate = validator.New()

// Format is the modulation family.
type Format int

const (
	FormatPAM Format = iota
	FormatPSK
	FormatQAM
)

func (f Format) String() string {
	switch f {
	case FormatPAM:
		return "pam"
	case FormatPSK:
		return "psk"
	case FormatQAM:
		return "qam"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat accepts pam, psk and qam. On-off keying is pam with order 2.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pam":
		return FormatPAM, nil
	case "psk":
		return FormatPSK, nil
	case "qam":
		return FormatQAM, nil
	default:
		return 0, &ConfigurationError{Field: "link.format", Reason: fmt.Sprintf("unsupported format %q", s)}
	}
}

var validOrders = map[Format][]int{
	FormatPAM: {2, 4, 8, 16},
	FormatPSK: {2, 4, 8, 16},
	FormatQAM: {4, 16, 64, 256},
}

// ValidOrders lists the modulation orders accepted for f.
func ValidOrders(f Format) []int {
	return append([]int(nil), validOrders[f]...)
}

// ModulatorType selects how the electrical signal is imposed on the carrier.
type ModulatorType int

const (
	ModulatorPhase ModulatorType = iota
	ModulatorIntensity
	ModulatorIQ
)

func (m ModulatorType) String() string {
	switch m {
	case ModulatorPhase:
		return "pm"
	case ModulatorIntensity:
		return "mzm"
	case ModulatorIQ:
		return "iqm"
	default:
		return fmt.Sprintf("modulator(%d)", int(m))
	}
}

// ParseModulatorType accepts pm/phase, mzm/intensity and iqm/iq.
func ParseModulatorType(s string) (ModulatorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pm", "phase":
		return ModulatorPhase, nil
	case "mzm", "intensity":
		return ModulatorIntensity, nil
	case "iqm", "iq":
		return ModulatorIQ, nil
	default:
		return 0, &ConfigurationError{Field: "modulator.type", Reason: fmt.Sprintf("unsupported modulator %q", s)}
	}
}

// DetectorType selects direct (photodiode) or coherent detection.
type DetectorType int

const (
	DetectorDirect DetectorType = iota
	DetectorCoherent
)

func (d DetectorType) String() string {
	switch d {
	case DetectorDirect:
		return "photodiode"
	case DetectorCoherent:
		return "coherent"
	default:
		return fmt.Sprintf("detector(%d)", int(d))
	}
}

// ParseDetectorType accepts photodiode/direct/pd and coherent/hybrid.
func ParseDetectorType(s string) (DetectorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "photodiode", "direct", "pd":
		return DetectorDirect, nil
	case "coherent", "hybrid":
		return DetectorCoherent, nil
	default:
		return 0, &ConfigurationError{Field: "detector.type", Reason: fmt.Sprintf("unsupported detector %q", s)}
	}
}

// Position is where the amplifier sits along the channel.
type Position int

const (
	PositionStart Position = iota
	PositionMiddle
	PositionEnd
)

func (p Position) String() string {
	switch p {
	case PositionStart:
		return "start"
	case PositionMiddle:
		return "middle"
	case PositionEnd:
		return "end"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// ParsePosition accepts start, middle and end.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start":
		return PositionStart, nil
	case "middle":
		return PositionMiddle, nil
	case "end":
		return PositionEnd, nil
	default:
		return 0, &ConfigurationError{Field: "amplifier.position", Reason: fmt.Sprintf("unsupported position %q", s)}
	}
}

// LinkConfig is the general block: shaping, format and timing.
type LinkConfig struct {
	SamplesPerSymbol int     `validate:"gte=1,lte=32"`
	Format           Format  `validate:"gte=0,lte=2"`
	Order            int     `validate:"gte=2"`
	SymbolRate       float64 `validate:"gte=1e6,lt=1e12"`
	Seed             int64
}

// NewLinkConfig returns a validated link configuration seeded with DefaultSeed.
func NewLinkConfig(sps int, format Format, order int, symbolRate float64) (LinkConfig, error) {
	c := LinkConfig{
		SamplesPerSymbol: sps,
		Format:           format,
		Order:            order,
		SymbolRate:       symbolRate,
		Seed:             DefaultSeed,
	}
	return c, c.Validate()
}

func (c LinkConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError("link", err)
	}
	ok := false
	for _, o := range validOrders[c.Format] {
		if o == c.Order {
			ok = true
			break
		}
	}
	if !ok {
		return &ConfigurationError{
			Field:  "link.order",
			Reason: fmt.Sprintf("order %d not supported for %s, want one of %v", c.Order, c.Format, validOrders[c.Format]),
		}
	}
	if c.IsOOK() && c.SymbolRate >= maxOOKSymbolRate {
		return &ConfigurationError{
			Field:  "link.symbol_rate",
			Reason: fmt.Sprintf("on-off keying symbol rate %g must be below %g", c.SymbolRate, maxOOKSymbolRate),
		}
	}
	return nil
}

// IsOOK reports whether the link is on-off keyed (2-level pam).
func (c LinkConfig) IsOOK() bool { return c.Format == FormatPAM && c.Order == 2 }

// SampleRate is SpS x Rs.
func (c LinkConfig) SampleRate() float64 { return float64(c.SamplesPerSymbol) * c.SymbolRate }

// SamplePeriod is 1/Fs.
func (c LinkConfig) SamplePeriod() float64 { return 1 / c.SampleRate() }

// BitsPerSymbol is log2(order).
func (c LinkConfig) BitsPerSymbol() int { return bits.TrailingZeros(uint(c.Order)) }

// SourceConfig describes the laser.
type SourceConfig struct {
	PowerDBm    float64 `validate:"gte=-20,lte=50"`
	FrequencyHz float64 `validate:"gte=170e12,lte=250e12"`
	LinewidthHz float64 `validate:"gte=1,lte=1e9"`
	RINdBHz     float64 `validate:"gte=-250,lte=0"`
	Ideal       bool
}

func NewSourceConfig(powerDBm, frequencyHz, linewidthHz, rinDBHz float64) (SourceConfig, error) {
	c := SourceConfig{PowerDBm: powerDBm, FrequencyHz: frequencyHz, LinewidthHz: linewidthHz, RINdBHz: rinDBHz}
	return c, c.Validate()
}

// IdealSource is a noiseless laser: zero linewidth and RIN of -Inf.
func IdealSource(powerDBm, frequencyHz float64) (SourceConfig, error) {
	c := SourceConfig{PowerDBm: powerDBm, FrequencyHz: frequencyHz, RINdBHz: math.Inf(-1), Ideal: true}
	return c, c.Validate()
}

func (c SourceConfig) Validate() error {
	var err error
	if c.Ideal {
		err = validate.StructPartial(c, "PowerDBm", "FrequencyHz")
	} else {
		err = validate.Struct(c)
	}
	if err != nil {
		return validationError("source", err)
	}
	return nil
}

// ModulatorConfig selects the modulator.
type ModulatorConfig struct {
	Type ModulatorType `validate:"gte=0,lte=2"`
}

func (c ModulatorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError("modulator", err)
	}
	return nil
}

// ChannelConfig describes the fiber span.
type ChannelConfig struct {
	LengthKm           float64 `validate:"gt=0,lte=1000"`
	AttenuationDBPerKm float64 `validate:"gte=0,lte=5"`
	DispersionPsNmKm   float64 `validate:"gte=0,lte=200"`
	Ideal              bool
}

func NewChannelConfig(lengthKm, attenuation, dispersion float64) (ChannelConfig, error) {
	c := ChannelConfig{LengthKm: lengthKm, AttenuationDBPerKm: attenuation, DispersionPsNmKm: dispersion}
	return c, c.Validate()
}

// IdealChannel is a lossless, dispersionless passthrough of the given length.
func IdealChannel(lengthKm float64) (ChannelConfig, error) {
	c := ChannelConfig{LengthKm: lengthKm, Ideal: true}
	return c, c.Validate()
}

func (c ChannelConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError("channel", err)
	}
	if c.Ideal && (c.AttenuationDBPerKm != 0 || c.DispersionPsNmKm != 0) {
		return &ConfigurationError{Field: "channel.ideal", Reason: "ideal channel must have zero attenuation and dispersion"}
	}
	return nil
}

// AmplifierConfig describes the optional in-line optical amplifier. The zero
// value is "no amplifier".
type AmplifierConfig struct {
	Included       bool
	Position       Position `validate:"gte=0,lte=2"`
	GainDB         float64  `validate:"gt=0,lte=50"`
	NoiseFigureDB  float64  `validate:"gte=0,lte=100"`
	SensitivityDBm float64  `validate:"gte=-50,lte=100"`
	Ideal          bool
}

func NewAmplifierConfig(position Position, gainDB, noiseFigureDB, sensitivityDBm float64) (AmplifierConfig, error) {
	c := AmplifierConfig{
		Included:       true,
		Position:       position,
		GainDB:         gainDB,
		NoiseFigureDB:  noiseFigureDB,
		SensitivityDBm: sensitivityDBm,
	}
	return c, c.Validate()
}

// IdealAmplifier adds gain without noise and never gates the signal.
func IdealAmplifier(position Position, gainDB float64) (AmplifierConfig, error) {
	c := AmplifierConfig{
		Included:       true,
		Position:       position,
		GainDB:         gainDB,
		SensitivityDBm: math.Inf(-1),
		Ideal:          true,
	}
	return c, c.Validate()
}

// NoAmplifier leaves the channel unamplified.
func NoAmplifier() AmplifierConfig { return AmplifierConfig{} }

func (c AmplifierConfig) Validate() error {
	if !c.Included {
		return nil
	}
	var err error
	if c.Ideal {
		err = validate.StructPartial(c, "Position", "GainDB")
	} else {
		err = validate.Struct(c)
	}
	if err != nil {
		return validationError("amplifier", err)
	}
	return nil
}

// DetectorConfig describes the receiver front end.
type DetectorConfig struct {
	Type           DetectorType `validate:"gte=0,lte=1"`
	BandwidthHz    float64      `validate:"gt=0"`
	ResponsivityAW float64      `validate:"gt=0,lte=10"`
	Ideal          bool
}

func NewDetectorConfig(typ DetectorType, bandwidthHz, responsivity float64) (DetectorConfig, error) {
	c := DetectorConfig{Type: typ, BandwidthHz: bandwidthHz, ResponsivityAW: responsivity}
	return c, c.Validate()
}

// IdealDetector has unlimited bandwidth and responsivity and adds no noise.
func IdealDetector(typ DetectorType) (DetectorConfig, error) {
	c := DetectorConfig{Type: typ, BandwidthHz: math.Inf(1), ResponsivityAW: math.Inf(1), Ideal: true}
	return c, c.Validate()
}

func (c DetectorConfig) Validate() error {
	var err error
	if c.Ideal {
		err = validate.StructPartial(c, "Type")
	} else {
		err = validate.Struct(c)
	}
	if err != nil {
		return validationError("detector", err)
	}
	return nil
}

// Setup gathers every block needed for one run.
type Setup struct {
	Link      LinkConfig
	Source    SourceConfig
	Modulator ModulatorConfig
	Channel   ChannelConfig
	Amplifier AmplifierConfig
	Detector  DetectorConfig
}

// Validate checks every block and the cross-block sampling constraint.
func (s Setup) Validate() error {
	for _, v := range []interface{ Validate() error }{s.Link, s.Source, s.Modulator, s.Channel, s.Amplifier, s.Detector} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if !s.Detector.Ideal && s.Link.SampleRate() < 2*s.Detector.BandwidthHz {
		return &ConfigurationError{
			Field: "detector.bandwidth",
			Reason: fmt.Sprintf("sample rate %g Sa/s must be at least twice the bandwidth %g Hz",
				s.Link.SampleRate(), s.Detector.BandwidthHz),
		}
	}
	return nil
}

func validationError(block string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("must satisfy %s=%s, got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		return &ConfigurationError{Field: block + "." + fe.Field(), Reason: reason}
	}
	return &ConfigurationError{Field: block, Reason: err.Error()}
}
