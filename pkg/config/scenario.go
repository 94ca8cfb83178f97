package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kacperjurak/gooptcore"
)

// DefaultSamplesPerSymbol is used when a scenario leaves samples_per_symbol unset.
const DefaultSamplesPerSymbol = 8

// Scenario is the file and wire representation of a link setup. Frequencies
// are given in THz and the amplifier block is optional.
type Scenario struct {
	General   GeneralBlock    `yaml:"general" json:"general"`
	Source    SourceBlock     `yaml:"source" json:"source"`
	Modulator ModulatorBlock  `yaml:"modulator" json:"modulator"`
	Channel   ChannelBlock    `yaml:"channel" json:"channel"`
	Amplifier *AmplifierBlock `yaml:"amplifier,omitempty" json:"amplifier,omitempty"`
	Detector  DetectorBlock   `yaml:"detector" json:"detector"`
}

type GeneralBlock struct {
	SamplesPerSymbol int     `yaml:"samples_per_symbol" json:"samples_per_symbol"`
	Format           string  `yaml:"format" json:"format"`
	Order            int     `yaml:"order" json:"order"`
	SymbolRate       float64 `yaml:"symbol_rate" json:"symbol_rate"`
	Seed             *int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
}

type SourceBlock struct {
	PowerDBm     float64 `yaml:"power_dbm" json:"power_dbm"`
	FrequencyTHz float64 `yaml:"frequency_thz" json:"frequency_thz"`
	LinewidthHz  float64 `yaml:"linewidth_hz" json:"linewidth_hz"`
	RINdBHz      float64 `yaml:"rin_db_hz" json:"rin_db_hz"`
	Ideal        bool    `yaml:"ideal" json:"ideal"`
}

type ModulatorBlock struct {
	Type string `yaml:"type" json:"type"`
}

type ChannelBlock struct {
	LengthKm           float64 `yaml:"length_km" json:"length_km"`
	AttenuationDBPerKm float64 `yaml:"attenuation_db_km" json:"attenuation_db_km"`
	DispersionPsNmKm   float64 `yaml:"dispersion_ps_nm_km" json:"dispersion_ps_nm_km"`
	Ideal              bool    `yaml:"ideal" json:"ideal"`
}

type AmplifierBlock struct {
	Position       string  `yaml:"position" json:"position"`
	GainDB         float64 `yaml:"gain_db" json:"gain_db"`
	NoiseFigureDB  float64 `yaml:"noise_figure_db" json:"noise_figure_db"`
	SensitivityDBm float64 `yaml:"sensitivity_dbm" json:"sensitivity_dbm"`
	Ideal          bool    `yaml:"ideal" json:"ideal"`
}

type DetectorBlock struct {
	Type           string  `yaml:"type" json:"type"`
	BandwidthHz    float64 `yaml:"bandwidth_hz" json:"bandwidth_hz"`
	ResponsivityAW float64 `yaml:"responsivity" json:"responsivity"`
	Ideal          bool    `yaml:"ideal" json:"ideal"`
}

// LoadScenario reads a YAML or JSON scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var sc Scenario
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sc); err != nil {
			return nil, fmt.Errorf("failed to decode scenario %s: %w", path, err)
		}
		return &sc, nil
	}
	return ParseScenario(data)
}

// ParseScenario decodes YAML scenario data. Unknown keys are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return &sc, nil
}

// Setup translates the scenario into validated core records.
func (sc *Scenario) Setup() (gooptcore.Setup, error) {
	var setup gooptcore.Setup

	format, err := gooptcore.ParseFormat(sc.General.Format)
	if err != nil {
		return setup, err
	}
	sps := sc.General.SamplesPerSymbol
	if sps == 0 {
		sps = DefaultSamplesPerSymbol
	}
	link, err := gooptcore.NewLinkConfig(sps, format, sc.General.Order, sc.General.SymbolRate)
	if err != nil {
		return setup, err
	}
	if sc.General.Seed != nil {
		link.Seed = *sc.General.Seed
	}

	var source gooptcore.SourceConfig
	freq := sc.Source.FrequencyTHz * 1e12
	if sc.Source.Ideal {
		source, err = gooptcore.IdealSource(sc.Source.PowerDBm, freq)
	} else {
		source, err = gooptcore.NewSourceConfig(sc.Source.PowerDBm, freq, sc.Source.LinewidthHz, sc.Source.RINdBHz)
	}
	if err != nil {
		return setup, err
	}

	modType, err := gooptcore.ParseModulatorType(sc.Modulator.Type)
	if err != nil {
		return setup, err
	}

	var channel gooptcore.ChannelConfig
	if sc.Channel.Ideal {
		channel, err = gooptcore.IdealChannel(sc.Channel.LengthKm)
	} else {
		channel, err = gooptcore.NewChannelConfig(sc.Channel.LengthKm, sc.Channel.AttenuationDBPerKm, sc.Channel.DispersionPsNmKm)
	}
	if err != nil {
		return setup, err
	}

	amplifier := gooptcore.NoAmplifier()
	if a := sc.Amplifier; a != nil {
		pos, err := gooptcore.ParsePosition(a.Position)
		if err != nil {
			return setup, err
		}
		if a.Ideal {
			amplifier, err = gooptcore.IdealAmplifier(pos, a.GainDB)
		} else {
			amplifier, err = gooptcore.NewAmplifierConfig(pos, a.GainDB, a.NoiseFigureDB, a.SensitivityDBm)
		}
		if err != nil {
			return setup, err
		}
	}

	detType, err := gooptcore.ParseDetectorType(sc.Detector.Type)
	if err != nil {
		return setup, err
	}
	var detector gooptcore.DetectorConfig
	if sc.Detector.Ideal {
		detector, err = gooptcore.IdealDetector(detType)
	} else {
		detector, err = gooptcore.NewDetectorConfig(detType, sc.Detector.BandwidthHz, sc.Detector.ResponsivityAW)
	}
	if err != nil {
		return setup, err
	}

	setup = gooptcore.Setup{
		Link:      link,
		Source:    source,
		Modulator: gooptcore.ModulatorConfig{Type: modType},
		Channel:   channel,
		Amplifier: amplifier,
		Detector:  detector,
	}
	return setup, setup.Validate()
}

// FromSetup is the inverse of Setup, used to echo a run's configuration.
// Infinite values of ideal blocks are written as zero.
func FromSetup(s gooptcore.Setup) *Scenario {
	seed := s.Link.Seed
	sc := &Scenario{
		General: GeneralBlock{
			SamplesPerSymbol: s.Link.SamplesPerSymbol,
			Format:           s.Link.Format.String(),
			Order:            s.Link.Order,
			SymbolRate:       s.Link.SymbolRate,
			Seed:             &seed,
		},
		Source: SourceBlock{
			PowerDBm:     s.Source.PowerDBm,
			FrequencyTHz: s.Source.FrequencyHz / 1e12,
			LinewidthHz:  finite(s.Source.LinewidthHz),
			RINdBHz:      finite(s.Source.RINdBHz),
			Ideal:        s.Source.Ideal,
		},
		Modulator: ModulatorBlock{Type: s.Modulator.Type.String()},
		Channel: ChannelBlock{
			LengthKm:           s.Channel.LengthKm,
			AttenuationDBPerKm: s.Channel.AttenuationDBPerKm,
			DispersionPsNmKm:   s.Channel.DispersionPsNmKm,
			Ideal:              s.Channel.Ideal,
		},
		Detector: DetectorBlock{
			Type:           s.Detector.Type.String(),
			BandwidthHz:    finite(s.Detector.BandwidthHz),
			ResponsivityAW: finite(s.Detector.ResponsivityAW),
			Ideal:          s.Detector.Ideal,
		},
	}
	if a := s.Amplifier; a.Included {
		sc.Amplifier = &AmplifierBlock{
			Position:       a.Position.String(),
			GainDB:         a.GainDB,
			NoiseFigureDB:  a.NoiseFigureDB,
			SensitivityDBm: finite(a.SensitivityDBm),
			Ideal:          a.Ideal,
		}
	}
	return sc
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

var examples = map[string]Scenario{
	// 10 Gb/s on-off keying over 60 km of standard fiber.
	"ook": {
		General:   GeneralBlock{SamplesPerSymbol: DefaultSamplesPerSymbol, Format: "pam", Order: 2, SymbolRate: 10e9},
		Source:    SourceBlock{PowerDBm: 10, FrequencyTHz: 193.1, LinewidthHz: 10e3, RINdBHz: -150},
		Modulator: ModulatorBlock{Type: "mzm"},
		Channel:   ChannelBlock{LengthKm: 60, AttenuationDBPerKm: 0.2, DispersionPsNmKm: 16},
		Detector:  DetectorBlock{Type: "photodiode", BandwidthHz: 10e9, ResponsivityAW: 0.7},
	},
	// 50 Gb/s QPSK with coherent detection.
	"qpsk": {
		General:   GeneralBlock{SamplesPerSymbol: DefaultSamplesPerSymbol, Format: "psk", Order: 4, SymbolRate: 25e9},
		Source:    SourceBlock{PowerDBm: 10, FrequencyTHz: 193.1, LinewidthHz: 10e3, RINdBHz: -150},
		Modulator: ModulatorBlock{Type: "iqm"},
		Channel:   ChannelBlock{LengthKm: 10, AttenuationDBPerKm: 0.2, DispersionPsNmKm: 16},
		Detector:  DetectorBlock{Type: "coherent", BandwidthHz: 50e9, ResponsivityAW: 0.7},
	},
}

// Example returns a copy of a built-in scenario.
func Example(name string) (*Scenario, error) {
	sc, ok := examples[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &gooptcore.ConfigurationError{
			Field:  "example",
			Reason: fmt.Sprintf("unknown example %q (available: %s)", name, strings.Join(ExampleNames(), ", ")),
		}
	}
	return &sc, nil
}

// ExampleNames lists the built-in scenarios in sorted order.
func ExampleNames() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
