package gooptcore

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// StepKind is one primitive of the channel plan.
type StepKind int

const (
	StepPropagate StepKind = iota
	StepGate
	StepAmplify
)

func (k StepKind) String() string {
	switch k {
	case StepPropagate:
		return "propagate"
	case StepGate:
		return "gate"
	case StepAmplify:
		return "amplify"
	default:
		return fmt.Sprintf("step(%d)", int(k))
	}
}

// Step is one entry of a channel plan. Fraction is the share of the channel
// length covered by a propagate step.
type Step struct {
	Kind     StepKind
	Fraction float64
}

var (
	fullSpan = Step{Kind: StepPropagate, Fraction: 1}
	halfSpan = Step{Kind: StepPropagate, Fraction: 0.5}
	gate     = Step{Kind: StepGate}
	amplify  = Step{Kind: StepAmplify}
)

type planKey struct {
	position       Position
	channelIdeal   bool
	amplifierIdeal bool
}

// amplifiedPlans covers every amplified combination. An ideal channel needs no
// propagation, so position only orders the steps on a real channel. A noisy
// amplifier is always gated on the signal it is about to amplify.
var amplifiedPlans = map[planKey][]Step{
	{PositionStart, true, true}:  {amplify},
	{PositionMiddle, true, true}: {amplify},
	{PositionEnd, true, true}:    {amplify},

	{PositionStart, true, false}:  {gate, amplify},
	{PositionMiddle, true, false}: {gate, amplify},
	{PositionEnd, true, false}:    {gate, amplify},

	{PositionStart, false, true}:  {amplify, fullSpan},
	{PositionMiddle, false, true}: {halfSpan, amplify, halfSpan},
	{PositionEnd, false, true}:    {fullSpan, amplify},

	{PositionStart, false, false}:  {gate, amplify, fullSpan},
	{PositionMiddle, false, false}: {halfSpan, gate, amplify, halfSpan},
	{PositionEnd, false, false}:    {fullSpan, gate, amplify},
}

// PlanSteps returns the ordered steps the channel executes for ch and amp.
func PlanSteps(ch ChannelConfig, amp AmplifierConfig) ([]Step, error) {
	if !amp.Included {
		if ch.Ideal {
			return nil, nil
		}
		return []Step{fullSpan}, nil
	}
	steps, ok := amplifiedPlans[planKey{amp.Position, ch.Ideal, amp.Ideal}]
	if !ok {
		return nil, &ConfigurationError{Field: "amplifier.position", Reason: fmt.Sprintf("unsupported position %v", amp.Position)}
	}
	return append([]Step(nil), steps...), nil
}

// Propagation is the channel outcome. Output is nil when Abort is set.
type Propagation struct {
	Output []complex128
	Abort  *PowerBudgetError
}

func (p Propagation) Aborted() bool { return p.Abort != nil }

// ChannelPropagator runs the channel plan for one configuration.
type ChannelPropagator struct {
	Channel         ChannelConfig
	Amplifier       AmplifierConfig
	SampleRate      float64
	CenterFrequency float64

	fiber FiberChannel
	rng   *rand.Rand
	// trace receives every executed step; used by tests.
	trace func(Step)
}

// Propagate interprets the plan. A failed power gate yields an aborted
// Propagation, not an error.
func (p *ChannelPropagator) Propagate(signal []complex128) (Propagation, error) {
	steps, err := PlanSteps(p.Channel, p.Amplifier)
	if err != nil {
		return Propagation{}, err
	}

	out := signal
	for _, step := range steps {
		if p.trace != nil {
			p.trace(step)
		}
		switch step.Kind {
		case StepPropagate:
			out, err = p.propagateSegment(out, p.Channel.LengthKm*step.Fraction)
			if err != nil {
				return Propagation{}, err
			}
		case StepGate:
			if ok, power := PowerGate(out, p.Amplifier.SensitivityDBm); !ok {
				return Propagation{Abort: &PowerBudgetError{
					Position:       p.Amplifier.Position,
					PowerDBm:       power,
					SensitivityDBm: p.Amplifier.SensitivityDBm,
				}}, nil
			}
		case StepAmplify:
			out = p.amplify(out)
		}
	}
	return Propagation{Output: out}, nil
}

func (p *ChannelPropagator) propagateSegment(signal []complex128, lengthKm float64) ([]complex128, error) {
	switch {
	case p.Channel.Ideal:
		return signal, nil
	case p.Channel.DispersionPsNmKm == 0:
		return dsp.Attenuate(signal, p.Channel.AttenuationDBPerKm, lengthKm), nil
	}
	out, err := p.fiber.Propagate(signal, dsp.FiberParams{
		LengthKm:           lengthKm,
		AttenuationDBPerKm: p.Channel.AttenuationDBPerKm,
		DispersionPsNmKm:   p.Channel.DispersionPsNmKm,
		CenterFrequencyHz:  p.CenterFrequency,
		SampleRateHz:       p.SampleRate,
	})
	if err != nil {
		return nil, capabilityError("fiber", err)
	}
	return out, nil
}

// amplify applies the EDFA gain and, for a noisy amplifier, ASE noise with
// power (G-1)*nsp*h*f0*Fs.
func (p *ChannelPropagator) amplify(signal []complex128) []complex128 {
	g := math.Pow(10, p.Amplifier.GainDB/10)
	scale := complex(math.Sqrt(g), 0)
	out := make([]complex128, len(signal))
	for i, v := range signal {
		out[i] = v * scale
	}
	if p.Amplifier.Ideal {
		return out
	}

	noise := dsp.ComplexGaussian(p.rng, len(out), ASENoisePower(p.Amplifier.GainDB, p.Amplifier.NoiseFigureDB, p.CenterFrequency, p.SampleRate))
	for i := range out {
		out[i] += noise[i]
	}
	return out
}

// ASENoisePower is the amplified spontaneous emission power over the
// simulation bandwidth fs.
func ASENoisePower(gainDB, noiseFigureDB, frequencyHz, fs float64) float64 {
	g := math.Pow(10, gainDB/10)
	nf := math.Pow(10, noiseFigureDB/10)
	if g <= 1 {
		return 0
	}
	nsp := (g*nf - 1) / (2 * (g - 1))
	return (g - 1) * nsp * dsp.Planck * frequencyHz * fs
}

// PowerGate reports whether the average power of signal reaches
// sensitivityDBm, along with the measured power in dBm.
func PowerGate(signal []complex128, sensitivityDBm float64) (bool, float64) {
	power := dsp.PowerDBm(signal)
	return power >= sensitivityDBm, power
}
