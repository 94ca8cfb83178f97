package gooptcore

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

func TestPlanStepsCoversEveryCombination(t *testing.T) {
	tests := []struct {
		name           string
		included       bool
		position       Position
		channelIdeal   bool
		amplifierIdeal bool
		want           []Step
	}{
		{"no amp, ideal channel", false, PositionStart, true, false, nil},
		{"no amp, real channel", false, PositionStart, false, false, []Step{fullSpan}},

		{"ideal/ideal start", true, PositionStart, true, true, []Step{amplify}},
		{"ideal/ideal middle", true, PositionMiddle, true, true, []Step{amplify}},
		{"ideal/ideal end", true, PositionEnd, true, true, []Step{amplify}},

		{"ideal channel, noisy amp start", true, PositionStart, true, false, []Step{gate, amplify}},
		{"ideal channel, noisy amp middle", true, PositionMiddle, true, false, []Step{gate, amplify}},
		{"ideal channel, noisy amp end", true, PositionEnd, true, false, []Step{gate, amplify}},

		{"real channel, ideal amp start", true, PositionStart, false, true, []Step{amplify, fullSpan}},
		{"real channel, ideal amp middle", true, PositionMiddle, false, true, []Step{halfSpan, amplify, halfSpan}},
		{"real channel, ideal amp end", true, PositionEnd, false, true, []Step{fullSpan, amplify}},

		{"real channel, noisy amp start", true, PositionStart, false, false, []Step{gate, amplify, fullSpan}},
		{"real channel, noisy amp middle", true, PositionMiddle, false, false, []Step{halfSpan, gate, amplify, halfSpan}},
		{"real channel, noisy amp end", true, PositionEnd, false, false, []Step{fullSpan, gate, amplify}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := ChannelConfig{LengthKm: 10, Ideal: tt.channelIdeal}
			amp := AmplifierConfig{Included: tt.included, Position: tt.position, Ideal: tt.amplifierIdeal}
			got, err := PlanSteps(ch, amp)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanStepsRejectsUnknownPosition(t *testing.T) {
	_, err := PlanSteps(ChannelConfig{LengthKm: 1}, AmplifierConfig{Included: true, Position: Position(7)})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPlanStepsReturnsCopy(t *testing.T) {
	amp := AmplifierConfig{Included: true, Position: PositionMiddle, Ideal: true}
	steps, err := PlanSteps(ChannelConfig{LengthKm: 1}, amp)
	require.NoError(t, err)
	steps[0] = gate

	again, err := PlanSteps(ChannelConfig{LengthKm: 1}, amp)
	require.NoError(t, err)
	assert.Equal(t, halfSpan, again[0])
}

func constantField(n int, powerDBm float64) []complex128 {
	out := make([]complex128, n)
	amp := math.Sqrt(dsp.DBmToWatts(powerDBm))
	for i := range out {
		out[i] = complex(amp, 0)
	}
	return out
}

func TestMiddleSplitsLengthIntoTwoCalls(t *testing.T) {
	fiber := &recordingFiber{}
	p := &ChannelPropagator{
		Channel:         ChannelConfig{LengthKm: 80, AttenuationDBPerKm: 0.2, DispersionPsNmKm: 17},
		Amplifier:       AmplifierConfig{Included: true, Position: PositionMiddle, GainDB: 16, Ideal: true},
		SampleRate:      40e9,
		CenterFrequency: 193.1e12,
		fiber:           fiber,
	}
	out, err := p.Propagate(constantField(64, 0))
	require.NoError(t, err)
	assert.False(t, out.Aborted())
	assert.Equal(t, []float64{40, 40}, fiber.lengths)
	assert.Equal(t, 80.0, p.Channel.LengthKm)
}

type recordingFiber struct {
	dsp.LinearFiber
	lengths []float64
}

func (f *recordingFiber) Propagate(x []complex128, p dsp.FiberParams) ([]complex128, error) {
	f.lengths = append(f.lengths, p.LengthKm)
	return f.LinearFiber.Propagate(x, p)
}

func TestGateUsesSignalAtItsPositionInTheSequence(t *testing.T) {
	// 0 dBm launched into 100 km at 0.2 dB/km arrives at -20 dBm.
	ch := ChannelConfig{LengthKm: 100, AttenuationDBPerKm: 0.2}
	tests := []struct {
		position  Position
		aborted   bool
		gatePower float64
	}{
		{PositionStart, false, 0},
		{PositionMiddle, true, -10},
		{PositionEnd, true, -20},
	}
	for _, tt := range tests {
		t.Run(tt.position.String(), func(t *testing.T) {
			var executed []Step
			p := &ChannelPropagator{
				Channel:         ch,
				Amplifier:       AmplifierConfig{Included: true, Position: tt.position, GainDB: 20, NoiseFigureDB: 5, SensitivityDBm: -5},
				SampleRate:      40e9,
				CenterFrequency: 193.1e12,
				fiber:           dsp.LinearFiber{},
				rng:             rand.New(rand.NewPCG(1, 0)),
				trace:           func(s Step) { executed = append(executed, s) },
			}
			out, err := p.Propagate(constantField(128, 0))
			require.NoError(t, err)
			assert.Equal(t, tt.aborted, out.Aborted())
			if !tt.aborted {
				assert.NotNil(t, out.Output)
				return
			}
			assert.Nil(t, out.Output)
			assert.InDelta(t, tt.gatePower, out.Abort.PowerDBm, 1e-9)
			assert.Equal(t, -5.0, out.Abort.SensitivityDBm)
			assert.Equal(t, StepGate, executed[len(executed)-1].Kind)
			for _, s := range executed {
				assert.NotEqual(t, StepAmplify, s.Kind)
			}
		})
	}
}

func TestIdealAmplifierNeverGates(t *testing.T) {
	p := &ChannelPropagator{
		Channel:    ChannelConfig{LengthKm: 1000, AttenuationDBPerKm: 5},
		Amplifier:  AmplifierConfig{Included: true, Position: PositionEnd, GainDB: 10, SensitivityDBm: math.Inf(-1), Ideal: true},
		SampleRate: 1e9,
	}
	out, err := p.Propagate(constantField(16, -20))
	require.NoError(t, err)
	assert.False(t, out.Aborted())
}

func TestMiddleAmplifierPowerLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("middle amp equals full span loss plus one gain stage", prop.ForAll(
		func(length, alpha, gainDB float64) bool {
			p := &ChannelPropagator{
				Channel:    ChannelConfig{LengthKm: length, AttenuationDBPerKm: alpha},
				Amplifier:  AmplifierConfig{Included: true, Position: PositionMiddle, GainDB: gainDB, Ideal: true},
				SampleRate: 10e9,
			}
			in := dsp.ComplexGaussian(rand.New(rand.NewPCG(uint64(length*1e3), 0)), 64, 1e-3)
			out, err := p.Propagate(in)
			if err != nil || out.Aborted() {
				return false
			}
			got := dsp.SignalPower(out.Output) / dsp.SignalPower(in)
			want := math.Pow(10, gainDB/10) * math.Pow(10, -alpha*length/10)
			return math.Abs(got-want) <= 1e-9*want
		},
		gen.Float64Range(1, 200),
		gen.Float64Range(0, 1),
		gen.Float64Range(0.5, 30),
	))

	properties.TestingRun(t)
}

func TestNoisyAmplifierAddsASE(t *testing.T) {
	p := &ChannelPropagator{
		Channel:         ChannelConfig{LengthKm: 1, Ideal: true},
		Amplifier:       AmplifierConfig{Included: true, Position: PositionStart, GainDB: 20, NoiseFigureDB: 5, SensitivityDBm: -30},
		SampleRate:      1e12,
		CenterFrequency: 193.1e12,
		rng:             rand.New(rand.NewPCG(9, 0)),
	}
	in := make([]complex128, 20000)
	in[0] = complex(math.Sqrt(1e-3*float64(len(in))), 0) // 0 dBm average, gate passes
	out, err := p.Propagate(in)
	require.NoError(t, err)

	var noise float64
	for _, v := range out.Output[1:] {
		noise += real(v)*real(v) + imag(v)*imag(v)
	}
	noise /= float64(len(out.Output) - 1)
	assert.InEpsilon(t, ASENoisePower(20, 5, 193.1e12, 1e12), noise, 0.05)
}

func TestASENoisePower(t *testing.T) {
	g, nf := 100.0, math.Pow(10, 0.5)
	nsp := (g*nf - 1) / (2 * (g - 1))
	want := (g - 1) * nsp * dsp.Planck * 193.1e12 * 40e9
	assert.InEpsilon(t, want, ASENoisePower(20, 5, 193.1e12, 40e9), 1e-12)
	assert.Zero(t, ASENoisePower(0, 5, 193.1e12, 40e9))
}

func TestPowerGate(t *testing.T) {
	ok, p := PowerGate(constantField(8, -10), -10)
	assert.True(t, ok)
	assert.InDelta(t, -10, p, 1e-9)

	ok, _ = PowerGate(constantField(8, -10.01), -10)
	assert.False(t, ok)

	ok, p = PowerGate(make([]complex128, 8), -50)
	assert.False(t, ok)
	assert.True(t, math.IsInf(p, -1))
}
