package dsp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomField(n int, seed uint64) []complex128 {
	return ComplexGaussian(rand.New(rand.NewPCG(seed, 0)), n, 1)
}

func TestFFTRoundTrip(t *testing.T) {
	x := randomField(257, 1)
	back := IFFT(FFT(x))
	require.Len(t, back, len(x))
	for i := range x {
		assert.InDelta(t, real(x[i]), real(back[i]), 1e-9)
		assert.InDelta(t, imag(x[i]), imag(back[i]), 1e-9)
	}
}

func TestFFTFreq(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2, -2, -1}, FFTFreq(5, 5))
	assert.Equal(t, []float64{0, 1, -2, -1}, FFTFreq(4, 4))
}

func TestDispersionConservesEnergy(t *testing.T) {
	x := randomField(1024, 2)
	out, err := LinearFiber{}.Propagate(x, FiberParams{
		LengthKm:          80,
		DispersionPsNmKm:  17,
		CenterFrequencyHz: 193.1e12,
		SampleRateHz:      80e9,
	})
	require.NoError(t, err)
	assert.InEpsilon(t, SignalPower(x), SignalPower(out), 1e-9)

	// dispersion must actually reshape the field
	var diff float64
	for i := range x {
		d := x[i] - out[i]
		diff += real(d)*real(d) + imag(d)*imag(d)
	}
	assert.Greater(t, diff, 1e-3)
}

func TestFiberAttenuationMatchesScaling(t *testing.T) {
	x := randomField(512, 3)
	out, err := LinearFiber{}.Propagate(x, FiberParams{
		LengthKm:           50,
		AttenuationDBPerKm: 0.2,
		CenterFrequencyHz:  193.1e12,
		SampleRateHz:       40e9,
	})
	require.NoError(t, err)
	want := Attenuate(x, 0.2, 50)
	for i := range x {
		assert.InDelta(t, real(want[i]), real(out[i]), 1e-9)
		assert.InDelta(t, imag(want[i]), imag(out[i]), 1e-9)
	}
	assert.InEpsilon(t, math.Pow(10, -1), SignalPower(out)/SignalPower(x), 1e-9)
}

func TestFiberRejectsEmptyField(t *testing.T) {
	_, err := LinearFiber{}.Propagate(nil, FiberParams{CenterFrequencyHz: 1, SampleRateHz: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLowPassRemovesOutOfBandTone(t *testing.T) {
	n, fs := 1000, 1000.0
	x := make([]float64, n)
	for i := range x {
		tt := float64(i) / fs
		x[i] = math.Cos(2*math.Pi*10*tt) + math.Cos(2*math.Pi*200*tt)
	}
	y := LowPass(x, 50, fs)
	for i := range y {
		assert.InDelta(t, math.Cos(2*math.Pi*10*float64(i)/fs), y[i], 1e-9)
	}
}

func TestMagnitudeSpectrumIsCentred(t *testing.T) {
	n, fs := 64, 64.0
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Cos(2*math.Pi*8*float64(i)/fs), math.Sin(2*math.Pi*8*float64(i)/fs))
	}
	freqs, mag := MagnitudeSpectrum(x, fs)
	require.Len(t, freqs, n)
	assert.Equal(t, -32.0, freqs[0])
	for i := 1; i < n; i++ {
		assert.Greater(t, freqs[i], freqs[i-1])
	}
	peak := 0
	for i := range mag {
		if mag[i] > mag[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8.0, freqs[peak])
	assert.InDelta(t, 1, mag[peak], 1e-9)
}
