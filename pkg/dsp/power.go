package dsp

import (
	"fmt"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SignalPower is the mean of |x|^2.
func SignalPower(x []complex128) float64 {
	if len(x) == 0 {
		return 0
	}
	return floats.Sum(squaredMagnitude(x)) / float64(len(x))
}

// PowerDBm is SignalPower expressed in dBm.
func PowerDBm(x []complex128) float64 { return WattsToDBm(SignalPower(x)) }

func WattsToDBm(p float64) float64 { return 10 * math.Log10(p/1e-3) }

func DBmToWatts(dbm float64) float64 { return 1e-3 * math.Pow(10, dbm/10) }

// Normalize scales x to unit average power.
func Normalize(x []complex128) []complex128 {
	out := make([]complex128, len(x))
	p := SignalPower(x)
	if p == 0 {
		return out
	}
	scale := complex(1/math.Sqrt(p), 0)
	for i, v := range x {
		out[i] = v * scale
	}
	return out
}

// Mean returns the complex sample mean.
func Mean(x []complex128) complex128 {
	re, im := parts(x)
	return complex(stat.Mean(re, nil), stat.Mean(im, nil))
}

// StdDev is the population standard deviation sqrt(mean|x - mean(x)|^2).
func StdDev(x []complex128) float64 {
	re, im := parts(x)
	_, vr := stat.PopMeanVariance(re, nil)
	_, vi := stat.PopMeanVariance(im, nil)
	return math.Sqrt(vr + vi)
}

func parts(x []complex128) (re, im []float64) {
	re = make([]float64, len(x))
	im = make([]float64, len(x))
	for i, v := range x {
		re[i], im[i] = real(v), imag(v)
	}
	return re, im
}

func squaredMagnitude(x []complex128) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = real(v)*real(v) + imag(v)*imag(v)
	}
	return out
}

// ErrorRates summarizes a Tx/Rx symbol comparison.
type ErrorRates struct {
	BER   float64
	SER   float64
	SNRdB float64
}

// FastBER estimates BER, SER and SNR by hard-deciding both sequences against
// the constellation after normalizing them to unit power.
type FastBER struct{}

func (FastBER) Estimate(tx, rx []complex128, c *Constellation) (ErrorRates, error) {
	if len(tx) == 0 || len(tx) != len(rx) {
		return ErrorRates{}, fmt.Errorf("%w: tx has %d symbols, rx %d", ErrInvalidInput, len(tx), len(rx))
	}
	if c == nil {
		return ErrorRates{}, fmt.Errorf("%w: nil constellation", ErrInvalidInput)
	}

	tx = Normalize(tx)
	rx = Normalize(rx)

	diff := make([]complex128, len(tx))
	for i := range tx {
		diff[i] = rx[i] - tx[i]
	}
	snr := 10 * math.Log10(SignalPower(tx)/SignalPower(diff))

	scale := complex(math.Sqrt(c.Energy()), 0)
	k := c.BitsPerSymbol()
	var bitErrs, symErrs int
	for i := range tx {
		want := c.Decide(tx[i] * scale)
		got := c.Decide(rx[i] * scale)
		if want == got {
			continue
		}
		symErrs++
		bitErrs += bits.OnesCount(uint(want ^ got))
	}

	return ErrorRates{
		BER:   float64(bitErrs) / float64(len(tx)*k),
		SER:   float64(symErrs) / float64(len(tx)),
		SNRdB: snr,
	}, nil
}
