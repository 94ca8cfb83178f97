package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// NRZPulse returns the unit-peak non-return-to-zero kernel for sps samples per
// symbol: a rectangle of width sps smoothed by a Gaussian. The kernel has
// 2*sps-1 taps and is symmetric around tap sps-1.
func NRZPulse(sps int) []float64 {
	if sps < 1 {
		return nil
	}
	g := make([]float64, sps)
	if sps == 1 {
		g[0] = 2 / math.Sqrt(math.Pi) * math.Exp(-4)
	} else {
		floats.Span(g, -2, 2)
		for i, t := range g {
			g[i] = 2 / math.Sqrt(math.Pi) * math.Exp(-t*t)
		}
	}

	pulse := make([]float64, 2*sps-1)
	for i := 0; i < sps; i++ {
		for j, v := range g {
			pulse[i+j] += v
		}
	}
	floats.Scale(1/floats.Max(pulse), pulse)
	return pulse
}

// Upsample inserts factor-1 zeros after every sample.
func Upsample(x []complex128, factor int) []complex128 {
	out := make([]complex128, len(x)*factor)
	for i, v := range x {
		out[i*factor] = v
	}
	return out
}

// Downsample keeps every factor-th sample starting at offset.
func Downsample(x []complex128, factor, offset int) []complex128 {
	if factor < 1 || offset < 0 || offset >= len(x) {
		return nil
	}
	out := make([]complex128, 0, (len(x)-offset+factor-1)/factor)
	for i := offset; i < len(x); i += factor {
		out = append(out, x[i])
	}
	return out
}

// FIRFilter convolves x with the real taps h and returns the central len(x)
// samples, aligned so that the tap at (len(h)-1)/2 is the zero-delay tap.
func FIRFilter(h []float64, x []complex128) []complex128 {
	out := make([]complex128, len(x))
	delay := (len(h) - 1) / 2
	for n := range out {
		var acc complex128
		for k, tap := range h {
			m := n + delay - k
			if m < 0 || m >= len(x) {
				continue
			}
			if x[m] == 0 {
				continue
			}
			acc += complex(tap, 0) * x[m]
		}
		out[n] = acc
	}
	return out
}
