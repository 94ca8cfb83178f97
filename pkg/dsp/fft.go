package dsp

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT returns the unnormalized discrete Fourier transform of x.
func FFT(x []complex128) []complex128 {
	if len(x) == 0 {
		return nil
	}
	return fourier.NewCmplxFFT(len(x)).Coefficients(nil, x)
}

// IFFT inverts FFT, including the 1/n scaling.
func IFFT(coeff []complex128) []complex128 {
	n := len(coeff)
	if n == 0 {
		return nil
	}
	seq := fourier.NewCmplxFFT(n).Sequence(nil, coeff)
	scale := complex(1/float64(n), 0)
	for i := range seq {
		seq[i] *= scale
	}
	return seq
}

// FFTFreq returns the frequency of every FFT bin in standard order
// (0, positive, then negative frequencies) for sample rate fs.
func FFTFreq(n int, fs float64) []float64 {
	freqs := make([]float64, n)
	df := fs / float64(n)
	for i := range freqs {
		k := i
		if i >= (n+1)/2 {
			k = i - n
		}
		freqs[i] = float64(k) * df
	}
	return freqs
}

// LowPass applies an ideal brick-wall filter with the given cutoff to the real
// signal x sampled at fs.
func LowPass(x []float64, cutoff, fs float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	c := make([]complex128, len(x))
	for i, v := range x {
		c[i] = complex(v, 0)
	}
	coeff := FFT(c)
	for i, f := range FFTFreq(len(x), fs) {
		if f > cutoff || f < -cutoff {
			coeff[i] = 0
		}
	}
	seq := IFFT(coeff)
	out := make([]float64, len(x))
	for i, v := range seq {
		out[i] = real(v)
	}
	return out
}

// MagnitudeSpectrum returns the centered frequency axis and |X(f)|/n for x.
func MagnitudeSpectrum(x []complex128, fs float64) (freqs, mag []float64) {
	n := len(x)
	if n == 0 {
		return nil, nil
	}
	coeff := FFT(x)
	raw := FFTFreq(n, fs)
	freqs = make([]float64, n)
	mag = make([]float64, n)
	shift := n / 2
	for i := range coeff {
		j := (i + shift) % n
		freqs[j] = raw[i]
		mag[j] = cmplx.Abs(coeff[i]) / float64(n)
	}
	return freqs, mag
}
