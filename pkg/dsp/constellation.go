// Package dsp holds the signal-processing and optics primitives the link
// simulator is built from: constellations, pulse shaping, FFT helpers, the
// linear fiber model, laser and receiver noise, and error-rate estimation.
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
)

// Kind identifies a constellation family.
type Kind int

const (
	PAM Kind = iota
	PSK
	QAM
)

func (k Kind) String() string {
	switch k {
	case PAM:
		return "pam"
	case PSK:
		return "psk"
	case QAM:
		return "qam"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var ErrInvalidInput = errors.New("invalid input")

// Constellation is a Gray-coded set of symbols. Points are indexed by the
// integer value of the bit word they carry (MSB first).
type Constellation struct {
	kind   Kind
	order  int
	k      int
	points []complex128
}

// Gray returns the reflected binary code of n.
func Gray(n int) int { return n ^ (n >> 1) }

// NewConstellation builds the raw (unnormalized) constellation for kind/order.
func NewConstellation(kind Kind, order int) (*Constellation, error) {
	if order < 2 || order&(order-1) != 0 {
		return nil, fmt.Errorf("%w: order %d is not a power of two", ErrInvalidInput, order)
	}
	k := bits.TrailingZeros(uint(order))
	points := make([]complex128, order)

	switch kind {
	case PAM:
		for p := 0; p < order; p++ {
			points[Gray(p)] = complex(float64(2*p-(order-1)), 0)
		}
	case PSK:
		for p := 0; p < order; p++ {
			points[Gray(p)] = cmplx.Rect(1, 2*math.Pi*float64(p)/float64(order))
		}
	case QAM:
		if k%2 != 0 {
			return nil, fmt.Errorf("%w: qam order %d is not square", ErrInvalidInput, order)
		}
		half := k / 2
		side := 1 << half
		for pi := 0; pi < side; pi++ {
			for pq := 0; pq < side; pq++ {
				idx := Gray(pi)<<half | Gray(pq)
				points[idx] = complex(float64(2*pi-(side-1)), float64(2*pq-(side-1)))
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown constellation kind %v", ErrInvalidInput, kind)
	}

	return &Constellation{kind: kind, order: order, k: k, points: points}, nil
}

func (c *Constellation) Kind() Kind             { return c.kind }
func (c *Constellation) Order() int             { return c.order }
func (c *Constellation) BitsPerSymbol() int     { return c.k }
func (c *Constellation) Point(i int) complex128 { return c.points[i] }

// Points returns a copy of the symbol alphabet indexed by bit word.
func (c *Constellation) Points() []complex128 {
	out := make([]complex128, len(c.points))
	copy(out, c.points)
	return out
}

// Energy is the mean symbol energy of the raw alphabet.
func (c *Constellation) Energy() float64 {
	return SignalPower(c.points)
}

// Map converts a bit stream (MSB first per symbol) into symbols.
func (c *Constellation) Map(bitStream []uint8) ([]complex128, error) {
	if len(bitStream)%c.k != 0 {
		return nil, fmt.Errorf("%w: %d bits do not divide into %d-bit symbols", ErrInvalidInput, len(bitStream), c.k)
	}
	out := make([]complex128, len(bitStream)/c.k)
	for i := range out {
		idx := 0
		for _, b := range bitStream[i*c.k : (i+1)*c.k] {
			if b > 1 {
				return nil, fmt.Errorf("%w: bit value %d", ErrInvalidInput, b)
			}
			idx = idx<<1 | int(b)
		}
		out[i] = c.points[idx]
	}
	return out, nil
}

// Decide returns the index of the point nearest to s.
func (c *Constellation) Decide(s complex128) int {
	best, bestDist := 0, math.Inf(1)
	for i, p := range c.points {
		d := real(s-p)*real(s-p) + imag(s-p)*imag(s-p)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Demap performs minimum Euclidean distance hard decisions and returns the
// decided bit stream.
func (c *Constellation) Demap(symbols []complex128) []uint8 {
	out := make([]uint8, len(symbols)*c.k)
	for i, s := range symbols {
		idx := c.Decide(s)
		for b := 0; b < c.k; b++ {
			out[i*c.k+b] = uint8(idx>>(c.k-1-b)) & 1
		}
	}
	return out
}
