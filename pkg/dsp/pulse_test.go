package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNRZPulseShape(t *testing.T) {
	for _, sps := range []int{1, 2, 4, 8, 16} {
		p := NRZPulse(sps)
		require.Len(t, p, 2*sps-1)
		assert.InDelta(t, 1, p[sps-1], 1e-12, "peak at centre for sps=%d", sps)
		for i := range p {
			assert.InDelta(t, p[i], p[len(p)-1-i], 1e-12)
			assert.LessOrEqual(t, p[i], 1.0+1e-12)
		}
	}
	assert.Nil(t, NRZPulse(0))
}

func TestShapedSignalHitsSymbolsAtZeroOffset(t *testing.T) {
	symbols := []complex128{1, -1, 1i, -1i, 0.5 + 0.5i, -1}
	for _, sps := range []int{1, 2, 4, 8} {
		shaped := FIRFilter(NRZPulse(sps), Upsample(symbols, sps))
		require.Len(t, shaped, len(symbols)*sps)
		got := Downsample(shaped, sps, 0)
		require.Len(t, got, len(symbols))
		for i := range symbols {
			assert.InDelta(t, real(symbols[i]), real(got[i]), 1e-12)
			assert.InDelta(t, imag(symbols[i]), imag(got[i]), 1e-12)
		}
	}
}

func TestFIRFilterSameMode(t *testing.T) {
	x := []complex128{1, 2, 3, 4}
	got := FIRFilter([]float64{1, 1, 1}, x)
	assert.Equal(t, []complex128{3, 6, 9, 7}, got)
}

func TestUpsampleDownsample(t *testing.T) {
	x := []complex128{1, 2, 3}
	up := Upsample(x, 3)
	assert.Equal(t, []complex128{1, 0, 0, 2, 0, 0, 3, 0, 0}, up)
	assert.Equal(t, x, Downsample(up, 3, 0))
	assert.Nil(t, Downsample(up, 0, 0))
}
