package gooptcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallRun(t *testing.T, setup Setup) *Result {
	t.Helper()
	res, err := NewSimulator(withSymbolCount(testSymbols)).Simulate(context.Background(), setup)
	require.NoError(t, err)
	return res
}

func TestEveryPlotKindBuilds(t *testing.T) {
	res := smallRun(t, noisySetup(t))
	for _, kind := range PlotKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			p, err := res.Plot(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, p.Kind)
			assert.NotEmpty(t, p.Title)
			assert.True(t, len(p.Series) > 0 || len(p.Images) > 0)
		})
	}
	assert.Equal(t, len(PlotKinds()), res.cachedPlots())
}

func TestPlotIsMemoized(t *testing.T) {
	res := smallRun(t, idealSetup(t))
	first, err := res.Plot(PlotEyeRx)
	require.NoError(t, err)
	second, err := res.Plot(PlotEyeRx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, res.cachedPlots())

	// a new run starts with an empty cache
	again := smallRun(t, idealSetup(t))
	assert.Zero(t, again.cachedPlots())
}

func TestTimeTracesUseFixedWindow(t *testing.T) {
	res := smallRun(t, idealSetup(t))
	p, err := res.Plot(PlotElectricalTx)
	require.NoError(t, err)
	require.Len(t, p.Series, 2)
	assert.Len(t, p.Series[0].X, traceEnd-traceStart)
	assert.Equal(t, "Time [ns]", p.XLabel)
	assert.InDelta(t, float64(traceStart)*res.Setup.Link.SamplePeriod()*1e9, p.Series[0].X[0], 1e-12)

	opt, err := res.Plot(PlotOpticalSource)
	require.NoError(t, err)
	assert.Equal(t, "power", opt.Series[0].Name)
	assert.InDelta(t, 1e-3, opt.Series[0].Y[0], 1e-12)
}

func TestConstellationPlot(t *testing.T) {
	res := smallRun(t, idealSetup(t))
	p, err := res.Plot(PlotConstellationTx)
	require.NoError(t, err)
	require.Len(t, p.Images, 1)
	img := p.Images[0]
	assert.InDelta(t, 1.25, img.XMax, 1e-9)

	rows, cols := img.Data.Dims()
	assert.Equal(t, constellationBins, rows)
	assert.Equal(t, constellationBins, cols)
	var total float64
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			total += img.Data.At(r, c)
		}
	}
	assert.Equal(t, float64(testSymbols), total)
}

func TestEyePlotQuadratures(t *testing.T) {
	res := smallRun(t, idealSetup(t))
	p, err := res.Plot(PlotEyeTx)
	require.NoError(t, err)
	require.Len(t, p.Images, 2, "psk drives both quadratures")
	assert.Equal(t, float64(eyePeriods), p.Images[0].XMax)

	setup := idealSetup(t)
	var cfgErr error
	setup.Link, cfgErr = NewLinkConfig(4, FormatPAM, 2, 10e9)
	require.NoError(t, cfgErr)
	setup.Modulator.Type = ModulatorIntensity
	setup.Detector, cfgErr = IdealDetector(DetectorDirect)
	require.NoError(t, cfgErr)

	ook := smallRun(t, setup)
	p, err = ook.Plot(PlotEyeRx)
	require.NoError(t, err)
	assert.Len(t, p.Images, 1)
}

func TestSpectrumPlotIsCentredOnCarrier(t *testing.T) {
	res := smallRun(t, idealSetup(t))
	p, err := res.Plot(PlotSpectrumSource)
	require.NoError(t, err)
	require.Len(t, p.Series, 2)
	freq := p.Series[0]
	assert.LessOrEqual(t, len(freq.X), maxSpectrumPoints)
	assert.Less(t, freq.X[0], 193.1)
	assert.Greater(t, freq.X[len(freq.X)-1], 193.1)
	for _, v := range freq.Y {
		assert.GreaterOrEqual(t, v, spectrumFloorDBm)
	}
}

func TestRxPlotsUnavailableAfterAbort(t *testing.T) {
	setup := idealSetup(t)
	var err error
	setup.Amplifier, err = NewAmplifierConfig(PositionStart, 20, 5, 20)
	require.NoError(t, err)

	res, err := NewSimulator(withSymbolCount(testSymbols)).Simulate(context.Background(), setup)
	require.ErrorIs(t, err, ErrPowerBudget)

	for _, kind := range []PlotKind{PlotElectricalRx, PlotOpticalRx, PlotSpectrumRx, PlotConstellationRx, PlotEyeRx} {
		_, err := res.Plot(kind)
		assert.ErrorIs(t, err, ErrNoSignal, kind.String())
	}
	_, err = res.Plot(PlotOpticalTx)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.cachedPlots())
}

func TestParsePlotKind(t *testing.T) {
	for _, kind := range PlotKinds() {
		got, err := ParsePlotKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	got, err := ParsePlotKind("EYERX")
	require.NoError(t, err)
	assert.Equal(t, PlotEyeRx, got)

	_, err = ParsePlotKind("histogram")
	assert.ErrorIs(t, err, ErrConfiguration)

	res := &Result{}
	_, err = res.Plot(PlotKind(99))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHistogram2DDropsOutliers(t *testing.T) {
	h := histogram2D([]float64{0, 0.5, 1, 2}, []float64{0, 0.5, 1, 0}, 0, 1, 0, 1, 2, 2)
	assert.Equal(t, 1.0, h.At(0, 0))
	assert.Equal(t, 2.0, h.At(1, 1))
	assert.Equal(t, 3.0, h.At(0, 0)+h.At(1, 1)+h.At(0, 1)+h.At(1, 0))
}
