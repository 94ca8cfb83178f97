package gooptcore

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// PlotKind enumerates the available projections of a Result.
type PlotKind int

const (
	PlotElectricalTx PlotKind = iota
	PlotElectricalRx
	PlotOpticalSource
	PlotOpticalTx
	PlotOpticalRx
	PlotSpectrumSource
	PlotSpectrumTx
	PlotSpectrumRx
	PlotConstellationTx
	PlotConstellationRx
	PlotEyeTx
	PlotEyeRx
)

var plotKindNames = []string{
	PlotElectricalTx:    "electricalTx",
	PlotElectricalRx:    "electricalRx",
	PlotOpticalSource:   "opticalSource",
	PlotOpticalTx:       "opticalTx",
	PlotOpticalRx:       "opticalRx",
	PlotSpectrumSource:  "spectrumSource",
	PlotSpectrumTx:      "spectrumTx",
	PlotSpectrumRx:      "spectrumRx",
	PlotConstellationTx: "constellationTx",
	PlotConstellationRx: "constellationRx",
	PlotEyeTx:           "eyeTx",
	PlotEyeRx:           "eyeRx",
}

func (k PlotKind) String() string {
	if k >= 0 && int(k) < len(plotKindNames) {
		return plotKindNames[k]
	}
	return fmt.Sprintf("plot(%d)", int(k))
}

// ParsePlotKind is case-insensitive.
func ParsePlotKind(s string) (PlotKind, error) {
	for i, name := range plotKindNames {
		if strings.EqualFold(name, s) {
			return PlotKind(i), nil
		}
	}
	return 0, &ConfigurationError{Field: "plot.kind", Reason: fmt.Sprintf("unknown plot kind %q", s)}
}

// PlotKinds lists every kind in display order.
func PlotKinds() []PlotKind {
	kinds := make([]PlotKind, len(plotKindNames))
	for i := range kinds {
		kinds[i] = PlotKind(i)
	}
	return kinds
}

// Series is a line or scatter trace.
type Series struct {
	Name string
	X, Y []float64
}

// Image is a 2D density (rows along Y, columns along X).
type Image struct {
	Name       string
	Data       *mat.Dense
	XMin, XMax float64
	YMin, YMax float64
}

// Plot is a renderer-agnostic figure.
type Plot struct {
	Kind   PlotKind
	Title  string
	XLabel string
	YLabel string
	Series []Series
	Images []Image
}

const (
	traceStart        = 100
	traceEnd          = 600
	maxSpectrumPoints = 4096
	spectrumFloorDBm  = -200.0
	maxScatterPoints  = 10000
	constellationBins = 128
	constellationSpan = 1.25
	eyeDiscard        = 100
	eyePeriods        = 3
	eyeMaxSymbols     = 2000
	eyeUpsample       = 8
	eyeTimeBins       = 300
	eyeAmplitudeBins  = 200
)

var plotBuilders = map[PlotKind]func(*Result) (*Plot, error){
	PlotElectricalTx: func(r *Result) (*Plot, error) {
		return electricalPlot("Electrical signal (Tx)", r.Electrical, r.Setup.Link.SamplePeriod())
	},
	PlotElectricalRx: func(r *Result) (*Plot, error) {
		return electricalPlot("Electrical signal (Rx)", r.Detected, r.Setup.Link.SamplePeriod())
	},
	PlotOpticalSource: func(r *Result) (*Plot, error) {
		return opticalPlot("Optical carrier", r.Carrier, r.Setup.Link.SamplePeriod())
	},
	PlotOpticalTx: func(r *Result) (*Plot, error) {
		return opticalPlot("Optical signal (Tx)", r.Modulated, r.Setup.Link.SamplePeriod())
	},
	PlotOpticalRx: func(r *Result) (*Plot, error) {
		return opticalPlot("Optical signal (Rx)", r.ChannelOutput, r.Setup.Link.SamplePeriod())
	},
	PlotSpectrumSource: func(r *Result) (*Plot, error) {
		return spectrumPlot("Carrier spectrum", r.Carrier, r.Setup)
	},
	PlotSpectrumTx: func(r *Result) (*Plot, error) {
		return spectrumPlot("Optical spectrum (Tx)", r.Modulated, r.Setup)
	},
	PlotSpectrumRx: func(r *Result) (*Plot, error) {
		return spectrumPlot("Optical spectrum (Rx)", r.ChannelOutput, r.Setup)
	},
	PlotConstellationTx: func(r *Result) (*Plot, error) {
		return constellationPlot("Constellation (Tx)", r.SymbolsTx)
	},
	PlotConstellationRx: func(r *Result) (*Plot, error) {
		return constellationPlot("Constellation (Rx)", r.SymbolsRx)
	},
	PlotEyeTx: func(r *Result) (*Plot, error) {
		return eyePlot("Eye diagram (Tx)", r.Electrical, r.Setup.Link.SamplesPerSymbol)
	},
	PlotEyeRx: func(r *Result) (*Plot, error) {
		return eyePlot("Eye diagram (Rx)", r.Detected, r.Setup.Link.SamplesPerSymbol)
	},
}

func requireSignal(title string, x []complex128) error {
	if len(x) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSignal, title)
	}
	return nil
}

func traceWindow(n int) (int, int) {
	lo := 0
	if n > traceStart {
		lo = traceStart
	}
	return lo, min(n, traceEnd)
}

// timeUnits picks a display unit for sample period ts.
func timeUnits(ts float64) (float64, string) {
	switch {
	case ts <= 1e-9:
		return 1e9, "ns"
	case ts <= 1e-6:
		return 1e6, "us"
	case ts <= 1e-3:
		return 1e3, "ms"
	default:
		return 1, "s"
	}
}

func electricalPlot(title string, x []complex128, ts float64) (*Plot, error) {
	if err := requireSignal(title, x); err != nil {
		return nil, err
	}
	lo, hi := traceWindow(len(x))
	scale, unit := timeUnits(ts)
	t := make([]float64, hi-lo)
	re := make([]float64, hi-lo)
	im := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		t[i-lo] = float64(i) * ts * scale
		re[i-lo], im[i-lo] = real(x[i]), imag(x[i])
	}
	return &Plot{
		Title:  title,
		XLabel: "Time [" + unit + "]",
		YLabel: "Amplitude [a.u.]",
		Series: []Series{{Name: "real", X: t, Y: re}, {Name: "imag", X: t, Y: im}},
	}, nil
}

func opticalPlot(title string, x []complex128, ts float64) (*Plot, error) {
	if err := requireSignal(title, x); err != nil {
		return nil, err
	}
	lo, hi := traceWindow(len(x))
	scale, unit := timeUnits(ts)
	t := make([]float64, hi-lo)
	power := make([]float64, hi-lo)
	phase := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		t[i-lo] = float64(i) * ts * scale
		power[i-lo] = real(x[i])*real(x[i]) + imag(x[i])*imag(x[i])
		phase[i-lo] = cmplx.Phase(x[i]) * 180 / math.Pi
	}
	return &Plot{
		Title:  title,
		XLabel: "Time [" + unit + "]",
		YLabel: "Power [W], phase [deg]",
		Series: []Series{{Name: "power", X: t, Y: power}, {Name: "phase", X: t, Y: phase}},
	}, nil
}

// spectrumPlot shows the magnitude spectrum around the carrier, decimated by
// keeping the peak of every block.
func spectrumPlot(title string, x []complex128, setup Setup) (*Plot, error) {
	if err := requireSignal(title, x); err != nil {
		return nil, err
	}
	freqs, mag := dsp.MagnitudeSpectrum(x, setup.Link.SampleRate())
	fc := setup.Source.FrequencyHz
	step := (len(freqs) + maxSpectrumPoints - 1) / maxSpectrumPoints

	var thz, nm, dbm []float64
	for start := 0; start < len(freqs); start += step {
		end := min(start+step, len(freqs))
		j := start + floats.MaxIdx(mag[start:end])
		f := freqs[j] + fc
		level := 10 * math.Log10(1e3*mag[j]*mag[j])
		if level < spectrumFloorDBm || math.IsNaN(level) {
			level = spectrumFloorDBm
		}
		thz = append(thz, f/1e12)
		nm = append(nm, dsp.SpeedOfLight/f*1e9)
		dbm = append(dbm, level)
	}
	return &Plot{
		Title:  title,
		XLabel: "Frequency [THz]",
		YLabel: "Power [dBm]",
		Series: []Series{{Name: "frequency", X: thz, Y: dbm}, {Name: "wavelength", X: nm, Y: dbm}},
	}, nil
}

func constellationPlot(title string, symbols []complex128) (*Plot, error) {
	if err := requireSignal(title, symbols); err != nil {
		return nil, err
	}
	s := dsp.Normalize(symbols)
	n := min(len(s), maxScatterPoints)
	re := make([]float64, len(s))
	im := make([]float64, len(s))
	for i, v := range s {
		re[i], im[i] = real(v), imag(v)
	}
	r := constellationSpan * math.Sqrt(dsp.SignalPower(s))
	if r == 0 {
		r = constellationSpan
	}
	return &Plot{
		Title:  title,
		XLabel: "In-phase",
		YLabel: "Quadrature",
		Series: []Series{{Name: "symbols", X: re[:n], Y: im[:n]}},
		Images: []Image{{
			Name: "density",
			Data: histogram2D(re, im, -r, r, -r, r, constellationBins, constellationBins),
			XMin: -r, XMax: r, YMin: -r, YMax: r,
		}},
	}, nil
}

// eyePlot folds the interpolated waveform over eyePeriods symbol periods and
// renders a density per quadrature.
func eyePlot(title string, x []complex128, sps int) (*Plot, error) {
	if err := requireSignal(title, x); err != nil {
		return nil, err
	}
	if len(x) <= 2*eyeDiscard+1 {
		return nil, fmt.Errorf("%w: %s needs more than %d samples", ErrNoSignal, title, 2*eyeDiscard+1)
	}
	window := x[eyeDiscard : len(x)-eyeDiscard]
	window = window[:min(len(window), eyeMaxSymbols*sps)]

	re := make([]float64, len(window))
	im := make([]float64, len(window))
	complexValued := false
	for i, v := range window {
		re[i], im[i] = real(v), imag(v)
		if imag(v) != 0 {
			complexValued = true
		}
	}

	p := &Plot{Title: title, XLabel: "Time [symbol periods]", YLabel: "Amplitude [a.u.]"}
	img, err := eyeImage("in-phase", re, sps)
	if err != nil {
		return nil, err
	}
	p.Images = append(p.Images, img)
	if complexValued {
		img, err := eyeImage("quadrature", im, sps)
		if err != nil {
			return nil, err
		}
		p.Images = append(p.Images, img)
	}
	return p, nil
}

func eyeImage(name string, y []float64, sps int) (Image, error) {
	xs := make([]float64, len(y))
	for i := range xs {
		xs[i] = float64(i)
	}
	var spline interp.NaturalCubic
	if err := spline.Fit(xs, y); err != nil {
		return Image{}, capabilityError("eye interpolation", err)
	}

	m := (len(y)-1)*eyeUpsample + 1
	period := float64(eyePeriods * sps)
	tAxis := make([]float64, m)
	values := make([]float64, m)
	for k := range values {
		t := float64(k) / eyeUpsample
		values[k] = spline.Predict(t)
		tAxis[k] = math.Mod(t, period) / float64(sps)
	}

	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo, hi = lo-0.1*span, hi+0.1*span
	return Image{
		Name: name,
		Data: histogram2D(tAxis, values, 0, eyePeriods, lo, hi, eyeTimeBins, eyeAmplitudeBins),
		XMin: 0, XMax: eyePeriods, YMin: lo, YMax: hi,
	}, nil
}

// histogram2D counts (xs[i], ys[i]) into ny rows by nx columns; points
// outside the range are dropped.
func histogram2D(xs, ys []float64, xmin, xmax, ymin, ymax float64, nx, ny int) *mat.Dense {
	h := mat.NewDense(ny, nx, nil)
	dx := (xmax - xmin) / float64(nx)
	dy := (ymax - ymin) / float64(ny)
	for i := range xs {
		c := int((xs[i] - xmin) / dx)
		r := int((ys[i] - ymin) / dy)
		if xs[i] == xmax {
			c = nx - 1
		}
		if ys[i] == ymax {
			r = ny - 1
		}
		if c < 0 || c >= nx || r < 0 || r >= ny || xs[i] < xmin || ys[i] < ymin {
			continue
		}
		h.Set(r, c, h.At(r, c)+1)
	}
	return h
}
