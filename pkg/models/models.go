package models

import (
	"math"
	"time"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/pkg/config"
)

// SimulateRequest selects either a full scenario or a built-in example.
// Seed, when set, overrides the scenario seed.
type SimulateRequest struct {
	Scenario *config.Scenario `json:"scenario,omitempty"`
	Example  string           `json:"example,omitempty"`
	Seed     *int64           `json:"seed,omitempty"`
}

// MetricsPayload mirrors gooptcore.Metrics. Non-finite values (an error-free
// run has an infinite SNR) are encoded as null.
type MetricsPayload struct {
	BER        *float64 `json:"ber"`
	SER        *float64 `json:"ser"`
	SNRdB      *float64 `json:"snr_db"`
	Throughput *float64 `json:"throughput_bps"`
	TxPowerW   *float64 `json:"tx_power_w"`
	TxPowerDBm *float64 `json:"tx_power_dbm"`
	RxPowerW   *float64 `json:"rx_power_w"`
	RxPowerDBm *float64 `json:"rx_power_dbm"`
}

// AbortPayload describes a failed amplifier power gate.
type AbortPayload struct {
	Message        string   `json:"message"`
	Position       string   `json:"position"`
	PowerDBm       *float64 `json:"power_dbm"`
	SensitivityDBm *float64 `json:"sensitivity_dbm"`
}

// SimulateResponse summarizes a finished run.
type SimulateResponse struct {
	ID         string           `json:"id"`
	Time       string           `json:"time"`
	DurationMs float64          `json:"duration_ms"`
	Aborted    bool             `json:"aborted"`
	Abort      *AbortPayload    `json:"abort,omitempty"`
	Metrics    *MetricsPayload  `json:"metrics,omitempty"`
	Scenario   *config.Scenario `json:"scenario"`
	Symbols    int              `json:"symbols"`
	Plots      []string         `json:"plots"`
}

// SeriesPayload is a line or scatter trace.
type SeriesPayload struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// ImagePayload is a row-major density image.
type ImagePayload struct {
	Name string      `json:"name"`
	Rows int         `json:"rows"`
	Cols int         `json:"cols"`
	XMin float64     `json:"x_min"`
	XMax float64     `json:"x_max"`
	YMin float64     `json:"y_min"`
	YMax float64     `json:"y_max"`
	Data [][]float64 `json:"data"`
}

// PlotResponse is a renderer-agnostic figure.
type PlotResponse struct {
	ResultID string          `json:"result_id"`
	Kind     string          `json:"kind"`
	Title    string          `json:"title"`
	XLabel   string          `json:"x_label"`
	YLabel   string          `json:"y_label"`
	Series   []SeriesPayload `json:"series"`
	Images   []ImagePayload  `json:"images,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	RequestID string
	Result    *gooptcore.Result
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	ID         string          `json:"id"`
	Time       string          `json:"time"`
	Format     string          `json:"format"`
	Order      int             `json:"order"`
	SymbolRate float64         `json:"symbol_rate"`
	Aborted    bool            `json:"aborted"`
	Abort      *AbortPayload   `json:"abort,omitempty"`
	Metrics    *MetricsPayload `json:"metrics,omitempty"`
}

// NewMetricsPayload returns nil for nil metrics.
func NewMetricsPayload(m *gooptcore.Metrics) *MetricsPayload {
	if m == nil {
		return nil
	}
	return &MetricsPayload{
		BER:        finite(m.BER),
		SER:        finite(m.SER),
		SNRdB:      finite(m.SNRdB),
		Throughput: finite(m.Throughput),
		TxPowerW:   finite(m.TxPowerW),
		TxPowerDBm: finite(m.TxPowerDBm),
		RxPowerW:   finite(m.RxPowerW),
		RxPowerDBm: finite(m.RxPowerDBm),
	}
}

// NewAbortPayload returns nil for nil errors.
func NewAbortPayload(e *gooptcore.PowerBudgetError) *AbortPayload {
	if e == nil {
		return nil
	}
	return &AbortPayload{
		Message:        gooptcore.ErrPowerBudget.Error(),
		Position:       e.Position.String(),
		PowerDBm:       finite(e.PowerDBm),
		SensitivityDBm: finite(e.SensitivityDBm),
	}
}

// NewSimulateResponse converts a run into its JSON summary.
func NewSimulateResponse(res *gooptcore.Result) SimulateResponse {
	kinds := gooptcore.PlotKinds()
	plots := make([]string, len(kinds))
	for i, k := range kinds {
		plots[i] = k.String()
	}
	return SimulateResponse{
		ID:         res.ID,
		Time:       res.CreatedAt.Format(time.RFC3339Nano),
		DurationMs: float64(res.Duration.Nanoseconds()) / 1e6,
		Aborted:    res.Aborted(),
		Abort:      NewAbortPayload(res.Abort),
		Metrics:    NewMetricsPayload(res.Metrics),
		Scenario:   config.FromSetup(res.Setup),
		Symbols:    len(res.SymbolsTx),
		Plots:      plots,
	}
}

// NewPlotResponse flattens a plot. NaN and infinite samples become zero.
func NewPlotResponse(resultID string, p *gooptcore.Plot) PlotResponse {
	out := PlotResponse{
		ResultID: resultID,
		Kind:     p.Kind.String(),
		Title:    p.Title,
		XLabel:   p.XLabel,
		YLabel:   p.YLabel,
		Series:   make([]SeriesPayload, len(p.Series)),
	}
	for i, s := range p.Series {
		out.Series[i] = SeriesPayload{Name: s.Name, X: sanitize(s.X), Y: sanitize(s.Y)}
	}
	for _, img := range p.Images {
		rows, cols := img.Data.Dims()
		data := make([][]float64, rows)
		for r := range data {
			data[r] = sanitize(img.Data.RawRowView(r))
		}
		out.Images = append(out.Images, ImagePayload{
			Name: img.Name,
			Rows: rows,
			Cols: cols,
			XMin: img.XMin,
			XMax: img.XMax,
			YMin: img.YMin,
			YMax: img.YMax,
			Data: data,
		})
	}
	return out
}

// NewWebhookResponse builds the notification payload for a run.
func NewWebhookResponse(item WebhookItem) WebhookResponse {
	res := item.Result
	return WebhookResponse{
		ID:         item.RequestID,
		Time:       time.Now().Format(time.RFC3339Nano),
		Format:     res.Setup.Link.Format.String(),
		Order:      res.Setup.Link.Order,
		SymbolRate: res.Setup.Link.SymbolRate,
		Aborted:    res.Aborted(),
		Abort:      NewAbortPayload(res.Abort),
		Metrics:    NewMetricsPayload(res.Metrics),
	}
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func sanitize(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}
