package handlers

import (
	"errors"
	"net/http"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/pkg/models"
)

// PlotHandler serves GET /plots/{kind} for the current result.
type PlotHandler struct {
	processor Processor
}

func NewPlotHandler(p Processor) *PlotHandler {
	return &PlotHandler{processor: p}
}

func (h *PlotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}

	kind, err := gooptcore.ParsePlotKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	res, plot, err := h.processor.Plot(kind)
	if err != nil {
		writeError(w, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, models.NewPlotResponse(res.ID, plot))
}

// MetricsHandler serves GET /results/metrics for the current result.
type MetricsHandler struct {
	processor Processor
}

func NewMetricsHandler(p Processor) *MetricsHandler {
	return &MetricsHandler{processor: p}
}

type metricsResponse struct {
	ResultID string                 `json:"result_id"`
	Metrics  *models.MetricsPayload `json:"metrics,omitempty"`
	Abort    *models.AbortPayload   `json:"abort,omitempty"`
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodGet) {
		return
	}

	res, m, err := h.processor.Metrics()
	var abort *gooptcore.PowerBudgetError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, metricsResponse{ResultID: res.ID, Metrics: models.NewMetricsPayload(m)})
	case errors.As(err, &abort) && res != nil:
		writeJSON(w, http.StatusUnprocessableEntity, metricsResponse{ResultID: res.ID, Abort: models.NewAbortPayload(abort)})
	default:
		writeError(w, err, statusFor(err))
	}
}
