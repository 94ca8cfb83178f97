package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/processing"
	"github.com/kacperjurak/gooptcore/pkg/models"
)

// maxBodyBytes bounds a scenario upload.
const maxBodyBytes = 1 << 20

// Processor is the subset of processing.LinkProcessor the handlers use.
type Processor interface {
	Process(ctx context.Context, setup gooptcore.Setup) (*gooptcore.Result, error)
	Plot(kind gooptcore.PlotKind) (*gooptcore.Result, *gooptcore.Plot, error)
	Metrics() (*gooptcore.Result, *gooptcore.Metrics, error)
}

// setupCORS sets up CORS headers
func setupCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// preflight answers OPTIONS and rejects other methods than method.
// It reports whether the handler should continue.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	setupCORS(w, method)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != method {
		writeError(w, errors.New("method not allowed"), http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gooptcore.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, gooptcore.ErrPowerBudget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, processing.ErrNoResult), errors.Is(err, gooptcore.ErrNoSignal):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, statusCode int) {
	body := models.ErrorResponse{Error: err.Error()}
	var cfgErr *gooptcore.ConfigurationError
	if errors.As(err, &cfgErr) {
		body.Field = cfgErr.Field
	}
	writeJSON(w, statusCode, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
