package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/pkg/config"
	"github.com/kacperjurak/gooptcore/pkg/models"
)

// SimulateHandler runs a link simulation synchronously and replaces the
// current result.
type SimulateHandler struct {
	processor Processor
	log       logging.Logger
}

// NewSimulateHandler creates a new simulate handler
func NewSimulateHandler(p Processor, log logging.Logger) *SimulateHandler {
	if log == nil {
		log = logging.Noop()
	}
	return &SimulateHandler{processor: p, log: log}
}

// ServeHTTP implements the http.Handler interface
func (h *SimulateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !preflight(w, r, http.MethodPost) {
		return
	}
	ctx, log := logging.WithRequestLogger(r.Context(), h.log)

	var req models.SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid JSON format: %w", err), http.StatusBadRequest)
		return
	}

	setup, err := requestSetup(req)
	if err != nil {
		log.Warn(ctx, "rejected simulation request", logging.Err(err))
		writeError(w, err, statusFor(err))
		return
	}

	log.Info(ctx, "simulation requested",
		logging.String("format", setup.Link.Format.String()),
		logging.Int("order", setup.Link.Order),
	)

	res, err := h.processor.Process(ctx, setup)
	var abort *gooptcore.PowerBudgetError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, models.NewSimulateResponse(res))
	case errors.As(err, &abort) && res != nil:
		writeJSON(w, http.StatusUnprocessableEntity, models.NewSimulateResponse(res))
	default:
		log.Error(ctx, "simulation failed", logging.Err(err))
		writeError(w, err, statusFor(err))
	}
}

func requestSetup(req models.SimulateRequest) (gooptcore.Setup, error) {
	sc := req.Scenario
	if sc == nil {
		if req.Example == "" {
			return gooptcore.Setup{}, &gooptcore.ConfigurationError{Field: "request", Reason: "either scenario or example is required"}
		}
		var err error
		if sc, err = config.Example(req.Example); err != nil {
			return gooptcore.Setup{}, err
		}
	}
	if req.Seed != nil {
		seed := *req.Seed
		sc.General.Seed = &seed
	}
	return sc.Setup()
}
