package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/pkg/config"
	"github.com/kacperjurak/gooptcore/pkg/models"
)

func TestLoadScenarioExample(t *testing.T) {
	cfg := config.DefaultConfig()
	sc, err := loadScenario(cfg)
	require.NoError(t, err)
	assert.Equal(t, "pam", sc.General.Format)

	cfg.Example = "nope"
	_, err = loadScenario(cfg)
	assert.ErrorIs(t, err, gooptcore.ErrConfiguration)
}

func TestReportSummary(t *testing.T) {
	sc, err := config.Example("qpsk")
	require.NoError(t, err)
	setup, err := sc.Setup()
	require.NoError(t, err)

	res := &gooptcore.Result{
		ID:      "run-1",
		Setup:   setup,
		Metrics: &gooptcore.Metrics{BER: 1e-3, SER: 2e-3, SNRdB: 12, Throughput: 50e9},
	}
	var buf bytes.Buffer
	require.NoError(t, report(&buf, res, nil, ""))

	out := buf.String()
	var resp models.SimulateResponse
	require.NoError(t, json.NewDecoder(strings.NewReader(out)).Decode(&resp))
	assert.Equal(t, "run-1", resp.ID)
	assert.Contains(t, out, "BER=1.000e-03")
}

func TestReportAbort(t *testing.T) {
	abort := &gooptcore.PowerBudgetError{Position: gooptcore.PositionStart, PowerDBm: -40, SensitivityDBm: -30}
	res := &gooptcore.Result{ID: "run-2", Abort: abort}

	var buf bytes.Buffer
	err := report(&buf, res, abort, "")
	assert.ErrorIs(t, err, gooptcore.ErrPowerBudget)
	assert.Contains(t, buf.String(), `"aborted": true`)

	buf.Reset()
	err = report(&buf, res, abort, "eyeRx")
	assert.ErrorIs(t, err, gooptcore.ErrNoSignal)
	assert.ErrorIs(t, err, gooptcore.ErrPowerBudget)
}

func TestReportNilResult(t *testing.T) {
	var buf bytes.Buffer
	err := report(&buf, nil, gooptcore.ErrCapability, "")
	assert.ErrorIs(t, err, gooptcore.ErrCapability)
	assert.Zero(t, buf.Len())
}
