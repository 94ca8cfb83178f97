package observability

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gooptcore"
)

func TestObserveRunRecordsOutcomeAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	c.ObserveStage(gooptcore.StageChannel, 250*time.Millisecond)
	c.ObserveRun(gooptcore.OutcomeOK, 2*time.Second, &gooptcore.Metrics{BER: 1e-4, SNRdB: 12.5, RxPowerDBm: -7})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues(gooptcore.OutcomeOK)))
	assert.Equal(t, 1e-4, testutil.ToFloat64(c.LastBER))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.LastSNR))
	assert.Equal(t, -7.0, testutil.ToFloat64(c.LastRxPowerDBm))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "gooptsim_stage_duration_seconds", map[string]string{"stage": "channel"}))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "gooptsim_run_duration_seconds", nil))
}

func TestObserveRunKeepsSNRFinite(t *testing.T) {
	c, err := NewSimulationCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ObserveRun(gooptcore.OutcomeOK, time.Second, &gooptcore.Metrics{SNRdB: 20})
	c.ObserveRun(gooptcore.OutcomeOK, time.Second, &gooptcore.Metrics{SNRdB: math.Inf(1)})
	assert.Equal(t, 20.0, testutil.ToFloat64(c.LastSNR))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Runs.WithLabelValues(gooptcore.OutcomeOK)))
}

func TestObserveAbortedAndInvalidRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	c.ObserveRun(gooptcore.OutcomeAborted, time.Second, nil)
	c.ObserveRun(gooptcore.OutcomeInvalid, 0, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues(gooptcore.OutcomeAborted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues(gooptcore.OutcomeInvalid)))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "gooptsim_run_duration_seconds", nil))
}

func TestCollectorReusesExistingRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewSimulationCollector(reg)
	require.NoError(t, err)
	b, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	a.ObserveRun(gooptcore.OutcomeOK, time.Second, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Runs.WithLabelValues(gooptcore.OutcomeOK)))
}

func TestMetricsHandlerExposesCollector(t *testing.T) {
	c, err := NewSimulationCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	c.ObserveHTTP(http.MethodPost, "/simulate", http.StatusOK, 3*time.Second)
	c.ObserveRun(gooptcore.OutcomeOK, time.Second, &gooptcore.Metrics{BER: 0.01})

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	for _, metric := range []string{
		"gooptsim_runs_total",
		"gooptsim_last_ber",
		"gooptsim_http_requests_total",
		"gooptsim_http_request_duration_seconds",
	} {
		assert.True(t, strings.Contains(body, metric), "expected %q in /metrics output", metric)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	require.NoError(t, err)
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
