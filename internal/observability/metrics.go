// Package observability exposes Prometheus metrics and OpenTelemetry tracing
// for simulation runs and the HTTP surface.
package observability

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kacperjurak/gooptcore"
)

// SimulationCollector records simulation runs and HTTP requests. It
// satisfies gooptcore.RunRecorder.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	StageDuration  *prometheus.HistogramVec
	LastBER        prometheus.Gauge
	LastSNR        prometheus.Gauge
	LastRxPowerDBm prometheus.Gauge

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

var _ gooptcore.RunRecorder = (*SimulationCollector)(nil)

// NewSimulationCollector registers the metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gooptsim_runs_total",
		Help: "Simulation runs, labeled by outcome (ok, aborted, invalid, error).",
	}, []string{"outcome"}), "gooptsim_runs_total")
	if err != nil {
		return nil, err
	}

	runDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gooptsim_run_duration_seconds",
		Help:    "Wall time of a full simulation run.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}), "gooptsim_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	stageDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gooptsim_stage_duration_seconds",
		Help:    "Wall time of each pipeline stage.",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stage"}), "gooptsim_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	lastBER, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gooptsim_last_ber",
		Help: "Bit error rate of the last completed run.",
	}), "gooptsim_last_ber")
	if err != nil {
		return nil, err
	}
	lastSNR, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gooptsim_last_snr_db",
		Help: "SNR in dB of the last completed run.",
	}), "gooptsim_last_snr_db")
	if err != nil {
		return nil, err
	}
	lastRx, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gooptsim_last_rx_power_dbm",
		Help: "Received optical power in dBm of the last completed run.",
	}), "gooptsim_last_rx_power_dbm")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gooptsim_http_requests_total",
		Help: "HTTP requests, labeled by method, path and status code.",
	}, []string{"method", "path", "code"}), "gooptsim_http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gooptsim_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"method", "path"}), "gooptsim_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:       gatherer,
		Runs:           runs,
		RunDuration:    runDuration,
		StageDuration:  stageDuration,
		LastBER:        lastBER,
		LastSNR:        lastSNR,
		LastRxPowerDBm: lastRx,
		HTTPRequests:   httpRequests,
		HTTPDurations:  httpDurations,
	}, nil
}

func (c *SimulationCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *SimulationCollector) ObserveRun(outcome string, d time.Duration, m *gooptcore.Metrics) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(outcome).Inc()
	if outcome == gooptcore.OutcomeInvalid {
		return
	}
	c.RunDuration.Observe(d.Seconds())
	if m == nil {
		return
	}
	c.LastBER.Set(m.BER)
	// a perfect link reports +Inf SNR; keep the gauge finite
	if !math.IsInf(m.SNRdB, 0) && !math.IsNaN(m.SNRdB) {
		c.LastSNR.Set(m.SNRdB)
	}
	c.LastRxPowerDBm.Set(m.RxPowerDBm)
}

// ObserveHTTP records one handled request.
func (c *SimulationCollector) ObserveHTTP(method, path string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
