package gooptcore

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

// Run outcomes reported to a RunRecorder.
const (
	OutcomeOK      = "ok"
	OutcomeAborted = "aborted"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Pipeline stage names.
const (
	StageSource    = "source"
	StageCarrier   = "carrier"
	StageModulator = "modulator"
	StageChannel   = "channel"
	StageDetector  = "detector"
	StageRecovery  = "recovery"
	StageMetrics   = "metrics"
)

// RunRecorder receives timing and outcome of every run.
type RunRecorder interface {
	ObserveStage(stage string, d time.Duration)
	ObserveRun(outcome string, d time.Duration, m *Metrics)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, time.Duration)         {}
func (nopRecorder) ObserveRun(string, time.Duration, *Metrics) {}

// Simulator runs the link pipeline. A Simulator holds no per-run state and
// each Simulate call reseeds its generator from the link seed.
type Simulator struct {
	source    InformationSource
	carrier   CarrierSource
	fiber     FiberChannel
	detector  Detector
	estimator ErrorEstimator

	log      logging.Logger
	tracer   trace.Tracer
	recorder RunRecorder
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the run logger; nil is ignored.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracerProvider traces each run and its stages with tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Simulator) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRecorder receives stage and run timings.
func WithRecorder(r RunRecorder) Option {
	return func(s *Simulator) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLaserModel replaces the noisy carrier model.
func WithLaserModel(m LaserModel) Option {
	return func(s *Simulator) { s.carrier.laser = m }
}

// WithFiberChannel replaces the dispersive fiber model.
func WithFiberChannel(f FiberChannel) Option {
	return func(s *Simulator) { s.fiber = f }
}

// WithReceiver replaces the photodiode and coherent frontend.
func WithReceiver(r Receiver) Option {
	return func(s *Simulator) { s.detector.receiver = r }
}

// WithErrorEstimator replaces the BER/SER/SNR estimator.
func WithErrorEstimator(e ErrorEstimator) Option {
	return func(s *Simulator) { s.estimator = e }
}

// withSymbolCount shrinks the record for in-package tests.
func withSymbolCount(n int) Option {
	return func(s *Simulator) { s.source.symbols = n }
}

const tracerName = "github.com/kacperjurak/gooptcore"

// NewSimulator returns a Simulator backed by the pkg/dsp models.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{
		source:    NewInformationSource(),
		carrier:   CarrierSource{laser: dsp.BasicLaser{}},
		fiber:     dsp.LinearFiber{},
		detector:  Detector{receiver: dsp.OpticalFrontend{}},
		estimator: dsp.FastBER{},
		log:       logging.Noop(),
		tracer:    otel.Tracer(tracerName),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate validates setup and runs the whole pipeline synchronously.
//
// A configuration problem returns a nil Result. When an amplifier power gate
// fails the partial Result is returned together with its *PowerBudgetError;
// detection, recovery and metrics are skipped.
func (s *Simulator) Simulate(ctx context.Context, setup Setup) (*Result, error) {
	if err := setup.Validate(); err != nil {
		s.recorder.ObserveRun(OutcomeInvalid, 0, nil)
		s.log.Warn(ctx, "rejected link configuration", logging.Err(err))
		return nil, err
	}

	start := time.Now()
	res := &Result{ID: uuid.NewString(), Setup: setup, CreatedAt: start}
	log := s.log.With(logging.String("run_id", res.ID))

	ctx, span := s.tracer.Start(ctx, "gooptcore.Simulate", trace.WithAttributes(
		attribute.String("run.id", res.ID),
		attribute.String("link.format", setup.Link.Format.String()),
		attribute.Int("link.order", setup.Link.Order),
		attribute.Float64("link.symbol_rate", setup.Link.SymbolRate),
		attribute.String("modulator", setup.Modulator.Type.String()),
		attribute.String("detector", setup.Detector.Type.String()),
		attribute.Bool("amplifier.included", setup.Amplifier.Included),
	))
	defer span.End()

	log.Info(ctx, "simulation started",
		logging.String("format", setup.Link.Format.String()),
		logging.Int("order", setup.Link.Order),
		logging.Float64("symbol_rate", setup.Link.SymbolRate),
		logging.Int("sps", setup.Link.SamplesPerSymbol),
	)

	rng := rand.New(rand.NewPCG(uint64(setup.Link.Seed), 0))
	err := s.run(ctx, log, res, rng)
	res.Duration = time.Since(start)

	var abort *PowerBudgetError
	switch {
	case err == nil:
		s.recorder.ObserveRun(OutcomeOK, res.Duration, res.Metrics)
		log.Info(ctx, "simulation finished",
			logging.Float64("ber", res.Metrics.BER),
			logging.Float64("ser", res.Metrics.SER),
			logging.Float64("snr_db", res.Metrics.SNRdB),
			logging.Float64("rx_power_dbm", res.Metrics.RxPowerDBm),
			logging.Any("duration", res.Duration),
		)
		return res, nil
	case errors.As(err, &abort):
		s.recorder.ObserveRun(OutcomeAborted, res.Duration, nil)
		span.SetAttributes(attribute.Bool("aborted", true))
		span.SetStatus(codes.Error, abort.Error())
		log.Warn(ctx, "simulation aborted",
			logging.String("position", abort.Position.String()),
			logging.Float64("power_dbm", abort.PowerDBm),
			logging.Float64("sensitivity_dbm", abort.SensitivityDBm),
		)
		return res, abort
	default:
		s.recorder.ObserveRun(OutcomeError, res.Duration, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "simulation failed", logging.Err(err))
		return nil, err
	}
}

func (s *Simulator) run(ctx context.Context, log logging.Logger, res *Result, rng *rand.Rand) error {
	setup := res.Setup
	fs := setup.Link.SampleRate()

	if err := s.stage(ctx, log, StageSource, func() error {
		tx, err := s.source.Generate(setup.Link, rng)
		res.Bits, res.SymbolsTx, res.Electrical = tx.Bits, tx.Symbols, tx.Electrical
		return err
	}); err != nil {
		return err
	}

	if err := s.stage(ctx, log, StageCarrier, func() (err error) {
		res.Carrier, err = s.carrier.Generate(setup.Source, fs, len(res.Electrical), rng)
		return err
	}); err != nil {
		return err
	}

	if err := s.stage(ctx, log, StageModulator, func() (err error) {
		res.Modulated, err = Modulate(setup.Modulator.Type, setup.Link, res.Electrical, res.Carrier)
		return err
	}); err != nil {
		return err
	}

	if err := s.stage(ctx, log, StageChannel, func() error {
		prop := &ChannelPropagator{
			Channel:         setup.Channel,
			Amplifier:       setup.Amplifier,
			SampleRate:      fs,
			CenterFrequency: setup.Source.FrequencyHz,
			fiber:           s.fiber,
			rng:             rng,
		}
		out, err := prop.Propagate(res.Modulated)
		if err != nil {
			return err
		}
		res.ChannelOutput, res.Abort = out.Output, out.Abort
		return nil
	}); err != nil {
		return err
	}
	if res.Abort != nil {
		return res.Abort
	}

	if err := s.stage(ctx, log, StageDetector, func() (err error) {
		res.Detected, err = s.detector.Detect(setup.Detector, res.ChannelOutput, res.Carrier, fs, rng)
		return err
	}); err != nil {
		return err
	}

	if err := s.stage(ctx, log, StageRecovery, func() (err error) {
		res.SymbolsRx, res.BitsRx, err = RecoverSymbols(res.Detected, setup.Link)
		return err
	}); err != nil {
		return err
	}

	return s.stage(ctx, log, StageMetrics, func() error {
		m, err := MetricsCalculator{Estimator: s.estimator}.Compute(res)
		if err != nil {
			return err
		}
		res.Metrics = &m
		return nil
	})
}

func (s *Simulator) stage(ctx context.Context, log logging.Logger, name string, fn func() error) error {
	_, span := s.tracer.Start(ctx, "stage."+name)
	defer span.End()

	start := time.Now()
	err := fn()
	d := time.Since(start)
	s.recorder.ObserveStage(name, d)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	log.Debug(ctx, "stage finished", logging.String("stage", name), logging.Any("duration", d))
	return nil
}
