package processing

import (
	"context"
	"errors"
	"sync"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/logging"
)

// ErrNoResult is returned before the first run has produced a result.
var ErrNoResult = errors.New("no simulation result available")

// Runner executes one link simulation.
type Runner interface {
	Simulate(ctx context.Context, setup gooptcore.Setup) (*gooptcore.Result, error)
}

// Notifier is told about every result that becomes current.
type Notifier interface {
	Notify(ctx context.Context, res *gooptcore.Result)
}

// LinkProcessor owns the single current result. Runs are serialized and each
// produced result, aborted or not, replaces the previous one together with its
// plot cache. A rejected configuration leaves the current result untouched.
type LinkProcessor struct {
	runner   Runner
	notifier Notifier
	log      logging.Logger

	runMu   sync.Mutex
	mu      sync.RWMutex
	current *gooptcore.Result
}

// NewLinkProcessor creates a new link processor. notifier may be nil.
func NewLinkProcessor(runner Runner, notifier Notifier, log logging.Logger) *LinkProcessor {
	if log == nil {
		log = logging.Noop()
	}
	return &LinkProcessor{runner: runner, notifier: notifier, log: log}
}

// Process runs setup to completion. On a power-budget abort the partial
// result is stored and returned together with the *PowerBudgetError.
func (p *LinkProcessor) Process(ctx context.Context, setup gooptcore.Setup) (*gooptcore.Result, error) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	res, err := p.runner.Simulate(ctx, setup)
	if res == nil {
		if err == nil {
			err = gooptcore.ErrNoSignal
		}
		return nil, err
	}

	p.mu.Lock()
	p.current = res
	p.mu.Unlock()

	p.log.Debug(ctx, "current result replaced",
		logging.String("run_id", res.ID),
		logging.Bool("aborted", res.Aborted()),
	)
	if p.notifier != nil {
		p.notifier.Notify(ctx, res)
	}
	return res, err
}

// Current returns the latest result.
func (p *LinkProcessor) Current() (*gooptcore.Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil, ErrNoResult
	}
	return p.current, nil
}

// Plot projects the current result.
func (p *LinkProcessor) Plot(kind gooptcore.PlotKind) (*gooptcore.Result, *gooptcore.Plot, error) {
	res, err := p.Current()
	if err != nil {
		return nil, nil, err
	}
	plot, err := res.Plot(kind)
	if err != nil {
		return res, nil, err
	}
	return res, plot, nil
}

// Metrics returns the metrics of the current result, or its abort error.
func (p *LinkProcessor) Metrics() (*gooptcore.Result, *gooptcore.Metrics, error) {
	res, err := p.Current()
	if err != nil {
		return nil, nil, err
	}
	if res.Abort != nil {
		return res, nil, res.Abort
	}
	if res.Metrics == nil {
		return res, nil, gooptcore.ErrNoSignal
	}
	return res, res.Metrics, nil
}
