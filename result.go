package gooptcore

import (
	"sync"
	"time"
)

// Result is the immutable record of one run. On an aborted run
// ChannelOutput and everything downstream of it are nil and Abort is set.
type Result struct {
	ID        string
	Setup     Setup
	CreatedAt time.Time
	Duration  time.Duration

	Bits          []uint8
	SymbolsTx     []complex128
	Electrical    []complex128
	Carrier       []complex128
	Modulated     []complex128
	ChannelOutput []complex128
	Detected      []complex128
	SymbolsRx     []complex128
	BitsRx        []uint8

	Metrics *Metrics
	Abort   *PowerBudgetError

	mu    sync.Mutex
	plots map[PlotKind]*Plot
}

// Aborted reports whether a power gate stopped the run.
func (r *Result) Aborted() bool { return r.Abort != nil }

// Plot returns the projection of kind, building it on first use. Plots are
// never rebuilt for the lifetime of the result.
func (r *Result) Plot(kind PlotKind) (*Plot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.plots[kind]; ok {
		return p, nil
	}
	build, ok := plotBuilders[kind]
	if !ok {
		return nil, &ConfigurationError{Field: "plot.kind", Reason: "unknown plot kind " + kind.String()}
	}
	p, err := build(r)
	if err != nil {
		return nil, err
	}
	p.Kind = kind
	if r.plots == nil {
		r.plots = make(map[PlotKind]*Plot, len(plotBuilders))
	}
	r.plots[kind] = p
	return p, nil
}

func (r *Result) cachedPlots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plots)
}
