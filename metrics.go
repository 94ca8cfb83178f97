package gooptcore

import (
	"fmt"

	"github.com/kacperjurak/gooptcore/pkg/dsp"
)

var bitsPerSymbol = map[int]int{
	2:   1,
	4:   2,
	8:   3,
	16:  4,
	32:  5,
	64:  6,
	128: 7,
	256: 8,
}

// Throughput returns the line rate in bit/s for symbol rate rs and order.
func Throughput(rs float64, order int) (float64, error) {
	k, ok := bitsPerSymbol[order]
	if !ok {
		return 0, &ConfigurationError{Field: "link.order", Reason: fmt.Sprintf("no throughput for order %d", order)}
	}
	return rs * float64(k), nil
}

// Metrics are the link-quality figures of one run.
type Metrics struct {
	BER        float64
	SER        float64
	SNRdB      float64
	Throughput float64 // bit/s
	TxPowerW   float64
	TxPowerDBm float64
	RxPowerW   float64
	RxPowerDBm float64
}

// MetricsCalculator derives Metrics from a finished run.
type MetricsCalculator struct {
	Estimator ErrorEstimator
}

// ComputeMetrics uses the default estimator.
func ComputeMetrics(res *Result) (Metrics, error) {
	return MetricsCalculator{Estimator: dsp.FastBER{}}.Compute(res)
}

// Compute fails with the run's *PowerBudgetError when the run was aborted.
func (m MetricsCalculator) Compute(res *Result) (Metrics, error) {
	if res == nil {
		return Metrics{}, ErrNoSignal
	}
	if res.Abort != nil {
		return Metrics{}, res.Abort
	}
	link := res.Setup.Link

	speed, err := Throughput(link.SymbolRate, link.Order)
	if err != nil {
		return Metrics{}, err
	}
	c, err := constellationFor(link)
	if err != nil {
		return Metrics{}, err
	}
	rates, err := m.Estimator.Estimate(res.SymbolsTx, res.SymbolsRx, c)
	if err != nil {
		return Metrics{}, capabilityError("estimate", err)
	}

	tx := dsp.SignalPower(res.Modulated)
	rx := dsp.SignalPower(res.ChannelOutput)
	return Metrics{
		BER:        rates.BER,
		SER:        rates.SER,
		SNRdB:      rates.SNRdB,
		Throughput: speed,
		TxPowerW:   tx,
		TxPowerDBm: dsp.WattsToDBm(tx),
		RxPowerW:   rx,
		RxPowerDBm: dsp.WattsToDBm(rx),
	}, nil
}
