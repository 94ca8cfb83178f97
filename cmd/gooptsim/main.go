package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/internal/observability"
	"github.com/kacperjurak/gooptcore/pkg/config"
	"github.com/kacperjurak/gooptcore/pkg/models"
	"github.com/kacperjurak/gooptcore/pkg/server"
)

// Exit codes.
const (
	exitOK = iota
	exitFailure
	exitConfiguration
	exitPowerBudget
)

func main() {
	cfg := config.DefaultConfig()
	srvCfg := config.DefaultServerConfig()
	var plotKind string

	flag.StringVar(&cfg.ScenarioFile, "f", "", "Scenario file (YAML or JSON)")
	flag.StringVar(&cfg.Example, "example", cfg.Example, "Built-in example used when -f is empty (ook, qpsk)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed, overrides the scenario seed when set")
	flag.StringVar(&plotKind, "plot", "", "Print one plot of the run as JSON (e.g. eyeRx)")
	flag.BoolVar(&cfg.HTTPServer, "http", false, "Start HTTP server instead of a single run")
	flag.StringVar(&srvCfg.Port, "port", srvCfg.Port, "HTTP server port")
	flag.StringVar(&srvCfg.WebhookURL, "webhook", srvCfg.WebhookURL, "Webhook URL notified after each run")
	flag.BoolVar(&cfg.EnableProfiling, "profile", false, "Enable pprof profiling")
	flag.BoolVar(&cfg.Quiet, "q", false, "Quiet mode")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.Parse()

	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})
	srvCfg.EnableProfiling = cfg.EnableProfiling

	os.Exit(run(cfg, srvCfg, plotKind, seedSet))
}

func run(cfg *config.Config, srvCfg *config.ServerConfig, plotKind string, seedSet bool) int {
	level := cfg.LogLevel
	if cfg.Quiet {
		level = "error"
	}
	log := logging.New(logging.Config{Level: level, Format: cfg.LogFormat, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg.Tracing.Output = os.Stderr
	tp, shutdownTracing, err := observability.InitTracing(ctx, srvCfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return exitFailure
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if cfg.HTTPServer {
		if err := serve(ctx, srvCfg, log, tp); err != nil {
			log.Error(ctx, "server failed", logging.Err(err))
			return exitFailure
		}
		return exitOK
	}

	sc, err := loadScenario(cfg)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.Err(err))
		return exitConfiguration
	}
	if seedSet {
		sc.General.Seed = &cfg.Seed
	}
	setup, err := sc.Setup()
	if err != nil {
		log.Error(ctx, "invalid scenario", logging.Err(err))
		return exitConfiguration
	}

	sim := gooptcore.NewSimulator(gooptcore.WithLogger(log), gooptcore.WithTracerProvider(tp))
	res, simErr := sim.Simulate(ctx, setup)
	if err := report(os.Stdout, res, simErr, plotKind); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		switch {
		case errors.Is(err, gooptcore.ErrPowerBudget):
			return exitPowerBudget
		case errors.Is(err, gooptcore.ErrConfiguration):
			return exitConfiguration
		default:
			return exitFailure
		}
	}
	return exitOK
}

func loadScenario(cfg *config.Config) (*config.Scenario, error) {
	if cfg.ScenarioFile != "" {
		return config.LoadScenario(cfg.ScenarioFile)
	}
	return config.Example(cfg.Example)
}

// report prints the run summary, or the requested plot, as JSON. It returns
// simErr once whatever the run produced has been printed.
func report(w io.Writer, res *gooptcore.Result, simErr error, plotKind string) error {
	if res == nil {
		return simErr
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if plotKind != "" {
		kind, err := gooptcore.ParsePlotKind(plotKind)
		if err != nil {
			return err
		}
		p, err := res.Plot(kind)
		if err != nil {
			return errors.Join(simErr, err)
		}
		if err := enc.Encode(models.NewPlotResponse(res.ID, p)); err != nil {
			return err
		}
		return simErr
	}

	if err := enc.Encode(models.NewSimulateResponse(res)); err != nil {
		return err
	}
	if m := res.Metrics; m != nil {
		fmt.Fprintf(w, "BER=%.3e SER=%.3e SNR=%.2f dB Throughput=%.3g bit/s Tx=%.2f dBm Rx=%.2f dBm\n",
			m.BER, m.SER, m.SNRdB, m.Throughput, m.TxPowerDBm, m.RxPowerDBm)
	}
	return simErr
}

func serve(ctx context.Context, srvCfg *config.ServerConfig, log logging.Logger, tp trace.TracerProvider) error {
	srv, err := server.New(server.Options{ServerConfig: srvCfg, Logger: log, TracerProvider: tp})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
