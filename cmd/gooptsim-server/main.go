package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/internal/observability"
	"github.com/kacperjurak/gooptcore/pkg/config"
	"github.com/kacperjurak/gooptcore/pkg/server"
)

func main() {
	cfg, srvCfg := parseFlags()

	log := newLogger(cfg, explicitlySet(flag.CommandLine, "log-level", "log-format"))
	ctx := context.Background()

	tp, shutdownTracing, err := observability.InitTracing(ctx, srvCfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}

	srv, err := server.New(server.Options{
		ServerConfig:   srvCfg,
		Logger:         log,
		TracerProvider: tp,
	})
	if err != nil {
		log.Error(ctx, "failed to create server", logging.Err(err))
		os.Exit(1)
	}

	done := setupGracefulShutdown(srv, srvCfg, log, shutdownTracing)

	if err := srv.Start(); err != nil {
		log.Error(ctx, "failed to start server", logging.Err(err))
		os.Exit(1)
	}
	<-done
}

// parseFlags parses command line flags and returns configuration
func parseFlags() (*config.Config, *config.ServerConfig) {
	cfg := config.DefaultConfig()
	srvCfg := config.DefaultServerConfig()

	flag.StringVar(&srvCfg.Port, "port", srvCfg.Port, "HTTP server port")
	flag.StringVar(&srvCfg.WebhookURL, "webhook", srvCfg.WebhookURL, "Webhook URL notified after each run")
	flag.BoolVar(&srvCfg.EnableMetrics, "metrics", srvCfg.EnableMetrics, "Expose Prometheus metrics on /metrics")
	flag.BoolVar(&srvCfg.EnableProfiling, "profile", srvCfg.EnableProfiling, "Enable pprof profiling")
	flag.StringVar(&srvCfg.ProfilingPort, "profile-port", srvCfg.ProfilingPort, "pprof server port")
	flag.DurationVar(&srvCfg.ShutdownTimeout, "shutdown-timeout", srvCfg.ShutdownTimeout, "Graceful shutdown timeout")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")

	flag.Parse()

	return cfg, srvCfg
}

// newLogger honours LOG_LEVEL and LOG_FORMAT unless a -log-* flag was given.
func newLogger(cfg *config.Config, fromFlags bool) logging.Logger {
	if !fromFlags {
		return logging.NewFromEnv()
	}
	return logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

func explicitlySet(fs *flag.FlagSet, names ...string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				set = true
			}
		}
	})
	return set
}

// setupGracefulShutdown stops the server on SIGINT/SIGTERM. The returned
// channel is closed once shutdown has completed.
func setupGracefulShutdown(srv *server.Server, srvCfg *config.ServerConfig, log logging.Logger, shutdownTracing func(context.Context) error) <-chan struct{} {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-c
		ctx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
		defer cancel()

		log.Info(ctx, "received shutdown signal", logging.String("signal", sig.String()))
		if err := srv.Shutdown(ctx); err != nil {
			log.Error(ctx, "error during shutdown", logging.Err(err))
		}
		observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
	}()

	return done
}
