package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/kacperjurak/gooptcore"
	"github.com/kacperjurak/gooptcore/internal/logging"
	"github.com/kacperjurak/gooptcore/internal/observability"
	"github.com/kacperjurak/gooptcore/internal/processing"
	"github.com/kacperjurak/gooptcore/pkg/config"
	"github.com/kacperjurak/gooptcore/pkg/handlers"
	"github.com/kacperjurak/gooptcore/pkg/profiling"
	"github.com/kacperjurak/gooptcore/pkg/webhook"
)

// Server represents the HTTP server with all dependencies
type Server struct {
	serverConfig  *config.ServerConfig
	log           logging.Logger
	processor     *processing.LinkProcessor
	collector     *observability.SimulationCollector
	webhookClient *webhook.Client
	httpServer    *http.Server
	profiler      *profiling.Profiler
	middleware    *profiling.Middleware
}

// Options holds configuration for creating a new server
type Options struct {
	ServerConfig   *config.ServerConfig
	Logger         logging.Logger
	Registerer     prometheus.Registerer
	TracerProvider trace.TracerProvider
	// Runner overrides the default simulator; used by tests.
	Runner processing.Runner
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.ServerConfig == nil {
		opts.ServerConfig = config.DefaultServerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}

	collector, err := observability.NewSimulationCollector(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	runner := opts.Runner
	if runner == nil {
		runner = gooptcore.NewSimulator(
			gooptcore.WithLogger(opts.Logger),
			gooptcore.WithRecorder(collector),
			gooptcore.WithTracerProvider(opts.TracerProvider),
		)
	}

	s := &Server{
		serverConfig: opts.ServerConfig,
		log:          opts.Logger,
		collector:    collector,
		profiler:     profiling.New(opts.ServerConfig, opts.Logger),
	}
	if opts.ServerConfig.EnableMetrics {
		s.middleware = profiling.NewMiddleware(opts.ServerConfig.EnableProfiling, collector)
	} else {
		s.middleware = profiling.NewMiddleware(opts.ServerConfig.EnableProfiling, nil)
	}

	if opts.ServerConfig.WebhookURL != "" {
		s.webhookClient = webhook.NewClient(opts.ServerConfig.WebhookURL, opts.Logger)
		s.processor = processing.NewLinkProcessor(runner, s.webhookClient, opts.Logger)
	} else {
		s.processor = processing.NewLinkProcessor(runner, nil, opts.Logger)
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures HTTP routes and handlers
func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	simulateHandler := handlers.NewSimulateHandler(s.processor, s.log)
	plotHandler := handlers.NewPlotHandler(s.processor)
	metricsHandler := handlers.NewMetricsHandler(s.processor)

	mux.Handle("/simulate", s.middleware.ProfiledHandler("simulate", simulateHandler))
	mux.Handle("/plots/{kind}", s.middleware.ProfiledHandler("plots", plotHandler))
	mux.Handle("/results/metrics", s.middleware.ProfiledHandler("results-metrics", metricsHandler))
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/debug/gc", s.middleware.ProfiledHandlerFunc("debug-gc", s.gcHandler))
	mux.Handle("/debug/memory", s.middleware.ProfiledHandlerFunc("debug-memory", s.memoryHandler))
	if s.serverConfig.EnableMetrics {
		mux.Handle("/metrics", s.collector.Handler())
	}

	// WriteTimeout covers a full-scale synchronous run.
	s.httpServer = &http.Server{
		Addr:         ":" + s.serverConfig.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Processor returns the link processor backing the routes.
func (s *Server) Processor() *processing.LinkProcessor {
	return s.processor
}

// healthHandler provides a simple health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":     "healthy",
		"timestamp":  time.Now().Format(time.RFC3339),
		"has_result": false,
	}
	if res, err := s.processor.Current(); err == nil {
		status["has_result"] = true
		status["result_id"] = res.ID
	}
	writeJSON(w, status)
}

// gcHandler triggers garbage collection and returns stats
func (s *Server) gcHandler(w http.ResponseWriter, r *http.Request) {
	before, after := profiling.ForceGC()
	s.log.Debug(r.Context(), "forced GC",
		logging.Any("runs_before", before.NumGC),
		logging.Any("runs_after", after.NumGC),
	)
	writeJSON(w, after)
}

// memoryHandler provides current memory statistics
func (s *Server) memoryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, profiling.TakeMemorySnapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until the server stops.
func (s *Server) Serve(ln net.Listener) error {
	ctx := context.Background()
	if err := s.profiler.Start(); err != nil {
		s.log.Error(ctx, "failed to start profiler", logging.Err(err))
	}

	s.log.Info(ctx, "starting HTTP server",
		logging.String("addr", ln.Addr().String()),
		logging.Any("endpoints", []string{"/simulate", "/plots/{kind}", "/results/metrics", "/health", "/metrics", "/debug/gc", "/debug/memory"}),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for an in-flight run
// and pending webhook deliveries.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
	}
	if err := s.profiler.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.webhookClient != nil {
		s.webhookClient.Wait()
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info(ctx, "server shutdown complete")
	return nil
}
