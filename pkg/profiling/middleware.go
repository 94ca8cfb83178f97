package profiling

import (
	"net/http"
	"runtime"
	"strconv"
	"time"
)

// HTTPObserver records request outcomes, e.g. observability.SimulationCollector.
type HTTPObserver interface {
	ObserveHTTP(method, path string, code int, d time.Duration)
}

// Middleware provides profiling and metrics middleware for HTTP handlers
type Middleware struct {
	enableProfiling bool
	observer        HTTPObserver
}

// NewMiddleware creates a new profiling middleware. observer may be nil.
func NewMiddleware(enableProfiling bool, observer HTTPObserver) *Middleware {
	return &Middleware{
		enableProfiling: enableProfiling,
		observer:        observer,
	}
}

// ProfiledHandler wraps an HTTP handler with request metrics and, when
// profiling is enabled, runtime headers. name is used as the metric path
// label so that path parameters do not explode cardinality.
func (m *Middleware) ProfiledHandler(name string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		var startMemStats runtime.MemStats
		if m.enableProfiling {
			runtime.ReadMemStats(&startMemStats)
			w.Header().Set("X-Profiling-Enabled", "true")
			w.Header().Set("X-Handler-Name", name)
			w.Header().Set("X-Start-Goroutines", strconv.Itoa(runtime.NumGoroutine()))
		}

		handler.ServeHTTP(wrapped, r)
		duration := time.Since(startTime)

		if m.observer != nil {
			m.observer.ObserveHTTP(r.Method, name, wrapped.statusCode, duration)
		}
		if !m.enableProfiling {
			return
		}

		// Trailers only: the handler has already written the header block.
		var endMemStats runtime.MemStats
		runtime.ReadMemStats(&endMemStats)
		memoryDelta := int64(endMemStats.Alloc) - int64(startMemStats.Alloc)
		w.Header().Set(http.TrailerPrefix+"X-Duration-Ms", strconv.FormatFloat(float64(duration.Nanoseconds())/1e6, 'f', 3, 64))
		w.Header().Set(http.TrailerPrefix+"X-Memory-Delta-Bytes", strconv.FormatInt(memoryDelta, 10))
	})
}

// ProfiledHandlerFunc wraps an HTTP handler function with profiling capabilities
func (m *Middleware) ProfiledHandlerFunc(name string, handlerFunc http.HandlerFunc) http.Handler {
	return m.ProfiledHandler(name, handlerFunc)
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
