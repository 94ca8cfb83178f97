package profiling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kacperjurak/gooptcore/pkg/config"
)

type observation struct {
	method, path string
	code         int
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveHTTP(method, path string, code int, _ time.Duration) {
	f.seen = append(f.seen, observation{method, path, code})
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	obs := &fakeObserver{}
	m := NewMiddleware(false, obs)

	h := m.ProfiledHandlerFunc("plots", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plots/eyeRx", nil))

	require.Len(t, obs.seen, 1)
	assert.Equal(t, observation{http.MethodGet, "plots", http.StatusNotFound}, obs.seen[0])
	assert.Empty(t, rec.Header().Get("X-Profiling-Enabled"))
}

func TestMiddlewareProfilingHeaders(t *testing.T) {
	m := NewMiddleware(true, nil)
	h := m.ProfiledHandlerFunc("simulate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/simulate", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Profiling-Enabled"))
	assert.Equal(t, "simulate", rec.Header().Get("X-Handler-Name"))
}

func TestForceGC(t *testing.T) {
	before, after := ForceGC()
	assert.Greater(t, after.NumGC, before.NumGC)
}

func TestInfoHandler(t *testing.T) {
	p := New(config.DefaultServerConfig(), nil)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap MemorySnapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Positive(t, snap.Goroutines)
	assert.NotEmpty(t, snap.Version)
}

func TestProfilerDisabled(t *testing.T) {
	p := New(config.DefaultServerConfig(), nil)
	require.NoError(t, p.Start())
	assert.NoError(t, p.Stop(context.Background()))
}
