package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingDisabled(t *testing.T) {
	tp, shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "gooptsim-test",
		SampleRatio: 1,
		Output:      &buf,
	}, nil)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "stage.channel")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ShutdownWithTimeout(context.Background(), shutdown, nil)
	assert.Contains(t, buf.String(), "stage.channel")
	assert.Contains(t, buf.String(), "gooptsim-test")
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("GOOPTSIM_TRACING_ENABLED", "TRUE")
	t.Setenv("GOOPTSIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("GOOPTSIM_TRACING_SERVICE_NAME", "")

	cfg := TracingConfigFromEnv()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0.25, cfg.SampleRatio)
	assert.Equal(t, "gooptsim", cfg.ServiceName)

	t.Setenv("GOOPTSIM_TRACING_SAMPLE_RATIO", "7")
	assert.Equal(t, 1.0, TracingConfigFromEnv().SampleRatio)
}
