package gooptcore

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThroughputTable(t *testing.T) {
	tests := []struct {
		order int
		want  float64
	}{
		{2, 10e9}, {4, 20e9}, {8, 30e9}, {16, 40e9},
		{32, 50e9}, {64, 60e9}, {128, 70e9}, {256, 80e9},
	}
	for _, tt := range tests {
		got, err := Throughput(10e9, tt.order)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "order %d", tt.order)
	}
}

func TestThroughputRejectsUnknownOrders(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("orders outside the table are configuration errors", prop.ForAll(
		func(order int) bool {
			_, err := Throughput(10e9, order)
			_, known := bitsPerSymbol[order]
			if known {
				return err == nil
			}
			var cerr *ConfigurationError
			return assert.ErrorAs(t, err, &cerr)
		},
		gen.IntRange(-16, 1024),
	))

	properties.TestingRun(t)
}

func TestComputeMetricsRequiresResult(t *testing.T) {
	_, err := ComputeMetrics(nil)
	assert.ErrorIs(t, err, ErrNoSignal)
}
