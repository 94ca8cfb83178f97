package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplicitlySet(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("log-level", "info", "")
	fs.String("log-format", "text", "")
	fs.String("port", "8080", "")

	require.NoError(t, fs.Parse([]string{"-port", "9090"}))
	assert.False(t, explicitlySet(fs, "log-level", "log-format"))

	require.NoError(t, fs.Parse([]string{"-log-format", "json"}))
	assert.True(t, explicitlySet(fs, "log-level", "log-format"))
}
