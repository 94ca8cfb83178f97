package config

import (
	"time"

	"github.com/kacperjurak/gooptcore/internal/observability"
)

// Config holds all configuration settings for the link simulator
type Config struct {
	ScenarioFile    string
	Example         string
	Seed            int64
	Quiet           bool
	HTTPServer      bool
	EnableProfiling bool
	LogLevel        string
	LogFormat       string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	WebhookURL      string
	EnableMetrics   bool
	EnableProfiling bool
	ProfilingPort   string
	ShutdownTimeout time.Duration
	Tracing         observability.TracingConfig
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Example:   "ook",
		Seed:      123,
		Quiet:     false,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// DefaultServerConfig returns server configuration with sensible defaults.
// An empty WebhookURL disables notifications.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		WebhookURL:      "",
		EnableMetrics:   true,
		EnableProfiling: false,
		ProfilingPort:   "6060",
		ShutdownTimeout: 10 * time.Second,
		Tracing:         observability.TracingConfigFromEnv(),
	}
}
