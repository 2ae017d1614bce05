// Package telemetry provides the tracing pipeline lifecycle for otelharness.
package telemetry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fyrsmithlabs/otelharness/internal/config"
)

// Exporter protocols.
const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http/protobuf"
	ProtocolFile = "file"
)

// Span processors.
const (
	ProcessorBatch  = "batch"
	ProcessorSimple = "simple"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool           `koanf:"enabled"`
	Endpoint       string         `koanf:"endpoint"`
	Protocol       string         `koanf:"protocol"`
	FilePath       string         `koanf:"file_path"`
	ServiceName    string         `koanf:"service_name"`
	ServiceVersion string         `koanf:"service_version"`
	Environment    string         `koanf:"environment"`
	Insecure       bool           `koanf:"insecure"`        // Use insecure connection (no TLS)
	TLSSkipVerify  bool           `koanf:"tls_skip_verify"` // Accept internal CAs
	Processor      string         `koanf:"processor"`
	Sampling       SamplingConfig `koanf:"sampling"`
	Metrics        MetricsConfig  `koanf:"metrics"`
	Flush          FlushConfig    `koanf:"flush"`
	Shutdown       ShutdownConfig `koanf:"shutdown"`
}

// SamplingConfig controls trace sampling behavior.
type SamplingConfig struct {
	Rate float64 `koanf:"rate"` // 0.0-1.0, default 1.0
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Enabled        bool            `koanf:"enabled"`
	ExportInterval config.Duration `koanf:"export_interval"`
}

// FlushConfig controls explicit flushes before release.
type FlushConfig struct {
	Timeout     config.Duration `koanf:"timeout"`      // per attempt
	MaxAttempts int             `koanf:"max_attempts"` // including the first
	Delay       config.Duration `koanf:"delay"`        // settle time after a flush
}

// ShutdownConfig controls graceful shutdown behavior.
type ShutdownConfig struct {
	Timeout config.Duration `koanf:"timeout"`
}

// NewDefaultConfig returns defaults for a local collector on localhost:4317.
func NewDefaultConfig() *Config {
	env := os.Getenv("DEPLOYMENT_ENVIRONMENT")
	if env == "" {
		env = "unknown"
	}
	return &Config{
		Enabled:        true,
		Endpoint:       "localhost:4317",
		Protocol:       ProtocolGRPC,
		ServiceName:    "otelharness",
		ServiceVersion: "0.1.0",
		Environment:    env,
		Insecure:       true,
		Processor:      ProcessorBatch,
		Sampling: SamplingConfig{
			Rate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			ExportInterval: config.Duration(15 * time.Second),
		},
		Flush: FlushConfig{
			Timeout:     config.Duration(5 * time.Second),
			MaxAttempts: 3,
			Delay:       config.Duration(time.Second),
		},
		Shutdown: ShutdownConfig{
			Timeout: config.Duration(5 * time.Second),
		},
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required when telemetry is enabled")
	}

	switch c.Protocol {
	case "", ProtocolGRPC, ProtocolHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required when telemetry is enabled")
		}
		// Prevent insecure connections to remote endpoints
		if c.Insecure && !c.isLocalEndpoint() {
			return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)")
		}
	case ProtocolFile:
		if c.FilePath == "" {
			return fmt.Errorf("file_path is required for protocol %q", ProtocolFile)
		}
	default:
		return fmt.Errorf("unknown protocol %q", c.Protocol)
	}

	switch c.Processor {
	case "", ProcessorBatch, ProcessorSimple:
	default:
		return fmt.Errorf("unknown processor %q", c.Processor)
	}

	if c.Sampling.Rate < 0 || c.Sampling.Rate > 1 {
		return fmt.Errorf("sampling.rate must be between 0 and 1, got %f", c.Sampling.Rate)
	}
	if c.Metrics.Enabled && c.Metrics.ExportInterval.Duration() <= 0 {
		return fmt.Errorf("metrics.export_interval must be positive when metrics enabled")
	}
	if c.Flush.Timeout.Duration() <= 0 {
		return fmt.Errorf("flush.timeout must be positive")
	}
	if c.Flush.MaxAttempts < 1 {
		return fmt.Errorf("flush.max_attempts must be at least 1, got %d", c.Flush.MaxAttempts)
	}
	if c.Shutdown.Timeout.Duration() <= 0 {
		return fmt.Errorf("shutdown.timeout must be positive")
	}

	return nil
}

// isLocalEndpoint checks if the endpoint is a local address.
func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)

	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6: [::1]:4317
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}

	return host == "localhost" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(host, "::1")
}

// stripScheme removes grpc://, http:// or https:// from an endpoint URL.
// The OTLP exporters expect just host:port.
func stripScheme(endpoint string) string {
	for _, scheme := range []string{"grpc://", "https://", "http://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return endpoint
}

// FromConfig reads the telemetry section of c over the defaults and validates it.
func FromConfig(c *config.Config) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := c.Section("telemetry", cfg); err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	return cfg, nil
}
