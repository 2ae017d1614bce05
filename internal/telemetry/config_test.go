package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/otelharness/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	t.Setenv("DEPLOYMENT_ENVIRONMENT", "")
	cfg := NewDefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "unknown", cfg.Environment)
	assert.Equal(t, ProcessorBatch, cfg.Processor)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, time.Second, cfg.Flush.Delay.Duration())
	assert.Equal(t, 3, cfg.Flush.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())
	require.NoError(t, cfg.Validate())
}

func TestNewDefaultConfig_EnvironmentFromEnv(t *testing.T) {
	t.Setenv("DEPLOYMENT_ENVIRONMENT", "ci")
	assert.Equal(t, "ci", NewDefaultConfig().Environment)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid default", mutate: func(*Config) {}},
		{
			name:   "disabled skips validation",
			mutate: func(c *Config) { c.Enabled = false; c.Endpoint = "" },
		},
		{
			name:   "missing endpoint",
			mutate: func(c *Config) { c.Endpoint = "" },
			errMsg: "endpoint is required",
		},
		{
			name:   "missing service name",
			mutate: func(c *Config) { c.ServiceName = "" },
			errMsg: "service_name is required",
		},
		{
			name:   "missing service version",
			mutate: func(c *Config) { c.ServiceVersion = "" },
			errMsg: "service_version is required",
		},
		{
			name:   "insecure remote endpoint",
			mutate: func(c *Config) { c.Endpoint = "collector.example.com:4317" },
			errMsg: "insecure connections to remote endpoints",
		},
		{
			name:   "secure remote endpoint",
			mutate: func(c *Config) { c.Endpoint = "collector.example.com:4317"; c.Insecure = false },
		},
		{
			name:   "scheme-prefixed local endpoint",
			mutate: func(c *Config) { c.Endpoint = "grpc://localhost:4317" },
		},
		{
			name:   "file protocol without path",
			mutate: func(c *Config) { c.Protocol = ProtocolFile },
			errMsg: "file_path is required",
		},
		{
			name:   "file protocol ignores endpoint",
			mutate: func(c *Config) { c.Protocol = ProtocolFile; c.FilePath = "/tmp/out.json"; c.Endpoint = "" },
		},
		{
			name:   "unknown protocol",
			mutate: func(c *Config) { c.Protocol = "carrier-pigeon" },
			errMsg: "unknown protocol",
		},
		{
			name:   "unknown processor",
			mutate: func(c *Config) { c.Processor = "eager" },
			errMsg: "unknown processor",
		},
		{
			name:   "sampling rate too high",
			mutate: func(c *Config) { c.Sampling.Rate = 1.5 },
			errMsg: "sampling.rate must be between 0 and 1",
		},
		{
			name: "metrics without interval",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ExportInterval = 0
			},
			errMsg: "metrics.export_interval must be positive",
		},
		{
			name:   "zero flush timeout",
			mutate: func(c *Config) { c.Flush.Timeout = 0 },
			errMsg: "flush.timeout must be positive",
		},
		{
			name:   "no flush attempts",
			mutate: func(c *Config) { c.Flush.MaxAttempts = 0 },
			errMsg: "flush.max_attempts",
		},
		{
			name:   "zero shutdown timeout",
			mutate: func(c *Config) { c.Shutdown.Timeout = config.Duration(0) },
			errMsg: "shutdown.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ValidateNil(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Validate())
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"http://localhost:4318", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"10.0.0.5:4317", false},
		{"otel-collector:4317", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &Config{Endpoint: tt.endpoint}
			assert.Equal(t, tt.want, cfg.isLocalEndpoint())
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "localhost:4317", stripScheme("grpc://localhost:4317"))
	assert.Equal(t, "localhost:4318", stripScheme("http://localhost:4318"))
	assert.Equal(t, "collector:443", stripScheme("https://collector:443"))
	assert.Equal(t, "localhost:4317", stripScheme("localhost:4317"))
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otelharness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telemetry:
  protocol: file
  file_path: /tmp/result.json
  service_name: sample
  flush:
    max_attempts: 5
    delay: 250ms
`), 0o644))
	t.Setenv("OTELHARNESS_TELEMETRY_SERVICE_NAME", "from-env")

	c, err := config.Load(path)
	require.NoError(t, err)

	cfg, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, ProtocolFile, cfg.Protocol)
	assert.Equal(t, "/tmp/result.json", cfg.FilePath)
	assert.Equal(t, "from-env", cfg.ServiceName)
	assert.Equal(t, 5, cfg.Flush.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Flush.Delay.Duration())
	assert.Equal(t, "0.1.0", cfg.ServiceVersion, "unset keys keep defaults")
}

func TestFromConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otelharness.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telemetry:\n  protocol: file\n"), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)

	_, err = FromConfig(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_path is required")
}
