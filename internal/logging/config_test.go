package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/otelharness/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, FormatConsole, cfg.Format)
	assert.True(t, cfg.Stderr)
	assert.False(t, cfg.OTel)
	assert.False(t, cfg.Sampling.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "bad format",
			mutate: func(c *Config) { c.Format = "xml" },
			errMsg: "format must be",
		},
		{
			name:   "no outputs",
			mutate: func(c *Config) { c.Stderr = false },
			errMsg: "at least one output",
		},
		{
			name: "sampling without tick",
			mutate: func(c *Config) {
				c.Sampling.Enabled = true
				c.Sampling.Tick = 0
			},
			errMsg: "sampling tick",
		},
		{
			name: "sampling drops everything",
			mutate: func(c *Config) {
				c.Sampling.Enabled = true
				c.Sampling.First = 0
			},
			errMsg: "sampling first",
		},
		{
			name:   "empty field value",
			mutate: func(c *Config) { c.Fields["suite"] = "" },
			errMsg: "needs a key and a value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestConfig_FromSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otelharness.yaml")
	yaml := `
logging:
  level: debug
  format: json
  otel: true
  sampling:
    enabled: true
    first: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	c, err := config.Load(path)
	require.NoError(t, err)

	cfg := NewDefaultConfig()
	require.NoError(t, c.Section("logging", cfg))

	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.Stderr)
	assert.True(t, cfg.OTel)
	assert.Equal(t, 5, cfg.Sampling.First)
	assert.Equal(t, 10, cfg.Sampling.Thereafter)
	assert.NoError(t, cfg.Validate())
}
