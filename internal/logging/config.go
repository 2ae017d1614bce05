package logging

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/otelharness/internal/config"
)

// Encodings accepted in Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the "logging" section.
type Config struct {
	Level  zapcore.Level `koanf:"level"`
	Format string        `koanf:"format"`

	// Stderr writes encoded entries to standard error.
	Stderr bool `koanf:"stderr"`
	// OTel mirrors entries into the OTel log provider handed to NewLogger.
	OTel bool `koanf:"otel"`

	Caller   bool              `koanf:"caller"`
	Sampling SamplingConfig    `koanf:"sampling"`
	Fields   map[string]string `koanf:"fields"`
}

// SamplingConfig thins out repeated entries below Error. Per Tick, the
// first First entries with the same message pass, then every Thereafter-th.
type SamplingConfig struct {
	Enabled    bool            `koanf:"enabled"`
	Tick       config.Duration `koanf:"tick"`
	First      int             `koanf:"first"`
	Thereafter int             `koanf:"thereafter"`
}

// NewDefaultConfig logs Info and above to stderr in console format without
// sampling, so every failure of a test run reaches the terminal.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: FormatConsole,
		Stderr: true,
		Caller: true,
		Sampling: SamplingConfig{
			Tick:       config.Duration(time.Second),
			First:      100,
			Thereafter: 10,
		},
		Fields: map[string]string{"component": "otelharness"},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("format must be %q or %q, got %q", FormatConsole, FormatJSON, c.Format)
	}
	if !c.Stderr && !c.OTel {
		return errors.New("at least one output must be enabled (stderr or otel)")
	}
	if c.Sampling.Enabled {
		if c.Sampling.Tick.Duration() <= 0 {
			return errors.New("sampling tick must be > 0 when sampling is enabled")
		}
		if c.Sampling.First < 1 {
			return fmt.Errorf("sampling first must be >= 1, got %d", c.Sampling.First)
		}
	}
	for k, v := range c.Fields {
		if k == "" || v == "" {
			return fmt.Errorf("static field %q=%q needs a key and a value", k, v)
		}
	}
	return nil
}
