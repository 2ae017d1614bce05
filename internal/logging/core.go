package logging

import (
	"errors"
	"io"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// scope is the instrumentation scope bridged entries are emitted under.
const scope = "github.com/fyrsmithlabs/otelharness"

// buildCore tees the enabled outputs and applies sampling.
func buildCore(cfg *Config, w io.Writer, provider log.LoggerProvider) (zapcore.Core, error) {
	var cores []zapcore.Core
	if cfg.Stderr {
		cores = append(cores, zapcore.NewCore(encoder(cfg.Format), zapcore.Lock(zapcore.AddSync(w)), cfg.Level))
	}
	if cfg.OTel && provider != nil {
		// The bridge has no level of its own.
		bridge := otelzap.NewCore(scope, otelzap.WithLoggerProvider(provider))
		cores = append(cores, filtered{Core: bridge, keep: cfg.Level})
	}
	if len(cores) == 0 {
		return nil, errors.New("no log output available: stderr disabled and no otel provider")
	}
	return sampled(zapcore.NewTee(cores...), cfg.Sampling), nil
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if format == FormatJSON {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// sampled samples entries below Error and passes Error and above untouched.
func sampled(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}
	rest := zapcore.NewSamplerWithOptions(filtered{Core: core, keep: belowError},
		cfg.Tick.Duration(), cfg.First, cfg.Thereafter)
	return zapcore.NewTee(filtered{Core: core, keep: zapcore.ErrorLevel}, rest)
}

var belowError = zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
	return lvl < zapcore.ErrorLevel
})

// filtered hands core only the levels keep enables.
type filtered struct {
	zapcore.Core
	keep zapcore.LevelEnabler
}

func (c filtered) Enabled(lvl zapcore.Level) bool {
	return c.keep.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c filtered) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.keep.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c filtered) With(fields []zapcore.Field) zapcore.Core {
	return filtered{Core: c.Core.With(fields), keep: c.keep}
}
