package collector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/otelharness/internal/config"
)

// Container-side locations and ports.
const (
	ContainerConfigPath = "/etc/opentelemetry-collector.yaml"
	ContainerResultPath = "/result.json"

	PortOTLPGRPC = "4317/tcp"
	PortOTLPHTTP = "4318/tcp"
	PortHealth   = "13133/tcp"
	PortMetrics  = "8889/tcp"
)

// DefaultImage is the collector image the reference exports were recorded with.
const DefaultImage = "otel/opentelemetry-collector-contrib:0.103.1"

// Config is the collector section of the harness configuration.
type Config struct {
	Image          string          `koanf:"image"`
	ConfigPath     string          `koanf:"config_path"`
	Root           string          `koanf:"root"`
	StartupTimeout config.Duration `koanf:"startup_timeout"`
	Debug          bool            `koanf:"debug"`
}

// NewDefaultConfig returns a Config using DefaultImage and the current directory as root.
func NewDefaultConfig() *Config {
	return &Config{
		Image:          DefaultImage,
		ConfigPath:     "otel-collector-config.yaml",
		Root:           ".",
		StartupTimeout: config.Duration(time.Minute),
	}
}

// Options shapes the generated collector configuration.
type Options struct {
	// ResultPath is the container-side path of the file exporter.
	ResultPath string
	// BatchTimeout bounds how long the collector buffers spans before writing.
	BatchTimeout time.Duration
	// Debug adds the debug exporter to the traces pipeline.
	Debug bool
}

type collectorConfig struct {
	Receivers  receivers     `yaml:"receivers"`
	Processors processors    `yaml:"processors"`
	Exporters  exporters     `yaml:"exporters"`
	Extensions extensions    `yaml:"extensions"`
	Service    serviceConfig `yaml:"service"`
}

type endpoint struct {
	Endpoint string `yaml:"endpoint"`
}

type receivers struct {
	OTLP struct {
		Protocols struct {
			GRPC endpoint `yaml:"grpc"`
			HTTP endpoint `yaml:"http"`
		} `yaml:"protocols"`
	} `yaml:"otlp"`
}

type processors struct {
	Batch struct {
		Timeout string `yaml:"timeout,omitempty"`
	} `yaml:"batch"`
}

type exporters struct {
	File struct {
		Path string `yaml:"path"`
	} `yaml:"file"`
	Prometheus endpoint `yaml:"prometheus"`
	Debug      *debugExporter `yaml:"debug,omitempty"`
}

type debugExporter struct {
	Verbosity string `yaml:"verbosity"`
}

type extensions struct {
	HealthCheck endpoint `yaml:"health_check"`
}

type pipeline struct {
	Receivers  []string `yaml:"receivers"`
	Processors []string `yaml:"processors"`
	Exporters  []string `yaml:"exporters"`
}

type serviceConfig struct {
	Extensions []string            `yaml:"extensions"`
	Pipelines  map[string]pipeline `yaml:"pipelines"`
}

func renderConfig(opts Options) ([]byte, error) {
	if opts.ResultPath == "" {
		opts.ResultPath = ContainerResultPath
	}

	var c collectorConfig
	c.Receivers.OTLP.Protocols.GRPC.Endpoint = "0.0.0.0:4317"
	c.Receivers.OTLP.Protocols.HTTP.Endpoint = "0.0.0.0:4318"
	if opts.BatchTimeout > 0 {
		c.Processors.Batch.Timeout = opts.BatchTimeout.String()
	}
	c.Exporters.File.Path = opts.ResultPath
	c.Exporters.Prometheus.Endpoint = "0.0.0.0:8889"
	c.Extensions.HealthCheck.Endpoint = "0.0.0.0:13133"

	traceExporters := []string{"file"}
	if opts.Debug {
		c.Exporters.Debug = &debugExporter{Verbosity: "detailed"}
		traceExporters = append(traceExporters, "debug")
	}

	c.Service.Extensions = []string{"health_check"}
	c.Service.Pipelines = map[string]pipeline{
		"traces": {
			Receivers:  []string{"otlp"},
			Processors: []string{"batch"},
			Exporters:  traceExporters,
		},
		"metrics": {
			Receivers:  []string{"otlp"},
			Processors: []string{"batch"},
			Exporters:  []string{"prometheus"},
		},
	}

	return yaml.Marshal(&c)
}

// WriteConfig writes a collector configuration that receives OTLP over gRPC
// and HTTP and exports traces to a file.
func WriteConfig(path string, opts Options) error {
	data, err := renderConfig(opts)
	if err != nil {
		return fmt.Errorf("rendering collector config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing collector config: %w", err)
	}
	return nil
}
