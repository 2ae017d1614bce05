package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/logging"
)

// Factory starts collector containers.
type Factory struct {
	Image      string
	ConfigPath string // host path of the collector configuration
	ResultPath string // host path of the file the collector exports to

	StartupTimeout time.Duration
	Logger         *logging.Logger
}

// Collector is a running collector container.
type Collector struct {
	container testcontainers.Container
	logger    *logging.Logger
}

// mounts resolves both bind mount sources to absolute paths of existing files.
func (f Factory) mounts() (configPath, resultPath string, err error) {
	if configPath, err = existingFile(f.ConfigPath, "collector config"); err != nil {
		return "", "", err
	}
	if resultPath, err = existingFile(f.ResultPath, "result file"); err != nil {
		return "", "", err
	}
	return configPath, resultPath, nil
}

func existingFile(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s path is required", what)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", what, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", what, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s %s is a directory", what, abs)
	}
	return abs, nil
}

func (f Factory) request(configPath, resultPath string) testcontainers.GenericContainerRequest {
	image := f.Image
	if image == "" {
		image = DefaultImage
	}
	timeout := f.StartupTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	return testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{PortOTLPGRPC, PortOTLPHTTP, PortHealth, PortMetrics},
			Cmd:          []string{"--config=" + ContainerConfigPath},
			HostConfigModifier: func(hc *container.HostConfig) {
				hc.Binds = append(hc.Binds,
					configPath+":"+ContainerConfigPath+":ro",
					resultPath+":"+ContainerResultPath+":rw",
				)
			},
			WaitingFor: wait.ForHTTP("/").
				WithPort(PortHealth).
				WithStartupTimeout(timeout),
		},
		Started: true,
	}
}

// Start runs a collector and waits until its health check answers.
func (f Factory) Start(ctx context.Context) (*Collector, error) {
	logger := f.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("collector")

	configPath, resultPath, err := f.mounts()
	if err != nil {
		return nil, err
	}

	req := f.request(configPath, resultPath)
	c, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		// A container that failed its wait strategy is still running.
		return nil, errors.Join(fmt.Errorf("starting collector: %w", err), testcontainers.TerminateContainer(c))
	}

	logger.Info(ctx, "collector started",
		zap.String("image", req.Image),
		zap.String("config", configPath),
		zap.String("result", resultPath),
	)
	return &Collector{container: c, logger: logger}, nil
}

// OTLPEndpoint returns the host:port of the OTLP gRPC receiver.
func (c *Collector) OTLPEndpoint(ctx context.Context) (string, error) {
	return c.container.PortEndpoint(ctx, PortOTLPGRPC, "")
}

// OTLPHTTPEndpoint returns the host:port of the OTLP HTTP receiver.
func (c *Collector) OTLPHTTPEndpoint(ctx context.Context) (string, error) {
	return c.container.PortEndpoint(ctx, PortOTLPHTTP, "")
}

// MetricsEndpoint returns the host:port of the Prometheus exporter.
func (c *Collector) MetricsEndpoint(ctx context.Context) (string, error) {
	return c.container.PortEndpoint(ctx, PortMetrics, "")
}

// Terminate stops the collector. Pending exports are written on shutdown.
func (c *Collector) Terminate(ctx context.Context) error {
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("terminating collector: %w", err)
	}
	c.logger.Info(ctx, "collector terminated")
	return nil
}
