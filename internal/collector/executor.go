package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/otelharness/internal/config"
	"github.com/fyrsmithlabs/otelharness/internal/logging"
	"github.com/fyrsmithlabs/otelharness/internal/tracefile"
)

// Environment handed to the test command so its telemetry targets the collector.
const (
	EnvEndpoint = config.EnvPrefix + "TELEMETRY_ENDPOINT"
	EnvProtocol = config.EnvPrefix + "TELEMETRY_PROTOCOL"
)

const settleTimeout = 5 * time.Second

// Execution is the result of one Execute.
type Execution struct {
	ResultPath string
	// ExitCode of the test command. A failing test is not an Execute error.
	ExitCode int
}

// Executor runs test commands against a fresh collector per test.
type Executor struct {
	Config *Config
	Logger *logging.Logger
	Output io.Writer // command stdout and stderr; os.Stderr when nil
}

// Execute prepares the result file of testName, starts a collector exporting
// into it, runs command with the collector endpoint in its environment and
// terminates the collector. The returned path is complete once Execute returns.
func (e *Executor) Execute(ctx context.Context, testName string, command []string) (Execution, error) {
	if len(command) == 0 {
		return Execution{}, errors.New("test command is required")
	}
	cfg := e.Config
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	logger := e.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(zap.String("test", testName))

	layout := Layout{Root: cfg.Root, TestName: testName}
	resultPath, err := layout.PrepareResult()
	if err != nil {
		return Execution{}, err
	}

	factory := Factory{
		Image:          cfg.Image,
		ConfigPath:     cfg.ConfigPath,
		ResultPath:     resultPath,
		StartupTimeout: cfg.StartupTimeout.Duration(),
		Logger:         logger,
	}
	c, err := factory.Start(ctx)
	if err != nil {
		return Execution{}, err
	}

	exitCode, runErr := e.run(ctx, c, command)
	if err := c.Terminate(context.WithoutCancel(ctx)); err != nil {
		return Execution{}, errors.Join(runErr, err)
	}
	if runErr != nil {
		return Execution{}, runErr
	}

	logger.Info(ctx, "test command finished",
		zap.Int("exit_code", exitCode), zap.String("result", resultPath))

	if err := settle(ctx, resultPath); err != nil {
		return Execution{}, err
	}
	return Execution{ResultPath: resultPath, ExitCode: exitCode}, nil
}

func (e *Executor) run(ctx context.Context, c *Collector, command []string) (int, error) {
	endpoint, err := c.OTLPEndpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolving collector endpoint: %w", err)
	}

	out := e.Output
	if out == nil {
		out = os.Stderr
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Env = append(os.Environ(), EnvEndpoint+"="+endpoint, EnvProtocol+"=grpc")
	cmd.Stdout = out
	cmd.Stderr = out

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("running test command: %w", err)
	}
	return 0, nil
}

// settle waits for the collector's last write to land. An empty export is
// final as is.
func settle(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("checking result file: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return tracefile.WaitComplete(ctx, path, 0)
}
