package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLayout_Paths(t *testing.T) {
	l := Layout{Root: "/work", TestName: "sample_add_err"}

	assert.Equal(t, "/work/result/sample_add_err.json", l.ResultPath())
	assert.Equal(t, "/work/expected/sample_add_err.json", l.ExpectedPath())
}

func TestLayout_PrepareResult(t *testing.T) {
	l := Layout{Root: t.TempDir(), TestName: "sample_add"}

	path, err := l.PrepareResult()
	require.NoError(t, err)
	assert.Equal(t, l.ResultPath(), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	assert.Equal(t, os.FileMode(0o666), info.Mode().Perm())
}

func TestLayout_PrepareResultTruncates(t *testing.T) {
	l := Layout{Root: t.TempDir(), TestName: "sample_add"}
	require.NoError(t, os.MkdirAll(filepath.Dir(l.ResultPath()), 0o755))
	require.NoError(t, os.WriteFile(l.ResultPath(), []byte("stale\n"), 0o600))

	path, err := l.PrepareResult()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o666), info.Mode().Perm())
}

func TestLayout_PrepareResultRequiresName(t *testing.T) {
	_, err := Layout{Root: t.TempDir()}.PrepareResult()
	assert.Error(t, err)
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "otel-collector-config.yaml")
	require.NoError(t, WriteConfig(path, Options{BatchTimeout: 200 * time.Millisecond}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))

	receivers := got["receivers"].(map[string]any)
	protocols := receivers["otlp"].(map[string]any)["protocols"].(map[string]any)
	assert.Equal(t, "0.0.0.0:4317", protocols["grpc"].(map[string]any)["endpoint"])
	assert.Equal(t, "0.0.0.0:4318", protocols["http"].(map[string]any)["endpoint"])

	exporters := got["exporters"].(map[string]any)
	assert.Equal(t, ContainerResultPath, exporters["file"].(map[string]any)["path"])
	assert.NotContains(t, exporters, "debug")

	batch := got["processors"].(map[string]any)["batch"].(map[string]any)
	assert.Equal(t, "200ms", batch["timeout"])

	service := got["service"].(map[string]any)
	assert.Equal(t, []any{"health_check"}, service["extensions"])
	traces := service["pipelines"].(map[string]any)["traces"].(map[string]any)
	assert.Equal(t, []any{"otlp"}, traces["receivers"])
	assert.Equal(t, []any{"file"}, traces["exporters"])
}

func TestWriteConfig_Debug(t *testing.T) {
	data, err := renderConfig(Options{Debug: true, ResultPath: "/out/traces.json"})
	require.NoError(t, err)

	var got collectorConfig
	require.NoError(t, yaml.Unmarshal(data, &got))

	require.NotNil(t, got.Exporters.Debug)
	assert.Equal(t, "detailed", got.Exporters.Debug.Verbosity)
	assert.Equal(t, "/out/traces.json", got.Exporters.File.Path)
	assert.Equal(t, []string{"file", "debug"}, got.Service.Pipelines["traces"].Exporters)
	assert.Empty(t, got.Processors.Batch.Timeout)
}

func TestWriteConfig_BadPath(t *testing.T) {
	err := WriteConfig(filepath.Join(t.TempDir(), "missing", "config.yaml"), Options{})
	assert.Error(t, err)
}

func TestFactory_Request(t *testing.T) {
	req := Factory{}.request("/host/config.yaml", "/host/result.json")

	assert.Equal(t, DefaultImage, req.Image)
	assert.True(t, req.Started)
	assert.ElementsMatch(t, []string{"4317/tcp", "4318/tcp", "13133/tcp", "8889/tcp"}, req.ExposedPorts)
	assert.Equal(t, []string{"--config=/etc/opentelemetry-collector.yaml"}, req.Cmd)
	require.NotNil(t, req.HostConfigModifier)
	require.NotNil(t, req.WaitingFor)
}

func TestFactory_StartValidatesMounts(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, WriteConfig(configPath, Options{}))

	tests := []struct {
		name    string
		factory Factory
		want    string
	}{
		{
			name:    "missing config path",
			factory: Factory{ResultPath: configPath},
			want:    "collector config path is required",
		},
		{
			name:    "config does not exist",
			factory: Factory{ConfigPath: filepath.Join(dir, "nope.yaml"), ResultPath: configPath},
			want:    "collector config",
		},
		{
			name:    "result is a directory",
			factory: Factory{ConfigPath: configPath, ResultPath: dir},
			want:    "is a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.factory.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecutor_RequiresCommand(t *testing.T) {
	_, err := (&Executor{}).Execute(context.Background(), "sample", nil)
	assert.EqualError(t, err, "test command is required")
}

func TestSettle(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.NoError(t, settle(context.Background(), empty))

	complete := filepath.Join(dir, "complete.json")
	require.NoError(t, os.WriteFile(complete, []byte("{}\n"), 0o644))
	assert.NoError(t, settle(context.Background(), complete))

	assert.Error(t, settle(context.Background(), filepath.Join(dir, "missing.json")))
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, DefaultImage, cfg.Image)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, time.Minute, cfg.StartupTimeout.Duration())
}
