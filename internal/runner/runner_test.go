package runner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/toolengine/internal/catalog"
	"github.com/opsconductor/toolengine/internal/config"
	"github.com/opsconductor/toolengine/internal/observability"
	"github.com/opsconductor/toolengine/internal/types"
)

// staticStore serves a fixed spec list for registry construction.
type staticStore struct {
	specs []types.ToolSpec
}

func (s *staticStore) LoadSpecs(ctx context.Context) ([]types.ToolSpec, error) {
	return s.specs, nil
}

func testSpecs() []types.ToolSpec {
	return []types.ToolSpec{
		{
			Name:            "echo_tool",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformCrossPlatform,
			Category:        "diagnostics",
			CommandTemplate: "echo {text}",
			Parameters: []types.ToolParameter{
				{Name: "text", Type: types.ParameterTypeString, Required: true},
			},
		},
		{
			Name:            "echo_secret",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformCrossPlatform,
			CommandTemplate: "echo {password}",
			Parameters: []types.ToolParameter{
				{Name: "password", Type: types.ParameterTypeString, Required: true, Secret: true},
			},
		},
		{
			Name:            "slow_tool",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformCrossPlatform,
			CommandTemplate: "sleep {seconds}",
			Parameters: []types.ToolParameter{
				{Name: "seconds", Type: types.ParameterTypeInt, Required: true},
			},
		},
		{
			Name:            "shell_tool",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformCrossPlatform,
			CommandTemplate: "sh -c {script}",
			Parameters: []types.ToolParameter{
				{Name: "script", Type: types.ParameterTypeString, Required: true},
			},
		},
		{
			Name:            "windows_only",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformWindows,
			CommandTemplate: "ipconfig",
		},
		{
			Name:            "count_tool",
			Version:         "1.0.0",
			IsLatest:        true,
			Platform:        types.PlatformCrossPlatform,
			CommandTemplate: "ping -c {count} {host}",
			Parameters: []types.ToolParameter{
				{Name: "count", Type: types.ParameterTypeInt, Required: false, Default: "3"},
				{Name: "host", Type: types.ParameterTypeString, Required: true, Pattern: `^[A-Za-z0-9.\-]+$`},
			},
		},
	}
}

func newTestRunner(t *testing.T, mutate func(*config.RunnerConfig)) *Runner {
	t.Helper()

	reg := catalog.NewRegistry(&staticStore{specs: testSpecs()}, nil)
	_, err := reg.Load(context.Background())
	require.NoError(t, err)

	cfg := config.RunnerConfig{
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     10 * time.Second,
		MaxOutputBytes: 4096,
		SecretPatterns: []string{`(?i)(password|secret|token)\s*[=:]\s*\S+`},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	metrics := observability.NewMetrics()
	logger := observability.NewLogger(&bytes.Buffer{}, "debug", "json")
	return New(reg, cfg, metrics, logger)
}

func TestExecute_EchoScenario(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{
		ToolName:   "echo_tool",
		Parameters: map[string]any{"text": "hello"},
	})

	assert.True(t, result.Success)
	assert.Equal(t, "hello", strings.TrimSpace(result.Output))
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.TraceID.IsZero())
	assert.Empty(t, result.ErrorKind)
}

func TestExecute_UnknownTool(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{ToolName: "no_such_tool"})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindUnknownTool, result.ErrorKind)
	assert.Contains(t, result.Error, "no_such_tool")
}

func TestExecute_InvalidParameters(t *testing.T) {
	r := newTestRunner(t, nil)

	tests := []struct {
		name   string
		tool   string
		params map[string]any
	}{
		{"missing required", "echo_tool", map[string]any{}},
		{"unknown parameter", "echo_tool", map[string]any{"text": "x", "extra": "y"}},
		{"type mismatch", "count_tool", map[string]any{"count": "many", "host": "web1"}},
		{"pattern violation", "count_tool", map[string]any{"host": "web1; rm -rf /"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Execute(context.Background(), Request{ToolName: tt.tool, Parameters: tt.params})
			assert.False(t, result.Success)
			assert.Equal(t, ErrorKindInvalidParameters, result.ErrorKind)
		})
	}
}

func TestExecute_DefaultParameterApplied(t *testing.T) {
	r := newTestRunner(t, nil)

	// localhost answers ICMP on CI runners is not guaranteed; only the
	// rendering path matters, so check argv via renderCommand directly.
	spec := testSpecs()[5]
	values, _, err := r.resolveParameters(spec, map[string]any{"host": "localhost"})
	require.NoError(t, err)

	argv, err := renderCommand(spec.CommandTemplate, values)
	require.NoError(t, err)
	assert.Equal(t, []string{"ping", "-c", "3", "localhost"}, argv)
}

func TestExecute_UnsupportedPlatform(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{ToolName: "windows_only"})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindUnsupportedPlatform, result.ErrorKind)
}

func TestExecute_TimeoutKillsProcessGroup(t *testing.T) {
	r := newTestRunner(t, func(c *config.RunnerConfig) {
		c.DefaultTimeout = 200 * time.Millisecond
	})

	start := time.Now()
	result := r.Execute(context.Background(), Request{
		ToolName: "slow_tool",
		// The sleep would run far past the deadline if not terminated.
		Parameters: map[string]any{"seconds": 30},
	})
	elapsed := time.Since(start)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindTimeout, result.ErrorKind)
	assert.Contains(t, result.Error, "timeout")
	// Bounded overrun: deadline plus the wait grace, not the sleep time.
	assert.Less(t, elapsed, 4*time.Second)
}

func TestExecute_TimeoutKillsShellChildren(t *testing.T) {
	r := newTestRunner(t, func(c *config.RunnerConfig) {
		c.DefaultTimeout = 200 * time.Millisecond
	})

	start := time.Now()
	result := r.Execute(context.Background(), Request{
		ToolName:   "shell_tool",
		Parameters: map[string]any{"script": "sleep 30"},
	})

	assert.Equal(t, ErrorKindTimeout, result.ErrorKind)
	// If the grandchild survived the group kill, Wait would block on the
	// shared pipe until the sleep finished.
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecute_SecretParameterNeverInOutput(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{
		ToolName:   "echo_secret",
		Parameters: map[string]any{"password": "hunter2-super-secret"},
	})

	assert.True(t, result.Success)
	assert.NotContains(t, result.Output, "hunter2-super-secret")
	assert.NotContains(t, result.Error, "hunter2-super-secret")
	assert.Contains(t, result.Output, observability.RedactionMarker)
}

func TestExecute_PatternRedaction(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{
		ToolName:   "echo_tool",
		Parameters: map[string]any{"text": "password=swordfish99"},
	})

	assert.True(t, result.Success)
	assert.NotContains(t, result.Output, "swordfish99")
	assert.Contains(t, result.Output, observability.RedactionMarker)
}

func TestExecute_NonZeroExit(t *testing.T) {
	r := newTestRunner(t, nil)

	result := r.Execute(context.Background(), Request{
		ToolName:   "shell_tool",
		Parameters: map[string]any{"script": "exit 3"},
	})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindExecutionError, result.ErrorKind)
	assert.Equal(t, 3, result.ExitCode)
}

func TestExecute_OutputCapped(t *testing.T) {
	r := newTestRunner(t, func(c *config.RunnerConfig) {
		c.MaxOutputBytes = 64
	})

	result := r.Execute(context.Background(), Request{
		ToolName:   "shell_tool",
		Parameters: map[string]any{"script": "yes | head -n 1000"},
	})

	assert.True(t, result.Success)
	assert.LessOrEqual(t, len(result.Output), 64+len(truncationMarker))
	assert.Contains(t, result.Output, truncationMarker)
}

func TestExecute_InjectionStaysInert(t *testing.T) {
	r := newTestRunner(t, nil)

	// Metacharacters in a value are echoed literally, never interpreted.
	result := r.Execute(context.Background(), Request{
		ToolName:   "echo_tool",
		Parameters: map[string]any{"text": "hello;id&&whoami"},
	})

	assert.True(t, result.Success)
	assert.Equal(t, "hello;id&&whoami", strings.TrimSpace(result.Output))
}

func TestRenderCommand(t *testing.T) {
	argv, err := renderCommand("curl -H {header} {url}", map[string]string{
		"header": "X-Auth: 1",
		"url":    "https://example.com",
	})
	require.NoError(t, err)
	// The multi-word value stays a single argv element.
	assert.Equal(t, []string{"curl", "-H", "X-Auth: 1", "https://example.com"}, argv)

	_, err = renderCommand("echo {missing}", map[string]string{})
	assert.Error(t, err)

	_, err = renderCommand("   ", nil)
	assert.Error(t, err)
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)

	n, err := b.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n) // reports full write so the pipe stays healthy

	assert.Equal(t, "hello"+truncationMarker, b.String())
}

func TestResolveTimeout(t *testing.T) {
	r := newTestRunner(t, nil)

	plain := types.ToolSpec{}
	estimated := types.ToolSpec{TimeEstimateMS: 2000}

	assert.Equal(t, 5*time.Second, r.resolveTimeout(0, plain))
	assert.Equal(t, time.Second, r.resolveTimeout(time.Second, plain))
	// The spec's estimate beats the default but not an explicit request.
	assert.Equal(t, 2*time.Second, r.resolveTimeout(0, estimated))
	assert.Equal(t, time.Second, r.resolveTimeout(time.Second, estimated))
	// Clamped to the hard ceiling.
	assert.Equal(t, 10*time.Second, r.resolveTimeout(time.Hour, plain))
	assert.Equal(t, 10*time.Second, r.resolveTimeout(0, types.ToolSpec{TimeEstimateMS: 3600000}))
}
