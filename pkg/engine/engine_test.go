package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/config"
	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/impact"
	"github.com/osstelecom/topoweak/pkg/registry"
)

const chainYAML = `name: chain
nodes:
  - name: A
    attributes:
      role: access
  - name: B
  - name: C
    attributes:
      role: core
connections:
  - source: A
    target: B
  - source: B
    target: C
`

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Telemetry.Disabled = true
	cfg.Policy.EndpointRules = []string{`has(attributes.role) && attributes.role == "core"`}
	return cfg
}

func newTestEngine(t *testing.T, cfg config.Config) (*Engine, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	e, err := New(context.Background(), WithConfig(cfg), WithLogOutput(&logs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e, &logs
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestEngine_LoadAndAnalyze(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	path := writeFile(t, t.TempDir(), "chain.yaml", chainYAML)

	topo, err := e.Load(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chain", topo.Name)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)), topo.UUID)

	got, err := e.Registry.Get(topo.UUID)
	require.NoError(t, err)
	assert.Same(t, topo, got)

	c, _ := topo.NodeByName("C")
	assert.True(t, c.IsEndpoint(), "policy rule marks core nodes as endpoints")

	r, err := e.Analyze(context.Background(), topo, e.Params())
	require.NoError(t, err)
	var weak []string
	for _, n := range r.Weak {
		weak = append(weak, n.Name)
	}
	assert.Equal(t, []string{"A", "B"}, weak)
}

func TestEngine_ReloadKeepsIdentity(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.yaml", chainYAML)

	first, err := e.Load(context.Background(), path, LoadOptions{Endpoints: []string{"A"}})
	require.NoError(t, err)

	writeFile(t, dir, "chain.yaml", chainYAML+"  - source: A\n    target: C\n")
	second, err := e.Reload(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, 1, e.Registry.Len())
	_, conns := second.Len()
	assert.Equal(t, 3, conns)
	a, _ := second.NodeByName("A")
	assert.True(t, a.IsEndpoint(), "reload reuses the original options")

	_, err = e.Reload(context.Background(), filepath.Join(dir, "other.yaml"))
	assert.Error(t, err)
}

func TestEngine_LoadErrors(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	dir := t.TempDir()

	_, err := e.Load(context.Background(), filepath.Join(dir, "missing.yaml"), LoadOptions{})
	assert.Error(t, err)

	path := writeFile(t, dir, "topology.txt", "whatever")
	_, err = e.Load(context.Background(), path, LoadOptions{})
	assert.Error(t, err)

	topo, err := e.Load(context.Background(), path, LoadOptions{Format: "dot"})
	assert.Error(t, err, "not a dot graph either")
	assert.Nil(t, topo)

	dot := writeFile(t, dir, "ring.txt", "graph ring { a -- b; b -- c; c -- a; }")
	topo, err = e.Load(context.Background(), dot, LoadOptions{Format: "dot", Endpoints: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "ring", topo.Name)
}

func TestEngine_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Timeout = time.Nanosecond
	e, _ := newTestEngine(t, cfg)

	m := graph.NewMockFactory("diamond")
	m.Diamond("S", "L", "R", "E")
	time.Sleep(time.Millisecond)

	_, err := e.Analyze(context.Background(), m.Topology, e.Params())
	assert.ErrorIs(t, err, algorithm.ErrRunIncomplete)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_RecoverPanic(t *testing.T) {
	e, logs := newTestEngine(t, testConfig())
	err := func() (err error) {
		defer e.recoverPanic(context.Background(), &err)
		panic("flow network corrupted")
	}()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow network corrupted")
	assert.Contains(t, logs.String(), "CRITICAL FAILURE")
}

func TestEngine_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Analysis.Workers = 0
	_, err := New(context.Background(), WithConfig(cfg))
	assert.ErrorIs(t, err, impact.ErrInvalidParameter)

	cfg = testConfig()
	cfg.Policy.DisabledRules = []string{"degree +"}
	_, err = New(context.Background(), WithConfig(cfg))
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Log.Level = "chatty"
	_, err = New(context.Background(), WithConfig(cfg))
	assert.Error(t, err)
}

func TestEngine_RedactsSecrets(t *testing.T) {
	e, logs := newTestEngine(t, testConfig())
	e.Logger.Info("Storage configured", "token", "abc123", "Secret", "hunter2", "bucket", "inventory")

	var entry map[string]any
	lines := bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n"))
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	assert.Equal(t, "[REDACTED]", entry["token"])
	assert.Equal(t, "[REDACTED]", entry["Secret"])
	assert.Equal(t, "inventory", entry["bucket"])
}

func TestEngine_Options(t *testing.T) {
	store := registry.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	e, err := New(context.Background(), WithConfig(testConfig()), WithRegistry(store), WithLogger(logger))
	require.NoError(t, err)
	assert.Same(t, store, e.Registry)
	assert.Same(t, logger, e.Logger)
	assert.Equal(t, "us-east-1", e.StorageOptions().Region)
}

func TestEngine_Save(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	dest := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, e.Save(context.Background(), dest, []byte("{}")))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	err = e.Save(context.Background(), "s3:///nobucket", nil)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestEngine_WatchReloads(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Debounce = 50 * time.Millisecond
	e, _ := newTestEngine(t, cfg)
	dir := t.TempDir()
	path := writeFile(t, dir, "chain.yaml", chainYAML)

	topo, err := e.Load(context.Background(), path, LoadOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Watch(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		writeFile(t, dir, "chain.yaml", chainYAML+"  - source: A\n    target: C\n")
		time.Sleep(200 * time.Millisecond)
		current, err := e.Registry.Get(topo.UUID)
		require.NoError(t, err)
		if _, conns := current.Len(); conns == 3 {
			return
		}
	}
	t.Fatal("watched source was never reloaded")
}

func TestEngine_TelemetryEnabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg := testConfig()
	cfg.Telemetry.Disabled = false

	e, logs := newTestEngine(t, cfg)
	require.NotNil(t, e.shutdown, "tracer provider was not installed")
	assert.NotContains(t, logs.String(), "Telemetry failed")

	topo := graph.NewTopology("traced")
	_, err := e.Analyze(context.Background(), topo, e.Params())
	require.NoError(t, err)
	assert.NoError(t, e.Close(context.Background()))
}

func TestEngine_LoadAllDirectory(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	dir := t.TempDir()
	first := writeFile(t, dir, "a-chain.yaml", chainYAML)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "access"), 0700))
	second := writeFile(t, dir, filepath.Join("access", "b-chain.yaml"), chainYAML)
	writeFile(t, dir, "README.txt", "not a topology")

	loaded, err := e.LoadAll(context.Background(), dir, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte(first)), loaded[0].UUID)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte(second)), loaded[1].UUID)
	assert.Equal(t, 2, e.Registry.Len())

	_, err = e.Reload(context.Background(), first)
	assert.NoError(t, err, "every listed file is registered as its own source")

	single, err := e.LoadAll(context.Background(), first, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, 2, e.Registry.Len())

	_, err = e.LoadAll(context.Background(), filepath.Join(dir, "README.txt"), LoadOptions{})
	assert.Error(t, err, "a named file with an unknown format is not skipped")
}
