// Package engine wires the runtime: logging, telemetry, the topology
// registry, loaders and the impact manager.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/osstelecom/topoweak/pkg/config"
	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/impact"
	"github.com/osstelecom/topoweak/pkg/policy"
	"github.com/osstelecom/topoweak/pkg/registry"
	"github.com/osstelecom/topoweak/pkg/storage"
	"github.com/osstelecom/topoweak/pkg/telemetry"
	"github.com/osstelecom/topoweak/pkg/version"
)

// Engine is the runtime core.
type Engine struct {
	Registry registry.Store
	Manager  *impact.Manager
	Logger   *slog.Logger
	Tracer   trace.Tracer

	config    config.Config
	policy    *policy.Engine
	logOutput io.Writer
	logger    bool
	shutdown  func(context.Context) error

	mu      sync.Mutex
	sources map[string]source
}

// Option defines a functional configuration override.
type Option func(*Engine)

// WithConfig sets the configuration. Without it config.Default() is used.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithLogger sets the logger instead of building one from the log config.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.Logger = l
		e.logger = l != nil
	}
}

// WithLogOutput redirects the default handler, stderr otherwise.
func WithLogOutput(w io.Writer) Option {
	return func(e *Engine) { e.logOutput = w }
}

// WithRegistry replaces the in-memory registry.
func WithRegistry(s registry.Store) Option {
	return func(e *Engine) { e.Registry = s }
}

// New initializes the Engine.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Registry:  registry.NewMemoryStore(),
		Tracer:    otel.Tracer("topoweak/engine"),
		config:    config.Default(),
		logOutput: os.Stderr,
		sources:   make(map[string]source),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	if !e.logger {
		l, err := newLogger(e.logOutput, e.config.Log)
		if err != nil {
			return nil, err
		}
		e.Logger = l
	}
	slog.SetDefault(e.Logger)

	if !e.config.Telemetry.Disabled {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, e.config.Telemetry.Endpoint)
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
		}
	}

	pe, err := policy.NewEngine(e.Logger)
	if err != nil {
		return nil, err
	}
	if err := pe.Compile(policy.RulesFrom(e.config.Policy.EndpointRules, e.config.Policy.DisabledRules)); err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	e.policy = pe
	e.Manager = impact.NewManager(e.Logger)

	e.Logger.Debug("Engine initialized", "version", version.Current, "policy_rules", pe.Len(),
		"strategy", e.config.Analysis.Strategy, "workers", e.config.Analysis.Workers)
	return e, nil
}

// Config returns the active configuration.
func (e *Engine) Config() config.Config { return e.config }

// Params returns the configured analysis parameters.
func (e *Engine) Params() impact.Params { return e.config.Params() }

// StorageOptions returns the configured blob store options.
func (e *Engine) StorageOptions() storage.Options {
	return storage.Options{
		Region:       e.config.Storage.Region,
		Endpoint:     e.config.Storage.Endpoint,
		UsePathStyle: e.config.Storage.UsePathStyle,
	}
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// Analyze runs a weak-node analysis of t under the configured timeout. A
// panic anywhere below is turned into an error.
func (e *Engine) Analyze(ctx context.Context, t *graph.Topology, p impact.Params) (r *impact.Report, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Analyze", trace.WithAttributes(
		attribute.String("topology", t.UUID.String()),
	))
	defer span.End()
	defer e.recoverPanic(ctx, &err)

	if d := e.config.Analysis.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	r, err = e.Manager.WeakNodes(ctx, t, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return r, err
}

// Unreachable lists the unreachable nodes and connections of t.
func (e *Engine) Unreachable(ctx context.Context, t *graph.Topology) ([]*graph.Node, []*graph.Connection) {
	return e.Manager.Unreachable(ctx, t)
}

// Save writes data to a local path or s3:// location.
func (e *Engine) Save(ctx context.Context, dest string, data []byte) error {
	if err := storage.Write(ctx, dest, data, e.StorageOptions()); err != nil {
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	e.Logger.Info("Output saved", "dest", dest, "bytes", len(data))
	return nil
}

// recoverPanic handles failures.
func (e *Engine) recoverPanic(ctx context.Context, err *error) {
	r := recover()
	if r == nil {
		return
	}
	_, span := e.Tracer.Start(ctx, "CriticalPanic")
	stack := debug.Stack()

	span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
	span.SetStatus(codes.Error, "CRITICAL FAILURE")
	span.SetAttributes(
		attribute.String("crash.stack", string(stack)),
		attribute.String("crash.reason", fmt.Sprintf("%v", r)),
	)
	span.End()

	e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))
	*err = fmt.Errorf("analysis panicked: %v", r)
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redactSensitiveData}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

var sensitiveKeys = map[string]bool{
	"password": true, "access_key": true, "token": true,
	"secret": true, "api_key": true, "private_key": true, "auth_token": true,
	"refresh_token": true, "certificate": true, "signature": true,
	"credential": true, "ssh_key": true, "connection_string": true,
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
