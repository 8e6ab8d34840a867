package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/osstelecom/topoweak/pkg/codec"
	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/storage"
	"github.com/osstelecom/topoweak/pkg/watcher"
)

// LoadOptions adjust how a topology source is read.
type LoadOptions struct {
	// Format overrides detection from the file extension.
	Format    string
	Endpoints []string
	Disabled  []string
	// ID pins the topology uuid. Zero derives it from the document id or,
	// failing that, from the source reference so reloads keep the same uuid.
	ID uuid.UUID
}

type source struct {
	ref  string
	opts LoadOptions
}

// Build applies the policy rules to doc and creates its topology. The
// topology is not registered.
func (e *Engine) Build(doc *codec.Document, opts LoadOptions) (*graph.Topology, error) {
	e.policy.Apply(doc)
	t, err := doc.Build(codec.BuildOptions{
		ID:        opts.ID,
		Endpoints: opts.Endpoints,
		Disabled:  opts.Disabled,
		Logger:    e.Logger,
	})
	if err != nil {
		return nil, err
	}
	t.AddListener(graph.LogListener{Logger: e.Logger})
	return t, nil
}

// Decode parses data in the named format, or the format implied by ref.
func Decode(ref, format string, data []byte) (*codec.Document, error) {
	var (
		f   codec.Format
		err error
	)
	if format != "" {
		f, err = codec.ParseFormat(format)
	} else {
		f, err = codec.FormatFromPath(ref)
	}
	if err != nil {
		return nil, err
	}
	return codec.Decode(f, ref, data)
}

// Load reads a topology from a local path or s3:// location, builds it and
// registers it. Loading the same source again replaces the registered
// topology.
func (e *Engine) Load(ctx context.Context, ref string, opts LoadOptions) (*graph.Topology, error) {
	_, span := e.Tracer.Start(ctx, "Engine.Load")
	defer span.End()

	data, err := storage.Read(ctx, ref, e.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to read topology %s: %w", ref, err)
	}
	doc, err := Decode(ref, opts.Format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode topology %s: %w", ref, err)
	}
	if doc.Name == "" {
		doc.Name = filepath.Base(ref)
	}
	if opts.ID == uuid.Nil && doc.ID == "" {
		opts.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(ref))
	}

	t, err := e.Build(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build topology %s: %w", ref, err)
	}
	e.Registry.Add(t)

	e.mu.Lock()
	e.sources[sourceKey(ref)] = source{ref: ref, opts: opts}
	e.mu.Unlock()

	nodes, conns := t.Len()
	e.Logger.Info("Topology loaded", "source", ref, "topology", t.UUID, "name", t.Name,
		"nodes", nodes, "connections", conns)
	return t, nil
}

// LoadAll loads every topology behind ref, which names a single source, a
// local directory or an s3:// prefix ending in "/". Listed objects without a
// known format are skipped unless opts.Format is set.
func (e *Engine) LoadAll(ctx context.Context, ref string, opts LoadOptions) ([]*graph.Topology, error) {
	refs, err := storage.Expand(ctx, ref, e.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to list topologies in %s: %w", ref, err)
	}

	var loaded []*graph.Topology
	for _, r := range refs {
		if r != ref && opts.Format == "" {
			if _, err := codec.FormatFromPath(r); err != nil {
				e.Logger.Debug("Skipping object with unknown format", "source", r)
				continue
			}
		}
		t, err := e.Load(ctx, r, opts)
		if err != nil {
			return loaded, err
		}
		loaded = append(loaded, t)
	}
	if len(loaded) == 0 {
		e.Logger.Warn("No topologies found", "source", ref)
	}
	return loaded, nil
}

// Reload loads a previously loaded source again with its original options.
func (e *Engine) Reload(ctx context.Context, ref string) (*graph.Topology, error) {
	e.mu.Lock()
	src, ok := e.sources[sourceKey(ref)]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s was never loaded", ref)
	}
	return e.Load(ctx, src.ref, src.opts)
}

// Watch reloads local sources whenever they change, until ctx ends.
func (e *Engine) Watch(ctx context.Context) error {
	e.mu.Lock()
	var paths []string
	for key, src := range e.sources {
		if loc, err := storage.ParseLocation(src.ref); err == nil && !loc.IsS3() {
			paths = append(paths, key)
		}
	}
	e.mu.Unlock()
	if len(paths) == 0 {
		e.Logger.Warn("Nothing to watch: no local topology sources loaded")
		<-ctx.Done()
		return ctx.Err()
	}
	sort.Strings(paths)

	w := watcher.New(paths, func(path string) {
		if _, err := e.Reload(ctx, path); err != nil {
			e.Logger.Error("Reload failed, keeping previous topology", "source", path, "error", err)
		}
	}, watcher.WithDebounce(e.config.Server.Debounce), watcher.WithLogger(e.Logger))
	return w.Watch(ctx)
}

func sourceKey(ref string) string {
	if loc, err := storage.ParseLocation(ref); err == nil && loc.IsS3() {
		return ref
	}
	if abs, err := filepath.Abs(ref); err == nil {
		return abs
	}
	return ref
}
