// Package server exposes topology analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/codec"
	"github.com/osstelecom/topoweak/pkg/engine"
	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/impact"
	"github.com/osstelecom/topoweak/pkg/registry"
	"github.com/osstelecom/topoweak/pkg/report"
	"github.com/osstelecom/topoweak/pkg/version"
)

var errBadRequest = errors.New("bad request")

// Server serves the topology API backed by an engine.
type Server struct {
	app    *fiber.App
	engine *engine.Engine
	logger *slog.Logger
}

// New registers every route on a fresh fiber app.
func New(e *engine.Engine) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{AppName: version.AppName + " " + version.Current}),
		engine: e,
		logger: e.Logger.With("component", "server"),
	}

	s.app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "topologies": e.Registry.Len()})
	})

	v1 := s.app.Group("/topology/v1")
	v1.Get("/", s.listTopologies)
	v1.Post("/transient", s.transient)
	v1.Get("/:uuid/weak", s.weakNodes)
	v1.Get("/:uuid/unreachable", s.unreachable)
	return s
}

// App exposes the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	s.logger.Info("HTTP API listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.logger.Info("HTTP API shutting down")
		return s.app.Shutdown()
	}
}

// TopologyInfo describes a registered topology.
type TopologyInfo struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Nodes       int    `json:"nodes"`
	Connections int    `json:"connections"`
	Endpoints   int    `json:"endpoints"`
}

func (s *Server) listTopologies(c fiber.Ctx) error {
	list := s.engine.Registry.List()
	out := make([]TopologyInfo, 0, len(list))
	for _, t := range list {
		nodes, conns := t.Len()
		out = append(out, TopologyInfo{
			UUID:        t.UUID.String(),
			Name:        t.Name,
			Nodes:       nodes,
			Connections: conns,
			Endpoints:   len(t.Endpoints()),
		})
	}
	return c.JSON(out)
}

func (s *Server) lookup(c fiber.Ctx) (*graph.Topology, error) {
	id, err := uuid.Parse(c.Params("uuid"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid topology uuid %q", errBadRequest, c.Params("uuid"))
	}
	return s.engine.Registry.Get(id)
}

func (s *Server) weakNodes(c fiber.Ctx) error {
	t, err := s.lookup(c)
	if err != nil {
		return s.fail(c, err)
	}
	p, err := s.params(c)
	if err != nil {
		return s.fail(c, err)
	}
	r, err := s.engine.Analyze(c.Context(), t, p)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(report.Summarize(r))
}

func (s *Server) unreachable(c fiber.Ctx) error {
	t, err := s.lookup(c)
	if err != nil {
		return s.fail(c, err)
	}
	nodes, conns := s.engine.Unreachable(c.Context(), t)
	return c.JSON(report.NewUnreachableSet(t, nodes, conns))
}

// TransientRequest describes a what-if topology analysed once and dropped.
type TransientRequest struct {
	Name string `json:"name"`
	// Format is dot, yaml, json or hcl.
	Format    string   `json:"format"`
	Document  string   `json:"document"`
	Endpoints []string `json:"endpoints"`
	Disabled  []string `json:"disabled"`

	ConnectionLimit *int   `json:"connection_limit,omitempty"`
	Strategy        string `json:"strategy,omitempty"`
	Exhaustive      bool   `json:"exhaustive,omitempty"`
}

// TransientResponse names the unreachable and weak objects.
type TransientResponse struct {
	Unreachable report.UnreachableSet `json:"unreachable"`
	Weak        report.Summary        `json:"weak"`
}

func (s *Server) transient(c fiber.Ctx) error {
	var req TransientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return s.fail(c, fmt.Errorf("%w: invalid body: %v", errBadRequest, err))
	}
	if strings.TrimSpace(req.Document) == "" {
		return s.fail(c, fmt.Errorf("%w: document is required", errBadRequest))
	}
	format := req.Format
	if format == "" {
		format = string(codec.FormatDOT)
	}

	doc, err := engine.Decode("transient", format, []byte(req.Document))
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}
	if req.Name != "" {
		doc.Name = req.Name
	}
	t, err := s.engine.Build(doc, engine.LoadOptions{ID: uuid.New(), Endpoints: req.Endpoints, Disabled: req.Disabled})
	if err != nil {
		return s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
	}

	p := s.engine.Params()
	if req.ConnectionLimit != nil {
		p.ConnectionLimit = *req.ConnectionLimit
	}
	if req.Strategy != "" {
		p.Strategy = algorithm.Strategy(req.Strategy)
	}
	p.Exhaustive = req.Exhaustive

	s.engine.Registry.Add(t)
	defer s.engine.Registry.Remove(t)

	nodes, conns := s.engine.Unreachable(c.Context(), t)
	r, err := s.engine.Analyze(c.Context(), t, p)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(TransientResponse{
		Unreachable: report.NewUnreachableSet(t, nodes, conns),
		Weak:        report.Summarize(r),
	})
}

// params overlays query parameters on the configured defaults.
func (s *Server) params(c fiber.Ctx) (impact.Params, error) {
	p := s.engine.Params()
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &impact.InvalidParameterError{Param: "limit", Value: v, Reason: "not an integer"}
		}
		p.ConnectionLimit = n
	}
	if v := c.Query("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &impact.InvalidParameterError{Param: "workers", Value: v, Reason: "not an integer"}
		}
		p.Workers = n
	}
	if v := c.Query("cache"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, &impact.InvalidParameterError{Param: "cache", Value: v, Reason: "not a boolean"}
		}
		p.UseCache = b
	}
	if v := c.Query("exhaustive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, &impact.InvalidParameterError{Param: "exhaustive", Value: v, Reason: "not a boolean"}
		}
		p.Exhaustive = b
	}
	if v := c.Query("strategy"); v != "" {
		p.Strategy = algorithm.Strategy(v)
	}
	return p, p.Validate()
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, registry.ErrTopologyNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, impact.ErrInvalidParameter):
		status = fiber.StatusBadRequest
	case errors.Is(err, algorithm.ErrRunIncomplete):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.Path(), "status", status, "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
