// Package report renders weak-node and reachability results as text
// tables, JSON or CSV.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/impact"
)

var ErrUnknownFormat = errors.New("unknown output format")

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts text, json and csv; empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Reasons a node ended up weak.
const (
	ReasonUnreachable       = "unreachable"
	ReasonBelowFloor        = "below_floor"
	ReasonUnverified        = "unverified"
	ReasonInsufficientPaths = "insufficient_paths"
)

// WeakEntry is one weak node in an exported report.
type WeakEntry struct {
	Name        string   `json:"name"`
	Connections int      `json:"connections"`
	Reasons     []string `json:"reasons"`
	Impact      []string `json:"impact,omitempty"`
}

// Summary is the exported form of an impact.Report.
type Summary struct {
	Topology        string      `json:"topology"`
	Name            string      `json:"name"`
	Strategy        string      `json:"strategy"`
	ConnectionLimit int         `json:"connection_limit"`
	Jobs            int         `json:"jobs"`
	FailedJobs      int         `json:"failed_jobs"`
	CacheHits       int         `json:"cache_hits"`
	DurationMS      int64       `json:"duration_ms"`
	Weak            []WeakEntry `json:"weak"`
	Impacted        []string    `json:"impacted,omitempty"`
	// Unverified lists every node with a failed job, weak or not.
	Unverified      []string    `json:"unverified,omitempty"`
}

// Summarize flattens r into plain names.
func Summarize(r *impact.Report) Summary {
	unreachable := set(r.Unreachable)
	belowFloor := set(r.BelowFloor)
	unverified := set(r.Unverified)

	s := Summary{
		Topology:        r.Topology.String(),
		Name:            r.TopologyName,
		Strategy:        string(r.Strategy),
		ConnectionLimit: r.ConnectionLimit,
		Jobs:            r.Jobs,
		FailedJobs:      r.FailedJobs,
		CacheHits:       r.CacheHits,
		DurationMS:      r.Duration.Milliseconds(),
		Weak:            make([]WeakEntry, 0, len(r.Weak)),
		Impacted:        names(r.Impacted),
		Unverified:      names(r.Unverified),
	}
	for _, n := range r.Weak {
		e := WeakEntry{Name: n.Name, Connections: n.ConnectionCount(), Impact: names(r.Impact[n])}
		switch {
		case unreachable[n]:
			e.Reasons = append(e.Reasons, ReasonUnreachable)
		case belowFloor[n]:
			e.Reasons = append(e.Reasons, ReasonBelowFloor)
		default:
			if unverified[n] {
				e.Reasons = append(e.Reasons, ReasonUnverified)
			} else {
				e.Reasons = append(e.Reasons, ReasonInsufficientPaths)
			}
		}
		s.Weak = append(s.Weak, e)
	}
	return s
}

// Write renders r in the given format.
func Write(w io.Writer, format Format, r *impact.Report) error {
	s := Summarize(r)
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatCSV:
		return writeCSV(w, s)
	case FormatText, "":
		return writeText(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// UnreachableSet is the result of a reachability-only query.
type UnreachableSet struct {
	Topology    string   `json:"topology"`
	Name        string   `json:"name"`
	Nodes       []string `json:"nodes"`
	Connections []string `json:"connections"`
}

// NewUnreachableSet names the given nodes and connections of t.
func NewUnreachableSet(t *graph.Topology, nodes []*graph.Node, conns []*graph.Connection) UnreachableSet {
	u := UnreachableSet{
		Topology:    t.UUID.String(),
		Name:        t.Name,
		Nodes:       make([]string, 0, len(nodes)),
		Connections: make([]string, 0, len(conns)),
	}
	u.Nodes = append(u.Nodes, names(nodes)...)
	for _, c := range conns {
		u.Connections = append(u.Connections, c.Name)
	}
	return u
}

// WriteUnreachable renders u in the given format.
func WriteUnreachable(w io.Writer, format Format, u UnreachableSet) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, u)
	case FormatCSV:
		return writeUnreachableCSV(w, u)
	case FormatText, "":
		return writeUnreachableText(w, u)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func set(nodes []*graph.Node) map[*graph.Node]bool {
	m := make(map[*graph.Node]bool, len(nodes))
	for _, n := range nodes {
		m[n] = true
	}
	return m
}

func names(nodes []*graph.Node) []string {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
