package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/osstelecom/topoweak/pkg/graph"
)

// IncomingEntry is a node and the number of connections arriving at it.
type IncomingEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats describes the shape of a topology.
type Stats struct {
	Topology         string          `json:"topology"`
	Name             string          `json:"name"`
	Nodes            int             `json:"nodes"`
	Connections      int             `json:"connections"`
	Endpoints        int             `json:"endpoints"`
	EndpointLinks    int             `json:"endpoint_links"`
	InactiveNodes    int             `json:"inactive_nodes"`
	Components       int             `json:"components"`
	LargestComponent int             `json:"largest_component"`
	TopIncoming      []IncomingEntry `json:"top_incoming"`
}

// NewStats counts the objects of t and lists its top most connected nodes.
func NewStats(t *graph.Topology, top int) Stats {
	nodes, conns := t.Len()
	s := Stats{
		Topology:    t.UUID.String(),
		Name:        t.Name,
		Nodes:       nodes,
		Connections: conns,
		Endpoints:   len(t.Endpoints()),
	}
	for _, n := range t.Nodes() {
		if !n.IsActive() {
			s.InactiveNodes++
		}
	}
	for _, c := range t.Connections() {
		if c.LeadsToEndpoint() {
			s.EndpointLinks++
		}
	}
	components := t.View().Components()
	s.Components = len(components)
	if len(components) > 0 {
		s.LargestComponent = len(components[0])
	}
	for _, ic := range t.TopIncoming(top) {
		s.TopIncoming = append(s.TopIncoming, IncomingEntry{Name: ic.Node.Name, Count: ic.Count})
	}
	return s
}

// WriteStats renders s in the given format.
func WriteStats(w io.Writer, format Format, s Stats) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatCSV:
		return writeStatsCSV(w, s)
	case FormatText, "":
		return writeStatsText(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func writeStatsText(w io.Writer, s Stats) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Topology %s", s.Name)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(s.Topology))
	b.WriteString("\n\n")
	b.WriteString(render([]string{"METRIC", "VALUE"}, [][]string{
		{"nodes", strconv.Itoa(s.Nodes)},
		{"connections", strconv.Itoa(s.Connections)},
		{"endpoints", strconv.Itoa(s.Endpoints)},
		{"endpoint links", strconv.Itoa(s.EndpointLinks)},
		{"inactive nodes", strconv.Itoa(s.InactiveNodes)},
		{"components", strconv.Itoa(s.Components)},
		{"largest component", strconv.Itoa(s.LargestComponent)},
	}))
	b.WriteString("\n")
	if len(s.TopIncoming) > 0 {
		rows := make([][]string, 0, len(s.TopIncoming))
		for _, e := range s.TopIncoming {
			rows = append(rows, []string{e.Name, strconv.Itoa(e.Count)})
		}
		b.WriteString(render([]string{"NODE", "INCOMING"}, rows))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeStatsCSV(w io.Writer, s Stats) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"metric", "value"},
		{"nodes", strconv.Itoa(s.Nodes)},
		{"connections", strconv.Itoa(s.Connections)},
		{"endpoints", strconv.Itoa(s.Endpoints)},
		{"endpoint_links", strconv.Itoa(s.EndpointLinks)},
		{"inactive_nodes", strconv.Itoa(s.InactiveNodes)},
		{"components", strconv.Itoa(s.Components)},
		{"largest_component", strconv.Itoa(s.LargestComponent)},
	}
	for _, e := range s.TopIncoming {
		records = append(records, []string{"incoming:" + e.Name, strconv.Itoa(e.Count)})
	}
	if err := cw.WriteAll(records); err != nil {
		return err
	}
	return cw.Error()
}
