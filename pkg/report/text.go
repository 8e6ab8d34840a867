package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CCFF")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

func writeText(w io.Writer, s Summary) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Weak nodes of %s", s.Name)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("topology %s | strategy %s | limit %d | jobs %d (%d failed, %d cached) | %s",
		s.Topology, s.Strategy, s.ConnectionLimit, s.Jobs, s.FailedJobs, s.CacheHits,
		time.Duration(s.DurationMS)*time.Millisecond)))
	b.WriteString("\n\n")

	if len(s.Weak) == 0 {
		b.WriteString("No weak nodes.\n")
		writeUnverified(&b, s.Unverified)
		_, err := io.WriteString(w, b.String())
		return err
	}

	rows := make([][]string, 0, len(s.Weak))
	for _, e := range s.Weak {
		rows = append(rows, []string{e.Name, strconv.Itoa(e.Connections), strings.Join(e.Reasons, ", "), strings.Join(e.Impact, ", ")})
	}
	b.WriteString(render([]string{"NODE", "CONNECTIONS", "REASON", "IMPACT"}, rows))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d weak, %d impacted", len(s.Weak), len(s.Impacted))))
	b.WriteString("\n")
	writeUnverified(&b, s.Unverified)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeUnverified(b *strings.Builder, nodes []string) {
	if len(nodes) == 0 {
		return
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("unverified (failed jobs): %s", strings.Join(nodes, ", "))))
	b.WriteString("\n")
}

func writeUnreachableText(w io.Writer, u UnreachableSet) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Unreachable objects of %s", u.Name)))
	b.WriteString("\n\n")
	if len(u.Nodes) == 0 {
		b.WriteString("Every node reaches an endpoint.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	rows := make([][]string, 0, len(u.Nodes)+len(u.Connections))
	for _, n := range u.Nodes {
		rows = append(rows, []string{"node", n})
	}
	for _, c := range u.Connections {
		rows = append(rows, []string{"connection", c})
	}
	b.WriteString(render([]string{"KIND", "NAME"}, rows))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func render(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
