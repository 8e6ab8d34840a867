package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting && m.running {
		return subtle.Render("Analysis cancelled.") + "\n"
	}

	var s strings.Builder
	s.WriteString(m.viewHUD())
	s.WriteString("\n")

	switch {
	case m.err != nil:
		s.WriteString(danger.Render("Analysis failed: ") + m.err.Error() + "\n")
	case m.running:
		s.WriteString(m.viewRunning())
	default:
		s.WriteString(m.viewList())
		if m.showDetails {
			s.WriteString(m.viewDetails())
		}
		s.WriteString("\n" + subtle.Render("↑/↓ select • enter details • q quit") + "\n")
	}
	return s.String()
}

func (m Model) viewHUD() string {
	status := special.Render("DONE")
	if m.running {
		status = special.Render("ANALYZING" + strings.Repeat(".", m.done%4))
	} else if m.err != nil {
		status = danger.Render("FAILED")
	}

	segTitle := highlight.Render(m.title)
	segStatus := hudLabelStyle.Render("STATUS:") + status
	segJobs := hudLabelStyle.Render("JOBS:") + hudValueStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total))
	segWeak := hudLabelStyle.Render("WEAK:") + hudValueStyle.Render(fmt.Sprintf("%d", len(m.summary.Weak)))

	content := lipgloss.JoinHorizontal(lipgloss.Center, segTitle, "  ", segStatus, "  |  ", segJobs, "  |  ", segWeak)
	if m.width > 2 {
		return hudStyle.Width(m.width - 2).Render(content)
	}
	return hudStyle.Render(content)
}

func (m Model) viewRunning() string {
	elapsed := time.Since(m.start).Round(time.Second)
	return fmt.Sprintf("\n   %s Counting disjoint routes to endpoints (%s)\n\n   %s\n",
		m.spinner.View(), elapsed, m.progress.ViewAs(m.percent()))
}

func (m Model) viewList() string {
	weak := m.summary.Weak
	if len(weak) == 0 {
		return "\n   " + special.Render("[SAFE]") + subtle.Render("  Every node keeps enough routes to an endpoint.") + "\n"
	}

	var s strings.Builder
	s.WriteString(subtle.Render(fmt.Sprintf("  %-24s | %-11s | %s", "NODE", "CONNECTIONS", "REASON")) + "\n")
	s.WriteString(subtle.Render("  "+strings.Repeat("─", 60)) + "\n")

	start, end := m.window(len(weak))
	for i := start; i < end; i++ {
		e := weak[i]
		name := e.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		line := fmt.Sprintf("%-24s | %-11d | %s", name, e.Connections, strings.Join(e.Reasons, ", "))
		if len(e.Impact) > 0 {
			line = warning.Render(line)
		}
		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render("  "+line) + "\n")
		}
	}
	return s.String()
}

func (m Model) viewDetails() string {
	if m.cursor >= len(m.summary.Weak) {
		return ""
	}
	e := m.summary.Weak[m.cursor]

	var s strings.Builder
	s.WriteString(detailsHeaderStyle.Render(e.Name) + "\n")
	s.WriteString(fmt.Sprintf("Connections: %d\n", e.Connections))
	s.WriteString(fmt.Sprintf("Reason:      %s\n", strings.Join(e.Reasons, ", ")))
	if len(e.Impact) > 0 {
		s.WriteString(danger.Render(fmt.Sprintf("Failure isolates %d node(s):", len(e.Impact))) + "\n")
		for _, n := range e.Impact {
			s.WriteString("  - " + n + "\n")
		}
	} else {
		s.WriteString(subtle.Render("No other node depends on it alone.") + "\n")
	}
	return detailsBoxStyle.Render(s.String()) + "\n"
}

func (m Model) window(total int) (int, int) {
	size := m.height - 8
	if size < 5 {
		size = 5
	}
	start := m.cursor - size/2
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}
