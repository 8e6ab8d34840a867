package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osstelecom/topoweak/pkg/graph"
	"github.com/osstelecom/topoweak/pkg/impact"
)

func finishedReport(t *testing.T) *impact.Report {
	t.Helper()
	m := graph.NewMockFactory("tui")
	m.Chain("A", "B", "C")
	m.Link("D", "B")
	m.Endpoint("C")

	p := impact.DefaultParams()
	p.Exhaustive = true
	r, err := impact.NewManager(nil).WeakNodes(context.Background(), m.Topology, p)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_Progress(t *testing.T) {
	m := NewModel("metro")
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(m, ProgressMsg{Done: 3, Total: 12})

	if m.percent() != 0.25 {
		t.Errorf("expected 25%% done, got %v", m.percent())
	}
	view := m.View()
	for _, want := range []string{"metro", "ANALYZING", "3/12"} {
		if !strings.Contains(view, want) {
			t.Errorf("running view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_BrowseResult(t *testing.T) {
	m := NewModel("metro")
	m = update(m, DoneMsg{Report: finishedReport(t)})

	view := m.View()
	for _, want := range []string{"DONE", "A", "B", "D", "below_floor"} {
		if !strings.Contains(view, want) {
			t.Errorf("result view missing %q:\n%s", want, view)
		}
	}

	// cursor clamps at the last entry
	for i := 0; i < 10; i++ {
		m = update(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	if m.cursor != 2 {
		t.Errorf("expected cursor on last weak node, got %d", m.cursor)
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyUp})
	m = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.showDetails {
		t.Fatal("enter should open details")
	}
	if view := m.View(); !strings.Contains(view, "Failure isolates 2 node(s)") {
		t.Errorf("details of B should list its impact:\n%s", view)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil || !next.(Model).quitting {
		t.Error("q should quit")
	}
}

func TestModel_Failure(t *testing.T) {
	m := NewModel("metro")
	next, cmd := m.Update(DoneMsg{Err: errors.New("solver exploded")})
	if cmd == nil {
		t.Error("a failed analysis should quit the program")
	}
	if view := next.(Model).View(); !strings.Contains(view, "solver exploded") {
		t.Errorf("failure not shown:\n%s", view)
	}
	if _, err := next.(Model).Report(); err == nil {
		t.Error("expected the error to be kept")
	}
}
