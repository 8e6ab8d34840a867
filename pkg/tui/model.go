// Package tui shows a running weak-node analysis and browses its result.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osstelecom/topoweak/pkg/impact"
	"github.com/osstelecom/topoweak/pkg/report"
)

// ProgressMsg reports finished jobs of the running analysis.
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg carries the outcome of the analysis.
type DoneMsg struct {
	Report *impact.Report
	Err    error
}

type Model struct {
	spinner  spinner.Model
	progress progress.Model

	title    string
	running  bool
	quitting bool
	width    int
	height   int

	done  int
	total int
	start time.Time

	report  *impact.Report
	summary report.Summary
	err     error

	cursor      int
	showDetails bool
}

func NewModel(title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	return Model{
		spinner:  s,
		progress: progress.New(progress.WithGradient("#00FF99", "#00CCFF")),
		title:    title,
		running:  true,
		start:    time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Report returns the finished report, if any.
func (m Model) Report() (*impact.Report, error) { return m.report, m.err }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.summary.Weak)-1 {
				m.cursor++
			}
		case "enter", " ":
			if len(m.summary.Weak) > 0 {
				m.showDetails = !m.showDetails
			}
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = max(msg.Width-20, 10)

	case ProgressMsg:
		m.done, m.total = msg.Done, msg.Total

	case DoneMsg:
		m.running = false
		m.report, m.err = msg.Report, msg.Err
		if msg.Err != nil {
			return m, tea.Quit
		}
		m.summary = report.Summarize(msg.Report)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}
