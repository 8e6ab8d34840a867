package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osstelecom/topoweak/pkg/impact"
)

// AnalyzeFunc runs an analysis, reporting finished jobs through progress.
type AnalyzeFunc func(ctx context.Context, progress func(done, total int)) (*impact.Report, error)

// Run shows analyze in a full-screen program and returns its result once
// the user quits. Quitting early cancels the analysis.
func Run(ctx context.Context, title string, analyze AnalyzeFunc, opts ...tea.ProgramOption) (*impact.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)

	type outcome struct {
		report *impact.Report
		err    error
	}
	results := make(chan outcome, 1)
	go func() {
		r, err := analyze(ctx, func(done, total int) {
			p.Send(ProgressMsg{Done: done, Total: total})
		})
		results <- outcome{r, err}
		p.Send(DoneMsg{Report: r, Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-results
		return nil, err
	}
	cancel()
	res := <-results
	return res.report, res.err
}
