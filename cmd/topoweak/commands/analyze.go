package commands

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/osstelecom/topoweak/pkg/engine"
	"github.com/osstelecom/topoweak/pkg/impact"
	"github.com/osstelecom/topoweak/pkg/report"
	"github.com/osstelecom/topoweak/pkg/tui"
)

// sourceFlags are shared by every command that loads a topology.
type sourceFlags struct {
	format    string
	endpoints []string
	disabled  []string
	output    string
	out       string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "", "Source format: yaml, json, dot, hcl (default from extension)")
	cmd.Flags().StringSliceVar(&f.endpoints, "endpoint", nil, "Mark these nodes as endpoints")
	cmd.Flags().StringSliceVar(&f.disabled, "disable", nil, "Disable these nodes or connections")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "Output format: text, json, csv")
	cmd.Flags().StringVar(&f.out, "out", "", "Write output to a file or s3:// location instead of stdout")
}

func (f *sourceFlags) loadOptions() engine.LoadOptions {
	return engine.LoadOptions{Format: f.format, Endpoints: f.endpoints, Disabled: f.disabled}
}

// emit writes rendered output to --out, or to stdout.
func (f *sourceFlags) emit(cmd *cobra.Command, e *engine.Engine, render func(io.Writer) error) error {
	if f.out == "" {
		return render(cmd.OutOrStdout())
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	return e.Save(cmd.Context(), f.out, buf.Bytes())
}

var (
	analyzeSource sourceFlags
	analyzeTUI    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source>",
	Short: "Find weak nodes",
	Long: `Load a topology from a local file or s3://bucket/key and list the nodes
that lack enough independent routes to an endpoint.

Example:
  topoweak analyze metro.dot --endpoint core --limit 2 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(analyzeSource.output)
		if err != nil {
			return err
		}

		logOutput := cmd.ErrOrStderr()
		if analyzeTUI {
			// the full-screen view owns the terminal
			logOutput = io.Discard
		}
		e, err := newEngine(cmd, logOutput)
		if err != nil {
			return err
		}
		defer closeEngine(cmd, e)

		t, err := e.Load(cmd.Context(), args[0], analyzeSource.loadOptions())
		if err != nil {
			return err
		}

		p := e.Params()
		var r *impact.Report
		if analyzeTUI {
			r, err = tui.Run(cmd.Context(), t.Name, func(ctx context.Context, progress func(done, total int)) (*impact.Report, error) {
				p.Progress = progress
				return e.Analyze(ctx, t, p)
			})
		} else {
			r, err = e.Analyze(cmd.Context(), t, p)
		}
		if err != nil {
			return err
		}

		return analyzeSource.emit(cmd, e, func(w io.Writer) error {
			return report.Write(w, format, r)
		})
	},
}

func init() {
	analyzeSource.register(analyzeCmd)
	f := analyzeCmd.Flags()
	f.Int("limit", 2, "Independent routes a node needs to an endpoint")
	f.Int("workers", 4, "Goroutines draining the job queue")
	f.Bool("cache", true, "Reuse route counts within a run")
	f.Bool("exhaustive", false, "Also compute what each weak node cuts off")
	f.String("strategy", "maxflow", "Route counting strategy: maxflow, edge, naive")
	f.Duration("timeout", 0, "Abort the analysis after this long (default from config)")
	f.BoolVar(&analyzeTUI, "tui", false, "Show progress in a terminal view")

	rootCmd.AddCommand(analyzeCmd)
}
