package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/osstelecom/topoweak/pkg/report"
)

var (
	statsSource sourceFlags
	statsTop    int
)

var statsCmd = &cobra.Command{
	Use:   "stats <source>",
	Short: "Summarize the shape of a topology",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(statsSource.output)
		if err != nil {
			return err
		}
		e, err := newEngine(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeEngine(cmd, e)

		t, err := e.Load(cmd.Context(), args[0], statsSource.loadOptions())
		if err != nil {
			return err
		}
		s := report.NewStats(t, statsTop)
		return statsSource.emit(cmd, e, func(w io.Writer) error {
			return report.WriteStats(w, format, s)
		})
	},
}

func init() {
	statsSource.register(statsCmd)
	statsCmd.Flags().IntVar(&statsTop, "top", 5, "Number of most connected nodes to list")
	rootCmd.AddCommand(statsCmd)
}
