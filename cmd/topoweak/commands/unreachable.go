package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/osstelecom/topoweak/pkg/report"
)

var unreachableSource sourceFlags

var unreachableCmd = &cobra.Command{
	Use:   "unreachable <source>",
	Short: "List nodes and connections that reach no endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(unreachableSource.output)
		if err != nil {
			return err
		}
		e, err := newEngine(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeEngine(cmd, e)

		t, err := e.Load(cmd.Context(), args[0], unreachableSource.loadOptions())
		if err != nil {
			return err
		}
		nodes, conns := e.Unreachable(cmd.Context(), t)
		u := report.NewUnreachableSet(t, nodes, conns)
		return unreachableSource.emit(cmd, e, func(w io.Writer) error {
			return report.WriteUnreachable(w, format, u)
		})
	},
}

func init() {
	unreachableSource.register(unreachableCmd)
	rootCmd.AddCommand(unreachableCmd)
}
