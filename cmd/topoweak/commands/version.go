package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/osstelecom/topoweak/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s/%s, %s)\n", version.AppName, version.Current, runtime.GOOS, runtime.GOARCH, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
