package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/osstelecom/topoweak/pkg/config"
	"github.com/osstelecom/topoweak/pkg/engine"
	"github.com/osstelecom/topoweak/pkg/version"
)

var (
	cfgFile string
	v       = config.NewViper()
)

// flagKeys maps command flags onto config keys. Only the flags of the
// command being run are bound, so analyze and serve can share keys.
var flagKeys = map[string]string{
	"limit":         "analysis.connection_limit",
	"workers":       "analysis.workers",
	"cache":         "analysis.use_cache",
	"exhaustive":    "analysis.exhaustive",
	"strategy":      "analysis.strategy",
	"timeout":       "analysis.timeout",
	"addr":          "server.addr",
	"load":          "server.load",
	"watch":         "server.watch",
	"log-level":     "log.level",
	"log-json":      "log.json",
	"otel-endpoint": "telemetry.endpoint",
	"no-telemetry":  "telemetry.disabled",
	"s3-endpoint":   "storage.endpoint",
	"s3-region":     "storage.region",
	"s3-path-style": "storage.use_path_style",
	"endpoint-rule": "policy.endpoint_rules",
	"disabled-rule": "policy.disabled_rules",
}

var rootCmd = &cobra.Command{
	Use:   version.AppName,
	Short: "Structural resilience analysis for network topologies",
	Long: `topoweak finds the nodes of a network topology that cannot reach an
endpoint, and the nodes that lack enough independent routes to survive a
failure.`,
	Version:       version.Current,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.topoweak.yaml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.Bool("log-json", true, "Log as JSON instead of text")
	pf.String("otel-endpoint", "", "OTLP/HTTP endpoint for traces")
	pf.Bool("no-telemetry", false, "Disable tracing")
	pf.String("s3-endpoint", "", "Override the S3 endpoint")
	pf.String("s3-region", "us-east-1", "S3 region")
	pf.Bool("s3-path-style", false, "Use path-style S3 addressing")
	pf.StringSlice("endpoint-rule", nil, "CEL rule marking matching nodes as endpoints")
	pf.StringSlice("disabled-rule", nil, "CEL rule disabling matching nodes")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		path := filepath.Join(home, ".topoweak.yaml")
		if _, err := os.Stat(path); err != nil {
			return
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config %s: %v\n", v.ConfigFileUsed(), err)
	}
}

func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// newEngine builds an engine from the merged file, env and flag config.
func newEngine(cmd *cobra.Command, logOutput io.Writer) (*engine.Engine, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	return engine.New(cmd.Context(), engine.WithConfig(cfg), engine.WithLogOutput(logOutput))
}

func closeEngine(cmd *cobra.Command, e *engine.Engine) {
	if err := e.Close(context.WithoutCancel(cmd.Context())); err != nil {
		e.Logger.Warn("Telemetry shutdown failed", "error", err)
	}
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("TOPOWEAK %s", version.Current)))
	if cmd.Long != "" {
		fmt.Fprintln(out, cmd.Long)
	} else {
		fmt.Fprintln(out, cmd.Short)
	}

	fmt.Fprintln(out, titleStyle.Render("USAGE"))
	fmt.Fprintf(out, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(out, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(out, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		line := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			line += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(out, flagStyle.Render(line))
	})
	fmt.Fprintln(out)
}
