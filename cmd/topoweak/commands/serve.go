package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osstelecom/topoweak/pkg/engine"
	"github.com/osstelecom/topoweak/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the topology API. Sources given with --load are registered at
startup. A directory or an s3:// prefix ending in "/" registers every
topology under it; with --watch, local sources are reloaded whenever they change.

Example:
  topoweak serve --addr :8080 --load metro.dot --load s3://inventory/core/ --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := newEngine(cmd, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeEngine(cmd, e)

		cfg := e.Config().Server
		for _, ref := range cfg.Load {
			if _, err := e.LoadAll(ctx, ref, engine.LoadOptions{}); err != nil {
				return err
			}
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.New(e).Run(ctx, cfg.Addr)
		})
		if cfg.Watch {
			g.Go(func() error {
				err := e.Watch(ctx)
				if ctx.Err() != nil {
					return nil
				}
				return err
			})
		}
		return g.Wait()
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.StringSlice("load", nil, "Topology source, directory or s3:// prefix to register at startup (repeatable)")
	f.Bool("watch", false, "Reload local sources when they change")
	f.Int("limit", 2, "Default independent routes a node needs")
	f.Int("workers", 4, "Default goroutines per analysis")
	f.String("strategy", "maxflow", "Default route counting strategy")
	f.Duration("timeout", 0, "Abort an analysis after this long (default from config)")
	rootCmd.AddCommand(serveCmd)
}
