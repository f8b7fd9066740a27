package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mixorder/internal/server"
	"github.com/matzehuels/mixorder/pkg/observability"
)

// serveCommand creates the serve command, which runs the HTTP API until
// interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the ordering API:

  POST /v1/mix/anneal      anneal raw cost tables
  POST /v1/mix/exact       solve raw cost tables exactly
  POST /v1/sets/optimize   order a list of tracks
  GET  /v1/sets/{id}       fetch a saved set
  GET  /healthz            liveness and build version
  GET  /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(ctx, cfg, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			st, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("open set store: %w", err)
			}
			defer st.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			hooks := observability.NewPrometheusHooks(reg)
			observability.SetSolveHooks(hooks)
			observability.SetCacheHooks(hooks)
			defer observability.Reset()

			c.Logger.Info("starting server",
				"addr", cfg.Server.Addr,
				"cache", cfg.Cache.Backend,
				"store", cfg.Store.Backend)
			return server.New(cfg, runner, st, c.Logger, reg).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
