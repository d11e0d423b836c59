package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vormap/vormap/internal/server"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		localRoot string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vormap HTTP API server",
		Long: `Serve exposes snapshot listings, hierarchy artifacts, folder listings,
and rendered layouts over HTTP. The server shuts down gracefully on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.newSource(localRoot)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(src, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := []server.Option{
				server.WithRenderDefaults(c.cfg.Render.Theme, c.cfg.Render.Labels),
			}
			st, err := c.newStore(cmd.Context())
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close(context.Background())
				opts = append(opts, server.WithStore(st))
			}

			if addr == "" {
				addr = c.cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(runner, src, c.Logger, opts...)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&localRoot, "local", "", "scan a local directory instead of the backend")
	return cmd
}
