package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reqtrace/pkg/pipeline"
	"github.com/matzehuels/reqtrace/pkg/server"
)

// serveCommand runs the HTTP API until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve traces over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.settings()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			env, err := cfg.MarkerEnvironment()
			if err != nil {
				return err
			}
			client, closeCache, err := c.newClient(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close(context.WithoutCancel(ctx))
			}

			runner := pipeline.NewRunner(client, st, c.Logger)
			printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(addr)))
			return server.New(c.Logger, runner, env).Serve(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

// displayAddr turns a listen address into a host:port for display.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
