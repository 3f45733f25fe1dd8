package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

// historyCommand lists reports saved with --store.
func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [package]",
		Short: "List stored trace reports, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if c.settings().Store == "" {
				return reqerrors.New(reqerrors.ErrCodeInvalidInput, "no report store configured (use --store or the config file)")
			}
			var pkg string
			if len(args) == 1 {
				pkg = args[0]
			}

			sp := newSpinner(ctx, "Loading reports...")
			sp.Start()
			st, err := c.openStore(ctx)
			if err != nil {
				sp.Stop()
				return err
			}
			defer st.Close(ctx)

			reports, err := st.List(ctx, pkg, limit)
			sp.Stop()
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				printInfo("No stored reports")
				return nil
			}
			for _, r := range reports {
				printReportSummary(c.Out, r)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of reports (0 for all)")
	return cmd
}

// printReportSummary prints one history line.
func printReportSummary(w io.Writer, r *trace.Report) {
	fmt.Fprintf(w, "%s  %s %s  %s  %s\n",
		StyleDim.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
		StyleHighlight.Render(r.Package),
		r.Version,
		StyleDim.Render(fmt.Sprintf("%d included · %d excluded · %d revisited",
			r.Count(trace.Included)+r.Count(trace.IncludedUnconditional),
			r.Count(trace.Excluded),
			r.Count(trace.Revisited))),
		StyleDim.Render(r.ID))
}
