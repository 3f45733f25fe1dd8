package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/pipeline"
	"github.com/matzehuels/reqtrace/pkg/render"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

// traceOptions are the root command's trace flags.
type traceOptions struct {
	allDepths   bool
	deep        bool
	refresh     bool
	graph       string
	hideMarkers bool
	json        bool
}

// labelWidth is the right-aligned width of metadata labels and trace names.
const labelWidth = 30

// runTrace traces each package in order. The first error aborts the
// remaining packages.
func (c *CLI) runTrace(ctx context.Context, pkgs []string, opts traceOptions) error {
	var graphFormat render.Format
	if opts.graph != "" {
		f, err := render.FormatFromPath(opts.graph)
		if err != nil {
			return err
		}
		graphFormat = f
	}

	env, err := c.settings().MarkerEnvironment()
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

	runner := pipeline.NewRunner(client, st, loggerFromContext(ctx))
	prog := newProgress(loggerFromContext(ctx))

	for _, pkg := range pkgs {
		popts := pipeline.Options{
			Package:             pkg,
			Environment:         env,
			ReportAllDepths:     opts.allDepths,
			FollowUnconditional: opts.deep,
			Refresh:             opts.refresh,
			Render:              render.Options{HideMarkers: opts.hideMarkers},
		}
		if graphFormat != "" {
			popts.Formats = append(popts.Formats, string(graphFormat))
		}
		if opts.json {
			popts.Formats = append(popts.Formats, pipeline.FormatJSON)
		} else {
			popts.OnMetadata = func(m *pypi.Metadata) { printMetadata(c.Out, m) }
			popts.Reporter = lineReporter(c.Out)
		}

		res, err := runner.Execute(ctx, popts)
		if err != nil {
			return err
		}

		if opts.json {
			fmt.Fprintf(c.Out, "%s\n", res.Artifacts[pipeline.FormatJSON])
		}
		if graphFormat != "" {
			path := graphPath(opts.graph, pkg, len(pkgs) > 1)
			if err := os.WriteFile(path, res.Artifacts[string(graphFormat)], 0o644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			c.Logger.Info("wrote graph", "path", path)
		}
		if res.Stored {
			c.Logger.Info("stored report", "id", res.Report.ID)
		}
	}

	prog.done(fmt.Sprintf("Traced %d package(s)", len(pkgs)))
	return nil
}

// lineReporter prints each decision as a trace line.
func lineReporter(w io.Writer) trace.Reporter {
	return trace.ReporterFunc(func(d trace.Decision) {
		fmt.Fprintln(w, d.String())
	})
}

// printMetadata prints the metadata block shown before a package's trace.
func printMetadata(w io.Writer, m *pypi.Metadata) {
	printField(w, "Name", m.Name)
	printField(w, "Version", m.Version)
	printField(w, "Classifiers", formatList(m.Classifiers))
	printField(w, "Requires_dist", formatList(m.RequiresDist))
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%*s : %s\n", labelWidth, label, value)
}

// formatList renders a list as [a, b]. A nil list renders as None, so an
// absent requires_dist is distinguishable from an empty one.
func formatList(items []string) string {
	if items == nil {
		return "None"
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// graphPath returns the output path for pkg's graph. With several packages
// the package name is inserted before the extension.
func graphPath(path, pkg string, multi bool) string {
	if !multi {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + pkg + ext
}
