package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/reqtrace/pkg/integrations"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

// Options configures trace diagram rendering.
type Options struct {
	// HideMarkers leaves conditional edges unlabelled.
	HideMarkers bool

	// HideExcluded drops excluded dependencies from the diagram.
	HideExcluded bool
}

// ToDOT converts a trace report to Graphviz DOT format.
// Nodes are keyed by normalized package name; the top-level package is
// drawn filled.
func ToDOT(r *trace.Report, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	excludedOnly := excludedOnlyNodes(r)
	for _, name := range r.Packages() {
		id := integrations.NormalizePkgName(name)
		if excludedOnly[id] && opts.HideExcluded {
			continue
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(r, name, excludedOnly[id]), ", "))
	}

	buf.WriteString("\n")
	for _, d := range r.Decisions {
		if d.Outcome == trace.Excluded && opts.HideExcluded {
			continue
		}
		from, to := integrations.NormalizePkgName(d.Parent), integrations.NormalizePkgName(d.Name)
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", from, to, strings.Join(edgeAttrs(d, !opts.HideMarkers), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// excludedOnlyNodes returns the packages that only ever appear as excluded.
func excludedOnlyNodes(r *trace.Report) map[string]bool {
	out := map[string]bool{}
	for _, d := range r.Decisions {
		id := integrations.NormalizePkgName(d.Name)
		if _, seen := out[id]; !seen {
			out[id] = true
		}
		if d.Outcome != trace.Excluded {
			out[id] = false
		}
	}
	for _, d := range r.Decisions {
		out[integrations.NormalizePkgName(d.Parent)] = false
	}
	return out
}

func nodeAttrs(r *trace.Report, name string, excluded bool) []string {
	label := name
	if integrations.NormalizePkgName(name) == integrations.NormalizePkgName(r.Package) {
		label = fmt.Sprintf("%s\n%s", r.Package, r.Version)
		return []string{fmt.Sprintf("label=%q", label), "fillcolor=lightblue", "penwidth=2"}
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if excluded {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=grey40")
	}
	return attrs
}

func edgeAttrs(d trace.Decision, markers bool) []string {
	var attrs []string
	switch d.Outcome {
	case trace.IncludedUnconditional:
		attrs = append(attrs, "color=grey50")
	case trace.Revisited:
		attrs = append(attrs, "style=dotted")
	case trace.Excluded:
		attrs = append(attrs, "style=dashed", "color=grey60", "fontcolor=grey40")
	}
	if markers && d.Marker != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", d.Marker))
	}
	if len(attrs) == 0 {
		attrs = append(attrs, "color=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// Format selects an output encoding for [Render].
type Format string

const (
	FormatDOT Format = "dot"
	FormatSVG Format = "svg"
)

// FormatFromPath picks the output format from a file extension.
func FormatFromPath(path string) (Format, error) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", fmt.Errorf("graph output %q: missing extension (.dot or .svg)", path)
	}
	switch f := Format(strings.ToLower(path[i+1:])); f {
	case FormatDOT, FormatSVG:
		return f, nil
	case "gv":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("graph output %q: unsupported format %q", path, f)
	}
}

// Render produces the report diagram in the requested format.
func Render(ctx context.Context, r *trace.Report, f Format, opts Options) ([]byte, error) {
	dot := ToDOT(r, opts)
	switch f {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}
