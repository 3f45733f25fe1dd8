// Package render draws trace reports as node-link diagrams.
//
// [ToDOT] converts a [trace.Report] into Graphviz DOT with one node per
// package and one edge per decision. [RenderSVG] lays the DOT out with the
// embedded Graphviz from go-graphviz, so no system Graphviz is required.
//
//	dot := render.ToDOT(report, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// Edge styles encode the outcome:
//
//   - included: solid black, labelled with the marker
//   - included-unconditional: solid grey
//   - revisited: dotted, pointing at the node traced earlier
//   - excluded: dashed grey to a greyed-out node
//
// [trace.Report]: github.com/matzehuels/reqtrace/pkg/trace.Report
package render
