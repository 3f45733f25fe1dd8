// Package trace walks the marker-gated dependency graph of a PyPI package.
//
// For every dependency expression in a package's requires_dist the [Walker]
// makes one [Decision]:
//
//   - no marker: [IncludedUnconditional], not traced further
//   - marker true: the dependency is fetched and traced first, then
//     [Included] is reported with the current package as parent
//   - marker true but already traced in this walk: [Revisited]
//   - marker false: [Excluded], reported only for dependencies of the
//     top-level package unless [Options.ReportAllDepths] is set
//
// Marker-false dependencies are never fetched. Because the child's
// decisions are reported before the parent's line for it, a console trace
// reads bottom-up within each subtree.
//
// # Usage
//
//	w := trace.NewWalker(pypiClient, trace.Options{
//	    Reporter: trace.ReporterFunc(func(d trace.Decision) { fmt.Println(d) }),
//	})
//	report, err := w.Trace(ctx, "anyio")
package trace
