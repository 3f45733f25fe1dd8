// Package pkg provides the libraries behind reqtrace.
//
// # Overview
//
// reqtrace answers "which of this package's dependencies apply to my Python
// environment, and why?" It reads the requires_dist metadata of a PyPI
// package, evaluates each dependency's PEP 508 environment marker, follows
// the dependencies whose marker holds and reports every decision.
//
// # Architecture
//
// The typical data flow:
//
//	PyPI JSON API
//	      ↓
//	 [integrations/pypi] package (fetch + cache metadata)
//	      ↓
//	 [trace] package (parse requirements, evaluate markers, walk)
//	      ↓
//	 [render] / [store] packages (DOT/SVG diagrams, report persistence)
//
// [pipeline] runs those stages for the CLI and the HTTP API alike.
//
// # Quick Start
//
//	client := pypi.NewClient(cache.NewNullCache(), time.Hour)
//	w := trace.NewWalker(client, trace.Options{})
//	rep, err := w.Trace(ctx, "anyio")
//	if err != nil {
//	    return err
//	}
//	for _, d := range rep.Decisions {
//	    fmt.Println(d)
//	}
//
// # Main Packages
//
// [pep508] - Requirement and marker parsing, marker environments and
// evaluation with PEP 440 version comparison.
//
// [trace] - The recursive walker, its decisions and reports.
//
// [integrations] - HTTP client with response caching and retries;
// [integrations/pypi] builds the PyPI JSON API client on it.
//
// [cache] - Response cache backends: file, Redis and a no-op cache.
//
// [render] - Graphviz DOT and SVG diagrams of a trace.
//
// [store] - Report storage in a directory or MongoDB.
//
// [pipeline] - fetch → walk → render → store, shared by every entry point.
//
// [server] - The HTTP API.
//
// [config] - TOML configuration.
//
// [errors] - Coded errors and input validation.
//
// [observability] - Hooks for logging or metrics around HTTP, cache and trace
// events.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -tags integration ./pkg/...  # Include tests against live services
//
// [pep508]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/pep508
// [trace]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/trace
// [integrations]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/integrations
// [integrations/pypi]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/integrations/pypi
// [cache]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/cache
// [render]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/render
// [store]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/store
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/server
// [config]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/reqtrace/pkg/observability
package pkg
