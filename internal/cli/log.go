// Package cli implements the reqtrace command-line interface.
//
// The root command traces the PyPI packages given as arguments: for each one
// it prints the package metadata, then one line per dependency decision.
// Flags override values from the TOML config file. The CLI is built using
// cobra and logs through charmbracelet/log.
//
// # Commands
//
// Besides the root trace command:
//   - cache: Manage the HTTP response cache
//   - env: Print the marker environment traces are evaluated against
//   - config: Print the effective configuration
//   - history: List stored trace reports
//   - serve: Run the HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs registry requests, cache hits and trace decisions. Loggers are passed
// through context.Context.
//
// # Example
//
//	import "github.com/matzehuels/reqtrace/internal/cli"
//
//	func main() {
//	    c := cli.New(os.Stderr, cli.LogInfo)
//	    if err := c.RootCommand().Execute(); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Traced 3 packages (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks writes observability events as debug log lines.
type logHooks struct {
	l *log.Logger
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.l.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.l.Debug("http response", "method", method, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.l.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

func (h *logHooks) OnCacheHit(_ context.Context, key string) {
	h.l.Debug("cache hit", "key", key)
}

func (h *logHooks) OnCacheMiss(_ context.Context, key string) {
	h.l.Debug("cache miss", "key", key)
}

func (h *logHooks) OnCacheSet(_ context.Context, key string, size int) {
	h.l.Debug("cache set", "key", key, "bytes", size)
}

func (h *logHooks) OnFetch(_ context.Context, pkg string, depth int) {
	h.l.Debug("fetch", "package", pkg, "depth", depth)
}

func (h *logHooks) OnDecision(_ context.Context, parent, dep, outcome string, depth int) {
	h.l.Debug("decision", "parent", parent, "dependency", dep, "outcome", outcome, "depth", depth)
}

func (h *logHooks) OnWalkComplete(_ context.Context, pkg string, decisions int, d time.Duration, err error) {
	if err != nil {
		h.l.Debug("walk failed", "package", pkg, "decisions", decisions, "error", err)
		return
	}
	h.l.Debug("walk complete", "package", pkg, "decisions", decisions, "duration", d.Round(time.Millisecond))
}
