package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/render"
	"github.com/matzehuels/reqtrace/pkg/store"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

// Runner executes traces against one registry client.
//
// The Runner is stateless except for its collaborators. Each Execute call
// uses a fresh [trace.Walker], so multiple goroutines can share a Runner.
type Runner struct {
	Fetcher trace.Fetcher
	Store   store.Store // optional; nil disables persistence
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil logger discards log output.
func NewRunner(f trace.Fetcher, s store.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Fetcher: f, Store: s, Logger: logger}
}

// Execute fetches opts.Package, walks its dependencies, renders the
// requested formats and stores the report if a store is configured.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := reqerrors.ValidatePythonPackageName(opts.Package); err != nil {
		return nil, err
	}
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, reqerrors.Wrap(reqerrors.ErrCodeInvalidInput, err, "invalid options")
	}

	w := trace.NewWalker(r.Fetcher, trace.Options{
		Environment:         opts.Environment,
		ReportAllDepths:     opts.ReportAllDepths,
		FollowUnconditional: opts.FollowUnconditional,
		Refresh:             opts.Refresh,
		Reporter:            opts.Reporter,
	})
	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Fetch
	start := time.Now()
	meta, err := w.Fetch(ctx, opts.Package)
	if err != nil {
		return nil, err
	}
	result.Metadata = meta
	result.Stats.FetchTime = time.Since(start)
	r.Logger.Debug("fetched metadata", "package", meta.Name, "version", meta.Version,
		"requires", len(meta.RequiresDist), "duration", result.Stats.FetchTime)

	if opts.OnMetadata != nil {
		opts.OnMetadata(meta)
	}

	// Stage 2: Walk
	rep, err := w.Walk(ctx, opts.Package, meta)
	result.Report = rep
	result.Stats.WalkTime = rep.Duration
	result.Stats.Decisions = len(rep.Decisions)
	if err != nil {
		return result, err
	}
	r.Logger.Info("traced dependencies",
		"package", opts.Package,
		"included", rep.Count(trace.Included),
		"unconditional", rep.Count(trace.IncludedUnconditional),
		"excluded", rep.Count(trace.Excluded),
		"revisited", rep.Count(trace.Revisited),
		"duration", rep.Duration)

	// Stage 3: Render
	start = time.Now()
	for _, f := range opts.Formats {
		data, err := renderFormat(ctx, rep, f, opts.Render)
		if err != nil {
			return result, fmt.Errorf("render %s: %w", f, err)
		}
		result.Artifacts[f] = data
	}
	result.Stats.RenderTime = time.Since(start)
	if len(opts.Formats) > 0 {
		r.Logger.Debug("rendered outputs", "formats", opts.Formats, "duration", result.Stats.RenderTime)
	}

	// Stage 4: Store
	if r.Store != nil {
		if err := r.Store.Save(ctx, rep); err != nil {
			return result, fmt.Errorf("store report: %w", err)
		}
		result.Stored = true
		r.Logger.Debug("stored report", "id", rep.ID)
	}

	return result, nil
}

func renderFormat(ctx context.Context, rep *trace.Report, format string, opts render.Options) ([]byte, error) {
	if format == FormatJSON {
		return json.MarshalIndent(rep, "", "  ")
	}
	return render.Render(ctx, rep, render.Format(format), opts)
}
