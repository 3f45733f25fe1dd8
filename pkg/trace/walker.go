package trace

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	reqerrors "github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/integrations"
	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/observability"
	"github.com/matzehuels/reqtrace/pkg/pep508"
)

// Fetcher loads package metadata. [*pypi.Client] implements it.
type Fetcher interface {
	FetchPackage(ctx context.Context, name string, refresh bool) (*pypi.Metadata, error)
}

// Options configures a Walker. The zero value traces against
// [pep508.DefaultEnvironment] with the default reporting rules.
type Options struct {
	// Environment is the marker environment. Nil means the default.
	Environment pep508.Environment

	// ReportAllDepths reports excluded dependencies at every depth instead
	// of only for the top-level package.
	ReportAllDepths bool

	// FollowUnconditional also traces dependencies that have no marker.
	FollowUnconditional bool

	// Refresh bypasses the fetcher's persistent cache.
	Refresh bool

	// Reporter, if set, receives each decision as soon as it is made.
	Reporter Reporter
}

// Walker traces the marker-gated dependency graph of PyPI packages.
//
// Metadata is memoized for the lifetime of the Walker, so several walks
// that share dependencies fetch each package once. A Walker is safe for
// sequential use; use one Walker per goroutine.
type Walker struct {
	fetcher Fetcher
	opts    Options

	mu   sync.Mutex
	memo map[string]*pypi.Metadata
}

// NewWalker creates a Walker that loads metadata through f.
func NewWalker(f Fetcher, opts Options) *Walker {
	if opts.Environment == nil {
		opts.Environment = pep508.DefaultEnvironment()
	}
	return &Walker{fetcher: f, opts: opts, memo: make(map[string]*pypi.Metadata)}
}

// Environment returns the marker environment decisions are evaluated against.
func (w *Walker) Environment() pep508.Environment { return w.opts.Environment }

// Fetch returns the metadata for name, from the memo if it was loaded before.
// Errors are classified with codes from the errors package.
func (w *Walker) Fetch(ctx context.Context, name string) (*pypi.Metadata, error) {
	return w.fetch(ctx, name, 0)
}

func (w *Walker) fetch(ctx context.Context, name string, depth int) (*pypi.Metadata, error) {
	key := integrations.NormalizePkgName(name)

	w.mu.Lock()
	meta, ok := w.memo[key]
	w.mu.Unlock()
	if ok {
		return meta, nil
	}

	observability.Trace().OnFetch(ctx, name, depth)
	meta, err := w.fetcher.FetchPackage(ctx, name, w.opts.Refresh)
	if err != nil {
		return nil, classifyFetchError(err, name)
	}

	w.mu.Lock()
	w.memo[key] = meta
	w.mu.Unlock()
	return meta, nil
}

// Trace fetches name and walks its dependencies.
func (w *Walker) Trace(ctx context.Context, name string) (*Report, error) {
	meta, err := w.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return w.Walk(ctx, name, meta)
}

// Walk traces the dependencies of the top-level package name, whose
// metadata has already been loaded. Decisions are streamed to the
// configured Reporter and collected into the returned Report; a failed walk
// returns the partial report along with the error.
func (w *Walker) Walk(ctx context.Context, name string, meta *pypi.Metadata) (*Report, error) {
	rep := &Report{
		ID:          uuid.NewString(),
		Package:     name,
		Version:     meta.Version,
		Environment: w.opts.Environment.Clone(),
		StartedAt:   time.Now().UTC(),
	}

	top := integrations.NormalizePkgName(name)
	wk := &walk{
		Walker:  w,
		report:  rep,
		top:     top,
		visited: map[string]bool{top: true},
	}
	err := wk.visit(ctx, name, meta, 0)

	rep.Duration = time.Since(rep.StartedAt)
	observability.Trace().OnWalkComplete(ctx, name, len(rep.Decisions), rep.Duration, err)
	return rep, err
}

// walk is the state of one top-level traversal.
type walk struct {
	*Walker
	report  *Report
	top     string          // normalized top-level package name
	visited map[string]bool // normalized names already entered
}

func (wk *walk) visit(ctx context.Context, current string, meta *pypi.Metadata, depth int) error {
	isTop := integrations.NormalizePkgName(current) == wk.top

	for _, raw := range meta.RequiresDist {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := pep508.ParseRequirement(raw)
		if err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidRequirement, err, "%s: requirement %q", current, raw)
		}
		applies, err := req.Applies(wk.opts.Environment)
		if err != nil {
			return reqerrors.Wrap(reqerrors.ErrCodeInvalidMarker, err, "%s: requirement %q", current, raw)
		}

		d := Decision{
			Parent:      current,
			Name:        req.Name,
			Requirement: raw,
			Depth:       depth,
			TopLevel:    isTop,
		}
		if req.Marker != nil {
			d.Marker = req.Marker.String()
		}

		switch {
		case !applies:
			if !isTop && !wk.opts.ReportAllDepths {
				continue
			}
			d.Outcome = Excluded
		case req.Marker == nil && !wk.opts.FollowUnconditional:
			d.Outcome = IncludedUnconditional
		default:
			d.Outcome = Included
			if req.Marker == nil {
				d.Outcome = IncludedUnconditional
			}
			key := integrations.NormalizePkgName(req.Name)
			if wk.visited[key] {
				d.Outcome = Revisited
				break
			}
			wk.visited[key] = true

			child, err := wk.fetch(ctx, req.Name, depth+1)
			if err != nil {
				return err
			}
			if err := wk.visit(ctx, req.Name, child, depth+1); err != nil {
				return err
			}
		}
		wk.emit(ctx, d)
	}
	return nil
}

func (wk *walk) emit(ctx context.Context, d Decision) {
	wk.report.Decisions = append(wk.report.Decisions, d)
	if wk.opts.Reporter != nil {
		wk.opts.Reporter.Report(d)
	}
	observability.Trace().OnDecision(ctx, d.Parent, d.Name, string(d.Outcome), d.Depth)
}

// classifyFetchError attaches an error code to a fetcher failure.
// Cancellation is passed through untouched.
func classifyFetchError(err error, name string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch code := integrations.StatusCode(err); {
	case errors.Is(err, context.DeadlineExceeded):
		return reqerrors.Wrap(reqerrors.ErrCodeTimeout, err, "fetch %s: timed out", name)
	case code == http.StatusNotFound:
		return reqerrors.Wrap(reqerrors.ErrCodePackageNotFound, err, "fetch %s: registry returned status %d", name, code)
	case code != 0:
		return reqerrors.Wrap(reqerrors.ErrCodeRegistryStatus, err, "fetch %s: registry returned status %d", name, code)
	case errors.Is(err, integrations.ErrNetwork):
		return reqerrors.Wrap(reqerrors.ErrCodeNetwork, err, "fetch %s", name)
	default:
		return reqerrors.Wrap(reqerrors.ErrCodeInternal, err, "fetch %s", name)
	}
}
