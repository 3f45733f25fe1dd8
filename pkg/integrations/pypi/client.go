package pypi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/reqtrace/pkg/buildinfo"
	"github.com/matzehuels/reqtrace/pkg/cache"
	"github.com/matzehuels/reqtrace/pkg/integrations"
)

// DefaultBaseURL is the PyPI JSON API root.
const DefaultBaseURL = "https://pypi.org/pypi"

// Metadata holds the fields of a PyPI JSON response that the tracer uses.
//
// RequiresDist is nil when the registry reports no requires_dist (absent or
// null) and empty when it reports an empty list. Cached copies keep that
// distinction.
//
// A Metadata is safe for concurrent reads after construction.
type Metadata struct {
	Name           string   `json:"name"`            // Project name as published (not normalized)
	Version        string   `json:"version"`         // Latest release version
	Summary        string   `json:"summary"`         // Short description (may be empty)
	RequiresPython string   `json:"requires_python"` // Python version specifier (may be empty)
	Classifiers    []string `json:"classifiers"`     // Trove classifiers
	RequiresDist   []string `json:"requires_dist"`   // PEP 508 dependency expressions, nil if absent
	ProvidesExtra  []string `json:"provides_extra"`  // Declared extras (may be nil)
}

// Client provides access to the PyPI JSON API.
// It handles HTTP requests with caching and optional retries.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
//
// Parameters:
//   - backend: Cache backend for response caching (nil or [cache.NewNullCache] for no caching)
//   - cacheTTL: How long responses are cached (typical: 1-24 hours)
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": buildinfo.UserAgent(),
	}
	return &Client{
		Client:  integrations.NewClient(backend, "pypi:", cacheTTL, headers),
		baseURL: DefaultBaseURL,
	}
}

// SetBaseURL points the client at a different registry root, such as a
// mirror or a test server. Trailing slashes are ignored; an empty url
// restores [DefaultBaseURL].
func (c *Client) SetBaseURL(url string) {
	url = strings.TrimRight(url, "/")
	if url == "" {
		url = DefaultBaseURL
	}
	c.baseURL = url
}

// BaseURL returns the registry root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPackage retrieves the metadata of the latest release of a package.
//
// The name is normalized following PEP 503 before the request, so "AnyIO"
// and "anyio" share one cache entry. If refresh is true the cache is bypassed.
//
// Returns:
//   - Metadata on success (never nil when err is nil)
//   - an error matching [integrations.ErrNotFound] if the package doesn't exist
//   - an error matching [integrations.ErrNetwork] for transport failures and other non-2xx statuses
//   - other errors for JSON decoding failures
func (c *Client) FetchPackage(ctx context.Context, name string, refresh bool) (*Metadata, error) {
	pkg := integrations.NormalizePkgName(name)
	if pkg == "" {
		return nil, errors.New("pypi: empty package name")
	}

	var meta Metadata
	err := c.Cached(ctx, pkg, refresh, &meta, func() error {
		return c.fetch(ctx, pkg, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) fetch(ctx context.Context, pkg string, meta *Metadata) error {
	var data apiResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/%s/json", c.baseURL, pkg), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: pypi package %s", err, pkg)
		}
		return err
	}

	*meta = Metadata{
		Name:           data.Info.Name,
		Version:        data.Info.Version,
		Summary:        data.Info.Summary,
		RequiresPython: data.Info.RequiresPython,
		Classifiers:    data.Info.Classifiers,
		RequiresDist:   data.Info.RequiresDist,
		ProvidesExtra:  data.Info.ProvidesExtra,
	}
	return nil
}

type apiResponse struct {
	Info apiInfo `json:"info"`
}

type apiInfo struct {
	Name           string   `json:"name"`
	Version        string   `json:"version"`
	Summary        string   `json:"summary"`
	RequiresPython string   `json:"requires_python"`
	Classifiers    []string `json:"classifiers"`
	RequiresDist   []string `json:"requires_dist"`
	ProvidesExtra  []string `json:"provides_extra"`
}
