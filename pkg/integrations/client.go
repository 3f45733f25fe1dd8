package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/reqtrace/pkg/cache"
	"github.com/matzehuels/reqtrace/pkg/observability"
)

// Client provides shared HTTP functionality for registry API clients.
// It handles response caching, optional retries, and common request headers.
//
// All methods are safe for concurrent use if the cache backend is.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	ttl      time.Duration
	headers  map[string]string
	attempts int
}

// NewClient creates a Client whose cache keys are prefixed with namespace.
// Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed.
//
// Requests are attempted once; see [Client.SetAttempts].
func NewClient(backend cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		http:     NewHTTPClient(),
		cache:    cache.Namespace(backend, namespace),
		ttl:      ttl,
		headers:  headers,
		attempts: 1,
	}
}

// SetAttempts sets how many times a transient failure (transport error or
// 5xx) is attempted before giving up. Values below 1 mean 1.
func (c *Client) SetAttempts(n int) { c.attempts = max(n, 1) }

// SetTimeout replaces the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) { c.http.Timeout = d }

// Cached loads key from the cache into v, or runs fetch and caches the
// populated v. If refresh is true the cache read is skipped.
// Cache read and write failures are not fatal: the value is fetched instead.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	hooks := observability.Cache()
	if !refresh {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			if json.Unmarshal(data, v) == nil {
				hooks.OnCacheHit(ctx, key)
				return nil
			}
		}
		hooks.OnCacheMiss(ctx, key)
	}

	if err := cache.Retry(ctx, c.attempts, time.Second, fetch); err != nil {
		return err
	}

	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			hooks.OnCacheSet(ctx, key, len(data))
		}
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(url, resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &StatusError{URL: url, StatusCode: code, Err: ErrNotFound}
	case code >= 500:
		return cache.Retryable(&StatusError{URL: url, StatusCode: code, Err: ErrNetwork})
	default:
		return &StatusError{URL: url, StatusCode: code, Err: ErrNetwork}
	}
}
