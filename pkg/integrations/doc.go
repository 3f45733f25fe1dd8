// Package integrations provides the shared HTTP client for package registry APIs.
//
// # Overview
//
// Registry-specific clients live in subpackages; currently:
//
//   - [pypi]: Python Package Index JSON API
//
// # Client Pattern
//
// Registry clients embed [Client] and follow a consistent pattern:
//
//	client := pypi.NewClient(backend, 24*time.Hour)
//	meta, err := client.FetchPackage(ctx, "anyio", false) // false = use cache
//
// [Client] handles:
//   - JSON GET requests with default and per-request headers
//   - Response caching through any [cache.Cache] backend
//   - Optional retries of transport failures and 5xx responses
//
// # Errors
//
// Only 2xx responses succeed. Anything else is returned as a [*StatusError]
// carrying the status code. It unwraps to [ErrNotFound] for 404 and to
// [ErrNetwork] otherwise, so callers can use [errors.Is] for the category
// and [StatusCode] for the exact code.
//
// [pypi]: github.com/matzehuels/reqtrace/pkg/integrations/pypi
// [cache.Cache]: github.com/matzehuels/reqtrace/pkg/cache.Cache
package integrations
