package integrations

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// StatusError reports a registry response outside the 2xx range.
// It unwraps to [ErrNotFound] for 404 and [ErrNetwork] otherwise.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d", e.Err, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from a registry error, or 0 if err
// did not come from a response.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

var pkgSepRE = regexp.MustCompile(`[-_.]+`)

// NormalizePkgName converts a package name to its canonical form following
// PEP 503: lowercase, with runs of "-", "_" and "." collapsed to "-".
func NormalizePkgName(name string) string {
	return pkgSepRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
