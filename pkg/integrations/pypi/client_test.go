package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/reqtrace/pkg/cache"
	"github.com/matzehuels/reqtrace/pkg/integrations"
)

const anyioJSON = `{
  "info": {
    "name": "anyio",
    "version": "4.4.0",
    "summary": "High level compatibility layer for multiple asynchronous event loop implementations",
    "requires_python": ">=3.8",
    "classifiers": ["Framework :: AnyIO", "Programming Language :: Python :: 3"],
    "requires_dist": [
      "idna>=2.8",
      "sniffio>=1.1",
      "exceptiongroup>=1.0.2; python_version < \"3.11\"",
      "trio>=0.23; extra == \"trio\""
    ],
    "provides_extra": ["doc", "test", "trio"]
  },
  "releases": {}
}`

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "reqtrace/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/anyio/json":
			w.Write([]byte(anyioJSON))
		case "/sniffio/json":
			json.NewEncoder(w).Encode(map[string]any{
				"info": map[string]any{"name": "sniffio", "version": "1.3.1", "requires_dist": nil},
			})
		case "/broken/json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, backend cache.Cache, url string) *Client {
	t.Helper()
	c := NewClient(backend, time.Hour)
	c.SetBaseURL(url)
	return c
}

func TestClient_FetchPackage(t *testing.T) {
	srv := newTestServer(t, nil)
	c := testClient(t, nil, srv.URL)

	meta, err := c.FetchPackage(context.Background(), "AnyIO", false)
	if err != nil {
		t.Fatalf("FetchPackage failed: %v", err)
	}

	if meta.Name != "anyio" || meta.Version != "4.4.0" {
		t.Errorf("got %s %s, want anyio 4.4.0", meta.Name, meta.Version)
	}
	if len(meta.RequiresDist) != 4 {
		t.Errorf("RequiresDist = %v, want 4 entries", meta.RequiresDist)
	}
	if meta.RequiresDist[2] != `exceptiongroup>=1.0.2; python_version < "3.11"` {
		t.Errorf("dependency expression not kept verbatim: %q", meta.RequiresDist[2])
	}
	if len(meta.Classifiers) != 2 {
		t.Errorf("Classifiers = %v", meta.Classifiers)
	}
	if meta.RequiresPython != ">=3.8" {
		t.Errorf("RequiresPython = %q", meta.RequiresPython)
	}
	if len(meta.ProvidesExtra) != 3 {
		t.Errorf("ProvidesExtra = %v", meta.ProvidesExtra)
	}
}

func TestClient_FetchPackage_NullRequiresDist(t *testing.T) {
	srv := newTestServer(t, nil)
	backend, _ := cache.NewFileCache(t.TempDir())
	c := testClient(t, backend, srv.URL)

	for _, refresh := range []bool{true, false} {
		meta, err := c.FetchPackage(context.Background(), "sniffio", refresh)
		if err != nil {
			t.Fatalf("FetchPackage(refresh=%v): %v", refresh, err)
		}
		if meta.RequiresDist != nil {
			t.Errorf("refresh=%v: RequiresDist = %#v, want nil", refresh, meta.RequiresDist)
		}
	}
}

func TestClient_FetchPackage_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	backend, _ := cache.NewFileCache(t.TempDir())
	c := testClient(t, backend, srv.URL)
	ctx := context.Background()

	for _, name := range []string{"anyio", "AnyIO", "anyio"} {
		if _, err := c.FetchPackage(ctx, name, false); err != nil {
			t.Fatalf("FetchPackage(%s): %v", name, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}

	if _, err := c.FetchPackage(ctx, "anyio", true); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("refresh should bypass cache: hits = %d", hits.Load())
	}
}

func TestClient_FetchPackage_Errors(t *testing.T) {
	srv := newTestServer(t, nil)
	c := testClient(t, nil, srv.URL)

	tests := []struct {
		pkg      string
		sentinel error
		status   int
	}{
		{"missing-pkg", integrations.ErrNotFound, http.StatusNotFound},
		{"broken", integrations.ErrNetwork, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			_, err := c.FetchPackage(context.Background(), tt.pkg, true)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
			if got := integrations.StatusCode(err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
		})
	}

	if _, err := c.FetchPackage(context.Background(), "  ", true); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestClient_SetBaseURL(t *testing.T) {
	c := NewClient(nil, time.Hour)
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("default base = %s", c.BaseURL())
	}
	c.SetBaseURL("https://mirror.example/pypi/")
	if c.BaseURL() != "https://mirror.example/pypi" {
		t.Errorf("base = %s", c.BaseURL())
	}
	c.SetBaseURL("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("empty should restore default, got %s", c.BaseURL())
	}
}
