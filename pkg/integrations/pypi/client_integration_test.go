//go:build integration

package pypi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/reqtrace/pkg/integrations"
)

func TestFetchPackage_Integration(t *testing.T) {
	client := NewClient(nil, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name    string
		pkg     string
		wantErr error
	}{
		{"anyio", "anyio", nil},
		{"mixed case", "Typing_Extensions", nil},
		{"nonexistent", "this-package-should-not-exist-12345", integrations.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := client.FetchPackage(ctx, tt.pkg, true)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FetchPackage(%q) error = %v, want %v", tt.pkg, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if meta.Name == "" || meta.Version == "" {
				t.Errorf("incomplete metadata: %+v", meta)
			}
		})
	}
}

func TestFetchPackageWithDeps_Integration(t *testing.T) {
	client := NewClient(nil, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	meta, err := client.FetchPackage(ctx, "anyio", true)
	if err != nil {
		t.Fatalf("FetchPackage(anyio) error: %v", err)
	}
	if len(meta.RequiresDist) == 0 {
		t.Error("anyio should declare requires_dist")
	}
}
