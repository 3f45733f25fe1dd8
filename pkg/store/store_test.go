package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/reqtrace/pkg/pep508"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

func report(id, pkg string, age time.Duration) *trace.Report {
	return &trace.Report{
		ID:          id,
		Package:     pkg,
		Version:     "1.0",
		Environment: pep508.DefaultEnvironment(),
		StartedAt:   time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC).Add(-age),
		Duration:    250 * time.Millisecond,
		Decisions: []trace.Decision{
			{Parent: pkg, Name: "idna", Requirement: "idna>=2.8", Outcome: trace.IncludedUnconditional},
		},
	}
}

func TestFileStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close(ctx)

	want := report("r1", "anyio", 0)
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Package != "anyio" || !got.StartedAt.Equal(want.StartedAt) || got.Duration != want.Duration {
		t.Errorf("Get = %+v", got)
	}
	if len(got.Decisions) != 1 || got.Decisions[0].Outcome != trace.IncludedUnconditional {
		t.Errorf("decisions = %+v", got.Decisions)
	}
	if got.Environment["python_version"] != "3.10" {
		t.Errorf("environment = %v", got.Environment)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())

	for _, id := range []string{"", "../escape", `a\b`, ".hidden"} {
		if err := s.Save(ctx, report(id, "anyio", 0)); err == nil {
			t.Errorf("Save(id=%q) should fail", id)
		}
		if _, err := s.Get(ctx, id); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Get(id=%q) = %v, want invalid id error", id, err)
		}
	}
}

func TestFileStore_List(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, _ := NewFileStore(dir)

	for _, r := range []*trace.Report{
		report("old", "anyio", 2*time.Hour),
		report("new", "AnyIO", 0),
		report("mid", "trio", time.Hour),
	} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	tests := []struct {
		pkg   string
		limit int
		want  []string
	}{
		{"", 0, []string{"new", "mid", "old"}},
		{"", 2, []string{"new", "mid"}},
		{"anyio", 0, []string{"new", "old"}},
		{"Trio", 5, []string{"mid"}},
		{"sniffio", 0, nil},
	}
	for _, tt := range tests {
		got, err := s.List(ctx, tt.pkg, tt.limit)
		if err != nil {
			t.Fatalf("List(%q, %d): %v", tt.pkg, tt.limit, err)
		}
		var ids []string
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		if len(ids) != len(tt.want) {
			t.Errorf("List(%q, %d) = %v, want %v", tt.pkg, tt.limit, ids, tt.want)
			continue
		}
		for i := range ids {
			if ids[i] != tt.want[i] {
				t.Errorf("List(%q, %d) = %v, want %v", tt.pkg, tt.limit, ids, tt.want)
				break
			}
		}
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open(path): %v", err)
	}
	if fs, ok := s.(*FileStore); !ok || fs.Dir() != dir {
		t.Errorf("Open(path) = %T", s)
	}

	s, err = Open(ctx, "file://"+dir)
	if err != nil {
		t.Fatalf("Open(file://): %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Errorf("Open(file://) = %T", s)
	}

	if _, err := Open(ctx, "s3://bucket/reports"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
	if _, err := Open(ctx, ""); err == nil {
		t.Error("expected error for empty location")
	}
}

func TestDatabaseFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017", DefaultDatabase},
		{"mongodb://localhost:27017/", DefaultDatabase},
		{"mongodb://user:pw@db1:27017/traces?replicaSet=rs0", "traces"},
		{"mongodb+srv://cluster.example.net/history", "history"},
	}
	for _, tt := range tests {
		got, err := databaseFromURI(tt.uri)
		if err != nil || got != tt.want {
			t.Errorf("databaseFromURI(%q) = %q, %v; want %q", tt.uri, got, err, tt.want)
		}
	}
}
