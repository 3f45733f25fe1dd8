// Package store persists trace reports.
//
// Two backends implement [Store]:
//   - [FileStore]: one JSON file per report, for CLI use
//   - [MongoStore]: a MongoDB collection, for shared history behind the server
//
// [Open] picks the backend from a location string:
//
//	s, err := store.Open(ctx, "mongodb://localhost:27017/reqtrace")
//	s, err := store.Open(ctx, "/home/me/.local/share/reqtrace/reports")
//	defer s.Close(ctx)
//
//	err = s.Save(ctx, report)
//	recent, err := s.List(ctx, "anyio", 10)
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/matzehuels/reqtrace/pkg/trace"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// Store is the interface for report storage backends.
type Store interface {
	// Save stores a report, replacing any report with the same ID.
	Save(ctx context.Context, r *trace.Report) error

	// Get retrieves a report by ID.
	// Returns ErrNotFound if the report doesn't exist.
	Get(ctx context.Context, id string) (*trace.Report, error)

	// List returns up to limit reports, newest first. A non-empty pkg
	// restricts the result to reports for that package (PEP 503 normalized
	// comparison). A limit of 0 means no limit.
	List(ctx context.Context, pkg string, limit int) ([]*trace.Report, error)

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}

// Open returns the backend for location: MongoDB for mongodb:// and
// mongodb+srv:// URIs, a [FileStore] for file:// URIs and plain paths.
func Open(ctx context.Context, location string) (Store, error) {
	switch {
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return NewMongoStore(ctx, location)
	case strings.HasPrefix(location, "file://"):
		return NewFileStore(strings.TrimPrefix(location, "file://"))
	case strings.Contains(location, "://"):
		return nil, errors.New("store: unsupported location " + location)
	default:
		return NewFileStore(location)
	}
}
