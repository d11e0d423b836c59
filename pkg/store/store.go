// Package store persists precomputed hierarchy artifacts so snapshots
// survive process restarts and can be shared between the scanner, the API
// server, and precompute jobs.
//
// Two implementations: MongoStore for deployments and MemoryStore for
// tests and single-process runs. The byte-level cache package sits in
// front of the store for hot paths.
package store

import (
	"context"
	"errors"

	"github.com/vormap/vormap/pkg/snapshot"
)

// ErrNotFound is returned when no artifact exists for a snapshot.
var ErrNotFound = errors.New("artifact not found")

// Store persists hierarchy artifacts keyed by snapshot id.
type Store interface {
	// Put stores an artifact, replacing any existing artifact for the
	// same snapshot id.
	Put(ctx context.Context, h *snapshot.Hierarchy) error

	// Get loads the artifact for a snapshot, or ErrNotFound.
	Get(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error)

	// List returns descriptors for all stored snapshots, newest first.
	List(ctx context.Context) ([]snapshot.Descriptor, error)

	// Delete removes an artifact. Deleting a missing snapshot is not an
	// error.
	Delete(ctx context.Context, snapshotID string) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
