// Package source fetches snapshot data from a vormap backend: the list of
// available snapshots, precomputed hierarchy artifacts, and bounded-depth
// directory listings for paths the artifact does not cover.
//
// The HTTP client retries transient failures with exponential backoff and
// distinguishes missing resources from network errors via sentinel errors.
// Response caching is layered on top by the pipeline, not here.
package source

import (
	"context"
	"errors"

	"github.com/vormap/vormap/pkg/snapshot"
)

var (
	// ErrNotFound is returned when a snapshot or path does not exist on
	// the backend.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Source provides snapshot data for the layout pipeline.
type Source interface {
	// Snapshots lists the snapshots the backend knows about, newest first.
	Snapshots(ctx context.Context) ([]snapshot.Descriptor, error)

	// Hierarchy fetches the precomputed hierarchy artifact for a snapshot.
	Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error)

	// List returns the immediate entries of one directory in a snapshot.
	List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error)
}

// Lister curries a Source into the adapter's per-directory fetch function
// for a fixed snapshot.
func Lister(s Source, snapshotID string) snapshot.ListFunc {
	return func(ctx context.Context, path string) ([]snapshot.Entry, error) {
		return s.List(ctx, snapshotID, path)
	}
}
