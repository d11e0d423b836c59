// Package cache provides byte-level response caching for the vormap
// pipeline: hierarchy artifacts fetched from the backend, computed levels,
// and rendered outputs are each cached under stage-specific keys.
//
// Backends: in-memory LRU (default), file-based (CLI runs), Redis (server
// deployments), and a null cache for tests and disabled caching. All
// backends are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// Default TTLs per pipeline stage. Hierarchies change only when a snapshot
// is recomputed; levels and artifacts are cheap to regenerate and keyed by
// content hashes, so they can live shorter.
const (
	TTLHierarchy = 24 * time.Hour
	TTLLevel     = 6 * time.Hour
	TTLArtifact  = 6 * time.Hour
)

// Cache is the byte-level cache interface shared by all backends.
type Cache interface {
	// Get retrieves a value. The second return is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A non-positive TTL means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// HierarchyKeyOpts are the options that distinguish hierarchy fetches.
type HierarchyKeyOpts struct {
	RootPath string
	MaxDepth int
}

// LevelKeyOpts are the options that distinguish level computations.
type LevelKeyOpts struct {
	Path   string
	Width  int
	Height int
	Shape  string
	Seed   uint64
}

// ArtifactKeyOpts are the options that distinguish rendered outputs.
type ArtifactKeyOpts struct {
	Format string
	Theme  string
	Labels bool
}

// Keyer generates cache keys for each pipeline stage.
type Keyer interface {
	HierarchyKey(snapshotID string, opts HierarchyKeyOpts) string
	LevelKey(hierarchyHash string, opts LevelKeyOpts) string
	ArtifactKey(levelHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes stage options into namespaced keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HierarchyKey generates a key for hierarchy artifact caching.
func (DefaultKeyer) HierarchyKey(snapshotID string, opts HierarchyKeyOpts) string {
	return hashKey("hierarchy", snapshotID, opts)
}

// LevelKey generates a key for computed level caching.
func (DefaultKeyer) LevelKey(hierarchyHash string, opts LevelKeyOpts) string {
	return hashKey("level", hierarchyHash, opts)
}

// ArtifactKey generates a key for rendered output caching.
func (DefaultKeyer) ArtifactKey(levelHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", levelHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix, isolating cache namespaces when
// several snapshot roots share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// HierarchyKey generates a prefixed hierarchy key.
func (k *ScopedKeyer) HierarchyKey(snapshotID string, opts HierarchyKeyOpts) string {
	return k.prefix + k.inner.HierarchyKey(snapshotID, opts)
}

// LevelKey generates a prefixed level key.
func (k *ScopedKeyer) LevelKey(hierarchyHash string, opts LevelKeyOpts) string {
	return k.prefix + k.inner.LevelKey(hierarchyHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(levelHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(levelHash, opts)
}
