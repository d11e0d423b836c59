package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vormap/vormap/pkg/cache"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/observability"
	"github.com/vormap/vormap/pkg/render"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
)

// Runner encapsulates pipeline execution with caching. The CLI, TUI, and
// API all use it so caching logic lives in one place.
//
// The Runner is stateless except for the source, cache, and logger; it
// does not store pipeline results. Multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Source source.Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner over src with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used. If c is nil, a NullCache is
// used (caching disabled).
func NewRunner(src source.Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete fetch → adapt → layout → render pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Fetch and adapt
	fetchStart := time.Now()
	observability.Pipeline().OnFetchStart(ctx, opts.SnapshotID, opts.Path)
	tree, hierarchyHash, fetchHit, err := r.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		observability.Pipeline().OnFetchComplete(ctx, opts.SnapshotID, opts.Path, 0, time.Since(fetchStart), err)
		return nil, fmt.Errorf("fetch: %w", err)
	}
	observability.Pipeline().OnFetchComplete(ctx, opts.SnapshotID, opts.Path, tree.CountNodes(), time.Since(fetchStart), nil)
	result.Tree = tree
	result.HierarchyHash = hierarchyHash
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.NodeCount = tree.CountNodes()
	result.CacheInfo.FetchHit = fetchHit

	r.Logger.Info("fetched hierarchy",
		"snapshot", opts.SnapshotID,
		"path", opts.Path,
		"nodes", result.Stats.NodeCount,
		"duration", result.Stats.FetchTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, opts.SnapshotID, opts.Path, result.Stats.NodeCount)
	lvl, layoutHit, err := r.ComputeLevelWithCacheInfo(ctx, tree, hierarchyHash, opts)
	if err != nil {
		observability.Pipeline().OnLayoutComplete(ctx, opts.SnapshotID, opts.Path, false, time.Since(layoutStart), err)
		return nil, fmt.Errorf("layout: %w", err)
	}
	observability.Pipeline().OnLayoutComplete(ctx, opts.SnapshotID, opts.Path, lvl.Converged, time.Since(layoutStart), nil)
	result.Level = lvl
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.CellCount = len(lvl.Polygons)
	result.Stats.BubbleCount = len(lvl.Bubbles)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed level",
		"cells", result.Stats.CellCount,
		"bubbles", result.Stats.BubbleCount,
		"converged", lvl.Converged,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, lvl, opts)
	if err != nil {
		observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
		return nil, fmt.Errorf("render: %w", err)
	}
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), nil)
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// FetchWithCacheInfo loads the hierarchy with caching, adapts the
// requested path, and returns the adapted tree, the hierarchy's content
// hash, and cache hit info.
//
// When the backend has no precomputed hierarchy for the snapshot, the
// runner falls back to assembling the tree from bounded-depth folder
// listings. The fallback is not cached: listing data is already shallow
// and the artifact hash would not be stable.
func (r *Runner) FetchWithCacheInfo(ctx context.Context, opts Options) (*snapshot.Node, string, bool, error) {
	if err := opts.ValidateForFetch(); err != nil {
		return nil, "", false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.HierarchyKey(opts.SnapshotID, opts.HierarchyKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if h, err := snapshot.UnmarshalHierarchy(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "hierarchy")
				tree, err := snapshot.BuildFromHierarchy(h, opts.Path)
				if err != nil {
					return nil, "", false, err
				}
				return tree, cache.Hash(data), true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "hierarchy")
	}

	h, err := r.Source.Hierarchy(ctx, opts.SnapshotID)
	if errors.Is(err, source.ErrNotFound) {
		r.Logger.Debug("no precomputed hierarchy, falling back to listings",
			"snapshot", opts.SnapshotID)
		tree, err := snapshot.BuildFromListing(ctx, source.Lister(r.Source, opts.SnapshotID), opts.Path, opts.MaxDepth)
		if err != nil {
			return nil, "", false, err
		}
		return tree, listingHash(opts), false, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	data, err := snapshot.MarshalHierarchy(h)
	if err != nil {
		return nil, "", false, err
	}
	_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLHierarchy)
	observability.Cache().OnCacheSet(ctx, "hierarchy", len(data))

	tree, err := snapshot.BuildFromHierarchy(h, opts.Path)
	if err != nil {
		return nil, "", false, err
	}
	return tree, cache.Hash(data), false, nil
}

// Fetch is a convenience wrapper that discards the cache hit info.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*snapshot.Node, string, error) {
	tree, hash, _, err := r.FetchWithCacheInfo(ctx, opts)
	return tree, hash, err
}

// ComputeLevelWithCacheInfo computes a level with caching and returns
// cache hit info. hierarchyHash chains the fetch stage into the level's
// cache key so a recomputed snapshot invalidates downstream entries.
func (r *Runner) ComputeLevelWithCacheInfo(ctx context.Context, tree *snapshot.Node, hierarchyHash string, opts Options) (*layout.Level, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.LevelKey(hierarchyHash, opts.LevelKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if cached, err := UnmarshalLevel(data); err == nil {
				observability.Cache().OnCacheHit(ctx, "level")
				return cached, true, nil
			}
			// Corrupt cached level, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, "level")
	}

	key := layout.NewKey(opts.SnapshotID, opts.Path, opts.Width, opts.Height)
	lvl := layout.Compute(tree, key, opts.LayoutOptions())

	if data, err := MarshalLevel(lvl); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLLevel)
		observability.Cache().OnCacheSet(ctx, "level", len(data))
	}

	return lvl, false, nil
}

// ComputeLevel is a convenience wrapper that discards the cache hit info.
func (r *Runner) ComputeLevel(ctx context.Context, tree *snapshot.Node, hierarchyHash string, opts Options) (*layout.Level, error) {
	lvl, _, err := r.ComputeLevelWithCacheInfo(ctx, tree, hierarchyHash, opts)
	return lvl, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache
// hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, lvl *layout.Level, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	levelData, err := MarshalLevel(lvl)
	if err != nil {
		return nil, false, fmt.Errorf("serialize level for cache key: %w", err)
	}
	levelHash := cache.Hash(levelData)

	// Try to get all formats from cache
	allCached := true
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		cacheKey := r.Keyer.ArtifactKey(levelHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
		} else {
			allCached = false
			break
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil
	}

	rendered, err := renderFormats(lvl, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(levelHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}

	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, lvl *layout.Level, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, lvl, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// renderFormats produces every requested format from one level.
func renderFormats(lvl *layout.Level, opts Options) (map[string][]byte, error) {
	theme := Themes[opts.Theme]
	out := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		switch format {
		case FormatSVG:
			svgOpts := []render.SVGOption{render.WithTheme(theme)}
			if opts.Labels {
				svgOpts = append(svgOpts, render.WithLabels())
			}
			out[format] = render.RenderSVG(lvl, svgOpts...)
		case FormatJSON:
			data, err := render.RenderJSON(lvl)
			if err != nil {
				return nil, fmt.Errorf("render json: %w", err)
			}
			out[format] = data
		case FormatDOT:
			out[format] = []byte(render.ToDOT(lvl.Root, render.DOTOptions{Detailed: opts.Labels}))
		default:
			return nil, fmt.Errorf("invalid format: %q", format)
		}
	}
	return out, nil
}

// listingHash derives a stage hash for the uncached listing fallback.
func listingHash(opts Options) string {
	return cache.Hash([]byte(fmt.Sprintf("listing:%s:%s:%d", opts.SnapshotID, opts.Path, opts.MaxDepth)))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
