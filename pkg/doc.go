// Package pkg provides the core libraries for vormap snapshot visualization.
//
// # Overview
//
// Vormap renders filesystem snapshots as zoomable Voronoi maps: every
// directory becomes a cell whose area is proportional to its size on disk,
// and loose files cluster into packed bubbles inside their parent cell.
// The pkg directory is organized into four main areas:
//
//  1. Domain logic (snapshot trees, tessellation, bubble packing, layout)
//  2. Infrastructure (caching, storage, sessions, retry)
//  3. Data sources (backend API client, local filesystem scanner)
//  4. Orchestration (pipeline, render lifecycle, navigation)
//
// # Architecture
//
// The typical data flow through vormap:
//
//	Snapshot backend / local filesystem
//	         ↓
//	    [source] package (fetch hierarchy artifacts or scan)
//	         ↓
//	    [snapshot] package (normalized tree with synthetic file clusters)
//	         ↓
//	    [layout] package (power diagram + bubble packing per level)
//	         ↓
//	    [render] package (SVG/JSON/DOT sinks, interactive lifecycle)
//
// # Quick Start
//
// Fetch a snapshot and render one level:
//
//	import (
//	    "context"
//	    "github.com/vormap/vormap/pkg/cache"
//	    "github.com/vormap/vormap/pkg/pipeline"
//	    "github.com/vormap/vormap/pkg/source"
//	)
//
//	src := source.NewHTTPSource("https://snapshots.example.com", nil)
//	runner := pipeline.NewRunner(src, cache.NewMemoryCache(64), nil, nil)
//	defer runner.Close()
//
//	result, _ := runner.Execute(context.Background(), pipeline.Options{
//	    SnapshotID: "2026-08-30",
//	    Path:       "/var/data",
//	    Formats:    []string{pipeline.FormatSVG},
//	})
//	os.WriteFile("map.svg", result.Artifacts[pipeline.FormatSVG], 0644)
//
// # Main Packages
//
// ## Domain Logic
//
// [snapshot] - Normalized snapshot trees. Adapts precomputed hierarchy
// artifacts and bounded-depth folder listings into one tree shape, with
// loose files aggregated into synthetic cluster nodes.
//
// [geom] - Polygon primitives: validity, area, centroid, clipping, and
// interior point constraint with padding.
//
// [tessellate] - Weighted Voronoi (power diagram) solver with iterative
// weight adjustment toward size-proportional cell areas.
//
// [bubble] - Circle packing for file clusters inside a containing cell,
// with collision relaxation and drag support.
//
// [layout] - Per-level composition of tessellation and packing, plus the
// LRU level cache keyed by snapshot, path, and quantized viewport.
//
// ## Infrastructure
//
// [cache] - Byte-level stage caching behind one interface: memory (LRU),
// file, Redis, and null backends, with content-hash chained stage keys.
//
// [store] - Durable hierarchy artifact storage via MongoDB, plus an
// in-memory implementation for tests.
//
// [session] - File-backed persistence of explorer state so the TUI can
// resume where the previous run ended.
//
// [httputil] - Retry with exponential backoff and retryable error
// classification for transient failures.
//
// [errors] - Coded errors with user-facing messages and input validation
// helpers.
//
// [observability] - Optional hooks for pipeline, cache, and HTTP events.
//
// ## Data Sources
//
// [source] - Backend API client (snapshots, hierarchy artifacts, folder
// listings) with retry and not-found/network error classification.
//
// [source/local] - Filesystem scanner producing the same hierarchy
// artifact shape as the backend, for offline use.
//
// ## Orchestration and Output
//
// [pipeline] - Complete fetch → layout → render pipeline with per-stage
// caching, used by CLI, TUI, and API alike.
//
// [render] - Output sinks (SVG, JSON, DOT via Graphviz) and the
// interactive render lifecycle: the state machine that decides when to
// recompute, the renderer lifecycle, and bubble simulation.
//
// [nav] - Drill-down navigation with fetch locking, history, and
// breadcrumb derivation.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/tessellate/...   # Specific package
//	go test -run Example           # Examples only
//
// [snapshot]: https://pkg.go.dev/github.com/vormap/vormap/pkg/snapshot
// [geom]: https://pkg.go.dev/github.com/vormap/vormap/pkg/geom
// [tessellate]: https://pkg.go.dev/github.com/vormap/vormap/pkg/tessellate
// [bubble]: https://pkg.go.dev/github.com/vormap/vormap/pkg/bubble
// [layout]: https://pkg.go.dev/github.com/vormap/vormap/pkg/layout
// [cache]: https://pkg.go.dev/github.com/vormap/vormap/pkg/cache
// [store]: https://pkg.go.dev/github.com/vormap/vormap/pkg/store
// [session]: https://pkg.go.dev/github.com/vormap/vormap/pkg/session
// [httputil]: https://pkg.go.dev/github.com/vormap/vormap/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/vormap/vormap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/vormap/vormap/pkg/observability
// [source]: https://pkg.go.dev/github.com/vormap/vormap/pkg/source
// [source/local]: https://pkg.go.dev/github.com/vormap/vormap/pkg/source/local
// [pipeline]: https://pkg.go.dev/github.com/vormap/vormap/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/vormap/vormap/pkg/render
// [nav]: https://pkg.go.dev/github.com/vormap/vormap/pkg/nav
package pkg
