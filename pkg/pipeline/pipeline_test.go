package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vormap/vormap/pkg/cache"
	"github.com/vormap/vormap/pkg/errors"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
)

// fakeSource serves a fixed hierarchy and listing set, counting calls so
// tests can assert which stages the cache absorbed.
type fakeSource struct {
	hierarchy      *snapshot.Hierarchy
	hierarchyErr   error
	listings       map[string][]snapshot.Entry
	hierarchyCalls int
	listCalls      int
}

func (f *fakeSource) Snapshots(ctx context.Context) ([]snapshot.Descriptor, error) {
	return []snapshot.Descriptor{{ID: "2026-08-30", Path: "/data"}}, nil
}

func (f *fakeSource) Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	f.hierarchyCalls++
	if f.hierarchyErr != nil {
		return nil, f.hierarchyErr
	}
	return f.hierarchy, nil
}

func (f *fakeSource) List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error) {
	f.listCalls++
	entries, ok := f.listings[path]
	if !ok {
		return nil, fmt.Errorf("%w: no listing for %s", source.ErrNotFound, path)
	}
	return entries, nil
}

func testHierarchy() *snapshot.Hierarchy {
	return &snapshot.Hierarchy{
		Version:    snapshot.ArtifactVersion,
		Snapshot:   snapshot.Descriptor{ID: "2026-08-30", Path: "/data", Size: 300, FileCount: 5},
		ComputedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		RootID:     "dir_0",
		Nodes: map[string]*snapshot.Record{
			"dir_0": {
				ID: "dir_0", Name: "data", Path: "/data", Size: 300, IsDir: true,
				FileCount: 5, Children: []string{"dir_1", "dir_2", "synthetic_0"},
			},
			"dir_1": {ID: "dir_1", Name: "a", Path: "/data/a", Size: 200, IsDir: true, Depth: 1, FileCount: 2},
			"dir_2": {ID: "dir_2", Name: "b", Path: "/data/b", Size: 80, IsDir: true, Depth: 1, FileCount: 1},
			"synthetic_0": {
				ID: "synthetic_0", Name: "__files__", Path: "/data/__files__", Size: 20,
				Depth: 1, FileCount: 2, Synthetic: true,
				OriginalFiles: []snapshot.FileRef{
					{Name: "x.log", Path: "/data/x.log", Size: 12},
					{Name: "y.log", Path: "/data/y.log", Size: 8},
				},
			},
		},
	}
}

func testOptions() Options {
	return Options{
		SnapshotID: "2026-08-30",
		Path:       "/data",
		Width:      400,
		Height:     400,
		Formats:    []string{FormatSVG, FormatJSON},
		Logger:     log.New(io.Discard),
	}
}

func newTestRunner(src source.Source) *Runner {
	return NewRunner(src, cache.NewMemoryCache(16), nil, log.New(io.Discard))
}

func TestExecuteProducesAllStages(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	result, err := r.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Tree == nil || result.Tree.Path != "/data" {
		t.Fatalf("expected tree rooted at /data, got %+v", result.Tree)
	}
	if result.HierarchyHash == "" {
		t.Error("expected non-empty hierarchy hash")
	}
	if result.Level == nil || len(result.Level.Polygons) != 3 {
		t.Fatalf("expected 3 cells, got %+v", result.Level)
	}
	if result.Stats.NodeCount == 0 || result.Stats.CellCount != 3 {
		t.Errorf("stats not populated: %+v", result.Stats)
	}
	if len(result.Artifacts[FormatSVG]) == 0 {
		t.Error("missing svg artifact")
	}
	if len(result.Artifacts[FormatJSON]) == 0 {
		t.Error("missing json artifact")
	}
	if result.CacheInfo.FetchHit || result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Errorf("cold run should miss every stage: %+v", result.CacheInfo)
	}
}

func TestExecuteSecondRunHitsEveryStage(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	result, err := r.Execute(ctx, testOptions())
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !result.CacheInfo.FetchHit || !result.CacheInfo.LayoutHit || !result.CacheInfo.RenderHit {
		t.Errorf("warm run should hit every stage: %+v", result.CacheInfo)
	}
	if src.hierarchyCalls != 1 {
		t.Errorf("expected 1 backend hierarchy call, got %d", src.hierarchyCalls)
	}
}

func TestExecuteRefreshBypassesCache(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	opts := testOptions()
	opts.Refresh = true
	result, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if result.CacheInfo.FetchHit || result.CacheInfo.LayoutHit {
		t.Errorf("refresh should bypass fetch and layout caches: %+v", result.CacheInfo)
	}
	if src.hierarchyCalls != 2 {
		t.Errorf("expected 2 backend hierarchy calls, got %d", src.hierarchyCalls)
	}
}

func TestExecuteFallsBackToListings(t *testing.T) {
	src := &fakeSource{
		hierarchyErr: fmt.Errorf("%w: not precomputed", source.ErrNotFound),
		listings: map[string][]snapshot.Entry{
			"/data": {
				{Name: "a", Path: "/data/a", Size: 200, IsDir: true, FileCount: 2},
				{Name: "note.txt", Path: "/data/note.txt", Size: 40},
			},
			"/data/a": {
				{Name: "big.bin", Path: "/data/a/big.bin", Size: 200},
			},
		},
	}
	r := newTestRunner(src)
	defer r.Close()

	result, err := r.Execute(context.Background(), testOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.CacheInfo.FetchHit {
		t.Error("listing fallback must not report a fetch hit")
	}
	if src.listCalls == 0 {
		t.Error("expected listing calls in fallback mode")
	}
	if result.Tree.Find("/data/a") == nil {
		t.Error("fallback tree missing /data/a")
	}
	if result.Tree.Find("/data/__files__") == nil {
		t.Error("fallback tree missing synthetic container for loose files")
	}
}

func TestExecutePathNotFound(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	opts := testOptions()
	opts.Path = "/data/missing"
	_, err := r.Execute(context.Background(), opts)
	if err == nil {
		t.Fatal("expected error for unknown path")
	}
	if !errors.Is(err, errors.ErrCodeNodeNotFound) {
		t.Errorf("expected node-not-found code, got %v", err)
	}
}

func TestExecuteSourceFailurePropagates(t *testing.T) {
	src := &fakeSource{hierarchyErr: fmt.Errorf("%w: connection refused", source.ErrNetwork)}
	r := newTestRunner(src)
	defer r.Close()

	_, err := r.Execute(context.Background(), testOptions())
	if err == nil {
		t.Fatal("expected error when backend is unreachable")
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Errorf("expected fetch stage error, got %v", err)
	}
}

func TestExecuteRejectsInvalidFormat(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	opts := testOptions()
	opts.Formats = []string{"png"}
	if _, err := r.Execute(context.Background(), opts); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestExecuteRejectsMissingSnapshot(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	opts := testOptions()
	opts.SnapshotID = ""
	if _, err := r.Execute(context.Background(), opts); err == nil {
		t.Fatal("expected error for missing snapshot id")
	}
}

func TestRenderDOTArtifact(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	opts := testOptions()
	opts.Formats = []string{FormatDOT}
	result, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	dot := string(result.Artifacts[FormatDOT])
	if !strings.Contains(dot, "digraph") {
		t.Errorf("expected digraph output, got %q", dot)
	}
}

func TestLevelCacheKeyedBySize(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := newTestRunner(src)
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	opts := testOptions()
	opts.Width = 800
	result, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("resized Execute: %v", err)
	}
	if !result.CacheInfo.FetchHit {
		t.Error("resize should still hit the hierarchy cache")
	}
	if result.CacheInfo.LayoutHit {
		t.Error("different viewport must not hit the level cache")
	}
}

func TestNullCacheRunnerNeverHits(t *testing.T) {
	src := &fakeSource{hierarchy: testHierarchy()}
	r := NewRunner(src, nil, nil, log.New(io.Discard))
	defer r.Close()

	ctx := context.Background()
	if _, err := r.Execute(ctx, testOptions()); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	result, err := r.Execute(ctx, testOptions())
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if result.CacheInfo.FetchHit || result.CacheInfo.LayoutHit || result.CacheInfo.RenderHit {
		t.Errorf("null cache must never report hits: %+v", result.CacheInfo)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{SnapshotID: "2026-08-30"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Path != "/" {
		t.Errorf("expected default path /, got %q", opts.Path)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("expected default viewport %gx%g, got %gx%g", DefaultWidth, DefaultHeight, opts.Width, opts.Height)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("expected default format svg, got %v", opts.Formats)
	}
	if opts.Theme != DefaultTheme {
		t.Errorf("expected default theme %q, got %q", DefaultTheme, opts.Theme)
	}
}
