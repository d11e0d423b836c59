package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vormap/vormap/pkg/cache"
	"github.com/vormap/vormap/pkg/pipeline"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
	"github.com/vormap/vormap/pkg/store"
)

type fakeSource struct {
	hierarchy *snapshot.Hierarchy
	listings  map[string][]snapshot.Entry
}

func (f *fakeSource) Snapshots(ctx context.Context) ([]snapshot.Descriptor, error) {
	return []snapshot.Descriptor{f.hierarchy.Snapshot}, nil
}

func (f *fakeSource) Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	if snapshotID != f.hierarchy.Snapshot.ID {
		return nil, fmt.Errorf("%w: snapshot %s", source.ErrNotFound, snapshotID)
	}
	return f.hierarchy, nil
}

func (f *fakeSource) List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error) {
	entries, ok := f.listings[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, path)
	}
	return entries, nil
}

func testHierarchy() *snapshot.Hierarchy {
	return &snapshot.Hierarchy{
		Version:    snapshot.ArtifactVersion,
		Snapshot:   snapshot.Descriptor{ID: "2026-08-30", Path: "/data", Size: 300, FileCount: 3},
		ComputedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		RootID:     "dir_0",
		Nodes: map[string]*snapshot.Record{
			"dir_0": {ID: "dir_0", Name: "data", Path: "/data", Size: 300, IsDir: true, Children: []string{"dir_1", "dir_2"}},
			"dir_1": {ID: "dir_1", Name: "a", Path: "/data/a", Size: 200, IsDir: true, Depth: 1},
			"dir_2": {ID: "dir_2", Name: "b", Path: "/data/b", Size: 100, IsDir: true, Depth: 1},
		},
	}
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	src := &fakeSource{
		hierarchy: testHierarchy(),
		listings: map[string][]snapshot.Entry{
			"/data": {
				{Name: "a", Path: "/data/a", Size: 200, IsDir: true},
				{Name: "b", Path: "/data/b", Size: 100, IsDir: true},
			},
		},
	}
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(src, cache.NewMemoryCache(16), nil, logger)
	t.Cleanup(func() { runner.Close() })

	srv := httptest.NewServer(New(runner, src, logger, opts...).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %s", body)
	}
}

func TestSnapshots(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/snapshots")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Snapshots []snapshot.Descriptor `json:"snapshots"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Snapshots) != 1 || out.Snapshots[0].ID != "2026-08-30" {
		t.Errorf("snapshots = %+v", out.Snapshots)
	}
}

func TestSnapshotsPrefersStore(t *testing.T) {
	st := store.NewMemoryStore()
	h := testHierarchy()
	h.Snapshot.ID = "2026-08-29"
	if err := st.Put(context.Background(), h); err != nil {
		t.Fatalf("Put: %v", err)
	}

	srv := newTestServer(t, WithStore(st))
	resp, body := get(t, srv.URL+"/api/snapshots")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Snapshots []snapshot.Descriptor `json:"snapshots"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Snapshots) != 1 || out.Snapshots[0].ID != "2026-08-29" {
		t.Errorf("expected store-backed listing, got %+v", out.Snapshots)
	}
}

func TestHierarchy(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/hierarchy/2026-08-30")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	h, err := snapshot.UnmarshalHierarchy(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h.Root() == nil || h.Root().Path != "/data" {
		t.Errorf("root = %+v", h.Root())
	}
}

func TestHierarchyNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/hierarchy/1999-01-01")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestList(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/folders/list?snapshot=2026-08-30&path=/data")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Entries []snapshot.Entry `json:"entries"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != 2 {
		t.Errorf("entries = %+v", out.Entries)
	}
}

func TestListRequiresSnapshot(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/folders/list?path=/data")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListRejectsRelativePath(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/folders/list?snapshot=2026-08-30&path=data")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLayout(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/layout?snapshot=2026-08-30&path=/data&width=400&height=400")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var lvl struct {
		Polygons map[string]json.RawMessage `json:"polygons"`
	}
	if err := json.Unmarshal(body, &lvl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lvl.Polygons) != 2 {
		t.Errorf("expected 2 cells, got %d", len(lvl.Polygons))
	}
}

func TestRenderSVG(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/api/render?snapshot=2026-08-30&path=/data&width=400&height=400")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(body), "<svg") {
		t.Errorf("body does not look like SVG: %.80s", body)
	}
}

func TestRenderRejectsBadFormat(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/render?snapshot=2026-08-30&format=png")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderRejectsBadWidth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/render?snapshot=2026-08-30&width=abc")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRenderUnknownPathIs404(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := get(t, srv.URL+"/api/render?snapshot=2026-08-30&path=/data/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
