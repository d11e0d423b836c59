package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vormap/vormap/pkg/snapshot"
)

func testServer(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPSource(srv.URL, nil)
}

func TestSnapshots(t *testing.T) {
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/snapshots" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"snapshots": []snapshot.Descriptor{
				{ID: "2026-08-30", Path: "/data", Size: 300, FileCount: 12},
				{ID: "2026-08-29", Path: "/data", Size: 290, FileCount: 11},
			},
		})
	})

	snaps, err := src.Snapshots(context.Background())
	if err != nil {
		t.Fatalf("Snapshots error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != "2026-08-30" || snaps[0].Size != 300 {
		t.Errorf("Unexpected first snapshot: %+v", snaps[0])
	}
}

func TestHierarchy(t *testing.T) {
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hierarchy/2026-08-30" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(snapshot.Hierarchy{
			Version:  snapshot.ArtifactVersion,
			Snapshot: snapshot.Descriptor{ID: "2026-08-30", Path: "/data"},
			RootID:   "n0",
			Nodes: map[string]*snapshot.Record{
				"n0": {ID: "n0", Name: "data", Path: "/data", Size: 300, IsDir: true},
			},
		})
	})

	h, err := src.Hierarchy(context.Background(), "2026-08-30")
	if err != nil {
		t.Fatalf("Hierarchy error: %v", err)
	}
	if h.Root() == nil || h.Root().Path != "/data" {
		t.Errorf("Unexpected root: %+v", h.Root())
	}
}

func TestHierarchyNotFound(t *testing.T) {
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := src.Hierarchy(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestHierarchyUnresolvedRoot(t *testing.T) {
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(snapshot.Hierarchy{
			Snapshot: snapshot.Descriptor{ID: "2026-08-30"},
			RootID:   "dangling",
			Nodes:    map[string]*snapshot.Record{},
		})
	})

	_, err := src.Hierarchy(context.Background(), "2026-08-30")
	if err == nil {
		t.Fatal("Expected error for unresolved root id")
	}
}

func TestList(t *testing.T) {
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/folders/list" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("snapshot") != "2026-08-30" || q.Get("path") != "/data" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"entries": []snapshot.Entry{
				{Name: "a", Path: "/data/a", Size: 200, IsDir: true},
				{Name: "readme.md", Path: "/data/readme.md", Size: 20},
			},
		})
	})

	entries, err := src.List(context.Background(), "2026-08-30", "/data")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if !entries[0].IsDir || entries[1].IsDir {
		t.Errorf("Unexpected entry kinds: %+v", entries)
	}
}

func TestListerCurriesSnapshot(t *testing.T) {
	var gotSnapshot atomic.Value
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotSnapshot.Store(r.URL.Query().Get("snapshot"))
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": []snapshot.Entry{}})
	})

	list := Lister(src, "2026-08-30")
	if _, err := list(context.Background(), "/data"); err != nil {
		t.Fatalf("Lister error: %v", err)
	}
	if gotSnapshot.Load() != "2026-08-30" {
		t.Errorf("Lister should pin the snapshot id, got %v", gotSnapshot.Load())
	}
}

func TestServerErrorRetries(t *testing.T) {
	var calls atomic.Int32
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"snapshots": []snapshot.Descriptor{}})
	})

	if _, err := src.Snapshots(context.Background()); err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	src := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := src.Snapshots(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Expected ErrNetwork, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("4xx should not retry: %d calls", calls.Load())
	}
}
