package render

import (
	"context"
	"errors"
	"testing"

	"github.com/vormap/vormap/pkg/geom"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/snapshot"
)

func testTree() *snapshot.Node {
	return &snapshot.Node{
		Name: "data", Path: "/data", Size: 300, IsDir: true,
		Children: []*snapshot.Node{
			{Name: "a", Path: "/data/a", Size: 200, IsDir: true, Depth: 1},
			{Name: "b", Path: "/data/b", Size: 80, IsDir: true, Depth: 1},
			{
				Name: snapshot.SyntheticName, Path: "/data/__files__", Size: 20,
				Synthetic: true, Depth: 1,
				Children: []*snapshot.Node{
					{Name: "x.log", Path: "/data/x.log", Size: 12, Depth: 2},
					{Name: "y.log", Path: "/data/y.log", Size: 8, Depth: 2},
				},
			},
		},
	}
}

func staticFetch(root *snapshot.Node) FetchFunc {
	return func(ctx context.Context, snapshotID, path string) (*snapshot.Node, error) {
		return root, nil
	}
}

func testRequest() Request {
	return Request{SnapshotID: "snap", Path: "/data", Width: 400, Height: 400}
}

func TestOrchestratorLifecycle(t *testing.T) {
	var events []Event
	o := NewOrchestrator(
		layout.NewCache(8),
		staticFetch(testTree()),
		WithObserver(func(e Event) { events = append(events, e) }),
	)

	if o.State() != StateIdle {
		t.Fatalf("Initial state = %s, want idle", o.State())
	}

	r, err := o.Request(context.Background(), TriggerPathChange, testRequest())
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if r == nil || r.Disposed() {
		t.Fatal("Expected a live renderer")
	}
	if o.State() != StateReady {
		t.Errorf("State = %s, want ready", o.State())
	}

	want := []State{StateComputing, StateRendering, StateReady}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i, e := range events {
		if e.State != want[i] {
			t.Errorf("Event %d state = %s, want %s", i, e.State, want[i])
		}
	}
}

func TestOrchestratorSingleLiveRenderer(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	ctx := context.Background()

	first, err := o.Request(ctx, TriggerPathChange, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	second, err := o.Request(ctx, TriggerRelayout, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	if !first.Disposed() {
		t.Error("Previous renderer should be disposed after swap")
	}
	if second.Disposed() {
		t.Error("New renderer should be live")
	}
	if o.Renderer() != second {
		t.Error("Slot should hold the new renderer")
	}
	if first.ID() == second.ID() {
		t.Error("Renderers should have distinct ids")
	}
}

func TestOrchestratorCacheHit(t *testing.T) {
	var hits []bool
	o := NewOrchestrator(
		layout.NewCache(8),
		staticFetch(testTree()),
		WithObserver(func(e Event) {
			if e.State == StateRendering {
				hits = append(hits, e.CacheHit)
			}
		}),
	)
	ctx := context.Background()

	first, _ := o.Request(ctx, TriggerPathChange, testRequest())
	second, _ := o.Request(ctx, TriggerPathChange, testRequest())

	if len(hits) != 2 || hits[0] || !hits[1] {
		t.Errorf("Expected miss then hit, got %v", hits)
	}
	if first.Level() != second.Level() {
		t.Error("Cache hit should reuse the identical level")
	}
}

func TestOrchestratorDataChangeRecomputes(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	ctx := context.Background()

	first, _ := o.Request(ctx, TriggerPathChange, testRequest())
	v1 := first.Level().Version

	second, _ := o.Request(ctx, TriggerDataChange, testRequest())
	if second.Level() == first.Level() {
		t.Error("Data change should not reuse the cached level")
	}
	if second.Level().Version <= v1 {
		t.Errorf("Version should increase: %d -> %d", v1, second.Level().Version)
	}
}

func TestOrchestratorResizeThreshold(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	ctx := context.Background()

	first, _ := o.Request(ctx, TriggerPathChange, testRequest())

	// Sub-pixel resize is a no-op
	req := testRequest()
	req.Width = 400.4
	same, err := o.Request(ctx, TriggerResize, req)
	if err != nil {
		t.Fatal(err)
	}
	if same != first || first.Disposed() {
		t.Error("Sub-pixel resize should keep the current renderer")
	}

	// A real resize recomputes
	req.Width = 500
	next, err := o.Request(ctx, TriggerResize, req)
	if err != nil {
		t.Fatal(err)
	}
	if next == first || !first.Disposed() {
		t.Error("Real resize should swap in a new renderer")
	}
}

func TestOrchestratorLockSuppression(t *testing.T) {
	locked := true
	o := NewOrchestrator(
		layout.NewCache(8),
		staticFetch(testTree()),
		WithLockProbe(func() bool { return locked }),
	)
	ctx := context.Background()

	r, err := o.Request(ctx, TriggerPathChange, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Error("Request while locked should be a no-op")
	}
	if o.State() != StateIdle {
		t.Errorf("State = %s, want idle", o.State())
	}

	locked = false
	if r, _ = o.Request(ctx, TriggerPathChange, testRequest()); r == nil {
		t.Error("Request after unlock should render")
	}
}

func TestOrchestratorStaleFetchDiscarded(t *testing.T) {
	current := "/data"
	o := NewOrchestrator(
		layout.NewCache(8),
		staticFetch(testTree()),
		WithPathProbe(func() string { return current }),
	)
	ctx := context.Background()

	first, _ := o.Request(ctx, TriggerPathChange, testRequest())

	// The user navigated away while the fetch was in flight.
	current = "/data/a"
	same, err := o.Request(ctx, TriggerPathChange, testRequest())
	if err != nil {
		t.Fatal(err)
	}
	if same != first || first.Disposed() {
		t.Error("Stale fetch should leave the previous renderer attached")
	}
	if o.State() != StateReady {
		t.Errorf("State = %s, want ready", o.State())
	}
}

func TestOrchestratorFetchFailureKeepsLastRender(t *testing.T) {
	errBackend := errors.New("backend down")
	failing := false
	fetch := func(ctx context.Context, snapshotID, path string) (*snapshot.Node, error) {
		if failing {
			return nil, errBackend
		}
		return testTree(), nil
	}

	o := NewOrchestrator(layout.NewCache(8), fetch)
	ctx := context.Background()

	first, err := o.Request(ctx, TriggerPathChange, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	failing = true
	same, err := o.Request(ctx, TriggerDataChange, testRequest())
	if !errors.Is(err, errBackend) {
		t.Fatalf("Expected backend error, got %v", err)
	}
	if same != first || first.Disposed() {
		t.Error("Failed fetch should leave the previous renderer visible")
	}
	if o.State() != StateReady {
		t.Errorf("State = %s, want ready", o.State())
	}
}

func TestOrchestratorPinnedSelectionCarries(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	ctx := context.Background()

	first, _ := o.Request(ctx, TriggerPathChange, testRequest())
	if sel := first.Select("/data/a", true); sel == nil || !sel.Pinned {
		t.Fatal("Pinned selection failed")
	}

	second, _ := o.Request(ctx, TriggerRelayout, testRequest())
	sel := second.Selection()
	if sel == nil || !sel.Pinned || sel.Node == nil || sel.Node.Path != "/data/a" {
		t.Errorf("Pinned selection should carry over, got %+v", sel)
	}

	// Unpinned selections end with the render pass
	second.ClearSelection(true)
	second.Select("/data/b", false)
	third, _ := o.Request(ctx, TriggerRelayout, testRequest())
	if third.Selection() != nil {
		t.Error("Unpinned selection should not carry over")
	}
}

func TestOrchestratorDispose(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	r, _ := o.Request(context.Background(), TriggerPathChange, testRequest())

	o.Dispose()
	if !r.Disposed() {
		t.Error("Dispose should release the live renderer")
	}
	if o.State() != StateIdle {
		t.Errorf("State = %s, want idle", o.State())
	}
	if o.Renderer() != nil {
		t.Error("Slot should be empty after Dispose")
	}
}

func TestRendererSimulation(t *testing.T) {
	o := NewOrchestrator(layout.NewCache(8), staticFetch(testTree()))
	r, err := o.Request(context.Background(), TriggerPathChange, testRequest())
	if err != nil {
		t.Fatal(err)
	}

	cell, ok := r.Level().Polygons["/data/__files__"]
	if !ok {
		t.Fatal("Synthetic container cell missing")
	}

	for range 10 {
		r.Tick()
	}
	for path, b := range r.Level().Bubbles {
		if !cell.Contains(b.Center) {
			t.Errorf("Bubble %s escaped its cell after ticking: %+v", path, b.Center)
		}
	}

	// Dragging far outside the cell keeps the bubble inside
	if !r.Drag("/data/x.log", geom.Point{X: -5000, Y: -5000}) {
		t.Fatal("Drag should find the bubble")
	}
	if b := r.Level().Bubbles["/data/x.log"]; !cell.Contains(b.Center) {
		t.Errorf("Dragged bubble escaped: %+v", b.Center)
	}

	// Disposal stops the simulation
	r.Dispose()
	r.Dispose()
	if r.Drag("/data/x.log", geom.Point{X: 0, Y: 0}) {
		t.Error("Drag after dispose should be refused")
	}
}

func TestSlotSwapDisposes(t *testing.T) {
	var s Slot
	first := NewRenderer(layout.Compute(testTree(), layout.NewKey("snap", "/data", 300, 300), layout.Options{}))
	second := NewRenderer(layout.Compute(testTree(), layout.NewKey("snap", "/data", 300, 300), layout.Options{}))

	s.Swap(first)
	s.Swap(second)
	if !first.Disposed() {
		t.Error("Swap should dispose the outgoing renderer")
	}
	if second.Disposed() {
		t.Error("Swap should keep the incoming renderer live")
	}

	s.Release()
	if !second.Disposed() || s.Current() != nil {
		t.Error("Release should dispose and clear")
	}
}
