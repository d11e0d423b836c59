package bubble

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/vormap/vormap/pkg/geom"
)

func hexagon() geom.Polygon {
	return geom.RegularPolygon(geom.Point{X: 100, Y: 100}, 90, 6)
}

func TestRadiusMonotonicAndClamped(t *testing.T) {
	opts := Options{MinRadius: 2, MaxRadius: 40}
	prev := 0.0
	for _, size := range []int64{0, 1, 10, 100, 1000, 10000} {
		r := Radius(size, 10000, opts)
		if r < prev {
			t.Errorf("Radius not monotonic at size %d: %v < %v", size, r, prev)
		}
		if r < opts.MinRadius || r > opts.MaxRadius {
			t.Errorf("Radius(%d) = %v outside clamp range", size, r)
		}
		prev = r
	}
	if r := Radius(10000, 10000, opts); r != opts.MaxRadius {
		t.Errorf("largest file should hit MaxRadius, got %v", r)
	}
	if r := Radius(5, 0, opts); r != opts.MinRadius {
		t.Errorf("zero maxSize should fall back to MinRadius, got %v", r)
	}
}

func TestPackContainsAllCenters(t *testing.T) {
	container := hexagon()
	items := make([]Item, 24)
	for i := range items {
		items[i] = Item{Path: fmt.Sprintf("/f/%d", i), Size: int64((i + 1) * 1000)}
	}
	bubbles := Pack(container, items, 42, Options{})
	if len(bubbles) != len(items) {
		t.Fatalf("want %d bubbles, got %d", len(items), len(bubbles))
	}
	for _, b := range bubbles {
		if !container.Contains(b.Center) {
			t.Errorf("bubble %s center %+v escaped the container", b.Path, b.Center)
		}
	}
}

func TestSingleRelaxationPassContainment(t *testing.T) {
	// 1000 random placements inside a fixed convex polygon followed by one
	// relaxation pass: 100% of centers must remain inside.
	container := hexagon()
	bounds := container.Bounds()
	rng := rand.New(rand.NewPCG(7, 11))

	const batch = 20
	for trial := 0; trial < 50; trial++ {
		bubbles := make([]Bubble, batch)
		for i := range bubbles {
			start := geom.Point{
				X: bounds.X + rng.Float64()*bounds.Width,
				Y: bounds.Y + rng.Float64()*bounds.Height,
			}
			bubbles[i] = Bubble{Path: fmt.Sprintf("/%d/%d", trial, i), Center: container.Constrain(start, 3), Radius: 3}
		}
		Step(bubbles, container)
		for _, b := range bubbles {
			if !container.Contains(b.Center) {
				t.Fatalf("center %+v outside after one pass", b.Center)
			}
		}
	}
}

func TestPackDeterministic(t *testing.T) {
	container := hexagon()
	items := []Item{{"/a", 100}, {"/b", 2000}, {"/c", 50}}
	x := Pack(container, items, 99, Options{})
	y := Pack(container, items, 99, Options{})
	for i := range x {
		if x[i] != y[i] {
			t.Fatalf("bubble %d differs across identical runs: %+v vs %+v", i, x[i], y[i])
		}
	}
}

func TestPackSpreadsCoincidentStarts(t *testing.T) {
	container := hexagon()
	items := []Item{{"/a", 10}, {"/b", 10}, {"/c", 10}, {"/d", 10}}
	bubbles := Pack(container, items, 3, Options{Steps: 40})
	for i := range bubbles {
		for j := i + 1; j < len(bubbles); j++ {
			if bubbles[i].Center == bubbles[j].Center {
				t.Errorf("bubbles %d and %d ended coincident", i, j)
			}
		}
	}
}

func TestDragNeverEscapes(t *testing.T) {
	container := hexagon()
	b := Bubble{Path: "/f", Center: geom.Point{X: 100, Y: 100}, Radius: 5}

	// Drag far outside in several directions; the boundary constraint must
	// hold on every move.
	targets := []geom.Point{{X: 500, Y: 100}, {X: -300, Y: 100}, {X: 100, Y: 900}, {X: 100, Y: -900}, {X: 400, Y: 400}}
	for _, target := range targets {
		Drag(&b, target, container)
		if !container.Contains(b.Center) {
			t.Fatalf("drag to %+v left the container: %+v", target, b.Center)
		}
	}

	// Dragging inside lands exactly on the target.
	inside := geom.Point{X: 120, Y: 90}
	Drag(&b, inside, container)
	if b.Center != inside {
		t.Errorf("interior drag moved to %+v, want %+v", b.Center, inside)
	}
}

func TestPackEmpty(t *testing.T) {
	if got := Pack(hexagon(), nil, 1, Options{}); got != nil {
		t.Errorf("no items should produce no bubbles, got %v", got)
	}
	if got := Pack(geom.Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}, []Item{{"/a", 1}}, 1, Options{}); got != nil {
		t.Errorf("degenerate container should produce no bubbles, got %v", got)
	}
}
