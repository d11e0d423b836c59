package tessellate

import (
	"math"
	"testing"

	"github.com/vormap/vormap/pkg/geom"
)

func square(side float64) geom.Polygon {
	return geom.Rectangle(geom.Rect{Width: side, Height: side})
}

func totalArea(cells []geom.Polygon) float64 {
	var sum float64
	for _, c := range cells {
		sum += c.Area()
	}
	return sum
}

func TestPartitionEmpty(t *testing.T) {
	res := Partition(square(100), nil, 1, Options{})
	if len(res.Cells) != 0 || !res.Converged {
		t.Errorf("empty input should produce an empty converged result: %+v", res)
	}
}

func TestPartitionSingleChild(t *testing.T) {
	parent := square(100)
	res := Partition(parent, []float64{42}, 1, Options{})
	if len(res.Cells) != 1 {
		t.Fatalf("want 1 cell, got %d", len(res.Cells))
	}
	if math.Abs(res.Cells[0].Area()-parent.Area()) > 1e-9 {
		t.Error("single child should own the whole parent polygon")
	}
	// The returned cell is a copy, never the caller's polygon.
	res.Cells[0][0].X = -999
	if parent[0].X == -999 {
		t.Error("cell must not alias the parent polygon")
	}
}

func TestPartitionTwoToOneRatio(t *testing.T) {
	// A 300x300 square partitioned for sizes 200 and 100 must yield
	// areas approximately in a 2:1 ratio.
	parent := square(300)
	seed := SeedFromPaths([]string{"/data/a", "/data/b"})
	res := Partition(parent, []float64{200, 100}, seed, Options{})

	if len(res.Cells) != 2 || res.Cells[0] == nil || res.Cells[1] == nil {
		t.Fatalf("want 2 live cells, got %+v", res.Cells)
	}
	a0, a1 := res.Cells[0].Area(), res.Cells[1].Area()
	ratio := a0 / a1
	if math.Abs(ratio-2) > 0.2 {
		t.Errorf("area ratio = %.3f, want ~2 (areas %.0f, %.0f)", ratio, a0, a1)
	}
	if sum := a0 + a1; math.Abs(sum-parent.Area())/parent.Area() > 0.05 {
		t.Errorf("cells cover %.0f of parent %.0f", sum, parent.Area())
	}
}

func TestPartitionAreaProportionality(t *testing.T) {
	parent := square(400)
	weights := []float64{500, 300, 120, 60, 20}
	seed := SeedFromPaths([]string{"/a", "/b", "/c", "/d", "/e"})
	res := Partition(parent, weights, seed, Options{})

	var totalW float64
	for _, w := range weights {
		totalW += w
	}
	parentArea := parent.Area()

	// Sum of child areas within ±5% of the parent area.
	if sum := totalArea(res.Cells); math.Abs(sum-parentArea)/parentArea > 0.05 {
		t.Errorf("partition covers %.0f of parent %.0f", sum, parentArea)
	}

	// Each live cell near its proportional target.
	for i, cell := range res.Cells {
		if cell == nil {
			t.Fatalf("cell %d degenerated", i)
		}
		target := parentArea * weights[i] / totalW
		if err := math.Abs(cell.Area()-target) / target; err > 0.10 {
			t.Errorf("cell %d area %.0f, target %.0f (err %.1f%%)", i, cell.Area(), target, err*100)
		}
	}
}

func TestPartitionZeroTotalWeight(t *testing.T) {
	parent := square(200)
	res := Partition(parent, []float64{0, 0, 0, 0}, 9, Options{})
	parentArea := parent.Area()
	for i, cell := range res.Cells {
		if cell == nil {
			t.Fatalf("cell %d degenerated", i)
		}
		// Equal-area split: each cell near a quarter.
		if err := math.Abs(cell.Area()-parentArea/4) / (parentArea / 4); err > 0.10 {
			t.Errorf("cell %d area %.0f, want ~%.0f", i, cell.Area(), parentArea/4)
		}
	}
}

func TestPartitionZeroSizeChildStaysClickable(t *testing.T) {
	res := Partition(square(300), []float64{1000, 0}, 5, Options{})
	if res.Cells[1] == nil || !res.Cells[1].Valid() {
		t.Fatal("zero-size child must keep a renderable cell")
	}
	if res.Cells[1].Area() >= res.Cells[0].Area() {
		t.Error("zero-size child should get the minimum visual weight, not parity")
	}
}

func TestPartitionDeterministic(t *testing.T) {
	parent := square(250)
	weights := []float64{70, 20, 10}
	seed := SeedFromPaths([]string{"/x", "/y", "/z"})

	a := Partition(parent, weights, seed, Options{})
	b := Partition(parent, weights, seed, Options{})

	if len(a.Cells) != len(b.Cells) {
		t.Fatal("cell counts differ across identical runs")
	}
	for i := range a.Cells {
		if len(a.Cells[i]) != len(b.Cells[i]) {
			t.Fatalf("cell %d vertex counts differ", i)
		}
		for j := range a.Cells[i] {
			if a.Cells[i][j] != b.Cells[i][j] {
				t.Fatalf("cell %d vertex %d differs: %+v vs %+v", i, j, a.Cells[i][j], b.Cells[i][j])
			}
		}
	}
}

func TestSeedFromPaths(t *testing.T) {
	a := SeedFromPaths([]string{"/a", "/b"})
	if b := SeedFromPaths([]string{"/a", "/b"}); a != b {
		t.Error("same paths must produce the same seed")
	}
	if c := SeedFromPaths([]string{"/b", "/a"}); a == c {
		t.Error("ordering is part of the seed")
	}
	// Segment boundaries matter: {"/a","/b"} vs {"/a/b"}.
	if d := SeedFromPaths([]string{"/a/b"}); a == d {
		t.Error("path concatenation must not collide")
	}
}

func TestPartitionInsideIrregularParent(t *testing.T) {
	parent := geom.Polygon{{X: 0, Y: 0}, {X: 200, Y: 20}, {X: 240, Y: 150}, {X: 120, Y: 220}, {X: -10, Y: 140}}
	res := Partition(parent, []float64{5, 3, 2}, 11, Options{})

	parentArea := parent.Area()
	if sum := totalArea(res.Cells); math.Abs(sum-parentArea)/parentArea > 0.05 {
		t.Errorf("partition covers %.0f of parent %.0f", sum, parentArea)
	}
	// Every cell must stay inside the parent's bounds.
	pb := parent.Bounds()
	for i, cell := range res.Cells {
		cb := cell.Bounds()
		if cb.X < pb.X-1e-6 || cb.Y < pb.Y-1e-6 ||
			cb.X+cb.Width > pb.X+pb.Width+1e-6 || cb.Y+cb.Height > pb.Y+pb.Height+1e-6 {
			t.Errorf("cell %d escapes parent bounds: %+v vs %+v", i, cb, pb)
		}
	}
}

func TestClipHalfPlane(t *testing.T) {
	poly := square(10)
	// Keep x <= 4.
	got := clip(poly, halfPlane{a: geom.Point{X: 1, Y: 0}, b: 4})
	if math.Abs(got.Area()-40) > 1e-9 {
		t.Errorf("clipped area = %v, want 40", got.Area())
	}
	// Fully outside.
	if got := clip(poly, halfPlane{a: geom.Point{X: 1, Y: 0}, b: -5}); len(got) != 0 {
		t.Errorf("fully clipped polygon should be empty, got %d vertices", len(got))
	}
	// Fully inside.
	if got := clip(poly, halfPlane{a: geom.Point{X: 1, Y: 0}, b: 50}); math.Abs(got.Area()-100) > 1e-9 {
		t.Errorf("unclipped area = %v, want 100", got.Area())
	}
}
