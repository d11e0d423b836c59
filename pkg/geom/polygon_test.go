package geom

import (
	"math"
	"math/rand/v2"
	"testing"
)

func square(side float64) Polygon {
	return Rectangle(Rect{X: 0, Y: 0, Width: side, Height: side})
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		poly Polygon
		want bool
	}{
		{"triangle", Polygon{{0, 0}, {10, 0}, {5, 8}}, true},
		{"square", square(10), true},
		{"too few vertices", Polygon{{0, 0}, {1, 1}}, false},
		{"degenerate sliver", Polygon{{0, 0}, {10, 0}, {5, 1e-9}}, false},
		{"collinear", Polygon{{0, 0}, {5, 0}, {10, 0}}, false},
		// A bowtie's two lobes cancel in the shoelace sum.
		{"self-intersecting bowtie", Polygon{{0, 0}, {10, 10}, {10, 0}, {0, 10}}, false},
		{"empty", Polygon{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.poly.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArea(t *testing.T) {
	if got := square(10).Area(); math.Abs(got-100) > 1e-9 {
		t.Errorf("Area() = %v, want 100", got)
	}
	tri := Polygon{{0, 0}, {10, 0}, {0, 10}}
	if got := tri.Area(); math.Abs(got-50) > 1e-9 {
		t.Errorf("Area() = %v, want 50", got)
	}
}

func TestBounds(t *testing.T) {
	poly := Polygon{{2, 3}, {8, 1}, {6, 9}}
	b := poly.Bounds()
	want := Rect{X: 2, Y: 1, Width: 6, Height: 8}
	if b != want {
		t.Errorf("Bounds() = %+v, want %+v", b, want)
	}
}

func TestCentroid(t *testing.T) {
	c := square(10).Centroid()
	if math.Abs(c.X-5) > 1e-9 || math.Abs(c.Y-5) > 1e-9 {
		t.Errorf("Centroid() = %+v, want (5,5)", c)
	}
}

func TestContains(t *testing.T) {
	poly := square(10)
	if !poly.Contains(Point{5, 5}) {
		t.Error("center should be inside")
	}
	if poly.Contains(Point{15, 5}) {
		t.Error("point beyond the right edge should be outside")
	}
	if poly.Contains(Point{-1, -1}) {
		t.Error("point below the origin should be outside")
	}
}

func TestConstrainIdempotentInside(t *testing.T) {
	poly := Polygon{{0, 0}, {20, 0}, {25, 15}, {10, 25}, {-3, 12}}
	rng := rand.New(rand.NewPCG(7, 7))
	b := poly.Bounds()
	for range 500 {
		p := Point{b.X + rng.Float64()*b.Width, b.Y + rng.Float64()*b.Height}
		if !poly.Contains(p) {
			continue
		}
		if got := poly.Constrain(p, 0); got != p {
			t.Fatalf("Constrain(%+v, 0) = %+v, want unchanged", p, got)
		}
	}
}

func TestConstrainPullsOutsidePointsIn(t *testing.T) {
	poly := square(10)
	outside := []Point{{15, 5}, {-4, 5}, {5, 12}, {20, 20}, {-1, -1}}
	for _, p := range outside {
		got := poly.Constrain(p, 0.5)
		if !poly.Contains(got) {
			t.Errorf("Constrain(%+v) = %+v, still outside", p, got)
		}
	}
}

func TestConstrainNeverBoundaryExact(t *testing.T) {
	poly := square(10)
	// Directly opposite an edge midpoint: the projection lands exactly on the
	// boundary, the nudge must move it strictly inside.
	got := poly.Constrain(Point{5, -3}, 0)
	if got.Y <= 0 {
		t.Errorf("Constrain returned boundary-exact or exterior point %+v", got)
	}
}

func TestClosestBoundaryPoint(t *testing.T) {
	poly := square(10)
	got := poly.ClosestBoundaryPoint(Point{5, -3})
	if math.Abs(got.X-5) > 1e-9 || math.Abs(got.Y) > 1e-9 {
		t.Errorf("ClosestBoundaryPoint = %+v, want (5,0)", got)
	}
	// A corner is closest for diagonally exterior points.
	got = poly.ClosestBoundaryPoint(Point{14, 14})
	if math.Abs(got.X-10) > 1e-9 || math.Abs(got.Y-10) > 1e-9 {
		t.Errorf("ClosestBoundaryPoint = %+v, want (10,10)", got)
	}
}

func TestRegularPolygon(t *testing.T) {
	poly := RegularPolygon(Point{0, 0}, 10, 64)
	if len(poly) != 64 {
		t.Fatalf("want 64 vertices, got %d", len(poly))
	}
	// Area converges to the circle's as n grows.
	if a := poly.Area(); math.Abs(a-math.Pi*100) > 2 {
		t.Errorf("Area() = %v, want close to %v", a, math.Pi*100)
	}
}
