package geom

import "math"

// constrainEpsilon is the extra interior nudge applied on top of the caller's
// padding. Constrain must never return a boundary-exact point: a point sitting
// exactly on an edge re-triggers the boundary force on the next simulation
// tick and jitters there indefinitely.
const constrainEpsilon = 1e-9

// Polygon is a closed polygon given as an ordered vertex sequence.
// The closing edge from the last vertex to the first is implicit.
type Polygon []Point

// Rectangle returns the polygon covering r, wound counter-clockwise.
func Rectangle(r Rect) Polygon {
	return Polygon{
		{r.X, r.Y},
		{r.X + r.Width, r.Y},
		{r.X + r.Width, r.Y + r.Height},
		{r.X, r.Y + r.Height},
	}
}

// RegularPolygon returns an n-gon approximating a circle of the given radius
// around center. Used for circular root viewports.
func RegularPolygon(center Point, radius float64, n int) Polygon {
	if n < 3 {
		n = 3
	}
	poly := make(Polygon, n)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / float64(n)
		poly[i] = Point{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)}
	}
	return poly
}

// SignedArea returns the signed area of the polygon via the shoelace formula.
// Positive for counter-clockwise winding.
func (poly Polygon) SignedArea() float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Area returns the absolute area of the polygon.
func (poly Polygon) Area() float64 {
	return math.Abs(poly.SignedArea())
}

// Valid reports whether the polygon can be rendered and hit-tested:
// at least 3 vertices and an area above MinArea. Degenerate slivers
// fail this check and are silently omitted from partitions.
func (poly Polygon) Valid() bool {
	return len(poly) >= 3 && poly.Area() > MinArea
}

// Bounds returns the axis-aligned bounding box of the polygon.
// Returns the zero Rect for an empty polygon.
func (poly Polygon) Bounds() Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	minX, minY := poly[0].X, poly[0].Y
	maxX, maxY := minX, minY
	for _, p := range poly[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Centroid returns the area-weighted centroid of the polygon.
// Falls back to the vertex average when the area is degenerate.
func (poly Polygon) Centroid() Point {
	if len(poly) == 0 {
		return Point{}
	}
	a := poly.SignedArea()
	if math.Abs(a) <= MinArea {
		var c Point
		for _, p := range poly {
			c = c.Add(p)
		}
		return c.Scale(1 / float64(len(poly)))
	}
	var cx, cy float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		cross := p.X*q.Y - q.X*p.Y
		cx += (p.X + q.X) * cross
		cy += (p.Y + q.Y) * cross
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// Contains reports whether p lies strictly inside the polygon, using the
// even-odd ray casting rule.
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// ClosestBoundaryPoint returns the point on the polygon's boundary nearest to
// target, testing every edge segment with the parametric projection clamped
// to [0,1].
func (poly Polygon) ClosestBoundaryPoint(target Point) Point {
	best := poly[0]
	bestDist := math.Inf(1)
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		c := closestOnSegment(target, a, b)
		if d := target.DistSq(c); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// Constrain returns target unchanged when it already lies inside the polygon.
// Otherwise it projects target onto the nearest boundary point and nudges the
// result toward the polygon's centroid by padding plus a small epsilon, so the
// returned point is strictly interior.
func (poly Polygon) Constrain(target Point, padding float64) Point {
	if len(poly) < 3 {
		return target
	}
	if poly.Contains(target) {
		return target
	}
	edge := poly.ClosestBoundaryPoint(target)
	toward := poly.Centroid().Sub(edge)
	dist := math.Hypot(toward.X, toward.Y)
	if dist == 0 {
		return edge
	}
	nudge := math.Min(padding+constrainEpsilon, dist)
	return edge.Add(toward.Scale(nudge / dist))
}

// closestOnSegment returns the point on segment ab nearest to p.
func closestOnSegment(p, a, b Point) Point {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq == 0 {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}
