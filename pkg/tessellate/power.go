package tessellate

import "github.com/vormap/vormap/pkg/geom"

// halfPlane is the set of points x with a·x <= b.
type halfPlane struct {
	a geom.Point
	b float64
}

// radicalAxis returns the half-plane containing generator i's side of the
// boundary between weighted generators (pi, wi) and (pj, wj). The power
// distance |x-p|² - w is equal on the boundary, which reduces to a line.
func radicalAxis(pi geom.Point, wi float64, pj geom.Point, wj float64) halfPlane {
	return halfPlane{
		a: pj.Sub(pi).Scale(2),
		b: pj.Dot(pj) - pi.Dot(pi) + wi - wj,
	}
}

// clip returns the part of poly inside the half-plane, using
// Sutherland-Hodgman clipping. The result may be empty when the polygon lies
// entirely outside.
func clip(poly geom.Polygon, hp halfPlane) geom.Polygon {
	if len(poly) == 0 {
		return nil
	}
	out := make(geom.Polygon, 0, len(poly)+1)
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		curIn := hp.a.Dot(cur) <= hp.b
		nextIn := hp.a.Dot(next) <= hp.b

		if curIn {
			out = append(out, cur)
		}
		if curIn != nextIn {
			out = append(out, intersect(cur, next, hp))
		}
	}
	return out
}

// intersect returns the point where segment pq crosses the half-plane edge.
func intersect(p, q geom.Point, hp halfPlane) geom.Point {
	dp := hp.a.Dot(p) - hp.b
	dq := hp.a.Dot(q) - hp.b
	t := dp / (dp - dq)
	return p.Add(q.Sub(p).Scale(t))
}

// powerCells computes one cell per generator: the parent polygon clipped by
// the radical axis against every other generator. Cells may come back empty
// when a generator's weight is dominated by its neighbors.
func powerCells(parent geom.Polygon, sites []geom.Point, weights []float64) []geom.Polygon {
	cells := make([]geom.Polygon, len(sites))
	for i := range sites {
		cell := parent
		for j := range sites {
			if i == j || len(cell) == 0 {
				continue
			}
			cell = clip(cell, radicalAxis(sites[i], weights[i], sites[j], weights[j]))
		}
		cells[i] = cell
	}
	return cells
}
