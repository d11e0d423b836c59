package layout

import (
	"math"

	"github.com/vormap/vormap/pkg/bubble"
	"github.com/vormap/vormap/pkg/geom"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/tessellate"
)

// Shape selects the root viewport boundary for the top-level partition.
type Shape string

// Root boundary shapes.
const (
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
)

// Key identifies one memoized level. Width and Height are whole pixels:
// [NewKey] quantizes the raw viewport dimensions, so two viewports closer
// than a pixel in both axes share an entry.
type Key struct {
	SnapshotID string `json:"snapshot_id" bson:"snapshot_id"`
	Path       string `json:"path" bson:"path"`
	Width      int    `json:"width" bson:"width"`
	Height     int    `json:"height" bson:"height"`
}

// NewKey builds a cache key from raw viewport dimensions.
func NewKey(snapshotID, path string, width, height float64) Key {
	return Key{
		SnapshotID: snapshotID,
		Path:       path,
		Width:      int(math.Round(width)),
		Height:     int(math.Round(height)),
	}
}

// Level is the computed layout of one directory level: the tessellated cell
// per child plus packed bubbles for the loose files. Polygons are owned by
// the level and never shared across cache entries.
type Level struct {
	Key      Key                      `json:"key" bson:"key"`
	Root     *snapshot.Node           `json:"root" bson:"root"`
	Boundary geom.Polygon             `json:"boundary" bson:"boundary"`
	Polygons map[string]geom.Polygon  `json:"polygons" bson:"polygons"`
	Bubbles  map[string]bubble.Bubble `json:"bubbles" bson:"bubbles"`

	// Converged is false when the tessellation hit its iteration budget and
	// kept the best partition reached. Degraded, still renderable.
	Converged bool `json:"converged" bson:"converged"`

	// Version is assigned by the cache on Put; it increases monotonically
	// across recomputations so stale renders are detectable.
	Version uint64 `json:"version" bson:"version"`
}

// Options tunes level computation. The zero value selects the defaults.
type Options struct {
	Shape       Shape
	Tessellate  tessellate.Options
	Bubble      bubble.Options
	BubbleSeed  uint64 // optional override; defaults to the path hash
	PolygonSeed uint64 // optional override; defaults to the child-path hash
}

// Compute tessellates the immediate children of root into the viewport
// described by key and packs each synthetic container's files inside its
// cell. Children whose cells degenerate below the renderable minimum are
// omitted from Polygons.
func Compute(root *snapshot.Node, key Key, opts Options) *Level {
	boundary := boundaryFor(key, opts.Shape)
	lvl := &Level{
		Key:      key,
		Root:     root,
		Boundary: boundary,
		Polygons: map[string]geom.Polygon{},
		Bubbles:  map[string]bubble.Bubble{},
	}
	if root == nil || len(root.Children) == 0 {
		lvl.Converged = true
		return lvl
	}

	paths := make([]string, len(root.Children))
	weights := make([]float64, len(root.Children))
	for i, c := range root.Children {
		paths[i] = c.Path
		weights[i] = float64(c.Size)
	}

	seed := opts.PolygonSeed
	if seed == 0 {
		seed = tessellate.SeedFromPaths(paths)
	}
	res := tessellate.Partition(boundary, weights, seed, opts.Tessellate)
	lvl.Converged = res.Converged

	for i, cell := range res.Cells {
		if cell == nil {
			continue
		}
		child := root.Children[i]
		lvl.Polygons[child.Path] = cell
		if child.Synthetic || (!child.IsDir && len(child.Children) > 0) {
			packFiles(lvl, child, cell, opts)
		}
	}
	return lvl
}

// packFiles places the files of one synthetic container inside its cell.
func packFiles(lvl *Level, container *snapshot.Node, cell geom.Polygon, opts Options) {
	items := make([]bubble.Item, 0, len(container.Children))
	for _, f := range container.Children {
		items = append(items, bubble.Item{Path: f.Path, Size: f.Size})
	}
	seed := opts.BubbleSeed
	if seed == 0 {
		seed = tessellate.SeedFromPaths([]string{container.Path})
	}
	for _, b := range bubble.Pack(cell, items, seed, opts.Bubble) {
		lvl.Bubbles[b.Path] = b
	}
}

// boundaryFor builds the root viewport polygon for a key.
func boundaryFor(key Key, shape Shape) geom.Polygon {
	w, h := float64(key.Width), float64(key.Height)
	if shape == ShapeCircle {
		r := math.Min(w, h) / 2
		return geom.RegularPolygon(geom.Point{X: w / 2, Y: h / 2}, r, 72)
	}
	return geom.Rectangle(geom.Rect{Width: w, Height: h})
}
