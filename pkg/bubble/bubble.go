// Package bubble places file circles inside a container polygon using a
// small iterative physical simulation: pairwise repulsion keeps circles
// apart, and a boundary constraint through the geometry kernel's projection
// keeps every center strictly inside the container.
//
// The same constraint runs on interactive drags, so a bubble can never be
// pulled outside its directory's partition.
package bubble

import (
	"math"
	"math/rand/v2"

	"github.com/vormap/vormap/pkg/geom"
)

// Defaults for radius clamping and relaxation.
const (
	// DefaultMinRadius keeps tiny files visible and clickable.
	DefaultMinRadius = 2.0

	// DefaultMaxRadius stops a single huge file from dominating the layout.
	DefaultMaxRadius = 40.0

	// DefaultSteps is the fixed number of relaxation passes at layout time.
	DefaultSteps = 60

	// repulsionCap bounds the pairwise force so near-coincident centers do
	// not explode across the container in one tick.
	repulsionCap = 12.0
)

// Item is one file to place.
type Item struct {
	Path string
	Size int64
}

// Bubble is a placed file circle.
type Bubble struct {
	Path   string     `json:"path" bson:"path"`
	Center geom.Point `json:"center" bson:"center"`
	Radius float64    `json:"radius" bson:"radius"`
}

// Options tunes packing. The zero value selects the defaults.
type Options struct {
	MinRadius float64
	MaxRadius float64
	Steps     int
}

func (o Options) withDefaults() Options {
	if o.MinRadius <= 0 {
		o.MinRadius = DefaultMinRadius
	}
	if o.MaxRadius <= 0 {
		o.MaxRadius = DefaultMaxRadius
	}
	if o.Steps <= 0 {
		o.Steps = DefaultSteps
	}
	return o
}

// Radius maps a byte size onto a circle radius: square-root scaling relative
// to the largest sibling, clamped to [MinRadius, MaxRadius]. Monotonic in
// size but deliberately not linear.
func Radius(size, maxSize int64, opts Options) float64 {
	opts = opts.withDefaults()
	if maxSize <= 0 || size <= 0 {
		return opts.MinRadius
	}
	r := opts.MinRadius + (opts.MaxRadius-opts.MinRadius)*math.Sqrt(float64(size)/float64(maxSize))
	return math.Min(r, opts.MaxRadius)
}

// Pack places items inside container. Initial positions are randomized in
// the container's bounding box from the given seed, then a fixed number of
// relaxation steps run. Every returned center lies inside the container.
func Pack(container geom.Polygon, items []Item, seed uint64, opts Options) []Bubble {
	opts = opts.withDefaults()
	if len(items) == 0 || len(container) < 3 {
		return nil
	}

	var maxSize int64
	for _, it := range items {
		maxSize = max(maxSize, it.Size)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	b := container.Bounds()
	bubbles := make([]Bubble, len(items))
	for i, it := range items {
		r := Radius(it.Size, maxSize, opts)
		start := geom.Point{X: b.X + rng.Float64()*b.Width, Y: b.Y + rng.Float64()*b.Height}
		bubbles[i] = Bubble{
			Path:   it.Path,
			Center: container.Constrain(start, r),
			Radius: r,
		}
	}

	for range opts.Steps {
		Step(bubbles, container)
	}
	return bubbles
}

// Step advances the simulation one tick: capped inverse-square repulsion
// between every pair, then the boundary constraint on every center. The
// constraint runs last, so after any Step all centers are inside the
// container.
func Step(bubbles []Bubble, container geom.Polygon) {
	forces := make([]geom.Point, len(bubbles))
	for i := range bubbles {
		for j := i + 1; j < len(bubbles); j++ {
			f := repel(bubbles[i], bubbles[j])
			forces[i] = forces[i].Add(f)
			forces[j] = forces[j].Sub(f)
		}
	}
	for i := range bubbles {
		bubbles[i].Center = container.Constrain(bubbles[i].Center.Add(forces[i]), bubbles[i].Radius)
	}
}

// Drag moves one bubble toward target, re-applying the boundary constraint
// so an interactive drag can never leave the container.
func Drag(b *Bubble, target geom.Point, container geom.Polygon) {
	b.Center = container.Constrain(target, b.Radius)
}

// repel returns the force pushing a away from b, inverse to the squared
// gap between their perimeters and capped at repulsionCap.
func repel(a, b Bubble) geom.Point {
	d := a.Center.Sub(b.Center)
	dist := math.Hypot(d.X, d.Y)
	if dist == 0 {
		// Coincident centers get a fixed horizontal push; the next tick
		// separates them properly.
		return geom.Point{X: repulsionCap, Y: 0}
	}
	gap := math.Max(dist-a.Radius-b.Radius, 1)
	mag := math.Min((a.Radius+b.Radius)/(gap*gap), repulsionCap)
	return d.Scale(mag / dist)
}
