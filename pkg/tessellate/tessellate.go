package tessellate

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/vormap/vormap/pkg/geom"
)

// Defaults for the relaxation loop. Exposed so callers can tighten or loosen
// per viewport size.
const (
	// DefaultMaxIterations bounds the relaxation loop. Pathological inputs
	// (near-duplicate weights at extreme aspect ratios) stop here and keep
	// their best iteration.
	DefaultMaxIterations = 120

	// DefaultTolerance is the relative area error below which a partition
	// counts as converged.
	DefaultTolerance = 0.02

	// minWeightFraction is the visual weight floor for zero-size children,
	// as a fraction of the largest sibling weight. Zero-size entries must
	// still produce a clickable cell.
	minWeightFraction = 0.005
)

// Options tunes the relaxation loop. The zero value selects the defaults.
type Options struct {
	MaxIterations int
	Tolerance     float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

// Result is a computed partition. Cells align with the input weights by
// index; a cell that degenerated below the minimum renderable area is nil
// and is simply omitted from the visible partition.
type Result struct {
	Cells      []geom.Polygon
	Converged  bool
	Iterations int
	MaxError   float64 // worst relative area error of the returned iteration
}

// SeedFromPaths derives a deterministic seed from an ordered set of child
// paths. Re-renders of unchanged data reuse the same generator placement;
// wall-clock or insertion-order state never leaks into the layout.
func SeedFromPaths(paths []string) uint64 {
	h := fnv.New64a()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Partition divides parent into len(weights) cells with areas proportional
// to the weights.
//
// Edge cases per the engine contract:
//   - no children → empty result
//   - a single child → the whole parent polygon, no subdivision
//   - zero total weight → equal-area split
//   - non-convergence → best iteration reached, Converged false
func Partition(parent geom.Polygon, weights []float64, seed uint64, opts Options) Result {
	opts = opts.withDefaults()
	n := len(weights)

	switch n {
	case 0:
		return Result{Converged: true}
	case 1:
		cell := make(geom.Polygon, len(parent))
		copy(cell, parent)
		return Result{Cells: []geom.Polygon{cell}, Converged: true}
	}

	parentArea := parent.Area()
	targets := targetAreas(parentArea, weights)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sites := seedSites(parent, n, rng)
	power := make([]float64, n)

	var (
		best     []geom.Polygon
		bestErr  = math.Inf(1)
		bestIter int
	)

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		cells := powerCells(parent, sites, power)
		worst := relax(parent, cells, sites, power, targets, rng)

		if worst < bestErr {
			bestErr = worst
			best = cells
			bestIter = iter
		}
		if worst <= opts.Tolerance {
			return Result{Cells: dropDegenerate(cells), Converged: true, Iterations: iter, MaxError: worst}
		}
	}

	return Result{Cells: dropDegenerate(best), Converged: false, Iterations: bestIter, MaxError: bestErr}
}

// targetAreas converts weights into absolute target areas, applying the
// minimum visual weight floor and the equal-split rule for zero totals.
func targetAreas(parentArea float64, weights []float64) []float64 {
	var maxW float64
	for _, w := range weights {
		maxW = math.Max(maxW, w)
	}
	adjusted := make([]float64, len(weights))
	if maxW == 0 {
		for i := range adjusted {
			adjusted[i] = 1
		}
	} else {
		floor := maxW * minWeightFraction
		for i, w := range weights {
			adjusted[i] = math.Max(w, floor)
		}
	}

	var total float64
	for _, w := range adjusted {
		total += w
	}
	targets := make([]float64, len(adjusted))
	for i, w := range adjusted {
		targets[i] = parentArea * w / total
	}
	return targets
}

// seedSites places one generator per child inside the parent, by rejection
// sampling against the polygon with a constrain fallback for thin shapes.
func seedSites(parent geom.Polygon, n int, rng *rand.Rand) []geom.Point {
	b := parent.Bounds()
	sites := make([]geom.Point, n)
	pad := math.Min(b.Width, b.Height) * 0.01
	for i := range sites {
		placed := false
		for try := 0; try < 32; try++ {
			p := geom.Point{X: b.X + rng.Float64()*b.Width, Y: b.Y + rng.Float64()*b.Height}
			if parent.Contains(p) {
				sites[i] = p
				placed = true
				break
			}
		}
		if !placed {
			sites[i] = parent.Constrain(geom.Point{X: b.X + rng.Float64()*b.Width, Y: b.Y + rng.Float64()*b.Height}, pad)
		}
	}
	return sites
}

// relax performs one adaptation step: weights grow or shrink toward the
// target areas, sites move to their cell centroids, and vanished cells get
// their generator re-placed. Returns the worst relative area error observed
// before the adjustment.
func relax(parent geom.Polygon, cells []geom.Polygon, sites []geom.Point, power, targets []float64, rng *rand.Rand) float64 {
	b := parent.Bounds()
	scale := b.Width * b.Height
	worst := 0.0

	for i, cell := range cells {
		area := cell.Area()
		if target := targets[i]; target > 0 {
			worst = math.Max(worst, math.Abs(area-target)/target)
		}

		if len(cell) < 3 || area <= geom.MinArea {
			// The generator lost all territory: grow its weight and move it
			// somewhere inside the parent so it can claim a cell again.
			power[i] += 0.05 * scale
			sites[i] = seedSites(parent, 1, rng)[0]
			continue
		}

		// Weight adaptation: the area deficit maps directly onto the power
		// weight, which is in squared-length units like area. The step is
		// damped and clamped so crowded generators cannot oscillate.
		delta := 0.5 * (targets[i] - area)
		cap := 0.2 * scale
		power[i] += math.Max(-cap, math.Min(cap, delta))

		// Lloyd step keeps cells fat and generators interior.
		sites[i] = cell.Centroid()
	}

	// Weights only matter relative to each other; re-centering avoids drift.
	var mean float64
	for _, w := range power {
		mean += w
	}
	mean /= float64(len(power))
	for i := range power {
		power[i] -= mean
	}

	return worst
}

// dropDegenerate nils out cells below the minimum renderable area so they
// are omitted from the visible partition instead of drawn as zero-area
// artifacts.
func dropDegenerate(cells []geom.Polygon) []geom.Polygon {
	for i, c := range cells {
		if !c.Valid() {
			cells[i] = nil
		}
	}
	return cells
}
