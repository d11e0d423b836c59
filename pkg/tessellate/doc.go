// Package tessellate computes weighted planar partitions: a parent polygon is
// divided into one cell per weighted child so that each cell's area is
// proportional to its weight.
//
// The partition is a power diagram. Each child owns a generator point with a
// scalar weight; the boundary between two generators is the radical axis of
// their weighted distance functions, which is a straight line, so every cell
// is the intersection of the parent polygon with a set of half-planes.
// An iterative relaxation adjusts generator weights (to grow or shrink cells
// toward their target areas) and moves generators to their cell centroids
// (to keep cells well-shaped) until the areas converge within a relative
// tolerance or the iteration budget is exhausted.
//
// Non-convergence is not an error: this is a visualization, not an exact
// solver, and the best iteration reached is always returned.
//
// Generator seeding is deterministic per child ordering. Callers seed from a
// stable hash of the child paths ([SeedFromPaths]) so re-renders of unchanged
// data are visually stable.
package tessellate
