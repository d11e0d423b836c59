// Package snapshot defines the normalized size-weighted tree that the
// tessellation engine consumes, the flat id-referenced hierarchy artifact it
// is built from, and the adapters between the two.
//
// # Data Flow
//
// A snapshot's directory structure arrives in one of two shapes:
//
//   - A precomputed hierarchy artifact: a flat map of node id → record with
//     child references by id and a root id, produced by the scanner or served
//     by the artifact API. This is the fast path.
//   - A bounded-depth folder listing fetched on the fly, used as a legacy
//     fallback when no artifact exists for the snapshot.
//
// Both produce the same nested [Node] shape, so everything downstream
// (tessellation, bubble packing, rendering) is source-agnostic.
//
// # Synthetic Nodes
//
// Files that have no subdirectory of their own are aggregated into a single
// synthetic "__files__" container per directory. The container is a
// non-directory leaf whose children are the individual file leaves; the
// renderer draws it as a bubble cluster rather than a sub-partition.
package snapshot
