// Package layout turns one visible directory level into drawable geometry
// and memoizes the result.
//
// A [Level] holds everything the renderer needs for the current path: the
// viewport boundary polygon, one cell polygon per child (tessellation), and
// one positioned circle per loose file (bubble packing). Only the level that
// is currently visible is ever computed; deeper levels are computed lazily on
// drill-down, which bounds the cost of a render to the children of a single
// directory rather than the whole tree.
//
// The [Cache] memoizes levels per (snapshot, path, viewport) key with a
// bounded LRU policy. Viewport dimensions are quantized to whole pixels
// before keying, so sub-pixel resize-observer noise cannot thrash the cache.
package layout
