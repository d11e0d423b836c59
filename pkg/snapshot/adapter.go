package snapshot

import (
	"context"

	"github.com/vormap/vormap/pkg/errors"
)

// PreviewDepth is the fixed fetch depth for the on-the-fly listing fallback.
// Two levels are enough for the visible partition plus its drill-down
// preview; deeper levels are fetched lazily on navigation.
const PreviewDepth = 2

// Entry is one row of a folder listing, as returned by the read API.
type Entry struct {
	Name      string `json:"name" bson:"name"`
	Path      string `json:"path" bson:"path"`
	Size      int64  `json:"size" bson:"size"`
	IsDir     bool   `json:"is_directory" bson:"is_directory"`
	FileCount int    `json:"file_count,omitempty" bson:"file_count,omitempty"`
}

// ListFunc fetches the immediate entries of one directory.
type ListFunc func(ctx context.Context, path string) ([]Entry, error)

// BuildFromHierarchy resolves path inside a precomputed hierarchy artifact
// and materializes the nested tree below it. Depths in the result are
// relative to the requested path.
//
// Child ids that do not resolve to a record are skipped: partial artifacts
// degrade to a smaller tree rather than failing the build. Every id is
// dereferenced at most once, so a malformed artifact with duplicated
// references cannot produce a cycle.
//
// Returns an error with code [errors.ErrCodeNodeNotFound] when no record's
// path matches the request.
func BuildFromHierarchy(h *Hierarchy, path string) (*Node, error) {
	rec := h.FindByPath(path)
	if rec == nil {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "no node at path %q in hierarchy for snapshot %s", path, h.Snapshot.ID)
	}
	visited := make(map[string]bool, len(h.Nodes))
	return materialize(h, rec, 0, visited), nil
}

// materialize converts one record (and, recursively, its children) into the
// normalized Node shape.
func materialize(h *Hierarchy, rec *Record, depth int, visited map[string]bool) *Node {
	visited[rec.ID] = true

	n := &Node{
		Name:      rec.Name,
		Path:      rec.Path,
		Size:      rec.Size,
		IsDir:     rec.IsDir,
		Depth:     depth,
		FileCount: rec.FileCount,
		Synthetic: rec.Synthetic,
	}

	if rec.Synthetic {
		// A synthetic container becomes a non-directory leaf cluster: its
		// inline file refs expand into depth+1 leaves for bubble packing.
		n.IsDir = false
		n.Children = make([]*Node, 0, len(rec.OriginalFiles))
		for _, f := range rec.OriginalFiles {
			n.Children = append(n.Children, &Node{
				Name:  f.Name,
				Path:  f.Path,
				Size:  f.Size,
				Depth: depth + 1,
			})
		}
		n.SortBySize()
		return n
	}

	for _, id := range rec.Children {
		child := h.Nodes[id]
		if child == nil || visited[id] {
			continue
		}
		n.Children = append(n.Children, materialize(h, child, depth+1, visited))
	}
	n.SortBySize()
	return n
}

// BuildFromListing assembles the normalized tree by issuing bounded-depth
// folder-listing calls through list. It is the legacy fallback used when no
// precomputed hierarchy exists for the snapshot; maxDepth is typically
// [PreviewDepth].
//
// Files at each level are aggregated into a synthetic container child, the
// same shape BuildFromHierarchy produces.
func BuildFromListing(ctx context.Context, list ListFunc, path string, maxDepth int) (*Node, error) {
	if maxDepth <= 0 {
		maxDepth = PreviewDepth
	}
	root := &Node{
		Name:  BaseName(path),
		Path:  path,
		IsDir: true,
	}
	if err := populate(ctx, list, root, 0, maxDepth); err != nil {
		return nil, err
	}
	return root, nil
}

func populate(ctx context.Context, list ListFunc, dir *Node, depth, maxDepth int) error {
	if depth >= maxDepth {
		return nil
	}
	entries, err := list(ctx, dir.Path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "list %s", dir.Path)
	}

	var files []*Node
	var filesSize int64
	for _, e := range entries {
		child := &Node{
			Name:      e.Name,
			Path:      e.Path,
			Size:      e.Size,
			IsDir:     e.IsDir,
			Depth:     depth + 1,
			FileCount: e.FileCount,
		}
		if e.IsDir {
			dir.Children = append(dir.Children, child)
			if err := populate(ctx, list, child, depth+1, maxDepth); err != nil {
				return err
			}
			continue
		}
		child.Depth = depth + 2
		files = append(files, child)
		filesSize += e.Size
	}

	if len(files) > 0 {
		dir.Children = append(dir.Children, &Node{
			Name:      SyntheticName,
			Path:      JoinPath(dir.Path, SyntheticName),
			Size:      filesSize,
			Depth:     depth + 1,
			FileCount: len(files),
			Synthetic: true,
			Children:  files,
		})
	}

	// Listing entries carry recursive sizes; only the requested root arrives
	// without one and gets the sum of what was resolved beneath it.
	if dir.Size == 0 {
		for _, c := range dir.Children {
			dir.Size += c.Size
		}
	}
	dir.SortBySize()
	return nil
}
