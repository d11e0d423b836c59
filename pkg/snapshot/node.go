package snapshot

import (
	"slices"
	"strings"
)

// SyntheticName is the reserved name for the per-directory container that
// aggregates loose files (files with no subdirectory of their own).
const SyntheticName = "__files__"

// Node is the normalized size-weighted tree node handed to the tessellation
// engine. For a directory node the size need not equal the sum of its
// children's sizes: aggregate counters from the snapshot may exceed the
// children resolved at a depth-limited preview. Partitioning always uses the
// children's own sizes as the only weights available at that level.
type Node struct {
	Name      string  `json:"name" bson:"name"`
	Path      string  `json:"path" bson:"path"`
	Size      int64   `json:"size" bson:"size"`
	IsDir     bool    `json:"is_directory" bson:"is_directory"`
	Depth     int     `json:"depth" bson:"depth"`
	FileCount int     `json:"file_count,omitempty" bson:"file_count,omitempty"`
	Synthetic bool    `json:"is_synthetic,omitempty" bson:"is_synthetic,omitempty"`
	Children  []*Node `json:"children,omitempty" bson:"children,omitempty"`
}

// IsLeaf reports whether the node has no materialized children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Find returns the descendant (or n itself) whose path matches exactly,
// or nil if absent.
func (n *Node) Find(path string) *Node {
	if n == nil {
		return nil
	}
	if n.Path == path {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(path); found != nil {
			return found
		}
	}
	return nil
}

// SortBySize orders the node's children largest-first, synthetic containers
// last among equals. Deterministic child ordering keeps tessellation seeds
// stable across re-renders of the same data.
func (n *Node) SortBySize() {
	slices.SortStableFunc(n.Children, func(a, b *Node) int {
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		case a.Synthetic != b.Synthetic:
			if a.Synthetic {
				return 1
			}
			return -1
		default:
			return strings.Compare(a.Path, b.Path)
		}
	})
}

// CountNodes returns the total number of nodes in the subtree rooted at n.
func (n *Node) CountNodes() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.CountNodes()
	}
	return total
}

// BaseName returns the last '/'-delimited segment of path, or "root" for "/".
func BaseName(path string) string {
	if path == "/" || path == "" {
		return "root"
	}
	trimmed := strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// JoinPath appends name to dir with a single separator.
func JoinPath(dir, name string) string {
	if dir == "/" || dir == "" {
		return "/" + name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}

// RelativeDepth returns the depth of path below root. The root itself has
// depth 0, its immediate children depth 1.
func RelativeDepth(root, path string) int {
	if path == root {
		return 0
	}
	rel := strings.TrimPrefix(path, root)
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
