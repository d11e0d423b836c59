package render

import (
	"sort"

	"github.com/google/uuid"

	"github.com/vormap/vormap/pkg/bubble"
	"github.com/vormap/vormap/pkg/geom"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/snapshot"
)

// PartitionInfo records the currently selected cell. It lives for a single
// render pass: drilling into or out of the partition clears it unless the
// user pinned it.
type PartitionInfo struct {
	Node    *snapshot.Node
	Polygon geom.Polygon
	Pinned  bool
}

// Renderer owns one live render of a level: the bubble simulation state and
// the current selection. Construction starts the simulation, Dispose stops
// it. A disposed renderer ignores further ticks and drags.
type Renderer struct {
	id       string
	level    *layout.Level
	groups   []simGroup
	selected *PartitionInfo
	disposed bool
}

// simGroup is one synthetic container's bubbles with their cell boundary.
type simGroup struct {
	cell    geom.Polygon
	bubbles []bubble.Bubble
}

// NewRenderer creates a renderer for a computed level.
func NewRenderer(lvl *layout.Level) *Renderer {
	r := &Renderer{
		id:    uuid.NewString(),
		level: lvl,
	}
	if lvl != nil && lvl.Root != nil {
		for _, child := range lvl.Root.Children {
			cell, ok := lvl.Polygons[child.Path]
			if !ok || len(child.Children) == 0 {
				continue
			}
			group := simGroup{cell: cell}
			for _, f := range child.Children {
				if b, ok := lvl.Bubbles[f.Path]; ok {
					group.bubbles = append(group.bubbles, b)
				}
			}
			if len(group.bubbles) > 0 {
				sort.Slice(group.bubbles, func(i, j int) bool {
					return group.bubbles[i].Path < group.bubbles[j].Path
				})
				r.groups = append(r.groups, group)
			}
		}
	}
	return r
}

// ID returns the renderer's unique id.
func (r *Renderer) ID() string { return r.id }

// Level returns the level this renderer draws.
func (r *Renderer) Level() *layout.Level { return r.level }

// Disposed reports whether Dispose has been called.
func (r *Renderer) Disposed() bool { return r.disposed }

// Tick advances the bubble simulation by one relaxation step. No-op after
// disposal.
func (r *Renderer) Tick() {
	if r.disposed {
		return
	}
	for i := range r.groups {
		bubble.Step(r.groups[i].bubbles, r.groups[i].cell)
	}
	r.syncBubbles()
}

// Drag moves one bubble toward target, constrained to its container cell.
// Returns false if the renderer is disposed or the path is not a bubble.
func (r *Renderer) Drag(path string, target geom.Point) bool {
	if r.disposed {
		return false
	}
	for i := range r.groups {
		for j := range r.groups[i].bubbles {
			if r.groups[i].bubbles[j].Path == path {
				bubble.Drag(&r.groups[i].bubbles[j], target, r.groups[i].cell)
				r.level.Bubbles[path] = r.groups[i].bubbles[j]
				return true
			}
		}
	}
	return false
}

// Select records the selection for a cell path. Selecting a path that has
// no cell clears the selection.
func (r *Renderer) Select(path string, pinned bool) *PartitionInfo {
	if r.disposed {
		return nil
	}
	cell, ok := r.level.Polygons[path]
	if !ok {
		r.selected = nil
		return nil
	}
	r.selected = &PartitionInfo{
		Node:    r.level.Root.Find(path),
		Polygon: cell,
		Pinned:  pinned,
	}
	return r.selected
}

// Selection returns the current selection, if any.
func (r *Renderer) Selection() *PartitionInfo { return r.selected }

// ClearSelection drops the selection unless it is pinned. Force clears it
// regardless, which the orchestrator uses when the render pass ends.
func (r *Renderer) ClearSelection(force bool) {
	if r.selected != nil && r.selected.Pinned && !force {
		return
	}
	r.selected = nil
}

// Dispose stops the simulation and clears the selection. Idempotent.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.groups = nil
	r.selected = nil
}

// syncBubbles writes simulation positions back to the level.
func (r *Renderer) syncBubbles() {
	for i := range r.groups {
		for _, b := range r.groups[i].bubbles {
			r.level.Bubbles[b.Path] = b
		}
	}
}

// Slot holds the single live renderer. The renderer inside can only be
// replaced by Swap, which disposes the outgoing instance before the new
// one takes its place.
type Slot struct {
	current *Renderer
}

// Swap disposes the current renderer (if any) and installs next. Returns
// the installed renderer.
func (s *Slot) Swap(next *Renderer) *Renderer {
	if s.current != nil {
		s.current.Dispose()
	}
	s.current = next
	return next
}

// Current returns the live renderer, or nil before the first render.
func (s *Slot) Current() *Renderer { return s.current }

// Release disposes and drops the current renderer.
func (s *Slot) Release() {
	if s.current != nil {
		s.current.Dispose()
		s.current = nil
	}
}
