// Package nav implements the drill-down navigation controller: a history
// stack of visited paths, breadcrumb derivation, and a lock that blocks
// re-entrant transitions while a fetch is in flight.
package nav

import (
	"strings"

	vorerrors "github.com/vormap/vormap/pkg/errors"
	"github.com/vormap/vormap/pkg/snapshot"
)

// Breadcrumb is one segment of the current path. The last segment is the
// current directory and is not clickable; every ancestor is.
type Breadcrumb struct {
	Name      string
	Path      string
	Clickable bool
}

// Controller tracks the visited-path history for one view. Created at
// mount, destroyed with the view. Not safe for concurrent use; the host
// event loop serializes calls.
type Controller struct {
	root    string
	current string
	history []string
	locked  bool
}

// NewController creates a controller viewing root.
func NewController(root string) *Controller {
	root = normalize(root)
	return &Controller{root: root, current: root}
}

// Current returns the path being viewed.
func (c *Controller) Current() string { return c.current }

// Locked reports whether a drill-down fetch is outstanding.
func (c *Controller) Locked() bool { return c.locked }

// Depth returns the history depth for status readouts.
func (c *Controller) Depth() int { return len(c.history) }

// AtRoot reports whether back navigation is disabled.
func (c *Controller) AtRoot() bool { return len(c.history) == 0 }

// DrillDown pushes the current path onto the history and moves to
// childPath, locking the controller until [Resolve] is called with the
// fetch outcome. Refused while locked or when childPath is not strictly
// below the current path.
func (c *Controller) DrillDown(childPath string) error {
	if c.locked {
		return vorerrors.New(vorerrors.ErrCodeInvalidInput, "navigation locked")
	}
	childPath = normalize(childPath)
	if !isBelow(c.current, childPath) {
		return vorerrors.New(vorerrors.ErrCodeInvalidPath, "%s is not below %s", childPath, c.current)
	}
	c.history = append(c.history, c.current)
	c.current = childPath
	c.locked = true
	return nil
}

// Resolve unlocks the controller after the drill-down fetch settles.
// fetchedPath identifies which request resolved: a resolution for a path
// other than the current one is stale and reports false so the caller
// discards the data.
func (c *Controller) Resolve(fetchedPath string) bool {
	c.locked = false
	return normalize(fetchedPath) == c.current
}

// GoBack pops the history. No-op at root or while locked.
func (c *Controller) GoBack() bool {
	if c.locked || len(c.history) == 0 {
		return false
	}
	c.current = c.history[len(c.history)-1]
	c.history = c.history[:len(c.history)-1]
	return true
}

// NavigateToBreadcrumb jumps to an ancestor of the current path,
// truncating the history to the entries preceding it. Only clickable
// ancestors are permitted; the current path and non-ancestors are refused.
func (c *Controller) NavigateToBreadcrumb(path string) error {
	if c.locked {
		return vorerrors.New(vorerrors.ErrCodeInvalidInput, "navigation locked")
	}
	path = normalize(path)
	if path == c.current {
		return vorerrors.New(vorerrors.ErrCodeInvalidPath, "%s is the current path", path)
	}
	if !isBelow(path, c.current) {
		return vorerrors.New(vorerrors.ErrCodeInvalidPath, "%s is not an ancestor of %s", path, c.current)
	}

	// Keep history entries strictly above the target. The target itself
	// may be absent from the history when a drill-down skipped levels.
	cut := len(c.history)
	for i, p := range c.history {
		if !isBelow(p, path) {
			cut = i
			break
		}
	}
	c.history = c.history[:cut]
	c.current = path
	return nil
}

// Breadcrumbs derives the clickable trail for the current path. Segments
// above the view root are collapsed into the root crumb.
func (c *Controller) Breadcrumbs() []Breadcrumb {
	crumbs := []Breadcrumb{{
		Name:      snapshot.BaseName(c.root),
		Path:      c.root,
		Clickable: c.current != c.root,
	}}

	if c.current != c.root {
		rel := strings.TrimPrefix(c.current, c.root)
		prefix := c.root
		for _, seg := range strings.Split(strings.Trim(rel, "/"), "/") {
			prefix = snapshot.JoinPath(prefix, seg)
			crumbs = append(crumbs, Breadcrumb{
				Name:      seg,
				Path:      prefix,
				Clickable: prefix != c.current,
			})
		}
	}
	return crumbs
}

// normalize strips a trailing separator so path comparisons are exact.
func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

// isBelow reports whether child is strictly below parent.
func isBelow(parent, child string) bool {
	if parent == child {
		return false
	}
	if parent == "/" {
		return strings.HasPrefix(child, "/")
	}
	return strings.HasPrefix(child, parent+"/")
}
