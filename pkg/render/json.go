package render

import (
	"encoding/json"

	"github.com/vormap/vormap/pkg/layout"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	bubbles bool
	indent  bool
}

// WithJSONIndent pretty-prints the output for inspection.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// WithoutJSONBubbles omits bubble positions, keeping only the cells.
func WithoutJSONBubbles() JSONOption { return func(r *jsonRenderer) { r.bubbles = false } }

type jsonOutput struct {
	SnapshotID string       `json:"snapshot_id"`
	Path       string       `json:"path"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Converged  bool         `json:"converged"`
	Version    uint64       `json:"version,omitempty"`
	Cells      []jsonCell   `json:"cells"`
	Bubbles    []jsonBubble `json:"bubbles,omitempty"`
}

type jsonCell struct {
	Path      string       `json:"path"`
	Name      string       `json:"name,omitempty"`
	Size      int64        `json:"size,omitempty"`
	Synthetic bool         `json:"is_synthetic,omitempty"`
	Points    [][2]float64 `json:"points"`
}

type jsonBubble struct {
	Path   string  `json:"path"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// RenderJSON serializes a level for web frontends: each cell as a point
// list plus each bubble's position and radius. Cells and bubbles are
// ordered by path so output is deterministic.
func RenderJSON(lvl *layout.Level, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{bubbles: true}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		SnapshotID: lvl.Key.SnapshotID,
		Path:       lvl.Key.Path,
		Width:      lvl.Key.Width,
		Height:     lvl.Key.Height,
		Converged:  lvl.Converged,
		Version:    lvl.Version,
		Cells:      make([]jsonCell, 0, len(lvl.Polygons)),
	}

	for _, path := range sortedKeys(lvl.Polygons) {
		cell := jsonCell{Path: path}
		if lvl.Root != nil {
			if node := lvl.Root.Find(path); node != nil {
				cell.Name = node.Name
				cell.Size = node.Size
				cell.Synthetic = node.Synthetic
			}
		}
		for _, p := range lvl.Polygons[path] {
			cell.Points = append(cell.Points, [2]float64{p.X, p.Y})
		}
		out.Cells = append(out.Cells, cell)
	}

	if r.bubbles {
		for _, path := range sortedKeys(lvl.Bubbles) {
			b := lvl.Bubbles[path]
			out.Bubbles = append(out.Bubbles, jsonBubble{
				Path:   b.Path,
				X:      b.Center.X,
				Y:      b.Center.Y,
				Radius: b.Radius,
			})
		}
	}

	if r.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
