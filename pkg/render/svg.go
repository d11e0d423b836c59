package render

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"html"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/vormap/vormap/pkg/geom"
	"github.com/vormap/vormap/pkg/layout"
)

// Theme holds the colors used by the SVG sink.
type Theme struct {
	Name       string
	Background string
	Stroke     string
	Label      string
	Bubble     string
	Palette    []string
}

// Built-in themes.
var (
	DarkTheme = Theme{
		Name:       "dark",
		Background: "#11131a",
		Stroke:     "#2c3040",
		Label:      "#d8dce8",
		Bubble:     "#7aa2f7",
		Palette:    []string{"#1f2335", "#24283b", "#292e42", "#2f354a", "#343b52", "#3b4261"},
	}
	LightTheme = Theme{
		Name:       "light",
		Background: "#fafafa",
		Stroke:     "#c8ccd4",
		Label:      "#2e3440",
		Bubble:     "#3b6ea5",
		Palette:    []string{"#e8ecf4", "#dde3ee", "#d2dae8", "#c7d1e2", "#bcc8dc", "#b1bfd6"},
	}
)

const svgInteractionCSS = `
    .cell { transition: stroke-width 0.15s ease; }
    .cell:hover { stroke-width: 3; }
    .bubble { opacity: 0.85; }
    .bubble:hover { opacity: 1; }`

// SVGOption configures SVG rendering via [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme   Theme
	labels  bool
	bubbles bool
}

// WithTheme selects the color theme. Defaults to [DarkTheme].
func WithTheme(t Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithLabels draws directory names and humanized sizes at cell centroids.
func WithLabels() SVGOption { return func(r *svgRenderer) { r.labels = true } }

// WithoutBubbles omits file bubbles, leaving only the directory cells.
func WithoutBubbles() SVGOption { return func(r *svgRenderer) { r.bubbles = false } }

// RenderSVG draws a level as an SVG document: one path per directory cell
// and one circle per file bubble. Output is deterministic for a given
// level so diffs and golden tests stay stable.
func RenderSVG(lvl *layout.Level, opts ...SVGOption) []byte {
	r := svgRenderer{theme: DarkTheme, bubbles: true}
	for _, opt := range opts {
		opt(&r)
	}

	w, h := lvl.Key.Width, lvl.Key.Height
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`+"\n", w, h, w, h)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgInteractionCSS)
	fmt.Fprintf(&buf, `  <rect width="%d" height="%d" fill=%q/>`+"\n", w, h, r.theme.Background)

	for _, path := range sortedKeys(lvl.Polygons) {
		cell := lvl.Polygons[path]
		fmt.Fprintf(&buf, `  <path class="cell" id="cell-%s" d=%q fill=%q stroke=%q stroke-width="1.5"/>`+"\n",
			html.EscapeString(path), pathData(cell), r.fill(path), r.theme.Stroke)
	}

	if r.bubbles {
		for _, path := range sortedKeys(lvl.Bubbles) {
			b := lvl.Bubbles[path]
			fmt.Fprintf(&buf, `  <circle class="bubble" cx="%.2f" cy="%.2f" r="%.2f" fill=%q><title>%s</title></circle>`+"\n",
				b.Center.X, b.Center.Y, b.Radius, r.theme.Bubble, html.EscapeString(path))
		}
	}

	if r.labels && lvl.Root != nil {
		for _, child := range lvl.Root.Children {
			cell, ok := lvl.Polygons[child.Path]
			if !ok {
				continue
			}
			c := cell.Centroid()
			label := child.Name
			if !child.Synthetic {
				label = fmt.Sprintf("%s (%s)", child.Name, humanize.Bytes(uint64(child.Size)))
			}
			fmt.Fprintf(&buf, `  <text x="%.1f" y="%.1f" text-anchor="middle" fill=%q font-size="12" font-family="sans-serif">%s</text>`+"\n",
				c.X, c.Y, r.theme.Label, html.EscapeString(label))
		}
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// fill picks a stable palette color per cell path.
func (r *svgRenderer) fill(path string) string {
	if len(r.theme.Palette) == 0 {
		return r.theme.Background
	}
	h := fnv.New32a()
	h.Write([]byte(path))
	return r.theme.Palette[h.Sum32()%uint32(len(r.theme.Palette))]
}

// pathData builds the SVG path string for a closed polygon.
func pathData(poly geom.Polygon) string {
	var b bytes.Buffer
	for i, p := range poly {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&b, "%s%.2f %.2f ", cmd, p.X, p.Y)
	}
	b.WriteString("Z")
	return b.String()
}

// sortedKeys returns map keys in lexical order for deterministic output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
