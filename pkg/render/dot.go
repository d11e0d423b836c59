package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-graphviz"

	"github.com/vormap/vormap/pkg/snapshot"
)

// DOTOptions configures directory tree diagram rendering.
type DOTOptions struct {
	// MaxDepth bounds how many levels below the root appear. Zero means
	// unlimited.
	MaxDepth int

	// Detailed includes sizes and file counts in node labels. When false,
	// only the node name is shown.
	Detailed bool
}

// ToDOT converts a directory tree to Graphviz DOT format, one box per
// directory with edges from parent to child. Synthetic file containers are
// rendered with dashed outlines and grey fill to distinguish them from
// real directories. Render the result with [RenderDOTSVG].
func ToDOT(root *snapshot.Node, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	writeNodes(&buf, root, 0, opts)
	buf.WriteString("\n")
	writeEdges(&buf, root, 0, opts)

	buf.WriteString("}\n")
	return buf.String()
}

func writeNodes(buf *bytes.Buffer, n *snapshot.Node, depth int, opts DOTOptions) {
	if n == nil {
		return
	}
	attrs := fmt.Sprintf("label=%q", dotLabel(n, opts.Detailed))
	if n.Synthetic {
		attrs += `, style="rounded,filled,dashed", fillcolor=lightgrey`
	}
	fmt.Fprintf(buf, "  %q [%s];\n", n.Path, attrs)

	if opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth {
		return
	}
	for _, c := range n.Children {
		writeNodes(buf, c, depth+1, opts)
	}
}

func writeEdges(buf *bytes.Buffer, n *snapshot.Node, depth int, opts DOTOptions) {
	if n == nil {
		return
	}
	if opts.MaxDepth > 0 && depth+1 >= opts.MaxDepth {
		return
	}
	for _, c := range n.Children {
		fmt.Fprintf(buf, "  %q -> %q;\n", n.Path, c.Path)
		writeEdges(buf, c, depth+1, opts)
	}
}

func dotLabel(n *snapshot.Node, detailed bool) string {
	if !detailed {
		return n.Name
	}
	label := fmt.Sprintf("%s\n%s", n.Name, humanize.Bytes(uint64(n.Size)))
	if n.FileCount > 0 {
		label += fmt.Sprintf("\n%d files", n.FileCount)
	}
	return label
}

// RenderDOTSVG renders a DOT graph to SVG using Graphviz.
func RenderDOTSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the Graphviz svg tag so the document scales
// cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
