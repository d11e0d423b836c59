package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	snapshotID string   // snapshot to render
	path       string   // directory path inside the snapshot
	localRoot  string   // local directory to scan instead of the backend
	output     string   // output file path (or base path for multiple formats)
	formats    []string // output formats: svg, json, dot
	width      float64  // viewport width in pixels
	height     float64  // viewport height in pixels
	shape      string   // root boundary shape: rect or circle
	seed       uint64   // tessellation seed override
	theme      string   // color theme: dark or light
	labels     bool     // draw cell labels
	noCache    bool     // disable the stage cache
	refresh    bool     // bypass cached stages and recompute
}

// renderCommand creates the render command for generating Voronoi maps.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{path: "/"}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a snapshot path as a Voronoi map",
		Long: `Render fetches a snapshot hierarchy, computes the weighted Voronoi
layout for one directory level, and writes the result as SVG, JSON, or
DOT. Formats can be combined; each goes to its own file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if opts.snapshotID == "" {
				return fmt.Errorf("--snapshot is required")
			}
			return c.runRender(cmd, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.snapshotID, "snapshot", "s", "", "snapshot id (required)")
	cmd.Flags().StringVarP(&opts.path, "path", "p", opts.path, "directory path inside the snapshot")
	cmd.Flags().StringVar(&opts.localRoot, "local", "", "scan a local directory instead of the backend")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), json, dot (comma-separated)")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "viewport width (default from config)")
	cmd.Flags().Float64Var(&opts.height, "height", 0, "viewport height (default from config)")
	cmd.Flags().StringVar(&opts.shape, "shape", "", "root boundary shape: rect (default), circle")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "tessellation seed override")
	cmd.Flags().StringVar(&opts.theme, "theme", "", "color theme: dark (default), light")
	cmd.Flags().BoolVar(&opts.labels, "labels", false, "draw cell labels")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the stage cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached stages and recompute")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts *renderOpts) error {
	src, err := c.newSource(opts.localRoot)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(src, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	pipeOpts := c.pipelineOptions(opts)

	sp := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Rendering %s %s...", opts.snapshotID, pipeOpts.Path))
	sp.Start()
	result, err := runner.Execute(cmd.Context(), pipeOpts)
	if err != nil {
		sp.StopWithError(fmt.Sprintf("Render failed: %v", err))
		return err
	}
	sp.StopWithSuccess(fmt.Sprintf("Rendered %s %s", opts.snapshotID, pipeOpts.Path))

	printStats(result.Stats.CellCount, result.Stats.BubbleCount, result.CacheInfo.LayoutHit)
	if !result.Level.Converged {
		printWarning("Tessellation did not converge; the best partition reached was kept")
	}

	return c.writeArtifacts(result, opts)
}

// pipelineOptions merges flags and config defaults into pipeline options.
func (c *CLI) pipelineOptions(opts *renderOpts) pipeline.Options {
	po := pipeline.Options{
		SnapshotID: opts.snapshotID,
		Path:       opts.path,
		MaxDepth:   c.cfg.Source.MaxDepth,
		Refresh:    opts.refresh,
		Width:      opts.width,
		Height:     opts.height,
		Shape:      layout.Shape(opts.shape),
		Seed:       opts.seed,
		Formats:    opts.formats,
		Theme:      opts.theme,
		Labels:     opts.labels || c.cfg.Render.Labels,
		Logger:     c.Logger,
	}
	if po.Width == 0 {
		po.Width = c.cfg.Render.Width
	}
	if po.Height == 0 {
		po.Height = c.cfg.Render.Height
	}
	if po.Theme == "" {
		po.Theme = c.cfg.Render.Theme
	}
	return po
}

// writeArtifacts writes each rendered format to its own file.
func (c *CLI) writeArtifacts(result *pipeline.Result, opts *renderOpts) error {
	if len(opts.formats) == 1 {
		path := opts.output
		if path == "" {
			path = fmt.Sprintf("%s.%s", opts.snapshotID, opts.formats[0])
		}
		return writeArtifact(path, result.Artifacts[opts.formats[0]])
	}

	base := basePath(opts.output, opts.snapshotID)
	for _, format := range opts.formats {
		path := fmt.Sprintf("%s.%s", base, format)
		if err := writeArtifact(path, result.Artifacts[format]); err != nil {
			return err
		}
	}
	return nil
}

func writeArtifact(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printFile(path)
	return nil
}
