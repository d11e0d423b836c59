package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vormap/vormap/pkg/pipeline"
	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source"
	"github.com/vormap/vormap/pkg/source/local"
)

type precomputeOpts struct {
	snapshotID string
	maxDepth   int
	warm       bool
	warmDepth  int
}

// precomputeCommand creates the precompute command for building snapshot
// artifacts ahead of serving.
func (c *CLI) precomputeCommand() *cobra.Command {
	opts := &precomputeOpts{}

	cmd := &cobra.Command{
		Use:   "precompute [directory]",
		Short: "Build and store a snapshot artifact",
		Long: `Precompute scans a directory (or fetches an existing snapshot from the
backend), stores the hierarchy artifact in MongoDB when a store is
configured, and optionally warms the layout cache so the first request
against each top-level folder is served without tessellating.`,
		Example: `  # Scan a directory and store the snapshot
  vormap precompute /var/data

  # Re-store a backend snapshot and warm its layout cache
  vormap precompute --snapshot 2026-08-30 --warm`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.snapshotID == "" {
				return fmt.Errorf("provide a directory to scan or --snapshot to fetch")
			}
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			return c.runPrecompute(cmd.Context(), dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.snapshotID, "snapshot", "s", "", "fetch this snapshot from the backend instead of scanning")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "limit scan depth (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.warm, "warm", false, "warm the layout cache for the root and its folders")
	cmd.Flags().IntVar(&opts.warmDepth, "warm-depth", 1, "how many levels deep to warm")
	return cmd
}

func (c *CLI) runPrecompute(ctx context.Context, dir string, opts *precomputeOpts) error {
	prog := newProgress(c.Logger)

	h, err := c.precomputeHierarchy(ctx, dir, opts)
	if err != nil {
		return err
	}

	printSuccess("Snapshot %s ready (%d nodes, %s)",
		h.Snapshot.ID, len(h.Nodes), humanize.Bytes(uint64(h.Snapshot.Size)))

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close(context.Background())
		sp := newSpinner("Storing artifact...")
		sp.Start()
		if err := st.Put(ctx, h); err != nil {
			sp.StopWithError("Store failed")
			return err
		}
		sp.StopWithSuccess("Artifact stored")
	} else {
		printWarning("No MongoDB store configured, skipping artifact storage")
	}

	if opts.warm {
		if err := c.warmLayouts(ctx, h, opts.warmDepth); err != nil {
			return err
		}
	}

	prog.done(fmt.Sprintf("Precomputed snapshot %s", h.Snapshot.ID))
	return nil
}

func (c *CLI) precomputeHierarchy(ctx context.Context, dir string, opts *precomputeOpts) (*snapshot.Hierarchy, error) {
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		sp := newSpinnerWithContext(ctx, fmt.Sprintf("Scanning %s...", abs))
		sp.Start()
		scanner := local.NewScanner(local.Options{MaxDepth: opts.maxDepth})
		h, stats, err := scanner.Scan(ctx, abs)
		if err != nil {
			sp.StopWithError("Scan failed")
			return nil, err
		}
		sp.StopWithSuccess(fmt.Sprintf("Scanned %s", abs))
		printDetail("%d directories · %d files · %s · %s",
			stats.Dirs, stats.Files, humanize.Bytes(uint64(stats.Bytes)), stats.Elapsed.Round(time.Millisecond))
		return h, nil
	}

	src, err := c.newSource("")
	if err != nil {
		return nil, err
	}
	sp := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching snapshot %s...", opts.snapshotID))
	sp.Start()
	h, err := src.Hierarchy(ctx, opts.snapshotID)
	if err != nil {
		sp.StopWithError("Fetch failed")
		return nil, err
	}
	sp.StopWithSuccess(fmt.Sprintf("Fetched snapshot %s", opts.snapshotID))
	return h, nil
}

// warmLayouts computes and caches levels for the root and every directory
// down to the requested depth, using the configured render defaults.
func (c *CLI) warmLayouts(ctx context.Context, h *snapshot.Hierarchy, depth int) error {
	root, err := snapshot.BuildFromHierarchy(h, "/")
	if err != nil {
		return err
	}

	paths := collectDirPaths(root, depth)
	runner, err := c.newRunner(newHierarchySource(h), false)
	if err != nil {
		return err
	}
	defer runner.Close()

	sp := newSpinnerWithContext(ctx, fmt.Sprintf("Warming %d layouts...", len(paths)))
	sp.Start()
	warmed := 0
	for _, p := range paths {
		opts := pipeline.Options{
			SnapshotID: h.Snapshot.ID,
			Path:       p,
			Width:      c.cfg.Render.Width,
			Height:     c.cfg.Render.Height,
			Theme:      c.cfg.Render.Theme,
			Labels:     c.cfg.Render.Labels,
			Logger:     c.Logger,
		}
		if _, err := runner.Execute(ctx, opts); err != nil {
			sp.StopWithError(fmt.Sprintf("Warming failed at %s", p))
			return err
		}
		warmed++
	}
	sp.StopWithSuccess(fmt.Sprintf("Warmed %d layouts", warmed))
	return nil
}

// hierarchySource serves an already-loaded hierarchy, so warming does not
// re-fetch what precompute just scanned or downloaded.
type hierarchySource struct {
	h *snapshot.Hierarchy
}

func newHierarchySource(h *snapshot.Hierarchy) *hierarchySource {
	return &hierarchySource{h: h}
}

func (s *hierarchySource) Snapshots(ctx context.Context) ([]snapshot.Descriptor, error) {
	return []snapshot.Descriptor{s.h.Snapshot}, nil
}

func (s *hierarchySource) Hierarchy(ctx context.Context, snapshotID string) (*snapshot.Hierarchy, error) {
	if snapshotID != s.h.Snapshot.ID {
		return nil, source.ErrNotFound
	}
	return s.h, nil
}

func (s *hierarchySource) List(ctx context.Context, snapshotID, path string) ([]snapshot.Entry, error) {
	return nil, source.ErrNotFound
}

// collectDirPaths returns the paths of root and its directory descendants
// down to maxDepth levels below root.
func collectDirPaths(root *snapshot.Node, maxDepth int) []string {
	var paths []string
	var walk func(n *snapshot.Node, depth int)
	walk = func(n *snapshot.Node, depth int) {
		if !n.IsDir || n.Synthetic {
			return
		}
		paths = append(paths, n.Path)
		if depth >= maxDepth {
			return
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
	return paths
}
