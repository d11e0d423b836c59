package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vormap/vormap/pkg/snapshot"
	"github.com/vormap/vormap/pkg/source/local"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	output         string // output artifact path
	maxDepth       int    // scan depth limit (0 = unlimited)
	followSymlinks bool   // follow symbolic links
}

// scanCommand creates the scan command for producing hierarchy artifacts
// from a local directory.
func (c *CLI) scanCommand() *cobra.Command {
	var opts scanOpts

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory into a snapshot hierarchy artifact",
		Long: `Scan walks a directory tree and writes a hierarchy artifact: the flat,
id-referenced node map that the layout pipeline consumes. Loose files in
each directory are aggregated into a synthetic cluster node.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runScan(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default <snapshot-id>.json)")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "limit scan depth (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.followSymlinks, "follow-symlinks", false, "follow symbolic links")

	return cmd
}

func (c *CLI) runScan(cmd *cobra.Command, dir string, opts *scanOpts) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	sp := newSpinnerWithContext(cmd.Context(), fmt.Sprintf("Scanning %s...", abs))
	sp.Start()

	scanner := local.NewScanner(local.Options{
		MaxDepth:       opts.maxDepth,
		FollowSymlinks: opts.followSymlinks,
	})
	h, stats, err := scanner.Scan(cmd.Context(), abs)
	if err != nil {
		sp.StopWithError(fmt.Sprintf("Scan failed: %v", err))
		return err
	}
	sp.StopWithSuccess(fmt.Sprintf("Scanned %s", abs))

	printDetail("%d directories · %d files · %s · %s",
		stats.Dirs, stats.Files, humanize.Bytes(uint64(stats.Bytes)), stats.Elapsed.Round(time.Millisecond))
	if stats.Errors > 0 {
		printWarning("%d entries were unreadable and skipped", stats.Errors)
	}

	output := opts.output
	if output == "" {
		output = h.Snapshot.ID + ".json"
	}
	if !strings.HasSuffix(output, ".json") {
		output += ".json"
	}
	if err := snapshot.WriteHierarchyFile(h, output); err != nil {
		return err
	}
	printFile(output)
	printNextStep("Render it", fmt.Sprintf("%s render --snapshot %s --local %s", appName, h.Snapshot.ID, abs))
	return nil
}
