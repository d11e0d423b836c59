// Package cli implements the vormap command-line interface.
//
// This package provides commands for scanning filesystems into snapshot
// hierarchies, rendering Voronoi maps, serving the HTTP API, and
// exploring snapshots interactively. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - scan: Walk a directory and produce a hierarchy artifact
//   - snapshots: List available snapshots
//   - render: Generate SVG, JSON, or DOT maps for one snapshot path
//   - precompute: Scan and persist a hierarchy to the durable store
//   - serve: Run the HTTP API server
//   - explore: Interactive terminal explorer
//   - cache: Manage the pipeline cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vormap/vormap/internal/config"
	"github.com/vormap/vormap/pkg/buildinfo"
	"github.com/vormap/vormap/pkg/cache"
	"github.com/vormap/vormap/pkg/pipeline"
	"github.com/vormap/vormap/pkg/source"
	"github.com/vormap/vormap/pkg/source/local"
	"github.com/vormap/vormap/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "vormap"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cfg     config.Config
	cfgPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "Vormap visualizes filesystem snapshots as Voronoi maps",
		Long:         `Vormap turns filesystem snapshots into zoomable Voronoi maps: every directory becomes a cell sized by its bytes on disk, with loose files packed as bubbles inside their parent cell.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cfg, err := config.Load(c.cfgPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default ~/.config/vormap/config.toml)")

	root.AddCommand(c.scanCommand())
	root.AddCommand(c.snapshotsCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.precomputeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// newSource builds the snapshot source: the configured backend, or a
// local scanner over localRoot (flag value or config) when no backend is
// set.
func (c *CLI) newSource(localRoot string) (source.Source, error) {
	if localRoot == "" && c.cfg.Source.BaseURL != "" {
		return source.NewHTTPSource(c.cfg.Source.BaseURL, c.cfg.Source.Headers), nil
	}
	root := localRoot
	if root == "" {
		root = c.cfg.Source.LocalRoot
	}
	if root == "" {
		return nil, fmt.Errorf("no snapshot source: set source.base_url or source.local_root in the config, or pass --local")
	}
	return local.New(root, local.Options{MaxDepth: c.cfg.Source.MaxDepth}), nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(src source.Source, noCache bool) (*pipeline.Runner, error) {
	stage, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(src, stage, nil, c.Logger), nil
}

// newCache builds the stage cache from config. noCache forces the null
// backend regardless of configuration.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		return cache.NewMemoryCache(c.cfg.Cache.Capacity), nil
	case "redis":
		return cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Addr:     c.cfg.Cache.RedisAddr,
			Password: c.cfg.Cache.RedisPassword,
			DB:       c.cfg.Cache.RedisDB,
		})
	default: // "file" and unset
		dir := c.cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return cache.NewNullCache(), nil
			}
		}
		return cache.NewFileCache(dir)
	}
}

// newStore builds the durable artifact store, or nil when none is
// configured.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.cfg.Store.MongoURI == "" {
		return nil, nil
	}
	return store.NewMongoStore(ctx, store.MongoConfig{
		URI:        c.cfg.Store.MongoURI,
		Database:   c.cfg.Store.Database,
		Collection: c.cfg.Store.Collection,
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/vormap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}

// basePath derives the base output path for multi-format output. A known
// format extension on output is stripped so "map.svg" with formats
// svg,json yields map.svg and map.json.
func basePath(output, fallback string) string {
	if output == "" {
		return fallback
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
