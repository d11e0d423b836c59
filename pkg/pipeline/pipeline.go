// Package pipeline provides the core visualization pipeline for vormap.
//
// This package implements the complete fetch → adapt → layout → render
// pipeline shared by the CLI, the TUI explorer, and the API server. By
// centralizing this logic, every entry point caches and renders the same
// way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Fetch: load the hierarchy artifact for a snapshot and adapt the
//     requested path into a normalized tree
//  2. Layout: tessellate the tree's children and pack file bubbles
//  3. Render: generate output in various formats (SVG, JSON, DOT)
//
// Each stage can be run independently or as part of the complete pipeline,
// and each stage's result is cached as bytes under a content-derived key.
//
// # Usage
//
//	runner := pipeline.NewRunner(src, cache, nil, logger)
//	opts := pipeline.Options{
//	    SnapshotID: "2026-08-30",
//	    Path:       "/data",
//	    Formats:    []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vormap/vormap/pkg/cache"
	"github.com/vormap/vormap/pkg/layout"
	"github.com/vormap/vormap/pkg/render"
	"github.com/vormap/vormap/pkg/snapshot"
)

// Default values shared by CLI, TUI, and API.
const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 800.0

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 600.0

	// DefaultMaxDepth bounds the on-the-fly listing fallback when no
	// precomputed hierarchy exists.
	DefaultMaxDepth = snapshot.PreviewDepth
)

// DefaultShape is the default root boundary shape.
const DefaultShape = layout.ShapeRect

// DefaultTheme is the default color theme name.
const DefaultTheme = "dark"

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatJSON = "json"
	FormatDOT  = "dot"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatJSON: true,
	FormatDOT:  true,
}

// ValidShapes is the set of supported root boundary shapes.
var ValidShapes = map[layout.Shape]bool{
	layout.ShapeRect:   true,
	layout.ShapeCircle: true,
}

// Themes maps theme names to render themes.
var Themes = map[string]render.Theme{
	"dark":  render.DarkTheme,
	"light": render.LightTheme,
}

// Options contains all configuration for the visualization pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Fetch options
	SnapshotID string `json:"snapshot_id"`
	Path       string `json:"path"`
	MaxDepth   int    `json:"max_depth,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`

	// Layout options
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`
	Shape  layout.Shape `json:"shape,omitempty"`
	Seed   uint64       `json:"seed,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Theme   string   `json:"theme,omitempty"`
	Labels  bool     `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tree is the adapted tree for the requested path.
	Tree *snapshot.Node

	// HierarchyHash is the content hash of the fetched hierarchy.
	HierarchyHash string

	// Level is the computed layout.
	Level *layout.Level

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount   int
	CellCount   int
	BubbleCount int
	FetchTime   time.Duration
	LayoutTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	FetchHit  bool // Whether the hierarchy came from cache
	LayoutHit bool // Whether the level came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, json, dot)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateShape checks that a root boundary shape is valid.
func ValidateShape(shape layout.Shape) error {
	if !ValidShapes[shape] {
		return fmt.Errorf("invalid shape: %q (must be one of: rect, circle)", shape)
	}
	return nil
}

// ValidateTheme checks that a theme name is known.
func ValidateTheme(theme string) error {
	if _, ok := Themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %q (must be one of: dark, light)", theme)
	}
	return nil
}

// ValidateAndSetDefaults checks required fields and applies defaults for
// the full pipeline. Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForFetch(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForFetch checks required fields for the fetch stage.
func (o *Options) ValidateForFetch() error {
	if o.SnapshotID == "" {
		return fmt.Errorf("snapshot_id is required")
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Shape == "" {
		o.Shape = DefaultShape
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return ValidateShape(o.Shape)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Theme == "" {
		o.Theme = DefaultTheme
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return ValidateTheme(o.Theme)
}

// LayoutOptions builds the layout options for this run.
func (o *Options) LayoutOptions() layout.Options {
	return layout.Options{
		Shape:       o.Shape,
		PolygonSeed: o.Seed,
	}
}

// HierarchyKeyOpts returns cache key options for the fetch stage.
func (o *Options) HierarchyKeyOpts() cache.HierarchyKeyOpts {
	return cache.HierarchyKeyOpts{
		RootPath: "/",
		MaxDepth: o.MaxDepth,
	}
}

// LevelKeyOpts returns cache key options for the layout stage.
func (o *Options) LevelKeyOpts() cache.LevelKeyOpts {
	return cache.LevelKeyOpts{
		Path:   o.Path,
		Width:  int(o.Width),
		Height: int(o.Height),
		Shape:  string(o.Shape),
		Seed:   o.Seed,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Theme:  o.Theme,
		Labels: o.Labels,
	}
}

// MarshalLevel serializes a level for caching.
func MarshalLevel(lvl *layout.Level) ([]byte, error) {
	return json.Marshal(lvl)
}

// UnmarshalLevel deserializes a cached level.
func UnmarshalLevel(data []byte) (*layout.Level, error) {
	var lvl layout.Level
	if err := json.Unmarshal(data, &lvl); err != nil {
		return nil, err
	}
	return &lvl, nil
}
