// Package pipeline provides the batch load → layout → render pipeline.
//
// This package implements the complete pipeline that CLI and server share.
// By centralizing this logic, both entry points behave identically and the
// caching strategy lives in one place.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read and validate a hierarchy forest from JSON
//  2. Layout: Build an engine, settle the force solver, snapshot a frame
//  3. Render: Encode the frame in the requested formats
//
// Layout and render results are cached keyed by content hash plus the
// options that influence the output. Each stage can be run independently or
// as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Input:   "plan.json",
//	    Mode:    "timeline",
//	    Formats: []string{"svg", "png"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/layout"
	"github.com/planviz/planviz/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default canvas width in pixels.
	DefaultWidth = 1600.0

	// DefaultHeight is the default canvas height in pixels.
	DefaultHeight = 900.0

	// DefaultSettleTicks caps the batch convergence run. The solver almost
	// always freezes well before this; the cap bounds pathological inputs.
	DefaultSettleTicks = 600

	// DefaultMode is the default layout mode.
	DefaultMode = string(layout.ModeTimeline)

	// DefaultFormat is the output format used when none is requested.
	DefaultFormat = string(render.FormatSVG)
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Input is a file path; server requests carry the forest
	// inline instead.
	Input  string            `json:"input,omitempty"`
	Forest *hierarchy.Forest `json:"forest,omitempty"`

	// Layout options
	Mode        string  `json:"mode,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
	SettleTicks int     `json:"settle_ticks,omitempty"`
	ConfigPath  string  `json:"config_path,omitempty"`

	// Visibility toggles, gated the way the engine gates them.
	ShowArticles     bool `json:"show_articles"`
	ShowAssemblies   bool `json:"show_assemblies"`
	ShowWorkPackages bool `json:"show_work_packages"`
	ShowOperations   bool `json:"show_operations"`
	HideCompleted    bool `json:"hide_completed,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Background  string   `json:"background,omitempty"`
	EdgeOpacity float64  `json:"edge_opacity,omitempty"`

	// Refresh bypasses cached layout and artifacts.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger    `json:"-"`
	Config *layout.Config `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Forest is the loaded and validated hierarchy.
	Forest hierarchy.Forest

	// ForestHash is the content hash of the forest.
	ForestHash string

	// Frame is the settled layout.
	Frame layout.Frame

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int // total nodes in the forest
	VisibleCount int // nodes in the settled frame
	EdgeCount    int
	SettleTicks  int // 0 when the layout came from cache
	LoadTime     time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the frame came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect
// as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Input == "" && o.Forest == nil {
		return errors.New(errors.ErrCodeInvalidInput, "input path or inline forest is required")
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if !layout.ValidModes[layout.Mode(o.Mode)] {
		return errors.New(errors.ErrCodeInvalidMode, "unknown layout mode %q (valid: radial, timeline)", o.Mode)
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.SettleTicks <= 0 {
		o.SettleTicks = DefaultSettleTicks
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	for _, f := range o.Formats {
		if _, err := render.ParseFormat(f); err != nil {
			return err
		}
	}
	if o.Config == nil {
		if o.ConfigPath != "" {
			cfg, err := layout.LoadConfig(o.ConfigPath)
			if err != nil {
				return err
			}
			o.Config = &cfg
		} else {
			cfg := layout.DefaultConfig()
			o.Config = &cfg
		}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Visibility resolves the toggles into the engine's visibility state.
func (o *Options) Visibility() layout.Visibility {
	return layout.Visibility{
		ShowArticles:     o.ShowArticles,
		ShowAssemblies:   o.ShowAssemblies,
		ShowWorkPackages: o.ShowWorkPackages,
		ShowOperations:   o.ShowOperations,
		HideCompleted:    o.HideCompleted,
	}
}

// Canvas resolves the target drawing surface.
func (o *Options) Canvas() layout.Canvas {
	return layout.Canvas{Width: o.Width, Height: o.Height}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	v := o.Visibility()
	return cache.LayoutKeyOpts{
		Mode:   o.Mode,
		Width:  o.Width,
		Height: o.Height,
		Seed:   o.Config.Seed,
		Visibility: fmt.Sprintf("a=%t,s=%t,w=%t,o=%t,hc=%t",
			v.ShowArticles, v.ShowAssemblies, v.ShowWorkPackages, v.ShowOperations, v.HideCompleted),
		ConfigHash: cache.Hash([]byte(fmt.Sprintf("%+v", *o.Config))),
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Background:  o.Background,
		EdgeOpacity: o.EdgeOpacity,
	}
}

// RenderOptions resolves the styling options for the render adapters.
func (o *Options) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.Background = o.Background
	if o.EdgeOpacity > 0 {
		opts.EdgeOpacity = o.EdgeOpacity
	}
	return opts
}
