package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/planviz/planviz/pkg/cache"
	"github.com/planviz/planviz/pkg/errors"
	"github.com/planviz/planviz/pkg/hierarchy"
	"github.com/planviz/planviz/pkg/layout"
	"github.com/planviz/planviz/pkg/observability"
	"github.com/planviz/planviz/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	result := &Result{
		Artifacts: make(map[string][]byte),
	}

	// Stage 1: Load
	loadStart := time.Now()
	forest, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Forest = forest
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = forest.NodeCount()

	forestData, err := hierarchy.MarshalForest(forest)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "hash forest")
	}
	result.ForestHash = cache.Hash(forestData)

	r.Logger.Info("loaded forest",
		"trees", len(forest.Roots),
		"nodes", result.Stats.NodeCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Layout
	layoutStart := time.Now()
	frame, ticks, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, forest, result.ForestHash, opts)
	if err != nil {
		return nil, err
	}
	result.Frame = frame
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.VisibleCount = len(frame.Nodes)
	result.Stats.EdgeCount = len(frame.Edges)
	result.Stats.SettleTicks = ticks
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("computed layout",
		"mode", opts.Mode,
		"visible", result.Stats.VisibleCount,
		"ticks", ticks,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, frame, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads and validates the forest from the options' input path, or
// returns the inline forest after validation.
func (r *Runner) Load(ctx context.Context, opts Options) (hierarchy.Forest, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return hierarchy.Forest{}, err
	}
	source := opts.Input
	if source == "" {
		source = "inline"
	}
	observability.Pipeline().OnLoadStart(ctx, source)
	start := time.Now()

	var forest hierarchy.Forest
	var err error
	if opts.Forest != nil {
		forest = *opts.Forest
		if verr := hierarchy.Validate(forest); verr != nil {
			err = errors.Wrap(errors.ErrCodeInvalidForest, verr, "invalid forest")
		}
	} else {
		forest, err = hierarchy.ReadForestFile(opts.Input)
	}
	observability.Pipeline().OnLoadComplete(ctx, source, forest.NodeCount(), time.Since(start), err)
	return forest, err
}

// ComputeLayoutWithCacheInfo settles a layout with caching. Returns the
// frame, the ticks spent settling (zero on a cache hit), and cache hit info.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, forest hierarchy.Forest, forestHash string, opts Options) (layout.Frame, int, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return layout.Frame{}, 0, false, err
	}
	r.applyLogger(&opts)

	cacheKey := r.Keyer.LayoutKey(forestHash, opts.LayoutKeyOpts())
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached layout.Frame
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return cached, 0, true, nil
			}
			// Undecodable entry: fall through to recompute.
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	observability.Pipeline().OnLayoutStart(ctx, opts.Mode, forest.NodeCount())
	start := time.Now()
	frame, ticks, err := r.computeLayout(forest, opts)
	observability.Pipeline().OnLayoutComplete(ctx, opts.Mode, ticks, time.Since(start), err)
	if err != nil {
		return layout.Frame{}, 0, false, err
	}

	if data, err := json.Marshal(frame); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout); err == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return frame, ticks, false, nil
}

func (r *Runner) computeLayout(forest hierarchy.Forest, opts Options) (layout.Frame, int, error) {
	engine, err := layout.NewEngine(forest, *opts.Config, layout.Mode(opts.Mode), opts.Canvas())
	if err != nil {
		return layout.Frame{}, 0, err
	}
	engine.SetVisibility(opts.Visibility())
	ticks := engine.Settle(opts.SettleTicks)
	return engine.Frame(), ticks, nil
}

// ComputeLayout is a convenience wrapper that discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, forest hierarchy.Forest, forestHash string, opts Options) (layout.Frame, error) {
	frame, _, _, err := r.ComputeLayoutWithCacheInfo(ctx, forest, forestHash, opts)
	return frame, err
}

// RenderWithCacheInfo encodes artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, frame layout.Frame, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	frameData, err := json.Marshal(frame)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "serialize frame for cache key")
	}
	frameHash := cache.Hash(frameData)

	// Try to get all formats from cache.
	artifacts := make(map[string][]byte)
	allCached := !opts.Refresh
	if allCached {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(frameHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
				artifacts[format] = data
			} else {
				allCached = false
				break
			}
		}
	}
	if allCached && len(artifacts) == len(opts.Formats) {
		observability.Cache().OnCacheHit(ctx, "artifact")
		return artifacts, true, nil
	}

	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := render.Render(frame, render.Format(format), opts.RenderOptions())
		if err != nil {
			observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
			return nil, false, err
		}
		rendered[format] = data
	}
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(frameHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that discards the cache hit info.
func (r *Runner) Render(ctx context.Context, frame layout.Frame, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, frame, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
