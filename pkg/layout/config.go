package layout

import (
	"fmt"
	"math"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/planviz/planviz/pkg/errors"
)

// Config is the engine's tuning surface. Every constant that shapes the
// layout - sector angles, radii, force strengths, decay rates - lives here
// rather than inline, so deployments can adjust the feel of the layout via a
// TOML file without touching code. DefaultConfig returns values tuned for
// canvases around 1600x900 with forests of a few hundred nodes.
type Config struct {
	// Node sizing
	RadiusProject     float64 `toml:"radius_project"`
	RadiusArticle     float64 `toml:"radius_article"`
	RadiusAssembly    float64 `toml:"radius_assembly"`
	RadiusWorkPackage float64 `toml:"radius_work_package"`
	RadiusOperation   float64 `toml:"radius_operation"`
	// MetricScaling enables log-scaling of radii by planned hours relative
	// to the largest same-type node currently visible.
	MetricScaling bool `toml:"metric_scaling"`

	// Initial placement
	RadiusBaseOffset   float64 `toml:"radius_base_offset"`   // distance of depth-1 ring from the root
	RadiusPerDepth     float64 `toml:"radius_per_depth"`     // additional distance per depth level
	ConeAngle          float64 `toml:"cone_angle"`           // total opening of the timeline cone, radians
	BranchSpread       float64 `toml:"branch_spread"`        // arc available to a branch at depth 2, radians
	PlacementJitter    float64 `toml:"placement_jitter"`     // breaks exact coincidences
	EstimateBaseWidth  float64 `toml:"estimate_base_width"`  // tree footprint estimation
	EstimatePerChild   float64 `toml:"estimate_per_child"`   //
	EstimateBaseHeight float64 `toml:"estimate_base_height"` //
	EstimatePerNode    float64 `toml:"estimate_per_node"`    //
	EstimateMaxHeight  float64 `toml:"estimate_max_height"`  // saturation bound

	// Force solver
	AlphaInitial   float64 `toml:"alpha_initial"`
	AlphaRestart   float64 `toml:"alpha_restart"` // moderate restart after visibility changes
	AlphaMin       float64 `toml:"alpha_min"`
	AlphaDecay     float64 `toml:"alpha_decay"`
	AlphaAmbient   float64 `toml:"alpha_ambient"` // non-zero floor for decorative views
	VelocityDecay  float64 `toml:"velocity_decay"`
	LinkDistance   float64 `toml:"link_distance"`      // rest length for branch-level edges
	LinkDistanceOp float64 `toml:"link_distance_leaf"` // shorter rest length for leaf edges
	LinkStrength   float64 `toml:"link_strength"`
	ChargeBranch   float64 `toml:"charge_branch"` // repulsion magnitude for trunk nodes
	ChargeLeaf     float64 `toml:"charge_leaf"`   // weaker, keeps leaf clusters compact
	ChargeMaxDist  float64 `toml:"charge_max_distance"`
	CollidePadding float64 `toml:"collide_padding"`
	AnchorStrength float64 `toml:"anchor_strength"` // root pull toward the lane anchor
	BarrierMargin  float64 `toml:"barrier_margin"`  // clearance kept off the time axis

	// Bounding-box separation
	TreeSepStrength   float64 `toml:"tree_sep_strength"`
	TreeSepMargin     float64 `toml:"tree_sep_margin"`
	BranchSepStrength float64 `toml:"branch_sep_strength"`
	BranchSepMargin   float64 `toml:"branch_sep_margin"`

	// Reorganize gesture
	ReorganizeScale float64 `toml:"reorganize_scale"` // offset-from-root multiplier at full phase 1 expansion
	ReorganizeTicks int     `toml:"reorganize_ticks"` // phase 1 length in engine steps (~400ms at 60fps)
	ReorganizeAlpha float64 `toml:"reorganize_alpha"` // solver energy at the phase 2 handoff

	// Seed makes placement jitter reproducible.
	Seed uint64 `toml:"seed"`
}

// DefaultConfig returns the tuned default configuration.
func DefaultConfig() Config {
	return Config{
		RadiusProject:     26,
		RadiusArticle:     22,
		RadiusAssembly:    16,
		RadiusWorkPackage: 11,
		RadiusOperation:   6,
		MetricScaling:     true,

		RadiusBaseOffset:   70,
		RadiusPerDepth:     48,
		ConeAngle:          50 * math.Pi / 180,
		BranchSpread:       math.Pi / 3,
		PlacementJitter:    0.5,
		EstimateBaseWidth:  160,
		EstimatePerChild:   46,
		EstimateBaseHeight: 120,
		EstimatePerNode:    14,
		EstimateMaxHeight:  420,

		AlphaInitial:   1.0,
		AlphaRestart:   0.35,
		AlphaMin:       0.001,
		AlphaDecay:     0.028,
		AlphaAmbient:   0.02,
		VelocityDecay:  0.6,
		LinkDistance:   56,
		LinkDistanceOp: 26,
		LinkStrength:   0.7,
		ChargeBranch:   220,
		ChargeLeaf:     40,
		ChargeMaxDist:  260,
		CollidePadding: 3,
		AnchorStrength: 0.08,
		BarrierMargin:  24,

		TreeSepStrength:   0.5,
		TreeSepMargin:     18,
		BranchSepStrength: 0.25,
		BranchSepMargin:   10,

		ReorganizeScale: 5.5,
		ReorganizeTicks: 25,
		ReorganizeAlpha: 0.9,

		Seed: 42,
	}
}

// LoadConfig reads a TOML config file and overlays it on the defaults.
// Keys absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	checks := []struct {
		ok  bool
		msg string
	}{
		{c.AlphaDecay > 0 && c.AlphaDecay < 1, "alpha_decay must be in (0, 1)"},
		{c.AlphaMin > 0, "alpha_min must be positive"},
		{c.VelocityDecay > 0 && c.VelocityDecay <= 1, "velocity_decay must be in (0, 1]"},
		{c.ConeAngle > 0 && c.ConeAngle < math.Pi, "cone_angle must be in (0, pi)"},
		{c.ReorganizeScale > 1, "reorganize_scale must exceed 1"},
		{c.ReorganizeTicks > 0, "reorganize_ticks must be positive"},
		{c.EstimateMaxHeight >= c.EstimateBaseHeight, "estimate_max_height must not be below estimate_base_height"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return errors.New(errors.ErrCodeInvalidConfig, "%s", chk.msg)
		}
	}
	return nil
}

// radiusFor returns the base radius for a type class.
func (c Config) radiusFor(t TypeClass) float64 {
	switch t {
	case ClassProject:
		return c.RadiusProject
	case ClassArticle:
		return c.RadiusArticle
	case ClassAssembly:
		return c.RadiusAssembly
	case ClassWorkPackage:
		return c.RadiusWorkPackage
	case ClassOperation:
		return c.RadiusOperation
	}
	return c.RadiusOperation
}

// String implements fmt.Stringer for debug logging.
func (c Config) String() string {
	return fmt.Sprintf("Config{seed=%d alpha=%.2f/%.3f decay=%.3f}", c.Seed, c.AlphaInitial, c.AlphaMin, c.AlphaDecay)
}
