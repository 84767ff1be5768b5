// Package cache provides pluggable byte caching for layout and artifact
// results, plus scene storage for the HTTP server.
//
// Three backends implement the same interface: FileCache for CLI usage,
// RedisCache for server deployments, and NullCache to disable caching.
// Keys are produced by a Keyer so every component derives them the same
// way; a content hash of the input forest plus the options that influence
// the output.
package cache

import (
	"context"
	"time"
)

// =============================================================================
// Cache Interface
// =============================================================================

// Cache is a byte store with TTL expiry. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present; an absent key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs per entry category. Layouts are cheap to recompute relative to their
// staleness risk; scenes live longer because clients hold their ids.
const (
	TTLLayout   = 24 * time.Hour
	TTLArtifact = 24 * time.Hour
	TTLScene    = 7 * 24 * time.Hour
)

// =============================================================================
// Keyer
// =============================================================================

// LayoutKeyOpts captures every option that influences a computed layout.
type LayoutKeyOpts struct {
	Mode       string  `json:"mode"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Seed       uint64  `json:"seed"`
	Visibility string  `json:"visibility"`
	ConfigHash string  `json:"config_hash,omitempty"`
}

// ArtifactKeyOpts captures every option that influences a rendered artifact.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Background  string  `json:"background,omitempty"`
	EdgeOpacity float64 `json:"edge_opacity,omitempty"`
}

// Keyer generates cache keys. Implementations must be deterministic: the
// same inputs always produce the same key.
type Keyer interface {
	// LayoutKey generates a key for a computed layout frame.
	LayoutKey(forestHash string, opts LayoutKeyOpts) string

	// ArtifactKey generates a key for a rendered artifact.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string

	// SceneKey generates a key for a stored server scene.
	SceneKey(id string) string
}

// DefaultKeyer hashes the option structs into namespaced keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

func (DefaultKeyer) LayoutKey(forestHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", forestHash, opts)
}

func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

func (DefaultKeyer) SceneKey(id string) string {
	return "scene:" + id
}

// =============================================================================
// Scoped Keyer
// =============================================================================

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation, so
// different deployments or users sharing one Redis keep separate namespaces.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayoutKey(forestHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(forestHash, opts)
}

func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}

func (k *ScopedKeyer) SceneKey(id string) string {
	return k.prefix + k.inner.SceneKey(id)
}
