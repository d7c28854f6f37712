// Package config loads and validates the tiered cache's tunables:
// L2Config (the semantic cache's ANN/rescore knobs) and the nested
// BqConfig (binary quantization), matching spec §6.4. Construction goes
// through Default() plus functional-option overrides, never a zero-value
// literal. Default() does not validate; Load() runs Validate() itself, and
// other callers run Validate() on the result before use.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	reflexerrors "github.com/ccheney/reflex/internal/errors"
	"github.com/ccheney/reflex/internal/vectordb/bq"
)

// DefaultVectorSize is the build-time embedding dimension D (spec §3.1).
const DefaultVectorSize = 1536

// L2Config tunes the semantic cache: how many ANN candidates to pull, how
// many survive rescoring, and which collection/dimension they live under
// (spec §6.4).
type L2Config struct {
	TopKBQ             uint64    `yaml:"top_k_bq"`
	TopKFinal          int       `yaml:"top_k_final"`
	CollectionName     string    `yaml:"collection_name"`
	VectorSize         int       `yaml:"vector_size"`
	ValidateDimensions bool      `yaml:"validate_dimensions"`
	BQ                 bq.Config `yaml:"bq"`
}

// Option customizes a Default() L2Config before Validate() runs.
type Option func(*L2Config)

// WithTopKBQ overrides the ANN oversampling width.
func WithTopKBQ(n uint64) Option { return func(c *L2Config) { c.TopKBQ = n } }

// WithTopKFinal overrides the post-rescore truncation width.
func WithTopKFinal(n int) Option { return func(c *L2Config) { c.TopKFinal = n } }

// WithCollectionName overrides the vector index collection name.
func WithCollectionName(name string) Option { return func(c *L2Config) { c.CollectionName = name } }

// WithVectorSize overrides the embedding dimension D.
func WithVectorSize(n int) Option { return func(c *L2Config) { c.VectorSize = n } }

// WithValidateDimensions toggles per-candidate dimension validation in the
// rescorer.
func WithValidateDimensions(v bool) Option { return func(c *L2Config) { c.ValidateDimensions = v } }

// WithBQ overrides the nested binary-quantization config.
func WithBQ(cfg bq.Config) Option { return func(c *L2Config) { c.BQ = cfg } }

// Default returns the spec's recommended defaults (spec §4.5/§6.4):
// top_k_bq=50, top_k_final=5, vector_size=1536, validate_dimensions=true.
func Default(opts ...Option) L2Config {
	c := L2Config{
		TopKBQ:             50,
		TopKFinal:          5,
		CollectionName:     "reflex_cache",
		VectorSize:         DefaultVectorSize,
		ValidateDimensions: true,
		BQ:                 bq.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate enforces spec Invariant 6 (top_k_final must not exceed
// top_k_bq) plus basic positivity, the nested BqConfig's own invariants,
// and, when BQ rescoring is on, rescore_limit >= top_k_bq.
func (c L2Config) Validate() error {
	if c.TopKBQ == 0 {
		return reflexerrors.ConfigError("l2: top_k_bq must be > 0", nil)
	}
	if c.TopKFinal <= 0 {
		return reflexerrors.ConfigError("l2: top_k_final must be > 0", nil)
	}
	if uint64(c.TopKFinal) > c.TopKBQ {
		return reflexerrors.ConfigError("l2: top_k_final must not exceed top_k_bq", nil)
	}
	if c.CollectionName == "" {
		return reflexerrors.ConfigError("l2: collection_name must not be empty", nil)
	}
	if c.VectorSize <= 0 {
		return reflexerrors.ConfigError("l2: vector_size must be > 0", nil)
	}
	if err := c.BQ.Validate(); err != nil {
		return err
	}
	if c.BQ.Rescore && c.BQ.RescoreLimit < c.TopKBQ {
		return reflexerrors.ConfigError("l2: bq.rescore_limit must be >= top_k_bq when rescore is enabled", nil)
	}
	return nil
}

// Load reads an L2Config from a YAML file, layering it over Default() so
// unset fields keep their defaults, then validates the result.
func Load(path string) (L2Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return L2Config{}, reflexerrors.ConfigError("l2: read config file", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return L2Config{}, reflexerrors.ConfigError("l2: parse config file", err)
	}
	if err := c.Validate(); err != nil {
		return L2Config{}, err
	}
	return c, nil
}
