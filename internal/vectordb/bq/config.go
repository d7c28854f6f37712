package bq

import (
	reflexerrors "github.com/ccheney/reflex/internal/errors"
)

// Config tunes the binary-quantized ANN backend (spec §6.4).
type Config struct {
	// AlwaysRAM keeps the quantized vectors resident in memory rather than
	// paged from disk.
	AlwaysRAM bool
	// Rescore requests full-precision rescoring of the quantized
	// candidates on the backend side, independent of the rescorer this
	// module also runs client-side (spec §4.4/§4.5).
	Rescore bool
	// RescoreLimit is the backend-side oversampling width. When Rescore
	// is true it must be at least as large as any search caller's limit
	// (config.L2Config.Validate checks it against top_k_bq; ClampLimit
	// raises smaller requests up to it; SPEC_FULL.md C.2).
	RescoreLimit uint64
	// OnDiskPayload stores payload fields on disk instead of in memory.
	OnDiskPayload bool
}

// Default returns the spec's recommended defaults (spec §4.5/§6.4).
func Default() Config {
	return Config{
		AlwaysRAM:     true,
		Rescore:       true,
		RescoreLimit:  50,
		OnDiskPayload: true,
	}
}

// Validate enforces construction-time invariants: when Rescore is enabled,
// RescoreLimit must be positive (SPEC_FULL.md C.2, defense in depth
// alongside config.L2Config.Validate's top_k_final <= top_k_bq check).
func (c Config) Validate() error {
	if c.Rescore && c.RescoreLimit == 0 {
		return reflexerrors.ConfigError("bq: rescore_limit must be >= 1 when rescore is enabled", nil)
	}
	return nil
}

// ClampLimit raises requestedLimit up to RescoreLimit when Rescore is
// enabled and the caller asked for less oversampling than the configured
// floor. It never truncates a caller's request downward.
func (c Config) ClampLimit(requestedLimit uint64) uint64 {
	if c.Rescore && requestedLimit < c.RescoreLimit {
		return c.RescoreLimit
	}
	return requestedLimit
}
