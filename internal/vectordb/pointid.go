// Package vectordb implements the VectorIndex capability (spec §6.3):
// production Qdrant-backed search/upsert, plus the point-id derivation
// shared by every backend.
package vectordb

// goldenRatio64 is the odd 64-bit constant used to scatter tenant ids
// across the point-id space before folding in the context hash (spec
// §4.5). Any fixed odd multiplier works; this one is the commonly used
// Fibonacci-hashing constant.
const goldenRatio64 = 0x517cc1b727220a95

// GeneratePointID derives the deterministic vector point id for a
// (tenant, context_hash) pair. Re-indexing an equal pair reproduces the
// same id, so the upsert replaces the prior point in place (spec
// Invariant 4). Both the multiply and the add wrap on overflow, matching
// unsigned 64-bit wraparound arithmetic.
func GeneratePointID(tenantID, contextHash uint64) uint64 {
	return (tenantID * goldenRatio64) + contextHash
}
