// Package hashing computes the fingerprints, tenant ids, and context hashes
// that key every tier of the cache.
package hashing

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Fingerprint is the 256-bit digest of a canonicalized request. It is used
// as the L1 key suffix and as the displayable request id.
type Fingerprint [32]byte

// Prompt returns the full 256-bit BLAKE3 digest of prompt.
func Prompt(prompt string) Fingerprint {
	sum := blake3.Sum256([]byte(prompt))
	return Fingerprint(sum)
}

// ToU64 hashes data with BLAKE3 and truncates to the low 8 bytes
// (little-endian) of the digest.
//
// 64 bits is enough entropy for cache keys, tenant ids, and context hashes:
// collisions are a cache miss, never corruption, because every tier verifies
// tenant and content downstream. Use [Prompt] when a full 256-bit digest is
// required, e.g. content addressing where a collision would lose data.
func ToU64(data []byte) uint64 {
	sum := blake3.Sum256(data)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Context hashes a role and plan pair into the 64-bit context_hash carried
// by a cache entry and used to derive the vector point id.
func Context(role, plan string) uint64 {
	h := blake3.New()
	_, _ = h.Write([]byte(role))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(plan))
	var sum [32]byte
	h.Sum(sum[:0])
	return binary.LittleEndian.Uint64(sum[:8])
}

// TenantID hashes the caller's authentication token (or the literal
// "default" when absent) into the 64-bit tenant isolation scope.
func TenantID(tenant string) uint64 {
	if tenant == "" {
		tenant = "default"
	}
	return ToU64([]byte(tenant))
}

// Content hashes the full cache-content tuple into a 256-bit digest,
// suitable for content-addressed storage keys or dedup checks.
func Content(tenantID, contextHash uint64, embedding, payload []byte) Fingerprint {
	h := blake3.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], tenantID)
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], contextHash)
	_, _ = h.Write(buf[:])
	_, _ = h.Write(embedding)
	_, _ = h.Write(payload)
	var sum [32]byte
	h.Sum(sum[:0])
	return Fingerprint(sum)
}

// Hex returns the lowercase hex encoding of the fingerprint, truncated to
// the first n bytes (use 8 for the §6.5 storage-key shape, 32 for the
// full id).
func (f Fingerprint) Hex(n int) string {
	if n <= 0 || n > len(f) {
		n = len(f)
	}
	const hexDigits = "0123456789abcdef"
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		out[i*2] = hexDigits[f[i]>>4]
		out[i*2+1] = hexDigits[f[i]&0x0f]
	}
	return string(out)
}

// Low64 truncates the fingerprint to its low 8 bytes, little-endian,
// forming the 64-bit context_hash used inside entries and vector point ids.
func (f Fingerprint) Low64() uint64 {
	return binary.LittleEndian.Uint64(f[:8])
}
