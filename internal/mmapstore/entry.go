package mmapstore

import (
	"encoding/binary"
	"fmt"
)

// Alignment is the natural alignment, in bytes, that every typed offset into
// an archived entry must respect (spec §4.2).
const Alignment = 16

const (
	magic         = uint32(0x5246_4c58) // "RFLX" little-endian friendly
	formatVersion = uint16(1)

	// headerSize is the fixed, 16-byte-aligned prefix holding the scalar
	// fields and the variable-length field bookkeeping.
	headerSize = 64
)

// CacheEntry is the plain decoded form of an on-disk entry (spec §3.1).
type CacheEntry struct {
	TenantID    uint64
	ContextHash uint64
	Timestamp   int64
	Embedding   []byte // packed little-endian f16, length 2*D or 0
	Payload     []byte // opaque to the core
}

// Encode serializes e into the stable, 16-byte-aligned, self-describing
// layout that ArchivedCacheEntry reads back without copying.
//
// Layout (all multiples of 16 from the start of the buffer):
//
//	[0:4)   magic
//	[4:6)   format version
//	[6:8)   reserved
//	[8:16)  tenant_id        (u64 LE)
//	[16:24) context_hash     (u64 LE)
//	[24:32) timestamp        (i64 LE)
//	[32:40) embedding_len    (u64 LE, bytes)
//	[40:48) payload_len      (u64 LE, bytes)
//	[48:56) embedding_offset (u64 LE, == headerSize)
//	[56:64) payload_offset   (u64 LE, == headerSize + padded embedding_len)
//	[embedding_offset:..)    embedding bytes, padded to 16 after
//	[payload_offset:..)      payload bytes
func Encode(e CacheEntry) []byte {
	embLen := uint64(len(e.Embedding))
	payLen := uint64(len(e.Payload))

	embOffset := uint64(headerSize)
	embPadded := padTo16(embLen)
	payOffset := embOffset + embPadded
	payPadded := padTo16(payLen)
	total := payOffset + payPadded

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], formatVersion)
	binary.LittleEndian.PutUint64(buf[8:16], e.TenantID)
	binary.LittleEndian.PutUint64(buf[16:24], e.ContextHash)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(e.Timestamp))
	binary.LittleEndian.PutUint64(buf[32:40], embLen)
	binary.LittleEndian.PutUint64(buf[40:48], payLen)
	binary.LittleEndian.PutUint64(buf[48:56], embOffset)
	binary.LittleEndian.PutUint64(buf[56:64], payOffset)

	copy(buf[embOffset:embOffset+embLen], e.Embedding)
	copy(buf[payOffset:payOffset+payLen], e.Payload)

	return buf
}

func padTo16(n uint64) uint64 {
	rem := n % Alignment
	if rem == 0 {
		return n
	}
	return n + (Alignment - rem)
}

// ArchivedCacheEntry is a borrowed, zero-copy view over bytes produced by
// Encode. It never copies the embedding or payload; accessors return slices
// aliasing the original buffer.
type ArchivedCacheEntry struct {
	buf          []byte
	embeddingOff uint64
	embeddingLen uint64
	payloadOff   uint64
	payloadLen   uint64
}

// ValidationError reports why a candidate buffer does not decode to a valid
// ArchivedCacheEntry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "mmapstore: validation failed: " + e.Reason }

// AlignmentError reports a typed access at an offset not aligned to Alignment.
type AlignmentError struct {
	Offset    int
	Alignment int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("mmapstore: offset %d is not aligned to %d bytes", e.Offset, e.Alignment)
}

// Access validates buf and returns a zero-copy ArchivedCacheEntry view over
// it at offset 0. Use AccessAt for entries embedded at a non-zero offset.
func Access(buf []byte) (*ArchivedCacheEntry, error) {
	return AccessAt(buf, 0)
}

// AccessAt validates buf[offset:] and returns a zero-copy view. It checks
// offset bounds, alignment, the magic/version header, and that every
// variable-length field fits within the buffer before returning.
func AccessAt(buf []byte, offset int) (*ArchivedCacheEntry, error) {
	if offset < 0 || offset >= len(buf) {
		return nil, &ValidationError{Reason: fmt.Sprintf("offset %d out of range for buffer of length %d", offset, len(buf))}
	}
	if offset%Alignment != 0 {
		return nil, &AlignmentError{Offset: offset, Alignment: Alignment}
	}

	slice := buf[offset:]
	if len(slice) < headerSize {
		return nil, &ValidationError{Reason: fmt.Sprintf("buffer too small for header: have %d, need %d", len(slice), headerSize)}
	}

	if got := binary.LittleEndian.Uint32(slice[0:4]); got != magic {
		return nil, &ValidationError{Reason: fmt.Sprintf("bad magic: got %#x", got)}
	}
	if got := binary.LittleEndian.Uint16(slice[4:6]); got != formatVersion {
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported format version %d", got)}
	}

	embLen := binary.LittleEndian.Uint64(slice[32:40])
	payLen := binary.LittleEndian.Uint64(slice[40:48])
	embOffset := binary.LittleEndian.Uint64(slice[48:56])
	payOffset := binary.LittleEndian.Uint64(slice[56:64])

	if embOffset%Alignment != 0 || payOffset%Alignment != 0 {
		return nil, &ValidationError{Reason: "variable-length field offsets are not 16-byte aligned"}
	}
	if embOffset+embLen > uint64(len(slice)) || payOffset+payLen > uint64(len(slice)) {
		return nil, &ValidationError{Reason: "variable-length field extends past end of buffer"}
	}

	return &ArchivedCacheEntry{
		buf:          slice,
		embeddingOff: embOffset,
		embeddingLen: embLen,
		payloadOff:   payOffset,
		payloadLen:   payLen,
	}, nil
}

// TenantID returns the tenant scalar directly from the mapped bytes.
func (a *ArchivedCacheEntry) TenantID() uint64 {
	return binary.LittleEndian.Uint64(a.buf[8:16])
}

// ContextHash returns the context_hash scalar.
func (a *ArchivedCacheEntry) ContextHash() uint64 {
	return binary.LittleEndian.Uint64(a.buf[16:24])
}

// Timestamp returns the informational timestamp scalar.
func (a *ArchivedCacheEntry) Timestamp() int64 {
	return int64(binary.LittleEndian.Uint64(a.buf[24:32]))
}

// Embedding returns a borrowed slice over the packed f16 embedding bytes.
func (a *ArchivedCacheEntry) Embedding() []byte {
	if a.embeddingLen == 0 {
		return nil
	}
	return a.buf[a.embeddingOff : a.embeddingOff+a.embeddingLen]
}

// Payload returns a borrowed slice over the opaque payload bytes.
func (a *ArchivedCacheEntry) Payload() []byte {
	if a.payloadLen == 0 {
		return nil
	}
	return a.buf[a.payloadOff : a.payloadOff+a.payloadLen]
}

// ToCacheEntry copies the archived view into an owned CacheEntry value.
// Callers that only need to read should prefer the zero-copy accessors.
func (a *ArchivedCacheEntry) ToCacheEntry() CacheEntry {
	var emb, pay []byte
	if e := a.Embedding(); e != nil {
		emb = append([]byte(nil), e...)
	}
	if p := a.Payload(); p != nil {
		pay = append([]byte(nil), p...)
	}
	return CacheEntry{
		TenantID:    a.TenantID(),
		ContextHash: a.ContextHash(),
		Timestamp:   a.Timestamp(),
		Embedding:   emb,
		Payload:     pay,
	}
}
