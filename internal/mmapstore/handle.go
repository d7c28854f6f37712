package mmapstore

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/blevesearch/mmap-go"
)

// sharedMapping is the actual memory-mapped region, reference-counted
// across every Handle clone. The last clone to release it unmaps.
type sharedMapping struct {
	data mmap.MMap
	file *os.File
	path string
	refs int64
}

func (s *sharedMapping) release() {
	if atomic.AddInt64(&s.refs, -1) == 0 {
		_ = s.data.Unmap()
		_ = s.file.Close()
	}
}

// Handle is a shared, reference-counted, read-only view of a single mmap'd
// file. Clone is O(1) and thread-safe; the last clone to Close unmaps the
// file (spec §3.1 MmapHandle).
type Handle struct {
	shared *sharedMapping
	closed int32
}

// Open memory-maps path read-only. An empty file is a hard error.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ioError("stat", err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return nil, emptyFileError(path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, ioError("mmap", err)
	}

	return &Handle{
		shared: &sharedMapping{data: data, file: f, path: path, refs: 1},
	}, nil
}

// Clone returns a new handle sharing the same mapping; O(1), thread-safe.
func (h *Handle) Clone() *Handle {
	atomic.AddInt64(&h.shared.refs, 1)
	return &Handle{shared: h.shared}
}

// Close releases this handle's reference. The mapping is unmapped once the
// last clone closes. Close is idempotent per handle.
func (h *Handle) Close() error {
	if atomic.CompareAndSwapInt32(&h.closed, 0, 1) {
		h.shared.release()
	}
	return nil
}

// AsSlice returns the immutable backing bytes for the handle's lifetime.
func (h *Handle) AsSlice() []byte { return h.shared.data }

// Len returns the mapped file length in bytes.
func (h *Handle) Len() int { return len(h.shared.data) }

// Path returns the path this handle was opened from.
func (h *Handle) Path() string { return h.shared.path }

// StrongCount returns the number of live clones sharing this mapping.
// Exposed for tests and diagnostics, mirroring Arc::strong_count.
func (h *Handle) StrongCount() int64 { return atomic.LoadInt64(&h.shared.refs) }

// AccessArchived validates and returns a zero-copy view at offset 0.
func (h *Handle) AccessArchived() (*ArchivedCacheEntry, error) {
	return h.AccessArchivedAt(0)
}

// AccessArchivedAt validates offset alignment and bounds, then returns a
// zero-copy ArchivedCacheEntry view over the handle's bytes.
func (h *Handle) AccessArchivedAt(offset int) (*ArchivedCacheEntry, error) {
	return AccessAt(h.AsSlice(), offset)
}

func (h *Handle) String() string {
	return fmt.Sprintf("mmapstore.Handle{path=%s, len=%d, refs=%d}", h.Path(), h.Len(), h.StrongCount())
}
