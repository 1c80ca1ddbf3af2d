// Package cache defines the per-blob read path (BlobCache) and its
// factory/lifecycle owner (BlobCacheMgr) — spec.md §4.E, §4.F. Two
// implementations live in subpackages: nocache (the reference "no caching"
// implementation, a direct port of original_source's DummyCache) and
// lrucache (a real bounded in-memory cache, grounded on the teacher's
// pkg/blobserver/proxycache).
package cache

import (
	"context"

	"github.com/nydusgo/rafs/pkg/backend"
	"github.com/nydusgo/rafs/pkg/chunk"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
)

// IoDescriptor describes one chunk-level read request within a batched
// BlobCache.Read call. It folds together original_source's ChunkSegment
// (Offset/Size: where the descriptor's user bytes land in the destination
// buffers, and how many there are) and IoInitiator (UserIO, distinguishing a
// caller-visible read from internal/readahead I/O) — see SPEC_FULL.md
// "SUPPLEMENTED FEATURES".
type IoDescriptor struct {
	Chunk chunk.Info

	// Offset is where this chunk's user bytes begin in the flattened view
	// of the destination scatter buffers (spec.md §4.E "ios[0].offset").
	Offset uint32

	// Size is the number of user-visible bytes this descriptor
	// contributes (spec.md "Σ user_size").
	Size uint32

	// UserIO reports whether this descriptor fulfills a caller-visible
	// read, as opposed to internal readahead.
	UserIO bool
}

// PrefetchRange is one byte range hint passed to BlobCache.Prefetch.
type PrefetchRange struct {
	Offset uint64
	Length uint32
}

// RawHook, if non-nil, is invoked with the raw (possibly compressed) bytes
// read from the backend for one chunk, before decompression.
type RawHook func(raw []byte)

// BlobCache is the per-blob read path (spec.md §4.E). Every method other
// than lifecycle teardown must be safe for concurrent use by many reader
// goroutines (spec.md §5).
type BlobCache interface {
	// BlobSize returns the size of the underlying blob object.
	BlobSize(ctx context.Context) (uint64, error)

	Compressor() compress.Algorithm
	Digester() digest.Algorithm

	// IsChunkReady reports whether chunk is already locally resident.
	IsChunkReady(c chunk.Info) bool

	// Prefetch issues prefetch hints for ranges and ios, returning the
	// number of hints the backend accepted. It fails with an Unsupported
	// rafserr.Error if prefetching is disabled for this cache. The count is
	// advisory: only zero versus nonzero is meaningful to callers.
	Prefetch(ctx context.Context, ranges []PrefetchRange, ios []IoDescriptor) (int, error)

	// StopPrefetch cancels outstanding prefetch hints, best-effort. It
	// does not wait for in-flight backend fetches to drain.
	StopPrefetch(ctx context.Context) error

	// Read serves a batched logical read per the algorithm of spec.md
	// §4.E, returning the total number of bytes copied into bufs.
	Read(ctx context.Context, ios []IoDescriptor, bufs [][]byte) (int, error)

	// ReadChunks bulk-reads a contiguous compressed range covering
	// ckiSet, returning one decompressed buffer per chunk in ckiSet's
	// order. The caller must ensure ckiSet is sorted and contiguous and
	// exactly covers [blobOffset, blobOffset+blobSize).
	ReadChunks(ctx context.Context, blobOffset uint64, blobSize uint64, ckiSet []chunk.Info) ([][]byte, error)

	// ReadBackendChunk reads one chunk from the backend into chunkBuf,
	// decompressing if needed and validating its digest if this cache has
	// validation enabled. hook, if non-nil, observes the compressed
	// bytes as read from the backend.
	ReadBackendChunk(ctx context.Context, cki chunk.Info, chunkBuf []byte, hook RawHook) (int, error)
}

// BlobCacheMgr owns the BlobBackend and global cache settings, and is the
// factory for per-blob BlobCache instances (spec.md §4.F).
type BlobCacheMgr interface {
	// Init prepares the manager, e.g. preflighting the backend.
	Init(ctx context.Context) error

	// Destroy shuts down the backend; cached resources are released.
	Destroy()

	// Backend returns the manager's BlobBackend.
	Backend() backend.BlobBackend

	// GetBlobCache returns the (possibly newly created) BlobCache for
	// blobID/compressor/digester, interned by blobID.
	GetBlobCache(ctx context.Context, blobID string, compressor compress.Algorithm, digester digest.Algorithm) (BlobCache, error)
}
