// Package backend defines the object-storage capability the cache package
// reads blobs through (spec.md §1 "compression codecs, digest algorithms,
// and the object-storage backend (BlobBackend, BlobReader) are interfaces
// the core calls into"). Concrete backends live in subpackages (memory,
// localfs, s3), following the teacher's pkg/blobserver convention of one
// storage implementation per subpackage behind a shared capability
// interface (pkg/blobserver/interface.go's Storage/BlobReceiver split).
package backend

import "context"

// BlobReader serves byte-range reads over one named blob object.
type BlobReader interface {
	// BlobSize returns the size of the underlying blob object.
	BlobSize(ctx context.Context) (uint64, error)

	// ReadAt reads exactly len(buf) bytes starting at offset into buf, or
	// returns an error (spec.md §6 "must return exactly the requested
	// length or error").
	ReadAt(ctx context.Context, buf []byte, offset uint64) error

	// PrefetchRange issues an advisory prefetch hint for [offset,
	// offset+length). Implementations that do not support prefetching
	// return an error; callers must not treat a prefetch failure as fatal
	// (spec.md §7 "Prefetch errors are counted but not fatal").
	PrefetchRange(ctx context.Context, offset uint64, length uint32) error
}

// BlobBackend is the object-storage capability a BlobCacheMgr holds shared,
// read-only access to (spec.md §5 "Shared resources").
type BlobBackend interface {
	// Reader returns a BlobReader bound to blobID.
	Reader(ctx context.Context, blobID string) (BlobReader, error)

	// Shutdown releases backend resources. After Shutdown, readers
	// obtained from this backend may no longer be used.
	Shutdown()
}
