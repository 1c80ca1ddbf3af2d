// Package chunk defines the immutable per-chunk descriptor shared by the
// blob, tree, cache and merge packages (spec.md §3 "Chunk").
package chunk

// Info describes one content-addressed chunk within a blob. Two Infos with
// equal BlockID are interchangeable (spec.md §3).
type Info struct {
	// Index is this chunk's position within its blob, unique per blob.
	Index uint32

	// BlobIndex is the position of the owning blob within whatever
	// BlobTable this chunk is currently indexed against. The merger
	// rewrites this field when it re-indexes a layer's chunks into the
	// merged blob table (spec.md §4.H step 3d).
	BlobIndex uint32

	// BlockID is the content digest of the decompressed chunk bytes.
	BlockID [32]byte

	// CompressOffset is this chunk's byte position within the compressed
	// blob.
	CompressOffset uint64

	// CompressSize is the chunk's size in the compressed blob.
	CompressSize uint32

	// DecompressSize is the chunk's size once decompressed.
	DecompressSize uint32

	// Compressed reports whether the chunk's backend bytes need
	// decompression before use.
	Compressed bool
}

// End returns the byte offset one past this chunk's compressed range.
func (c Info) End() uint64 {
	return c.CompressOffset + uint64(c.CompressSize)
}

// Contiguous reports whether next immediately follows c in the compressed
// blob, i.e. next.CompressOffset == c.End(). Used to validate the
// precondition of BlobCache.ReadChunks (spec.md §4.E).
func (c Info) Contiguous(next Info) bool {
	return next.CompressOffset == c.End()
}
