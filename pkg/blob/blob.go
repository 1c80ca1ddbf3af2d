// Package blob defines the per-blob metadata model: Features, Config, the
// immutable Info (BlobInfo) loaded from a manifest, the mutable Context used
// while the merger is assembling a merged blob table, and Table (the ordered
// BlobTable itself).
//
// The digestType registry pattern in the teacher's pkg/blob/ref.go — a small
// table of named variants with accessor methods — is echoed here in Features
// and Config rather than in a digest registry, since digest algorithms
// already live in pkg/digest.
package blob

import (
	"fmt"

	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
)

// Features is a bit-set of optional blob characteristics (spec.md §3).
type Features uint32

const (
	// FeatureSeparate marks a blob whose metadata header is stored as a
	// distinct backend object from the blob's data.
	FeatureSeparate Features = 1 << iota

	// FeatureTARFS marks a blob that is itself a plain tar stream serving
	// as the filesystem payload.
	FeatureTARFS
)

func (f Features) Has(bit Features) bool { return f&bit != 0 }

func (f Features) String() string {
	if f == 0 {
		return "none"
	}
	s := ""
	if f.Has(FeatureSeparate) {
		s += "separate|"
	}
	if f.Has(FeatureTARFS) {
		s += "tarfs|"
	}
	if s == "" {
		return fmt.Sprintf("unknown(%#x)", uint32(f))
	}
	return s[:len(s)-1]
}

// Config is the subset of per-layer configuration that must agree across all
// layers participating in a single merge (spec.md §4.H step 3a).
type Config struct {
	Compressor     compress.Algorithm
	Digester       digest.Algorithm
	ExplicitUIDGID bool
}

// CompatibleWith reports whether c and other can be merged together. Mirrors
// original_source's per-layer "config.check_compatibility" gate in
// rafs/src/builder/merge.rs.
func (c Config) CompatibleWith(other Config) error {
	if c.Compressor != other.Compressor {
		return fmt.Errorf("incompatible compressor: %s vs %s", c.Compressor, other.Compressor)
	}
	if c.Digester != other.Digester {
		return fmt.Errorf("incompatible digester: %s vs %s", c.Digester, other.Digester)
	}
	if c.ExplicitUIDGID != other.ExplicitUIDGID {
		return fmt.Errorf("incompatible uid/gid discipline: %v vs %v", c.ExplicitUIDGID, other.ExplicitUIDGID)
	}
	return nil
}

// Info is an immutable per-blob descriptor as loaded from (or dumped into) a
// manifest (spec.md §3 "BlobInfo").
type Info struct {
	BlobID   string
	Features Features
	Config   Config

	CompressedSize uint64
	ChunkCount     uint32

	BlobMetaDigest [32]byte
	BlobMetaSize   uint64
	BlobTOCDigest  [32]byte
	BlobTOCSize    uint32

	// ChunkSize bounds every chunk in this blob; it is a power of two and
	// must be identical across every blob in a merged image (spec.md I2).
	ChunkSize uint32
}

// ChunkSource tags where a blob-table entry's chunks originate from, for
// bookkeeping during a merge. Mirrors original_source's ChunkSource enum.
type ChunkSource string

const (
	ChunkSourceParent ChunkSource = "parent"
	ChunkSourceDict   ChunkSource = "dict"
	ChunkSourceBuild  ChunkSource = "build"
)

// Context is the mutable, merge-time counterpart of Info: the BlobContext
// the merger builds from a loaded Info and then edits in place (§3 I5,
// §4.H step 3c) before it is frozen back into an Info for the merged
// BlobTable.
type Context struct {
	Info
	Source ChunkSource
}

// FromInfo builds a Context from a loaded Info, tagged with source. Mirrors
// original_source's `BlobContext::from(ctx, &blob, ChunkSource::Parent)`.
func FromInfo(info Info, source ChunkSource) Context {
	return Context{Info: info, Source: source}
}

// ApplyDigest implements spec.md I5: an externally supplied digest updates
// BlobMetaDigest for a SEPARATE blob, otherwise it updates BlobID itself.
//
// Open question (a) from spec.md §9: when the blob has the SEPARATE feature,
// only BlobMetaDigest changes and BlobID is deliberately left as-is. This is
// intentional, not a gap.
func (c *Context) ApplyDigest(digest [32]byte) {
	if c.Features.Has(FeatureSeparate) {
		c.BlobMetaDigest = digest
		return
	}
	c.BlobID = fmt.Sprintf("%x", digest)
}

// ApplySize implements the size half of the same override rule: SEPARATE
// blobs update BlobMetaSize, others update CompressedSize.
func (c *Context) ApplySize(size uint64) {
	if c.Features.Has(FeatureSeparate) {
		c.BlobMetaSize = size
		return
	}
	c.CompressedSize = size
}

// ApplyTOCDigest sets BlobTOCDigest unconditionally (spec.md §4.H step 3c).
func (c *Context) ApplyTOCDigest(digest [32]byte) {
	c.BlobTOCDigest = digest
}

// ApplyTOCSize sets BlobTOCSize unconditionally.
func (c *Context) ApplyTOCSize(size uint32) {
	c.BlobTOCSize = size
}

// Freeze returns the immutable Info view of this Context, to be stored in
// the merged BlobTable.
func (c Context) Freeze() Info {
	return c.Info
}
