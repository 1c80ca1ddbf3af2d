package merge

import (
	"fmt"

	"github.com/nydusgo/rafs/pkg/blob"
	"github.com/nydusgo/rafs/pkg/rafserr"
)

// Params is the Merger's public contract (spec.md §4.H "Public contract").
// The *Overrides slices are positional and parallel to Sources; whether
// entry i applies to layer i is decided by the matching Has* mask below, and
// the whole slice may be left nil when no layer in this merge needs it.
type Params struct {
	// ParentManifest is an optional previously merged image to extend; its
	// layers become "lower" than every layer in Sources.
	ParentManifest string

	// Sources is the ordered (≥1) list of per-layer manifest paths,
	// lower→higher.
	Sources []string

	// ChunkDict is an optional manifest whose blobs form the dictionary
	// shared by every layer in Sources.
	ChunkDict string

	// Target is the destination path for the merged manifest.
	Target string

	BlobDigestOverrides    [][32]byte
	BlobSizeOverrides      []uint64
	BlobTOCDigestOverrides [][32]byte
	BlobTOCSizeOverrides   []uint32

	// HasBlobDigest, HasBlobSize, HasBlobTOCDigest, HasBlobTOCSize report,
	// per source index, whether the corresponding *Overrides entry applies.
	// A nil mask with a non-empty *Overrides slice means every entry
	// applies.
	HasBlobDigest    []bool
	HasBlobSize      []bool
	HasBlobTOCDigest []bool
	HasBlobTOCSize   []bool
}

func (p Params) validate() error {
	if len(p.Sources) == 0 {
		return rafserr.New(rafserr.InputValidation, "validate", fmt.Errorf("sources must be non-empty"))
	}
	n := len(p.Sources)
	checks := []struct {
		name string
		len  int
	}{
		{"blob_digest_overrides", len(p.BlobDigestOverrides)},
		{"blob_size_overrides", len(p.BlobSizeOverrides)},
		{"blob_toc_digest_overrides", len(p.BlobTOCDigestOverrides)},
		{"blob_toc_size_overrides", len(p.BlobTOCSizeOverrides)},
		{"has_blob_digest", len(p.HasBlobDigest)},
		{"has_blob_size", len(p.HasBlobSize)},
		{"has_blob_toc_digest", len(p.HasBlobTOCDigest)},
		{"has_blob_toc_size", len(p.HasBlobTOCSize)},
	}
	for _, c := range checks {
		if c.len != 0 && c.len != n {
			return rafserr.Newf(rafserr.InputValidation, "validate",
				"%s has length %d, want 0 or %d", c.name, c.len, n)
		}
	}
	if p.Target == "" {
		return rafserr.New(rafserr.InputValidation, "validate", fmt.Errorf("target is required"))
	}
	return nil
}

func (p Params) hasDigest(i int) bool {
	if len(p.BlobDigestOverrides) == 0 {
		return false
	}
	if len(p.HasBlobDigest) == 0 {
		return true
	}
	return p.HasBlobDigest[i]
}

func (p Params) hasSize(i int) bool {
	if len(p.BlobSizeOverrides) == 0 {
		return false
	}
	if len(p.HasBlobSize) == 0 {
		return true
	}
	return p.HasBlobSize[i]
}

func (p Params) hasTOCDigest(i int) bool {
	if len(p.BlobTOCDigestOverrides) == 0 {
		return false
	}
	if len(p.HasBlobTOCDigest) == 0 {
		return true
	}
	return p.HasBlobTOCDigest[i]
}

func (p Params) hasTOCSize(i int) bool {
	if len(p.BlobTOCSizeOverrides) == 0 {
		return false
	}
	if len(p.HasBlobTOCSize) == 0 {
		return true
	}
	return p.HasBlobTOCSize[i]
}

// BuildOutput reports the result of a successful merge (spec.md §4.H step 5).
type BuildOutput struct {
	// Blobs is the merged image's final, ordered blob table.
	Blobs []blob.Info
	// ManifestPath is where the merged manifest was dumped (Params.Target).
	ManifestPath string
}
