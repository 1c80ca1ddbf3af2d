// Package merge implements the Merger: the multi-layer bootstrap merge that
// drives blob-table unification, chunk-reference rewriting and overlay
// composition (spec.md §4.H). It is a line-for-line Go port of
// original_source's rafs/src/builder/merge.rs, built on pkg/blob, pkg/tree
// and pkg/manifest.
package merge

import (
	"go.uber.org/zap"

	"github.com/nydusgo/rafs/pkg/manifest"
)

// BuildContext carries the merge's ambient configuration explicitly, per
// spec.md §9 "Global state: none required... passed explicitly through a
// BuildContext value during merges."
type BuildContext struct {
	// Manifest loads and dumps bootstrap manifests. Required.
	Manifest manifest.ReadWriter

	// BlobAccessible mirrors original_source's `blob_accessible` flag: when
	// true, a layer's new data blob keeps its manifest-declared blob_id
	// as-is (the runtime can fetch it remotely by that id). When false and
	// the merge is not in TARFS mode, BlobIDFromMetaPath is consulted
	// instead (spec.md §4.H step 3c).
	BlobAccessible bool

	// BlobIDFromMetaPath computes a layer's canonical blob_id from its
	// manifest path, used only when BlobAccessible is false and the merge
	// is not in TARFS mode. Mirrors original_source's
	// `BlobInfo::get_blob_id_from_meta_path`.
	BlobIDFromMetaPath func(manifestPath string) (string, error)

	Logger *zap.SugaredLogger
}

func (c *BuildContext) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}
