package merge

import (
	"fmt"
	"math"

	"github.com/nydusgo/rafs/pkg/blob"
	"github.com/nydusgo/rafs/pkg/manifest"
	"github.com/nydusgo/rafs/pkg/rafserr"
	"github.com/nydusgo/rafs/pkg/tree"
)

// Merger drives a multi-layer bootstrap merge (spec.md §4.H, the core of
// this repository). It runs on a single caller goroutine and holds exclusive
// mutable access to its accumulator Tree and BlobTable for the duration of
// one Merge call (spec.md §5).
type Merger struct {
	ctx BuildContext
}

// New returns a Merger using ctx for manifest I/O, blob-id resolution and
// logging.
func New(ctx BuildContext) *Merger {
	return &Merger{ctx: ctx}
}

// Merge performs one merge pass per spec.md §4.H and returns its BuildOutput,
// or a descriptive error. No partial manifest is ever dumped: the manifest
// codec's Dump is expected to write-then-rename atomically (spec.md
// "Failure semantics").
func (m *Merger) Merge(p Params) (*BuildOutput, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	log := m.ctx.logger()

	layers := make([]*manifest.Document, len(p.Sources))
	for i, src := range p.Sources {
		doc, err := m.ctx.Manifest.Load(src)
		if err != nil {
			return nil, rafserr.New(rafserr.ManifestIO, "load_source", err)
		}
		layers[i] = doc
	}

	tarfs := false
	for _, doc := range layers {
		for _, b := range doc.Blobs {
			if b.Features.Has(blob.FeatureTARFS) {
				tarfs = true
			}
		}
	}
	if tarfs && (p.ParentManifest != "" || p.ChunkDict != "") {
		return nil, rafserr.New(rafserr.InputValidation, "validate",
			fmt.Errorf("tarfs mode forbids parent_manifest and chunk_dict"))
	}

	table := blob.NewTable()
	var acc *tree.Tree
	parentLayers := 0
	version := manifest.Version(0)

	// Step 1: parent ingest.
	if p.ParentManifest != "" {
		parentDoc, err := m.ctx.Manifest.Load(p.ParentManifest)
		if err != nil {
			return nil, rafserr.New(rafserr.ManifestIO, "load_parent", err)
		}
		version = parentDoc.Version
		for _, b := range parentDoc.Blobs {
			bc := blob.FromInfo(b, blob.ChunkSourceParent)
			table.EnsureAppended(bc.Freeze())
		}
		acc = parentDoc.Tree
		parentLayers = len(parentDoc.Blobs)
		log.Debugw("merge: ingested parent manifest", "blobs", parentLayers)
	}

	// Step 2: chunk-dict ingest.
	dictBlobIDs := make(map[string]bool)
	if p.ChunkDict != "" {
		dictDoc, err := m.ctx.Manifest.Load(p.ChunkDict)
		if err != nil {
			return nil, rafserr.New(rafserr.ManifestIO, "load_chunk_dict", err)
		}
		if version == 0 {
			version = dictDoc.Version
		} else if version != dictDoc.Version {
			return nil, rafserr.New(rafserr.IncompatibleManifest, "load_chunk_dict",
				fmt.Errorf("chunk dict manifest version %d does not match %d", dictDoc.Version, version))
		}
		for _, b := range dictDoc.Blobs {
			dictBlobIDs[b.BlobID] = true
			bc := blob.FromInfo(b, blob.ChunkSourceDict)
			table.EnsureAppended(bc.Freeze())
		}
		log.Debugw("merge: ingested chunk dictionary", "blobs", len(dictBlobIDs))
	}

	var effectiveConfig *blob.Config
	var chunkSize uint32

	// Step 3: per-layer pass.
	for layerIdx, doc := range layers {
		if version == 0 {
			version = doc.Version
		} else if version != doc.Version {
			return nil, rafserr.Newf(rafserr.IncompatibleManifest, "merge_layer",
				"source %d: manifest version %d does not match %d", layerIdx, doc.Version, version)
		}
		if !version.Valid() {
			return nil, rafserr.Newf(rafserr.IncompatibleManifest, "merge_layer",
				"source %d: unsupported manifest version %d", layerIdx, doc.Version)
		}

		// 3a: effective config.
		if len(doc.Blobs) > 0 {
			layerCfg := doc.Blobs[0].Config
			if effectiveConfig == nil {
				cfg := layerCfg
				effectiveConfig = &cfg
			} else if err := effectiveConfig.CompatibleWith(layerCfg); err != nil {
				return nil, rafserr.Newf(rafserr.IncompatibleManifest, "merge_layer",
					"source %d: %v", layerIdx, err)
			}

			// 3b: chunk_size (I2).
			layerChunkSize := doc.Blobs[0].ChunkSize
			if chunkSize == 0 {
				chunkSize = layerChunkSize
			} else if chunkSize != layerChunkSize {
				return nil, rafserr.Newf(rafserr.IncompatibleManifest, "merge_layer",
					"source %d: chunk_size %d does not match %d", layerIdx, layerChunkSize, chunkSize)
			}
		}

		// 3c: blob merge.
		parentBlobAdded := false
		layerPosition := make([]int, len(doc.Blobs))
		for bi, b := range doc.Blobs {
			bc := blob.FromInfo(b, blob.ChunkSourceBuild)

			if !dictBlobIDs[b.BlobID] {
				if parentBlobAdded {
					return nil, rafserr.Newf(rafserr.BlobConstraint, "merge_blobs",
						"source %d contributes more than one non-dictionary blob", layerIdx)
				}
				parentBlobAdded = true

				if !m.ctx.BlobAccessible && !tarfs {
					if m.ctx.BlobIDFromMetaPath == nil {
						return nil, rafserr.New(rafserr.InputValidation, "merge_blobs",
							fmt.Errorf("blobs are not remotely accessible and no BlobIDFromMetaPath was configured"))
					}
					id, err := m.ctx.BlobIDFromMetaPath(p.Sources[layerIdx])
					if err != nil {
						return nil, rafserr.New(rafserr.ManifestIO, "merge_blobs", err)
					}
					bc.BlobID = id
				}

				if p.hasDigest(layerIdx) {
					bc.ApplyDigest(p.BlobDigestOverrides[layerIdx])
				}
				if p.hasSize(layerIdx) {
					bc.ApplySize(p.BlobSizeOverrides[layerIdx])
				}
				if p.hasTOCDigest(layerIdx) {
					bc.ApplyTOCDigest(p.BlobTOCDigestOverrides[layerIdx])
				}
				if p.hasTOCSize(layerIdx) {
					bc.ApplyTOCSize(p.BlobTOCSizeOverrides[layerIdx])
				}
			}

			layerPosition[bi] = table.EnsureAppended(bc.Freeze())
		}

		// 3d: tree build and chunk re-indexing.
		upper := doc.Tree
		if upper == nil {
			upper = tree.New(nil)
		}
		combinedIdx := parentLayers + layerIdx
		if combinedIdx > math.MaxUint16 {
			return nil, rafserr.Newf(rafserr.InputValidation, "merge_layer",
				"layer index %d overflows u16 (I4)", combinedIdx)
		}
		layerIdxU16 := uint16(combinedIdx)

		err := upper.WalkBFS(true, func(n *tree.Node) error {
			for i := range n.Chunks {
				oldIdx := n.Chunks[i].BlobIndex
				if int(oldIdx) >= len(layerPosition) {
					return rafserr.Newf(rafserr.IncompatibleManifest, "reindex_chunks",
						"node %q: chunk blob_index %d out of range for source %d (%d blobs)",
						n.Name, oldIdx, layerIdx, len(layerPosition))
				}
				n.Chunks[i].BlobIndex = uint32(layerPosition[oldIdx])
			}
			n.LayerIdx = layerIdxU16
			n.Overlay = tree.OverlayUpperAddition
			return nil
		})
		if err != nil {
			return nil, err
		}

		// 3e: overlay apply.
		if acc == nil {
			acc = upper
		} else {
			tree.MergeOverlay(acc, upper)
		}
		log.Debugw("merge: applied layer", "index", layerIdx, "layer_idx", layerIdxU16, "blobs_in_layer", len(doc.Blobs))
	}

	// Step 4: TARFS guard.
	if tarfs {
		if !(parentLayers == 0 && len(dictBlobIDs) == 0) {
			return nil, rafserr.New(rafserr.InputValidation, "tarfs_guard",
				fmt.Errorf("tarfs mode requires zero parent layers and an empty chunk dictionary"))
		}
	}

	// Step 5: finalize and dump.
	out := &manifest.Document{
		Version: version,
		Blobs:   table.Blobs(),
		Tree:    acc,
	}
	if err := m.ctx.Manifest.Dump(out, p.Target); err != nil {
		return nil, rafserr.New(rafserr.ManifestIO, "dump", err)
	}
	log.Infow("merge: complete", "target", p.Target, "blobs", len(out.Blobs))

	return &BuildOutput{Blobs: out.Blobs, ManifestPath: p.Target}, nil
}
