// Package manifest defines the narrow load/dump contract the merger
// consumes from the on-disk bootstrap format (spec.md §1 "Out of scope:
// the on-disk manifest reader/writer (SuperblockReader, BootstrapBuilder) is
// consumed through a narrow load/dump interface"), plus one concrete,
// versioned JSON codec implementing that contract so the rest of this
// repository is testable end-to-end.
//
// Real deployments are expected to supply their own SuperblockReader/
// BootstrapBuilder backed by the actual on-disk RAFS format; this package's
// json.go is a reference implementation, not a format this repository is
// contracted to keep wire-compatible with anything external.
package manifest

import (
	"github.com/nydusgo/rafs/pkg/blob"
	"github.com/nydusgo/rafs/pkg/tree"
)

// Version identifies a manifest format revision. The merger forbids
// cross-version merges (spec.md §6).
type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

func (v Version) Valid() bool { return v == V1 || v == V2 }

// Document is the in-memory form of one loaded manifest: a version, the
// blob table, and the filesystem tree (spec.md §6 "Manifest (bootstrap)
// format").
type Document struct {
	Version Version
	Blobs   []blob.Info
	Tree    *tree.Tree
}

// Reader loads a manifest document from its serialized form. This is the
// SuperblockReader capability spec.md names.
type Reader interface {
	Load(path string) (*Document, error)
}

// Writer serializes a manifest document, writing it atomically: on success
// the target reflects the new document in full or not at all (spec.md §4.H
// step 5 "Failure semantics").
type Writer interface {
	Dump(doc *Document, path string) error
}

// ReadWriter is the combined capability a caller typically wants when
// round-tripping manifests (e.g. tests, CLI tooling).
type ReadWriter interface {
	Reader
	Writer
}
