package manifest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nydusgo/rafs/pkg/blob"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
	"github.com/nydusgo/rafs/pkg/tree"
)

// JSONCodec is the reference SuperblockReader/BootstrapBuilder
// implementation: a versioned JSON document on disk, written atomically
// (temp file in the target's directory, then renamed into place).
type JSONCodec struct{}

var _ ReadWriter = JSONCodec{}

type wireDoc struct {
	Version Version     `json:"version"`
	Blobs   []wireBlob  `json:"blobs"`
	Root    *wireNode   `json:"root"`
}

type wireBlob struct {
	BlobID         string `json:"blob_id"`
	Features       uint32 `json:"features"`
	Compressor     string `json:"compressor"`
	Digester       string `json:"digester"`
	ExplicitUIDGID bool   `json:"explicit_uid_gid"`
	CompressedSize uint64 `json:"compressed_size"`
	ChunkCount     uint32 `json:"chunk_count"`
	BlobMetaDigest string `json:"blob_meta_digest,omitempty"`
	BlobMetaSize   uint64 `json:"blob_meta_size,omitempty"`
	BlobTOCDigest  string `json:"blob_toc_digest,omitempty"`
	BlobTOCSize    uint32 `json:"blob_toc_size,omitempty"`
	ChunkSize      uint32 `json:"chunk_size"`
}

type wireChunkRef struct {
	BlobIndex     uint32 `json:"blob_index"`
	ChunkIndex    uint32 `json:"chunk_index"`
	LogicalOffset uint64 `json:"logical_offset"`
	Length        uint32 `json:"length"`
}

type wireNode struct {
	Name     string          `json:"name"`
	Mode     uint32          `json:"mode"`
	UID      uint32          `json:"uid"`
	GID      uint32          `json:"gid"`
	Size     uint64          `json:"size"`
	IsDir    bool            `json:"is_dir"`
	Children []*wireNode     `json:"children,omitempty"`
	Chunks   []wireChunkRef  `json:"chunks,omitempty"`
	LayerIdx uint16          `json:"layer_idx"`
	Overlay  int             `json:"overlay"`
	Whiteout bool            `json:"whiteout,omitempty"`
	Opaque   bool            `json:"opaque,omitempty"`
}

func digestToHex(d [32]byte) string {
	return hex.EncodeToString(d[:])
}

func hexToDigest(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("manifest: invalid digest %q: %w", s, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("manifest: digest %q has %d bytes, want 32", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func toWireBlob(b blob.Info) wireBlob {
	return wireBlob{
		BlobID:         b.BlobID,
		Features:       uint32(b.Features),
		Compressor:     string(b.Config.Compressor),
		Digester:       string(b.Config.Digester),
		ExplicitUIDGID: b.Config.ExplicitUIDGID,
		CompressedSize: b.CompressedSize,
		ChunkCount:     b.ChunkCount,
		BlobMetaDigest: digestToHex(b.BlobMetaDigest),
		BlobMetaSize:   b.BlobMetaSize,
		BlobTOCDigest:  digestToHex(b.BlobTOCDigest),
		BlobTOCSize:    b.BlobTOCSize,
		ChunkSize:      b.ChunkSize,
	}
}

func fromWireBlob(w wireBlob) (blob.Info, error) {
	metaDigest, err := hexToDigest(w.BlobMetaDigest)
	if err != nil {
		return blob.Info{}, err
	}
	tocDigest, err := hexToDigest(w.BlobTOCDigest)
	if err != nil {
		return blob.Info{}, err
	}
	return blob.Info{
		BlobID:   w.BlobID,
		Features: blob.Features(w.Features),
		Config: blob.Config{
			Compressor:     compress.Algorithm(w.Compressor),
			Digester:       digest.Algorithm(w.Digester),
			ExplicitUIDGID: w.ExplicitUIDGID,
		},
		CompressedSize: w.CompressedSize,
		ChunkCount:     w.ChunkCount,
		BlobMetaDigest: metaDigest,
		BlobMetaSize:   w.BlobMetaSize,
		BlobTOCDigest:  tocDigest,
		BlobTOCSize:    w.BlobTOCSize,
		ChunkSize:      w.ChunkSize,
	}, nil
}

func toWireNode(n *tree.Node) *wireNode {
	if n == nil {
		return nil
	}
	w := &wireNode{
		Name:     n.Name,
		Mode:     n.Mode,
		UID:      n.UID,
		GID:      n.GID,
		Size:     n.Size,
		IsDir:    n.IsDir,
		LayerIdx: n.LayerIdx,
		Overlay:  int(n.Overlay),
		Whiteout: n.Whiteout,
		Opaque:   n.Opaque,
	}
	for _, c := range n.Chunks {
		w.Chunks = append(w.Chunks, wireChunkRef{
			BlobIndex:     c.BlobIndex,
			ChunkIndex:    c.ChunkIndex,
			LogicalOffset: c.LogicalOffset,
			Length:        c.Length,
		})
	}
	for _, c := range n.Children {
		w.Children = append(w.Children, toWireNode(c))
	}
	return w
}

func fromWireNode(w *wireNode) *tree.Node {
	if w == nil {
		return nil
	}
	n := &tree.Node{
		Name:     w.Name,
		Mode:     w.Mode,
		UID:      w.UID,
		GID:      w.GID,
		Size:     w.Size,
		IsDir:    w.IsDir,
		LayerIdx: w.LayerIdx,
		Overlay:  tree.Overlay(w.Overlay),
		Whiteout: w.Whiteout,
		Opaque:   w.Opaque,
	}
	for _, c := range w.Chunks {
		n.Chunks = append(n.Chunks, tree.ChunkRef{
			BlobIndex:     c.BlobIndex,
			ChunkIndex:    c.ChunkIndex,
			LogicalOffset: c.LogicalOffset,
			Length:        c.Length,
		})
	}
	for _, c := range w.Children {
		n.Children = append(n.Children, fromWireNode(c))
	}
	return n
}

// Load reads and parses a JSON manifest document from path.
func (JSONCodec) Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", path, err)
	}
	defer f.Close()

	var w wireDoc
	if err := json.NewDecoder(f).Decode(&w); err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", path, err)
	}
	if !w.Version.Valid() {
		return nil, fmt.Errorf("manifest: %s: unsupported version %d", path, w.Version)
	}

	blobs := make([]blob.Info, 0, len(w.Blobs))
	for _, wb := range w.Blobs {
		b, err := fromWireBlob(wb)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", path, err)
		}
		blobs = append(blobs, b)
	}

	return &Document{
		Version: w.Version,
		Blobs:   blobs,
		Tree:    tree.New(fromWireNode(w.Root)),
	}, nil
}

// Dump serializes doc as JSON and atomically replaces path: it writes to a
// temporary file in the same directory, then renames it into place, so a
// reader never observes a partially-written manifest (spec.md §4.H step 5).
func (JSONCodec) Dump(doc *Document, path string) error {
	w := wireDoc{Version: doc.Version}
	for _, b := range doc.Blobs {
		w.Blobs = append(w.Blobs, toWireBlob(b))
	}
	if doc.Tree != nil {
		w.Root = toWireNode(doc.Tree.Root)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("manifest: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tmpName)
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(w); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("manifest: rename %s to %s: %w", tmpName, path, err)
	}
	succeeded = true
	return nil
}
