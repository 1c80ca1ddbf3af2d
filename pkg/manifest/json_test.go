package manifest_test

import (
	"path/filepath"
	"testing"

	"github.com/nydusgo/rafs/pkg/blob"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
	"github.com/nydusgo/rafs/pkg/manifest"
	"github.com/nydusgo/rafs/pkg/tree"
)

func TestDumpLoadRoundTrip(t *testing.T) {
	doc := &manifest.Document{
		Version: manifest.V2,
		Blobs: []blob.Info{
			{
				BlobID:         "aa11",
				Features:       blob.FeatureSeparate,
				Config:         blob.Config{Compressor: compress.Zstd, Digester: digest.SHA256},
				CompressedSize: 4096,
				ChunkCount:     2,
				ChunkSize:      1 << 20,
			},
		},
		Tree: tree.New(&tree.Node{
			Name:  "/",
			IsDir: true,
			Children: []*tree.Node{
				{Name: "file.txt", Chunks: []tree.ChunkRef{{BlobIndex: 0, ChunkIndex: 0, Length: 10}}},
				{Name: "dir", IsDir: true, Children: []*tree.Node{
					{Name: "nested", Chunks: []tree.ChunkRef{{BlobIndex: 0, ChunkIndex: 1, Length: 20}}},
				}},
			},
		}),
	}

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := (manifest.JSONCodec{}).Dump(doc, path); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	loaded, err := (manifest.JSONCodec{}).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Version != doc.Version {
		t.Fatalf("Version = %d, want %d", loaded.Version, doc.Version)
	}
	if len(loaded.Blobs) != 1 || loaded.Blobs[0].BlobID != "aa11" {
		t.Fatalf("Blobs = %+v", loaded.Blobs)
	}
	if loaded.Blobs[0].Config.Compressor != compress.Zstd {
		t.Fatalf("Compressor = %v, want zstd", loaded.Blobs[0].Config.Compressor)
	}
	if len(loaded.Tree.Root.Children) != 2 {
		t.Fatalf("expected 2 top-level children, got %d", len(loaded.Tree.Root.Children))
	}
	nested := loaded.Tree.Root.Children[1].Children[0]
	if nested.Name != "nested" || nested.Chunks[0].Length != 20 {
		t.Fatalf("nested node round-trip mismatch: %+v", nested)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := (manifest.JSONCodec{}).Dump(&manifest.Document{Version: 99}, path); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if _, err := (manifest.JSONCodec{}).Load(path); err == nil {
		t.Fatal("expected error loading a manifest with an unsupported version")
	}
}
