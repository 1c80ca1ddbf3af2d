package localfs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nydusgo/rafs/pkg/backend/localfs"
)

func TestReadAtAndBlobSize(t *testing.T) {
	dir := t.TempDir()
	blobID := "b1"
	if err := os.WriteFile(filepath.Join(dir, blobID), []byte("abcdefghij"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	be := localfs.New(dir)
	r, err := be.Reader(context.Background(), blobID)
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	size, err := r.BlobSize(context.Background())
	if err != nil {
		t.Fatalf("BlobSize: %v", err)
	}
	if size != 10 {
		t.Fatalf("size = %d, want 10", size)
	}

	buf := make([]byte, 3)
	if err := r.ReadAt(context.Background(), buf, 4); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "efg" {
		t.Fatalf("buf = %q, want %q", buf, "efg")
	}
}

func TestReaderMissingBlobFails(t *testing.T) {
	be := localfs.New(t.TempDir())
	if _, err := be.Reader(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing blob file")
	}
}

func TestPrefetchRangeIsNoop(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b1"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	be := localfs.New(dir)
	r, err := be.Reader(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if err := r.PrefetchRange(context.Background(), 0, 1); err != nil {
		t.Fatalf("expected PrefetchRange to always succeed, got: %v", err)
	}
}
