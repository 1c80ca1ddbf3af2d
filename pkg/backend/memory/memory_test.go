package memory_test

import (
	"context"
	"testing"

	"github.com/nydusgo/rafs/pkg/backend/memory"
)

func TestReadAtAndBlobSize(t *testing.T) {
	be := memory.New(map[string][]byte{"b1": []byte("0123456789")})
	r, err := be.Reader(context.Background(), "b1")
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

	buf := make([]byte, 4)
	if err := r.ReadAt(context.Background(), buf, 3); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf) != "3456" {
		t.Fatalf("buf = %q, want %q", buf, "3456")
	}
}

func TestReadAtPastEndFails(t *testing.T) {
	be := memory.New(map[string][]byte{"b1": []byte("short")})
	r, _ := be.Reader(context.Background(), "b1")
	buf := make([]byte, 100)
	if err := r.ReadAt(context.Background(), buf, 0); err == nil {
		t.Fatal("expected error reading past end of blob")
	}
}

func TestShutdownRejectsFurtherReaders(t *testing.T) {
	be := memory.New(map[string][]byte{"b1": []byte("data")})
	be.Shutdown()
	if _, err := be.Reader(context.Background(), "b1"); err == nil {
		t.Fatal("expected error obtaining a reader after shutdown")
	}
}

func TestPrefetchDisabled(t *testing.T) {
	be := memory.New(map[string][]byte{"b1": []byte("data")})
	be.PrefetchDisabled = true
	r, _ := be.Reader(context.Background(), "b1")
	if err := r.PrefetchRange(context.Background(), 0, 1); err == nil {
		t.Fatal("expected PrefetchRange to fail when disabled")
	}
}
