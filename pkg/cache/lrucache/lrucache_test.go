package lrucache_test

import (
	"context"
	"testing"

	"github.com/nydusgo/rafs/pkg/backend/memory"
	"github.com/nydusgo/rafs/pkg/cache"
	"github.com/nydusgo/rafs/pkg/cache/lrucache"
	"github.com/nydusgo/rafs/pkg/chunk"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
)

func oneChunkBlob(payload []byte) ([]byte, chunk.Info) {
	return payload, chunk.Info{
		Index:          0,
		BlockID:        digest.Sum(digest.SHA256, payload),
		CompressOffset: 0,
		CompressSize:   uint32(len(payload)),
		DecompressSize: uint32(len(payload)),
	}
}

func TestReadPopulatesCacheAndIsChunkReady(t *testing.T) {
	payload := []byte("cache me please")
	blobBytes, cki := oneChunkBlob(payload)
	be := memory.New(map[string][]byte{"b1": blobBytes})
	mgr := lrucache.New(be, lrucache.Config{MaxEntries: 8, Validate: true})

	bc, err := mgr.GetBlobCache(context.Background(), "b1", compress.None, digest.SHA256)
	if err != nil {
		t.Fatalf("GetBlobCache: %v", err)
	}
	if bc.IsChunkReady(cki) {
		t.Fatal("expected chunk not ready before first read")
	}

	buf := make([]byte, len(payload))
	n, err := bc.Read(context.Background(), []cache.IoDescriptor{
		{Chunk: cki, Offset: 0, Size: cki.DecompressSize, UserIO: true},
	}, [][]byte{buf})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(payload) || string(buf) != string(payload) {
		t.Fatalf("Read returned %d bytes %q, want %q", n, buf, payload)
	}
	if !bc.IsChunkReady(cki) {
		t.Fatal("expected chunk ready after first read populated the cache")
	}
}

func TestReadBackendChunkCachesForSubsequentReads(t *testing.T) {
	payload := []byte("second path")
	blobBytes, cki := oneChunkBlob(payload)
	be := memory.New(map[string][]byte{"b1": blobBytes})
	mgr := lrucache.New(be, lrucache.Config{MaxEntries: 8})

	bc, err := mgr.GetBlobCache(context.Background(), "b1", compress.None, digest.SHA256)
	if err != nil {
		t.Fatalf("GetBlobCache: %v", err)
	}

	buf := make([]byte, len(payload))
	if _, err := bc.ReadBackendChunk(context.Background(), cki, buf, nil); err != nil {
		t.Fatalf("ReadBackendChunk: %v", err)
	}
	if !bc.IsChunkReady(cki) {
		t.Fatal("expected ReadBackendChunk to populate the cache")
	}

	// A second ReadBackendChunk for the same chunk must be served from the
	// now-populated cache: shutting down the backend must not matter.
	be.Shutdown()
	buf2 := make([]byte, len(payload))
	if _, err := bc.ReadBackendChunk(context.Background(), cki, buf2, nil); err != nil {
		t.Fatalf("ReadBackendChunk (cached): %v", err)
	}
	if string(buf2) != string(payload) {
		t.Fatalf("buf2 = %q, want %q", buf2, payload)
	}
}

func TestPrefetchDisabledReturnsUnsupported(t *testing.T) {
	blobBytes, _ := oneChunkBlob([]byte("x"))
	be := memory.New(map[string][]byte{"b1": blobBytes})
	mgr := lrucache.New(be, lrucache.Config{})
	bc, _ := mgr.GetBlobCache(context.Background(), "b1", compress.None, digest.SHA256)

	if _, err := bc.Prefetch(context.Background(), nil, nil); err == nil {
		t.Fatal("expected Unsupported error when prefetch disabled")
	}
}
