package nocache_test

import (
	"context"
	"testing"

	"github.com/nydusgo/rafs/pkg/backend/memory"
	"github.com/nydusgo/rafs/pkg/cache"
	"github.com/nydusgo/rafs/pkg/cache/nocache"
	"github.com/nydusgo/rafs/pkg/chunk"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
	"github.com/nydusgo/rafs/pkg/rafserr"
)

func buildBlob(t *testing.T, payloads ...[]byte) ([]byte, []chunk.Info) {
	t.Helper()
	var blobBytes []byte
	var chunks []chunk.Info
	for i, p := range payloads {
		offset := uint64(len(blobBytes))
		blobBytes = append(blobBytes, p...)
		chunks = append(chunks, chunk.Info{
			Index:          uint32(i),
			BlockID:        digest.Sum(digest.SHA256, p),
			CompressOffset: offset,
			CompressSize:   uint32(len(p)),
			DecompressSize: uint32(len(p)),
			Compressed:     false,
		})
	}
	return blobBytes, chunks
}

func newMgr(t *testing.T, blobID string, blobBytes []byte, cfg nocache.Config) (cache.BlobCache, *memory.Backend) {
	t.Helper()
	be := memory.New(map[string][]byte{blobID: blobBytes})
	mgr := nocache.New(be, cfg)
	bc, err := mgr.GetBlobCache(context.Background(), blobID, compress.None, digest.SHA256)
	if err != nil {
		t.Fatalf("GetBlobCache: %v", err)
	}
	return bc, be
}

func TestReadZeroCopyFastPath(t *testing.T) {
	blobBytes, chunks := buildBlob(t, []byte("hello chunk zero"))
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{Validate: true})

	buf := make([]byte, int(chunks[0].DecompressSize)+32)
	n, err := bc.Read(context.Background(), []cache.IoDescriptor{
		{Chunk: chunks[0], Offset: 0, Size: chunks[0].DecompressSize, UserIO: true},
	}, [][]byte{buf})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != int(chunks[0].DecompressSize) {
		t.Fatalf("n = %d, want %d", n, chunks[0].DecompressSize)
	}
	if string(buf[:n]) != "hello chunk zero" {
		t.Fatalf("buf = %q, want %q", buf[:n], "hello chunk zero")
	}
}

func TestReadGatherCopyMultiChunk(t *testing.T) {
	blobBytes, chunks := buildBlob(t, []byte("AAAA"), []byte("BBBBB"), []byte("CC"))
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{Validate: true})

	ios := []cache.IoDescriptor{
		{Chunk: chunks[0], Offset: 0, Size: chunks[0].DecompressSize, UserIO: true},
		{Chunk: chunks[1], Offset: chunks[0].DecompressSize, Size: chunks[1].DecompressSize, UserIO: true},
		{Chunk: chunks[2], Offset: chunks[0].DecompressSize + chunks[1].DecompressSize, Size: chunks[2].DecompressSize, UserIO: true},
	}
	buf := make([]byte, 4+5+2)
	n, err := bc.Read(context.Background(), ios, [][]byte{buf})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := "AAAABBBBBCC"
	if n != len(want) {
		t.Fatalf("n = %d, want %d", n, len(want))
	}
	if string(buf) != want {
		t.Fatalf("buf = %q, want %q", buf, want)
	}
}

func TestReadSkipsNonUserIO(t *testing.T) {
	blobBytes, chunks := buildBlob(t, []byte("only"))
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{Validate: true})

	buf := make([]byte, 64)
	n, err := bc.Read(context.Background(), []cache.IoDescriptor{
		{Chunk: chunks[0], Offset: 0, Size: chunks[0].DecompressSize, UserIO: false},
	}, [][]byte{buf})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0 for non-user-io descriptor", n)
	}
}

func TestReadValidateDigestMismatch(t *testing.T) {
	blobBytes, chunks := buildBlob(t, []byte("corrupt me"))
	blobBytes[0] ^= 0xFF // fault-inject a bit flip into the backend's stored bytes
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{Validate: true})

	buf := make([]byte, chunks[0].DecompressSize)
	_, err := bc.Read(context.Background(), []cache.IoDescriptor{
		{Chunk: chunks[0], Offset: 0, Size: chunks[0].DecompressSize, UserIO: true},
	}, [][]byte{buf})
	if err == nil {
		t.Fatal("expected DigestMismatch error, got nil")
	}
	if !rafserr.New(rafserr.DigestMismatch, "", nil).Is(err) && !isDigestMismatch(err) {
		t.Fatalf("expected DigestMismatch error, got: %v", err)
	}
}

func isDigestMismatch(err error) bool {
	re, ok := err.(*rafserr.Error)
	return ok && re.Kind == rafserr.DigestMismatch
}

func TestIsChunkReadyReflectsStaticConfig(t *testing.T) {
	blobBytes, chunks := buildBlob(t, []byte("x"))
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{Cached: true})
	if !bc.IsChunkReady(chunks[0]) {
		t.Fatal("expected IsChunkReady true when Cached=true")
	}

	bc2, _ := newMgr(t, "b2", blobBytes, nocache.Config{Cached: false})
	if bc2.IsChunkReady(chunks[0]) {
		t.Fatal("expected IsChunkReady false when Cached=false")
	}
}

func TestPrefetchDisabledByDefault(t *testing.T) {
	blobBytes, _ := buildBlob(t, []byte("x"))
	bc, _ := newMgr(t, "b1", blobBytes, nocache.Config{})
	_, err := bc.Prefetch(context.Background(), []cache.PrefetchRange{{Offset: 0, Length: 1}}, nil)
	if err == nil {
		t.Fatal("expected Unsupported error when prefetch disabled")
	}
}

func TestPrefetchAccepted(t *testing.T) {
	blobBytes, _ := buildBlob(t, []byte("x"))
	bc, be := newMgr(t, "b1", blobBytes, nocache.Config{Prefetch: true})
	n, err := bc.Prefetch(context.Background(), []cache.PrefetchRange{{Offset: 0, Length: 1}}, nil)
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if be.Prefetched() != 1 {
		t.Fatalf("backend recorded %d prefetch calls, want 1", be.Prefetched())
	}
}
