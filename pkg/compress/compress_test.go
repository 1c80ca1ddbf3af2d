package compress_test

import (
	"bytes"
	"testing"

	"github.com/nydusgo/rafs/pkg/compress"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("payload-"), 1024)
	for _, alg := range []compress.Algorithm{compress.None, compress.GZip, compress.Zstd} {
		compressed, err := compress.Compress(alg, nil, src)
		if err != nil {
			t.Fatalf("%s: Compress: %v", alg, err)
		}
		dst := make([]byte, len(src))
		if err := compress.Decompress(alg, dst, compressed); err != nil {
			t.Fatalf("%s: Decompress: %v", alg, err)
		}
		if !bytes.Equal(dst, src) {
			t.Fatalf("%s: round trip mismatch", alg)
		}
	}
}

func TestDecompressRejectsLengthMismatch(t *testing.T) {
	src := []byte("twelve bytes")
	compressed, err := compress.Compress(compress.Zstd, nil, src)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	dst := make([]byte, len(src)+1)
	if err := compress.Decompress(compress.Zstd, dst, compressed); err == nil {
		t.Fatal("expected error for decompressed-length mismatch")
	}
}

func TestGzipWorstCaseSizeClampsToRemaining(t *testing.T) {
	const decompressSize = 1 << 20
	got := compress.GzipWorstCaseSize(decompressSize, 100)
	if got != 100 {
		t.Fatalf("got %d, want clamp to remainingInBlob=100", got)
	}

	unclamped := compress.GzipWorstCaseSize(100, 1<<30)
	if unclamped <= 100 {
		t.Fatalf("expected worst-case estimate > decompressSize, got %d", unclamped)
	}
}
