// Package compress implements the codec abstraction over chunk payloads:
// compressing data on the way into a blob and decompressing it on the way
// out. Callers never see a partially-decompressed buffer: Decompress either
// fills dst completely or returns an error.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Algorithm identifies a compression codec.
type Algorithm string

const (
	// None means chunk payloads are stored uncompressed.
	None Algorithm = "none"
	// GZip is the standard library-compatible gzip codec.
	GZip Algorithm = "gzip"
	// Zstd is the default RAFS compressor.
	Zstd Algorithm = "zstd"
)

func (alg Algorithm) Valid() bool {
	switch alg {
	case None, GZip, Zstd:
		return true
	default:
		return false
	}
}

func (alg Algorithm) String() string {
	if alg == "" {
		return "<invalid-compress-algorithm>"
	}
	return string(alg)
}

var zstdEncoder, _ = zstd.NewWriter(nil)

// Compress appends the compressed form of src to dst and returns it. It is
// used only by ambient tooling (tests, fixture generation) — the merger never
// rewrites blob content per spec.md §1 Non-goals.
func Compress(alg Algorithm, dst, src []byte) ([]byte, error) {
	switch alg {
	case None:
		return append(dst, src...), nil
	case GZip:
		buf := bytes.NewBuffer(dst)
		w := gzip.NewWriter(buf)
		if _, err := w.Write(src); err != nil {
			return nil, fmt.Errorf("compress: gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("compress: gzip close: %w", err)
		}
		return buf.Bytes(), nil
	case Zstd:
		return zstdEncoder.EncodeAll(src, dst), nil
	default:
		return nil, fmt.Errorf("compress: unsupported algorithm %q", alg)
	}
}

// Decompress decompresses src (compressed with alg) into dst. dst must be
// sized exactly to the expected decompressed length, matching §4.E's
// "validate length == decompress_size" step. For None and Zstd a short or
// long result is an error. For GZip a short result is an error; decoding
// stops once dst is full, so a stream longer than dst is not detected.
func Decompress(alg Algorithm, dst, src []byte) error {
	switch alg {
	case None:
		if len(src) != len(dst) {
			return fmt.Errorf("compress: uncompressed length mismatch: got %d want %d", len(src), len(dst))
		}
		copy(dst, src)
		return nil
	case GZip:
		r, err := gzip.NewReader(bytes.NewReader(src))
		if err != nil {
			return fmt.Errorf("compress: gzip reader: %w", err)
		}
		defer r.Close()
		n, err := io.ReadFull(r, dst)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("compress: gzip decompress: %w", err)
		}
		if n != len(dst) {
			return fmt.Errorf("compress: gzip decompressed %d bytes, want %d", n, len(dst))
		}
		return nil
	case Zstd:
		d, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("compress: zstd reader: %w", err)
		}
		defer d.Close()
		out, err := d.DecodeAll(src, dst[:0])
		if err != nil {
			return fmt.Errorf("compress: zstd decompress: %w", err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("compress: zstd decompressed %d bytes, want %d", len(out), len(dst))
		}
		if len(dst) > 0 && &out[0] != &dst[0] {
			copy(dst, out)
		}
		return nil
	default:
		return fmt.Errorf("compress: unsupported algorithm %q", alg)
	}
}

// GzipWorstCaseSize estimates the scratch buffer size needed to hold
// compressed gzip data that decompresses to decompressSize, bounded by the
// number of bytes remaining in the blob from the chunk's offset. Mirrors
// original_source storage/src/cache/mod.rs's
// compress::compute_compressed_gzip_size call inside read_backend_chunk.
func GzipWorstCaseSize(decompressSize int, remainingInBlob uint64) int {
	// RFC 1952 gzip framing overhead plus deflate's documented worst-case
	// expansion (5 bytes per 16KB block, plus the stored-block header).
	blocks := decompressSize/16384 + 1
	worst := decompressSize + blocks*5 + 18
	if uint64(worst) > remainingInBlob {
		if remainingInBlob > uint64(^uint(0)>>1) {
			return int(^uint(0) >> 1)
		}
		return int(remainingInBlob)
	}
	return worst
}
