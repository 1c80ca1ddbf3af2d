package cache

import (
	"context"
	"fmt"

	"github.com/nydusgo/rafs/pkg/backend"
	"github.com/nydusgo/rafs/pkg/chunk"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
	"github.com/nydusgo/rafs/pkg/rafserr"
)

// ReadBackendChunk reads one chunk from reader into chunkBuf, decompressing
// if cki.Compressed, and validating chunkBuf's digest against cki.BlockID if
// validate is set. hook, if non-nil, observes the bytes actually read from
// the backend (compressed or not) before decompression. This is the shared
// implementation of spec.md §4.E "read_backend_chunk", embeddable by any
// BlobCache implementation — both nocache and lrucache use it.
func ReadBackendChunk(
	ctx context.Context,
	reader backend.BlobReader,
	blobSize uint64,
	compressor compress.Algorithm,
	digester digest.Algorithm,
	validate bool,
	cki chunk.Info,
	chunkBuf []byte,
	hook RawHook,
) (int, error) {
	if len(chunkBuf) != int(cki.DecompressSize) {
		return 0, rafserr.Newf(rafserr.InputValidation, "read_backend_chunk",
			"chunk buffer is %d bytes, want %d", len(chunkBuf), cki.DecompressSize)
	}

	offset := cki.CompressOffset
	if cki.Compressed {
		if blobSize < offset {
			return 0, rafserr.Newf(rafserr.BackendIO, "read_backend_chunk",
				"chunk compressed offset %d is past blob size %d", offset, blobSize)
		}
		remaining := blobSize - offset

		cSize := int(cki.CompressSize)
		if compressor == compress.GZip {
			cSize = compress.GzipWorstCaseSize(int(cki.DecompressSize), remaining)
		}
		raw := make([]byte, cSize)
		if err := reader.ReadAt(ctx, raw, offset); err != nil {
			return 0, rafserr.New(rafserr.BackendIO, "read_backend_chunk", err)
		}
		if hook != nil {
			hook(raw)
		}
		if err := compress.Decompress(compressor, chunkBuf, raw); err != nil {
			return 0, rafserr.New(rafserr.Decompression, "read_backend_chunk", err)
		}
	} else {
		if err := reader.ReadAt(ctx, chunkBuf, offset); err != nil {
			return 0, rafserr.New(rafserr.BackendIO, "read_backend_chunk", err)
		}
		if hook != nil {
			hook(chunkBuf)
		}
	}

	if validate && !digest.Verify(digester, chunkBuf, cki.BlockID) {
		return 0, rafserr.Newf(rafserr.DigestMismatch, "read_backend_chunk",
			"chunk %d: digest mismatch", cki.Index)
	}

	return len(chunkBuf), nil
}

// DefaultReadChunks bulk-reads the contiguous compressed range
// [blobOffset, blobOffset+blobSize) covering ckiSet in one backend read,
// then decompresses each chunk into its own buffer. ckiSet must be sorted
// and contiguous and exactly cover that range (spec.md §4.E "read_chunks").
func DefaultReadChunks(
	ctx context.Context,
	reader backend.BlobReader,
	compressor compress.Algorithm,
	digester digest.Algorithm,
	validate bool,
	blobOffset uint64,
	blobSize uint64,
	ckiSet []chunk.Info,
) ([][]byte, error) {
	if len(ckiSet) == 0 {
		return nil, rafserr.New(rafserr.InputValidation, "read_chunks", fmt.Errorf("empty chunk set"))
	}
	if ckiSet[0].CompressOffset != blobOffset {
		return nil, rafserr.Newf(rafserr.InputValidation, "read_chunks",
			"first chunk offset %d does not match blob_offset %d", ckiSet[0].CompressOffset, blobOffset)
	}
	for i := 1; i < len(ckiSet); i++ {
		if !ckiSet[i-1].Contiguous(ckiSet[i]) {
			return nil, rafserr.Newf(rafserr.InputValidation, "read_chunks",
				"chunk set is not sorted/contiguous at index %d", i)
		}
	}
	if ckiSet[len(ckiSet)-1].End() != blobOffset+blobSize {
		return nil, rafserr.Newf(rafserr.InputValidation, "read_chunks",
			"chunk set ends at %d, want %d", ckiSet[len(ckiSet)-1].End(), blobOffset+blobSize)
	}

	cbuf := make([]byte, blobSize)
	if err := reader.ReadAt(ctx, cbuf, blobOffset); err != nil {
		return nil, rafserr.New(rafserr.BackendIO, "read_chunks", err)
	}

	out := make([][]byte, 0, len(ckiSet))
	for _, cki := range ckiSet {
		start := cki.CompressOffset - blobOffset
		raw := cbuf[start : start+uint64(cki.CompressSize)]
		chunkBuf := make([]byte, cki.DecompressSize)

		if cki.Compressed {
			if err := compress.Decompress(compressor, chunkBuf, raw); err != nil {
				return nil, rafserr.New(rafserr.Decompression, "read_chunks", err)
			}
		} else {
			copy(chunkBuf, raw)
		}

		if validate && !digest.Verify(digester, chunkBuf, cki.BlockID) {
			return nil, rafserr.Newf(rafserr.DigestMismatch, "read_chunks",
				"chunk %d: digest mismatch", cki.Index)
		}
		out = append(out, chunkBuf)
	}
	return out, nil
}

// ChunkReaderFunc fills dst (sized exactly to the chunk's decompressed
// length) with that chunk's decompressed, validated bytes.
type ChunkReaderFunc func(ctx context.Context, cki chunk.Info, dst []byte) error

// BatchRead implements the batched read algorithm of spec.md §4.E: a
// zero-copy fast path for the single-whole-chunk case, and a general
// allocate-then-gather-copy path otherwise. readChunk supplies the actual
// per-chunk fetch (straight from the backend for nocache, through the local
// store for lrucache).
func BatchRead(ctx context.Context, ios []IoDescriptor, bufs [][]byte, readChunk ChunkReaderFunc) (int, error) {
	if len(ios) == 0 {
		return 0, rafserr.New(rafserr.InputValidation, "read", fmt.Errorf("ios is empty"))
	}

	d0 := int(ios[0].Chunk.DecompressSize)
	if len(ios) == 1 && len(bufs) == 1 && ios[0].Offset == 0 && len(bufs[0]) >= d0 {
		if !ios[0].UserIO {
			return 0, nil
		}
		if err := readChunk(ctx, ios[0].Chunk, bufs[0][:d0]); err != nil {
			return 0, err
		}
		return d0, nil
	}

	chunks := make([][]byte, 0, len(ios))
	userTotal := 0
	for _, io := range ios {
		if !io.UserIO {
			continue
		}
		buf := make([]byte, io.Chunk.DecompressSize)
		if err := readChunk(ctx, io.Chunk, buf); err != nil {
			return 0, err
		}
		chunks = append(chunks, buf)
		userTotal += int(io.Size)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	return gatherCopy(chunks, bufs, int(ios[0].Offset), userTotal)
}

// gatherCopy copies up to total bytes from the concatenation of src buffers
// into the concatenation of dst buffers, starting destOffset bytes into dst.
// It is the vectored-I/O gather/scatter primitive underlying BatchRead's
// general path (original_source's `copyv`); pure slice arithmetic, so it has
// no natural third-party home — see DESIGN.md.
func gatherCopy(src [][]byte, dst [][]byte, destOffset, total int) (int, error) {
	dBufIdx, dOff := 0, destOffset
	for dBufIdx < len(dst) && dOff >= len(dst[dBufIdx]) {
		dOff -= len(dst[dBufIdx])
		dBufIdx++
	}

	sBufIdx, sOff := 0, 0
	copied := 0
	for copied < total {
		if dBufIdx >= len(dst) {
			return copied, fmt.Errorf("cache: destination buffers exhausted after %d of %d bytes", copied, total)
		}
		if sBufIdx >= len(src) {
			return copied, fmt.Errorf("cache: source chunks exhausted after %d of %d bytes", copied, total)
		}
		d := dst[dBufIdx][dOff:]
		s := src[sBufIdx][sOff:]
		n := len(d)
		if len(s) < n {
			n = len(s)
		}
		if total-copied < n {
			n = total - copied
		}
		copy(d[:n], s[:n])
		copied += n
		dOff += n
		sOff += n
		if dOff >= len(dst[dBufIdx]) {
			dBufIdx++
			dOff = 0
		}
		if sOff >= len(src[sBufIdx]) {
			sBufIdx++
			sOff = 0
		}
	}
	return copied, nil
}
