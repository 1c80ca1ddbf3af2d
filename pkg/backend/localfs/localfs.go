// Package localfs implements backend.BlobBackend over blobs stored as plain
// files in a local directory, one file per blob_id. It mirrors the teacher's
// pkg/blobserver/localdisk storage type, adapted from a write-capable
// content-addressed blob store to a read-only ranged-read backend.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nydusgo/rafs/pkg/backend"
)

// Backend reads blobs from files named <dir>/<blob_id>.
type Backend struct {
	dir string
}

// New returns a Backend rooted at dir.
func New(dir string) *Backend {
	return &Backend{dir: dir}
}

func (b *Backend) path(blobID string) string {
	return filepath.Join(b.dir, blobID)
}

func (b *Backend) Reader(ctx context.Context, blobID string) (backend.BlobReader, error) {
	path := b.path(blobID)
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("localfs: stat %s: %w", path, err)
	}
	return &reader{path: path, size: uint64(fi.Size())}, nil
}

func (b *Backend) Shutdown() {}

type reader struct {
	path string
	size uint64
}

func (r *reader) BlobSize(ctx context.Context) (uint64, error) {
	return r.size, nil
}

func (r *reader) ReadAt(ctx context.Context, buf []byte, offset uint64) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("localfs: open %s: %w", r.path, err)
	}
	defer f.Close()

	n, err := f.ReadAt(buf, int64(offset))
	if err != nil {
		return fmt.Errorf("localfs: read %s at %d: %w", r.path, offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("localfs: short read from %s: got %d want %d", r.path, n, len(buf))
	}
	return nil
}

// PrefetchRange is advisory only; the OS page cache is the only prefetch
// mechanism localfs has, so this is a deliberate no-op rather than an
// Unsupported error (unlike memory's test double, a local file can always
// legally accept the hint).
func (r *reader) PrefetchRange(ctx context.Context, offset uint64, length uint32) error {
	return nil
}
