// Package memory implements an in-memory backend.BlobBackend, used as a test
// fixture the way the teacher's pkg/test package provides an in-memory
// blobserver.Storage for exercising overlay/proxycache without real I/O.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nydusgo/rafs/pkg/backend"
)

// Backend is a fixed set of named byte blobs kept in memory.
type Backend struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	shutdown bool

	// PrefetchDisabled, when true, makes every PrefetchRange call fail
	// with an error, exercising the Unsupported path of spec.md §7.
	PrefetchDisabled bool

	// prefetched records accepted prefetch ranges, for test assertions.
	prefetched []prefetchCall
}

type prefetchCall struct {
	blobID string
	offset uint64
	length uint32
}

// New returns a Backend seeded with blobs.
func New(blobs map[string][]byte) *Backend {
	cp := make(map[string][]byte, len(blobs))
	for k, v := range blobs {
		cp[k] = v
	}
	return &Backend{blobs: cp}
}

// Put adds or replaces a blob.
func (b *Backend) Put(blobID string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[blobID] = data
}

func (b *Backend) Reader(ctx context.Context, blobID string) (backend.BlobReader, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.shutdown {
		return nil, fmt.Errorf("memory: backend is shut down")
	}
	data, ok := b.blobs[blobID]
	if !ok {
		return nil, fmt.Errorf("memory: blob %q not found", blobID)
	}
	return &reader{backend: b, blobID: blobID, data: data}, nil
}

func (b *Backend) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
}

// Prefetched returns the number of ranges accepted by PrefetchRange so far,
// for test assertions.
func (b *Backend) Prefetched() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.prefetched)
}

type reader struct {
	backend *Backend
	blobID  string
	data    []byte
}

func (r *reader) BlobSize(ctx context.Context) (uint64, error) {
	return uint64(len(r.data)), nil
}

func (r *reader) ReadAt(ctx context.Context, buf []byte, offset uint64) error {
	if offset+uint64(len(buf)) > uint64(len(r.data)) {
		return fmt.Errorf("memory: read past end of blob %q: offset %d len %d size %d",
			r.blobID, offset, len(buf), len(r.data))
	}
	copy(buf, r.data[offset:offset+uint64(len(buf))])
	return nil
}

func (r *reader) PrefetchRange(ctx context.Context, offset uint64, length uint32) error {
	if r.backend.PrefetchDisabled {
		return fmt.Errorf("memory: prefetch disabled")
	}
	r.backend.mu.Lock()
	r.backend.prefetched = append(r.backend.prefetched, prefetchCall{r.blobID, offset, length})
	r.backend.mu.Unlock()
	return nil
}
