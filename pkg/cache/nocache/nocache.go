// Package nocache implements cache.BlobCache/BlobCacheMgr with no local
// caching at all: every read goes straight to the backend. It is a direct
// port of original_source's storage/src/cache/dummycache.rs, kept as the
// reference implementation against which lrucache's behavior is checked.
package nocache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nydusgo/rafs/pkg/backend"
	"github.com/nydusgo/rafs/pkg/cache"
	"github.com/nydusgo/rafs/pkg/chunk"
	"github.com/nydusgo/rafs/pkg/compress"
	"github.com/nydusgo/rafs/pkg/digest"
	"github.com/nydusgo/rafs/pkg/rafserr"
)

// Config controls a Mgr's behavior, mirroring DummyCacheMgr's
// cached/prefetch/validate fields.
type Config struct {
	// Cached is the static answer nocache gives for IsChunkReady. dummycache.rs
	// hardcodes this per-instance rather than tracking real residency, since
	// nocache never actually retains anything.
	Cached bool

	// Prefetch enables Prefetch; when false, Prefetch always fails
	// Unsupported. StopPrefetch is a no-op either way.
	Prefetch bool

	// Validate enables per-chunk digest verification on every read.
	Validate bool

	Logger *zap.SugaredLogger
}

// Mgr is a cache.BlobCacheMgr that hands out nocache BlobCache instances,
// one per blob_id, without pooling or retaining any decompressed bytes
// across calls.
type Mgr struct {
	backend backend.BlobBackend
	cfg     Config

	mu     sync.Mutex
	caches map[string]*blobCache
}

var _ cache.BlobCacheMgr = (*Mgr)(nil)

// New returns a Mgr reading through be.
func New(be backend.BlobBackend, cfg Config) *Mgr {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Mgr{
		backend: be,
		cfg:     cfg,
		caches:  make(map[string]*blobCache),
	}
}

func (m *Mgr) Init(ctx context.Context) error {
	m.cfg.Logger.Debugw("nocache: init", "prefetch", m.cfg.Prefetch, "validate", m.cfg.Validate)
	return nil
}

func (m *Mgr) Destroy() {
	m.backend.Shutdown()
}

func (m *Mgr) Backend() backend.BlobBackend {
	return m.backend
}

func (m *Mgr) GetBlobCache(ctx context.Context, blobID string, compressor compress.Algorithm, digester digest.Algorithm) (cache.BlobCache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bc, ok := m.caches[blobID]; ok {
		return bc, nil
	}
	reader, err := m.backend.Reader(ctx, blobID)
	if err != nil {
		return nil, rafserr.New(rafserr.BackendIO, "get_blob_cache", err)
	}
	bc := &blobCache{
		mgr:        m,
		blobID:     blobID,
		reader:     reader,
		compressor: compressor,
		digester:   digester,
	}
	m.caches[blobID] = bc
	return bc, nil
}

// blobCache is DummyCache: it performs no caching and always reads through
// to the backend.
type blobCache struct {
	mgr        *Mgr
	blobID     string
	reader     backend.BlobReader
	compressor compress.Algorithm
	digester   digest.Algorithm
}

var _ cache.BlobCache = (*blobCache)(nil)

func (c *blobCache) BlobSize(ctx context.Context) (uint64, error) {
	return c.reader.BlobSize(ctx)
}

func (c *blobCache) Compressor() compress.Algorithm { return c.compressor }
func (c *blobCache) Digester() digest.Algorithm     { return c.digester }

// IsChunkReady always returns the manager's static Cached setting, mirroring
// dummycache.rs's is_chunk_ready (which never inspects actual residency).
func (c *blobCache) IsChunkReady(ck chunk.Info) bool {
	return c.mgr.cfg.Cached
}

func (c *blobCache) Prefetch(ctx context.Context, ranges []cache.PrefetchRange, ios []cache.IoDescriptor) (int, error) {
	if !c.mgr.cfg.Prefetch {
		return 0, rafserr.New(rafserr.Unsupported, "prefetch", nil)
	}
	accepted := 0
	for _, r := range ranges {
		if err := c.reader.PrefetchRange(ctx, r.Offset, r.Length); err != nil {
			c.mgr.cfg.Logger.Warnw("nocache: prefetch range rejected", "blob", c.blobID, "err", err)
			continue
		}
		accepted++
	}
	for _, io := range ios {
		if err := c.reader.PrefetchRange(ctx, io.Chunk.CompressOffset, io.Chunk.CompressSize); err != nil {
			c.mgr.cfg.Logger.Warnw("nocache: prefetch chunk rejected", "blob", c.blobID, "chunk", io.Chunk.Index, "err", err)
			continue
		}
		accepted++
	}
	return accepted, nil
}

func (c *blobCache) StopPrefetch(ctx context.Context) error {
	return nil
}

func (c *blobCache) Read(ctx context.Context, ios []cache.IoDescriptor, bufs [][]byte) (int, error) {
	blobSize, err := c.reader.BlobSize(ctx)
	if err != nil {
		return 0, rafserr.New(rafserr.BackendIO, "read", err)
	}
	return cache.BatchRead(ctx, ios, bufs, func(ctx context.Context, cki chunk.Info, dst []byte) error {
		_, err := cache.ReadBackendChunk(ctx, c.reader, blobSize, c.compressor, c.digester, c.mgr.cfg.Validate, cki, dst, nil)
		return err
	})
}

func (c *blobCache) ReadChunks(ctx context.Context, blobOffset uint64, blobSize uint64, ckiSet []chunk.Info) ([][]byte, error) {
	return cache.DefaultReadChunks(ctx, c.reader, c.compressor, c.digester, c.mgr.cfg.Validate, blobOffset, blobSize, ckiSet)
}

func (c *blobCache) ReadBackendChunk(ctx context.Context, cki chunk.Info, chunkBuf []byte, hook cache.RawHook) (int, error) {
	blobSize, err := c.reader.BlobSize(ctx)
	if err != nil {
		return 0, rafserr.New(rafserr.BackendIO, "read_backend_chunk", err)
	}
	return cache.ReadBackendChunk(ctx, c.reader, blobSize, c.compressor, c.digester, c.mgr.cfg.Validate, cki, chunkBuf, hook)
}
