// Package arena implements a fixed-budget pool allocator.
//
// All dynamic memory used by the rendering engine is drawn from a single
// contiguous pool of configurable size. Allocations return opaque offset
// handles rather than raw pointers, so access is bounds-checked and the
// allocator can verify ownership on release. An optional expansion region
// is consulted only when the primary pool is exhausted.
//
// The allocator performs no garbage collection: every block is explicitly
// released by its owner. Releasing a block twice, or releasing memory that
// was never allocated, is a programming defect and panics.
package arena

import (
	"errors"
	"io"
	"fmt"
	"log/slog"
	"sort"
)

// ErrOutOfMemory is returned when neither the primary pool nor the
// expansion region can satisfy an allocation. It is an expected, frequent
// condition on small pools: callers degrade or skip rather than abort.
// The root package re-exports it as picogfx.ErrOutOfMemory.
var ErrOutOfMemory = errors.New("arena: out of memory")

// DefaultAlign is the alignment applied when Alloc is called with align 0.
const DefaultAlign = 4

// Block is an opaque handle to an arena allocation. The zero Block is
// invalid. Blocks are value types; copying one does not duplicate the
// underlying memory or its ownership.
type Block struct {
	pool    int8 // pool index, -1 when invalid
	off     int  // block start including alignment padding
	payload int  // first usable byte
	size    int  // usable bytes
}

// Valid reports whether b refers to a live allocation shape. It does not
// verify the block is still allocated; Release does that.
func (b Block) Valid() bool { return b.pool >= 0 && b.size > 0 }

// Size returns the usable byte length of the block.
func (b Block) Size() int { return b.size }

// span is one region of a pool. Spans partition their pool with no gaps or
// overlaps; adjacent free spans are coalesced on release.
type span struct {
	off  int
	size int
	free bool
}

// Stats describes allocator occupancy.
type Stats struct {
	// PoolSize is the primary pool capacity in bytes.
	PoolSize int
	// ExpandSize is the expansion region capacity in bytes (0 = disabled).
	ExpandSize int
	// Used is the number of bytes currently allocated, including
	// alignment padding.
	Used int
	// Free is the number of bytes currently available across both pools.
	Free int
	// LowWater is the smallest Free value observed since creation.
	LowWater int
	// Allocs counts successful allocations.
	Allocs uint64
	// Fails counts allocations rejected with ErrOutOfMemory.
	Fails uint64
}

// Arena is a fixed-size pool allocator with a first-fit free list.
//
// Arena is not safe for concurrent use: the engine's resource model is a
// single logical draw pass at a time.
type Arena struct {
	pools  [2][]byte
	spans  [2][]span
	stats  Stats
	logger *slog.Logger
}

// Option configures an Arena.
type Option func(*config)

type config struct {
	expandSize int
	logger     *slog.Logger
}

// WithExpandSize enables a secondary expansion region of the given byte
// size, consulted only when the primary pool is exhausted.
func WithExpandSize(n int) Option {
	return func(c *config) { c.expandSize = n }
}

// WithLogger sets the logger used for allocation diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New creates an arena with a primary pool of size bytes.
func New(size int, opts ...Option) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: pool size must be positive, got %d", size)
	}
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.expandSize < 0 {
		return nil, fmt.Errorf("arena: expand size must not be negative, got %d", cfg.expandSize)
	}
	a := &Arena{logger: cfg.logger}
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a.pools[0] = make([]byte, size)
	a.spans[0] = []span{{off: 0, size: size, free: true}}
	total := size
	if cfg.expandSize > 0 {
		a.pools[1] = make([]byte, cfg.expandSize)
		a.spans[1] = []span{{off: 0, size: cfg.expandSize, free: true}}
		total += cfg.expandSize
	}
	a.stats.PoolSize = size
	a.stats.ExpandSize = cfg.expandSize
	a.stats.Free = total
	a.stats.LowWater = total
	return a, nil
}

// Alloc reserves size bytes aligned to align (a power of two; 0 means
// DefaultAlign). It searches the primary pool first and falls back to the
// expansion region. On exhaustion it returns ErrOutOfMemory; the pools are
// left untouched, so previously allocated blocks remain valid.
func (a *Arena) Alloc(size, align int) (Block, error) {
	if size <= 0 {
		return Block{pool: -1}, fmt.Errorf("arena: alloc size must be positive, got %d", size)
	}
	if align == 0 {
		align = DefaultAlign
	}
	if align&(align-1) != 0 {
		return Block{pool: -1}, fmt.Errorf("arena: alignment must be a power of two, got %d", align)
	}
	for pi := range a.pools {
		if a.pools[pi] == nil {
			continue
		}
		if b, ok := a.allocFrom(pi, size, align); ok {
			a.stats.Allocs++
			a.stats.Used += b.payload - b.off + b.size
			a.stats.Free -= b.payload - b.off + b.size
			if a.stats.Free < a.stats.LowWater {
				a.stats.LowWater = a.stats.Free
			}
			return b, nil
		}
	}
	a.stats.Fails++
	a.logger.Debug("arena exhausted", "requested", size, "free", a.stats.Free)
	return Block{pool: -1}, fmt.Errorf("arena: alloc %d bytes: %w", size, ErrOutOfMemory)
}

// allocFrom does a first-fit search over one pool's span list.
func (a *Arena) allocFrom(pi, size, align int) (Block, bool) {
	spans := a.spans[pi]
	for i := range spans {
		s := &spans[i]
		if !s.free {
			continue
		}
		payload := alignUp(s.off, align)
		need := payload - s.off + size
		if need > s.size {
			continue
		}
		b := Block{pool: int8(pi), off: s.off, payload: payload, size: size}
		if need == s.size {
			s.free = false
		} else {
			rest := span{off: s.off + need, size: s.size - need, free: true}
			s.size = need
			s.free = false
			a.spans[pi] = append(spans[:i+1], append([]span{rest}, spans[i+1:]...)...)
		}
		return b, true
	}
	return Block{}, false
}

// Release returns a block to the free list and coalesces it with adjacent
// free spans. Releasing an invalid, unknown, or already-free block is an
// internal-consistency violation and panics.
func (a *Arena) Release(b Block) {
	if !b.Valid() || int(b.pool) >= len(a.pools) || a.pools[b.pool] == nil {
		panic("arena: release of block not allocated from this arena")
	}
	pi := int(b.pool)
	spans := a.spans[pi]
	i := sort.Search(len(spans), func(i int) bool { return spans[i].off >= b.off })
	if i == len(spans) || spans[i].off != b.off {
		panic("arena: release of block not allocated from this arena")
	}
	s := &spans[i]
	if s.free {
		panic("arena: double release")
	}
	s.free = true
	a.stats.Used -= s.size
	a.stats.Free += s.size

	// Coalesce with the next span, then the previous one.
	if i+1 < len(spans) && spans[i+1].free {
		s.size += spans[i+1].size
		spans = append(spans[:i+1], spans[i+2:]...)
	}
	if i > 0 && spans[i-1].free {
		spans[i-1].size += spans[i].size
		spans = append(spans[:i], spans[i+1:]...)
	}
	a.spans[pi] = spans
}

// Bytes returns the usable memory of a block as a slice view into the
// pool. The view stays valid until the block is released.
func (a *Arena) Bytes(b Block) []byte {
	if !b.Valid() || int(b.pool) >= len(a.pools) || a.pools[b.pool] == nil {
		panic("arena: bytes of block not allocated from this arena")
	}
	return a.pools[b.pool][b.payload : b.payload+b.size : b.payload+b.size]
}

// Stats returns a snapshot of allocator occupancy.
func (a *Arena) Stats() Stats { return a.stats }

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}
