package trampoline

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/wippyai/swiftcall/errors"
)

// CodeAlign is the alignment of every region handed out by a Pool.
const CodeAlign = 16

// Region is a slice of a code page reserved for one adapter.
type Region struct {
	page   *Page
	Addr   uintptr
	Size   int
	offset int
}

// Option configures a Pool.
type Option func(*Pool)

// WithPageSource sets where pages come from.
func WithPageSource(src PageSource) Option {
	return func(p *Pool) { p.source = src }
}

// WithPageSize sets the size of each page. It is rounded up to the system
// page size.
func WithPageSize(size int) Option {
	return func(p *Pool) { p.pageSize = size }
}

// WithCacheFlusher sets the instruction cache maintenance hook.
func WithCacheFlusher(f CacheFlusher) Option {
	return func(p *Pool) { p.flusher = f }
}

// Pool is a bump allocator over executable pages. Pages are only released by
// Close. Thread-safe.
type Pool struct {
	source   PageSource
	flusher  CacheFlusher
	pages    []*Page
	cursor   int
	pageSize int
	mu       sync.Mutex
	closed   bool
}

// NewPool creates a pool. No memory is mapped until the first Allocate.
func NewPool(opts ...Option) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(p)
	}
	if p.source == nil {
		p.source = DefaultPageSource()
	}
	if p.flusher == nil {
		p.flusher = NopFlusher{}
	}
	sys := unix.Getpagesize()
	if p.pageSize <= 0 {
		p.pageSize = sys
	}
	p.pageSize = (p.pageSize + sys - 1) &^ (sys - 1)
	return p
}

// PageSize returns the size of each page.
func (p *Pool) PageSize() int {
	return p.pageSize
}

// SetCacheFlusher replaces the cache maintenance hook. It exists because the
// arm64 flusher is itself code living in the pool.
func (p *Pool) SetCacheFlusher(f CacheFlusher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f == nil {
		f = NopFlusher{}
	}
	p.flusher = f
}

// Allocate reserves size bytes of code memory. A request that does not fit in
// the rest of the current page opens a new page.
func (p *Pool) Allocate(size int) (Region, error) {
	if size <= 0 {
		return Region{}, errors.InvalidInput(errors.PhaseAllocate, fmt.Sprintf("invalid trampoline size %d", size))
	}
	if size > p.pageSize {
		return Region{}, errors.New(errors.PhaseAllocate, errors.KindAllocation).
			Detail("trampoline of %d bytes exceeds page size %d", size, p.pageSize).
			Value(size).
			Build()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Region{}, errors.Closed(errors.PhaseAllocate, "trampoline pool")
	}

	if len(p.pages) == 0 || p.cursor+size > p.pageSize {
		page, err := p.source.Map(p.pageSize)
		if err != nil {
			return Region{}, errors.AllocationFailed(errors.PhaseAllocate, uint32(p.pageSize), CodeAlign, err)
		}
		p.pages = append(p.pages, page)
		p.cursor = 0
		Logger().Debug("mapped trampoline page",
			zap.Uintptr("code", page.Code),
			zap.Int("size", page.Size),
			zap.Int("pages", len(p.pages)))
	}

	page := p.pages[len(p.pages)-1]
	r := Region{
		page:   page,
		Addr:   page.Code + uintptr(p.cursor),
		Size:   size,
		offset: p.cursor,
	}
	p.cursor = (p.cursor + size + CodeAlign - 1) &^ (CodeAlign - 1)
	if p.cursor > p.pageSize {
		p.cursor = p.pageSize
	}
	return r, nil
}

// Write copies code into a region and flushes the instruction cache over it.
func (p *Pool) Write(r Region, code []byte) error {
	if r.page == nil {
		return errors.InvalidInput(errors.PhaseAllocate, "write to unallocated region")
	}
	if len(code) > r.Size {
		return errors.New(errors.PhaseAllocate, errors.KindOutOfBounds).
			Detail("code of %d bytes does not fit region of %d", len(code), r.Size).
			Value(len(code)).
			Build()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.Closed(errors.PhaseAllocate, "trampoline pool")
	}
	copy(r.page.Writable[r.offset:], code)
	flusher := p.flusher
	p.mu.Unlock()

	if err := flusher.FlushCache(r.Addr, len(code)); err != nil {
		return errors.Wrap(errors.PhaseAllocate, errors.KindForeignFailure, err, "flush instruction cache")
	}
	return nil
}

// Close unmaps every page. Code handed out becomes invalid.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	for _, page := range p.pages {
		err = multierr.Append(err, p.source.Unmap(page))
	}
	p.pages = nil
	return err
}

// Pages returns the number of mapped pages.
func (p *Pool) Pages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}
