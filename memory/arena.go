package memory

import (
	"sync"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
)

// DefaultChunkSize is the mapping size used when NewArena is given 0.
const DefaultChunkSize = 64 * 1024

var _ swiftcall.Allocator = (*Arena)(nil)

// Arena is a bump allocator over anonymous read-write mappings.
// Individual allocations are never freed; Close releases everything.
// Thread-safe.
type Arena struct {
	chunks    [][]byte
	current   []byte
	offset    int
	chunkSize int
	mu        sync.Mutex
	closed    bool
}

// NewArena creates an arena mapping chunkSize bytes at a time.
func NewArena(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	pageSize := unix.Getpagesize()
	chunkSize = (chunkSize + pageSize - 1) &^ (pageSize - 1)
	return &Arena{chunkSize: chunkSize}
}

// Alloc returns zeroed memory of at least size bytes aligned to align.
// Allocations larger than the chunk size get a dedicated mapping.
func (a *Arena) Alloc(size, align uint32) (uintptr, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseAllocate, "alignment must be a power of two")
	}
	if size == 0 {
		size = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, errors.Closed(errors.PhaseAllocate, "arena")
	}

	if a.current != nil {
		base := uintptr(unsafe.Pointer(&a.current[0]))
		start := alignUp(base+uintptr(a.offset), uintptr(align)) - base
		if int(start)+int(size) <= len(a.current) {
			a.offset = int(start) + int(size)
			return base + start, nil
		}
	}

	mapSize := a.chunkSize
	if int(size) > mapSize {
		// Dedicated mapping; page alignment covers any sane align.
		mapSize = int(alignUp(uintptr(size), uintptr(unix.Getpagesize())))
		chunk, err := mapAnon(mapSize)
		if err != nil {
			return 0, errors.AllocationFailed(errors.PhaseAllocate, size, align, err)
		}
		a.chunks = append(a.chunks, chunk)
		return uintptr(unsafe.Pointer(&chunk[0])), nil
	}

	chunk, err := mapAnon(mapSize)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseAllocate, size, align, err)
	}
	a.chunks = append(a.chunks, chunk)
	a.current = chunk
	a.offset = int(size)
	return uintptr(unsafe.Pointer(&chunk[0])), nil
}

// Close unmaps every chunk. Addresses handed out become invalid.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var err error
	for _, chunk := range a.chunks {
		err = multierr.Append(err, unix.Munmap(chunk))
	}
	a.chunks = nil
	a.current = nil
	return err
}

func mapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
