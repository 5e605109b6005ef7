package trampoline

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Page is one mapped code page. Code is the address callers execute; Writable
// is the view the emitter writes through. Both may be the same mapping.
type Page struct {
	Writable []byte
	Code     uintptr
	Size     int

	exec []byte
}

// PageSource maps and unmaps code pages.
type PageSource interface {
	Map(size int) (*Page, error)
	Unmap(p *Page) error
}

// CacheFlusher makes freshly written code visible to instruction fetch.
type CacheFlusher interface {
	FlushCache(addr uintptr, size int) error
}

// NopFlusher is the CacheFlusher for architectures with coherent
// instruction caches.
type NopFlusher struct{}

// FlushCache does nothing.
func (NopFlusher) FlushCache(uintptr, int) error { return nil }

// AnonSource maps private anonymous read-write-execute pages.
type AnonSource struct{}

// Map maps one RWX page of size bytes.
func (AnonSource) Map(size int) (*Page, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return &Page{
		Writable: mem,
		Code:     uintptr(unsafe.Pointer(&mem[0])),
		Size:     size,
	}, nil
}

// Unmap releases the page.
func (AnonSource) Unmap(p *Page) error {
	return unix.Munmap(p.Writable)
}
