//go:build linux

package trampoline

import (
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// MemfdSource maps every page twice from an anonymous memfd: a read-write
// view for writing code and a read-execute view for running it.
type MemfdSource struct{}

// Map creates a memfd of size bytes and maps both views.
func (MemfdSource) Map(size int) (page *Page, err error) {
	fd, err := unix.MemfdCreate("swiftcall-trampolines", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	// The mappings keep the file alive.
	defer func() { err = multierr.Append(err, unix.Close(fd)) }()

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, err
	}

	rw, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	rx, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_EXEC, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Munmap(rw)
		return nil, err
	}

	return &Page{
		Writable: rw,
		Code:     uintptr(unsafe.Pointer(&rx[0])),
		Size:     size,
		exec:     rx,
	}, nil
}

// Unmap releases both views.
func (MemfdSource) Unmap(p *Page) error {
	return multierr.Append(unix.Munmap(p.Writable), unix.Munmap(p.exec))
}

// DefaultPageSource returns the page source used when none is configured.
func DefaultPageSource() PageSource {
	return MemfdSource{}
}
