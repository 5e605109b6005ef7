package memory

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/wippyai/swiftcall"
)

var _ swiftcall.Memory = Native{}

// Native adapts raw process memory to the swiftcall.Memory interface.
type Native struct{}

func view(addr uintptr, length uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length))
}

func checkAddr(addr uintptr) error {
	if addr == 0 {
		return fmt.Errorf("memory access at null address")
	}
	return nil
}

// Read copies length bytes starting at addr.
func (Native) Read(addr uintptr, length uint32) ([]byte, error) {
	if err := checkAddr(addr); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, view(addr, length))
	return out, nil
}

// Write copies data to addr.
func (Native) Write(addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := checkAddr(addr); err != nil {
		return err
	}
	copy(view(addr, uint32(len(data))), data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (Native) ReadU8(addr uintptr) (uint8, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return view(addr, 1)[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (Native) ReadU16(addr uintptr) (uint16, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(view(addr, 2)), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (Native) ReadU32(addr uintptr) (uint32, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(view(addr, 4)), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (Native) ReadU64(addr uintptr) (uint64, error) {
	if err := checkAddr(addr); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(view(addr, 8)), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (Native) WriteU8(addr uintptr, value uint8) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	view(addr, 1)[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (Native) WriteU16(addr uintptr, value uint16) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(view(addr, 2), value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (Native) WriteU32(addr uintptr, value uint32) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(view(addr, 4), value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (Native) WriteU64(addr uintptr, value uint64) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(view(addr, 8), value)
	return nil
}

// ReadCString reads a NUL-terminated string starting at addr, stopping after
// limit bytes if no terminator is found.
func ReadCString(mem swiftcall.Memory, addr uintptr, limit int) (string, error) {
	if addr == 0 {
		return "", nil
	}
	buf := make([]byte, 0, 32)
	for i := 0; i < limit; i++ {
		c, err := mem.ReadU8(addr + uintptr(i))
		if err != nil {
			return "", err
		}
		if c == 0 {
			return string(buf), nil
		}
		buf = append(buf, c)
	}
	return "", fmt.Errorf("string at %#x exceeds %d bytes", addr, limit)
}
