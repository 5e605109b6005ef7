package swiftcall

import "fmt"

// WordSize is the width of one call-site slot in bytes.
const WordSize = 8

// Memory represents native process memory addressed by raw pointers.
type Memory interface {
	Read(addr uintptr, length uint32) ([]byte, error)
	Write(addr uintptr, data []byte) error
	ReadU8(addr uintptr) (uint8, error)
	ReadU16(addr uintptr) (uint16, error)
	ReadU32(addr uintptr) (uint32, error)
	ReadU64(addr uintptr) (uint64, error)
	WriteU8(addr uintptr, value uint8) error
	WriteU16(addr uintptr, value uint16) error
	WriteU32(addr uintptr, value uint32) error
	WriteU64(addr uintptr, value uint64) error
}

// Allocator hands out native memory that outlives a single call and is never
// moved by the Go garbage collector.
type Allocator interface {
	Alloc(size, align uint32) (uintptr, error)
}

// SlotKind discriminates the two kinds of call-site slot.
type SlotKind uint8

const (
	SlotInt  SlotKind = iota // 8-byte unsigned integer
	SlotAddr                 // opaque memory address
)

func (k SlotKind) String() string {
	switch k {
	case SlotInt:
		return "u64"
	case SlotAddr:
		return "ptr"
	default:
		return fmt.Sprintf("slot(%d)", uint8(k))
	}
}

// Slot is one 8-byte call-site storage unit: either an integer or an address.
// The zero value is the integer 0.
type Slot struct {
	bits uint64
	kind SlotKind
}

// IntSlot returns an integer slot.
func IntSlot(v uint64) Slot {
	return Slot{kind: SlotInt, bits: v}
}

// AddrSlot returns an address slot.
func AddrSlot(p uintptr) Slot {
	return Slot{kind: SlotAddr, bits: uint64(p)}
}

// Kind reports which variant the slot holds.
func (s Slot) Kind() SlotKind { return s.kind }

// Uint64 returns the raw 64-bit contents regardless of kind.
func (s Slot) Uint64() uint64 { return s.bits }

// Word returns the contents as a machine word for the native call.
func (s Slot) Word() uintptr { return uintptr(s.bits) }

// Addr returns the address held by an address slot.
func (s Slot) Addr() (uintptr, bool) {
	if s.kind != SlotAddr {
		return 0, false
	}
	return uintptr(s.bits), true
}

func (s Slot) String() string {
	switch s.kind {
	case SlotInt:
		return fmt.Sprintf("u64(%d)", s.bits)
	case SlotAddr:
		return fmt.Sprintf("ptr(%#x)", s.bits)
	default:
		return fmt.Sprintf("slot(%d:%#x)", uint8(s.kind), s.bits)
	}
}
