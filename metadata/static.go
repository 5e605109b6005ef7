package metadata

import (
	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
)

var (
	_ TypeMetadata   = (*StaticMetadata)(nil)
	_ ValueWitnesses = (*MemoryWitnesses)(nil)
	_ HeapInspector  = (*MemoryHeap)(nil)
)

// StaticMetadata is a TypeMetadata whose fields are known up front.
type StaticMetadata struct {
	Witnesses  ValueWitnesses
	Name       string
	TypeLayout Layout
	Addr       uintptr
	Class      bool
}

// Address returns the configured metadata address.
func (m *StaticMetadata) Address() uintptr { return m.Addr }

// Layout returns the configured size, stride and alignment.
func (m *StaticMetadata) Layout() Layout { return m.TypeLayout }

// ValueWitnesses returns the configured witness table.
func (m *StaticMetadata) ValueWitnesses() ValueWitnesses { return m.Witnesses }

// IsClassObject reports whether the type is a class.
func (m *StaticMetadata) IsClassObject() bool { return m.Class }

// Description returns a description carrying only the type name.
func (m *StaticMetadata) Description() Description { return Description{Name: m.Name} }

// MemoryWitnesses implements value witnesses for plain-old-data layouts by
// copying bytes. Enums keep their tag in a little-endian field of TagSize
// bytes at TagOffset; TagSize 0 means the type is not an enum.
type MemoryWitnesses struct {
	Mem            swiftcall.Memory
	Size           uint32
	TagOffset      uint32
	TagSize        uint8
	BitwiseTakable bool
}

// IsBitwiseTakable reports the configured flag.
func (w *MemoryWitnesses) IsBitwiseTakable() bool {
	return w.BitwiseTakable
}

// InitializeWithCopy copies Size bytes from src to dst.
func (w *MemoryWitnesses) InitializeWithCopy(dst, src uintptr) error {
	if w.Size == 0 || dst == src {
		return nil
	}
	data, err := w.Mem.Read(src, w.Size)
	if err != nil {
		return err
	}
	return w.Mem.Write(dst, data)
}

// GetEnumTag reads the tag field.
func (w *MemoryWitnesses) GetEnumTag(handle uintptr) (uint32, error) {
	addr := handle + uintptr(w.TagOffset)
	switch w.TagSize {
	case 1:
		v, err := w.Mem.ReadU8(addr)
		return uint32(v), err
	case 2:
		v, err := w.Mem.ReadU16(addr)
		return uint32(v), err
	case 4:
		return w.Mem.ReadU32(addr)
	default:
		return 0, errors.Unsupported(errors.PhaseConstruct, "type has no enum tag")
	}
}

// InjectEnumTag writes the tag field.
func (w *MemoryWitnesses) InjectEnumTag(handle uintptr, tag uint32) error {
	addr := handle + uintptr(w.TagOffset)
	switch w.TagSize {
	case 1:
		return w.Mem.WriteU8(addr, uint8(tag))
	case 2:
		return w.Mem.WriteU16(addr, uint16(tag))
	case 4:
		return w.Mem.WriteU32(addr, tag)
	default:
		return errors.Unsupported(errors.PhaseConstruct, "type has no enum tag")
	}
}

// MemoryHeap resolves the dynamic class of an object from the metadata
// pointer stored in its first word.
type MemoryHeap struct {
	Mem      swiftcall.Memory
	Registry Registry
}

// ClassMetadataOf reads the isa word of handle and resolves it.
func (h *MemoryHeap) ClassMetadataOf(handle uintptr) (TypeMetadata, error) {
	isa, err := h.Mem.ReadU64(handle)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLookup, errors.KindInvalidData, err, "read object header")
	}
	md, err := h.Registry.MetadataAt(uintptr(isa))
	if err != nil {
		return nil, err
	}
	if !md.IsClassObject() {
		return nil, errors.New(errors.PhaseLookup, errors.KindTypeMismatch).
			SwiftType(md.Description().Name).
			Detail("object %#x points at non-class metadata", handle).
			Build()
	}
	return md, nil
}
