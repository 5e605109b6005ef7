package value

import (
	"fmt"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
)

// Env bundles the collaborators instances are built against.
type Env struct {
	Mem   swiftcall.Memory
	Alloc swiftcall.Allocator
	Types metadata.Registry
	// Heap is optional. When set, wrapped objects report their dynamic class.
	Heap metadata.HeapInspector
}

// Lowerable is anything that can be physically lowered into call slots.
type Lowerable interface {
	lowerable()
}

// Instance is a Swift value or object reference living in native memory.
type Instance interface {
	Lowerable
	Handle() uintptr
	Metadata() metadata.TypeMetadata
	Type() *metadata.Type
	Equal(other Instance) bool
	String() string
}

var (
	_ Instance = (*ObjectInstance)(nil)
	_ Instance = (*StructValue)(nil)
	_ Instance = (*EnumValue)(nil)
)

// ObjectInstance is a reference to a Swift heap object.
type ObjectInstance struct {
	typ    *metadata.Type
	md     metadata.TypeMetadata
	handle uintptr
}

// WrapObject wraps an object pointer. When env has a HeapInspector the
// object's dynamic class is used; otherwise declared must describe it.
func WrapObject(env *Env, handle uintptr, declared *metadata.Type) (*ObjectInstance, error) {
	if declared != nil && declared.Kind != metadata.KindClass {
		return nil, errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(declared.Name).
			Detail("%s is not a class", declared.Kind).
			Build()
	}
	obj := &ObjectInstance{handle: handle, typ: declared}
	if declared != nil {
		obj.md = declared.Metadata
	}
	if env != nil && env.Heap != nil && handle != 0 {
		md, err := env.Heap.ClassMetadataOf(handle)
		if err != nil {
			return nil, err
		}
		obj.md = md
		if env.Types != nil {
			if dyn, err := env.Types.TypeByName(md.Description().Name); err == nil {
				obj.typ = dyn
			}
		}
	}
	if obj.md == nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindNilPointer).
			Detail("object %#x has no known class", handle).
			Build()
	}
	return obj, nil
}

func (*ObjectInstance) lowerable() {}

// Handle returns the object pointer.
func (o *ObjectInstance) Handle() uintptr { return o.handle }

// Metadata returns the class metadata.
func (o *ObjectInstance) Metadata() metadata.TypeMetadata { return o.md }

// Type returns the registered class, or nil if the class is unregistered.
func (o *ObjectInstance) Type() *metadata.Type { return o.typ }

// Equal reports whether other refers to the same object.
func (o *ObjectInstance) Equal(other Instance) bool {
	x, ok := other.(*ObjectInstance)
	return ok && x.handle == o.handle
}

func (o *ObjectInstance) String() string {
	return fmt.Sprintf("ObjectInstance(%s @ %#x)", o.md.Description().Name, o.handle)
}

// StructValue is a struct stored at a handle.
type StructValue struct {
	typ    *metadata.Type
	handle uintptr
}

// WrapStruct wraps existing struct storage without copying.
func WrapStruct(t *metadata.Type, handle uintptr) (*StructValue, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseConstruct, nil, "*metadata.Type")
	}
	if t.Kind != metadata.KindStruct {
		return nil, errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(t.Name).
			Detail("%s is not a struct", t.Kind).
			Build()
	}
	return &StructValue{typ: t, handle: handle}, nil
}

// NewStruct serializes fields into a fresh buffer, one 8-byte word per field
// in declared order.
func NewStruct(env *Env, t *metadata.Type, fields []swiftcall.Slot) (*StructValue, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseConstruct, nil, "*metadata.Type")
	}
	if t.Kind != metadata.KindStruct {
		return nil, errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(t.Name).
			Detail("%s is not a struct", t.Kind).
			Build()
	}
	capacity := int(roundWords(t.Stride()))
	if len(fields) > capacity {
		return nil, errors.New(errors.PhaseConstruct, errors.KindOutOfBounds).
			SwiftType(t.Name).
			Detail("%d fields do not fit stride %d", len(fields), t.Stride()).
			Value(len(fields)).
			Build()
	}

	handle, err := allocFor(env, t)
	if err != nil {
		return nil, err
	}
	for i, f := range fields {
		if err := writeSlot(env.Mem, handle+uintptr(i*swiftcall.WordSize), f); err != nil {
			return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidData).
				SwiftType(t.Name).
				Path(fmt.Sprintf("field%d", i)).
				Cause(err).
				Build()
		}
	}
	return &StructValue{typ: t, handle: handle}, nil
}

func (*StructValue) lowerable() {}

// Handle returns the address of the struct storage.
func (s *StructValue) Handle() uintptr { return s.handle }

// Metadata returns the struct metadata.
func (s *StructValue) Metadata() metadata.TypeMetadata { return s.typ.Metadata }

// Type returns the struct type.
func (s *StructValue) Type() *metadata.Type { return s.typ }

// Equal reports whether other is a struct at the same address.
func (s *StructValue) Equal(other Instance) bool {
	x, ok := other.(*StructValue)
	return ok && x.handle == s.handle
}

func (s *StructValue) String() string {
	return fmt.Sprintf("StructValue(%s @ %#x)", s.typ.Name, s.handle)
}

// Words reads the struct storage as 8-byte words.
func (s *StructValue) Words(mem swiftcall.Memory) ([]uint64, error) {
	n := roundWords(s.typ.Stride())
	out := make([]uint64, n)
	for i := range out {
		v, err := mem.ReadU64(s.handle + uintptr(i*swiftcall.WordSize))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeSlot(mem swiftcall.Memory, addr uintptr, s swiftcall.Slot) error {
	switch s.Kind() {
	case swiftcall.SlotInt:
		return mem.WriteU64(addr, s.Uint64())
	case swiftcall.SlotAddr:
		p, _ := s.Addr()
		return mem.WriteU64(addr, uint64(p))
	default:
		return errors.Unsupported(errors.PhaseConstruct, fmt.Sprintf("field kind %s", s.Kind()))
	}
}

// allocFor allocates zeroed storage for one value of t.
func allocFor(env *Env, t *metadata.Type) (uintptr, error) {
	layout := t.Metadata.Layout()
	size := roundWords(layout.Stride) * swiftcall.WordSize
	if size == 0 {
		size = swiftcall.WordSize
	}
	align := layout.Alignment
	if align < swiftcall.WordSize {
		align = swiftcall.WordSize
	}
	addr, err := env.Alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.New(errors.PhaseConstruct, errors.KindAllocation).
			SwiftType(t.Name).
			Cause(err).
			Build()
	}
	return addr, nil
}

func roundWords(bytes uint32) uint32 {
	return (bytes + swiftcall.WordSize - 1) / swiftcall.WordSize
}
