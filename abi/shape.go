package abi

import (
	"strings"

	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
)

// Shape is the ordered slot layout of one parameter or result. Indirect
// marks the single-pointer form used for values that cannot be relocated
// by copying bits.
type Shape struct {
	Slots    []Kind
	Indirect bool
}

// ExistentialShape is the lowering of every protocol-typed value.
func ExistentialShape() Shape {
	return Shape{Slots: []Kind{U64, U64, U64, Pointer, Pointer}}
}

// IndirectShape is the single pointer slot of an indirectly passed value.
func IndirectShape() Shape {
	return Shape{Slots: []Kind{Pointer}, Indirect: true}
}

// Len returns the number of slots.
func (s Shape) Len() int { return len(s.Slots) }

// Exceeds reports whether the shape is too wide for registers.
func (s Shape) Exceeds() bool { return len(s.Slots) > MaxDirectSlots }

// IsEmpty reports whether the shape carries no value.
func (s Shape) IsEmpty() bool { return len(s.Slots) == 0 }

func (s Shape) String() string {
	if s.Indirect {
		return "pointer"
	}
	names := make([]string, len(s.Slots))
	for i, k := range s.Slots {
		names[i] = k.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}

// Words returns a shape of n U64 slots.
func Words(n int) Shape {
	slots := make([]Kind, n)
	for i := range slots {
		slots[i] = U64
	}
	return Shape{Slots: slots}
}

// Lower maps a semantic type to its shape. A nil type lowers to the empty
// shape.
func Lower(t metadata.Semantic) (Shape, error) {
	switch t := t.(type) {
	case nil:
		return Shape{}, nil
	case metadata.Protocol, *metadata.Protocol:
		return ExistentialShape(), nil
	case *metadata.Type:
		if t == nil || t.Metadata == nil {
			return Shape{}, errors.NilPointer(errors.PhaseLower, nil, "*metadata.Type")
		}
		switch t.Kind {
		case metadata.KindClass:
			return Shape{Slots: []Kind{Pointer}}, nil
		case metadata.KindStruct, metadata.KindEnum:
			if !t.IsBitwiseTakable() {
				return IndirectShape(), nil
			}
			n := WordsFor(t.Stride())
			if n == 0 {
				n = 1
			}
			return Words(n), nil
		default:
			return Shape{}, errors.Unsupported(errors.PhaseLower, "kind "+t.Kind.String())
		}
	default:
		return Shape{}, errors.New(errors.PhaseLower, errors.KindUnsupported).
			GoType(TypeName(t)).
			Detail("cannot lower %s", t.SemanticName()).
			Build()
	}
}
