package abi

import (
	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/memory"
)

// Kind is the declared type of one slot.
type Kind byte

const (
	U64 Kind = iota
	Pointer
	String
	Int
	Uint
	Long
	Ulong
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Bool
	Float
	Double
)

var kindNames = [...]string{
	U64:     "u64",
	Pointer: "pointer",
	String:  "string",
	Int:     "int",
	Uint:    "uint",
	Long:    "long",
	Ulong:   "ulong",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Bool:    "bool",
	Float:   "float",
	Double:  "double",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MaxStringSize bounds NUL-terminated string reads.
const MaxStringSize = 1 << 20

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames)+1)
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	m["ptr"] = Pointer
	return m
}()

// ParseKind resolves a primitive type name such as "int32" or "pointer".
func ParseKind(name string) (Kind, error) {
	k, ok := kindByName[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseDecode, "slot kind", name)
	}
	return k, nil
}

// Decode reads one returned cell as a Go value of the declared kind.
// Narrow kinds truncate the cell; signed kinds sign-extend from their width.
func Decode(mem swiftcall.Memory, kind Kind, cell uint64) (any, error) {
	switch kind {
	case U64, Ulong, Uint64:
		return cell, nil
	case Pointer:
		return uintptr(cell), nil
	case String:
		s, err := memory.ReadCString(mem, uintptr(cell), MaxStringSize)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "read string")
		}
		return s, nil
	case Int, Int32:
		return int32(uint32(cell)), nil
	case Uint, Uint32:
		return uint32(cell), nil
	case Long, Int64:
		return int64(cell), nil
	case Int8:
		return int8(uint8(cell)), nil
	case Uint8:
		return uint8(cell), nil
	case Int16:
		return int16(uint16(cell)), nil
	case Uint16:
		return uint16(cell), nil
	case Bool:
		return uint8(cell) != 0, nil
	default:
		return nil, errors.Unimplemented(errors.PhaseDecode, kind.String())
	}
}
