package abi

import (
	"reflect"

	"github.com/wippyai/swiftcall"
)

// MaxDirectSlots is the number of register slots a shape may use before it
// is passed or returned through a buffer.
const MaxDirectSlots = 4

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// WordsFor returns the number of 8-byte slots covering size bytes.
func WordsFor(size uint32) int {
	return int(AlignTo(size, swiftcall.WordSize) / swiftcall.WordSize)
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}
