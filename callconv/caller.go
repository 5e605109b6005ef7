package callconv

import (
	"github.com/ebitengine/purego"

	"github.com/wippyai/swiftcall/errors"
)

// MaxNativeArgs is the largest number of call-site slots NativeCaller can
// pass.
const MaxNativeArgs = 15

// Caller performs a call through the platform C convention.
type Caller interface {
	Call(fn uintptr, args ...uintptr) (uintptr, error)
}

// NativeCaller calls into native code with purego.
type NativeCaller struct{}

// Call invokes fn with integer arguments and returns the first result
// register.
func (NativeCaller) Call(fn uintptr, args ...uintptr) (uintptr, error) {
	if fn == 0 {
		return 0, errors.NilPointer(errors.PhaseInvoke, nil, "fn")
	}
	if len(args) > MaxNativeArgs {
		return 0, errors.Arity(errors.PhaseInvoke, nil, len(args), MaxNativeArgs)
	}
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1, nil
}
