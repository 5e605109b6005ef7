package emit

import (
	goruntime "runtime"

	"github.com/wippyai/swiftcall/errors"
)

// Arch identifies an instruction set.
type Arch string

const (
	ARM64 Arch = "arm64"
	AMD64 Arch = "amd64"
)

// HostArch returns the architecture of the running process.
func HostArch() Arch { return Arch(goruntime.GOARCH) }

// Supported reports whether code can be emitted for a.
func (a Arch) Supported() bool { return a == ARM64 || a == AMD64 }

const (
	// ScratchSlots is the size of the save area, in 8-byte slots.
	ScratchSlots = 4
	// ResultRegisters is the number of registers a direct result can use.
	ResultRegisters = 4
)

// Program describes one adapter. Addresses are absolute.
type Program struct {
	Target         uintptr // swiftcall entry point
	Scratch        uintptr // ScratchSlots words of save area
	ReturnBuffer   uintptr // receives ResultSlots result registers; unused with IndirectResult
	ResultSlots    int
	IndirectResult uintptr // buffer passed in the indirect-result register, 0 for none
	ErrorSlot      uintptr // receives the error register after the call, 0 for none
	Context        uintptr
	HasContext     bool
}

func (p Program) validate() error {
	if p.Target == 0 {
		return errors.InvalidInput(errors.PhaseBind, "nil target")
	}
	if p.Scratch == 0 {
		return errors.InvalidInput(errors.PhaseBind, "nil scratch buffer")
	}
	if p.IndirectResult != 0 {
		return nil
	}
	if p.ResultSlots < 0 || p.ResultSlots > ResultRegisters {
		return errors.OutOfBounds(errors.PhaseBind, []string{"ResultSlots"}, p.ResultSlots, ResultRegisters+1)
	}
	if p.ResultSlots > 0 && p.ReturnBuffer == 0 {
		return errors.InvalidInput(errors.PhaseBind, "no return buffer")
	}
	return nil
}

// Adapter emits the adapter body for arch.
func Adapter(arch Arch, p Program) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	switch arch {
	case ARM64:
		return arm64Adapter(p), nil
	case AMD64:
		return amd64Adapter(p), nil
	default:
		return nil, errors.Unsupported(errors.PhaseBind, "architecture "+string(arch))
	}
}
