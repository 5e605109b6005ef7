package callconv

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/abi"
	"github.com/wippyai/swiftcall/callconv/internal/emit"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/trampoline"
)

// Arch identifies the instruction set adapters are emitted for.
type Arch = emit.Arch

const (
	ARM64 = emit.ARM64
	AMD64 = emit.AMD64
)

// HostArch returns the architecture of the running process.
func HostArch() Arch { return emit.HostArch() }

// Config describes one bound function.
type Config struct {
	Pool      *trampoline.Pool
	Memory    swiftcall.Memory
	Allocator swiftcall.Allocator
	Caller    Caller // defaults to NativeCaller
	Arch      Arch   // defaults to HostArch

	Result abi.Shape
	Args   []abi.Shape

	Target  uintptr
	Context uintptr // loaded into the context register when HasContext is set

	HasContext bool
	ErrorSlot  bool // capture the error register after each call
}

// Adapter is a bound function: its trampoline and the buffers it passes.
type Adapter struct {
	mem    swiftcall.Memory
	caller Caller
	result abi.Shape
	args   []abi.Shape

	argBufs []uintptr // per argument, 0 when passed in registers
	region  trampoline.Region

	target   uintptr
	retBuf   uintptr
	scratch  uintptr
	errSlot  uintptr
	params   int
	indirect bool

	mu     sync.Mutex
	closed bool
}

// New builds the adapter for cfg: it allocates the call buffers, emits the
// adapter code and writes it to the pool.
func New(cfg Config) (*Adapter, error) {
	if cfg.Target == 0 {
		return nil, errors.NilPointer(errors.PhaseBind, []string{"Target"}, "uintptr")
	}
	if cfg.Pool == nil {
		return nil, errors.NilPointer(errors.PhaseBind, []string{"Pool"}, "*trampoline.Pool")
	}
	if cfg.Memory == nil {
		return nil, errors.NilPointer(errors.PhaseBind, []string{"Memory"}, "swiftcall.Memory")
	}
	if cfg.Allocator == nil {
		return nil, errors.NilPointer(errors.PhaseBind, []string{"Allocator"}, "swiftcall.Allocator")
	}
	if cfg.Caller == nil {
		cfg.Caller = NativeCaller{}
	}
	if cfg.Arch == "" {
		cfg.Arch = HostArch()
	}
	if !cfg.Arch.Supported() {
		return nil, errors.Unsupported(errors.PhaseBind, "architecture "+string(cfg.Arch))
	}

	a := &Adapter{
		mem:     cfg.Memory,
		caller:  cfg.Caller,
		result:  cfg.Result,
		args:    cfg.Args,
		argBufs: make([]uintptr, len(cfg.Args)),
		target:  cfg.Target,
	}

	for i, s := range cfg.Args {
		if s.IsEmpty() {
			return nil, errors.InvalidInput(errors.PhaseBind, fmt.Sprintf("argument %d has an empty shape", i))
		}
		if !s.Exceeds() {
			a.params += s.Len()
			continue
		}
		buf, err := alloc(cfg.Allocator, s.Len())
		if err != nil {
			return nil, err
		}
		a.argBufs[i] = buf
		a.params++
	}
	if a.params > MaxNativeArgs {
		return nil, errors.New(errors.PhaseBind, errors.KindArity).
			Detail("%d call-site slots exceed the limit of %d", a.params, MaxNativeArgs).
			Value(a.params).
			Build()
	}

	var err error
	a.indirect = cfg.Result.Exceeds()
	if n := cfg.Result.Len(); n > 0 {
		if a.retBuf, err = alloc(cfg.Allocator, n); err != nil {
			return nil, err
		}
	}
	if a.scratch, err = alloc(cfg.Allocator, emit.ScratchSlots); err != nil {
		return nil, err
	}
	if cfg.ErrorSlot {
		if a.errSlot, err = alloc(cfg.Allocator, 1); err != nil {
			return nil, err
		}
	}

	prog := emit.Program{
		Target:     cfg.Target,
		Scratch:    a.scratch,
		ErrorSlot:  a.errSlot,
		Context:    cfg.Context,
		HasContext: cfg.HasContext,
	}
	if a.indirect {
		prog.IndirectResult = a.retBuf
	} else {
		prog.ReturnBuffer = a.retBuf
		prog.ResultSlots = cfg.Result.Len()
	}
	code, err := emit.Adapter(cfg.Arch, prog)
	if err != nil {
		return nil, err
	}
	if a.region, err = cfg.Pool.Allocate(len(code)); err != nil {
		return nil, err
	}
	if err := cfg.Pool.Write(a.region, code); err != nil {
		return nil, err
	}

	Logger().Debug("emitted adapter",
		zap.String("arch", string(cfg.Arch)),
		zap.Uintptr("target", cfg.Target),
		zap.Uintptr("trampoline", a.region.Addr),
		zap.Int("size", len(code)),
		zap.Stringer("result", cfg.Result),
		zap.Int("args", len(cfg.Args)),
		zap.Bool("indirect", a.indirect))
	return a, nil
}

func alloc(al swiftcall.Allocator, slots int) (uintptr, error) {
	size := uint32(slots * swiftcall.WordSize)
	addr, err := al.Alloc(size, swiftcall.WordSize)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseBind, size, swiftcall.WordSize, err)
	}
	return addr, nil
}

// Invoke calls the bound function with one slot sequence per argument and
// decodes each result cell by its declared kind. The result is always a
// slice, one element per cell, even for single-slot results; see InvokeOne.
// An empty result shape yields nil.
func (a *Adapter) Invoke(ctx context.Context, args ...[]swiftcall.Slot) ([]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cells, err := a.call(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}
	out := make([]any, len(cells))
	for i, c := range cells {
		if out[i], err = abi.Decode(a.mem, a.result.Slots[i], c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// InvokeOne is Invoke for functions returning at most one slot: it returns
// the bare decoded value, or nil when the function has no result.
func (a *Adapter) InvokeOne(ctx context.Context, args ...[]swiftcall.Slot) (any, error) {
	if n := a.result.Len(); n > 1 {
		return nil, errors.Arity(errors.PhaseDecode, []string{"result"}, n, 1)
	}
	out, err := a.Invoke(ctx, args...)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// InvokeCells is Invoke without decoding: it returns the raw result cells.
func (a *Adapter) InvokeCells(ctx context.Context, args ...[]swiftcall.Slot) ([]uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.call(ctx, args)
}

func (a *Adapter) call(ctx context.Context, args [][]swiftcall.Slot) ([]uint64, error) {
	if a.closed {
		return nil, errors.Closed(errors.PhaseInvoke, "adapter")
	}
	if len(args) != len(a.args) {
		return nil, errors.Arity(errors.PhaseInvoke, nil, len(args), len(a.args))
	}

	params := make([]uintptr, 0, a.params)
	for i, slots := range args {
		if len(slots) != a.args[i].Len() {
			return nil, errors.Arity(errors.PhaseInvoke, []string{fmt.Sprintf("arg%d", i)}, len(slots), a.args[i].Len())
		}
		if buf := a.argBufs[i]; buf != 0 {
			if err := abi.Spill(a.mem, buf, slots); err != nil {
				return nil, err
			}
			params = append(params, buf)
			continue
		}
		for _, s := range slots {
			w, err := word(s)
			if err != nil {
				return nil, err
			}
			params = append(params, w)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseInvoke, errors.KindCanceled, err, "context done before call")
	}
	if _, err := a.caller.Call(a.region.Addr, params...); err != nil {
		return nil, errors.Wrap(errors.PhaseInvoke, errors.KindForeignFailure, err, "native call")
	}

	cells := make([]uint64, a.result.Len())
	for i := range cells {
		c, err := a.mem.ReadU64(a.retBuf + uintptr(i*swiftcall.WordSize))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "read result cell")
		}
		cells[i] = c
	}
	return cells, nil
}

func word(s swiftcall.Slot) (uintptr, error) {
	switch s.Kind() {
	case swiftcall.SlotInt:
		return uintptr(s.Uint64()), nil
	case swiftcall.SlotAddr:
		p, _ := s.Addr()
		return p, nil
	default:
		return 0, errors.Unsupported(errors.PhaseEncode, "slot kind "+s.Kind().String())
	}
}

// Close marks the adapter unusable. It waits for an in-flight call and
// must run before the pool or the allocator backing the adapter is
// released; later calls fail with a closed error. Close is idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// ErrorValue returns the error register captured by the last call, or 0
// when the adapter has no error slot.
func (a *Adapter) ErrorValue() (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errSlot == 0 {
		return 0, nil
	}
	if a.closed {
		return 0, errors.Closed(errors.PhaseDecode, "adapter")
	}
	v, err := a.mem.ReadU64(a.errSlot)
	return uintptr(v), err
}

// ErrorSlot returns the cell the error register is stored to, or 0.
func (a *Adapter) ErrorSlot() uintptr { return a.errSlot }

// Trampoline returns the address of the emitted adapter code.
func (a *Adapter) Trampoline() uintptr { return a.region.Addr }

// ReturnBuffer returns the buffer result cells are read from, or 0 when the
// function has no result.
func (a *Adapter) ReturnBuffer() uintptr { return a.retBuf }

// ArgumentBuffer returns the buffer of argument i, or 0 when it travels in
// registers.
func (a *Adapter) ArgumentBuffer(i int) uintptr {
	if i < 0 || i >= len(a.argBufs) {
		return 0
	}
	return a.argBufs[i]
}

// IndirectResult reports whether the result is returned through memory.
func (a *Adapter) IndirectResult() bool { return a.indirect }

// Result returns the result shape.
func (a *Adapter) Result() abi.Shape { return a.result }

// Args returns the argument shapes.
func (a *Adapter) Args() []abi.Shape { return a.args }

// Params returns the number of call-site slots passed to the trampoline.
func (a *Adapter) Params() int { return a.params }
