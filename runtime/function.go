package runtime

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/abi"
	"github.com/wippyai/swiftcall/callconv"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
	"github.com/wippyai/swiftcall/value"
)

// BindOption configures a bound function.
type BindOption func(*bindOptions)

type bindOptions struct {
	context    uintptr
	hasContext bool
	errorSlot  bool
}

// WithContext passes addr in the context register on every call.
func WithContext(addr uintptr) BindOption {
	return func(o *bindOptions) {
		o.context = addr
		o.hasContext = true
	}
}

// WithErrorSlot captures the error register after every call; see
// Function.Err.
func WithErrorSlot() BindOption {
	return func(o *bindOptions) { o.errorSlot = true }
}

// Function is a foreign function bound to declared semantic types.
type Function struct {
	rt         *Runtime
	adapter    *callconv.Adapter
	result     metadata.Semantic
	params     []metadata.Semantic
	containers []*value.ExistentialContainer // per protocol parameter
	resolved   map[string]*metadata.Type

	mu sync.Mutex
}

// Bind lowers the declared types and builds the adapter for target.
func (r *Runtime) Bind(target uintptr, result metadata.Semantic, args []metadata.Semantic, opts ...BindOption) (*Function, error) {
	resShape, err := abi.Lower(result)
	if err != nil {
		return nil, withPath(err, "result")
	}
	shapes := make([]abi.Shape, len(args))
	containers := make([]*value.ExistentialContainer, len(args))
	for i, a := range args {
		if a == nil {
			return nil, errors.NilPointer(errors.PhaseLower, []string{argName(i)}, "metadata.Semantic")
		}
		if shapes[i], err = abi.Lower(a); err != nil {
			return nil, withPath(err, argName(i))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Closed(errors.PhaseBind, "runtime")
	}
	adapter, err := r.bindLocked(target, resShape, shapes, opts)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if !isProtocol(a) {
			continue
		}
		if containers[i], err = value.NewExistential(r.env); err != nil {
			return nil, err
		}
	}

	Logger().Debug("bound function",
		zap.Uintptr("target", target),
		zap.String("result", semanticName(result)),
		zap.Int("args", len(args)),
		zap.Uintptr("trampoline", adapter.Trampoline()))

	return &Function{
		rt:         r,
		adapter:    adapter,
		result:     result,
		params:     args,
		containers: containers,
		resolved:   make(map[string]*metadata.Type),
	}, nil
}

// Adapter returns the slot-level adapter behind f.
func (f *Function) Adapter() *callconv.Adapter { return f.adapter }

// Err returns the error register captured by the last call, or 0 when the
// callee reported no error or f was bound without WithErrorSlot.
func (f *Function) Err() uintptr {
	v, err := f.adapter.ErrorValue()
	if err != nil {
		return 0
	}
	return v
}

// Call lowers args, invokes the function and builds the result instance.
// A function without a declared result returns nil.
func (f *Function) Call(ctx context.Context, args ...value.Instance) (value.Instance, error) {
	if len(args) != len(f.params) {
		return nil, errors.Arity(errors.PhaseEncode, nil, len(args), len(f.params))
	}

	f.rt.mu.RLock()
	defer f.rt.mu.RUnlock()
	if f.rt.closed {
		return nil, errors.Closed(errors.PhaseInvoke, "runtime")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	slots := make([][]swiftcall.Slot, len(args))
	for i, inst := range args {
		s, err := f.lowerArg(i, inst)
		if err != nil {
			return nil, withPath(err, argName(i))
		}
		slots[i] = s
	}

	cells, err := f.adapter.InvokeCells(ctx, slots...)
	if err != nil {
		return nil, err
	}
	inst, err := f.liftResult(cells)
	if err != nil {
		return nil, withPath(err, "result")
	}
	return inst, nil
}

func (f *Function) lowerArg(i int, inst value.Instance) ([]swiftcall.Slot, error) {
	if inst == nil {
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "value.Instance")
	}
	env := f.rt.env

	switch decl := f.params[i].(type) {
	case metadata.Protocol:
		return f.lowerExistential(i, decl.Name, inst)
	case *metadata.Protocol:
		return f.lowerExistential(i, decl.Name, inst)
	case *metadata.Type:
		if err := checkDeclared(decl, inst); err != nil {
			return nil, err
		}
		return abi.Materialize(env.Mem, inst)
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, fmt.Sprintf("parameter type %T", decl))
	}
}

// lowerExistential packs inst into the parameter's container using the
// witness table of its dynamic type's conformance to protocol.
func (f *Function) lowerExistential(i int, protocol string, inst value.Instance) ([]swiftcall.Slot, error) {
	env := f.rt.env
	t, err := f.resolve(inst)
	if err != nil {
		return nil, err
	}
	conf, ok := t.Conformance(protocol)
	if !ok {
		return nil, errors.MissingConformance(t.Name, protocol)
	}
	c := f.containers[i]
	if err := c.Store(env, inst, conf); err != nil {
		return nil, err
	}
	return abi.Materialize(env.Mem, c)
}

// resolve finds the registered type of inst by its stable name.
func (f *Function) resolve(inst value.Instance) (*metadata.Type, error) {
	name := ""
	if t := inst.Type(); t != nil {
		name = t.Name
	} else if md := inst.Metadata(); md != nil {
		name = md.Description().Name
	}
	if t, ok := f.resolved[name]; ok {
		return t, nil
	}
	t, err := f.rt.env.Types.TypeByName(name)
	if err != nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindNotFound).
			SwiftType(name).
			Detail("runtime type of %s", inst).
			Cause(err).
			Build()
	}
	f.resolved[name] = t
	return t, nil
}

func (f *Function) liftResult(cells []uint64) (value.Instance, error) {
	env := f.rt.env

	switch decl := f.result.(type) {
	case nil:
		return nil, nil
	case metadata.Protocol, *metadata.Protocol:
		return value.ExistentialAt(f.adapter.ReturnBuffer()).Open(env)
	case *metadata.Type:
		switch {
		case decl.Kind == metadata.KindClass:
			obj, err := value.WrapObject(env, uintptr(cells[0]), decl)
			if err != nil {
				return nil, err
			}
			return obj, nil
		case f.adapter.Result().Indirect:
			return value.CopyConstruct(env, decl, uintptr(cells[0]))
		default:
			return f.spillValue(decl, cells)
		}
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, fmt.Sprintf("result type %T", decl))
	}
}

// spillValue copies result cells into a fresh buffer and wraps it.
func (f *Function) spillValue(t *metadata.Type, cells []uint64) (value.Instance, error) {
	env := f.rt.env
	size := uint32(len(cells) * swiftcall.WordSize)
	align := uint32(swiftcall.WordSize)
	if a := t.Metadata.Layout().Alignment; a > align {
		align = a
	}
	addr, err := env.Alloc.Alloc(size, align)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseConstruct, size, align, err)
	}
	slots := make([]swiftcall.Slot, len(cells))
	for i, c := range cells {
		slots[i] = swiftcall.IntSlot(c)
	}
	if err := abi.Spill(env.Mem, addr, slots); err != nil {
		return nil, err
	}
	return value.Wrap(env, t, addr)
}

// checkDeclared rejects an instance whose type differs from the declared
// parameter type. Objects are accepted for any class parameter since
// subclass relationships are not recorded.
func checkDeclared(decl *metadata.Type, inst value.Instance) error {
	if decl.Kind == metadata.KindClass {
		if _, ok := inst.(*value.ObjectInstance); ok {
			return nil
		}
	} else if t := inst.Type(); t != nil && t.Name == decl.Name {
		return nil
	}
	return errors.TypeMismatch(errors.PhaseEncode, nil, fmt.Sprintf("%T", inst), decl.Name)
}

func isProtocol(s metadata.Semantic) bool {
	switch s.(type) {
	case metadata.Protocol, *metadata.Protocol:
		return true
	}
	return false
}

func semanticName(s metadata.Semantic) string {
	if s == nil {
		return "()"
	}
	return s.SemanticName()
}

func argName(i int) string { return fmt.Sprintf("arg%d", i) }

// withPath prefixes a structured error's path with elem.
func withPath(err error, elem string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{elem}, e.Path...)
		return e
	}
	return err
}
