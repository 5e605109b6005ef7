package runtime

import (
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/swiftcall/abi"
	"github.com/wippyai/swiftcall/callconv"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/memory"
	"github.com/wippyai/swiftcall/metadata"
	"github.com/wippyai/swiftcall/trampoline"
	"github.com/wippyai/swiftcall/value"
)

// Runtime owns the resources bound functions share: the trampoline pool,
// the scratch arena and the type registry.
type Runtime struct {
	env    *value.Env
	pool   *trampoline.Pool
	arena  *memory.Arena
	caller callconv.Caller
	arch   callconv.Arch

	adapters []*callconv.Adapter

	// mu is held shared for the duration of every Function call and
	// exclusively while binding or closing.
	mu     sync.RWMutex
	closed bool
}

// New creates a runtime over registry with default configuration adjusted
// by opts.
func New(registry metadata.Registry, opts ...Option) (*Runtime, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewWithConfig(registry, cfg)
}

// NewWithConfig creates a runtime with custom configuration. A nil cfg uses
// DefaultConfig.
func NewWithConfig(registry metadata.Registry, cfg *Config) (*Runtime, error) {
	if registry == nil {
		return nil, errors.NilPointer(errors.PhaseBind, nil, "metadata.Registry")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger != nil {
		SetLogger(cfg.Logger)
		callconv.SetLogger(cfg.Logger)
		trampoline.SetLogger(cfg.Logger)
	}

	caller := cfg.Caller
	if caller == nil {
		caller = callconv.NativeCaller{}
	}
	arch := cfg.Arch
	if arch == "" {
		arch = callconv.HostArch()
	}
	if !arch.Supported() {
		return nil, errors.Unsupported(errors.PhaseBind, "architecture "+string(arch))
	}

	var poolOpts []trampoline.Option
	if cfg.PageSource != nil {
		poolOpts = append(poolOpts, trampoline.WithPageSource(cfg.PageSource))
	}
	if cfg.PageSize > 0 {
		poolOpts = append(poolOpts, trampoline.WithPageSize(cfg.PageSize))
	}
	pool := trampoline.NewPool(poolOpts...)
	if arch == callconv.ARM64 {
		if _, err := callconv.InstallCacheFlusher(pool, caller); err != nil {
			return nil, multierr.Append(err, pool.Close())
		}
	}

	arena := memory.NewArena(cfg.ArenaChunkSize)
	r := &Runtime{
		env: &value.Env{
			Mem:   memory.Native{},
			Alloc: arena,
			Types: registry,
			Heap:  cfg.Heap,
		},
		pool:   pool,
		arena:  arena,
		caller: caller,
		arch:   arch,
	}
	Logger().Debug("runtime created",
		zap.String("arch", string(arch)),
		zap.Int("page_size", pool.PageSize()))
	return r, nil
}

// Env returns the value environment shared by the runtime's functions.
func (r *Runtime) Env() *value.Env { return r.env }

// Pool returns the trampoline pool.
func (r *Runtime) Pool() *trampoline.Pool { return r.pool }

// BindRaw binds target at the slot level. The adapter is closed with the
// runtime.
func (r *Runtime) BindRaw(target uintptr, result abi.Shape, args []abi.Shape, opts ...BindOption) (*callconv.Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Closed(errors.PhaseBind, "runtime")
	}
	return r.bindLocked(target, result, args, opts)
}

func (r *Runtime) bindLocked(target uintptr, result abi.Shape, args []abi.Shape, opts []BindOption) (*callconv.Adapter, error) {
	var bo bindOptions
	for _, opt := range opts {
		opt(&bo)
	}
	a, err := callconv.New(callconv.Config{
		Pool:       r.pool,
		Memory:     r.env.Mem,
		Allocator:  r.arena,
		Caller:     r.caller,
		Arch:       r.arch,
		Result:     result,
		Args:       args,
		Target:     target,
		Context:    bo.context,
		HasContext: bo.hasContext,
		ErrorSlot:  bo.errorSlot,
	})
	if err != nil {
		return nil, err
	}
	r.adapters = append(r.adapters, a)
	return a, nil
}

// Close waits for in-flight calls, then releases the trampoline pool and the
// scratch arena. Later calls through functions or adapters bound by the
// runtime fail with a closed error; values it constructed become invalid.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	for _, a := range r.adapters {
		err = multierr.Append(err, a.Close())
	}
	r.adapters = nil
	return multierr.Combine(err, r.pool.Close(), r.arena.Close())
}
