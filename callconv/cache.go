package callconv

import (
	"go.uber.org/zap"

	"github.com/wippyai/swiftcall/callconv/internal/emit"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/trampoline"
)

// CacheFlusher runs an arm64 cache maintenance routine that lives in a
// trampoline pool. It satisfies trampoline.CacheFlusher.
type CacheFlusher struct {
	caller Caller
	stub   uintptr
}

// InstallCacheFlusher writes the maintenance routine into pool and makes it
// the pool's flusher. It should run before any other code is written, so
// the routine lands on a freshly mapped page.
func InstallCacheFlusher(pool *trampoline.Pool, caller Caller) (*CacheFlusher, error) {
	if pool == nil {
		return nil, errors.NilPointer(errors.PhaseBind, nil, "*trampoline.Pool")
	}
	if caller == nil {
		caller = NativeCaller{}
	}
	code := emit.ARM64CacheFlush()
	r, err := pool.Allocate(len(code))
	if err != nil {
		return nil, err
	}
	if err := pool.Write(r, code); err != nil {
		return nil, err
	}
	f := &CacheFlusher{caller: caller, stub: r.Addr}
	pool.SetCacheFlusher(f)
	Logger().Debug("installed cache flusher", zap.Uintptr("stub", r.Addr))
	return f, nil
}

// FlushCache makes [addr, addr+size) visible to instruction fetch.
func (f *CacheFlusher) FlushCache(addr uintptr, size int) error {
	if size <= 0 {
		return nil
	}
	start := addr &^ (trampoline.CodeAlign - 1)
	_, err := f.caller.Call(f.stub, start, addr+uintptr(size))
	return err
}

// Stub returns the address of the maintenance routine.
func (f *CacheFlusher) Stub() uintptr { return f.stub }
