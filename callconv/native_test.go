package callconv

import (
	"context"
	"encoding/binary"
	goruntime "runtime"
	"testing"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/abi"
	"github.com/wippyai/swiftcall/memory"
	"github.com/wippyai/swiftcall/trampoline"
)

// Hand-assembled swiftcall targets, one encoding per architecture.
type nativeTargets struct {
	// f(a, b) -> (a+1, b, self, 0x44), throws 0x77 when a != 0
	direct []byte
	// f(p *[6]uint64, x) -> p[0] + p[5] + x
	wide []byte
	// f(a, b) -> indirect [a, b, _, _, 5]
	indirect []byte
}

func a64(words ...uint32) []byte {
	out := make([]byte, 0, 4*len(words))
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

func hostTargets(t *testing.T) nativeTargets {
	t.Helper()
	if goruntime.GOOS != "linux" {
		t.Skip("native adapter tests run on linux")
	}
	switch goruntime.GOARCH {
	case "amd64":
		return nativeTargets{
			direct: []byte{
				0x48, 0x8D, 0x47, 0x01, // lea rax, [rdi+1]
				0x48, 0x89, 0xF2, // mov rdx, rsi
				0x4C, 0x89, 0xE9, // mov rcx, r13
				0x49, 0xC7, 0xC0, 0x44, 0x00, 0x00, 0x00, // mov r8, 0x44
				0x48, 0x85, 0xFF, // test rdi, rdi
				0x74, 0x07, // jz ret
				0x49, 0xC7, 0xC4, 0x77, 0x00, 0x00, 0x00, // mov r12, 0x77
				0xC3, // ret
			},
			wide: []byte{
				0x48, 0x8B, 0x07, // mov rax, [rdi]
				0x48, 0x03, 0x47, 0x28, // add rax, [rdi+40]
				0x48, 0x01, 0xF0, // add rax, rsi
				0xC3, // ret
			},
			indirect: []byte{
				0x48, 0x89, 0x38, // mov [rax], rdi
				0x48, 0x89, 0x70, 0x08, // mov [rax+8], rsi
				0x48, 0xC7, 0x40, 0x20, 0x05, 0x00, 0x00, 0x00, // mov qword [rax+32], 5
				0xC3, // ret
			},
		}
	case "arm64":
		return nativeTargets{
			direct: a64(
				0xB4000040, // cbz x0, +8
				0xD2800EF5, // movz x21, #0x77
				0x91000400, // add x0, x0, #1
				0xAA1403E2, // mov x2, x20
				0xD2800883, // movz x3, #0x44
				0xD65F03C0, // ret
			),
			wide: a64(
				0xF9400009, // ldr x9, [x0]
				0xF940140A, // ldr x10, [x0, #40]
				0x8B0A0120, // add x0, x9, x10
				0x8B010000, // add x0, x0, x1
				0xD65F03C0, // ret
			),
			indirect: a64(
				0xF9000100, // str x0, [x8]
				0xF9000501, // str x1, [x8, #8]
				0xD28000A9, // movz x9, #5
				0xF9001109, // str x9, [x8, #32]
				0xD65F03C0, // ret
			),
		}
	default:
		t.Skipf("no native adapter on %s", goruntime.GOARCH)
		return nativeTargets{}
	}
}

type nativeHarness struct {
	mem   memory.Native
	arena *memory.Arena
	pool  *trampoline.Pool
}

func newNativeHarness(t *testing.T) *nativeHarness {
	t.Helper()
	h := &nativeHarness{arena: memory.NewArena(0), pool: trampoline.NewPool()}
	t.Cleanup(func() {
		_ = h.pool.Close()
		_ = h.arena.Close()
	})
	if HostArch() == ARM64 {
		if _, err := InstallCacheFlusher(h.pool, NativeCaller{}); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

// place writes target code into the pool and returns its address.
func (h *nativeHarness) place(t *testing.T, code []byte) uintptr {
	t.Helper()
	r, err := h.pool.Allocate(len(code))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.pool.Write(r, code); err != nil {
		t.Fatal(err)
	}
	return r.Addr
}

func (h *nativeHarness) bind(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	cfg.Pool = h.pool
	cfg.Memory = h.mem
	cfg.Allocator = h.arena
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func ints(vs ...uint64) []swiftcall.Slot {
	out := make([]swiftcall.Slot, len(vs))
	for i, v := range vs {
		out[i] = swiftcall.IntSlot(v)
	}
	return out
}

func TestNative_DirectResultContextAndError(t *testing.T) {
	targets := hostTargets(t)
	h := newNativeHarness(t)
	const self = 0x1234

	a := h.bind(t, Config{
		Target:     h.place(t, targets.direct),
		Result:     abi.Words(4),
		Args:       []abi.Shape{abi.Words(1), abi.Words(1)},
		Context:    self,
		HasContext: true,
		ErrorSlot:  true,
	})

	tests := []struct {
		name    string
		a, b    uint64
		want    []uint64
		wantErr uintptr
	}{
		{"throws", 7, 0xdead_beef, []uint64{8, 0xdead_beef, self, 0x44}, 0x77},
		// The error register is cleared before each call.
		{"returns", 0, 5, []uint64{1, 5, self, 0x44}, 0},
		{"throws again", 41, 0, []uint64{42, 0, self, 0x44}, 0x77},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells, err := a.InvokeCells(context.Background(), ints(tt.a), ints(tt.b))
			if err != nil {
				t.Fatal(err)
			}
			if len(cells) != len(tt.want) {
				t.Fatalf("got %d cells, want %d", len(cells), len(tt.want))
			}
			for i := range tt.want {
				if cells[i] != tt.want[i] {
					t.Errorf("cell %d = %#x, want %#x", i, cells[i], tt.want[i])
				}
			}
			ev, err := a.ErrorValue()
			if err != nil {
				t.Fatal(err)
			}
			if ev != tt.wantErr {
				t.Errorf("error = %#x, want %#x", ev, tt.wantErr)
			}
		})
	}
}

func TestNative_ArgumentBuffer(t *testing.T) {
	targets := hostTargets(t)
	h := newNativeHarness(t)

	a := h.bind(t, Config{
		Target: h.place(t, targets.wide),
		Result: abi.Words(1),
		Args:   []abi.Shape{abi.Words(6), abi.Words(1)},
	})
	if a.ArgumentBuffer(0) == 0 {
		t.Fatal("six-slot argument has no buffer")
	}

	for _, tt := range []struct {
		wide []uint64
		x    uint64
		want uint64
	}{
		{[]uint64{100, 1, 2, 3, 4, 5}, 7, 112},
		{[]uint64{1, 0, 0, 0, 0, 1000}, 0, 1001},
	} {
		out, err := a.InvokeOne(context.Background(), ints(tt.wide...), ints(tt.x))
		if err != nil {
			t.Fatal(err)
		}
		if out != tt.want {
			t.Errorf("f(%v, %d) = %v, want %d", tt.wide, tt.x, out, tt.want)
		}
	}
}

func TestNative_IndirectResult(t *testing.T) {
	targets := hostTargets(t)
	h := newNativeHarness(t)

	a := h.bind(t, Config{
		Target: h.place(t, targets.indirect),
		Result: abi.Words(5),
		Args:   []abi.Shape{abi.Words(1), abi.Words(1)},
	})
	if !a.IndirectResult() {
		t.Fatal("five-slot result must be indirect")
	}

	cells, err := a.InvokeCells(context.Background(), ints(105), ints(42))
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{105, 42, 0, 0, 5}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %d, want %d", i, cells[i], want[i])
		}
	}
}
