// Package memory provides native memory access for the swiftcall library.
//
// # Native Memory
//
// Native implements swiftcall.Memory over raw process addresses:
//
//	mem := memory.Native{}
//	v, err := mem.ReadU64(handle)
//
// Addresses are not validated beyond the null check. Reading or writing an
// address that is not mapped crashes the process, as any native access would.
//
// # Arena
//
// Arena implements swiftcall.Allocator as a bump allocator over anonymous
// mmap'd chunks. Memory handed out by an Arena is never moved or collected by
// the Go runtime, which makes it safe to hand to foreign code:
//
//	arena := memory.NewArena(0)
//	defer arena.Close()
//	buf, err := arena.Alloc(48, 8)
package memory
