// Package swiftcall lets Go call functions compiled against the Swift calling
// convention and exchange Swift values with them.
//
// The C calling convention reachable from Go (through purego) cannot place a
// context in the swiftself register, receive a thrown error through
// swifterror, or pass an indirect result in the dedicated register. This
// library generates a small machine-code adapter per bound function that does
// exactly that, and provides the value model needed to build and decode the
// Swift-side representation of arguments and results.
//
// # Architecture Overview
//
//	swiftcall/          Root package with Slot, Memory and Allocator
//	├── runtime/        High-level API: Runtime.Bind and Function.Call
//	├── callconv/       Per-function trampolines and the slot-level Invoke
//	├── trampoline/     Bump allocator over executable pages
//	├── abi/            Semantic and physical lowering, primitive decoding
//	├── value/          Struct, enum, object and existential values
//	├── metadata/       Interfaces to type metadata and a lookup table
//	├── memory/         Native memory access and the scratch arena
//	└── errors/         Structured error types for debugging
//
// # Quick Start
//
//	table := metadata.NewTable()
//	table.Register(pointType) // filled from a metadata parser
//
//	rt, err := runtime.New(table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	fn, err := rt.Bind(addr, pointType, []metadata.Semantic{pointType})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := fn.Call(ctx, in)
//
// # Lowering
//
// A value whose stride fits in four 8-byte slots and which is bitwise-takable
// travels in registers. Anything else is passed by address. Protocol-typed
// values travel as a five-slot existential container.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Calls through one Function are
// serialized because the adapter's scratch and result buffers are shared by
// every invocation of that function.
//
// Supported targets are linux/arm64 and linux/amd64.
package swiftcall
