// Package callconv adapts the generic native call mechanism to the
// swiftcall convention.
//
// An Adapter is built once per bound function. Construction allocates the
// buffers the call needs (argument buffers for wide arguments, a return
// buffer, a scratch save area and an optional error cell), emits a small
// machine-code adapter for the host architecture and places it in a
// trampoline pool. Invoke then passes slots through the platform C
// convention to the adapter, which loads the swiftcall registers, calls the
// target and spills the result registers for decoding.
//
// # Argument and result passing
//
// A shape of up to four slots travels in registers. A wider argument is
// copied into its reusable argument buffer and the call site passes the
// buffer address as one pointer slot. A wider result is written by the
// callee into the return buffer, whose address goes in the indirect-result
// register.
//
// # Concurrency
//
// Invocations of one Adapter are serialized. Different adapters may be
// invoked concurrently.
package callconv
