// Package emit generates the machine code of calling-convention adapters.
//
// An adapter is entered through the platform C convention and calls a
// target that expects the swiftcall convention: a context register, an
// error register, an indirect-result register and up to four result
// registers. Constant addresses are baked into the code, so every adapter
// is specific to one bound function.
//
// The adapter keeps the caller's stack untouched. Frame and link state and
// the callee-saved registers it repurposes are parked in a caller-provided
// scratch buffer instead, so stack-passed arguments stay where the caller
// put them.
package emit
