// Package errors provides structured error types for the swiftcall library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: slot path, Go/Swift type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindInvalidTag).
//		Path("Shape", "circle").
//		SwiftType("Shape").
//		Value(3).
//		Detail("tag 3 out of range").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseEncode, path, "*value.StructValue", "Foo")
//	err := errors.InvalidTag(errors.PhaseConstruct, "Shape", 3, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
