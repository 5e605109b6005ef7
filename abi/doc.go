// Package abi lowers semantic types and runtime instances to call-site slots.
//
// Lowering happens in two steps. Semantic lowering (Lower) maps a declared
// type to a Shape once, when a function is bound. Physical lowering
// (Materialize) turns a concrete instance into the slot values for one call.
// Decode reads a returned 8-byte cell back into a Go value according to the
// declared slot Kind.
//
// # Contents
//
//   - kind.go: slot kinds, primitive names and the decode table
//   - shape.go: Shape and semantic lowering
//   - materialize.go: physical lowering and word-level buffer helpers
//   - helpers.go: alignment and word arithmetic
package abi
