// Package metadata defines the narrow interfaces through which swiftcall
// consumes Swift type metadata.
//
// Parsing metadata records and value-witness tables is not this library's
// job. A parser (or a test) describes each type as a *Type carrying a
// TypeMetadata, registers it in a Registry, and the rest of the library works
// purely through these interfaces.
//
// # Semantic Types
//
// Semantic is the closed set of types a bound function can declare:
//
//	*Type      a class, struct or enum
//	Protocol   an existential "any P"
//
// # Lookup Table
//
// Table is an in-memory Registry keyed by stable type name and by metadata
// address:
//
//	table := metadata.NewTable()
//	table.Register(&metadata.Type{Name: "Point", Kind: metadata.KindStruct, Metadata: md})
//	t, err := table.TypeByName("Point")
//
// # Memory-backed Collaborators
//
// StaticMetadata, MemoryWitnesses and MemoryHeap implement the interfaces
// for plain-old-data layouts by copying bytes through a swiftcall.Memory.
// They are enough to drive functions that only exchange trivial values.
package metadata
