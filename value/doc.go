// Package value realizes Swift values over raw memory.
//
// An Instance pairs a memory handle with the type it holds:
//
//	*ObjectInstance   reference to a heap object (handle is the object pointer)
//	*StructValue      struct stored at handle
//	*EnumValue        enum stored at handle, with decoded tag and payload
//
// Instances are created either by wrapping an existing handle, which copies
// nothing, or by serializing into a fresh buffer from the Env's Allocator.
// The library never destroys values; buffer and object lifetime belong to
// the allocator and to Swift's reference counting.
//
// Equality between instances is representation equality: two instances are
// equal when they refer to the same handle (and, for enums, hold the same
// tag). Two structs with identical contents at different addresses are not
// equal.
//
// # Existential Containers
//
// ExistentialContainer is the five-word box Swift uses for "any P" values:
// three words of inline storage followed by the type metadata and the
// protocol witness table. Classes store their reference inline. Values store
// themselves inline when they are bitwise-takable and fit in three words;
// anything else goes into a separately allocated box whose address is kept
// in the first inline word.
//
// # Enum Mutation
//
// Changing an enum's case rewrites its buffer in place. It requires an
// exclusive borrow:
//
//	m, err := e.Borrow()
//	if err != nil {
//	    return err
//	}
//	defer m.Release()
//	err = m.SetContent(tag, payload)
package value
