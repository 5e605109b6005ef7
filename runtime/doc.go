// Package runtime provides the high-level API for calling swiftcall
// functions from Go.
//
// # Quick Start
//
//	table := metadata.NewTable()
//	_ = table.Register(fooType) // *metadata.Type with metadata and conformances
//
//	rt, err := runtime.New(table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	// func describe(_ value: any Barable) -> any Barable
//	fn, err := rt.Bind(addr, metadata.Protocol{Name: "Barable"},
//	    []metadata.Semantic{metadata.Protocol{Name: "Barable"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	obj, _ := value.WrapObject(rt.Env(), handle, fooType)
//	result, err := fn.Call(ctx, obj)
//
// # Binding
//
// Bind lowers the declared result and parameter types once and emits an
// adapter for the target. Options select the convention's special
// registers:
//
//	WithContext(addr) - pass addr as the context (self) value
//	WithErrorSlot()   - capture the error register; read it with Function.Err
//
// BindRaw skips semantic types and works with slot shapes directly.
//
// # Protocol values
//
// A protocol-typed parameter is packed into an existential container: the
// runtime resolves the instance's dynamic type by name, looks up its
// conformance and stores the value inline, boxed, or as an object
// reference. A protocol-typed result is unpacked the same way in reverse.
//
// # Memory
//
// Arguments, results and constructed values are allocated from an arena
// that lives until Close. Calls on one Function are serialized.
package runtime
