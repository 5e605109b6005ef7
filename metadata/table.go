package metadata

import (
	"sync"

	"github.com/wippyai/swiftcall/errors"
)

var _ Registry = (*Table)(nil)

// Table is an in-memory Registry keyed by type name and metadata address.
// Thread-safe.
type Table struct {
	byName map[string]*Type
	byAddr map[uintptr]*Type
	mu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byName: make(map[string]*Type),
		byAddr: make(map[uintptr]*Type),
	}
}

// Register adds a type. Names and metadata addresses must be unique.
func (t *Table) Register(typ *Type) error {
	if typ == nil {
		return errors.NilPointer(errors.PhaseLookup, nil, "*metadata.Type")
	}
	if typ.Name == "" {
		return errors.InvalidInput(errors.PhaseLookup, "type name is empty")
	}
	if typ.Metadata == nil {
		return errors.New(errors.PhaseLookup, errors.KindNilPointer).
			SwiftType(typ.Name).
			Detail("type has no metadata").
			Build()
	}
	if (typ.Kind == KindClass) != typ.Metadata.IsClassObject() {
		return errors.New(errors.PhaseLookup, errors.KindTypeMismatch).
			SwiftType(typ.Name).
			Detail("kind %s disagrees with metadata", typ.Kind).
			Build()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byName[typ.Name]; exists {
		return errors.New(errors.PhaseLookup, errors.KindInvalidInput).
			SwiftType(typ.Name).
			Detail("type already registered").
			Build()
	}
	addr := typ.Metadata.Address()
	if addr != 0 {
		if other, exists := t.byAddr[addr]; exists {
			return errors.New(errors.PhaseLookup, errors.KindInvalidInput).
				SwiftType(typ.Name).
				Detail("metadata %#x already registered for %s", addr, other.Name).
				Build()
		}
		t.byAddr[addr] = typ
	}
	t.byName[typ.Name] = typ
	return nil
}

// TypeByName looks a type up by its stable name.
func (t *Table) TypeByName(name string) (*Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typ, ok := t.byName[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLookup, "type", name)
	}
	return typ, nil
}

// TypeAt looks a type up by metadata address.
func (t *Table) TypeAt(addr uintptr) (*Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typ, ok := t.byAddr[addr]
	if !ok {
		return nil, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Detail("no type with metadata %#x", addr).
			Value(addr).
			Build()
	}
	return typ, nil
}

// MetadataAt returns the metadata record registered at addr.
func (t *Table) MetadataAt(addr uintptr) (TypeMetadata, error) {
	typ, err := t.TypeAt(addr)
	if err != nil {
		return nil, err
	}
	return typ.Metadata, nil
}

// Len returns the number of registered types.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byName)
}
