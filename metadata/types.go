package metadata

import "fmt"

// Kind is the runtime category of a Swift type.
type Kind uint8

const (
	KindClass Kind = iota
	KindStruct
	KindEnum
)

var kindNames = [...]string{
	KindClass:  "class",
	KindStruct: "struct",
	KindEnum:   "enum",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsValue reports whether instances of the kind are value types.
func (k Kind) IsValue() bool {
	return k == KindStruct || k == KindEnum
}

// Layout is the memory layout of a type as recorded in its value witnesses.
type Layout struct {
	Size      uint32
	Stride    uint32
	Alignment uint32
}

// Description is the part of the nominal type descriptor swiftcall needs.
type Description struct {
	Name string
}

// ValueWitnesses are the value-witness operations of a type.
type ValueWitnesses interface {
	IsBitwiseTakable() bool
	// InitializeWithCopy copy-initializes the value at dst from the value at src.
	InitializeWithCopy(dst, src uintptr) error
	// GetEnumTag reads the case index of the enum value at handle.
	GetEnumTag(handle uintptr) (uint32, error)
	// InjectEnumTag rewrites the case index of the enum value at handle in place.
	InjectEnumTag(handle uintptr, tag uint32) error
}

// TypeMetadata is the runtime metadata record of a type.
type TypeMetadata interface {
	Address() uintptr
	Layout() Layout
	ValueWitnesses() ValueWitnesses
	IsClassObject() bool
	Description() Description
}

// Conformance records that a type conforms to a protocol.
type Conformance struct {
	WitnessTable uintptr
}

// EnumCase is a payload-carrying enum case.
type EnumCase struct {
	Name string
	// TypeName is the registry name of the payload type.
	TypeName string
}

// Semantic is the closed set of types a bound function may declare.
type Semantic interface {
	semantic()
	SemanticName() string
}

// Type is a registered class, struct or enum.
type Type struct {
	Metadata     TypeMetadata
	Conformances map[string]Conformance
	Name         string
	PayloadCases []EnumCase
	EmptyCases   []string
	Kind         Kind
}

func (*Type) semantic() {}

// SemanticName returns the type name.
func (t *Type) SemanticName() string { return t.Name }

// Conformance returns the witness table for protocol.
func (t *Type) Conformance(protocol string) (Conformance, bool) {
	c, ok := t.Conformances[protocol]
	return c, ok
}

// NumCases returns the number of enum cases, payload cases first.
func (t *Type) NumCases() int {
	return len(t.PayloadCases) + len(t.EmptyCases)
}

// IsBitwiseTakable reports the witness flag, treating classes as takable.
func (t *Type) IsBitwiseTakable() bool {
	if t.Kind == KindClass {
		return true
	}
	return t.Metadata.ValueWitnesses().IsBitwiseTakable()
}

// Stride returns the layout stride of the type.
func (t *Type) Stride() uint32 {
	return t.Metadata.Layout().Stride
}

func (t *Type) String() string {
	return fmt.Sprintf("%s %s", t.Kind, t.Name)
}

// Protocol is an existential "any Name".
type Protocol struct {
	Name string
}

func (Protocol) semantic() {}

// SemanticName returns "any Name".
func (p Protocol) SemanticName() string { return "any " + p.Name }

// Registry maps stable type identifiers to types.
type Registry interface {
	TypeByName(name string) (*Type, error)
	MetadataAt(addr uintptr) (TypeMetadata, error)
}

// HeapInspector reads the dynamic class of a heap object.
type HeapInspector interface {
	ClassMetadataOf(handle uintptr) (TypeMetadata, error)
}
