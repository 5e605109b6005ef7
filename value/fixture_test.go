package value

import (
	"testing"

	"github.com/wippyai/swiftcall/memory"
	"github.com/wippyai/swiftcall/metadata"
)

type fixture struct {
	env    *Env
	table  *metadata.Table
	foo    *metadata.Type // class, conforms to Barable
	point  *metadata.Type // 16-byte POD struct
	big    *metadata.Type // 40-byte POD struct
	opaque *metadata.Type // 16-byte struct, not bitwise-takable
	shape  *metadata.Type // enum { circle(Point), obj(Foo), none }
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	arena := memory.NewArena(0)
	t.Cleanup(func() { _ = arena.Close() })

	mem := memory.Native{}
	table := metadata.NewTable()
	env := &Env{Mem: mem, Alloc: arena, Types: table}

	valueType := func(name string, kind metadata.Kind, addr uintptr, size, stride uint32, takable bool, tagOffset uint32, tagSize uint8) *metadata.Type {
		return &metadata.Type{
			Name: name,
			Kind: kind,
			Metadata: &metadata.StaticMetadata{
				Name:       name,
				Addr:       addr,
				TypeLayout: metadata.Layout{Size: size, Stride: stride, Alignment: 8},
				Witnesses: &metadata.MemoryWitnesses{
					Mem:            mem,
					Size:           size,
					BitwiseTakable: takable,
					TagOffset:      tagOffset,
					TagSize:        tagSize,
				},
			},
			Conformances: map[string]metadata.Conformance{
				"Barable": {WitnessTable: addr + 0x100},
			},
		}
	}

	f := &fixture{env: env, table: table}
	f.foo = &metadata.Type{
		Name: "Foo",
		Kind: metadata.KindClass,
		Metadata: &metadata.StaticMetadata{
			Name:       "Foo",
			Addr:       0x1000,
			Class:      true,
			TypeLayout: metadata.Layout{Size: 8, Stride: 8, Alignment: 8},
		},
		Conformances: map[string]metadata.Conformance{
			"Barable": {WitnessTable: 0xb000},
		},
	}
	f.point = valueType("Point", metadata.KindStruct, 0x2000, 16, 16, true, 0, 0)
	f.big = valueType("Big", metadata.KindStruct, 0x3000, 40, 40, true, 0, 0)
	f.opaque = valueType("Opaque", metadata.KindStruct, 0x4000, 16, 16, false, 0, 0)
	f.shape = valueType("Shape", metadata.KindEnum, 0x5000, 17, 24, true, 16, 1)
	f.shape.PayloadCases = []metadata.EnumCase{
		{Name: "circle", TypeName: "Point"},
		{Name: "obj", TypeName: "Foo"},
	}
	f.shape.EmptyCases = []string{"none"}

	for _, typ := range []*metadata.Type{f.foo, f.point, f.big, f.opaque, f.shape} {
		if err := table.Register(typ); err != nil {
			t.Fatalf("Register(%s): %v", typ.Name, err)
		}
	}
	return f
}

// alloc returns zeroed scratch memory.
func (f *fixture) alloc(t *testing.T, size uint32) uintptr {
	t.Helper()
	addr, err := f.env.Alloc.Alloc(size, 8)
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

func (f *fixture) word(t *testing.T, addr uintptr) uint64 {
	t.Helper()
	v, err := f.env.Mem.ReadU64(addr)
	if err != nil {
		t.Fatal(err)
	}
	return v
}
