package value

import (
	"errors"
	"testing"

	"github.com/wippyai/swiftcall"
	swerrors "github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/memory"
)

func TestFitsInline(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		typ  string
		want bool
	}{
		{"class", "Foo", true},
		{"small pod", "Point", true},
		{"too big", "Big", false},
		{"not takable", "Opaque", false},
		{"enum", "Shape", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := f.table.TypeByName(tt.typ)
			if err != nil {
				t.Fatal(err)
			}
			if got := FitsInline(typ); got != tt.want {
				t.Errorf("FitsInline(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestExistential_ObjectRoundTrip(t *testing.T) {
	f := newFixture(t)
	obj, err := WrapObject(f.env, 0xabc0, f.foo)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewExistential(f.env)
	if err != nil {
		t.Fatal(err)
	}
	conf, _ := f.foo.Conformance("Barable")
	if err := c.Store(f.env, obj, conf); err != nil {
		t.Fatal(err)
	}

	words, err := c.Words(f.env.Mem)
	if err != nil {
		t.Fatal(err)
	}
	want := [ExistentialWords]uint64{0xabc0, 0, 0, 0x1000, 0xb000}
	if words != want {
		t.Errorf("words = %#x, want %#x", words, want)
	}
	if wt, _ := c.WitnessTable(f.env.Mem); wt != 0xb000 {
		t.Errorf("WitnessTable = %#x", wt)
	}

	opened, err := c.Open(f.env)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := opened.(*ObjectInstance)
	if !ok {
		t.Fatalf("Open returned %T", opened)
	}
	if !got.Equal(obj) || got.Type() != f.foo {
		t.Errorf("opened %v, want %v", got, obj)
	}
}

func TestExistential_InlineValue(t *testing.T) {
	f := newFixture(t)
	p, err := NewStruct(f.env, f.point, []swiftcall.Slot{swiftcall.IntSlot(3), swiftcall.IntSlot(4)})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewExistential(f.env)
	conf, _ := f.point.Conformance("Barable")
	if err := c.Store(f.env, p, conf); err != nil {
		t.Fatal(err)
	}
	if c.Box() != 0 {
		t.Errorf("inline value should not be boxed, box = %#x", c.Box())
	}

	words, _ := c.Words(f.env.Mem)
	want := [ExistentialWords]uint64{3, 4, 0, 0x2000, 0x2100}
	if words != want {
		t.Errorf("words = %#x, want %#x", words, want)
	}

	opened, err := c.Open(f.env)
	if err != nil {
		t.Fatal(err)
	}
	if opened.Handle() == c.Address() || opened.Handle() == p.Handle() {
		t.Error("Open must copy the value out of the container")
	}
	if f.word(t, opened.Handle()) != 3 || f.word(t, opened.Handle()+8) != 4 {
		t.Error("opened value differs from stored value")
	}
}

func TestExistential_BoxedValue(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name     string
		typeName string
		fields   []swiftcall.Slot
	}{
		{"too big", "Big", []swiftcall.Slot{
			swiftcall.IntSlot(1), swiftcall.IntSlot(2), swiftcall.IntSlot(3),
			swiftcall.IntSlot(4), swiftcall.IntSlot(5),
		}},
		{"not takable", "Opaque", []swiftcall.Slot{swiftcall.IntSlot(9), swiftcall.AddrSlot(0x77)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, _ := f.table.TypeByName(tt.typeName)
			v, err := NewStruct(f.env, typ, tt.fields)
			if err != nil {
				t.Fatal(err)
			}
			c, _ := NewExistential(f.env)
			conf, _ := typ.Conformance("Barable")
			if err := c.Store(f.env, v, conf); err != nil {
				t.Fatal(err)
			}
			if c.Box() == 0 {
				t.Fatal("value should be boxed")
			}
			if f.word(t, c.Address()) != uint64(c.Box()) {
				t.Error("inline word 0 should hold the box address")
			}
			for i, s := range tt.fields {
				if got := f.word(t, c.Box()+uintptr(i*8)); got != s.Uint64() {
					t.Errorf("box word %d = %#x, want %#x", i, got, s.Uint64())
				}
			}

			opened, err := c.Open(f.env)
			if err != nil {
				t.Fatal(err)
			}
			if opened.Type() != typ || opened.Handle() == c.Box() {
				t.Errorf("opened %v", opened)
			}
			for i, s := range tt.fields {
				if got := f.word(t, opened.Handle()+uintptr(i*8)); got != s.Uint64() {
					t.Errorf("opened word %d = %#x, want %#x", i, got, s.Uint64())
				}
			}
		})
	}
}

func TestExistential_SetWords(t *testing.T) {
	f := newFixture(t)
	c, _ := NewExistential(f.env)

	// Registers returned for an "any Barable" holding a Foo.
	in := [ExistentialWords]uint64{0xdef0, 0, 0, 0x1000, 0xb000}
	if err := c.SetWords(f.env.Mem, in); err != nil {
		t.Fatal(err)
	}
	out, _ := c.Words(f.env.Mem)
	if out != in {
		t.Errorf("Words = %#x, want %#x", out, in)
	}
	opened, err := c.Open(f.env)
	if err != nil {
		t.Fatal(err)
	}
	if opened.Handle() != 0xdef0 {
		t.Errorf("opened handle = %#x", opened.Handle())
	}

	at := ExistentialAt(c.Address())
	if wt, _ := at.WitnessTable(f.env.Mem); wt != 0xb000 {
		t.Errorf("ExistentialAt view witness table = %#x", wt)
	}
}

func TestExistential_OpenUnknownType(t *testing.T) {
	f := newFixture(t)
	c, _ := NewExistential(f.env)
	_ = c.SetWords(f.env.Mem, [ExistentialWords]uint64{0, 0, 0, 0x9999, 0})
	if _, err := c.Open(f.env); err == nil {
		t.Error("expected error for unknown metadata")
	}
}

func TestExistentialWords_NullContainer(t *testing.T) {
	_, err := ExistentialAt(0).Words(memory.Native{})
	if !errors.Is(err, &swerrors.Error{Phase: swerrors.PhaseDecode, Kind: swerrors.KindInvalidData}) {
		t.Fatalf("got %v, want invalid data", err)
	}
	var se *swerrors.Error
	if !errors.As(err, &se) || len(se.Path) != 1 || se.Path[0] != "word0" {
		t.Errorf("path = %v, want [word0]", se.Path)
	}
}
