package abi

import (
	"errors"
	"strings"
	"testing"

	swerrors "github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/memory"
)

func TestDecode(t *testing.T) {
	mem := memory.Native{}
	tests := []struct {
		kind Kind
		cell uint64
		want any
	}{
		{U64, 0xffffffffffffffff, uint64(0xffffffffffffffff)},
		{Ulong, 42, uint64(42)},
		{Uint64, 7, uint64(7)},
		{Pointer, 0xdead0000, uintptr(0xdead0000)},
		{Int, 0xffffffff, int32(-1)},
		{Int32, 0x1_0000_0005, int32(5)},
		{Uint, 0xffffffff, uint32(0xffffffff)},
		{Uint32, 0x1_0000_0005, uint32(5)},
		{Long, 0xfffffffffffffffe, int64(-2)},
		{Int64, 3, int64(3)},
		{Int8, 0x80, int8(-128)},
		{Uint8, 0x1ff, uint8(0xff)},
		{Int16, 0xffff, int16(-1)},
		{Uint16, 0x12345, uint16(0x2345)},
		{Bool, 1, true},
		{Bool, 0x100, false},
		{String, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := Decode(mem, tt.kind, tt.cell)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Decode(%s, %#x) = %v (%T), want %v (%T)", tt.kind, tt.cell, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestDecode_String(t *testing.T) {
	arena := memory.NewArena(0)
	defer arena.Close()
	mem := memory.Native{}

	addr, err := arena.Alloc(16, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := mem.Write(addr, []byte("hello\x00")); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(mem, String, uint64(addr))
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("Decode(String) = %q", got)
	}
}

func TestDecode_Unimplemented(t *testing.T) {
	for _, k := range []Kind{Float, Double, Kind(200)} {
		t.Run(k.String(), func(t *testing.T) {
			_, err := Decode(memory.Native{}, k, 0)
			if !errors.Is(err, &swerrors.Error{Phase: swerrors.PhaseDecode, Kind: swerrors.KindUnsupported}) {
				t.Fatalf("expected unsupported decode error, got %v", err)
			}
			if !strings.Contains(err.Error(), "unimplemented type") {
				t.Errorf("error should name unimplemented type: %v", err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"pointer", Pointer},
		{"ptr", Pointer},
		{"string", String},
		{"int", Int},
		{"ulong", Ulong},
		{"int8", Int8},
		{"uint64", Uint64},
		{"bool", Bool},
		{"u64", U64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKind(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}

	if _, err := ParseKind("quad"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
