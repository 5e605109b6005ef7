package emit

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func imm64(op []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(append([]byte(nil), op...), v)
}

func join(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestAMD64Adapter_Direct(t *testing.T) {
	p := Program{
		Target:       0x1111_2222_3333,
		Scratch:      0x4000,
		ReturnBuffer: 0x5000,
		ResultSlots:  4,
	}
	code, err := Adapter(AMD64, p)
	if err != nil {
		t.Fatal(err)
	}

	want := join(
		imm64([]byte{0x49, 0xBB}, 0x4000),
		[]byte{0x41, 0x5A},
		[]byte{0x4D, 0x89, 0x13},
		[]byte{0x4D, 0x89, 0x63, 0x08},
		[]byte{0x4D, 0x89, 0x6B, 0x10},
		imm64([]byte{0x49, 0xBB}, 0x1111_2222_3333),
		[]byte{0x41, 0xFF, 0xD3},
		imm64([]byte{0x49, 0xBB}, 0x5000),
		[]byte{0x49, 0x89, 0x03},
		[]byte{0x49, 0x89, 0x53, 0x08},
		[]byte{0x49, 0x89, 0x4B, 0x10},
		[]byte{0x4D, 0x89, 0x43, 0x18},
		imm64([]byte{0x49, 0xBB}, 0x4000),
		[]byte{0x4D, 0x8B, 0x63, 0x08},
		[]byte{0x4D, 0x8B, 0x6B, 0x10},
		[]byte{0x41, 0xFF, 0x33},
		[]byte{0xC3},
	)
	if !bytes.Equal(code, want) {
		t.Errorf("code mismatch\n got: % x\nwant: % x", code, want)
	}
}

func TestAMD64Adapter_ResultStores(t *testing.T) {
	prologue := join(
		imm64([]byte{0x49, 0xBB}, 0x4000),
		[]byte{0x41, 0x5A},
		[]byte{0x4D, 0x89, 0x13},
		[]byte{0x4D, 0x89, 0x63, 0x08},
		[]byte{0x4D, 0x89, 0x6B, 0x10},
		imm64([]byte{0x49, 0xBB}, 0x1000),
		[]byte{0x41, 0xFF, 0xD3},
	)
	epilogue := join(
		imm64([]byte{0x49, 0xBB}, 0x4000),
		[]byte{0x4D, 0x8B, 0x63, 0x08},
		[]byte{0x4D, 0x8B, 0x6B, 0x10},
		[]byte{0x41, 0xFF, 0x33},
		[]byte{0xC3},
	)
	buffer := imm64([]byte{0x49, 0xBB}, 0x5000)

	tests := []struct {
		name   string
		slots  int
		stores []byte
	}{
		{"none", 0, nil},
		{"one", 1, join(buffer, []byte{0x49, 0x89, 0x03})},
		{"three", 3, join(buffer,
			[]byte{0x49, 0x89, 0x03},
			[]byte{0x49, 0x89, 0x53, 0x08},
			[]byte{0x49, 0x89, 0x4B, 0x10},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Program{Target: 0x1000, Scratch: 0x4000, ResultSlots: tt.slots}
			if tt.slots > 0 {
				p.ReturnBuffer = 0x5000
			}
			code, err := Adapter(AMD64, p)
			if err != nil {
				t.Fatal(err)
			}
			want := join(prologue, tt.stores, epilogue)
			if !bytes.Equal(code, want) {
				t.Errorf("code mismatch\n got: % x\nwant: % x", code, want)
			}
		})
	}
}

func TestAMD64Adapter_AllRegisters(t *testing.T) {
	p := Program{
		Target:         0x1000,
		Scratch:        0x2000,
		IndirectResult: 0x3000,
		ErrorSlot:      0x4000,
		Context:        0x5000,
		HasContext:     true,
	}
	code, err := Adapter(AMD64, p)
	if err != nil {
		t.Fatal(err)
	}

	want := join(
		imm64([]byte{0x49, 0xBB}, 0x2000),
		[]byte{0x41, 0x5A},
		[]byte{0x4D, 0x89, 0x13},
		[]byte{0x4D, 0x89, 0x63, 0x08},
		[]byte{0x4D, 0x89, 0x6B, 0x10},
		imm64([]byte{0x49, 0xBD}, 0x5000),
		[]byte{0x45, 0x31, 0xE4},
		imm64([]byte{0x48, 0xB8}, 0x3000),
		imm64([]byte{0x49, 0xBB}, 0x1000),
		[]byte{0x41, 0xFF, 0xD3},
		imm64([]byte{0x49, 0xBB}, 0x4000),
		[]byte{0x4D, 0x89, 0x23},
		imm64([]byte{0x49, 0xBB}, 0x2000),
		[]byte{0x4D, 0x8B, 0x63, 0x08},
		[]byte{0x4D, 0x8B, 0x6B, 0x10},
		[]byte{0x41, 0xFF, 0x33},
		[]byte{0xC3},
	)
	if !bytes.Equal(code, want) {
		t.Errorf("code mismatch\n got: % x\nwant: % x", code, want)
	}
}

func TestAdapter_Validate(t *testing.T) {
	tests := []struct {
		name string
		arch Arch
		p    Program
	}{
		{"no target", AMD64, Program{Scratch: 1, ReturnBuffer: 1, ResultSlots: 1}},
		{"no scratch", ARM64, Program{Target: 1, ReturnBuffer: 1, ResultSlots: 1}},
		{"no result buffer", AMD64, Program{Target: 1, Scratch: 1, ResultSlots: 2}},
		{"too many result slots", ARM64, Program{Target: 1, Scratch: 1, ReturnBuffer: 1, ResultSlots: 5}},
		{"negative result slots", AMD64, Program{Target: 1, Scratch: 1, ReturnBuffer: 1, ResultSlots: -1}},
		{"unknown arch", Arch("riscv64"), Program{Target: 1, Scratch: 1, ReturnBuffer: 1, ResultSlots: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Adapter(tt.arch, tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestArch_Supported(t *testing.T) {
	if !ARM64.Supported() || !AMD64.Supported() {
		t.Error("arm64 and amd64 must be supported")
	}
	if Arch("386").Supported() {
		t.Error("386 is not supported")
	}
}
