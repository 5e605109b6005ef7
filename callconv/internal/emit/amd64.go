package emit

import "encoding/binary"

// x86 assembles raw amd64 bytes.
type x86 struct {
	buf []byte
}

func (w *x86) emitBytes(bs ...byte) { w.buf = append(w.buf, bs...) }

func (w *x86) emitU64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// movR11 loads an immediate into r11.
func (w *x86) movR11(v uintptr) {
	w.emitBytes(0x49, 0xBB)
	w.emitU64(uint64(v))
}

// amd64ResultStores spill the result registers in order.
var amd64ResultStores = [ResultRegisters][]byte{
	{0x49, 0x89, 0x03},       // mov [r11], rax
	{0x49, 0x89, 0x53, 0x08}, // mov [r11+8], rdx
	{0x49, 0x89, 0x4B, 0x10}, // mov [r11+16], rcx
	{0x4D, 0x89, 0x43, 0x18}, // mov [r11+24], r8
}

// The adapter runs between a SysV caller and a swiftcall callee: r13 holds
// the context, r12 the error, rax the indirect result, and results come
// back in rax, rdx, rcx, r8. The return address is popped into the scratch
// buffer, which leaves stack arguments in place for the callee and keeps
// the stack 16-byte aligned at the inner call.
func amd64Adapter(p Program) []byte {
	var w x86

	w.movR11(p.Scratch)
	w.emitBytes(0x41, 0x5A)             // pop r10
	w.emitBytes(0x4D, 0x89, 0x13)       // mov [r11], r10
	w.emitBytes(0x4D, 0x89, 0x63, 0x08) // mov [r11+8], r12
	w.emitBytes(0x4D, 0x89, 0x6B, 0x10) // mov [r11+16], r13

	if p.HasContext {
		w.emitBytes(0x49, 0xBD) // mov r13, imm64
		w.emitU64(uint64(p.Context))
	}
	if p.ErrorSlot != 0 {
		w.emitBytes(0x45, 0x31, 0xE4) // xor r12d, r12d
	}
	if p.IndirectResult != 0 {
		w.emitBytes(0x48, 0xB8) // mov rax, imm64
		w.emitU64(uint64(p.IndirectResult))
	}
	w.movR11(p.Target)
	w.emitBytes(0x41, 0xFF, 0xD3) // call r11

	if p.ErrorSlot != 0 {
		w.movR11(p.ErrorSlot)
		w.emitBytes(0x4D, 0x89, 0x23) // mov [r11], r12
	}
	if p.IndirectResult == 0 && p.ResultSlots > 0 {
		w.movR11(p.ReturnBuffer)
		for _, st := range amd64ResultStores[:p.ResultSlots] {
			w.emitBytes(st...)
		}
	}

	w.movR11(p.Scratch)
	w.emitBytes(0x4D, 0x8B, 0x63, 0x08) // mov r12, [r11+8]
	w.emitBytes(0x4D, 0x8B, 0x6B, 0x10) // mov r13, [r11+16]
	w.emitBytes(0x41, 0xFF, 0x33)       // push qword [r11]
	w.emitBytes(0xC3)                   // ret
	return w.buf
}
