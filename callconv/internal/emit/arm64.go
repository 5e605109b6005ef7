package emit

import "encoding/binary"

// Registers used by the arm64 adapter.
const (
	x0  = 0
	x1  = 1
	x2  = 2
	x3  = 3
	x8  = 8  // indirect result
	x16 = 16 // ip0, scratch
	x17 = 17 // ip1, call target
	x20 = 20 // swiftself
	x21 = 21 // swifterror
	x29 = 29
	x30 = 30
	xzr = 31
)

const (
	insnRet = 0xD65F03C0
	insnNop = 0xD503201F
)

// a64 assembles 32-bit instructions followed by a pool of 64-bit literals
// addressed with LDR (literal).
type a64 struct {
	code   []uint32
	lits   []uint64
	fixups []a64Fixup
}

type a64Fixup struct {
	insn int
	lit  int
}

func (a *a64) op(w uint32) { a.code = append(a.code, w) }

// ldr loads a 64-bit constant into rt from the literal pool.
func (a *a64) ldr(rt uint32, v uint64) {
	lit := -1
	for i, x := range a.lits {
		if x == v {
			lit = i
			break
		}
	}
	if lit < 0 {
		lit = len(a.lits)
		a.lits = append(a.lits, v)
	}
	a.fixups = append(a.fixups, a64Fixup{insn: len(a.code), lit: lit})
	a.op(0x58000000 | rt)
}

// stp stores rt, rt2 at [rn, #off].
func (a *a64) stp(rt, rt2, rn uint32, off int32) {
	a.op(0xA9000000 | uint32(off/8)&0x7F<<15 | rt2<<10 | rn<<5 | rt)
}

// ldp loads rt, rt2 from [rn, #off].
func (a *a64) ldp(rt, rt2, rn uint32, off int32) {
	a.op(0xA9400000 | uint32(off/8)&0x7F<<15 | rt2<<10 | rn<<5 | rt)
}

// str stores rt at [rn, #off].
func (a *a64) str(rt, rn uint32, off uint32) {
	a.op(0xF9000000 | (off/8)&0xFFF<<10 | rn<<5 | rt)
}

// mov copies rm into rd (orr rd, xzr, rm).
func (a *a64) mov(rd, rm uint32) {
	a.op(0xAA0003E0 | rm<<16 | rd)
}

func (a *a64) blr(rn uint32) { a.op(0xD63F0000 | rn<<5) }

// bytes resolves literal references and lays out the pool 8-byte aligned.
func (a *a64) bytes() []byte {
	if len(a.code)%2 != 0 {
		a.op(insnNop)
	}
	pool := len(a.code)
	for _, f := range a.fixups {
		words := uint32(pool + 2*f.lit - f.insn)
		a.code[f.insn] |= (words & 0x7FFFF) << 5
	}

	out := make([]byte, 0, 4*len(a.code)+8*len(a.lits))
	for _, w := range a.code {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	for _, v := range a.lits {
		out = binary.LittleEndian.AppendUint64(out, v)
	}
	return out
}

func arm64Adapter(p Program) []byte {
	var a a64

	a.ldr(x16, uint64(p.Scratch))
	a.stp(x29, x30, x16, 0)
	a.stp(x20, x21, x16, 16)
	if p.HasContext {
		a.ldr(x20, uint64(p.Context))
	}
	if p.ErrorSlot != 0 {
		a.mov(x21, xzr)
	}
	if p.IndirectResult != 0 {
		a.ldr(x8, uint64(p.IndirectResult))
	}
	a.ldr(x17, uint64(p.Target))
	a.blr(x17)

	if p.ErrorSlot != 0 {
		a.ldr(x16, uint64(p.ErrorSlot))
		a.str(x21, x16, 0)
	}
	if p.IndirectResult == 0 && p.ResultSlots > 0 {
		a.ldr(x16, uint64(p.ReturnBuffer))
		n := uint32(p.ResultSlots)
		r := uint32(x0)
		for ; r+1 < n; r += 2 {
			a.stp(r, r+1, x16, int32(8*r))
		}
		if r < n {
			a.str(r, x16, 8*r)
		}
	}

	a.ldr(x16, uint64(p.Scratch))
	a.ldp(x20, x21, x16, 16)
	a.ldp(x29, x30, x16, 0)
	a.op(insnRet)
	return a.bytes()
}

// ARM64CacheFlush returns a routine that cleans the data cache and
// invalidates the instruction cache for [x0, x1). x0 must be 16-byte
// aligned; lines are walked in 16-byte steps, the smallest line size the
// architecture allows.
func ARM64CacheFlush() []byte {
	words := []uint32{
		0xAA0003E2, // mov x2, x0
		0xD50B7B22, // dc cvau, x2
		0x91004042, // add x2, x2, #16
		0xEB01005F, // cmp x2, x1
		0x54FFFFA3, // b.lo -3
		0xD5033B9F, // dsb ish
		0xAA0003E2, // mov x2, x0
		0xD50B7522, // ic ivau, x2
		0x91004042, // add x2, x2, #16
		0xEB01005F, // cmp x2, x1
		0x54FFFFA3, // b.lo -3
		0xD5033B9F, // dsb ish
		0xD5033FDF, // isb
		insnRet,
	}
	out := make([]byte, 0, 4*len(words))
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}
