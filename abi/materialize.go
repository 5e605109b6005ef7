package abi

import (
	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/value"
)

// Materialize produces the slots for one concrete argument.
//
// Objects and values that are not bitwise-takable pass their handle. An
// existential container passes its five words. Other values are flattened
// into ceil(stride/8) integer slots, with a trailing partial word
// zero-padded.
func Materialize(mem swiftcall.Memory, v value.Lowerable) ([]swiftcall.Slot, error) {
	switch v := v.(type) {
	case nil:
		return nil, errors.NilPointer(errors.PhaseEncode, nil, "value.Lowerable")
	case *value.ObjectInstance:
		return []swiftcall.Slot{swiftcall.AddrSlot(v.Handle())}, nil
	case *value.ExistentialContainer:
		words, err := v.Words(mem)
		if err != nil {
			return nil, err
		}
		slots := make([]swiftcall.Slot, len(words))
		for i, w := range words {
			slots[i] = swiftcall.IntSlot(w)
		}
		return slots, nil
	case value.Instance:
		t := v.Type()
		if t == nil {
			return nil, errors.NilPointer(errors.PhaseEncode, nil, "*metadata.Type")
		}
		if !t.IsBitwiseTakable() {
			return []swiftcall.Slot{swiftcall.AddrSlot(v.Handle())}, nil
		}
		return flattenValue(mem, v.Handle(), t.Stride())
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, "cannot materialize "+TypeName(v))
	}
}

// Flatten reads n 8-byte slots starting at addr.
func Flatten(mem swiftcall.Memory, addr uintptr, n int) ([]swiftcall.Slot, error) {
	slots := make([]swiftcall.Slot, n)
	for i := range slots {
		w, err := mem.ReadU64(addr + uintptr(i*swiftcall.WordSize))
		if err != nil {
			e := errors.OutOfBounds(errors.PhaseEncode, []string{"slots"}, i, n)
			e.Cause = err
			return nil, e
		}
		slots[i] = swiftcall.IntSlot(w)
	}
	return slots, nil
}

// Spill writes slots word by word starting at addr.
func Spill(mem swiftcall.Memory, addr uintptr, slots []swiftcall.Slot) error {
	for i, s := range slots {
		var w uint64
		switch s.Kind() {
		case swiftcall.SlotInt:
			w = s.Uint64()
		case swiftcall.SlotAddr:
			p, _ := s.Addr()
			w = uint64(p)
		default:
			return errors.Unsupported(errors.PhaseEncode, "slot kind "+s.Kind().String())
		}
		if err := mem.WriteU64(addr+uintptr(i*swiftcall.WordSize), w); err != nil {
			e := errors.OutOfBounds(errors.PhaseEncode, []string{"slots"}, i, len(slots))
			e.Cause = err
			return e
		}
	}
	return nil
}

func flattenValue(mem swiftcall.Memory, addr uintptr, stride uint32) ([]swiftcall.Slot, error) {
	full := int(stride / swiftcall.WordSize)
	slots, err := Flatten(mem, addr, full)
	if err != nil {
		return nil, err
	}
	rest := stride % swiftcall.WordSize
	if rest == 0 && full > 0 {
		return slots, nil
	}

	// Partial trailing word, or a zero-sized value that still takes a slot.
	var w uint64
	if rest > 0 {
		tail, err := mem.Read(addr+uintptr(full*swiftcall.WordSize), rest)
		if err != nil {
			e := errors.OutOfBounds(errors.PhaseEncode, []string{"slots"}, full, full+1)
			e.Cause = err
			return nil, e
		}
		for i, b := range tail {
			w |= uint64(b) << (8 * i)
		}
	}
	return append(slots, swiftcall.IntSlot(w)), nil
}
