package value

import (
	"fmt"

	"github.com/wippyai/swiftcall"
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
)

const (
	// ExistentialInlineWords is the number of words of inline value storage.
	ExistentialInlineWords = 3
	// ExistentialWords is the total size of a container in words.
	ExistentialWords = ExistentialInlineWords + 2
	// ExistentialSize is the total size of a container in bytes.
	ExistentialSize = ExistentialWords * swiftcall.WordSize

	typeWord    = ExistentialInlineWords
	witnessWord = ExistentialInlineWords + 1
)

// ExistentialContainer is the in-memory form of an "any P" value:
// [inline0, inline1, inline2, type metadata, witness table].
type ExistentialContainer struct {
	addr uintptr
	box  uintptr
}

// NewExistential allocates an empty container.
func NewExistential(env *Env) (*ExistentialContainer, error) {
	addr, err := env.Alloc.Alloc(ExistentialSize, swiftcall.WordSize)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseConstruct, ExistentialSize, swiftcall.WordSize, err)
	}
	return &ExistentialContainer{addr: addr}, nil
}

// ExistentialAt views container storage at addr.
func ExistentialAt(addr uintptr) *ExistentialContainer {
	return &ExistentialContainer{addr: addr}
}

func (*ExistentialContainer) lowerable() {}

// Address returns the address of the container.
func (c *ExistentialContainer) Address() uintptr { return c.addr }

// Box returns the out-of-line storage the container owns, or 0 when the
// value is stored inline.
func (c *ExistentialContainer) Box() uintptr { return c.box }

// FitsInline reports whether values of t are stored in the inline buffer.
func FitsInline(t *metadata.Type) bool {
	if t.Kind == metadata.KindClass {
		return true
	}
	layout := t.Metadata.Layout()
	return layout.Size <= ExistentialInlineWords*swiftcall.WordSize &&
		layout.Alignment <= swiftcall.WordSize &&
		t.Metadata.ValueWitnesses().IsBitwiseTakable()
}

// Store fills the container with inst and the conformance's witness table.
// A value that does not fit inline is copied into a fresh box.
func (c *ExistentialContainer) Store(env *Env, inst Instance, conf metadata.Conformance) error {
	if inst == nil {
		return errors.NilPointer(errors.PhaseEncode, nil, "value.Instance")
	}
	for i := 0; i < ExistentialInlineWords; i++ {
		if err := c.writeWord(env.Mem, i, 0); err != nil {
			return err
		}
	}
	c.box = 0

	if err := c.writeWord(env.Mem, typeWord, uint64(inst.Metadata().Address())); err != nil {
		return err
	}
	if err := c.writeWord(env.Mem, witnessWord, uint64(conf.WitnessTable)); err != nil {
		return err
	}

	if _, ok := inst.(*ObjectInstance); ok {
		return c.writeWord(env.Mem, 0, uint64(inst.Handle()))
	}

	t := inst.Type()
	if t == nil {
		return errors.NilPointer(errors.PhaseEncode, nil, "*metadata.Type")
	}
	if FitsInline(t) {
		return CopyInto(inst, c.addr)
	}

	box, err := allocFor(env, t)
	if err != nil {
		return err
	}
	if err := CopyInto(inst, box); err != nil {
		return err
	}
	c.box = box
	return c.writeWord(env.Mem, 0, uint64(box))
}

// Words returns the five container words.
func (c *ExistentialContainer) Words(mem swiftcall.Memory) ([ExistentialWords]uint64, error) {
	var out [ExistentialWords]uint64
	for i := range out {
		v, err := mem.ReadU64(c.addr + uintptr(i*swiftcall.WordSize))
		if err != nil {
			e := errors.InvalidData(errors.PhaseDecode, []string{fmt.Sprintf("word%d", i)}, "read existential container")
			e.Cause = err
			return out, e
		}
		out[i] = v
	}
	return out, nil
}

// SetWords overwrites the five container words, typically with the
// registers a function returned.
func (c *ExistentialContainer) SetWords(mem swiftcall.Memory, words [ExistentialWords]uint64) error {
	for i, w := range words {
		if err := c.writeWord(mem, i, w); err != nil {
			return err
		}
	}
	c.box = 0
	return nil
}

// Open decodes the container into a fresh instance of its dynamic type.
// Values are copy-constructed out of the container; objects are wrapped.
func (c *ExistentialContainer) Open(env *Env) (Instance, error) {
	words, err := c.Words(env.Mem)
	if err != nil {
		return nil, err
	}
	md, err := env.Types.MetadataAt(uintptr(words[typeWord]))
	if err != nil {
		return nil, err
	}
	t, err := env.Types.TypeByName(md.Description().Name)
	if err != nil {
		return nil, err
	}

	if t.Kind == metadata.KindClass {
		return Wrap(env, t, uintptr(words[0]))
	}
	src := c.addr
	if !FitsInline(t) {
		src = uintptr(words[0])
	}
	return CopyConstruct(env, t, src)
}

// WitnessTable returns the protocol witness table word.
func (c *ExistentialContainer) WitnessTable(mem swiftcall.Memory) (uintptr, error) {
	v, err := mem.ReadU64(c.addr + witnessWord*swiftcall.WordSize)
	return uintptr(v), err
}

func (c *ExistentialContainer) String() string {
	return fmt.Sprintf("ExistentialContainer(@ %#x)", c.addr)
}

func (c *ExistentialContainer) writeWord(mem swiftcall.Memory, i int, v uint64) error {
	if err := mem.WriteU64(c.addr+uintptr(i*swiftcall.WordSize), v); err != nil {
		return errors.Wrap(errors.PhaseEncode, errors.KindInvalidData, err, "write existential container")
	}
	return nil
}
