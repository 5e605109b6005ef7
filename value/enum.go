package value

import (
	"fmt"
	"sync/atomic"

	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
)

// EnumValue is an enum stored at a handle. Payload cases come first in tag
// order, followed by empty cases.
type EnumValue struct {
	payload  Instance
	typ      *metadata.Type
	env      *Env
	handle   uintptr
	tag      uint32
	borrowed atomic.Bool
}

// WrapEnum wraps existing enum storage, decoding its tag and, for a payload
// case, the payload instance.
func WrapEnum(env *Env, t *metadata.Type, handle uintptr) (*EnumValue, error) {
	if err := checkEnumType(t); err != nil {
		return nil, err
	}
	tag, err := t.Metadata.ValueWitnesses().GetEnumTag(handle)
	if err != nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidData).
			SwiftType(t.Name).
			Detail("read enum tag").
			Cause(err).
			Build()
	}
	if err := checkTag(t, tag); err != nil {
		return nil, err
	}

	e := &EnumValue{typ: t, env: env, handle: handle, tag: tag}
	if int(tag) < len(t.PayloadCases) {
		pt, err := payloadType(env, t, tag)
		if err != nil {
			return nil, err
		}
		e.payload, err = projectPayload(env, pt, handle)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// NewEnum allocates a fresh buffer and sets it to the given case.
func NewEnum(env *Env, t *metadata.Type, tag uint32, payload Instance) (*EnumValue, error) {
	if err := checkEnumType(t); err != nil {
		return nil, err
	}
	if err := checkTag(t, tag); err != nil {
		return nil, err
	}
	handle, err := allocFor(env, t)
	if err != nil {
		return nil, err
	}
	e := &EnumValue{typ: t, env: env, handle: handle}
	if err := e.SetContent(tag, payload); err != nil {
		return nil, err
	}
	return e, nil
}

func (*EnumValue) lowerable() {}

// Handle returns the address of the enum storage.
func (e *EnumValue) Handle() uintptr { return e.handle }

// Metadata returns the enum metadata.
func (e *EnumValue) Metadata() metadata.TypeMetadata { return e.typ.Metadata }

// Type returns the enum type.
func (e *EnumValue) Type() *metadata.Type { return e.typ }

// Tag returns the decoded case index.
func (e *EnumValue) Tag() uint32 { return e.tag }

// Payload returns the payload instance, or nil for an empty case.
func (e *EnumValue) Payload() Instance { return e.payload }

// CaseName returns the name of the current case.
func (e *EnumValue) CaseName() string {
	if int(e.tag) < len(e.typ.PayloadCases) {
		return e.typ.PayloadCases[e.tag].Name
	}
	return e.typ.EmptyCases[int(e.tag)-len(e.typ.PayloadCases)]
}

// Equal reports whether other is an enum at the same address with the same tag.
func (e *EnumValue) Equal(other Instance) bool {
	x, ok := other.(*EnumValue)
	return ok && x.handle == e.handle && x.tag == e.tag
}

func (e *EnumValue) String() string {
	return fmt.Sprintf("EnumValue(%s.%s @ %#x)", e.typ.Name, e.CaseName(), e.handle)
}

// Borrow takes the exclusive right to mutate the enum. It fails while
// another borrow is outstanding.
func (e *EnumValue) Borrow() (*EnumMut, error) {
	if !e.borrowed.CompareAndSwap(false, true) {
		return nil, errors.New(errors.PhaseConstruct, errors.KindBorrowed).
			SwiftType(e.typ.Name).
			Detail("enum at %#x is already borrowed", e.handle).
			Build()
	}
	return &EnumMut{e: e}, nil
}

// SetContent borrows the enum, sets its case and releases it.
func (e *EnumValue) SetContent(tag uint32, payload Instance) error {
	m, err := e.Borrow()
	if err != nil {
		return err
	}
	defer m.Release()
	return m.SetContent(tag, payload)
}

// EnumMut is an exclusive borrow of an EnumValue.
type EnumMut struct {
	e *EnumValue
}

// Release ends the borrow. Releasing twice is a no-op.
func (m *EnumMut) Release() {
	if m.e != nil {
		m.e.borrowed.Store(false)
		m.e = nil
	}
}

// SetContent rewrites the enum in place: the payload is copied into the
// buffer (objects by pointer, values through the payload type's value
// witnesses) and the new tag is injected.
func (m *EnumMut) SetContent(tag uint32, payload Instance) error {
	e := m.e
	if e == nil {
		return errors.New(errors.PhaseConstruct, errors.KindBorrowed).
			Detail("borrow already released").
			Build()
	}
	t := e.typ
	if err := checkTag(t, tag); err != nil {
		return err
	}

	var next Instance
	if int(tag) < len(t.PayloadCases) {
		if payload == nil {
			return errors.New(errors.PhaseConstruct, errors.KindNilPointer).
				SwiftType(t.Name).
				Path(t.PayloadCases[tag].Name).
				Detail("payload case requires a payload").
				Build()
		}
		pt, err := payloadType(e.env, t, tag)
		if err != nil {
			return err
		}
		if payload.Type() == nil || payload.Type().Name != pt.Name {
			return errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
				SwiftType(pt.Name).
				GoType(fmt.Sprintf("%T", payload)).
				Path(t.Name, t.PayloadCases[tag].Name).
				Detail("payload is %s", typeName(payload)).
				Build()
		}

		if pt.Kind == metadata.KindClass {
			if err := e.env.Mem.WriteU64(e.handle, uint64(payload.Handle())); err != nil {
				return errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "store payload reference")
			}
			next = payload
		} else {
			if err := pt.Metadata.ValueWitnesses().InitializeWithCopy(e.handle, payload.Handle()); err != nil {
				return errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "copy payload")
			}
			next, err = projectPayload(e.env, pt, e.handle)
			if err != nil {
				return err
			}
		}
	} else if payload != nil {
		return errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(t.Name).
			Path(t.EmptyCases[int(tag)-len(t.PayloadCases)]).
			Detail("empty case takes no payload").
			Build()
	}

	if err := t.Metadata.ValueWitnesses().InjectEnumTag(e.handle, tag); err != nil {
		return errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "inject enum tag")
	}
	e.tag = tag
	e.payload = next
	return nil
}

func checkEnumType(t *metadata.Type) error {
	if t == nil {
		return errors.NilPointer(errors.PhaseConstruct, nil, "*metadata.Type")
	}
	if t.Kind != metadata.KindEnum {
		return errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(t.Name).
			Detail("%s is not an enum", t.Kind).
			Build()
	}
	return nil
}

func checkTag(t *metadata.Type, tag uint32) error {
	if n := uint32(t.NumCases()); tag >= n {
		return errors.InvalidTag(errors.PhaseConstruct, t.Name, tag, n)
	}
	return nil
}

func payloadType(env *Env, t *metadata.Type, tag uint32) (*metadata.Type, error) {
	c := t.PayloadCases[tag]
	if env == nil || env.Types == nil {
		return nil, errors.NilPointer(errors.PhaseLookup, []string{t.Name, c.Name}, "metadata.Registry")
	}
	pt, err := env.Types.TypeByName(c.TypeName)
	if err != nil {
		return nil, errors.New(errors.PhaseLookup, errors.KindNotFound).
			SwiftType(t.Name).
			Path(c.Name).
			Detail("payload type %q", c.TypeName).
			Cause(err).
			Build()
	}
	return pt, nil
}

// projectPayload builds the instance a payload case stores at handle.
func projectPayload(env *Env, pt *metadata.Type, handle uintptr) (Instance, error) {
	if pt.Kind == metadata.KindClass {
		ref, err := env.Mem.ReadU64(handle)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "read payload reference")
		}
		handle = uintptr(ref)
	}
	return Wrap(env, pt, handle)
}

func typeName(inst Instance) string {
	if t := inst.Type(); t != nil {
		return t.Name
	}
	return inst.Metadata().Description().Name
}
