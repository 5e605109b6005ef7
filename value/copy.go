package value

import (
	"github.com/wippyai/swiftcall/errors"
	"github.com/wippyai/swiftcall/metadata"
)

// CopyConstruct copies the value of type t at src into a fresh buffer using
// the type's value witnesses and wraps the copy.
func CopyConstruct(env *Env, t *metadata.Type, src uintptr) (Instance, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseConstruct, nil, "*metadata.Type")
	}
	if !t.Kind.IsValue() {
		return nil, errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			SwiftType(t.Name).
			Detail("cannot copy-construct a %s", t.Kind).
			Build()
	}
	dst, err := allocFor(env, t)
	if err != nil {
		return nil, err
	}
	if err := t.Metadata.ValueWitnesses().InitializeWithCopy(dst, src); err != nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindInvalidData).
			SwiftType(t.Name).
			Detail("initializeWithCopy %#x -> %#x", src, dst).
			Cause(err).
			Build()
	}
	return Wrap(env, t, dst)
}

// CopyInto copy-initializes dst with the value inst holds.
func CopyInto(inst Instance, dst uintptr) error {
	t := inst.Type()
	if t == nil || !t.Kind.IsValue() {
		return errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			GoType("value.Instance").
			Detail("%s is not a value instance", inst).
			Build()
	}
	if err := t.Metadata.ValueWitnesses().InitializeWithCopy(dst, inst.Handle()); err != nil {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidData).
			SwiftType(t.Name).
			Detail("initializeWithCopy %#x -> %#x", inst.Handle(), dst).
			Cause(err).
			Build()
	}
	return nil
}

// Wrap wraps handle as an instance of t without copying. For classes the
// handle is the object pointer.
func Wrap(env *Env, t *metadata.Type, handle uintptr) (Instance, error) {
	if t == nil {
		return nil, errors.NilPointer(errors.PhaseConstruct, nil, "*metadata.Type")
	}
	switch t.Kind {
	case metadata.KindClass:
		obj, err := WrapObject(env, handle, t)
		if err != nil {
			return nil, err
		}
		return obj, nil
	case metadata.KindStruct:
		s, err := WrapStruct(t, handle)
		if err != nil {
			return nil, err
		}
		return s, nil
	case metadata.KindEnum:
		e, err := WrapEnum(env, t, handle)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, errors.Unsupported(errors.PhaseConstruct, "kind "+t.Kind.String())
	}
}
