package decoder

import (
	"fmt"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/decoder/internal/abi"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

// UnionField reinterprets a union's bytes as the named field. No check is
// made that the field is the active one.
func (d *Decoder) UnionField(v *value.Value, name string, opts Options) (*value.Value, error) {
	if v.Kind() != value.KindUnion {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "not a union")
	}
	f, ok := v.Type().FieldByName(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDecode, "field", name)
	}
	raw := v.Raw()
	fdata, ok := abi.Window(raw, f.Offset, f.Type.Size)
	if !ok {
		return nil, errors.ShortBuffer([]string{name}, f.Type.Identity(), uint64(len(raw)), f.Offset+f.Type.Size)
	}
	addr, _ := v.Address()
	if opts.Generation == 0 {
		opts.Generation = v.Generation()
	}
	return d.Decode(f.Type, ByteRange{Addr: addr + f.Offset, Data: fdata}, opts)
}

// ElementType returns the element descriptor of an indexable value.
func ElementType(typ *types.Descriptor) (*types.Descriptor, bool) {
	switch typ.Kind {
	case types.KindArray, types.KindSlice:
		return typ.Elem, true
	case types.KindPointer:
		return typ.Elem, true
	case types.KindReference:
		if typ.Elem != nil && typ.Elem.Kind == types.KindArray {
			return typ.Elem.Elem, true
		}
	}
	return nil, false
}

// Element decodes element i of a slice from memory.
func (d *Decoder) Element(v *value.Value, i uint64, mem debugeval.Memory, opts Options) (*value.Value, error) {
	if v.Kind() != value.KindSlice {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "not a slice")
	}
	if i >= v.Len() {
		return nil, errors.OutOfRange(errors.PhaseDecode, i, v.Len())
	}
	elem := v.Type().Elem
	off, ok := abi.SafeMul(i, elem.Size)
	if !ok {
		return nil, errors.Overflow(errors.PhaseDecode, i, v.Type().Identity())
	}
	addr, ok := abi.SafeAdd(v.Target(), off)
	if !ok {
		return nil, errors.Overflow(errors.PhaseDecode, i, v.Type().Identity())
	}
	opts.UnsizedLen = nil
	return d.Load(elem, addr, mem, opts)
}

// Elements decodes every element of a slice, up to limit when limit > 0.
func (d *Decoder) Elements(v *value.Value, limit uint64, mem debugeval.Memory, opts Options) ([]*value.Value, error) {
	if v.Kind() != value.KindSlice {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "not a slice")
	}
	n := v.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	elem := v.Type().Elem
	if n == 0 {
		return nil, nil
	}

	// One read for the whole run keeps remote targets cheap.
	total, ok := abi.SafeMul(n, elem.Size)
	if !ok || n > abi.MaxElements {
		return nil, errors.Overflow(errors.PhaseDecode, n, v.Type().Identity())
	}
	data, err := read(mem, v.Target(), total)
	if err != nil {
		return nil, err
	}

	st := &state{opts: opts}
	st.opts.UnsizedLen = nil
	out := make([]*value.Value, 0, n)
	for i := uint64(0); i < n; i++ {
		off := i * elem.Size
		ev, err := d.decode(elem, data[off:off+elem.Size], v.Target()+off, st, []string{fmt.Sprintf("[%d]", i)})
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Text reads the bytes of a &str slice.
func (d *Decoder) Text(v *value.Value, limit uint64, mem debugeval.Memory) (string, bool, error) {
	if v.Kind() != value.KindSlice || !v.Type().Text {
		return "", false, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "not a string slice")
	}
	n := v.Len()
	truncated := false
	if limit > 0 && n > limit {
		n, truncated = limit, true
	}
	data, err := read(mem, v.Target(), n)
	if err != nil {
		return "", false, err
	}
	return string(data), truncated, nil
}

// Deref loads the value a pointer or reference points to.
func (d *Decoder) Deref(v *value.Value, mem debugeval.Memory, opts Options) (*value.Value, error) {
	if v.Kind() != value.KindReference {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "not a pointer")
	}
	elem := v.Type().Deref()
	if elem == nil {
		return nil, errors.TypeMismatch(errors.PhaseDecode, v.Type().Identity(), "trait object needs a concrete type")
	}
	return d.DerefAs(v, elem, mem, opts)
}

// DerefAs loads the pointee of v as typ. Trait objects use this with the
// concrete type found through their vtable.
func (d *Decoder) DerefAs(v *value.Value, typ *types.Descriptor, mem debugeval.Memory, opts Options) (*value.Value, error) {
	if v.Target() == 0 {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			Type(v.Type().Identity()).
			Detail("null pointer dereference").
			Build()
	}
	if opts.Generation == 0 {
		opts.Generation = v.Generation()
	}
	return d.Load(typ, v.Target(), mem, opts)
}
