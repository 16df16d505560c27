package eval

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

// maxRepeat bounds [x; n] literals.
const maxRepeat = 1 << 20

func (r *run) local(l Local) (*value.Value, error) {
	if l.Value != nil {
		return l.Value, nil
	}
	if l.Type == nil {
		return nil, errors.InvalidInput(errors.PhaseEval, "local has neither a value nor a type")
	}
	return r.load(l.Type, l.Addr)
}

func (r *run) path(p *ast.Path) (*value.Value, error) {
	if name, ok := p.Single(); ok {
		if l, ok := r.frame.Local(name); ok {
			return r.local(l)
		}
	}

	sp, err := r.scopePath(p)
	if err != nil {
		return nil, err
	}
	sym, err := r.table.Resolve(r.frame.Scope(), sp)
	if err == nil {
		return r.symbolValue(sym)
	}

	if len(p.Segments) > 1 {
		if typ, terr := r.typePath(p.Segments[:len(p.Segments)-1], p.Absolute); terr == nil {
			name := p.Segments[len(p.Segments)-1].Name
			if i, ok := typ.VariantByName(name); ok && typ.Kind == types.KindEnum {
				if !typ.Variants[i].IsUnit() {
					return nil, errors.TypeMismatch(errors.PhaseEval, typ.Identity(), "variant "+name+" has fields and must be constructed")
				}
				return value.Enum(typ, i, nil, value.Origin{}), nil
			}
		}
	}
	return nil, err
}

// typePath resolves the given segments as a type, first through the scope
// table and then directly in the registry.
func (r *run) typePath(segs []ast.Segment, absolute bool) (*types.Descriptor, error) {
	p := &ast.Path{Segments: segs, Absolute: absolute}
	sp, err := r.scopePath(p)
	if err != nil {
		return nil, err
	}
	typ, err := r.table.ResolveType(r.frame.Scope(), sp)
	if err == nil {
		return typ, nil
	}
	if errors.IsKind(err, errors.KindAmbiguous) {
		return nil, err
	}

	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.Name
	}
	last := sp.Segments[len(sp.Segments)-1]
	if d, lerr := r.reg.Lookup(strings.Join(names, "::"), last.Generics...); lerr == nil {
		return d, nil
	}
	return nil, err
}

func (r *run) symbolValue(sym *scope.Symbol) (*value.Value, error) {
	switch sym.Kind {
	case scope.SymStatic:
		return r.load(sym.Type, sym.Address)

	case scope.SymFunction, scope.SymTraitMethod:
		typ := sym.Type
		if typ == nil {
			typ = r.reg.FuncOf(nil, nil)
		}
		return value.Function(typ, value.Func{Path: sym.Path, Entry: sym.Address, Symbol: int(sym.ID)}, value.Origin{Generation: r.generation}), nil

	case scope.SymType:
		typ := sym.Type
		if (typ.Kind == types.KindStruct || typ.Kind == types.KindTupleStruct) && len(typ.Fields) == 0 {
			return value.Aggregate(typ, nil, value.Origin{}), nil
		}
		return nil, errors.TypeMismatch(errors.PhaseEval, typ.Identity(), "type used as a value")
	}
	return nil, errors.Unsupported(errors.PhaseEval, "symbol kind "+sym.Kind.String())
}

// autoDeref follows references, stopping at raw pointers, trait objects and
// anything else.
func (r *run) autoDeref(v *value.Value) (*value.Value, error) {
	for v.Kind() == value.KindReference && v.Type().Kind == types.KindReference {
		d, err := r.deref(v)
		if err != nil {
			return nil, err
		}
		v = d
	}
	return v, nil
}

func (r *run) field(x *value.Value, name string) (*value.Value, error) {
	x, err := r.autoDeref(x)
	if err != nil {
		return nil, err
	}

	switch x.Kind() {
	case value.KindAggregate, value.KindEnum:
		if f, ok := x.Field(name); ok {
			return f, nil
		}
	case value.KindUnion:
		return r.dec.UnionField(x, name, r.DecodeOptions())
	case value.KindSlice:
		switch name {
		case "length":
			return value.Uint64Of(r.prim(types.PrimUsize), x.Len()), nil
		case "data_ptr":
			return value.Reference(r.reg.PointerTo(x.Type().Elem, false), x.Target(), 0, value.Origin{Generation: x.Generation()}), nil
		}
	case value.KindReference:
		if x.Type().Kind == types.KindTraitObject {
			concrete, err := r.deref(x)
			if err != nil {
				return nil, err
			}
			return r.field(concrete, name)
		}
	}
	return nil, errors.NotFound(errors.PhaseEval, "field", typeName(x)+"."+name)
}

// deref implements *x.
func (r *run) deref(x *value.Value) (*value.Value, error) {
	if x.Kind() != value.KindReference {
		return nil, mismatch(x, "cannot dereference a value of this type")
	}
	if x.Type().Kind == types.KindTraitObject {
		vt, ok := r.table.VTable(x.Meta())
		if !ok {
			return nil, errors.NotFound(errors.PhaseEval, "vtable", fmt.Sprintf("0x%x", x.Meta()))
		}
		return r.dec.DerefAs(x, vt.Type, r.mem, r.DecodeOptions())
	}
	return r.dec.Deref(x, r.mem, r.DecodeOptions())
}

// addressOf implements &x for values that live in memory.
func (r *run) addressOf(x *value.Value, mut bool) (*value.Value, error) {
	addr, ok := x.Address()
	if !ok {
		return nil, mismatch(x, "cannot take the address of a temporary")
	}
	return value.Reference(r.reg.RefTo(x.Type(), mut), addr, 0, value.Origin{Generation: x.Generation()}), nil
}

// toIndex converts an index operand to a non-negative offset.
func toIndex(v *value.Value) (uint64, error) {
	if !isInt(v) {
		return 0, mismatch(v, "index must be an integer")
	}
	n := v.Int()
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, errors.New(errors.PhaseEval, errors.KindOutOfRange).
			Value(n.String()).
			Detail("index %s out of range", n.String()).
			Build()
	}
	return n.Uint64(), nil
}

func (r *run) index(n *ast.Index) (*value.Value, error) {
	x, err := r.eval(n.X)
	if err != nil {
		return nil, err
	}
	// Follow references down to the indexed array or slice.
	for x.Kind() == value.KindReference && x.Type().Kind == types.KindReference {
		if x, err = r.deref(x); err != nil {
			return nil, err
		}
	}

	if rg, ok := ast.Unparen(n.Index).(*ast.Range); ok {
		return r.slice(x, rg)
	}

	iv, err := r.eval(n.Index)
	if err != nil {
		return nil, err
	}
	i, err := toIndex(iv)
	if err != nil {
		return nil, err
	}

	switch {
	case x.Kind() == value.KindAggregate && x.Type().Kind == types.KindArray:
		if i >= x.Len() {
			return nil, errors.OutOfRange(errors.PhaseEval, i, x.Len())
		}
		return x.FieldAt(int(i)).Value, nil

	case x.Kind() == value.KindSlice && x.Type().Text:
		return nil, mismatch(x, "strings cannot be indexed by integer")

	case x.Kind() == value.KindSlice:
		if i >= x.Len() {
			return nil, errors.OutOfRange(errors.PhaseEval, i, x.Len())
		}
		return r.dec.Element(x, i, r.mem, r.DecodeOptions())

	case x.Kind() == value.KindReference && x.Type().Kind == types.KindPointer:
		elem := x.Type().Elem
		return r.load(elem, x.Target()+i*elem.Size)

	case x.Kind() == value.KindString:
		return nil, mismatch(x, "strings cannot be indexed by integer")
	}
	return nil, mismatch(x, "cannot index a value of this type")
}

// bounds evaluates a range against a length.
func (r *run) bounds(rg *ast.Range, length uint64) (uint64, uint64, error) {
	lo, hi := uint64(0), length
	if rg.Lo != nil {
		v, err := r.eval(rg.Lo)
		if err != nil {
			return 0, 0, err
		}
		if lo, err = toIndex(v); err != nil {
			return 0, 0, err
		}
	}
	if rg.Hi != nil {
		v, err := r.eval(rg.Hi)
		if err != nil {
			return 0, 0, err
		}
		if hi, err = toIndex(v); err != nil {
			return 0, 0, err
		}
		if rg.Inclusive {
			if hi >= length {
				return 0, 0, errors.OutOfRange(errors.PhaseEval, hi, length)
			}
			hi++
		}
	}
	if lo > hi {
		return 0, 0, errors.New(errors.PhaseEval, errors.KindOutOfRange).
			Value(lo).
			Detail("slice index starts at %d but ends at %d", lo, hi).
			Build()
	}
	if hi > length {
		return 0, 0, errors.OutOfRange(errors.PhaseEval, hi, length)
	}
	return lo, hi, nil
}

// slice implements x[range]. Results share the backing memory of x.
func (r *run) slice(x *value.Value, rg *ast.Range) (*value.Value, error) {
	switch {
	case x.Kind() == value.KindSlice:
		lo, hi, err := r.bounds(rg, x.Len())
		if err != nil {
			return nil, err
		}
		return value.Slice(x.Type(), x.Target()+lo*x.Type().Elem.Size, hi-lo, value.Origin{Generation: x.Generation()}), nil

	case x.Kind() == value.KindAggregate && x.Type().Kind == types.KindArray:
		lo, hi, err := r.bounds(rg, x.Len())
		if err != nil {
			return nil, err
		}
		elem := x.Type().Elem
		if addr, ok := x.Address(); ok {
			return value.Slice(r.reg.SliceOf(elem, false), addr+lo*elem.Size, hi-lo, value.Origin{Generation: x.Generation()}), nil
		}
		// A temporary array has no backing memory; slice it by value.
		arr, err := r.reg.ArrayOf(elem, hi-lo)
		if err != nil {
			return nil, err
		}
		fields := make([]value.Field, 0, hi-lo)
		for i := lo; i < hi; i++ {
			fields = append(fields, value.Field{Name: fmt.Sprint(i - lo), Value: x.FieldAt(int(i)).Value})
		}
		return value.Aggregate(arr, fields, value.Origin{}), nil

	case x.Kind() == value.KindString:
		lo, hi, err := r.bounds(rg, x.Len())
		if err != nil {
			return nil, err
		}
		s := x.Text()
		if !boundary(s, lo) || !boundary(s, hi) {
			return nil, errors.InvalidInput(errors.PhaseEval, fmt.Sprintf("byte range %d..%d is not on a char boundary", lo, hi))
		}
		return value.String(x.Type(), s[lo:hi]), nil
	}
	return nil, mismatch(x, "cannot slice a value of this type")
}

func boundary(s string, i uint64) bool {
	return i == uint64(len(s)) || utf8.RuneStart(s[i])
}
