package eval

import (
	"fmt"
	"strconv"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
	"go.uber.org/zap"
)

// methodCall evaluates recv.name(args). A method named name wins over a
// field of the same name; the field is called only when no method exists.
func (r *run) methodCall(m *ast.MethodCall) (*value.Value, error) {
	recv, err := r.eval(m.Recv)
	if err != nil {
		return nil, err
	}
	args, err := r.evalAll(m.Args)
	if err != nil {
		return nil, err
	}
	generics, err := r.resolveTypes(m.Generics)
	if err != nil {
		return nil, err
	}

	sym, self, err := r.lookupMethod(recv, m.Name)
	if err != nil {
		if !errors.IsKind(err, errors.KindNotFound) {
			return nil, err
		}
		fv, ferr := r.field(recv, m.Name)
		if ferr != nil || !callable(fv) {
			return nil, err
		}
		Logger().Debug("no method found, calling field",
			zap.String("type", typeName(recv)),
			zap.String("field", m.Name))
		return r.callValue(fv, args)
	}

	if len(generics) > 0 && !sameTypes(sym.Generics, generics) {
		return nil, errors.NotFound(errors.PhaseEval, "method instantiation", sym.Path)
	}

	recvArg, err := r.receiver(self, sym)
	if err != nil {
		return nil, err
	}
	return r.invoke(sym, append([]*value.Value{recvArg}, args...))
}

// lookupMethod resolves name on recv's type. For trait objects the vtable
// gives the concrete type, and the receiver becomes a reference to it.
func (r *run) lookupMethod(recv *value.Value, name string) (*scope.Symbol, *value.Value, error) {
	v := recv
	for v.Kind() == value.KindReference && v.Type().Kind == types.KindReference &&
		v.Type().Elem != nil && v.Type().Elem.Kind == types.KindReference {
		d, err := r.deref(v)
		if err != nil {
			return nil, nil, err
		}
		v = d
	}

	if v.Kind() == value.KindReference && v.Type().Kind == types.KindTraitObject {
		vt, ok := r.table.VTable(v.Meta())
		if !ok {
			return nil, nil, errors.NotFound(errors.PhaseEval, "vtable", fmt.Sprintf("0x%x", v.Meta()))
		}
		sym, err := r.table.ResolveMethod(vt.Type, name)
		if err != nil {
			return nil, nil, err
		}
		self := value.Reference(r.reg.RefTo(vt.Type, v.Type().Mutable), v.Target(), 0, value.Origin{Generation: v.Generation()})
		return sym, self, nil
	}

	sym, err := r.table.ResolveMethod(v.Type(), name)
	return sym, v, err
}

// receiver adapts recv to the method's self parameter: by value through
// deref, by reference through auto-ref of values in memory.
func (r *run) receiver(recv *value.Value, sym *scope.Symbol) (*value.Value, error) {
	switch sym.Receiver {
	case scope.RecvValue:
		return r.autoDeref(recv)

	case scope.RecvRef, scope.RecvRefMut:
		if recv.Kind() == value.KindReference && recv.Type().Kind == types.KindReference {
			return recv, nil
		}
		addr, ok := recv.Address()
		if !ok {
			return nil, mismatch(recv, "cannot borrow a temporary as the receiver of "+sym.Path)
		}
		return value.Reference(r.reg.RefTo(recv.Type(), sym.Receiver == scope.RecvRefMut), addr, 0,
			value.Origin{Generation: recv.Generation()}), nil
	}
	return nil, errors.TypeMismatch(errors.PhaseEval, sym.Path, "not a method")
}

func callable(v *value.Value) bool {
	if v.Kind() == value.KindFunction {
		return true
	}
	t := v.Type().Nominal()
	return t != nil && t.Kind == types.KindClosure
}

func sameTypes(a, b []*types.Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// call evaluates f(args). A path callee may name a function, an associated
// function or a constructor; anything else must evaluate to a callable.
func (r *run) call(c *ast.Call) (*value.Value, error) {
	args, err := r.evalAll(c.Args)
	if err != nil {
		return nil, err
	}
	if p, ok := c.Fn.(*ast.Path); ok {
		return r.callPath(p, args)
	}
	fv, err := r.eval(c.Fn)
	if err != nil {
		return nil, err
	}
	return r.callValue(fv, args)
}

func argTypes(args []*value.Value) []*types.Descriptor {
	out := make([]*types.Descriptor, len(args))
	for i, a := range args {
		if !temporary(a) || a.Kind() != value.KindScalar || a.Pinned() {
			out[i] = a.Type()
		}
	}
	return out
}

func (r *run) callPath(p *ast.Path, args []*value.Value) (*value.Value, error) {
	if name, ok := p.Single(); ok {
		if l, ok := r.frame.Local(name); ok {
			fv, err := r.local(l)
			if err != nil {
				return nil, err
			}
			return r.callValue(fv, args)
		}
	}

	if len(p.Segments) > 1 {
		prefix := p.Segments[:len(p.Segments)-1]
		last := p.Segments[len(p.Segments)-1]
		if typ, err := r.typePath(prefix, p.Absolute); err == nil {
			if i, ok := typ.VariantByName(last.Name); ok && typ.Kind == types.KindEnum {
				return r.construct(typ, &typ.Variants[i], i, args)
			}
			generics, err := r.resolveTypes(last.Generics)
			if err != nil {
				return nil, err
			}
			sym, err := r.table.ResolveAssociated(typ, last.Name, scope.Call{
				Generics: generics,
				ArgTypes: argTypes(args),
				Arity:    len(args),
			})
			if err != nil {
				return nil, err
			}
			return r.invoke(sym, args)
		} else if errors.IsKind(err, errors.KindAmbiguous) {
			return nil, err
		}
	}

	sp, err := r.scopePath(p)
	if err != nil {
		return nil, err
	}
	sym, err := r.table.Resolve(r.frame.Scope(), sp)
	if err != nil {
		return nil, err
	}
	switch sym.Kind {
	case scope.SymType:
		if sym.Type.Kind == types.KindTupleStruct {
			return r.construct(sym.Type, nil, -1, args)
		}
		return nil, errors.TypeMismatch(errors.PhaseEval, sym.Type.Identity(), "not a tuple struct constructor")
	case scope.SymStatic:
		fv, err := r.symbolValue(sym)
		if err != nil {
			return nil, err
		}
		return r.callValue(fv, args)
	}
	return r.invoke(sym, args)
}

// construct builds a tuple struct (variant nil) or tuple variant from
// positional arguments.
func (r *run) construct(typ *types.Descriptor, variant *types.Variant, index int, args []*value.Value) (*value.Value, error) {
	decl := typ.Fields
	name := typ.Identity()
	if variant != nil {
		decl = variant.Fields
		name += "::" + variant.Name
		if !variant.Tuple && len(decl) > 0 {
			return nil, errors.TypeMismatch(errors.PhaseEval, name, "struct variant needs named fields")
		}
	}
	if len(args) != len(decl) {
		return nil, errors.TypeMismatch(errors.PhaseEval, name,
			fmt.Sprintf("expected %d arguments, got %d", len(decl), len(args)))
	}
	fields := make([]value.Field, len(decl))
	for i, f := range decl {
		v, err := r.coerce(args[i], f.Type)
		if err != nil {
			return nil, err
		}
		fields[i] = value.Field{Name: f.Name, Value: v}
	}
	if variant != nil {
		return value.Enum(typ, index, fields, value.Origin{}), nil
	}
	return value.Aggregate(typ, fields, value.Origin{}), nil
}

// callValue calls a function pointer or closure value.
func (r *run) callValue(fv *value.Value, args []*value.Value) (*value.Value, error) {
	if fv.Kind() == value.KindFunction {
		f := fv.Func()
		if sym, ok := r.table.Symbol(scope.SymbolID(f.Symbol)); ok && f.Symbol >= 0 {
			return r.invoke(sym, args)
		}
		path := f.Path
		if path == "" {
			path = fmt.Sprintf("0x%x", f.Entry)
		}
		return r.invoke(&scope.Symbol{
			Type:    fv.Type(),
			Path:    path,
			Name:    path,
			Address: f.Entry,
			ID:      -1,
			Kind:    scope.SymFunction,
		}, args)
	}

	typ := fv.Type().Nominal()
	if typ == nil || typ.Kind != types.KindClosure {
		return nil, mismatch(fv, "value is not callable")
	}
	if typ.Body == "" {
		return nil, errors.NotFound(errors.PhaseEval, "closure body", typ.Identity())
	}
	body, err := r.table.Resolve(scope.RootID, scope.ParsePath(typ.Body))
	if err != nil {
		return nil, err
	}

	env := fv
	if fv.Kind() != value.KindReference {
		if addr, ok := fv.Address(); ok {
			env = value.Reference(r.reg.RefTo(typ, false), addr, 0, value.Origin{Generation: fv.Generation()})
		}
	}
	return r.invoke(body, append([]*value.Value{env}, args...))
}

// invoke checks arguments against the function type and runs it in the
// target.
func (r *run) invoke(sym *scope.Symbol, args []*value.Value) (*value.Value, error) {
	if sym.Kind == scope.SymType || sym.Kind == scope.SymStatic {
		return nil, errors.TypeMismatch(errors.PhaseEval, sym.Path, "not a function")
	}
	if sym.Type != nil && sym.Type.Kind == types.KindFunction {
		params := sym.Type.Params
		if len(params) != len(args) {
			return nil, errors.TypeMismatch(errors.PhaseEval, sym.Path,
				fmt.Sprintf("expected %d arguments, got %d", len(params), len(args)))
		}
		conv := make([]*value.Value, len(args))
		for i, a := range args {
			c, err := r.coerce(a, params[i])
			if err != nil {
				return nil, errors.New(errors.PhaseEval, errors.KindTypeMismatch).
					Type(sym.Path).
					Detail("argument %d: %s", i, err.Error()).
					Cause(err).
					Build()
			}
			conv[i] = c
		}
		args = conv
	}

	if r.invoker == nil {
		return nil, errors.Unsupported(errors.PhaseInvoke, "calling "+sym.Path+" needs a running target")
	}

	Logger().Debug("invoking target function",
		zap.String("path", sym.Path),
		zap.Uint64("addr", sym.Address),
		zap.Int("args", len(args)))

	res, err := r.invoker.Invoke(r.ctx, sym, args)
	if err != nil {
		if errors.KindOf(err) != "" {
			return nil, err
		}
		return nil, errors.IO(errors.PhaseInvoke, "call to "+sym.Path+" failed", err)
	}
	if res == nil {
		return value.Unit(r.prim(types.PrimUnit)), nil
	}
	return res, nil
}

func (r *run) structLit(s *ast.StructLit) (*value.Value, error) {
	segs := s.Path.Segments
	typ, err := r.typePath(segs, s.Path.Absolute)
	var variant *types.Variant
	index := -1
	if err != nil && len(segs) > 1 {
		enum, eerr := r.typePath(segs[:len(segs)-1], s.Path.Absolute)
		if eerr != nil {
			return nil, err
		}
		i, ok := enum.VariantByName(segs[len(segs)-1].Name)
		if !ok || enum.Kind != types.KindEnum {
			return nil, err
		}
		typ, variant, index, err = enum, &enum.Variants[i], i, nil
	}
	if err != nil {
		return nil, err
	}

	decl := typ.Fields
	name := typ.Identity()
	if variant != nil {
		decl = variant.Fields
		name += "::" + variant.Name
	} else if typ.Kind != types.KindStruct && typ.Kind != types.KindTupleStruct {
		return nil, errors.TypeMismatch(errors.PhaseEval, name, "not a struct")
	}

	inits := make(map[string]ast.Expr, len(s.Fields))
	for _, f := range s.Fields {
		found := false
		for _, d := range decl {
			if d.Name == f.Name {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.NotFound(errors.PhaseEval, "field", name+"."+f.Name)
		}
		inits[f.Name] = f.Value
	}

	var base *value.Value
	if s.Base != nil {
		if base, err = r.eval(s.Base); err != nil {
			return nil, err
		}
		if !types.Equal(base.Type(), typ) || variant != nil && base.Variant() != index {
			return nil, mismatch(base, "base of struct update must be "+name)
		}
	}

	fields := make([]value.Field, len(decl))
	for i, d := range decl {
		var v *value.Value
		if e, ok := inits[d.Name]; ok {
			if v, err = r.eval(e); err != nil {
				return nil, err
			}
			if v, err = r.coerce(v, d.Type); err != nil {
				return nil, err
			}
		} else if base != nil {
			v, _ = base.Field(d.Name)
		}
		if v == nil {
			return nil, errors.TypeMismatch(errors.PhaseEval, name, "missing field "+d.Name)
		}
		fields[i] = value.Field{Name: d.Name, Value: v}
	}

	if variant != nil {
		return value.Enum(typ, index, fields, value.Origin{}), nil
	}
	return value.Aggregate(typ, fields, value.Origin{}), nil
}

func (r *run) tuple(t *ast.Tuple) (*value.Value, error) {
	elems, err := r.evalAll(t.Elems)
	if err != nil {
		return nil, err
	}
	typs := make([]*types.Descriptor, len(elems))
	fields := make([]value.Field, len(elems))
	for i, e := range elems {
		typs[i] = e.Type()
		fields[i] = value.Field{Name: strconv.Itoa(i), Value: e}
	}
	return value.Aggregate(r.reg.TupleOf(typs...), fields, value.Origin{}), nil
}

// arrayOf builds an array value of elem. A nil elem takes the first
// element's type, or i32 for an empty array.
func (r *run) arrayOf(elem *types.Descriptor, elems []*value.Value) (*value.Value, error) {
	switch {
	case elem != nil:
	case len(elems) > 0:
		elem = elems[0].Type()
	default:
		elem = r.prim(types.PrimI32)
	}
	fields := make([]value.Field, len(elems))
	for i, e := range elems {
		c, err := r.coerce(e, elem)
		if err != nil {
			return nil, err
		}
		fields[i] = value.Field{Name: strconv.Itoa(i), Value: c}
	}
	typ, err := r.reg.ArrayOf(elem, uint64(len(elems)))
	if err != nil {
		return nil, err
	}
	return value.Aggregate(typ, fields, value.Origin{}), nil
}

func (r *run) array(a *ast.Array) (*value.Value, error) {
	elems, err := r.evalAll(a.Elems)
	if err != nil {
		return nil, err
	}
	return r.arrayOf(nil, elems)
}

func (r *run) repeat(rp *ast.Repeat) (*value.Value, error) {
	elem, err := r.eval(rp.Elem)
	if err != nil {
		return nil, err
	}
	cv, err := r.eval(rp.Count)
	if err != nil {
		return nil, err
	}
	n, err := toIndex(cv)
	if err != nil {
		return nil, err
	}
	if n > maxRepeat {
		return nil, errors.InvalidInput(errors.PhaseEval, fmt.Sprintf("repeat count %d is too large", n))
	}
	elems := make([]*value.Value, n)
	for i := range elems {
		elems[i] = elem
	}
	return r.arrayOf(elem.Type(), elems)
}
