package eval

import (
	"math"
	"math/big"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
	"go.uber.org/zap"
)

func typeName(v *value.Value) string {
	if v.Type() == nil {
		return "?"
	}
	return v.Type().Identity()
}

func mismatch(v *value.Value, detail string) error {
	return errors.TypeMismatch(errors.PhaseEval, typeName(v), detail)
}

func isInt(v *value.Value) bool   { return v.Kind() == value.KindScalar && v.Prim().IsInteger() }
func isFloat(v *value.Value) bool { return v.Kind() == value.KindScalar && v.Prim().IsFloat() }
func isBool(v *value.Value) bool  { return v.Kind() == value.KindScalar && v.Prim() == types.PrimBool }

// temporary reports whether v was computed rather than read from the
// target. Only temporaries are implicitly converted.
func temporary(v *value.Value) bool {
	_, ok := v.Address()
	return !ok
}

// coerce converts v to typ where the language would accept it without a
// cast: identical types, integer and float temporaries that fit, and
// references to the same nominal type.
func (r *run) coerce(v *value.Value, typ *types.Descriptor) (*value.Value, error) {
	if types.Equal(v.Type(), typ) {
		return v, nil
	}
	switch {
	case isInt(v) && typ.IsInteger() && temporary(v):
		n := v.Int()
		if !fits(n, typ) {
			return nil, errors.Overflow(errors.PhaseEval, n.String(), typ.Identity())
		}
		return value.Int(typ, n), nil
	case isFloat(v) && typ.IsFloat() && temporary(v):
		return value.Float(typ, v.Float64()), nil
	case v.Kind() == value.KindReference && typ.Kind == types.KindReference &&
		types.Equal(v.Type().Nominal(), typ.Nominal()):
		return v, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseEval, typ.Identity(), "expected "+typ.Identity()+", found "+typeName(v))
}

// defaulted reports whether v has the type an unsuffixed literal gets.
func defaulted(v *value.Value) bool {
	return v.Kind() == value.KindScalar && (v.Prim() == types.PrimI32 || v.Prim() == types.PrimF64)
}

// unify brings two scalar operands to one type by converting a temporary
// side. A temporary of a literal's default type yields to the other side.
func (r *run) unify(l, rv *value.Value) (*value.Value, *value.Value, error) {
	if types.Equal(l.Type(), rv.Type()) {
		return l, rv, nil
	}
	convert := func(from, to *value.Value) (*value.Value, bool) {
		if !temporary(from) {
			return nil, false
		}
		c, err := r.coerce(from, to.Type())
		return c, err == nil
	}
	if defaulted(l) && !defaulted(rv) {
		if c, ok := convert(l, rv); ok {
			return c, rv, nil
		}
	}
	if c, ok := convert(rv, l); ok {
		return l, c, nil
	}
	if c, ok := convert(l, rv); ok {
		return c, rv, nil
	}
	return nil, nil, mismatch(l, "mismatched operand types "+typeName(l)+" and "+typeName(rv))
}

func (r *run) unary(n *ast.Unary) (*value.Value, error) {
	if n.Op == "-" {
		if lit, ok := ast.Unparen(n.X).(*ast.Literal); ok && (lit.Kind == ast.LitInt || lit.Kind == ast.LitFloat) {
			return r.literal(lit, true)
		}
	}

	x, err := r.eval(n.X)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "*":
		return r.deref(x)
	case "&", "&mut":
		return r.addressOf(x, n.Op == "&mut")
	case "-":
		switch {
		case isInt(x) && x.Prim().IsSigned():
			return value.Int(x.Type(), new(big.Int).Neg(x.Int())), nil
		case isInt(x):
			return nil, mismatch(x, "cannot negate an unsigned integer")
		case isFloat(x):
			return value.Float(x.Type(), -x.Float64()), nil
		}
		return nil, mismatch(x, "cannot negate")
	case "!":
		switch {
		case isBool(x):
			return value.Bool(x.Type(), !x.Bool()), nil
		case isInt(x):
			return value.Int(x.Type(), new(big.Int).Not(x.Int())), nil
		}
		return nil, mismatch(x, "cannot apply !")
	}
	return nil, errors.Unsupported(errors.PhaseEval, "unary "+n.Op)
}

func (r *run) binary(n *ast.Binary) (*value.Value, error) {
	l, err := r.eval(n.L)
	if err != nil {
		return nil, err
	}

	if n.Op == "&&" || n.Op == "||" {
		if !isBool(l) {
			return nil, mismatch(l, "operand of "+n.Op+" must be bool")
		}
		if l.Bool() == (n.Op == "||") {
			return value.Bool(r.prim(types.PrimBool), l.Bool()), nil
		}
		rv, err := r.eval(n.R)
		if err != nil {
			return nil, err
		}
		if !isBool(rv) {
			return nil, mismatch(rv, "operand of "+n.Op+" must be bool")
		}
		return value.Bool(r.prim(types.PrimBool), rv.Bool()), nil
	}

	rv, err := r.eval(n.R)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		return r.compare(n.Op, l, rv)
	case "<<", ">>":
		return r.shift(n.Op, l, rv)
	}

	if l.Kind() != value.KindScalar || rv.Kind() != value.KindScalar {
		return nil, mismatch(l, "operator "+n.Op+" needs scalar operands")
	}
	l, rv, err = r.unify(l, rv)
	if err != nil {
		return nil, err
	}

	switch {
	case isInt(l):
		return r.intOp(n.Op, l, rv)
	case isFloat(l):
		return floatOp(n.Op, l, rv)
	case isBool(l):
		switch n.Op {
		case "&":
			return value.Bool(l.Type(), l.Bool() && rv.Bool()), nil
		case "|":
			return value.Bool(l.Type(), l.Bool() || rv.Bool()), nil
		case "^":
			return value.Bool(l.Type(), l.Bool() != rv.Bool()), nil
		}
	}
	return nil, mismatch(l, "operator "+n.Op+" is not defined")
}

func (r *run) intOp(op string, l, rv *value.Value) (*value.Value, error) {
	a, b := l.Int(), rv.Int()
	out := new(big.Int)
	switch op {
	case "+":
		out.Add(a, b)
	case "-":
		out.Sub(a, b)
	case "*":
		out.Mul(a, b)
	case "/", "%":
		if b.Sign() == 0 {
			return nil, errors.InvalidInput(errors.PhaseEval, "attempt to divide by zero")
		}
		if op == "/" {
			out.Quo(a, b)
		} else {
			out.Rem(a, b)
		}
	case "&":
		out.And(a, b)
	case "|":
		out.Or(a, b)
	case "^":
		out.Xor(a, b)
	default:
		return nil, mismatch(l, "operator "+op+" is not defined")
	}
	return value.Int(l.Type(), out), nil
}

func floatOp(op string, l, rv *value.Value) (*value.Value, error) {
	a, b := l.Float64(), rv.Float64()
	var out float64
	switch op {
	case "+":
		out = a + b
	case "-":
		out = a - b
	case "*":
		out = a * b
	case "/":
		out = a / b
	case "%":
		out = math.Mod(a, b)
	default:
		return nil, mismatch(l, "operator "+op+" is not defined on floats")
	}
	return value.Float(l.Type(), out), nil
}

func (r *run) shift(op string, l, rv *value.Value) (*value.Value, error) {
	if !isInt(l) || !isInt(rv) {
		return nil, mismatch(l, "shift needs integer operands")
	}
	amount := rv.Int()
	bits := int64(l.Type().Size * 8)
	if amount.Sign() < 0 || amount.Cmp(big.NewInt(bits)) >= 0 {
		return nil, errors.Overflow(errors.PhaseEval, amount.String(), "shift of "+l.Type().Identity())
	}
	out := new(big.Int)
	if op == "<<" {
		out.Lsh(l.Int(), uint(amount.Uint64()))
	} else {
		out.Rsh(l.Int(), uint(amount.Uint64()))
	}
	return value.Int(l.Type(), out), nil
}

func (r *run) compare(op string, l, rv *value.Value) (*value.Value, error) {
	c, ordered, err := r.cmp(l, rv)
	if err != nil {
		return nil, err
	}
	var out bool
	switch op {
	case "==":
		out = c == 0
	case "!=":
		out = c != 0
	default:
		if !ordered {
			return nil, mismatch(l, "values of this type are not ordered")
		}
		switch op {
		case "<":
			out = c < 0
		case "<=":
			out = c <= 0
		case ">":
			out = c > 0
		case ">=":
			out = c >= 0
		}
	}
	return value.Bool(r.prim(types.PrimBool), out), nil
}

// cmp compares two values, returning -1, 0 or 1 and whether the type has an
// ordering. Unordered types report any inequality as 1.
func (r *run) cmp(l, rv *value.Value) (int, bool, error) {
	ls, lok, err := r.text(l)
	if err != nil {
		return 0, false, err
	}
	rs, rok, err := r.text(rv)
	if err != nil {
		return 0, false, err
	}
	if lok && rok {
		switch {
		case ls < rs:
			return -1, true, nil
		case ls > rs:
			return 1, true, nil
		}
		return 0, true, nil
	}

	if l.Kind() == value.KindScalar && rv.Kind() == value.KindScalar {
		l, rv, err = r.unify(l, rv)
		if err != nil {
			return 0, false, err
		}
		switch p := l.Prim(); {
		case p.IsInteger():
			return l.Int().Cmp(rv.Int()), true, nil
		case p.IsFloat():
			a, b := l.Float64(), rv.Float64()
			switch {
			case a < b:
				return -1, true, nil
			case a > b:
				return 1, true, nil
			case a == b:
				return 0, true, nil
			}
			// NaN is unequal to everything and unordered.
			return 1, false, nil
		case p == types.PrimBool, p == types.PrimChar:
			a, b := l.Uint64(), rv.Uint64()
			switch {
			case a < b:
				return -1, true, nil
			case a > b:
				return 1, true, nil
			}
			return 0, true, nil
		case p == types.PrimUnit:
			return 0, true, nil
		}
	}

	if !types.Equal(l.Type(), rv.Type()) {
		return 0, false, mismatch(l, "cannot compare "+typeName(l)+" with "+typeName(rv))
	}
	eq, err := r.equal(l, rv)
	if err != nil || eq {
		return 0, false, err
	}
	return 1, false, nil
}

// text returns the contents of string literals and &str slices.
func (r *run) text(v *value.Value) (string, bool, error) {
	switch {
	case v.Kind() == value.KindString:
		return v.Text(), true, nil
	case v.Kind() == value.KindSlice && v.Type().Text:
		s, _, err := r.dec.Text(v, 0, r.mem)
		return s, err == nil, err
	}
	return "", false, nil
}

// equal is structural equality of two values of the same type.
func (r *run) equal(l, rv *value.Value) (bool, error) {
	switch l.Kind() {
	case value.KindReference, value.KindFunction:
		return l.Target() == rv.Target() && l.Meta() == rv.Meta(), nil
	case value.KindSlice:
		return l.Target() == rv.Target() && l.Len() == rv.Len(), nil
	case value.KindUnion:
		return string(l.Raw()) == string(rv.Raw()), nil
	case value.KindScalar:
		c, _, err := r.cmp(l, rv)
		return c == 0, err
	case value.KindEnum:
		if l.Variant() != rv.Variant() {
			return false, nil
		}
	}
	if l.NumFields() != rv.NumFields() {
		return false, nil
	}
	for i := 0; i < l.NumFields(); i++ {
		c, _, err := r.cmp(l.FieldAt(i).Value, rv.FieldAt(i).Value)
		if err != nil || c != 0 {
			return false, err
		}
	}
	return true, nil
}

func (r *run) assign(n *ast.Assign) (*value.Value, error) {
	place, err := r.eval(n.L)
	if err != nil {
		return nil, err
	}
	addr, ok := place.Address()
	if !ok {
		return nil, mismatch(place, "left-hand side of assignment is not a place")
	}
	rv, err := r.eval(n.R)
	if err != nil {
		return nil, err
	}
	out, err := r.coerce(rv, place.Type())
	if err != nil {
		return nil, err
	}
	Logger().Debug("assignment evaluated without writing target memory",
		zap.String("type", typeName(place)),
		zap.Uint64("addr", addr))
	return out, nil
}

func (r *run) cast(n *ast.Cast) (*value.Value, error) {
	x, err := r.eval(n.X)
	if err != nil {
		return nil, err
	}
	to, err := r.resolveType(n.To)
	if err != nil {
		return nil, err
	}
	v, err := r.convert(x, to)
	if err != nil {
		return nil, err
	}
	if temporary(v) {
		v = value.Pin(v)
	}
	return v, nil
}

// convert implements as.
func (r *run) convert(x *value.Value, to *types.Descriptor) (*value.Value, error) {
	if types.Equal(x.Type(), to) {
		return x, nil
	}
	bad := func() (*value.Value, error) {
		return nil, mismatch(x, "cannot cast "+typeName(x)+" as "+to.Identity())
	}

	switch x.Kind() {
	case value.KindScalar:
		p := x.Prim()
		switch {
		case to.IsInteger():
			switch {
			case p.IsInteger():
				return value.Int(to, x.Int()), nil
			case p.IsFloat():
				return value.Int(to, saturate(x.Float64(), to)), nil
			case p == types.PrimBool, p == types.PrimChar:
				return value.Int(to, new(big.Int).SetUint64(x.Uint64())), nil
			}
		case to.IsFloat():
			switch {
			case p.IsInteger():
				f, _ := new(big.Float).SetInt(x.Int()).Float64()
				return value.Float(to, f), nil
			case p.IsFloat():
				return value.Float(to, x.Float64()), nil
			}
		case to.Kind == types.KindPrimitive && to.Prim == types.PrimChar:
			if p == types.PrimU8 {
				return value.Char(to, rune(x.Uint64())), nil
			}
			return nil, mismatch(x, "only u8 can be cast as char")
		case to.Kind == types.KindPointer && p.IsInteger():
			return value.Reference(to, value.Int(r.prim(types.PrimUsize), x.Int()).Uint64(), 0, value.Origin{}), nil
		}

	case value.KindReference, value.KindFunction:
		if x.Type().Kind == types.KindTraitObject {
			return bad()
		}
		switch {
		case to.IsInteger():
			return value.Int(to, new(big.Int).SetUint64(x.Target())), nil
		case to.Kind == types.KindPointer:
			return value.Reference(to, x.Target(), 0, value.Origin{Generation: x.Generation()}), nil
		}

	case value.KindEnum:
		info := x.VariantInfo()
		if to.IsInteger() && info != nil && x.Type().Strategy.Kind == types.StrategyDirect && allUnit(x.Type()) {
			return value.Int(to, big.NewInt(info.Discriminant)), nil
		}
	}
	return bad()
}

func allUnit(typ *types.Descriptor) bool {
	for i := range typ.Variants {
		if !typ.Variants[i].IsUnit() {
			return false
		}
	}
	return true
}

// saturate converts a float to an integer type the way as does: truncate
// toward zero, clamp to the range, NaN becomes 0.
func saturate(f float64, to *types.Descriptor) *big.Int {
	if math.IsNaN(f) {
		return new(big.Int)
	}
	lo, hi := intRange(to)
	if math.IsInf(f, 1) {
		return hi
	}
	if math.IsInf(f, -1) {
		return lo
	}
	n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	if n.Cmp(lo) < 0 {
		return lo
	}
	if n.Cmp(hi) > 0 {
		return hi
	}
	return n
}
