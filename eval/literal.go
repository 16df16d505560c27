package eval

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// intRange returns the inclusive bounds of an integer type.
func intRange(typ *types.Descriptor) (lo, hi *big.Int) {
	bits := uint(typ.Size * 8)
	if typ.Prim.IsSigned() {
		hi = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits-1), big.NewInt(1))
		lo = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
		return lo, hi
	}
	return big.NewInt(0), new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
}

func fits(n *big.Int, typ *types.Descriptor) bool {
	lo, hi := intRange(typ)
	return n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0
}

// literal evaluates a literal. neg folds a leading minus into numeric
// literals so that the most negative value of a type is expressible.
func (r *run) literal(l *ast.Literal, neg bool) (*value.Value, error) {
	switch l.Kind {
	case ast.LitInt:
		return r.intLiteral(l.Text, neg)
	case ast.LitFloat:
		return r.floatLiteral(l.Text, neg)
	case ast.LitString:
		return value.String(r.reg.StrRef(), l.Text), nil
	case ast.LitByteString:
		arr, err := r.reg.ArrayOf(r.prim(types.PrimU8), uint64(len(l.Text)))
		if err != nil {
			return nil, err
		}
		return value.String(r.reg.RefTo(arr, false), l.Text), nil
	case ast.LitChar:
		return value.Char(r.prim(types.PrimChar), []rune(l.Text)[0]), nil
	case ast.LitByte:
		return value.Pin(value.Uint64Of(r.prim(types.PrimU8), uint64(l.Text[0]))), nil
	case ast.LitBool:
		return value.Bool(r.prim(types.PrimBool), l.Text == "true"), nil
	case ast.LitUnit:
		return value.Unit(r.prim(types.PrimUnit)), nil
	}
	return nil, errors.Unsupported(errors.PhaseEval, "literal kind")
}

func (r *run) intLiteral(text string, neg bool) (*value.Value, error) {
	body := strings.ReplaceAll(text, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(body, "0x"):
		base, body = 16, body[2:]
	case strings.HasPrefix(body, "0o"):
		base, body = 8, body[2:]
	case strings.HasPrefix(body, "0b"):
		base, body = 2, body[2:]
	}

	suffix := ""
	if i := strings.IndexAny(body, "iu"); i >= 0 {
		body, suffix = body[:i], body[i:]
	}

	n, ok := new(big.Int).SetString(body, base)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseEval, "invalid integer literal "+strconv.Quote(text))
	}
	if neg {
		n.Neg(n)
	}

	if suffix != "" {
		p, ok := types.ParsePrimitive(suffix)
		if !ok || !p.IsInteger() {
			return nil, errors.InvalidInput(errors.PhaseEval, "invalid integer suffix "+strconv.Quote(suffix))
		}
		typ := r.prim(p)
		if !fits(n, typ) {
			return nil, errors.Overflow(errors.PhaseEval, n.String(), suffix)
		}
		return value.Pin(value.Int(typ, n)), nil
	}

	var p types.Primitive
	switch {
	case fits(n, r.prim(types.PrimI32)):
		p = types.PrimI32
	case fits(n, r.prim(types.PrimI64)):
		p = types.PrimI64
	case fits(n, r.prim(types.PrimI128)):
		p = types.PrimI128
	case !neg && n.Cmp(maxU128) <= 0:
		p = types.PrimU128
	default:
		return nil, errors.Overflow(errors.PhaseEval, n.String(), "u128")
	}
	return value.Int(r.prim(p), n), nil
}

func (r *run) floatLiteral(text string, neg bool) (*value.Value, error) {
	body := strings.ReplaceAll(text, "_", "")
	p := types.PrimF64
	pinned := true
	switch {
	case strings.HasSuffix(body, "f32"):
		p, body = types.PrimF32, strings.TrimSuffix(body, "f32")
	case strings.HasSuffix(body, "f64"):
		body = strings.TrimSuffix(body, "f64")
	default:
		pinned = false
	}
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return nil, errors.InvalidInput(errors.PhaseEval, "invalid float literal "+strconv.Quote(text))
	}
	if neg {
		f = -f
	}
	v := value.Float(r.prim(p), f)
	if pinned {
		v = value.Pin(v)
	}
	return v, nil
}
