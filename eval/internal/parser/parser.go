// Package parser builds expression trees from tokens by precedence climbing.
package parser

import (
	"fmt"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/eval/internal/token"
	"github.com/wippyai/debug-eval/types"
)

// Binding powers, lowest first.
const (
	bpAssign = 1 + iota
	bpRange
	bpOr
	bpAnd
	bpCompare
	bpBitOr
	bpBitXor
	bpBitAnd
	bpShift
	bpAdd
	bpMul
	bpCast
)

var binaryPower = map[string]int{
	"||": bpOr,
	"&&": bpAnd,
	"==": bpCompare, "!=": bpCompare, "<": bpCompare, "<=": bpCompare, ">": bpCompare, ">=": bpCompare,
	"|":  bpBitOr,
	"^":  bpBitXor,
	"&":  bpBitAnd,
	"<<": bpShift, ">>": bpShift,
	"+": bpAdd, "-": bpAdd,
	"*": bpMul, "/": bpMul, "%": bpMul,
}

type Parser struct {
	input  string
	tokens []token.Token
	pos    int
}

func New(input string, tokens []token.Token) *Parser {
	return &Parser{input: input, tokens: tokens}
}

// Parse tokenizes and parses a complete expression.
func Parse(input string) (ast.Expr, error) {
	tokens, err := token.Tokenize(input)
	if err != nil {
		return nil, err
	}
	return New(input, tokens).Parse()
}

func (p *Parser) Parse() (ast.Expr, error) {
	if p.peek().Type == token.EOF {
		return nil, errors.Syntax(0, "empty expression")
	}
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.Type != token.EOF {
		return nil, errors.Syntax(t.Pos, fmt.Sprintf("unexpected %q", t.Value))
	}
	return e, nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return &p.tokens[len(p.tokens)-1]
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peekAt(off int) *token.Token {
	if p.pos+off >= len(p.tokens) {
		return &p.tokens[len(p.tokens)-1]
	}
	return &p.tokens[p.pos+off]
}

func (p *Parser) next() *token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t.Type != typ {
		return nil, errors.Syntax(t.Pos, fmt.Sprintf("expected %v, got %q", typ, t.Value))
	}
	return t, nil
}

func (p *Parser) expectPunct(s string) (*token.Token, error) {
	t := p.next()
	if !(t.Type == token.Punct && t.Value == s) {
		if t.Type == token.EOF {
			return nil, errors.Syntax(t.Pos, fmt.Sprintf("expected %q, got end of input", s))
		}
		return nil, errors.Syntax(t.Pos, fmt.Sprintf("expected %q, got %q", s, t.Value))
	}
	return t, nil
}

func (p *Parser) accept(s string) bool {
	if t := p.peek(); t.Type == token.Punct && t.Value == s {
		p.pos++
		return true
	}
	return false
}

// splitClose turns a leading ">>" into two ">" tokens so nested generic
// lists can close one level at a time.
func (p *Parser) splitClose() {
	t := p.peek()
	if t.Type != token.Punct || t.Value != ">>" {
		return
	}
	second := token.Token{Value: ">", Type: token.Punct, Pos: t.Pos + 1}
	t.Value = ">"
	p.tokens = append(p.tokens[:p.pos+1], append([]token.Token{second}, p.tokens[p.pos+1:]...)...)
}

// startsExpr reports whether t can begin an operand.
func startsExpr(t *token.Token) bool {
	switch t.Type {
	case token.EOF:
		return false
	case token.Punct:
		switch t.Value {
		case "(", "[", "-", "!", "*", "&", "&&", "::", "..", "..=":
			return true
		}
		return false
	}
	return true
}

func isCompare(op string) bool {
	return binaryPower[op] == bpCompare
}

func (p *Parser) parseExpr(min int) (ast.Expr, error) {
	var lhs ast.Expr
	if t := p.peek(); t.Is("..") || t.Is("..=") {
		r, err := p.parseRange(nil, min)
		if err != nil {
			return nil, err
		}
		lhs = r
	} else {
		u, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = u
	}

	for {
		t := p.peek()
		if t.Type != token.Punct && !(t.Type == token.Ident && t.Value == "as") {
			return lhs, nil
		}
		switch {
		case t.Value == "=":
			if min > bpAssign {
				return lhs, nil
			}
			p.next()
			rhs, err := p.parseExpr(bpAssign)
			if err != nil {
				return nil, err
			}
			lhs = &ast.Assign{L: lhs, R: rhs, Offset: lhs.Pos()}

		case t.Value == ".." || t.Value == "..=":
			if min > bpRange {
				return lhs, nil
			}
			if _, ok := lhs.(*ast.Range); ok {
				return nil, errors.Syntax(t.Pos, "range bounds cannot be ranges")
			}
			r, err := p.parseRange(lhs, min)
			if err != nil {
				return nil, err
			}
			lhs = r

		case t.Value == "as":
			if min > bpCast {
				return lhs, nil
			}
			p.next()
			to, err := p.parseType()
			if err != nil {
				return nil, err
			}
			lhs = &ast.Cast{X: lhs, To: to, Offset: lhs.Pos()}

		default:
			bp, ok := binaryPower[t.Value]
			if !ok || bp < min {
				return lhs, nil
			}
			p.next()
			rhs, err := p.parseExpr(bp + 1)
			if err != nil {
				return nil, err
			}
			if isCompare(t.Value) {
				if b, ok := rhs.(*ast.Binary); ok && isCompare(b.Op) {
					return nil, errors.Syntax(b.Offset, "comparison operators cannot be chained")
				}
				if next := p.peek(); next.Type == token.Punct && isCompare(next.Value) {
					return nil, errors.Syntax(next.Pos, "comparison operators cannot be chained")
				}
			}
			lhs = &ast.Binary{L: lhs, R: rhs, Op: t.Value, Offset: lhs.Pos()}
		}
	}
}

// parseRange consumes the range operator and an optional upper bound.
func (p *Parser) parseRange(lo ast.Expr, min int) (ast.Expr, error) {
	op := p.next()
	r := &ast.Range{Lo: lo, Inclusive: op.Value == "..=", Offset: op.Pos}
	if lo != nil {
		r.Offset = lo.Pos()
	}
	if startsExpr(p.peek()) {
		hi, err := p.parseExpr(bpRange + 1)
		if err != nil {
			return nil, err
		}
		r.Hi = hi
	}
	if r.Inclusive && r.Hi == nil {
		return nil, errors.Syntax(op.Pos, "inclusive range needs an upper bound")
	}
	return r, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	t := p.peek()
	if t.Type == token.Punct {
		switch t.Value {
		case "-", "!", "*":
			p.next()
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return &ast.Unary{X: x, Op: t.Value, Offset: t.Pos}, nil
		case "&", "&&":
			p.next()
			op := "&"
			if p.peek().Is("mut") {
				p.next()
				op = "&mut"
			}
			x, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			var e ast.Expr = &ast.Unary{X: x, Op: op, Offset: t.Pos}
			if t.Value == "&&" {
				e = &ast.Unary{X: e, Op: "&", Offset: t.Pos}
			}
			return e, nil
		}
	}
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(prim)
}

func (p *Parser) parsePostfix(x ast.Expr) (ast.Expr, error) {
	for {
		t := p.peek()
		switch {
		case t.Is("."):
			p.next()
			name := p.next()
			switch name.Type {
			case token.Int:
				x = &ast.Field{X: x, Name: name.Value, Offset: x.Pos()}
				continue
			case token.Ident:
			default:
				return nil, errors.Syntax(name.Pos, fmt.Sprintf("expected field name, got %q", name.Value))
			}

			var generics []types.TypeName
			if p.peek().Is("::") && p.peekAt(1).Is("<") {
				p.next()
				g, err := p.parseTypeArgs()
				if err != nil {
					return nil, err
				}
				generics = g
				if !p.peek().Is("(") {
					return nil, errors.Syntax(p.peek().Pos, "expected ( after method generics")
				}
			}
			if p.peek().Is("(") {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				x = &ast.MethodCall{Recv: x, Name: name.Value, Generics: generics, Args: args, Offset: x.Pos()}
				continue
			}
			x = &ast.Field{X: x, Name: name.Value, Offset: x.Pos()}

		case t.Is("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.Call{Fn: x, Args: args, Offset: x.Pos()}

		case t.Is("["):
			p.next()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			x = &ast.Index{X: x, Index: idx, Offset: x.Pos()}

		default:
			return x, nil
		}
	}
}

// parseArgs parses a parenthesized, comma separated list.
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	return p.parseList(")")
}

func (p *Parser) parseList(close string) ([]ast.Expr, error) {
	var out []ast.Expr
	for !p.accept(close) {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.accept(",") {
			continue
		}
		if _, err := p.expectPunct(close); err != nil {
			return nil, err
		}
		break
	}
	return out, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.peek()
	switch t.Type {
	case token.EOF:
		return nil, errors.Syntax(t.Pos, "unexpected end of input")
	case token.Int:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitInt, Offset: t.Pos}, nil
	case token.Float:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitFloat, Offset: t.Pos}, nil
	case token.String:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitString, Offset: t.Pos}, nil
	case token.ByteString:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitByteString, Offset: t.Pos}, nil
	case token.Char:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitChar, Offset: t.Pos}, nil
	case token.Byte:
		p.next()
		return &ast.Literal{Text: t.Value, Kind: ast.LitByte, Offset: t.Pos}, nil
	case token.Ident:
		switch t.Value {
		case "true", "false":
			p.next()
			return &ast.Literal{Text: t.Value, Kind: ast.LitBool, Offset: t.Pos}, nil
		case "as", "mut", "fn", "dyn", "const":
			return nil, errors.Syntax(t.Pos, fmt.Sprintf("unexpected keyword %q", t.Value))
		}
		return p.parsePathExpr()
	}

	switch t.Value {
	case "::":
		return p.parsePathExpr()

	case "(":
		p.next()
		if p.accept(")") {
			return &ast.Literal{Kind: ast.LitUnit, Offset: t.Pos}, nil
		}
		first, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.accept(")") {
			return &ast.Paren{X: first, Offset: t.Pos}, nil
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		rest, err := p.parseList(")")
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Elems: append([]ast.Expr{first}, rest...), Offset: t.Pos}, nil

	case "[":
		p.next()
		if p.accept("]") {
			return &ast.Array{Offset: t.Pos}, nil
		}
		first, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if p.accept(";") {
			count, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			return &ast.Repeat{Elem: first, Count: count, Offset: t.Pos}, nil
		}
		elems := []ast.Expr{first}
		if p.accept(",") {
			rest, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			elems = append(elems, rest...)
		} else if _, err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return &ast.Array{Elems: elems, Offset: t.Pos}, nil
	}
	return nil, errors.Syntax(t.Pos, fmt.Sprintf("unexpected %q", t.Value))
}

// parsePathExpr parses a path and, when a brace follows, a struct literal.
func (p *Parser) parsePathExpr() (ast.Expr, error) {
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if !p.peek().Is("{") {
		return path, nil
	}
	return p.parseStructLit(path)
}

func (p *Parser) parsePath() (*ast.Path, error) {
	path := &ast.Path{Offset: p.peek().Pos}
	if p.accept("::") {
		path.Absolute = true
	}
	for {
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		seg := ast.Segment{Name: name.Value}
		if p.peek().Is("::") && p.peekAt(1).Is("<") {
			p.next()
			g, err := p.parseTypeArgs()
			if err != nil {
				return nil, err
			}
			seg.Generics = g
		}
		path.Segments = append(path.Segments, seg)
		if !(p.peek().Is("::") && p.peekAt(1).Type == token.Ident) {
			return path, nil
		}
		p.next()
	}
}

func (p *Parser) parseStructLit(path *ast.Path) (ast.Expr, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	lit := &ast.StructLit{Path: path, Offset: path.Offset}
	seen := make(map[string]bool)
	for !p.accept("}") {
		if p.accept("..") {
			base, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			lit.Base = base
			if _, err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			break
		}

		name := p.next()
		if name.Type != token.Ident && name.Type != token.Int {
			return nil, errors.Syntax(name.Pos, fmt.Sprintf("expected field name, got %q", name.Value))
		}
		if seen[name.Value] {
			return nil, errors.Syntax(name.Pos, fmt.Sprintf("field %q specified more than once", name.Value))
		}
		seen[name.Value] = true

		init := ast.FieldInit{Name: name.Value}
		if p.accept(":") {
			v, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			init.Value = v
		} else if name.Type == token.Ident {
			init.Value = &ast.Path{Segments: []ast.Segment{{Name: name.Value}}, Offset: name.Pos}
		} else {
			return nil, errors.Syntax(name.Pos, "positional field needs a value")
		}
		lit.Fields = append(lit.Fields, init)

		if p.accept(",") {
			continue
		}
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		break
	}
	return lit, nil
}
