package parser

import (
	"fmt"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/token"
	"github.com/wippyai/debug-eval/types"
)

// parseType consumes the tokens of one type and parses their source span
// with the shared type-name grammar.
func (p *Parser) parseType() (types.TypeName, error) {
	start := p.peek().Pos
	if err := p.skipType(); err != nil {
		return types.TypeName{}, err
	}
	last := p.tokens[p.pos-1]
	end := last.Pos + len(last.Value)
	n, err := types.ParseTypeName(p.input[start:end])
	if err != nil {
		return types.TypeName{}, errors.Syntax(start, fmt.Sprintf("invalid type %q", p.input[start:end]))
	}
	return n, nil
}

// parseTypeArgs parses <T, U> with the opening < as the next token.
func (p *Parser) parseTypeArgs() ([]types.TypeName, error) {
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	var out []types.TypeName
	for {
		p.splitClose()
		if p.accept(">") {
			return out, nil
		}
		n, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
		p.splitClose()
		if p.accept(",") {
			continue
		}
		if _, err := p.expectPunct(">"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (p *Parser) skipType() error {
	t := p.next()
	switch {
	case t.Is("&") || t.Is("&&"):
		if p.peek().Is("mut") {
			p.next()
		}
		return p.skipType()

	case t.Is("*"):
		q := p.next()
		if !q.Is("const") && !q.Is("mut") {
			return errors.Syntax(q.Pos, "expected const or mut after *")
		}
		return p.skipType()

	case t.Is("!"):
		return nil

	case t.Is("["):
		if err := p.skipType(); err != nil {
			return err
		}
		if p.accept(";") {
			if _, err := p.expect(token.Int); err != nil {
				return err
			}
		}
		_, err := p.expectPunct("]")
		return err

	case t.Is("("):
		return p.skipTypeList(")")

	case t.Is("fn"):
		if _, err := p.expectPunct("("); err != nil {
			return err
		}
		if err := p.skipTypeList(")"); err != nil {
			return err
		}
		if p.accept("->") {
			return p.skipType()
		}
		return nil

	case t.Is("dyn"):
		return p.skipPath()

	case t.Is("::") || t.Type == token.Ident:
		p.pos--
		return p.skipPath()
	}
	return errors.Syntax(t.Pos, fmt.Sprintf("expected type, got %q", t.Value))
}

func (p *Parser) skipTypeList(close string) error {
	for {
		if close == ">" {
			p.splitClose()
		}
		if p.accept(close) {
			return nil
		}
		if err := p.skipType(); err != nil {
			return err
		}
		if close == ">" {
			p.splitClose()
		}
		if p.accept(",") {
			continue
		}
		_, err := p.expectPunct(close)
		return err
	}
}

func (p *Parser) skipPath() error {
	p.accept("::")
	for {
		if _, err := p.expect(token.Ident); err != nil {
			return err
		}
		if p.peek().Is("<") {
			p.next()
			if err := p.skipTypeList(">"); err != nil {
				return err
			}
		}
		if !(p.peek().Is("::") && p.peekAt(1).Type == token.Ident) {
			return nil
		}
		p.next()
	}
}
