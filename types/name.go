package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/debug-eval/errors"
)

// NameKind is the syntactic form of a TypeName.
type NameKind uint8

const (
	NamePath NameKind = iota
	NameRef
	NamePointer
	NameArray
	NameUnsized
	NameTuple
	NameFn
	NameDyn
)

// TypeName is a parsed textual type such as "&mut [u8]" or
// "demo::Pair<i32, demo::Unit>".
type TypeName struct {
	Elem    *TypeName
	Result  *TypeName
	Path    string
	Args    []TypeName
	Elems   []TypeName
	Len     uint64
	Kind    NameKind
	Mutable bool
}

// String renders the name in canonical form, matching Descriptor.Identity.
func (n TypeName) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n TypeName) write(b *strings.Builder) {
	switch n.Kind {
	case NameRef:
		b.WriteByte('&')
		if n.Mutable {
			b.WriteString("mut ")
		}
		n.Elem.write(b)
	case NamePointer:
		if n.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		n.Elem.write(b)
	case NameArray:
		b.WriteByte('[')
		n.Elem.write(b)
		b.WriteString("; ")
		b.WriteString(strconv.FormatUint(n.Len, 10))
		b.WriteByte(']')
	case NameUnsized:
		b.WriteByte('[')
		n.Elem.write(b)
		b.WriteByte(']')
	case NameTuple:
		b.WriteByte('(')
		for i, e := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b)
		}
		if len(n.Elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case NameFn:
		b.WriteString("fn(")
		for i, e := range n.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			e.write(b)
		}
		b.WriteByte(')')
		if n.Result != nil && !(n.Result.Kind == NameTuple && len(n.Result.Elems) == 0) {
			b.WriteString(" -> ")
			n.Result.write(b)
		}
	case NameDyn:
		b.WriteString("dyn ")
		b.WriteString(n.Path)
	default:
		b.WriteString(n.Path)
		if len(n.Args) > 0 {
			b.WriteByte('<')
			for i, a := range n.Args {
				if i > 0 {
					b.WriteString(", ")
				}
				a.write(b)
			}
			b.WriteByte('>')
		}
	}
}

// ParseTypeName parses a textual type name.
func ParseTypeName(s string) (TypeName, error) {
	p := &nameParser{src: s}
	n, err := p.parseType()
	if err != nil {
		return TypeName{}, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return TypeName{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return n, nil
}

// MustParseTypeName is ParseTypeName that panics on error. For fixtures.
func MustParseTypeName(s string) TypeName {
	n, err := ParseTypeName(s)
	if err != nil {
		panic(err)
	}
	return n
}

type nameParser struct {
	src string
	pos int
}

func (p *nameParser) errorf(format string, args ...any) error {
	return errors.New(errors.PhaseParse, errors.KindSyntax).
		Type(p.src).
		Detail("offset %d: %s", p.pos, fmt.Sprintf(format, args...)).
		Build()
}

func (p *nameParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *nameParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

// acceptWord matches a keyword followed by a non-identifier byte.
func (p *nameParser) acceptWord(word string) bool {
	p.skipSpace()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, word) {
		return false
	}
	if len(rest) > len(word) && isIdentByte(rest[len(word)]) {
		return false
	}
	p.pos += len(word)
	return true
}

func (p *nameParser) expect(tok string) error {
	if !p.accept(tok) {
		return p.errorf("expected %q", tok)
	}
	return nil
}

func (p *nameParser) parseType() (TypeName, error) {
	switch {
	case p.accept("&&"):
		inner, err := p.parseRefTail()
		if err != nil {
			return TypeName{}, err
		}
		return TypeName{Kind: NameRef, Elem: &inner}, nil

	case p.accept("&"):
		return p.parseRefTail()

	case p.accept("*"):
		var mut bool
		switch {
		case p.acceptWord("mut"):
			mut = true
		case p.acceptWord("const"):
		default:
			return TypeName{}, p.errorf("expected const or mut after *")
		}
		elem, err := p.parseType()
		if err != nil {
			return TypeName{}, err
		}
		return TypeName{Kind: NamePointer, Mutable: mut, Elem: &elem}, nil

	case p.accept("["):
		elem, err := p.parseType()
		if err != nil {
			return TypeName{}, err
		}
		if p.accept("]") {
			return TypeName{Kind: NameUnsized, Elem: &elem}, nil
		}
		if err := p.expect(";"); err != nil {
			return TypeName{}, err
		}
		n, err := p.parseNumber()
		if err != nil {
			return TypeName{}, err
		}
		if err := p.expect("]"); err != nil {
			return TypeName{}, err
		}
		return TypeName{Kind: NameArray, Elem: &elem, Len: n}, nil

	case p.accept("("):
		elems, trailingComma, err := p.parseList(")")
		if err != nil {
			return TypeName{}, err
		}
		// (T) without a comma is just T.
		if len(elems) == 1 && !trailingComma {
			return elems[0], nil
		}
		return TypeName{Kind: NameTuple, Elems: elems}, nil

	case p.acceptWord("fn"):
		if err := p.expect("("); err != nil {
			return TypeName{}, err
		}
		params, _, err := p.parseList(")")
		if err != nil {
			return TypeName{}, err
		}
		n := TypeName{Kind: NameFn, Elems: params}
		if p.accept("->") {
			res, err := p.parseType()
			if err != nil {
				return TypeName{}, err
			}
			n.Result = &res
		}
		return n, nil

	case p.acceptWord("dyn"):
		path, err := p.parsePathText()
		if err != nil {
			return TypeName{}, err
		}
		return TypeName{Kind: NameDyn, Path: path}, nil
	}

	return p.parsePath()
}

func (p *nameParser) parseRefTail() (TypeName, error) {
	mut := p.acceptWord("mut")
	elem, err := p.parseType()
	if err != nil {
		return TypeName{}, err
	}
	return TypeName{Kind: NameRef, Mutable: mut, Elem: &elem}, nil
}

// parseList parses comma-separated types up to close.
func (p *nameParser) parseList(close string) ([]TypeName, bool, error) {
	var out []TypeName
	trailing := false
	for {
		if p.accept(close) {
			return out, trailing, nil
		}
		t, err := p.parseType()
		if err != nil {
			return nil, false, err
		}
		out = append(out, t)
		trailing = p.accept(",")
		if !trailing {
			if err := p.expect(close); err != nil {
				return nil, false, err
			}
			return out, false, nil
		}
	}
}

func (p *nameParser) parseNumber() (uint64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '_') {
		p.pos++
	}
	n, err := strconv.ParseUint(strings.ReplaceAll(p.src[start:p.pos], "_", ""), 10, 64)
	if err != nil {
		p.pos = start
		return 0, p.errorf("expected array length")
	}
	return n, nil
}

func (p *nameParser) parsePath() (TypeName, error) {
	if p.accept("!") {
		return TypeName{Kind: NamePath, Path: "!"}, nil
	}

	path, err := p.parsePathText()
	if err != nil {
		return TypeName{}, err
	}
	n := TypeName{Kind: NamePath, Path: path}

	if p.accept("<") {
		args, _, err := p.parseList(">")
		if err != nil {
			return TypeName{}, err
		}
		n.Args = args
	}
	return n, nil
}

// parsePathText reads a :: separated path. Segments are identifiers or
// compiler-generated names in braces such as {closure_env#0}.
func (p *nameParser) parsePathText() (string, error) {
	p.skipSpace()
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "::") {
		p.pos += 2
	}
	for {
		if !p.segment() {
			p.pos = start
			return "", p.errorf("expected type name")
		}
		if !strings.HasPrefix(p.src[p.pos:], "::") || strings.HasPrefix(p.src[p.pos:], "::<") {
			break
		}
		p.pos += 2
	}
	return p.src[start:p.pos], nil
}

func (p *nameParser) segment() bool {
	if p.pos >= len(p.src) {
		return false
	}
	if p.src[p.pos] == '{' {
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 0 {
			return false
		}
		p.pos += end + 1
		return true
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start && !(p.src[start] >= '0' && p.src[start] <= '9')
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
