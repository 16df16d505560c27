package token

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wippyai/debug-eval/errors"
)

type Type int

const (
	EOF Type = iota
	Ident
	Int
	Float
	String
	ByteString
	Char
	Byte
	Punct
)

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Ident:
		return "identifier"
	case Int:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case ByteString:
		return "byte string"
	case Char:
		return "char"
	case Byte:
		return "byte"
	case Punct:
		return "punctuation"
	}
	return "unknown"
}

// Token is one lexeme. For numbers Value is the source text including any
// suffix; for string and char literals it is the unescaped contents.
type Token struct {
	Value string
	Type  Type
	Pos   int
}

// Is reports whether the token is the given punctuation or identifier.
func (t Token) Is(s string) bool {
	return (t.Type == Punct || t.Type == Ident) && t.Value == s
}

// Longest first.
var puncts = []string{
	"..=", "...",
	"::", "->", "=>", "==", "!=", "<=", ">=", "&&", "||", "<<", ">>", "..",
	"+", "-", "*", "/", "%", "^", "!", "&", "|", "=", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ".", ":", ";", "#", "?",
}

// Tokenize splits an expression into tokens, ending with an EOF token.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{src: input}
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, t)
		if t.Type == EOF {
			return l.tokens, nil
		}
	}
}

type lexer struct {
	src    string
	tokens []Token
	pos    int
}

func (l *lexer) peekAt(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) afterDot() bool {
	n := len(l.tokens)
	return n > 0 && l.tokens[n-1].Type == Punct && l.tokens[n-1].Value == "."
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == 'b' && l.peekAt(1) == '\'':
		l.pos++
		s, err := l.quoted('\'', true)
		if err != nil {
			return Token{}, err
		}
		if len(s) != 1 {
			return Token{}, errors.Syntax(start, "byte literal must be one ASCII byte")
		}
		return Token{Value: s, Type: Byte, Pos: start}, nil

	case c == 'b' && l.peekAt(1) == '"':
		l.pos++
		s, err := l.quoted('"', true)
		if err != nil {
			return Token{}, err
		}
		return Token{Value: s, Type: ByteString, Pos: start}, nil

	case c == 'b' && l.peekAt(1) == 'r' && (l.peekAt(2) == '"' || l.peekAt(2) == '#'):
		l.pos += 2
		s, err := l.raw(start)
		if err != nil {
			return Token{}, err
		}
		return Token{Value: s, Type: ByteString, Pos: start}, nil

	case c == 'r' && (l.peekAt(1) == '"' || l.peekAt(1) == '#' && (l.peekAt(2) == '"' || l.peekAt(2) == '#')):
		l.pos++
		s, err := l.raw(start)
		if err != nil {
			return Token{}, err
		}
		return Token{Value: s, Type: String, Pos: start}, nil

	case c == '"':
		s, err := l.quoted('"', false)
		if err != nil {
			return Token{}, err
		}
		return Token{Value: s, Type: String, Pos: start}, nil

	case c == '\'':
		s, err := l.quoted('\'', false)
		if err != nil {
			return Token{}, err
		}
		if utf8.RuneCountInString(s) != 1 {
			return Token{}, errors.Syntax(start, "char literal must hold exactly one character")
		}
		return Token{Value: s, Type: Char, Pos: start}, nil

	case c >= '0' && c <= '9':
		return l.number()

	case c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80:
		for l.pos < len(l.src) {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				break
			}
			l.pos += size
		}
		if l.pos == start {
			return Token{}, errors.Syntax(start, "unexpected character")
		}
		return Token{Value: l.src[start:l.pos], Type: Ident, Pos: start}, nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return Token{Value: p, Type: Punct, Pos: start}, nil
		}
	}
	return Token{}, errors.Syntax(start, "unexpected character "+strconv.QuoteRune(rune(c)))
}

func isDigit(c byte, base int) bool {
	switch base {
	case 2:
		return c == '0' || c == '1'
	case 8:
		return c >= '0' && c <= '7'
	case 16:
		return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
	}
	return c >= '0' && c <= '9'
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// number lexes integer and float literals with an optional type suffix.
// After a '.' only the integer part is taken so that x.0.1 is two tuple
// indexes rather than a float.
func (l *lexer) number() (Token, error) {
	start := l.pos
	base := 10
	if l.src[l.pos] == '0' {
		switch l.peekAt(1) {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 10 {
			l.pos += 2
		}
	}

	digits := func() {
		for l.pos < len(l.src) && (isDigit(l.src[l.pos], base) || l.src[l.pos] == '_') {
			l.pos++
		}
	}
	digits()

	typ := Int
	if base == 10 && !l.afterDot() {
		// A fraction needs a digit or nothing identifier-like after the dot,
		// and must not be the start of a range.
		if l.peekAt(0) == '.' && l.peekAt(1) != '.' && !(isIdentByte(l.peekAt(1)) && !isDigit(l.peekAt(1), 10)) {
			typ = Float
			l.pos++
			digits()
		}
		if c := l.peekAt(0); c == 'e' || c == 'E' {
			save := l.pos
			l.pos++
			if c := l.peekAt(0); c == '+' || c == '-' {
				l.pos++
			}
			if isDigit(l.peekAt(0), 10) {
				typ = Float
				digits()
			} else {
				l.pos = save
			}
		}
	}

	if l.pos == start+2 && base != 10 {
		return Token{}, errors.Syntax(start, "missing digits after radix prefix")
	}

	// Suffix.
	if c := l.peekAt(0); c == 'i' || c == 'u' || c == 'f' && base == 10 {
		for l.pos < len(l.src) && isIdentByte(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	if strings.HasSuffix(text, "f32") || strings.HasSuffix(text, "f64") {
		typ = Float
	}
	return Token{Value: text, Type: typ, Pos: start}, nil
}

// quoted reads a literal delimited by q, processing escapes. Outside byte
// literals a \x escape is limited to ASCII.
func (l *lexer) quoted(q byte, bytes bool) (string, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", errors.Syntax(start, "unterminated literal")
		}
		c := l.src[l.pos]
		if c == q {
			l.pos++
			return b.String(), nil
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(l.src[l.pos:])
			b.WriteRune(r)
			l.pos += size
			continue
		}

		l.pos++
		if l.pos >= len(l.src) {
			return "", errors.Syntax(start, "unterminated escape")
		}
		esc := l.src[l.pos]
		l.pos++
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '0':
			b.WriteByte(0)
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '\n':
			for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
				l.pos++
			}
		case 'x':
			if l.pos+2 > len(l.src) {
				return "", errors.Syntax(l.pos, "short \\x escape")
			}
			n, err := strconv.ParseUint(l.src[l.pos:l.pos+2], 16, 8)
			if err != nil {
				return "", errors.Syntax(l.pos, "invalid \\x escape")
			}
			if n > 0x7F && !bytes {
				return "", errors.Syntax(l.pos, "\\x escape above 0x7f")
			}
			b.WriteByte(byte(n))
			l.pos += 2
		case 'u':
			if l.peekAt(0) != '{' {
				return "", errors.Syntax(l.pos, "expected { after \\u")
			}
			end := strings.IndexByte(l.src[l.pos:], '}')
			if end < 0 {
				return "", errors.Syntax(l.pos, "unterminated \\u escape")
			}
			hex := strings.ReplaceAll(l.src[l.pos+1:l.pos+end], "_", "")
			n, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || n > unicode.MaxRune || n >= 0xD800 && n <= 0xDFFF {
				return "", errors.Syntax(l.pos, "invalid unicode escape")
			}
			b.WriteRune(rune(n))
			l.pos += end + 1
		default:
			return "", errors.Syntax(l.pos-1, "unknown escape \\"+string(esc))
		}
	}
}

// raw reads r"..." or r#"..."# starting after the r.
func (l *lexer) raw(start int) (string, error) {
	hashes := 0
	for l.peekAt(0) == '#' {
		hashes++
		l.pos++
	}
	if l.peekAt(0) != '"' {
		return "", errors.Syntax(start, "expected \" in raw string")
	}
	l.pos++
	closing := "\"" + strings.Repeat("#", hashes)
	end := strings.Index(l.src[l.pos:], closing)
	if end < 0 {
		return "", errors.Syntax(start, "unterminated raw string")
	}
	s := l.src[l.pos : l.pos+end]
	l.pos += end + len(closing)
	return s, nil
}
