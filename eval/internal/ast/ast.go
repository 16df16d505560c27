// Package ast defines the syntax tree of debugger expressions.
package ast

import (
	"strings"

	"github.com/wippyai/debug-eval/types"
)

// Expr is any expression node. Pos is the byte offset of its first token.
type Expr interface {
	Pos() int
	exprNode()
}

type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitByteString
	LitChar
	LitByte
	LitBool
	LitUnit
)

// Literal holds source text for numbers and decoded contents otherwise.
type Literal struct {
	Text   string
	Offset int
	Kind   LitKind
}

// Segment is one path component with optional turbofish arguments.
type Segment struct {
	Name     string
	Generics []types.TypeName
}

type Path struct {
	Segments []Segment
	Offset   int
	Absolute bool
}

// String renders the path with :: separators and turbofish generics.
func (p *Path) String() string {
	var b strings.Builder
	if p.Absolute {
		b.WriteString("::")
	}
	for i, s := range p.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(s.Name)
		if len(s.Generics) > 0 {
			b.WriteString("::<")
			for j, g := range s.Generics {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(g.String())
			}
			b.WriteByte('>')
		}
	}
	return b.String()
}

// Single returns the bare identifier when the path is one plain segment.
func (p *Path) Single() (string, bool) {
	if p.Absolute || len(p.Segments) != 1 || len(p.Segments[0].Generics) > 0 {
		return "", false
	}
	return p.Segments[0].Name, true
}

type Unary struct {
	X      Expr
	Op     string // "-", "!", "*", "&", "&mut"
	Offset int
}

type Binary struct {
	L, R   Expr
	Op     string
	Offset int
}

type Assign struct {
	L, R   Expr
	Offset int
}

type Cast struct {
	X      Expr
	To     types.TypeName
	Offset int
}

// Range is a..b, a..=b or any form with a missing bound.
type Range struct {
	Lo, Hi    Expr
	Offset    int
	Inclusive bool
}

// Field is x.name or the tuple index x.0.
type Field struct {
	X      Expr
	Name   string
	Offset int
}

// MethodCall is recv.name(args). A parenthesized (recv.name)(args) is a
// Call of a Field instead.
type MethodCall struct {
	Recv     Expr
	Name     string
	Generics []types.TypeName
	Args     []Expr
	Offset   int
}

type Call struct {
	Fn     Expr
	Args   []Expr
	Offset int
}

type Index struct {
	X, Index Expr
	Offset   int
}

type FieldInit struct {
	Value Expr
	Name  string
}

type StructLit struct {
	Base   Expr
	Path   *Path
	Fields []FieldInit
	Offset int
}

type Tuple struct {
	Elems  []Expr
	Offset int
}

type Array struct {
	Elems  []Expr
	Offset int
}

// Repeat is [x; n].
type Repeat struct {
	Elem, Count Expr
	Offset      int
}

// Paren keeps grouping visible so that (x.f)(args) stays a field call.
type Paren struct {
	X      Expr
	Offset int
}

func (e *Literal) Pos() int    { return e.Offset }
func (e *Path) Pos() int       { return e.Offset }
func (e *Unary) Pos() int      { return e.Offset }
func (e *Binary) Pos() int     { return e.Offset }
func (e *Assign) Pos() int     { return e.Offset }
func (e *Cast) Pos() int       { return e.Offset }
func (e *Range) Pos() int      { return e.Offset }
func (e *Field) Pos() int      { return e.Offset }
func (e *MethodCall) Pos() int { return e.Offset }
func (e *Call) Pos() int       { return e.Offset }
func (e *Index) Pos() int      { return e.Offset }
func (e *StructLit) Pos() int  { return e.Offset }
func (e *Tuple) Pos() int      { return e.Offset }
func (e *Array) Pos() int      { return e.Offset }
func (e *Repeat) Pos() int     { return e.Offset }
func (e *Paren) Pos() int      { return e.Offset }

func (*Literal) exprNode()    {}
func (*Path) exprNode()       {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Assign) exprNode()     {}
func (*Cast) exprNode()       {}
func (*Range) exprNode()      {}
func (*Field) exprNode()      {}
func (*MethodCall) exprNode() {}
func (*Call) exprNode()       {}
func (*Index) exprNode()      {}
func (*StructLit) exprNode()  {}
func (*Tuple) exprNode()      {}
func (*Array) exprNode()      {}
func (*Repeat) exprNode()     {}
func (*Paren) exprNode()      {}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}
