package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
)

// sexpr renders a tree in prefix form for comparison.
func sexpr(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.LitString:
			return fmt.Sprintf("%q", e.Text)
		case ast.LitUnit:
			return "()"
		}
		return e.Text
	case *ast.Path:
		return e.String()
	case *ast.Unary:
		return "(" + e.Op + " " + sexpr(e.X) + ")"
	case *ast.Binary:
		return "(" + e.Op + " " + sexpr(e.L) + " " + sexpr(e.R) + ")"
	case *ast.Assign:
		return "(= " + sexpr(e.L) + " " + sexpr(e.R) + ")"
	case *ast.Cast:
		return "(as " + sexpr(e.X) + " " + e.To.String() + ")"
	case *ast.Range:
		op := ".."
		if e.Inclusive {
			op = "..="
		}
		lo, hi := "_", "_"
		if e.Lo != nil {
			lo = sexpr(e.Lo)
		}
		if e.Hi != nil {
			hi = sexpr(e.Hi)
		}
		return "(" + op + " " + lo + " " + hi + ")"
	case *ast.Field:
		return "(. " + sexpr(e.X) + " " + e.Name + ")"
	case *ast.MethodCall:
		return "(call-method " + sexpr(e.Recv) + " " + e.Name + list(e.Args) + ")"
	case *ast.Call:
		return "(call " + sexpr(e.Fn) + list(e.Args) + ")"
	case *ast.Index:
		return "(index " + sexpr(e.X) + " " + sexpr(e.Index) + ")"
	case *ast.Paren:
		return "(paren " + sexpr(e.X) + ")"
	case *ast.Tuple:
		return "(tuple" + list(e.Elems) + ")"
	case *ast.Array:
		return "(array" + list(e.Elems) + ")"
	case *ast.Repeat:
		return "(repeat " + sexpr(e.Elem) + " " + sexpr(e.Count) + ")"
	case *ast.StructLit:
		var b strings.Builder
		b.WriteString("(struct " + e.Path.String())
		for _, f := range e.Fields {
			b.WriteString(" " + f.Name + ":" + sexpr(f.Value))
		}
		if e.Base != nil {
			b.WriteString(" .." + sexpr(e.Base))
		}
		return b.String() + ")"
	}
	return "?"
}

func list(es []ast.Expr) string {
	var b strings.Builder
	for _, e := range es {
		b.WriteString(" " + sexpr(e))
	}
	return b.String()
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"1 - 2 - 3", "(- (- 1 2) 3)"},
		{"a || b && c", "(|| a (&& b c))"},
		{"a | b ^ c & d", "(| a (^ b (& c d)))"},
		{"1 << 2 + 3", "(<< 1 (+ 2 3))"},
		{"a == b | c", "(== a (| b c))"},
		{"-x as u8", "(as (- x) u8)"},
		{"x as u8 + 1", "(+ (as x u8) 1)"},
		{"a = b = c", "(= a (= b c))"},
		{"x = 1 + 2", "(= x (+ 1 2))"},
		{"x[1..3]", "(index x (.. 1 3))"},
		{"x[..]", "(index x (.. _ _))"},
		{"x[2..]", "(index x (.. 2 _))"},
		{"x[..=4]", "(index x (..= _ 4))"},
		{"a..b + 1", "(.. a (+ b 1))"},
		{"x[1..3][0..1]", "(index (index x (.. 1 3)) (.. 0 1))"},
		{"*p.a", "(* (. p a))"},
		{"&mut x.a", "(&mut (. x a))"},
		{"&&x", "(& (& x))"},
		{"!a.b()", "(! (call-method a b))"},
		{"foo.f()", "(call-method foo f)"},
		{"(foo.f)()", "(call (paren (. foo f)))"},
		{"t.0.1", "(. (. t 0) 1)"},
		{"f(1, 2,)", "(call f 1 2)"},
		{"crate::m::f(x)", "(call crate::m::f x)"},
		{"::std::f", "::std::f"},
		{"Wrapper::<i32>::new(1)", "(call Wrapper::<i32>::new 1)"},
		{"Vec::<Vec<u8>>::new()", "(call Vec::<Vec<u8>>::new)"},
		{"x.get::<u8>(0)", "(call-method x get 0)"},
		{"x as &[u8]", "(as x &[u8])"},
		{"p as *const u8", "(as p *const u8)"},
		{"Point { x: 1, y }", "(struct Point x:1 y:y)"},
		{"Point { x: 1, ..p }", "(struct Point x:1 ..p)"},
		{"Empty {}", "(struct Empty)"},
		{"(1,)", "(tuple 1)"},
		{"(1, 2)", "(tuple 1 2)"},
		{"(1)", "(paren 1)"},
		{"()", "()"},
		{"[1, 2, 3]", "(array 1 2 3)"},
		{"[0u8; 4]", "(repeat 0u8 4)"},
		{"[]", "(array)"},
		{`"hi"`, `"hi"`},
		{"true && false", "(&& true false)"},
		{"Shape::Circle(1.5)", "(call Shape::Circle 1.5)"},
		{"self.x", "(. self x)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := sexpr(e); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"a == b == c",
		"a < b > c",
		"x[1",
		"f(1 2)",
		"(1, 2",
		"x.",
		"P { a: 1, a: 2 }",
		"..=",
		"x as",
		"1 2",
		"a..b..c",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded", in)
			}
			if !errors.IsKind(err, errors.KindSyntax) {
				t.Errorf("error kind = %v, want syntax: %v", errors.KindOf(err), err)
			}
		})
	}
}

func TestParse_Positions(t *testing.T) {
	e, err := Parse("  a + b")
	if err != nil {
		t.Fatal(err)
	}
	b := e.(*ast.Binary)
	if b.Pos() != 2 || b.R.Pos() != 6 {
		t.Errorf("positions %d %d", b.Pos(), b.R.Pos())
	}
}
