package format_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/format"
	"github.com/wippyai/debug-eval/internal/demo"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

func setup(t *testing.T) (*demo.Program, *eval.Evaluator) {
	t.Helper()
	p, err := demo.New()
	if err != nil {
		t.Fatalf("demo.New: %v", err)
	}
	return p, eval.New(p.Types, p.Scopes, p.Memory, eval.WithInvoker(p))
}

func TestFormatter_Format(t *testing.T) {
	p, ev := setup(t)
	f := format.Formatter{Memory: p.Memory, Decoder: ev.Decoder(), Options: ev.DecodeOptions()}

	tests := []struct {
		expr string
		want string
	}{
		{"p", "demo::Point { x: 3, y: -4 }"},
		{"pair", "demo::Pair { a: 5, b: Empty }"},
		{"pair2", "demo::Pair { a: 5, b: Some(3) }"},
		{"shape", "Rect { w: 2, h: 3 }"},
		{"circle", "Circle(2.5)"},
		{"demo::Shape::Empty", "Empty"},
		{"w", "demo::Wrapper(9)"},
		{"demo::Unit", "demo::Unit"},
		{"bits", "demo::Bits { i: 1065353216, f: 1 }"},
		{"add_k", "demo::main::{closure#0} { k: 100 }"},
		{"x", "[1, 2, 3, 4]"},
		{"nums", "[10, 20, 30]"},
		{"[0u8; 0]", "[]"},
		{"[7; 3]", "[7, 7, 7]"},
		{"(1, 2u8)", "(1, 2)"},
		{"(1,)", "(1,)"},
		{"x[1..3]", "&[i32] [2, 3]"},
		{"x[1..1]", "&[i32] []"},
		{"s", "&[i32] [2, 3, 4]"},
		{"name", `"hello"`},
		{"name[1..3]", `"el"`},
		{`"a\"b"`, `"a\"b"`},
		{`b"ab"`, `b"ab"`},
		{"c", "97 'a'"},
		{"'é'", "233 'é'"},
		{"flag", "true"},
		{"small", "-5"},
		{"big", "1099511627776"},
		{"170141183460469231731687303715884105727i128", "170141183460469231731687303715884105727"},
		{"ratio", "1.5"},
		{"1.0f32 / 3.0", "0.33333334"},
		{"1e21", "1e+21"},
		{"()", "()"},
		{"r", "(&demo::Point) 0x1010"},
		{"&p.y", "(&i32) 0x1014"},
		{"obj", "(&dyn demo::Area) 0x1010"},
		{"pp", "(*const i32) 0x1000"},
		{"demo::add", "{fn(i32, i32) -> i32} 0x2010 <demo::add>"},
		{"foo", "demo::Foo { f: 0x2000 <demo::add_one>, n: 7 }"},
		{"foo.f", "{fn(i32) -> i32} 0x2000 <demo::add_one>"},
		{"demo::Point::new(1, 2)", "demo::Point { x: 1, y: 2 }"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := ev.Evaluate(context.Background(), tt.expr, p.Frame())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			got, err := f.Format(v)
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Errorf("Format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormat_NoMemory(t *testing.T) {
	p, ev := setup(t)

	tests := []struct {
		expr string
		want string
	}{
		{"s", "&[i32] {data_ptr: 0x1004, length: 3}"},
		{"name", "&str {data_ptr: 0x1100, length: 5}"},
		{"x[1..3]", "&[i32] {data_ptr: 0x1004, length: 2}"},
		{"p", "demo::Point { x: 3, y: -4 }"},
		{"bits", "demo::Bits { i: 1065353216, f: 1 }"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := ev.Evaluate(context.Background(), tt.expr, p.Frame())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := format.Format(v); got != tt.want {
				t.Errorf("Format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatter_MaxElements(t *testing.T) {
	p, ev := setup(t)
	f := format.Formatter{Memory: p.Memory, Decoder: ev.Decoder(), MaxElements: 2}

	tests := []struct {
		expr string
		want string
	}{
		{"x", "[1, 2, ...]"},
		{"x[..]", "&[i32] [1, 2, ...]"},
		{"x[..2]", "&[i32] [1, 2]"},
		{"name", `"he"...`},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := ev.Evaluate(context.Background(), tt.expr, p.Frame())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			got, err := f.Format(v)
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Errorf("Format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormat_DefaultLimit(t *testing.T) {
	r := types.NewRegistry(types.DefaultPointerSize)
	u8 := r.Primitive(types.PrimU8)
	data := make([]byte, 300)
	mem, err := debugeval.NewSnapshot(debugeval.Region{Addr: 0x100, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	v := value.Slice(r.SliceOf(u8, false), 0x100, 300, value.Origin{})

	got, err := format.Formatter{Memory: mem}.Format(v)
	if err != nil {
		t.Fatal(err)
	}
	want := "&[u8] [0" + repeat(", 0", format.DefaultMaxElements-1) + ", ...]"
	if got != want {
		t.Errorf("Format = %.40s... (%d bytes), want %d bytes", got, len(got), len(want))
	}
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestFormat_EmptyEnum(t *testing.T) {
	p, _ := setup(t)
	v := value.Enum(p.Never, -1, nil, value.Origin{})
	if got := format.Format(v); got != "demo::Never {<No data fields>}" {
		t.Errorf("Format = %s", got)
	}
}

func TestFormat_Scalars(t *testing.T) {
	r := types.NewRegistry(types.DefaultPointerSize)

	tests := []struct {
		v    *value.Value
		want string
	}{
		{value.Int(r.Primitive(types.PrimU128), new(big.Int).Lsh(big.NewInt(1), 127)), "170141183460469231731687303715884105728"},
		{value.Int64Of(r.Primitive(types.PrimI64), -1), "-1"},
		{value.Float(r.Primitive(types.PrimF32), 0.1), "0.1"},
		{value.Float(r.Primitive(types.PrimF64), 0.1), "0.1"},
		{value.Bool(r.Primitive(types.PrimBool), false), "false"},
		{value.Char(r.Primitive(types.PrimChar), '\n'), `10 '\n'`},
		{value.Unit(r.Primitive(types.PrimUnit)), "()"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := format.Format(tt.v); got != tt.want {
				t.Errorf("Format = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatter_Errors(t *testing.T) {
	if _, err := (format.Formatter{}).Format(nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("nil value: %v", err)
	}

	r := types.NewRegistry(types.DefaultPointerSize)
	v := value.Slice(r.SliceOf(r.Primitive(types.PrimI32), false), 0x10, 2, value.Origin{})
	broken := debugeval.MemoryFunc(func(addr, length uint64) ([]byte, error) {
		return nil, fmt.Errorf("target detached")
	})
	if _, err := (format.Formatter{Memory: broken}).Format(v); err == nil {
		t.Error("expected a memory error")
	}
}
