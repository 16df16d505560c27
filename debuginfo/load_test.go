package debuginfo_test

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/wippyai/debug-eval/debuginfo"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/format"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

func loadDemo(t *testing.T) *debuginfo.Image {
	t.Helper()
	img, err := debuginfo.LoadFile("testdata/demo.yaml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return img
}

func TestLoadFile_Demo(t *testing.T) {
	img := loadDemo(t)

	if img.Version.String() != "1.0.0" {
		t.Errorf("Version = %s", img.Version)
	}
	if img.Source != "testdata/demo.yaml" {
		t.Errorf("Source = %q", img.Source)
	}
	if !img.Types.Sealed() {
		t.Error("registry not sealed")
	}
	if got := strings.Join(img.FrameNames(), ","); got != "main,top" {
		t.Errorf("FrameNames = %s", got)
	}

	pair, err := img.Types.LookupName("demo::Pair")
	if err != nil {
		t.Fatal(err)
	}
	if pair.Size != 2 || pair.Fields[1].Offset != 1 {
		t.Errorf("Pair layout: size %d, b at %d", pair.Size, pair.Fields[1].Offset)
	}
	bits, err := img.Types.LookupName("demo::Bits")
	if err != nil {
		t.Fatal(err)
	}
	if bits.Size != 4 || bits.Fields[1].Offset != 0 {
		t.Errorf("Bits layout: size %d, f at %d", bits.Size, bits.Fields[1].Offset)
	}
	never, err := img.Types.LookupName("demo::Never")
	if err != nil {
		t.Fatal(err)
	}
	if never.Strategy.Kind != types.StrategyEmpty {
		t.Errorf("Never strategy = %s", never.Strategy.Kind)
	}
}

func TestLoadFile_Evaluate(t *testing.T) {
	img := loadDemo(t)
	ev := eval.New(img.Types, img.Scopes, img.Memory)
	frame, ok := img.Frame("main")
	if !ok {
		t.Fatal("no main frame")
	}
	f := format.Formatter{Memory: img.Memory, Decoder: ev.Decoder(), Options: ev.DecodeOptions()}

	tests := []struct {
		expr string
		want string
	}{
		{"p", "demo::Point { x: 3, y: -4 }"},
		{"pair", "demo::Pair { a: 5, b: Empty }"},
		{"pair2", "demo::Pair { a: 5, b: Some(3) }"},
		{"shape", "Rect { w: 2, h: 3 }"},
		{"circle", "Circle(2.5)"},
		{"w", "demo::Wrapper(9)"},
		{"bits", "demo::Bits { i: 1065353216, f: 1 }"},
		{"add_k", "demo::main::{closure#0} { k: 100 }"},
		{"x[1..3]", "&[i32] [2, 3]"},
		{"s", "&[i32] [2, 3, 4]"},
		{"name", `"hello"`},
		{"c", "97 'a'"},
		{"r.x + p.y", "-1"},
		{"obj", "(&dyn demo::Area) 0x1010"},
		{"*pp", "1"},
		{"COUNT", "42"},
		{"crate::COUNT * 2", "84"},
		{"foo", "demo::Foo { f: 0x2000 <demo::add_one>, n: 7 }"},
		{"demo::add", "{fn(i32, i32) -> i32} 0x2010 <demo::add>"},
		{"demo::Shape::Empty", "Empty"},
		{"demo::Point { x: 1, y: 2 }", "demo::Point { x: 1, y: 2 }"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := ev.Evaluate(context.Background(), tt.expr, frame)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			got, err := f.Format(v)
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadFile_TopFrame(t *testing.T) {
	img := loadDemo(t)
	ev := eval.New(img.Types, img.Scopes, img.Memory)
	frame, _ := img.Frame("top")

	v, err := ev.Evaluate(context.Background(), "COUNT", frame)
	if err != nil {
		t.Fatal(err)
	}
	if v.Uint64() != 42 {
		t.Errorf("COUNT = %s", v)
	}
	if _, err := ev.Evaluate(context.Background(), "p", frame); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("expected not found for a main local, got %v", err)
	}
}

func TestLoadFile_Calls(t *testing.T) {
	img := loadDemo(t)
	i32 := img.Types.Primitive(types.PrimI32)

	var called []string
	inv := eval.InvokerFunc(func(ctx context.Context, fn *scope.Symbol, args []*value.Value) (*value.Value, error) {
		called = append(called, fn.Path)
		sum := new(big.Int)
		for _, a := range args {
			if a.Kind() == value.KindScalar {
				sum.Add(sum, a.Int())
			}
		}
		return value.Int(i32, sum), nil
	})
	ev := eval.New(img.Types, img.Scopes, img.Memory, eval.WithInvoker(inv))
	frame, _ := img.Frame("main")

	tests := []struct {
		expr string
		path string
		want int64
	}{
		{"demo::add(2, 3)", "demo::add", 5},
		{"add_one(41)", "demo::add_one", 41},
		{"p.manhattan()", "demo::Point::manhattan", 0},
		{"r.area()", "<demo::Point as demo::Area>::area", 0},
		{"add_k(1)", "demo::main::{closure#0}", 1},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			called = nil
			v, err := ev.Evaluate(context.Background(), tt.expr, frame)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if len(called) != 1 || called[0] != tt.path {
				t.Errorf("called %v, want %s", called, tt.path)
			}
			if n, _ := v.Int64(); n != tt.want {
				t.Errorf("result = %s, want %d", v, tt.want)
			}
		})
	}
}

const minimal = `format: "1.0.0"
types:
  - name: demo::Point
    kind: struct
    fields:
      - {name: x, type: i32}
      - {name: y, type: i32}
`

func TestLoad(t *testing.T) {
	img, err := debuginfo.Load(strings.NewReader(minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Memory != nil {
		t.Error("memory should be nil without regions")
	}
	if img.Types.PointerSize() != types.DefaultPointerSize {
		t.Errorf("PointerSize = %d", img.Types.PointerSize())
	}
	if _, ok := img.Frame("main"); ok {
		t.Error("unexpected frame")
	}
	sym, err := img.Scopes.Resolve(scope.RootID, scope.ParsePath("demo::Point"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sym.Kind != scope.SymType || sym.Type.Size != 8 {
		t.Errorf("symbol = %s %s", sym.Kind, sym.Type)
	}
}

func TestLoad_PointerSize(t *testing.T) {
	src := `format: "1.2.0"
pointer_size: 4
types:
  - name: m::Node
    kind: struct
    fields:
      - {name: next, type: "*const m::Node"}
      - {name: v, type: u8}
`
	img, err := debuginfo.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	node, err := img.Types.LookupName("m::Node")
	if err != nil {
		t.Fatal(err)
	}
	if node.Size != 8 || node.Align != 4 {
		t.Errorf("Node size %d align %d, want 8 and 4", node.Size, node.Align)
	}
	if node.Fields[0].Type.Elem != node {
		t.Error("self pointer does not point at the node type")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind errors.Kind
	}{
		{"empty", "", errors.KindInvalidInput},
		{"syntax", "format: [", errors.KindInvalidInput},
		{"unknown field", "format: \"1.0.0\"\nbogus: 1\n", errors.KindInvalidInput},
		{"missing format", "types: []\n", errors.KindInvalidInput},
		{"bad format", "format: one\n", errors.KindInvalidInput},
		{"newer format", "format: \"2.0.0\"\n", errors.KindUnsupported},
		{"unknown type", `format: "1.0.0"
types:
  - {name: a::S, kind: struct, fields: [{name: x, type: a::Missing}]}
`, errors.KindNotFound},
		{"unknown kind", `format: "1.0.0"
types:
  - {name: a::S, kind: record}
`, errors.KindInvalidInput},
		{"anonymous kind", `format: "1.0.0"
types:
  - {name: a::S, kind: tuple}
`, errors.KindUnsupported},
		{"duplicate type", `format: "1.0.0"
types:
  - {name: a::S, kind: struct}
  - {name: a::S, kind: struct}
`, errors.KindInvalidInput},
		{"enum without size", `format: "1.0.0"
types:
  - {name: a::E, kind: enum, variants: [{name: A}]}
`, errors.KindInvalidInput},
		{"enum without strategy", `format: "1.0.0"
types:
  - {name: a::E, kind: enum, size: 1, variants: [{name: A}, {name: B}]}
`, errors.KindInvalidInput},
		{"unknown strategy", `format: "1.0.0"
types:
  - {name: a::E, kind: enum, size: 1, variants: [{name: A}, {name: B}], strategy: {kind: magic}}
`, errors.KindInvalidInput},
		{"unknown receiver", `format: "1.0.0"
types:
  - {name: a::S, kind: struct}
impls:
  - {self: a::S, methods: [{name: m, receiver: "&&self", type: "fn(&a::S)"}]}
`, errors.KindInvalidInput},
		{"bad hex", `format: "1.0.0"
memory:
  - {address: 0x10, data: "zz"}
`, errors.KindInvalidInput},
		{"overlapping memory", `format: "1.0.0"
memory:
  - {address: 0x10, data: "0102"}
  - {address: 0x11, data: "03"}
`, errors.KindInvalidInput},
		{"overflowing linkage", `format: "1.0.0"
functions:
  - {linkage: _ZN9223372036854775808aE, type: "fn()"}
`, errors.KindInvalidInput},
		{"duplicate frame", `format: "1.0.0"
frames:
  - {name: f, scope: a}
  - {name: f, scope: a}
`, errors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := debuginfo.Load(strings.NewReader(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", got, tt.kind, err)
			}
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := debuginfo.LoadFile("testdata/nope.yaml")
	if !errors.IsKind(err, errors.KindIO) {
		t.Errorf("expected io error, got %v", err)
	}
}
