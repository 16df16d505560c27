package inspect_test

import (
	"context"
	"testing"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/debuginfo"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/inspect"
	"github.com/wippyai/debug-eval/internal/demo"
	"github.com/wippyai/debug-eval/value"
)

func demoImage(t *testing.T) (*demo.Program, *debuginfo.Image) {
	t.Helper()
	p, err := demo.New()
	if err != nil {
		t.Fatalf("demo.New: %v", err)
	}
	return p, &debuginfo.Image{
		Types:  p.Types,
		Scopes: p.Scopes,
		Memory: p.Memory,
		Frames: map[string]*eval.StaticFrame{"main": p.Frame().(*eval.StaticFrame)},
	}
}

func newInspector(t *testing.T, opts ...inspect.Option) (*inspect.Inspector, eval.Frame) {
	t.Helper()
	p, img := demoImage(t)
	in, err := inspect.New(img, append([]inspect.Option{inspect.WithInvoker(p)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	frame, ok := in.Frame("main")
	if !ok {
		t.Fatal("no main frame")
	}
	return in, frame
}

func show(t *testing.T, in *inspect.Inspector, v *value.Value) string {
	t.Helper()
	s, err := in.Format(v)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return s
}

func TestInspector_Evaluate(t *testing.T) {
	in, frame := newInspector(t)

	tests := []struct {
		expr string
		want string
	}{
		{"p", "demo::Point { x: 3, y: -4 }"},
		{"demo::add(2, 3)", "5"},
		{"p.manhattan() + foo.f()", "77"},
		{"x[1..3]", "&[i32] [2, 3]"},
		{"pair2.b", "Some(3)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := in.Evaluate(context.Background(), tt.expr, frame)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got := show(t, in, v); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestInspector_DecodeNamed(t *testing.T) {
	in, _ := newInspector(t)
	ctx := context.Background()

	tests := []struct {
		typ  string
		addr uint64
		want string
	}{
		{"demo::Pair", 0x101a, "demo::Pair { a: 5, b: Some(3) }"},
		{"demo::Maybe<u8>", 0x1019, "Empty"},
		{"&[i32]", 0x1030, "&[i32] [2, 3, 4]"},
		{"&str", 0x1040, `"hello"`},
		{"[u8; 3]", 0x10b8, "[10, 20, 30]"},
		{"u32", 0x1080, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			v, err := in.DecodeNamed(ctx, tt.typ, tt.addr, 0)
			if err != nil {
				t.Fatalf("DecodeNamed: %v", err)
			}
			if got := show(t, in, v); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if v.Generation() != in.Generation() {
				t.Errorf("generation = %d, want %d", v.Generation(), in.Generation())
			}
		})
	}
}

func TestInspector_DecodeErrors(t *testing.T) {
	in, _ := newInspector(t)

	if _, err := in.DecodeNamed(context.Background(), "demo::Nope", 0x1000, 0); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("unknown type: %v", err)
	}
	if _, err := in.Decode(context.Background(), nil, 0x1000, 0); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("nil type: %v", err)
	}
	if _, err := in.DecodeNamed(context.Background(), "u64", 0x5000, 0); !errors.IsKind(err, errors.KindIO) {
		t.Errorf("unmapped address: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.DecodeNamed(ctx, "u32", 0x1080, 0); !errors.IsKind(err, errors.KindIO) {
		t.Errorf("cancelled: %v", err)
	}
}

func TestInspector_Reload(t *testing.T) {
	in, frame := newInspector(t)
	ctx := context.Background()

	old, err := in.Evaluate(ctx, "p", frame)
	if err != nil {
		t.Fatal(err)
	}
	lit, err := in.Evaluate(ctx, "1 + 1", frame)
	if err != nil {
		t.Fatal(err)
	}
	if in.Generation() != 1 {
		t.Fatalf("generation = %d", in.Generation())
	}

	_, img := demoImage(t)
	if err := in.Reload(img); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if in.Image() != img || img.Generation != 2 {
		t.Fatalf("reloaded image not installed (generation %d)", img.Generation)
	}

	if _, err := in.Format(old); !errors.IsKind(err, errors.KindStale) {
		t.Errorf("old value: %v", err)
	}
	if got := show(t, in, lit); got != "2" {
		t.Errorf("temporary after reload = %s", got)
	}

	frame, _ = in.Frame("main")
	v, err := in.Evaluate(ctx, "p", frame)
	if err != nil {
		t.Fatal(err)
	}
	if got := show(t, in, v); got != "demo::Point { x: 3, y: -4 }" {
		t.Errorf("after reload = %s", got)
	}

	if err := in.Reload(nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("nil reload: %v", err)
	}
}

func TestInspector_Options(t *testing.T) {
	in, frame := newInspector(t, inspect.WithMaxElements(2))
	v, err := in.Evaluate(context.Background(), "x", frame)
	if err != nil {
		t.Fatal(err)
	}
	if got := show(t, in, v); got != "[1, 2, ...]" {
		t.Errorf("got %s", got)
	}

	broken := debugeval.MemoryFunc(func(addr, length uint64) ([]byte, error) {
		return nil, errors.IO(errors.PhaseDecode, "detached", nil)
	})
	in, frame = newInspector(t, inspect.WithMemory(broken))
	if _, err := in.Evaluate(context.Background(), "p", frame); !errors.IsKind(err, errors.KindIO) {
		t.Errorf("broken memory: %v", err)
	}
	v, err = in.Evaluate(context.Background(), "answer", frame)
	if err != nil {
		t.Fatalf("register local: %v", err)
	}
	if got := show(t, in, v); got != "42" {
		t.Errorf("answer = %s", got)
	}
}

func TestNew_NilImage(t *testing.T) {
	if _, err := inspect.New(nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
