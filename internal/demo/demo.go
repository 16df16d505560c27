// Package demo is a small, fully described program image used by tests,
// the example and the CLI's -demo mode. It stands in for a stopped target:
// debug-info types and scopes, a memory snapshot and native implementations
// of the program's functions.
package demo

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/decoder"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

// Addresses of the program's functions and vtables.
const (
	AddOne    = 0x2000
	Add       = 0x2010
	FooF      = 0x2020
	PointNew  = 0x2030
	PointArea = 0x2040
	Manhattan = 0x2050
	Closure   = 0x2060
	AreaTable = 0x3000
)

// Program is the demo image.
type Program struct {
	Types  *types.Registry
	Scopes *scope.Table
	Memory *debugeval.Snapshot
	Locals map[string]eval.Local

	Point, Pair, Maybe, Foo, Shape, Wrapper, Unit, Never, Bits, Env *types.Descriptor

	Crate scope.ID
	Main  scope.ID
}

// Frame returns the evaluation point inside demo::main.
func (p *Program) Frame() eval.Frame {
	return &eval.StaticFrame{ID: p.Main, Locals: p.Locals}
}

type image struct {
	buf  []byte
	base uint64
}

func (m *image) at(addr uint64) []byte { return m.buf[addr-m.base:] }

func (m *image) u8(addr uint64, v uint8)   { m.at(addr)[0] = v }
func (m *image) u32(addr uint64, v uint32) { binary.LittleEndian.PutUint32(m.at(addr), v) }
func (m *image) u64(addr uint64, v uint64) { binary.LittleEndian.PutUint64(m.at(addr), v) }

// New builds the demo program.
func New() (*Program, error) {
	r := types.NewRegistry(types.DefaultPointerSize)
	i8 := r.Primitive(types.PrimI8)
	i32 := r.Primitive(types.PrimI32)
	u8 := r.Primitive(types.PrimU8)
	u32 := r.Primitive(types.PrimU32)
	u64 := r.Primitive(types.PrimU64)
	f32 := r.Primitive(types.PrimF32)
	f64 := r.Primitive(types.PrimF64)
	p := &Program{Types: r}

	structOf := func(kind types.Kind, path string, fields ...types.Field) *types.Descriptor {
		fs, size, align := types.Sequential(fields)
		return &types.Descriptor{Kind: kind, Path: path, Fields: fs, Size: size, Align: align}
	}
	p.Point = structOf(types.KindStruct, "demo::Point", types.Field{Name: "x", Type: i32}, types.Field{Name: "y", Type: i32})
	p.Maybe = &types.Descriptor{
		Kind: types.KindEnum, Path: "demo::Maybe", Args: []*types.Descriptor{u8}, Size: 1, Align: 1,
		Variants: []types.Variant{
			{Name: "Empty"},
			{Name: "Some", Tuple: true, Fields: []types.Field{{Name: "0", Type: u8}}},
		},
		Strategy: types.NicheFill(0, 1, 1, types.Niche{Value: 0xFF, Variant: 0}),
	}
	p.Pair = structOf(types.KindStruct, "demo::Pair", types.Field{Name: "a", Type: u8}, types.Field{Name: "b", Type: p.Maybe})
	p.Foo = structOf(types.KindStruct, "demo::Foo",
		types.Field{Name: "f", Type: r.FuncOf([]*types.Descriptor{i32}, i32)},
		types.Field{Name: "n", Type: i32})
	p.Shape = &types.Descriptor{
		Kind: types.KindEnum, Path: "demo::Shape", Size: 16, Align: 8,
		Variants: []types.Variant{
			{Name: "Circle", Tuple: true, Discriminant: 0, Fields: []types.Field{{Name: "0", Type: f64, Offset: 8}}},
			{Name: "Rect", Discriminant: 1, Fields: []types.Field{{Name: "w", Type: u32, Offset: 8}, {Name: "h", Type: u32, Offset: 12}}},
			{Name: "Empty", Discriminant: 2},
		},
		Strategy: types.Direct(0, 1, false),
	}
	p.Wrapper = structOf(types.KindTupleStruct, "demo::Wrapper", types.Field{Name: "0", Type: i32})
	p.Unit = &types.Descriptor{Kind: types.KindStruct, Path: "demo::Unit", Align: 1}
	p.Never = &types.Descriptor{Kind: types.KindEnum, Path: "demo::Never", Align: 1, Strategy: types.Empty()}
	p.Bits = &types.Descriptor{Kind: types.KindUnion, Path: "demo::Bits", Size: 4, Align: 4,
		Fields: []types.Field{{Name: "i", Type: u32}, {Name: "f", Type: f32}}}
	p.Env = structOf(types.KindClosure, "demo::main::{closure#0}", types.Field{Name: "k", Type: i32})
	p.Env.Body = "demo::main::{closure#0}"

	named := []*types.Descriptor{p.Point, p.Maybe, p.Pair, p.Foo, p.Shape, p.Wrapper, p.Unit, p.Never, p.Bits, p.Env}
	for _, d := range named {
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	r.Seal()

	b := scope.NewBuilder()
	p.Crate = b.Crate("demo")
	for _, d := range named[:len(named)-1] {
		if _, err := b.DefineType(p.Crate, d); err != nil {
			return nil, err
		}
	}
	p.Main = b.Function(p.Crate, "main")

	fn := func(result *types.Descriptor, params ...*types.Descriptor) *types.Descriptor {
		return r.FuncOf(params, result)
	}
	pointRef := r.RefTo(p.Point, false)
	area := b.Trait(p.Crate, "Area")
	pointImpl := b.Impl(p.Crate, p.Point, "")
	fooImpl := b.Impl(p.Crate, p.Foo, "")
	areaImpl := b.Impl(p.Crate, p.Point, "demo::Area")

	defs := []struct {
		sym   scope.Symbol
		scope scope.ID
	}{
		{scope.Symbol{Name: "COUNT", Kind: scope.SymStatic, Type: u32, Address: 0x1080}, p.Crate},
		{scope.Symbol{Name: "add_one", Kind: scope.SymFunction, Type: fn(i32, i32), Address: AddOne}, p.Crate},
		{scope.Symbol{Name: "add", Kind: scope.SymFunction, Type: fn(i32, i32, i32), Address: Add}, p.Crate},
		{scope.Symbol{Name: "area", Kind: scope.SymFunction, Receiver: scope.RecvRef, Type: fn(i32, pointRef)}, area},
		{scope.Symbol{Name: "new", Kind: scope.SymFunction, Type: fn(p.Point, i32, i32), Address: PointNew}, pointImpl},
		{scope.Symbol{Name: "manhattan", Kind: scope.SymFunction, Receiver: scope.RecvValue, Type: fn(i32, p.Point), Address: Manhattan}, pointImpl},
		{scope.Symbol{Name: "f", Kind: scope.SymFunction, Receiver: scope.RecvRef, Type: fn(i32, r.RefTo(p.Foo, false)), Address: FooF}, fooImpl},
		{scope.Symbol{Name: "area", Kind: scope.SymFunction, Receiver: scope.RecvRef, Type: fn(i32, pointRef), Address: PointArea}, areaImpl},
		{scope.Symbol{Name: "{closure#0}", Kind: scope.SymFunction, Type: fn(i32, r.RefTo(p.Env, false), i32), Address: Closure}, p.Main},
	}
	for _, d := range defs {
		if _, err := b.Define(d.scope, d.sym); err != nil {
			return nil, err
		}
	}
	b.VTable(AreaTable, p.Point, "demo::Area")
	p.Scopes = b.Build()

	m := &image{base: 0x1000, buf: make([]byte, 0x110)}
	for i := uint64(0); i < 4; i++ {
		m.u32(0x1000+4*i, uint32(i+1))
	}
	m.u32(0x1010, 3)
	m.u32(0x1014, uint32(0xFFFFFFFC)) // -4
	m.u8(0x1018, 5)
	m.u8(0x1019, 0xFF)
	m.u8(0x101a, 5)
	m.u8(0x101b, 3)
	m.u64(0x1020, AddOne)
	m.u32(0x1028, 7)
	m.u64(0x1030, 0x1004)
	m.u64(0x1038, 3)
	m.u64(0x1040, 0x1100)
	m.u64(0x1048, 5)
	m.u8(0x1050, 1)
	m.u32(0x1058, 2)
	m.u32(0x105c, 3)
	m.u64(0x1060, 0x1010)
	m.u64(0x1068, 0x1010)
	m.u64(0x1070, AreaTable)
	m.u32(0x1078, math.Float32bits(1))
	m.u32(0x107c, 9)
	m.u32(0x1080, 42)
	m.u32(0x1084, 'a')
	m.u8(0x1088, 1)
	m.u8(0x1089, 200)
	m.u8(0x108a, 0xFB) // -5
	m.u64(0x1090, 1<<40)
	m.u64(0x1098, math.Float64bits(1.5))
	m.u64(0x10a0, 0x1000)
	m.u8(0x10a8, 0)
	m.u64(0x10b0, math.Float64bits(2.5))
	m.u8(0x10b8, 10)
	m.u8(0x10b9, 20)
	m.u8(0x10ba, 30)
	m.u32(0x10bc, 100)
	copy(m.at(0x1100), "hello")

	snap, err := debugeval.NewSnapshot(debugeval.Region{Addr: m.base, Data: m.buf})
	if err != nil {
		return nil, err
	}
	p.Memory = snap

	nums, err := r.ArrayOf(u8, 3)
	if err != nil {
		return nil, err
	}
	xs, err := r.ArrayOf(i32, 4)
	if err != nil {
		return nil, err
	}
	p.Locals = map[string]eval.Local{
		"x":      {Type: xs, Addr: 0x1000},
		"p":      {Type: p.Point, Addr: 0x1010},
		"pair":   {Type: p.Pair, Addr: 0x1018},
		"pair2":  {Type: p.Pair, Addr: 0x101a},
		"foo":    {Type: p.Foo, Addr: 0x1020},
		"s":      {Type: r.SliceOf(i32, false), Addr: 0x1030},
		"name":   {Type: r.StrRef(), Addr: 0x1040},
		"shape":  {Type: p.Shape, Addr: 0x1050},
		"r":      {Type: pointRef, Addr: 0x1060},
		"obj":    {Type: r.TraitObjectOf("demo::Area", false), Addr: 0x1068},
		"bits":   {Type: p.Bits, Addr: 0x1078},
		"w":      {Type: p.Wrapper, Addr: 0x107c},
		"c":      {Type: r.Primitive(types.PrimChar), Addr: 0x1084},
		"flag":   {Type: r.Primitive(types.PrimBool), Addr: 0x1088},
		"byte":   {Type: u8, Addr: 0x1089},
		"small":  {Type: i8, Addr: 0x108a},
		"big":    {Type: u64, Addr: 0x1090},
		"ratio":  {Type: f64, Addr: 0x1098},
		"pp":     {Type: r.PointerTo(i32, false), Addr: 0x10a0},
		"circle": {Type: p.Shape, Addr: 0x10a8},
		"unit":   {Type: p.Unit, Addr: 0x10b8},
		"nums":   {Type: nums, Addr: 0x10b8},
		"add_k":  {Type: p.Env, Addr: 0x10bc},
		"answer": {Value: value.Int64Of(i32, 42)},
	}
	return p, nil
}

// Invoke runs the demo program's functions natively. It satisfies
// eval.Invoker.
func (p *Program) Invoke(ctx context.Context, fn *scope.Symbol, args []*value.Value) (*value.Value, error) {
	i32 := p.Types.Primitive(types.PrimI32)
	dec := decoder.New(p.Types.PointerSize())
	opts := decoder.Options{Symbols: p.Scopes}
	deref := func(v *value.Value) (*value.Value, error) {
		return dec.Deref(v, p.Memory, opts)
	}
	sum := func(vs ...*big.Int) *value.Value {
		out := new(big.Int)
		for _, v := range vs {
			out.Add(out, v)
		}
		return value.Int(i32, out)
	}

	switch fn.Address {
	case AddOne:
		return sum(args[0].Int(), big.NewInt(1)), nil
	case Add:
		return sum(args[0].Int(), args[1].Int()), nil
	case FooF:
		self, err := deref(args[0])
		if err != nil {
			return nil, err
		}
		n, _ := self.Field("n")
		return value.Int(i32, new(big.Int).Mul(n.Int(), big.NewInt(10))), nil
	case PointNew:
		return value.Aggregate(p.Point, []value.Field{{Name: "x", Value: args[0]}, {Name: "y", Value: args[1]}}, value.Origin{}), nil
	case PointArea:
		self, err := deref(args[0])
		if err != nil {
			return nil, err
		}
		x, _ := self.Field("x")
		y, _ := self.Field("y")
		return value.Int(i32, new(big.Int).Mul(x.Int(), y.Int())), nil
	case Manhattan:
		x, _ := args[0].Field("x")
		y, _ := args[0].Field("y")
		return sum(new(big.Int).Abs(x.Int()), new(big.Int).Abs(y.Int())), nil
	case Closure:
		env, err := deref(args[0])
		if err != nil {
			return nil, err
		}
		k, _ := env.Field("k")
		return sum(k.Int(), args[1].Int()), nil
	}
	return nil, errors.Unsupported(errors.PhaseInvoke, fmt.Sprintf("no code at 0x%x for %s", fn.Address, fn.Path))
}
