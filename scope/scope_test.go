package scope

import (
	"strings"
	"testing"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
)

func fnType(r *types.Registry, result *types.Descriptor, params ...*types.Descriptor) *types.Descriptor {
	return r.FuncOf(params, result)
}

func define(t *testing.T, b *Builder, scope ID, sym Symbol) *Symbol {
	t.Helper()
	if _, err := b.Define(scope, sym); err != nil {
		t.Fatalf("Define(%s): %v", sym.Name, err)
	}
	return &sym
}

func TestResolve_SuperChains(t *testing.T) {
	b := NewBuilder()
	krate := b.Crate("demo")
	chain := []ID{krate}
	for _, name := range []string{"a", "b", "c", "d"} {
		chain = append(chain, b.Module(chain[len(chain)-1], name))
	}
	for i, id := range chain {
		define(t, b, id, Symbol{Name: "marker", Kind: SymStatic, Address: uint64(0x100 + i)})
	}
	fn := b.Function(chain[len(chain)-1], "f")
	tbl := b.Build()

	depth := len(chain) - 1
	for k := 0; k <= depth+2; k++ {
		segs := make([]string, 0, k+1)
		for i := 0; i < k; i++ {
			segs = append(segs, "super")
		}
		segs = append(segs, "marker")
		path := ParsePath(strings.Join(segs, "::"))

		for _, ctx := range []ID{chain[depth], fn} {
			sym, err := tbl.Resolve(ctx, path)
			if k > depth {
				if !errors.IsKind(err, errors.KindNotFound) {
					t.Errorf("k=%d: err = %v, want not found", k, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("k=%d: %v", k, err)
			}
			if want := uint64(0x100 + depth - k); sym.Address != want {
				t.Errorf("k=%d: reached 0x%x, want 0x%x", k, sym.Address, want)
			}
		}
	}
}

func TestResolve_PathForms(t *testing.T) {
	r := types.NewRegistry(8)
	b := NewBuilder()
	demo := b.Crate("demo")
	other := b.Crate("other")
	util := b.Module(demo, "util")
	define(t, b, demo, Symbol{Name: "TOP", Kind: SymStatic, Type: r.Primitive(types.PrimU32), Address: 1})
	define(t, b, util, Symbol{Name: "helper", Kind: SymFunction, Type: fnType(r, nil), Address: 0x2000})
	define(t, b, other, Symbol{Name: "TOP", Kind: SymStatic, Type: r.Primitive(types.PrimU32), Address: 2})
	main := b.Function(demo, "main")
	tbl := b.Build()

	tests := []struct {
		path string
		addr uint64
	}{
		{"::demo::TOP", 1},
		{"::other::TOP", 2},
		{"crate::TOP", 1},
		{"self::TOP", 1},
		{"TOP", 1},
		{"util::helper", 0x2000},
		{"crate::util::helper", 0x2000},
		{"other::TOP", 2},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			sym, err := tbl.Resolve(main, ParsePath(tt.path))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if sym.Address != tt.addr {
				t.Errorf("address = 0x%x, want 0x%x", sym.Address, tt.addr)
			}
		})
	}

	if _, err := tbl.Resolve(main, ParsePath("util::missing")); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("missing: %v", err)
	}
	if _, err := tbl.Resolve(main, ParsePath("nowhere::x")); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("unknown module: %v", err)
	}

	sym, ok := tbl.SymbolAt(0x2000)
	if !ok || sym.Path != "demo::util::helper" {
		t.Errorf("SymbolAt = %v, %v", sym, ok)
	}
	if _, ok := tbl.SymbolAt(0x2001); ok {
		t.Error("SymbolAt matched a non-entry address")
	}
	if id, err := tbl.ScopeOf("demo::util"); err != nil || id != util {
		t.Errorf("ScopeOf = %d, %v", id, err)
	}
}

func TestResolve_NestedItemsShadow(t *testing.T) {
	r := types.NewRegistry(8)
	outerT := &types.Descriptor{Kind: types.KindStruct, Path: "demo::Inner", Size: 1, Align: 1,
		Fields: []types.Field{{Name: "x", Type: r.Primitive(types.PrimU8)}}}
	innerT := &types.Descriptor{Kind: types.KindStruct, Path: "demo::main::Inner", Size: 4, Align: 4,
		Fields: []types.Field{{Name: "y", Type: r.Primitive(types.PrimU32)}}}

	b := NewBuilder()
	demo := b.Crate("demo")
	if _, err := b.DefineType(demo, outerT); err != nil {
		t.Fatal(err)
	}
	main := b.Function(demo, "main")
	if _, err := b.DefineType(main, innerT); err != nil {
		t.Fatal(err)
	}
	block := b.Block(main)
	other := b.Function(demo, "other")
	tbl := b.Build()

	for _, ctx := range []ID{main, block} {
		typ, err := tbl.ResolveType(ctx, ParsePath("Inner"))
		if err != nil || typ != innerT {
			t.Errorf("ctx %d: Inner = %v, %v", ctx, typ, err)
		}
	}
	typ, err := tbl.ResolveType(other, ParsePath("Inner"))
	if err != nil || typ != outerT {
		t.Errorf("other: Inner = %v, %v", typ, err)
	}
	typ, err = tbl.ResolveType(block, ParsePath("crate::Inner"))
	if err != nil || typ != outerT {
		t.Errorf("crate::Inner = %v, %v", typ, err)
	}
}

type methodFixture struct {
	reg   *types.Registry
	point *types.Descriptor
	tbl   *Table
	ctx   ID
}

func buildMethods(t *testing.T, traitOrder []string, inherent bool) methodFixture {
	r := types.NewRegistry(8)
	point := &types.Descriptor{Kind: types.KindStruct, Path: "demo::Point", Size: 8, Align: 4,
		Fields: []types.Field{{Name: "x", Type: r.Primitive(types.PrimI32)}, {Name: "y", Type: r.Primitive(types.PrimI32), Offset: 4}}}
	ref := r.RefTo(point, false)
	i32 := r.Primitive(types.PrimI32)

	b := NewBuilder()
	demo := b.Crate("demo")
	if _, err := b.DefineType(demo, point); err != nil {
		t.Fatal(err)
	}
	for i, trait := range traitOrder {
		tr := b.Trait(demo, trait)
		define(t, b, tr, Symbol{Name: "describe", Kind: SymFunction, Receiver: RecvRef, Type: fnType(r, i32, ref)})
		impl := b.Impl(demo, point, "demo::"+trait)
		define(t, b, impl, Symbol{Name: "describe", Kind: SymFunction, Receiver: RecvRef, Type: fnType(r, i32, ref), Address: uint64(0x3000 + i)})
		define(t, b, impl, Symbol{Name: "only_" + strings.ToLower(trait), Kind: SymFunction, Receiver: RecvRef, Type: fnType(r, i32, ref), Address: uint64(0x3100 + i)})
	}
	if inherent {
		impl := b.Impl(demo, point, "")
		define(t, b, impl, Symbol{Name: "describe", Kind: SymFunction, Receiver: RecvRef, Type: fnType(r, i32, ref), Address: 0x1000})
		define(t, b, impl, Symbol{Name: "origin", Kind: SymFunction, Type: fnType(r, point), Address: 0x1100})
	}
	return methodFixture{reg: r, point: point, tbl: b.Build(), ctx: demo}
}

func TestResolveMethod_InherentWins(t *testing.T) {
	for _, order := range [][]string{{"Shape", "Named"}, {"Named", "Shape"}} {
		fx := buildMethods(t, order, true)
		for _, recv := range []*types.Descriptor{fx.point, fx.reg.RefTo(fx.point, false), fx.reg.RefTo(fx.reg.RefTo(fx.point, true), false)} {
			sym, err := fx.tbl.ResolveMethod(recv, "describe")
			if err != nil {
				t.Fatalf("order %v recv %s: %v", order, recv, err)
			}
			if sym.Address != 0x1000 || sym.Trait != "" {
				t.Errorf("order %v recv %s: got %s at 0x%x", order, recv, sym.Path, sym.Address)
			}
		}
	}
}

func TestResolveMethod_Traits(t *testing.T) {
	fx := buildMethods(t, []string{"Shape", "Named"}, false)

	_, err := fx.tbl.ResolveMethod(fx.point, "describe")
	if !errors.IsKind(err, errors.KindAmbiguous) {
		t.Fatalf("err = %v, want ambiguous", err)
	}
	if !strings.Contains(err.Error(), "demo::Named, demo::Shape") {
		t.Errorf("candidates not sorted: %v", err)
	}

	sym, err := fx.tbl.ResolveMethod(fx.point, "only_named")
	if err != nil || sym.Trait != "demo::Named" {
		t.Errorf("only_named = %v, %v", sym, err)
	}

	if _, err := fx.tbl.ResolveMethod(fx.point, "origin"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("origin: %v", err)
	}

	single := buildMethods(t, []string{"Shape"}, false)
	sym, err = single.tbl.ResolveMethod(single.point, "describe")
	if err != nil || sym.Trait != "demo::Shape" {
		t.Errorf("single trait = %v, %v", sym, err)
	}

	obj := single.reg.TraitObjectOf("demo::Shape", false)
	sym, err = single.tbl.ResolveMethod(obj, "describe")
	if err != nil || sym.Kind != SymTraitMethod {
		t.Errorf("trait object = %v, %v", sym, err)
	}
}

func TestResolve_AssociatedPaths(t *testing.T) {
	fx := buildMethods(t, []string{"Shape"}, true)

	sym, err := fx.tbl.Resolve(fx.ctx, ParsePath("Point::origin"))
	if err != nil || sym.Address != 0x1100 {
		t.Errorf("Point::origin = %v, %v", sym, err)
	}
	sym, err = fx.tbl.Resolve(fx.ctx, ParsePath("demo::Point::describe"))
	if err != nil || sym.Address != 0x1000 {
		t.Errorf("Point::describe = %v, %v", sym, err)
	}
	sym, err = fx.tbl.Resolve(fx.ctx, ParsePath("Shape::describe"))
	if err != nil || sym.Kind != SymTraitMethod {
		t.Errorf("Shape::describe = %v, %v", sym, err)
	}
}

func TestResolveAssociated_Overloads(t *testing.T) {
	r := types.NewRegistry(8)
	i32 := r.Primitive(types.PrimI32)
	u8 := r.Primitive(types.PrimU8)
	conv := &types.Descriptor{Kind: types.KindStruct, Path: "demo::Conv"}

	b := NewBuilder()
	demo := b.Crate("demo")
	impl := b.Impl(demo, conv, "")
	define(t, b, impl, Symbol{Name: "make", Kind: SymFunction, Generics: []*types.Descriptor{i32}, Type: fnType(r, conv, i32), Address: 0x10})
	define(t, b, impl, Symbol{Name: "make", Kind: SymFunction, Generics: []*types.Descriptor{u8}, Type: fnType(r, conv, u8), Address: 0x20})
	define(t, b, impl, Symbol{Name: "pair", Kind: SymFunction, Type: fnType(r, conv, i32, i32), Address: 0x30})
	trait := b.Impl(demo, conv, "demo::Build")
	define(t, b, trait, Symbol{Name: "pair", Kind: SymFunction, Type: fnType(r, conv, i32), Address: 0x40})
	tbl := b.Build()

	tests := []struct {
		name string
		fn   string
		call Call
		addr uint64
		kind errors.Kind
	}{
		{"explicit generic", "make", Call{Arity: 1, Generics: []*types.Descriptor{u8}}, 0x20, ""},
		{"inferred from args", "make", Call{Arity: 1, ArgTypes: []*types.Descriptor{i32}}, 0x10, ""},
		{"unresolved overload", "make", Call{Arity: 1}, 0, errors.KindAmbiguous},
		{"inherent by arity", "pair", Call{Arity: 2}, 0x30, ""},
		{"trait by arity", "pair", Call{Arity: 1}, 0x40, ""},
		{"no match", "pair", Call{Arity: 3}, 0, errors.KindNotFound},
		{"missing", "nope", AnyCall, 0, errors.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sym, err := tbl.ResolveAssociated(conv, tt.fn, tt.call)
			if tt.kind != "" {
				if !errors.IsKind(err, tt.kind) {
					t.Errorf("err = %v, want %s", err, tt.kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveAssociated: %v", err)
			}
			if sym.Address != tt.addr {
				t.Errorf("address = 0x%x, want 0x%x", sym.Address, tt.addr)
			}
		})
	}
}

func TestResolve_SelfType(t *testing.T) {
	fx := buildMethods(t, nil, true)
	impls := fx.tbl.Impls(fx.point)
	if len(impls) != 1 {
		t.Fatalf("impls = %d", len(impls))
	}
	// A method body nested in the impl.
	var body ID = NoScope
	for i := 0; i < fx.tbl.NumScopes(); i++ {
		if s, _ := fx.tbl.Scope(ID(i)); s.Parent == impls[0].ID {
			body = s.ID
		}
	}
	if body == NoScope {
		body = impls[0].ID
	}
	sym, err := fx.tbl.Resolve(body, ParsePath("Self::origin"))
	if err != nil || sym.Address != 0x1100 {
		t.Errorf("Self::origin = %v, %v", sym, err)
	}
}

func TestBuilder_Define(t *testing.T) {
	r := types.NewRegistry(8)
	b := NewBuilder()
	demo := b.ModulePath("demo::net")
	id, err := b.Define(demo, Symbol{Linkage: "_ZN4demo3net7connect17h0123456789abcdefE", Kind: SymFunction, Type: fnType(r, nil), Address: 0x50})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	if _, err := b.Define(demo, Symbol{Name: "connect", Kind: SymFunction}); err == nil {
		t.Error("duplicate symbol accepted")
	}
	tbl := b.Build()

	sym, _ := tbl.Symbol(id)
	if sym.Name != "connect" || sym.Path != "demo::net::connect" {
		t.Errorf("symbol = %+v", sym)
	}
	if path, sid, ok := tbl.Symbolize(0x50); !ok || path != "demo::net::connect" || sid != int(id) {
		t.Errorf("Symbolize = %q %d %v", path, sid, ok)
	}
	if names := tbl.Names(demo); len(names) != 1 || names[0] != "connect" {
		t.Errorf("Names = %v", names)
	}
	if _, err := b.Define(demo, Symbol{Name: "late"}); err == nil {
		t.Error("define after build accepted")
	}
}

func TestParsePath(t *testing.T) {
	p := ParsePath("::demo::a::b")
	if !p.Absolute || len(p.Segments) != 3 || p.String() != "::demo::a::b" {
		t.Errorf("ParsePath = %+v", p)
	}
	if p.Last().Name != "b" || p.Prefix().String() != "::demo::a" {
		t.Errorf("Last %q Prefix %q", p.Last().Name, p.Prefix())
	}
}
