package value

import (
	"math/big"
	"testing"

	"github.com/wippyai/debug-eval/types"
)

func TestIntRoundTrip(t *testing.T) {
	r := types.NewRegistry(8)
	i128Max, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	u128Max, _ := new(big.Int).SetString("340282366920938463463374607431768211455", 10)

	tests := []struct {
		prim types.Primitive
		in   *big.Int
		want string
	}{
		{types.PrimI8, big.NewInt(-1), "-1"},
		{types.PrimU8, big.NewInt(-1), "255"},
		{types.PrimI16, big.NewInt(-300), "-300"},
		{types.PrimI32, big.NewInt(1 << 31), "-2147483648"},
		{types.PrimU64, new(big.Int).SetUint64(^uint64(0)), "18446744073709551615"},
		{types.PrimI128, i128Max, i128Max.String()},
		{types.PrimI128, new(big.Int).Neg(i128Max), "-" + i128Max.String()},
		{types.PrimU128, u128Max, u128Max.String()},
		{types.PrimU8, big.NewInt(256 + 7), "7"},
	}
	for _, tt := range tests {
		t.Run(tt.prim.String()+"/"+tt.in.String(), func(t *testing.T) {
			v := Int(r.Primitive(tt.prim), tt.in)
			if got := v.Int().String(); got != tt.want {
				t.Errorf("Int() = %s, want %s", got, tt.want)
			}
			if uint64(len(v.Raw())) != tt.prim.Size(8) {
				t.Errorf("raw length %d", len(v.Raw()))
			}
		})
	}
}

func TestScalarAccessors(t *testing.T) {
	r := types.NewRegistry(8)

	if got := Float(r.Primitive(types.PrimF32), 1.5).Float64(); got != 1.5 {
		t.Errorf("f32 = %v", got)
	}
	if got := Float(r.Primitive(types.PrimF64), -0.25).Float64(); got != -0.25 {
		t.Errorf("f64 = %v", got)
	}
	if !Bool(r.Primitive(types.PrimBool), true).Bool() {
		t.Error("bool true")
	}
	if got := Char(r.Primitive(types.PrimChar), 'λ').Rune(); got != 'λ' {
		t.Errorf("char = %q", got)
	}
	if n, ok := Int64Of(r.Primitive(types.PrimI64), -5).Int64(); !ok || n != -5 {
		t.Errorf("Int64 = %d, %v", n, ok)
	}
	if got := Uint64Of(r.Primitive(types.PrimU16), 0xBEEF).Uint64(); got != 0xBEEF {
		t.Errorf("Uint64 = %x", got)
	}
	if !Unit(r.Primitive(types.PrimUnit)).IsUnit() {
		t.Error("unit")
	}
}

func TestScalarCopiesRaw(t *testing.T) {
	r := types.NewRegistry(8)
	raw := []byte{1, 0, 0, 0}
	v := Scalar(r.Primitive(types.PrimU32), raw, Origin{Addr: 0x10, InMemory: true, Generation: 3})
	raw[0] = 9
	if v.Uint64() != 1 {
		t.Errorf("scalar aliases input: %d", v.Uint64())
	}
	out := v.Raw()
	out[0] = 7
	if v.Uint64() != 1 {
		t.Error("Raw exposes internal bytes")
	}
	if addr, ok := v.Address(); !ok || addr != 0x10 || v.Generation() != 3 {
		t.Errorf("origin = %+v", v.Origin())
	}
}

func TestAggregateFields(t *testing.T) {
	r := types.NewRegistry(8)
	u8 := r.Primitive(types.PrimU8)
	v := Aggregate(nil, []Field{
		{Name: "a", Value: Uint64Of(u8, 1)},
		{Name: "b", Value: Uint64Of(u8, 2)},
	}, Origin{})

	b, ok := v.Field("b")
	if !ok || b.Uint64() != 2 {
		t.Errorf("Field(b) = %v, %v", b, ok)
	}
	if _, ok := v.Field("c"); ok {
		t.Error("Field(c) found")
	}
	if v.Len() != 2 || v.FieldAt(0).Name != "a" {
		t.Errorf("Len %d first %q", v.Len(), v.FieldAt(0).Name)
	}

	fs := v.Fields()
	fs[0].Name = "z"
	if v.FieldAt(0).Name != "a" {
		t.Error("Fields exposes internal slice")
	}
}

func TestFuncCopy(t *testing.T) {
	r := types.NewRegistry(8)
	fv := Function(r.FuncOf(nil, nil), Func{Entry: 0x1000, Symbol: 3, Path: "demo::f"}, Origin{})
	f := fv.Func()
	f.Path = "x"
	if fv.Func().Path != "demo::f" || fv.Target() != 0x1000 {
		t.Errorf("Func = %+v", fv.Func())
	}
}
