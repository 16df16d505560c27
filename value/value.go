package value

import (
	"encoding/binary"
	"math"
	"math/big"
	"strconv"

	"github.com/wippyai/debug-eval/types"
)

// Kind is the shape of a decoded value.
type Kind uint8

const (
	KindScalar Kind = iota
	KindAggregate
	KindEnum
	KindUnion
	KindReference
	KindSlice
	KindFunction
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindAggregate:
		return "aggregate"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	case KindReference:
		return "reference"
	case KindSlice:
		return "slice"
	case KindFunction:
		return "function"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Origin records where a value came from.
// Generation 0 means the value is not bound to any program image.
// Pinned marks a temporary whose type was stated explicitly, by a literal
// suffix or a cast, and so must not be re-typed by inference.
type Origin struct {
	Addr       uint64
	Generation uint64
	InMemory   bool
	Pinned     bool
}

// Field is a named member of an aggregate or enum payload.
type Field struct {
	Value *Value
	Name  string
}

// Func identifies a function value. Symbol is -1 when the entry address
// could not be symbolized.
type Func struct {
	Receiver *Value
	Path     string
	Entry    uint64
	Symbol   int
}

// Value is one decoded or computed value.
type Value struct {
	typ     *types.Descriptor
	fn      *Func
	raw     []byte
	fields  []Field
	text    string
	origin  Origin
	target  uint64
	meta    uint64
	variant int
	kind    Kind
}

// Scalar creates a primitive value from its raw little-endian bytes.
func Scalar(typ *types.Descriptor, raw []byte, o Origin) *Value {
	return &Value{kind: KindScalar, typ: typ, raw: append([]byte(nil), raw...), origin: o}
}

// Aggregate creates a struct, tuple, closure or array value.
func Aggregate(typ *types.Descriptor, fields []Field, o Origin) *Value {
	return &Value{kind: KindAggregate, typ: typ, fields: fields, origin: o}
}

// Enum creates an enum value of the given variant with its payload fields.
func Enum(typ *types.Descriptor, variant int, fields []Field, o Origin) *Value {
	return &Value{kind: KindEnum, typ: typ, variant: variant, fields: fields, origin: o}
}

// Union creates a union value over raw bytes.
func Union(typ *types.Descriptor, raw []byte, o Origin) *Value {
	return &Value{kind: KindUnion, typ: typ, raw: append([]byte(nil), raw...), origin: o}
}

// Reference creates a pointer, reference or trait object value. For trait
// objects meta is the vtable address.
func Reference(typ *types.Descriptor, target, meta uint64, o Origin) *Value {
	return &Value{kind: KindReference, typ: typ, target: target, meta: meta, origin: o}
}

// Slice creates a fat slice value over length elements at base.
func Slice(typ *types.Descriptor, base, length uint64, o Origin) *Value {
	return &Value{kind: KindSlice, typ: typ, target: base, meta: length, origin: o}
}

// Function creates a function value.
func Function(typ *types.Descriptor, fn Func, o Origin) *Value {
	return &Value{kind: KindFunction, typ: typ, fn: &fn, target: fn.Entry, origin: o}
}

// String creates a literal string with no target backing.
func String(typ *types.Descriptor, text string) *Value {
	return &Value{kind: KindString, typ: typ, text: text}
}

// Kind returns the value's shape.
func (v *Value) Kind() Kind { return v.kind }

// Type returns the descriptor the value was built from.
func (v *Value) Type() *types.Descriptor { return v.typ }

// Origin returns where the value came from.
func (v *Value) Origin() Origin { return v.origin }

// Address returns the target address the value was decoded at.
func (v *Value) Address() (uint64, bool) { return v.origin.Addr, v.origin.InMemory }

// Generation returns the image generation that produced the value.
func (v *Value) Generation() uint64 { return v.origin.Generation }

// Pinned reports whether the value's type was stated explicitly.
func (v *Value) Pinned() bool { return v.origin.Pinned }

// Pin returns a copy of v with its type marked as explicit.
func Pin(v *Value) *Value {
	c := *v
	c.origin.Pinned = true
	return &c
}

// Raw returns a copy of the scalar or union bytes.
func (v *Value) Raw() []byte { return append([]byte(nil), v.raw...) }

// Fields returns the aggregate fields or the enum payload.
func (v *Value) Fields() []Field { return append([]Field(nil), v.fields...) }

// NumFields returns the number of fields.
func (v *Value) NumFields() int { return len(v.fields) }

// FieldAt returns field i.
func (v *Value) FieldAt(i int) Field { return v.fields[i] }

// Field returns the named field.
func (v *Value) Field(name string) (*Value, bool) {
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Variant returns the selected variant index of an enum value.
func (v *Value) Variant() int { return v.variant }

// VariantInfo returns the selected variant's descriptor.
func (v *Value) VariantInfo() *types.Variant {
	if v.kind != KindEnum || v.typ == nil || v.variant < 0 || v.variant >= len(v.typ.Variants) {
		return nil
	}
	return &v.typ.Variants[v.variant]
}

// Target returns the address a reference points to, a slice's base, or a
// function's entry.
func (v *Value) Target() uint64 { return v.target }

// Meta returns a trait object's vtable address.
func (v *Value) Meta() uint64 { return v.meta }

// Len returns a slice's element count, a string's byte length, or the
// number of fields.
func (v *Value) Len() uint64 {
	switch v.kind {
	case KindSlice:
		return v.meta
	case KindString:
		return uint64(len(v.text))
	}
	return uint64(len(v.fields))
}

// Func returns the function identity of a function value.
func (v *Value) Func() *Func {
	if v.fn == nil {
		return nil
	}
	f := *v.fn
	return &f
}

// Text returns a string literal's contents.
func (v *Value) Text() string { return v.text }

// Prim returns the primitive kind of a scalar, or PrimNone.
func (v *Value) Prim() types.Primitive {
	if v.kind != KindScalar || v.typ == nil {
		return types.PrimNone
	}
	return v.typ.Prim
}

// Int returns the integer value of a scalar, sign-extended when the type is signed.
func (v *Value) Int() *big.Int {
	le := v.raw
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	n := new(big.Int).SetBytes(be)
	if v.Prim().IsSigned() && len(le) > 0 && le[len(le)-1]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(le)*8)))
	}
	return n
}

// Uint64 returns the low 64 bits of an integer, bool or char scalar.
func (v *Value) Uint64() uint64 {
	var buf [8]byte
	copy(buf[:], v.raw)
	return binary.LittleEndian.Uint64(buf[:])
}

// Int64 returns an integer scalar as int64 and whether it fits.
func (v *Value) Int64() (int64, bool) {
	n := v.Int()
	return n.Int64(), n.IsInt64()
}

// Float64 returns a float scalar's value.
func (v *Value) Float64() float64 {
	switch len(v.raw) {
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.raw)))
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(v.raw))
	}
	return 0
}

// Bool returns a bool scalar's value.
func (v *Value) Bool() bool {
	return len(v.raw) > 0 && v.raw[0] != 0
}

// Rune returns a char scalar's value.
func (v *Value) Rune() rune {
	return rune(v.Uint64())
}

// Int creates an integer scalar of typ from n, truncated to the type's width
// in two's complement.
func Int(typ *types.Descriptor, n *big.Int) *Value {
	size := int(typ.Size)
	m := new(big.Int).Set(n)
	if m.Sign() < 0 {
		m.Add(m, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	m.And(m, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(size*8)), big.NewInt(1)))
	be := m.Bytes()
	raw := make([]byte, size)
	for i := 0; i < len(be) && i < size; i++ {
		raw[i] = be[len(be)-1-i]
	}
	return &Value{kind: KindScalar, typ: typ, raw: raw}
}

// Int64Of creates an integer scalar from an int64.
func Int64Of(typ *types.Descriptor, n int64) *Value {
	return Int(typ, big.NewInt(n))
}

// Uint64Of creates an integer scalar from a uint64.
func Uint64Of(typ *types.Descriptor, n uint64) *Value {
	return Int(typ, new(big.Int).SetUint64(n))
}

// Float creates an f32 or f64 scalar.
func Float(typ *types.Descriptor, f float64) *Value {
	var raw []byte
	if typ.Size == 4 {
		raw = binary.LittleEndian.AppendUint32(nil, math.Float32bits(float32(f)))
	} else {
		raw = binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))
	}
	return &Value{kind: KindScalar, typ: typ, raw: raw}
}

// Bool creates a bool scalar.
func Bool(typ *types.Descriptor, b bool) *Value {
	raw := []byte{0}
	if b {
		raw[0] = 1
	}
	return &Value{kind: KindScalar, typ: typ, raw: raw}
}

// Char creates a char scalar.
func Char(typ *types.Descriptor, r rune) *Value {
	return &Value{kind: KindScalar, typ: typ, raw: binary.LittleEndian.AppendUint32(nil, uint32(r))}
}

// Unit creates the () value.
func Unit(typ *types.Descriptor) *Value {
	return &Value{kind: KindScalar, typ: typ}
}

// IsUnit reports whether v is ().
func (v *Value) IsUnit() bool {
	return v.kind == KindScalar && v.typ.IsUnit()
}

// String renders a short debug form. Use the format package for display.
func (v *Value) String() string {
	switch v.kind {
	case KindScalar:
		switch p := v.Prim(); {
		case p.IsInteger():
			return v.Int().String()
		case p.IsFloat():
			return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
		case p == types.PrimBool:
			return strconv.FormatBool(v.Bool())
		case p == types.PrimChar:
			return strconv.QuoteRune(v.Rune())
		case p == types.PrimUnit:
			return "()"
		}
	case KindString:
		return strconv.Quote(v.text)
	case KindReference, KindFunction:
		return "0x" + strconv.FormatUint(v.target, 16)
	}
	if v.typ != nil {
		return v.kind.String() + " " + v.typ.Identity()
	}
	return v.kind.String()
}
