package types

// Kind is the shape of a descriptor.
type Kind uint8

const (
	KindPrimitive Kind = iota
	KindStruct
	KindTupleStruct
	KindTuple
	KindEnum
	KindUnion
	KindArray
	KindSlice
	KindPointer
	KindReference
	KindFunction
	KindClosure
	KindTraitObject
)

var kindNames = [...]string{
	KindPrimitive:   "primitive",
	KindStruct:      "struct",
	KindTupleStruct: "tuple_struct",
	KindTuple:       "tuple",
	KindEnum:        "enum",
	KindUnion:       "union",
	KindArray:       "array",
	KindSlice:       "slice",
	KindPointer:     "pointer",
	KindReference:   "reference",
	KindFunction:    "function",
	KindClosure:     "closure",
	KindTraitObject: "trait_object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// HasFields reports whether values of this kind are field aggregates.
func (k Kind) HasFields() bool {
	switch k {
	case KindStruct, KindTupleStruct, KindTuple, KindUnion, KindClosure:
		return true
	}
	return false
}

// IsAddress reports whether the kind is a thin or fat address.
func (k Kind) IsAddress() bool {
	switch k {
	case KindPointer, KindReference, KindSlice, KindTraitObject, KindFunction:
		return true
	}
	return false
}

// Primitive identifies a scalar type.
type Primitive uint8

const (
	PrimNone Primitive = iota
	PrimBool
	PrimChar
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimIsize
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimUsize
	PrimF32
	PrimF64
	PrimUnit
	PrimNever
)

var primNames = [...]string{
	PrimNone:  "",
	PrimBool:  "bool",
	PrimChar:  "char",
	PrimI8:    "i8",
	PrimI16:   "i16",
	PrimI32:   "i32",
	PrimI64:   "i64",
	PrimI128:  "i128",
	PrimIsize: "isize",
	PrimU8:    "u8",
	PrimU16:   "u16",
	PrimU32:   "u32",
	PrimU64:   "u64",
	PrimU128:  "u128",
	PrimUsize: "usize",
	PrimF32:   "f32",
	PrimF64:   "f64",
	PrimUnit:  "()",
	PrimNever: "!",
}

func (p Primitive) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return "unknown"
}

// ParsePrimitive maps a primitive name such as "u32" or "()" to its Primitive.
func ParsePrimitive(s string) (Primitive, bool) {
	for i, name := range primNames {
		if i != 0 && name == s {
			return Primitive(i), true
		}
	}
	return PrimNone, false
}

// Size returns the byte size of p given the target pointer size.
func (p Primitive) Size(ptrSize uint64) uint64 {
	switch p {
	case PrimBool, PrimI8, PrimU8:
		return 1
	case PrimI16, PrimU16:
		return 2
	case PrimChar, PrimI32, PrimU32, PrimF32:
		return 4
	case PrimI64, PrimU64, PrimF64:
		return 8
	case PrimI128, PrimU128:
		return 16
	case PrimIsize, PrimUsize:
		return ptrSize
	}
	return 0
}

// Align returns the natural alignment of p. 128-bit integers align to 16.
func (p Primitive) Align(ptrSize uint64) uint64 {
	if s := p.Size(ptrSize); s > 0 {
		return s
	}
	return 1
}

// IsInteger reports whether p is a signed or unsigned integer.
func (p Primitive) IsInteger() bool {
	return p >= PrimI8 && p <= PrimUsize
}

// IsSigned reports whether p is a signed integer.
func (p Primitive) IsSigned() bool {
	return p >= PrimI8 && p <= PrimIsize
}

// IsFloat reports whether p is f32 or f64.
func (p Primitive) IsFloat() bool {
	return p == PrimF32 || p == PrimF64
}

// IsNumeric reports whether p is an integer or float.
func (p Primitive) IsNumeric() bool {
	return p.IsInteger() || p.IsFloat()
}

// Bits returns the bit width of an integer or float primitive.
func (p Primitive) Bits(ptrSize uint64) uint {
	return uint(p.Size(ptrSize) * 8)
}
