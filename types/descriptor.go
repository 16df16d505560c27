package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types/internal/layout"
)

// Field is one member of an aggregate or enum variant.
// Offset is relative to the start of the enclosing type.
type Field struct {
	Type   *Descriptor
	Name   string
	Offset uint64
}

// Variant is one alternative of an enum. Payload field offsets are relative
// to the start of the enum.
type Variant struct {
	Name         string
	Fields       []Field
	Discriminant int64
	Tuple        bool
}

// IsUnit reports whether the variant carries no fields.
func (v *Variant) IsUnit() bool {
	return len(v.Fields) == 0
}

// PayloadSize returns the number of bytes the variant's fields occupy.
func (v *Variant) PayloadSize() uint64 {
	var n uint64
	for _, f := range v.Fields {
		if f.Type != nil {
			n += f.Type.Size
		}
	}
	return n
}

// Descriptor is the static description of one type.
//
// Which fields are meaningful depends on Kind:
//
//	Primitive                      Prim
//	Struct, TupleStruct, Tuple     Fields
//	Union                          Fields (all at offset 0)
//	Closure                        Fields (captures), Body
//	Enum                           Variants, Strategy
//	Array                          Elem, Len, Unsized, Text
//	Slice                          Elem, Mutable, Text
//	Pointer, Reference             Elem, Mutable
//	Function                       Params, Result
//	TraitObject                    Trait, Mutable
//
// Descriptors are never mutated once registered.
type Descriptor struct {
	Elem     *Descriptor
	Result   *Descriptor
	Path     string
	Name     string
	Trait    string
	Body     string
	Args     []*Descriptor
	Params   []*Descriptor
	Fields   []Field
	Variants []Variant
	Strategy Strategy
	Size     uint64
	Align    uint64
	Len      uint64
	Kind     Kind
	Prim     Primitive
	Mutable  bool
	Unsized  bool
	Text     bool
}

// Identity returns the unique identity string of the type.
func (d *Descriptor) Identity() string {
	var b strings.Builder
	d.writeIdentity(&b)
	return b.String()
}

func (d *Descriptor) writeIdentity(b *strings.Builder) {
	if d == nil {
		b.WriteString("?")
		return
	}

	switch d.Kind {
	case KindPrimitive:
		b.WriteString(d.Prim.String())
		return

	case KindArray:
		if d.Path != "" {
			b.WriteString(d.Path)
			return
		}
		b.WriteByte('[')
		d.Elem.writeIdentity(b)
		if !d.Unsized {
			b.WriteString("; ")
			b.WriteString(strconv.FormatUint(d.Len, 10))
		}
		b.WriteByte(']')
		return

	case KindSlice:
		b.WriteByte('&')
		if d.Mutable {
			b.WriteString("mut ")
		}
		if d.Text {
			b.WriteString("str")
			return
		}
		b.WriteByte('[')
		d.Elem.writeIdentity(b)
		b.WriteByte(']')
		return

	case KindReference:
		b.WriteByte('&')
		if d.Mutable {
			b.WriteString("mut ")
		}
		d.Elem.writeIdentity(b)
		return

	case KindPointer:
		if d.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		d.Elem.writeIdentity(b)
		return

	case KindTraitObject:
		b.WriteByte('&')
		if d.Mutable {
			b.WriteString("mut ")
		}
		b.WriteString("dyn ")
		b.WriteString(d.Trait)
		return

	case KindFunction:
		if d.Path != "" {
			break
		}
		b.WriteString("fn(")
		for i, p := range d.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			p.writeIdentity(b)
		}
		b.WriteByte(')')
		if d.Result != nil && !d.Result.IsUnit() {
			b.WriteString(" -> ")
			d.Result.writeIdentity(b)
		}
		return

	case KindTuple:
		if d.Path != "" {
			break
		}
		b.WriteByte('(')
		for i, f := range d.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			f.Type.writeIdentity(b)
		}
		if len(d.Fields) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
		return
	}

	b.WriteString(d.Path)
	if len(d.Args) > 0 {
		b.WriteByte('<')
		for i, a := range d.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.writeIdentity(b)
		}
		b.WriteByte('>')
	}
}

// DisplayName returns the name used when formatting values of this type.
// It is Name when set, otherwise the identity.
func (d *Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Identity()
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return d.Identity()
}

// IsUnit reports whether d is the unit type ().
func (d *Descriptor) IsUnit() bool {
	return d != nil && d.Kind == KindPrimitive && d.Prim == PrimUnit
}

// IsInteger reports whether d is an integer primitive.
func (d *Descriptor) IsInteger() bool {
	return d != nil && d.Kind == KindPrimitive && d.Prim.IsInteger()
}

// IsFloat reports whether d is a float primitive.
func (d *Descriptor) IsFloat() bool {
	return d != nil && d.Kind == KindPrimitive && d.Prim.IsFloat()
}

// IsStr reports whether d is &str.
func (d *Descriptor) IsStr() bool {
	return d != nil && d.Kind == KindSlice && d.Text
}

// Arity returns the number of fields of a tuple-like type.
func (d *Descriptor) Arity() int {
	return len(d.Fields)
}

// FieldByName returns the named field.
func (d *Descriptor) FieldByName(name string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// VariantByName returns the index of the named variant.
func (d *Descriptor) VariantByName(name string) (int, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Deref returns the pointee of a pointer or reference, or nil.
func (d *Descriptor) Deref() *Descriptor {
	if d == nil {
		return nil
	}
	switch d.Kind {
	case KindPointer, KindReference:
		return d.Elem
	}
	return nil
}

// Nominal strips references until a non-reference type is reached.
func (d *Descriptor) Nominal() *Descriptor {
	for d != nil && d.Kind == KindReference {
		d = d.Elem
	}
	return d
}

// Equal reports whether two descriptors have the same identity.
func Equal(a, b *Descriptor) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Identity() == b.Identity()
}

// Validate checks the descriptor's layout invariants. Nested descriptors are
// not revisited.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.InvalidInput(errors.PhaseLoad, "nil descriptor")
	}
	id := d.Identity()

	switch d.Kind {
	case KindPrimitive:
		if d.Prim == PrimNone {
			return malformed(id, "primitive without kind")
		}

	case KindStruct, KindTuple, KindClosure, KindUnion:
		if err := d.validateFields(id, d.Fields); err != nil {
			return err
		}
		if d.Kind == KindUnion {
			for _, f := range d.Fields {
				if f.Offset != 0 {
					return malformed(id, fmt.Sprintf("union field %s at offset %d", f.Name, f.Offset))
				}
			}
		}

	case KindTupleStruct:
		if err := d.validateFields(id, d.Fields); err != nil {
			return err
		}
		for i, f := range d.Fields {
			if f.Name != strconv.Itoa(i) {
				return malformed(id, fmt.Sprintf("tuple field %d named %q", i, f.Name))
			}
		}

	case KindEnum:
		for i := range d.Variants {
			if err := d.validateFields(id, d.Variants[i].Fields); err != nil {
				return err
			}
		}
		if err := d.Strategy.validate(d); err != nil {
			return malformed(id, err.Error())
		}

	case KindArray:
		if d.Elem == nil {
			return malformed(id, "array without element type")
		}
		if !d.Unsized {
			want, ok := layout.SafeMul(d.Elem.Size, d.Len)
			if !ok || want != d.Size {
				return malformed(id, fmt.Sprintf("size %d does not match %d elements of %d bytes", d.Size, d.Len, d.Elem.Size))
			}
		}

	case KindSlice, KindPointer, KindReference:
		if d.Elem == nil {
			return malformed(id, "missing element type")
		}

	case KindTraitObject:
		if d.Trait == "" {
			return malformed(id, "trait object without trait")
		}

	case KindFunction:
		// Any signature is acceptable.

	default:
		return malformed(id, fmt.Sprintf("unknown kind %d", d.Kind))
	}
	return nil
}

func (d *Descriptor) validateFields(id string, fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if f.Type == nil {
			return malformed(id, fmt.Sprintf("field %q has no type", f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			return malformed(id, fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = struct{}{}

		// A dynamically sized trailing field extends past the static size.
		if f.Type.Unsized && i == len(fields)-1 {
			if f.Offset > d.Size {
				return malformed(id, fmt.Sprintf("field %q at offset %d beyond size %d", f.Name, f.Offset, d.Size))
			}
			continue
		}
		end := f.Offset + f.Type.Size
		if end < f.Offset || end > d.Size {
			return malformed(id, fmt.Sprintf("field %q [%d, %d) exceeds size %d", f.Name, f.Offset, end, d.Size))
		}
	}
	return nil
}

func malformed(typeName, detail string) error {
	return errors.New(errors.PhaseLoad, errors.KindMalformedLayout).
		Type(typeName).
		Detail("%s", detail).
		Build()
}
