package format

import (
	"strconv"
	"strings"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/decoder"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

// DefaultMaxElements bounds element lists when MaxElements is zero.
const DefaultMaxElements = 200

// Formatter renders values. Memory is optional; without it slices are
// shown as pointer and length.
type Formatter struct {
	Memory  debugeval.Memory
	Decoder *decoder.Decoder
	// Options is used for element and union field loads.
	Options     decoder.Options
	MaxElements int
}

// Format renders v without reading target memory.
func Format(v *value.Value) string {
	s, err := Formatter{}.Format(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return s
}

// Format renders v. Top-level references and functions are prefixed with
// their type.
func (f Formatter) Format(v *value.Value) (string, error) {
	if v == nil {
		return "", errors.InvalidInput(errors.PhaseFormat, "nil value")
	}
	p := &printer{Formatter: f, max: DefaultMaxElements}
	if p.Decoder == nil {
		p.Decoder = decoder.New(types.DefaultPointerSize)
	}
	if f.MaxElements > 0 {
		p.max = uint64(f.MaxElements)
	}

	switch v.Kind() {
	case value.KindReference:
		p.b.WriteString("(" + typeName(v) + ") ")
		p.addr(v.Target())
	case value.KindFunction:
		p.b.WriteString("{" + typeName(v) + "} ")
		p.function(v)
	default:
		if err := p.value(v); err != nil {
			return "", err
		}
	}
	return p.b.String(), nil
}

type printer struct {
	Formatter
	b   strings.Builder
	max uint64
}

func typeName(v *value.Value) string {
	if v.Type() == nil {
		return "?"
	}
	return v.Type().DisplayName()
}

func (p *printer) value(v *value.Value) error {
	switch v.Kind() {
	case value.KindScalar:
		p.scalar(v)
	case value.KindString:
		if !v.Type().IsStr() {
			p.b.WriteByte('b')
		}
		p.b.WriteString(strconv.Quote(v.Text()))
	case value.KindReference:
		p.addr(v.Target())
	case value.KindFunction:
		p.function(v)
	case value.KindSlice:
		return p.slice(v)
	case value.KindAggregate:
		return p.aggregate(v)
	case value.KindEnum:
		return p.enum(v)
	case value.KindUnion:
		return p.union(v)
	default:
		return errors.Unsupported(errors.PhaseFormat, "value kind "+v.Kind().String())
	}
	return nil
}

func (p *printer) scalar(v *value.Value) {
	switch prim := v.Prim(); {
	case prim.IsInteger():
		p.b.WriteString(v.Int().String())
	case prim.IsFloat():
		p.b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, int(v.Type().Size*8)))
	case prim == types.PrimBool:
		p.b.WriteString(strconv.FormatBool(v.Bool()))
	case prim == types.PrimChar:
		p.b.WriteString(strconv.FormatUint(v.Uint64(), 10))
		p.b.WriteByte(' ')
		p.b.WriteString(strconv.QuoteRune(v.Rune()))
	default:
		p.b.WriteString(v.String())
	}
}

func (p *printer) addr(a uint64) {
	p.b.WriteString("0x")
	p.b.WriteString(strconv.FormatUint(a, 16))
}

func (p *printer) function(v *value.Value) {
	p.addr(v.Target())
	if fn := v.Func(); fn != nil && fn.Path != "" {
		p.b.WriteString(" <" + fn.Path + ">")
	}
}

// list writes start, the values separated by commas, and end. more marks
// a list cut short at the element limit.
func (p *printer) list(start, end string, vs []*value.Value, more bool) error {
	p.b.WriteString(start)
	for i, v := range vs {
		if i > 0 {
			p.b.WriteString(", ")
		}
		if err := p.value(v); err != nil {
			return err
		}
	}
	if more {
		if len(vs) > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString("...")
	}
	p.b.WriteString(end)
	return nil
}

// fields writes " { name: value, ... }".
func (p *printer) fields(fs []value.Field) error {
	p.b.WriteString(" { ")
	for i, f := range fs {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(f.Name)
		p.b.WriteString(": ")
		if err := p.value(f.Value); err != nil {
			return err
		}
	}
	p.b.WriteString(" }")
	return nil
}

func values(fs []value.Field) []*value.Value {
	out := make([]*value.Value, len(fs))
	for i, f := range fs {
		out[i] = f.Value
	}
	return out
}

func (p *printer) aggregate(v *value.Value) error {
	fs := v.Fields()
	typ := v.Type()
	if typ == nil {
		return p.list("(", ")", values(fs), false)
	}

	switch typ.Kind {
	case types.KindArray:
		more := uint64(len(fs)) > p.max
		if more {
			fs = fs[:p.max]
		}
		return p.list("[", "]", values(fs), more)

	case types.KindTuple:
		if len(fs) == 1 {
			return p.list("(", ",)", values(fs), false)
		}
		return p.list("(", ")", values(fs), false)

	case types.KindTupleStruct:
		p.b.WriteString(typ.DisplayName())
		if len(fs) == 0 {
			return nil
		}
		return p.list("(", ")", values(fs), false)
	}

	p.b.WriteString(typ.DisplayName())
	if len(fs) == 0 {
		return nil
	}
	return p.fields(fs)
}

func (p *printer) enum(v *value.Value) error {
	typ := v.Type()
	if len(typ.Variants) == 0 {
		p.b.WriteString(typ.DisplayName() + " {<No data fields>}")
		return nil
	}
	info := v.VariantInfo()
	if info == nil {
		return errors.New(errors.PhaseFormat, errors.KindMalformedLayout).
			Type(typ.Identity()).
			Detail("variant index %d out of range", v.Variant()).
			Build()
	}

	p.b.WriteString(info.Name)
	fs := v.Fields()
	switch {
	case len(fs) == 0:
		return nil
	case info.Tuple:
		return p.list("(", ")", values(fs), false)
	}
	return p.fields(fs)
}

// union shows every interpretation of the union's bytes.
func (p *printer) union(v *value.Value) error {
	typ := v.Type()
	p.b.WriteString(typ.DisplayName())
	if len(typ.Fields) == 0 {
		return nil
	}
	fs := make([]value.Field, len(typ.Fields))
	for i, f := range typ.Fields {
		fv, err := p.Decoder.UnionField(v, f.Name, p.Options)
		if err != nil {
			return err
		}
		fs[i] = value.Field{Name: f.Name, Value: fv}
	}
	return p.fields(fs)
}

func (p *printer) slice(v *value.Value) error {
	typ := v.Type()
	if p.Memory == nil {
		p.b.WriteString(typ.DisplayName() + " {data_ptr: ")
		p.addr(v.Target())
		p.b.WriteString(", length: " + strconv.FormatUint(v.Len(), 10) + "}")
		return nil
	}

	if typ.IsStr() {
		s, truncated, err := p.Decoder.Text(v, p.max, p.Memory)
		if err != nil {
			return err
		}
		p.b.WriteString(strconv.Quote(s))
		if truncated {
			p.b.WriteString("...")
		}
		return nil
	}

	p.b.WriteString(typ.DisplayName() + " ")
	if v.Len() == 0 {
		p.b.WriteString("[]")
		return nil
	}
	elems, err := p.Decoder.Elements(v, p.max, p.Memory, p.Options)
	if err != nil {
		return err
	}
	return p.list("[", "]", elems, v.Len() > p.max)
}
