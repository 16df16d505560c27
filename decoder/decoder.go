package decoder

import (
	"fmt"
	"strconv"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/decoder/internal/abi"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
)

// ByteRange is a block of target bytes starting at Addr.
type ByteRange struct {
	Data []byte
	Addr uint64
}

// Symbolizer maps function entry addresses to symbols.
type Symbolizer interface {
	Symbolize(addr uint64) (path string, id int, ok bool)
}

// Options controls a single decode.
type Options struct {
	// Symbols names function pointers. May be nil.
	Symbols Symbolizer
	// UnsizedLen is the element count of a dynamically sized trailing
	// field, taken from the enclosing fat pointer. Nil means unknown.
	UnsizedLen *uint64
	// Generation stamps produced values with the image generation.
	Generation uint64
}

// Len returns a pointer to n for Options.UnsizedLen.
func Len(n uint64) *uint64 {
	return &n
}

// Decoder turns bytes into values.
type Decoder struct {
	ptrSize uint64
}

// New creates a decoder for a target with the given pointer size.
func New(ptrSize uint64) *Decoder {
	if ptrSize == 0 {
		ptrSize = types.DefaultPointerSize
	}
	return &Decoder{ptrSize: ptrSize}
}

// PointerSize returns the target pointer width.
func (d *Decoder) PointerSize() uint64 {
	return d.ptrSize
}

// Decode decodes typ from br.
func (d *Decoder) Decode(typ *types.Descriptor, br ByteRange, opts Options) (*value.Value, error) {
	need, err := d.extent(typ, opts)
	if err != nil {
		return nil, err
	}
	if uint64(len(br.Data)) < need {
		return nil, errors.ShortBuffer(nil, typ.Identity(), uint64(len(br.Data)), need)
	}
	st := &state{opts: opts}
	return d.decode(typ, br.Data[:need], br.Addr, st, nil)
}

// Load reads typ's bytes at addr from mem and decodes them.
func (d *Decoder) Load(typ *types.Descriptor, addr uint64, mem debugeval.Memory, opts Options) (*value.Value, error) {
	need, err := d.extent(typ, opts)
	if err != nil {
		return nil, err
	}
	data, err := read(mem, addr, need)
	if err != nil {
		return nil, err
	}
	return d.Decode(typ, ByteRange{Addr: addr, Data: data}, opts)
}

// Size returns the number of bytes a value of typ occupies given opts.
func (d *Decoder) Size(typ *types.Descriptor, opts Options) (uint64, error) {
	return d.extent(typ, opts)
}

func read(mem debugeval.Memory, addr, n uint64) ([]byte, error) {
	if mem == nil {
		return nil, errors.IO(errors.PhaseDecode, "no target memory", nil)
	}
	data, err := mem.ReadMemory(addr, n)
	if err != nil {
		return nil, errors.IO(errors.PhaseDecode, fmt.Sprintf("read %d bytes at 0x%x", n, addr), err)
	}
	if uint64(len(data)) != n {
		return nil, errors.IO(errors.PhaseDecode, fmt.Sprintf("short read at 0x%x: got %d of %d bytes", addr, len(data), n), nil)
	}
	return data, nil
}

// extent computes the byte length of typ including any trailing unsized data.
func (d *Decoder) extent(typ *types.Descriptor, opts Options) (uint64, error) {
	if typ == nil {
		return 0, errors.InvalidInput(errors.PhaseDecode, "nil type")
	}

	if typ.Kind == types.KindArray && typ.Unsized {
		return unsizedBytes(typ, opts)
	}

	if typ.Kind.HasFields() && len(typ.Fields) > 0 {
		last := typ.Fields[len(typ.Fields)-1]
		if last.Type.Kind == types.KindArray && last.Type.Unsized {
			n, err := unsizedBytes(last.Type, opts)
			if err != nil {
				return 0, err
			}
			end, ok := abi.SafeAdd(last.Offset, n)
			if !ok {
				return 0, errors.Overflow(errors.PhaseDecode, *opts.UnsizedLen, typ.Identity())
			}
			return max(end, typ.Size), nil
		}
	}
	return typ.Size, nil
}

func unsizedBytes(typ *types.Descriptor, opts Options) (uint64, error) {
	if opts.UnsizedLen == nil {
		return 0, errors.MalformedLayout(nil, typ.Identity(), "dynamically sized type needs an explicit length")
	}
	n := *opts.UnsizedLen
	if n > abi.MaxElements {
		return 0, errors.Overflow(errors.PhaseDecode, n, typ.Identity())
	}
	size, ok := abi.SafeMul(n, typ.Elem.Size)
	if !ok {
		return 0, errors.Overflow(errors.PhaseDecode, n, typ.Identity())
	}
	return size, nil
}

type state struct {
	opts Options
}

func (s *state) origin(addr uint64) value.Origin {
	return value.Origin{Addr: addr, InMemory: true, Generation: s.opts.Generation}
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func (d *Decoder) decode(typ *types.Descriptor, data []byte, addr uint64, st *state, path []string) (*value.Value, error) {
	switch typ.Kind {
	case types.KindPrimitive:
		return d.decodePrimitive(typ, data, addr, st, path)

	case types.KindStruct, types.KindTupleStruct, types.KindTuple, types.KindClosure:
		fields, err := d.decodeFields(typ, typ.Fields, data, addr, st, path)
		if err != nil {
			return nil, err
		}
		return value.Aggregate(typ, fields, st.origin(addr)), nil

	case types.KindEnum:
		return d.decodeEnum(typ, data, addr, st, path)

	case types.KindUnion:
		raw, ok := abi.Window(data, 0, typ.Size)
		if !ok {
			return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), typ.Size)
		}
		return value.Union(typ, raw, st.origin(addr)), nil

	case types.KindArray:
		return d.decodeArray(typ, data, addr, st, path)

	case types.KindSlice:
		base, length, err := d.fatPair(typ, data, path)
		if err != nil {
			return nil, err
		}
		return value.Slice(typ, base, length, st.origin(addr)), nil

	case types.KindTraitObject:
		ptr, vtable, err := d.fatPair(typ, data, path)
		if err != nil {
			return nil, err
		}
		return value.Reference(typ, ptr, vtable, st.origin(addr)), nil

	case types.KindPointer, types.KindReference:
		ptr, ok := abi.ReadUint(data, 0, d.ptrSize)
		if !ok {
			return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), d.ptrSize)
		}
		return value.Reference(typ, ptr, 0, st.origin(addr)), nil

	case types.KindFunction:
		entry, ok := abi.ReadUint(data, 0, d.ptrSize)
		if !ok {
			return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), d.ptrSize)
		}
		fn := value.Func{Entry: entry, Symbol: -1}
		if st.opts.Symbols != nil {
			if p, id, ok := st.opts.Symbols.Symbolize(entry); ok {
				fn.Path, fn.Symbol = p, id
			}
		}
		return value.Function(typ, fn, st.origin(addr)), nil
	}

	return nil, errors.Unsupported(errors.PhaseDecode, "type kind "+typ.Kind.String())
}

func (d *Decoder) decodePrimitive(typ *types.Descriptor, data []byte, addr uint64, st *state, path []string) (*value.Value, error) {
	raw, ok := abi.Window(data, 0, typ.Size)
	if !ok {
		return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), typ.Size)
	}

	switch typ.Prim {
	case types.PrimBool:
		if raw[0] > 1 {
			return nil, errors.New(errors.PhaseDecode, errors.KindMalformedLayout).
				Path(path...).
				Type("bool").
				Value(raw[0]).
				Detail("invalid bool byte 0x%02x", raw[0]).
				Build()
		}
	case types.PrimChar:
		c, _ := abi.ReadUint(raw, 0, 4)
		if !abi.ValidateChar(uint32(c)) {
			return nil, errors.New(errors.PhaseDecode, errors.KindMalformedLayout).
				Path(path...).
				Type("char").
				Value(c).
				Detail("invalid char 0x%x", c).
				Build()
		}
	case types.PrimNever:
		return nil, errors.MalformedLayout(path, "!", "uninhabited type has no values")
	}
	return value.Scalar(typ, raw, st.origin(addr)), nil
}

func (d *Decoder) decodeFields(typ *types.Descriptor, fields []types.Field, data []byte, addr uint64, st *state, path []string) ([]value.Field, error) {
	out := make([]value.Field, 0, len(fields))
	for i, f := range fields {
		fpath := appendPath(path, f.Name)

		var (
			fdata []byte
			ok    bool
		)
		if f.Type.Kind == types.KindArray && f.Type.Unsized && i == len(fields)-1 {
			if f.Offset <= uint64(len(data)) {
				fdata, ok = data[f.Offset:], true
			}
		} else {
			fdata, ok = abi.Window(data, f.Offset, f.Type.Size)
		}
		if !ok {
			return nil, errors.New(errors.PhaseDecode, errors.KindMalformedLayout).
				Path(fpath...).
				Type(typ.Identity()).
				Detail("field [%d, %d) outside %d bytes", f.Offset, f.Offset+f.Type.Size, len(data)).
				Build()
		}

		v, err := d.decode(f.Type, fdata, addr+f.Offset, st, fpath)
		if err != nil {
			return nil, err
		}
		out = append(out, value.Field{Name: f.Name, Value: v})
	}
	return out, nil
}

func (d *Decoder) decodeArray(typ *types.Descriptor, data []byte, addr uint64, st *state, path []string) (*value.Value, error) {
	n := typ.Len
	if typ.Unsized {
		if st.opts.UnsizedLen == nil {
			return nil, errors.MalformedLayout(path, typ.Identity(), "dynamically sized type needs an explicit length")
		}
		n = *st.opts.UnsizedLen
	}

	elem := typ.Elem
	total, ok := abi.SafeMul(n, elem.Size)
	if !ok || n > abi.MaxElements {
		return nil, errors.Overflow(errors.PhaseDecode, n, typ.Identity())
	}
	if uint64(len(data)) < total {
		return nil, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), total)
	}

	fields := make([]value.Field, 0, n)
	for i := uint64(0); i < n; i++ {
		off := i * elem.Size
		name := strconv.FormatUint(i, 10)
		v, err := d.decode(elem, data[off:off+elem.Size], addr+off, st, appendPath(path, "["+name+"]"))
		if err != nil {
			return nil, err
		}
		fields = append(fields, value.Field{Name: name, Value: v})
	}
	return value.Aggregate(typ, fields, st.origin(addr)), nil
}

func (d *Decoder) fatPair(typ *types.Descriptor, data []byte, path []string) (uint64, uint64, error) {
	first, ok1 := abi.ReadUint(data, 0, d.ptrSize)
	second, ok2 := abi.ReadUint(data, d.ptrSize, d.ptrSize)
	if !ok1 || !ok2 {
		return 0, 0, errors.ShortBuffer(path, typ.Identity(), uint64(len(data)), 2*d.ptrSize)
	}
	return first, second, nil
}
