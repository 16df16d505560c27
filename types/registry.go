package types

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types/internal/layout"
)

// DefaultPointerSize is the pointer width used when none is configured.
const DefaultPointerSize = 8

// Registry holds the descriptors of one program image.
//
// Add and Intern are only valid before Seal. After Seal the registry is
// read-only and may be shared between goroutines.
type Registry struct {
	byID    map[string]*Descriptor
	byPath  map[string][]*Descriptor
	prims   map[Primitive]*Descriptor
	str     *Descriptor
	ptrSize uint64
	mu      sync.Mutex
	sealed  bool
}

// NewRegistry creates a registry for a target with the given pointer size.
// A zero size selects DefaultPointerSize.
func NewRegistry(ptrSize uint64) *Registry {
	if ptrSize == 0 {
		ptrSize = DefaultPointerSize
	}
	r := &Registry{
		byID:    make(map[string]*Descriptor),
		byPath:  make(map[string][]*Descriptor),
		prims:   make(map[Primitive]*Descriptor),
		ptrSize: ptrSize,
	}
	for p := PrimBool; p <= PrimNever; p++ {
		r.prims[p] = &Descriptor{
			Kind:  KindPrimitive,
			Prim:  p,
			Size:  p.Size(ptrSize),
			Align: p.Align(ptrSize),
		}
	}
	r.str = &Descriptor{
		Kind:    KindArray,
		Path:    "str",
		Elem:    r.prims[PrimU8],
		Align:   1,
		Unsized: true,
		Text:    true,
	}
	return r
}

// PointerSize returns the target pointer width in bytes.
func (r *Registry) PointerSize() uint64 {
	return r.ptrSize
}

// Add registers a descriptor after validating it. Identities must be unique.
func (r *Registry) Add(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.InvalidInput(errors.PhaseLoad, "registry is sealed")
	}
	id := d.Identity()
	if _, dup := r.byID[id]; dup {
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Type(id).
			Detail("duplicate type").
			Build()
	}
	r.byID[id] = d
	if d.Path != "" {
		r.byPath[d.Path] = append(r.byPath[d.Path], d)
	}
	return nil
}

// Intern returns the registered descriptor with d's identity, registering d
// if none exists. After Seal, unknown descriptors are returned unregistered.
func (r *Registry) Intern(d *Descriptor) (*Descriptor, error) {
	if d.Kind == KindPrimitive {
		return r.prims[d.Prim], nil
	}
	id := d.Identity()

	r.mu.Lock()
	existing, ok := r.byID[id]
	sealed := r.sealed
	r.mu.Unlock()

	if ok {
		return existing, nil
	}
	if sealed {
		return d, nil
	}
	if err := r.Add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Primitive returns the descriptor of a primitive type.
func (r *Registry) Primitive(p Primitive) *Descriptor {
	return r.prims[p]
}

// Str returns the dynamically sized str type.
func (r *Registry) Str() *Descriptor {
	return r.str
}

// Lookup returns the instantiation of path with exactly the given generic
// arguments. Unqualified paths match a unique registered path ending in
// that name.
func (r *Registry) Lookup(path string, args ...*Descriptor) (*Descriptor, error) {
	if len(args) == 0 {
		if p, ok := ParsePrimitive(path); ok {
			return r.prims[p], nil
		}
		if path == "str" {
			return r.str, nil
		}
	}

	path = strings.TrimPrefix(path, "::")
	candidates, ok := r.byPath[path]
	if !ok && !strings.Contains(path, "::") {
		var found string
		for p := range r.byPath {
			if strings.HasSuffix(p, "::"+path) {
				if found != "" {
					return nil, errors.Ambiguous(errors.PhaseResolve, path, sortedStrings(found, p))
				}
				found = p
			}
		}
		candidates = r.byPath[found]
	}

	for _, d := range candidates {
		if argsMatch(d.Args, args) {
			return d, nil
		}
	}

	name := path
	if len(args) > 0 {
		ids := make([]string, len(args))
		for i, a := range args {
			ids[i] = a.Identity()
		}
		name = fmt.Sprintf("%s<%s>", path, strings.Join(ids, ", "))
	}
	return nil, errors.NotFound(errors.PhaseResolve, "type", name)
}

func sortedStrings(a ...string) []string {
	sort.Strings(a)
	return a
}

func argsMatch(have, want []*Descriptor) bool {
	if len(have) != len(want) {
		return false
	}
	for i := range have {
		if !Equal(have[i], want[i]) {
			return false
		}
	}
	return true
}

// LookupName parses and resolves a textual type name.
func (r *Registry) LookupName(s string) (*Descriptor, error) {
	n, err := ParseTypeName(s)
	if err != nil {
		return nil, err
	}
	return r.Resolve(n)
}

// Resolve turns a parsed type name into a descriptor. Anonymous shapes are
// constructed on demand and are not registered.
func (r *Registry) Resolve(n TypeName) (*Descriptor, error) {
	return r.ResolveWith(n, nil)
}

// ResolveWith is Resolve with an extra source of named types that is
// consulted before the registry. Ingestion uses it to refer to descriptors
// that are not registered yet.
func (r *Registry) ResolveWith(n TypeName, named func(TypeName) (*Descriptor, bool)) (*Descriptor, error) {
	switch n.Kind {
	case NamePath:
		if named != nil {
			if d, ok := named(n); ok {
				return d, nil
			}
		}
		args := make([]*Descriptor, len(n.Args))
		for i, a := range n.Args {
			d, err := r.ResolveWith(a, named)
			if err != nil {
				return nil, err
			}
			args[i] = d
		}
		return r.Lookup(n.Path, args...)

	case NameRef:
		if n.Elem.Kind == NameDyn {
			return r.TraitObjectOf(n.Elem.Path, n.Mutable), nil
		}
		elem, err := r.ResolveWith(*n.Elem, named)
		if err != nil {
			return nil, err
		}
		if elem.Kind == KindArray && elem.Unsized {
			return r.SliceOf(elem, n.Mutable), nil
		}
		return r.RefTo(elem, n.Mutable), nil

	case NamePointer:
		elem, err := r.ResolveWith(*n.Elem, named)
		if err != nil {
			return nil, err
		}
		return r.PointerTo(elem, n.Mutable), nil

	case NameArray:
		elem, err := r.ResolveWith(*n.Elem, named)
		if err != nil {
			return nil, err
		}
		return r.ArrayOf(elem, n.Len)

	case NameUnsized:
		elem, err := r.ResolveWith(*n.Elem, named)
		if err != nil {
			return nil, err
		}
		return r.UnsizedOf(elem), nil

	case NameTuple:
		if len(n.Elems) == 0 {
			return r.prims[PrimUnit], nil
		}
		elems, err := r.resolveAll(n.Elems, named)
		if err != nil {
			return nil, err
		}
		return r.TupleOf(elems...), nil

	case NameFn:
		params, err := r.resolveAll(n.Elems, named)
		if err != nil {
			return nil, err
		}
		var result *Descriptor
		if n.Result != nil {
			if result, err = r.ResolveWith(*n.Result, named); err != nil {
				return nil, err
			}
		}
		return r.FuncOf(params, result), nil

	case NameDyn:
		return nil, errors.TypeMismatch(errors.PhaseResolve, n.String(), "trait object must be behind a reference")
	}
	return nil, errors.Unsupported(errors.PhaseResolve, "type name "+n.String())
}

func (r *Registry) resolveAll(names []TypeName, named func(TypeName) (*Descriptor, bool)) ([]*Descriptor, error) {
	out := make([]*Descriptor, len(names))
	for i, n := range names {
		d, err := r.ResolveWith(n, named)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// Instantiations returns every registered instantiation of a generic path.
func (r *Registry) Instantiations(path string) []*Descriptor {
	return append([]*Descriptor(nil), r.byPath[strings.TrimPrefix(path, "::")]...)
}

// All returns every registered descriptor ordered by identity.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

// RefTo returns &elem or &mut elem.
func (r *Registry) RefTo(elem *Descriptor, mutable bool) *Descriptor {
	return &Descriptor{Kind: KindReference, Elem: elem, Mutable: mutable, Size: r.ptrSize, Align: r.ptrSize}
}

// PointerTo returns *const elem or *mut elem.
func (r *Registry) PointerTo(elem *Descriptor, mutable bool) *Descriptor {
	return &Descriptor{Kind: KindPointer, Elem: elem, Mutable: mutable, Size: r.ptrSize, Align: r.ptrSize}
}

// SliceOf returns the fat reference to elem. If elem is itself a dynamically
// sized array, the slice is over its element type.
func (r *Registry) SliceOf(elem *Descriptor, mutable bool) *Descriptor {
	text := false
	if elem.Kind == KindArray && elem.Unsized {
		text = elem.Text
		elem = elem.Elem
	}
	return &Descriptor{
		Kind:    KindSlice,
		Elem:    elem,
		Mutable: mutable,
		Text:    text,
		Size:    2 * r.ptrSize,
		Align:   r.ptrSize,
	}
}

// StrRef returns &str.
func (r *Registry) StrRef() *Descriptor {
	return r.SliceOf(r.str, false)
}

// ArrayOf returns [elem; n].
func (r *Registry) ArrayOf(elem *Descriptor, n uint64) (*Descriptor, error) {
	info, ok := layout.Array(layout.Member{Size: elem.Size, Align: elem.Align}, n)
	if !ok {
		return nil, errors.Overflow(errors.PhaseResolve, n, fmt.Sprintf("[%s; %d]", elem.Identity(), n))
	}
	return &Descriptor{Kind: KindArray, Elem: elem, Len: n, Size: info.Size, Align: info.Align}, nil
}

// UnsizedOf returns the dynamically sized [elem].
func (r *Registry) UnsizedOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindArray, Elem: elem, Unsized: true, Align: max(elem.Align, 1)}
}

// TupleOf returns (elems...) with a sequential layout.
func (r *Registry) TupleOf(elems ...*Descriptor) *Descriptor {
	if len(elems) == 0 {
		return r.prims[PrimUnit]
	}
	fields := make([]Field, len(elems))
	for i, e := range elems {
		fields[i] = Field{Name: fmt.Sprint(i), Type: e}
	}
	fields, size, align := Sequential(fields)
	return &Descriptor{Kind: KindTuple, Fields: fields, Size: size, Align: align}
}

// FuncOf returns the function pointer type fn(params) -> result.
func (r *Registry) FuncOf(params []*Descriptor, result *Descriptor) *Descriptor {
	if result == nil {
		result = r.prims[PrimUnit]
	}
	return &Descriptor{Kind: KindFunction, Params: params, Result: result, Size: r.ptrSize, Align: r.ptrSize}
}

// TraitObjectOf returns &dyn trait.
func (r *Registry) TraitObjectOf(trait string, mutable bool) *Descriptor {
	return &Descriptor{Kind: KindTraitObject, Trait: trait, Mutable: mutable, Size: 2 * r.ptrSize, Align: r.ptrSize}
}

// Sequential assigns declaration-order offsets to fields and returns the
// resulting size and alignment. The input slice is not modified.
func Sequential(fields []Field) ([]Field, uint64, uint64) {
	members := make([]layout.Member, len(fields))
	for i, f := range fields {
		members[i] = layout.Member{Size: f.Type.Size, Align: f.Type.Align}
	}
	info := layout.Record(members)
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Offset = info.Offsets[i]
		out[i] = f
	}
	return out, info.Size, info.Align
}

// Overlay places every field at offset 0, as in a union.
func Overlay(fields []Field) ([]Field, uint64, uint64) {
	members := make([]layout.Member, len(fields))
	for i, f := range fields {
		members[i] = layout.Member{Size: f.Type.Size, Align: f.Type.Align}
	}
	info := layout.Union(members)
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Offset = 0
		out[i] = f
	}
	return out, info.Size, info.Align
}
