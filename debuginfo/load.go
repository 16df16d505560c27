package debuginfo

import (
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SupportedFormat is the range of record format versions Load accepts.
const SupportedFormat = ">= 1.0.0, < 2.0.0"

var supported = func() *semver.Constraints {
	c, err := semver.NewConstraint(SupportedFormat)
	if err != nil {
		panic(err)
	}
	return c
}()

// Image is one loaded program image. Types and Scopes are sealed.
// Generation is zero until the image is installed in an inspector.
type Image struct {
	Types   *types.Registry
	Scopes  *scope.Table
	Version *semver.Version
	// Memory holds the file's memory regions, nil when it has none.
	Memory     *debugeval.Snapshot
	Frames     map[string]*eval.StaticFrame
	Source     string
	Generation uint64
}

// Frame returns the named evaluation point.
func (img *Image) Frame(name string) (eval.Frame, bool) {
	f, ok := img.Frames[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// FrameNames returns the frame names in sorted order.
func (img *Image) FrameNames() []string {
	out := make([]string, 0, len(img.Frames))
	for name := range img.Frames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadFile loads the records in path.
func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, "open "+path, err)
	}
	defer f.Close()

	img, err := Load(f)
	if err != nil {
		return nil, err
	}
	img.Source = path
	return img, nil
}

// Load reads one YAML record document and builds its image.
func Load(r io.Reader) (*Image, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.Load("empty debug info", nil)
		}
		return nil, errors.Load("parse debug info", err)
	}

	if f.Format == "" {
		return nil, errors.Load("missing format version", nil)
	}
	v, err := semver.NewVersion(f.Format)
	if err != nil {
		return nil, errors.Load("invalid format version "+strconv.Quote(f.Format), err)
	}
	if !supported.Check(v) {
		return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
			Value(f.Format).
			Detail("format version %s is outside %s", v, SupportedFormat).
			Build()
	}

	l := newLoader(f.PointerSize)
	img, err := l.build(&f)
	if err != nil {
		return nil, err
	}
	img.Version = v

	Logger().Debug("debug info loaded",
		zap.String("format", v.String()),
		zap.Int("types", img.Types.Len()),
		zap.Int("symbols", img.Scopes.NumSymbols()),
		zap.Int("frames", len(img.Frames)))
	return img, nil
}

const (
	todo = iota
	filling
	done
)

type loader struct {
	reg     *types.Registry
	b       *scope.Builder
	named   map[string]*types.Descriptor
	records map[*types.Descriptor]*typeRecord
	state   map[*types.Descriptor]int
	fns     map[string]bool
	scopes  map[string]scope.ID
	order   []*types.Descriptor
	// filled is false while generic arguments are resolved; shells are
	// returned as they are.
	filled bool
	err    error
}

func newLoader(ptrSize uint64) *loader {
	return &loader{
		reg:     types.NewRegistry(ptrSize),
		b:       scope.NewBuilder(),
		named:   make(map[string]*types.Descriptor),
		records: make(map[*types.Descriptor]*typeRecord),
		state:   make(map[*types.Descriptor]int),
		fns:     make(map[string]bool),
		scopes:  make(map[string]scope.ID),
	}
}

// lookup serves record types to the registry's resolver, completing them
// first so that their sizes are known.
func (l *loader) lookup(n types.TypeName) (*types.Descriptor, bool) {
	d, ok := l.named[n.String()]
	if !ok {
		return nil, false
	}
	if l.filled && l.state[d] == todo {
		if err := l.fill(d); err != nil && l.err == nil {
			l.err = err
		}
	}
	return d, true
}

func (l *loader) typ(s string) (*types.Descriptor, error) {
	n, err := types.ParseTypeName(s)
	if err != nil {
		return nil, errors.Load("type "+strconv.Quote(s), err)
	}
	d, err := l.reg.ResolveWith(n, l.lookup)
	if l.err != nil {
		err, l.err = l.err, nil
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (l *loader) typeList(names []string) ([]*types.Descriptor, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]*types.Descriptor, len(names))
	for i, s := range names {
		d, err := l.typ(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (l *loader) build(f *file) (*Image, error) {
	if err := l.declareTypes(f.Types); err != nil {
		return nil, err
	}
	for _, d := range l.order {
		if err := l.fill(d); err != nil {
			return nil, err
		}
	}
	for _, d := range l.order {
		if err := l.reg.Add(d); err != nil {
			return nil, err
		}
	}
	l.reg.Seal()

	if err := l.defineScopes(f); err != nil {
		return nil, err
	}
	frames, err := l.frames(f.Frames)
	if err != nil {
		return nil, err
	}
	img := &Image{Types: l.reg, Scopes: l.b.Build(), Frames: frames}

	if len(f.Memory) > 0 {
		img.Memory = &debugeval.Snapshot{}
		for _, rr := range f.Memory {
			data, err := hex.DecodeString(strings.Join(strings.Fields(rr.Data), ""))
			if err != nil {
				return nil, errors.Load(fmt.Sprintf("memory at 0x%x", rr.Address), err)
			}
			if err := img.Memory.Map(rr.Address, data); err != nil {
				return nil, errors.Load("memory", err)
			}
		}
	}
	return img, nil
}

// declareTypes creates an empty descriptor for every type record and
// resolves generic arguments, so that records can refer to each other.
func (l *loader) declareTypes(recs []typeRecord) error {
	names := make([]types.TypeName, len(recs))
	for i := range recs {
		rec := &recs[i]
		n, err := types.ParseTypeName(rec.Name)
		if err != nil {
			return errors.Load("type record "+strconv.Quote(rec.Name), err)
		}
		if n.Kind != types.NamePath {
			return errors.Load("type record "+strconv.Quote(rec.Name)+" is not a named type", nil)
		}
		kind, ok := types.ParseKind(rec.Kind)
		if !ok {
			return errors.Load(fmt.Sprintf("type %s: unknown kind %q", rec.Name, rec.Kind), nil)
		}
		switch kind {
		case types.KindStruct, types.KindTupleStruct, types.KindEnum, types.KindUnion, types.KindClosure:
		default:
			return errors.New(errors.PhaseLoad, errors.KindUnsupported).
				Type(rec.Name).
				Detail("records describe named types only, not %s", kind).
				Build()
		}

		key := n.String()
		if _, dup := l.named[key]; dup {
			return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Type(key).
				Detail("duplicate type record").
				Build()
		}
		d := &types.Descriptor{Kind: kind, Path: n.Path, Name: rec.Display, Body: rec.Body}
		l.named[key] = d
		l.records[d] = rec
		l.order = append(l.order, d)
		names[i] = n
	}

	for i, d := range l.order {
		args := make([]*types.Descriptor, len(names[i].Args))
		for j, a := range names[i].Args {
			ad, err := l.reg.ResolveWith(a, l.lookup)
			if err != nil {
				return err
			}
			args[j] = ad
		}
		if len(args) > 0 {
			d.Args = args
		}
	}
	l.filled = true
	return nil
}

func (l *loader) fields(recs []fieldRecord) ([]types.Field, error) {
	out := make([]types.Field, len(recs))
	for i, fr := range recs {
		t, err := l.typ(fr.Type)
		if err != nil {
			return nil, err
		}
		name := fr.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		out[i] = types.Field{Name: name, Type: t, Offset: fr.Offset}
	}
	return out, nil
}

// fill completes a declared descriptor from its record. A descriptor being
// filled is handed out as is, which lets a type point at itself.
func (l *loader) fill(d *types.Descriptor) error {
	if l.state[d] != todo {
		return nil
	}
	l.state[d] = filling
	rec := l.records[d]

	fs, err := l.fields(rec.Fields)
	if err != nil {
		return err
	}

	if d.Kind == types.KindEnum {
		if err := l.fillEnum(d, rec); err != nil {
			return err
		}
	} else {
		d.Fields = fs
		switch {
		case rec.Size == nil && d.Kind == types.KindUnion:
			d.Fields, d.Size, d.Align = types.Overlay(fs)
		case rec.Size == nil:
			d.Fields, d.Size, d.Align = types.Sequential(fs)
		default:
			d.Size, d.Align = *rec.Size, rec.Align
			if d.Align == 0 {
				d.Align = maxAlign(fs)
			}
		}
	}
	l.state[d] = done
	return nil
}

func maxAlign(fs []types.Field) uint64 {
	align := uint64(1)
	for _, f := range fs {
		align = max(align, f.Type.Align)
	}
	return align
}

func (l *loader) fillEnum(d *types.Descriptor, rec *typeRecord) error {
	if rec.Size == nil {
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Type(rec.Name).
			Detail("enum record needs a size").
			Build()
	}
	d.Size, d.Align = *rec.Size, rec.Align

	var all []types.Field
	d.Variants = make([]types.Variant, len(rec.Variants))
	for i, vr := range rec.Variants {
		fs, err := l.fields(vr.Fields)
		if err != nil {
			return err
		}
		d.Variants[i] = types.Variant{Name: vr.Name, Fields: fs, Discriminant: vr.Discriminant, Tuple: vr.Tuple}
		all = append(all, fs...)
	}
	if d.Align == 0 {
		d.Align = maxAlign(all)
	}

	s := rec.Strategy
	switch {
	case s == nil && len(d.Variants) == 0:
		d.Strategy = types.Empty()
	case s == nil && len(d.Variants) == 1:
		d.Strategy = types.Single()
	case s == nil:
		return errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Type(rec.Name).
			Detail("enum with %d variants needs a strategy", len(d.Variants)).
			Build()
	default:
		st, err := strategy(rec.Name, s)
		if err != nil {
			return err
		}
		d.Strategy = st
	}
	return nil
}

func strategy(name string, s *strategyRecord) (types.Strategy, error) {
	switch s.Kind {
	case "direct":
		return types.Direct(s.Offset, s.Size, s.Signed), nil
	case "niche":
		niches := make([]types.Niche, 0, len(s.Niches))
		for _, n := range s.Niches {
			niches = append(niches, types.Niche{Value: n.Value, Variant: n.Variant})
		}
		if s.Range != nil {
			niches = append(niches, types.NicheRange(s.Range.Start, s.Range.First, s.Range.Last)...)
		}
		return types.NicheFill(s.Offset, s.Size, s.DataVariant, niches...), nil
	case "single":
		return types.Single(), nil
	case "empty":
		return types.Empty(), nil
	}
	return types.Strategy{}, errors.Load(fmt.Sprintf("type %s: unknown strategy %q", name, s.Kind), nil)
}

// split returns the parent scope path and last segment of an item path.
func split(path string) (string, string) {
	i := strings.LastIndex(path, "::")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+2:]
}

// scopeFor returns the scope for a path, creating crates, modules and
// function bodies along the way. Segments naming a function record become
// function scopes.
func (l *loader) scopeFor(path string) scope.ID {
	if path == "" {
		return scope.RootID
	}
	if id, ok := l.scopes[path]; ok {
		return id
	}
	parent, name := split(path)
	var id scope.ID
	switch {
	case parent == "":
		id = l.b.Crate(name)
	case l.fns[path]:
		id = l.b.Function(l.scopeFor(parent), name)
	default:
		id = l.b.Module(l.scopeFor(parent), name)
	}
	l.scopes[path] = id
	return id
}

func receiver(s string) (scope.Receiver, error) {
	switch s {
	case "", "none":
		return scope.RecvNone, nil
	case "self", "value":
		return scope.RecvValue, nil
	case "&self", "ref":
		return scope.RecvRef, nil
	case "&mut self", "ref_mut":
		return scope.RecvRefMut, nil
	}
	return 0, errors.Load("unknown receiver "+strconv.Quote(s), nil)
}

func (l *loader) method(id scope.ID, m methodRecord) error {
	sig, err := l.typ(m.Type)
	if err != nil {
		return err
	}
	generics, err := l.typeList(m.Generics)
	if err != nil {
		return err
	}
	recv, err := receiver(m.Receiver)
	if err != nil {
		return err
	}
	_, err = l.b.Define(id, scope.Symbol{
		Name:     m.Name,
		Kind:     scope.SymFunction,
		Type:     sig,
		Receiver: recv,
		Linkage:  m.Linkage,
		Generics: generics,
		Address:  m.Address,
	})
	return err
}

func (l *loader) defineScopes(f *file) error {
	for i := range f.Functions {
		fr := &f.Functions[i]
		if fr.Path == "" && fr.Linkage != "" {
			fr.Path = scope.Demangle(fr.Linkage)
			if fr.Path == fr.Linkage && strings.HasPrefix(fr.Linkage, "_ZN") {
				return errors.Load(fmt.Sprintf("function linkage %q cannot be demangled", fr.Linkage), nil)
			}
		}
		l.fns[fr.Path] = true
	}
	// Evaluation points sit inside function bodies.
	for _, fr := range f.Frames {
		if strings.Contains(fr.Scope, "::") {
			l.fns[fr.Scope] = true
		}
	}

	for _, d := range l.order {
		if d.Kind == types.KindClosure {
			continue
		}
		parent, _ := split(d.Path)
		if _, err := l.b.DefineType(l.scopeFor(parent), d); err != nil {
			return err
		}
	}

	for _, fr := range f.Functions {
		sig, err := l.typ(fr.Type)
		if err != nil {
			return err
		}
		generics, err := l.typeList(fr.Generics)
		if err != nil {
			return err
		}
		parent, name := split(fr.Path)
		if _, err := l.b.Define(l.scopeFor(parent), scope.Symbol{
			Name:     name,
			Kind:     scope.SymFunction,
			Type:     sig,
			Linkage:  fr.Linkage,
			Generics: generics,
			Address:  fr.Address,
		}); err != nil {
			return err
		}
	}

	for _, sr := range f.Statics {
		t, err := l.typ(sr.Type)
		if err != nil {
			return err
		}
		parent, name := split(sr.Path)
		if _, err := l.b.Define(l.scopeFor(parent), scope.Symbol{
			Name:    name,
			Kind:    scope.SymStatic,
			Type:    t,
			Address: sr.Address,
		}); err != nil {
			return err
		}
	}

	for _, tr := range f.Traits {
		parent, name := split(tr.Path)
		id := l.b.Trait(l.scopeFor(parent), name)
		for _, m := range tr.Methods {
			if err := l.method(id, m); err != nil {
				return err
			}
		}
	}

	for _, ir := range f.Impls {
		self, err := l.typ(ir.Self)
		if err != nil {
			return err
		}
		where := ir.Scope
		if where == "" {
			where, _ = split(self.Path)
		}
		id := l.b.Impl(l.scopeFor(where), self, ir.Trait)
		for _, m := range ir.Methods {
			if err := l.method(id, m); err != nil {
				return err
			}
		}
	}

	for _, vr := range f.VTables {
		t, err := l.typ(vr.Type)
		if err != nil {
			return err
		}
		l.b.VTable(vr.Address, t, vr.Trait)
	}
	return nil
}

func (l *loader) frames(recs []frameRecord) (map[string]*eval.StaticFrame, error) {
	out := make(map[string]*eval.StaticFrame, len(recs))
	for _, fr := range recs {
		if _, dup := out[fr.Name]; dup {
			return nil, errors.Load("duplicate frame "+strconv.Quote(fr.Name), nil)
		}
		locals := make(map[string]eval.Local, len(fr.Locals))
		for _, lr := range fr.Locals {
			t, err := l.typ(lr.Type)
			if err != nil {
				return nil, err
			}
			locals[lr.Name] = eval.Local{Type: t, Addr: lr.Address}
		}
		out[fr.Name] = &eval.StaticFrame{ID: l.scopeFor(fr.Scope), Locals: locals}
	}
	return out, nil
}
