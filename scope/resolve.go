package scope

import (
	"sort"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"go.uber.org/zap"
)

// Call narrows associated function lookup.
type Call struct {
	// Generics are explicit turbofish arguments.
	Generics []*types.Descriptor
	// ArgTypes are the argument types, used to infer the instantiation.
	// Nil entries match anything.
	ArgTypes []*types.Descriptor
	// Arity is the argument count, or -1 when unknown.
	Arity int
}

// AnyCall matches every candidate.
var AnyCall = Call{Arity: -1}

// Resolve resolves path from the evaluation point ctx.
func (t *Table) Resolve(ctx ID, path Path) (*Symbol, error) {
	if len(path.Segments) == 0 {
		return nil, errors.InvalidInput(errors.PhaseResolve, "empty path")
	}
	if _, ok := t.Scope(ctx); !ok {
		return nil, errors.NotFound(errors.PhaseResolve, "scope", path.String())
	}

	start, segs, err := t.anchor(ctx, path)
	if err != nil {
		return nil, err
	}

	// Self::item inside an impl.
	if start == NoScope && len(segs) > 0 && segs[0].Name == "Self" {
		impl, ok := t.Impl(ctx)
		if !ok {
			return nil, errors.NotFound(errors.PhaseResolve, "Self type", path.String())
		}
		if len(segs) == 1 {
			return t.typeSymbol(impl.SelfType)
		}
		if len(segs) != 2 {
			return nil, errors.NotFound(errors.PhaseResolve, "item", path.String())
		}
		return t.ResolveAssociated(impl.SelfType, segs[1].Name, Call{Arity: -1, Generics: segs[1].Generics})
	}

	if start == NoScope {
		start, err = t.lookupOutward(ctx, segs[0].Name)
		if err != nil {
			return nil, errors.NotFound(errors.PhaseResolve, "symbol", path.String())
		}
	}

	return t.walk(start, segs, path)
}

// anchor handles the leading ::, crate, self and super segments. It returns
// NoScope when the first remaining segment must be searched outward.
func (t *Table) anchor(ctx ID, path Path) (ID, []Segment, error) {
	segs := path.Segments
	if path.Absolute {
		return RootID, segs, nil
	}

	switch segs[0].Name {
	case "crate":
		c := t.Crate(ctx)
		if c == NoScope {
			return NoScope, nil, errors.NotFound(errors.PhaseResolve, "crate", path.String())
		}
		return c, segs[1:], nil

	case "self", "super":
		id := t.Module(ctx)
		if segs[0].Name == "self" {
			segs = segs[1:]
		}
		for len(segs) > 0 && segs[0].Name == "super" {
			if id == NoScope || t.scopes[id].Kind == KindCrate {
				return NoScope, nil, errors.New(errors.PhaseResolve, errors.KindNotFound).
					Value(path.String()).
					Detail("%s: too many super segments", path.String()).
					Build()
			}
			id = t.Module(t.scopes[id].Parent)
			segs = segs[1:]
		}
		if id == NoScope {
			return NoScope, nil, errors.NotFound(errors.PhaseResolve, "module", path.String())
		}
		return id, segs, nil
	}
	return NoScope, segs, nil
}

// lookupOutward finds the innermost scope at or above ctx that declares name
// as a symbol or child scope.
func (t *Table) lookupOutward(ctx ID, name string) (ID, error) {
	for id := ctx; id != NoScope; id = t.scopes[id].Parent {
		s := &t.scopes[id]
		if _, ok := s.symbols[name]; ok {
			if id != ctx {
				Logger().Debug("name found in enclosing scope",
					zap.String("name", name),
					zap.String("scope", s.Path))
			}
			return id, nil
		}
		if _, ok := s.children[name]; ok {
			return id, nil
		}
	}
	return NoScope, errors.NotFound(errors.PhaseResolve, "symbol", name)
}

// walk descends from start through all but the last segment, then selects
// the final symbol.
func (t *Table) walk(start ID, segs []Segment, path Path) (*Symbol, error) {
	if len(segs) == 0 {
		return nil, errors.NotFound(errors.PhaseResolve, "item", path.String())
	}

	id := start
	for i, seg := range segs[:len(segs)-1] {
		s := &t.scopes[id]

		if ids := s.symbols[seg.Name]; len(ids) > 0 && len(segs)-i == 2 {
			if typ, ok := t.pickType(ids, seg.Generics); ok {
				last := segs[len(segs)-1]
				return t.ResolveAssociated(typ, last.Name, Call{Arity: -1, Generics: last.Generics})
			}
		}

		next, ok := s.children[seg.Name]
		if !ok {
			return nil, errors.NotFound(errors.PhaseResolve, "symbol", path.String())
		}
		id = next
	}

	last := segs[len(segs)-1]
	return t.pick(t.scopes[id].symbols[last.Name], last.Generics, path.String())
}

// pickType returns the type symbol among ids matching generics.
func (t *Table) pickType(ids []SymbolID, generics []*types.Descriptor) (*types.Descriptor, bool) {
	var found *types.Descriptor
	for _, sid := range ids {
		s := &t.symbols[sid]
		if s.Kind != SymType {
			continue
		}
		if len(generics) > 0 && !sameGenerics(s.Generics, generics) {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = s.Type
	}
	return found, found != nil
}

// pick selects one symbol, filtering instantiations by explicit generics.
func (t *Table) pick(ids []SymbolID, generics []*types.Descriptor, name string) (*Symbol, error) {
	var matches []*Symbol
	for _, sid := range ids {
		s := &t.symbols[sid]
		if len(generics) > 0 && !sameGenerics(s.Generics, generics) {
			continue
		}
		matches = append(matches, s)
	}
	switch len(matches) {
	case 0:
		return nil, errors.NotFound(errors.PhaseResolve, "symbol", name)
	case 1:
		return matches[0], nil
	}
	return nil, errors.Ambiguous(errors.PhaseResolve, name, candidateNames(matches))
}

func (t *Table) typeSymbol(typ *types.Descriptor) (*Symbol, error) {
	for i := range t.symbols {
		s := &t.symbols[i]
		if s.Kind == SymType && types.Equal(s.Type, typ) {
			return s, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseResolve, "type", typ.Identity())
}

// ResolveType resolves path and requires the result to be a type.
func (t *Table) ResolveType(ctx ID, path Path) (*types.Descriptor, error) {
	s, err := t.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	if s.Kind != SymType {
		return nil, errors.TypeMismatch(errors.PhaseResolve, s.Path, "not a type")
	}
	return s.Type, nil
}

// ResolveMethod finds the method name callable on a receiver of type recv.
// References are stripped to reach the nominal type. Inherent methods are
// preferred; otherwise exactly one implemented trait may provide it.
func (t *Table) ResolveMethod(recv *types.Descriptor, name string) (*Symbol, error) {
	typ := recv.Nominal()
	if typ == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil receiver type")
	}

	if typ.Kind == types.KindTraitObject {
		return t.traitMethod(typ.Trait, name)
	}

	var inherent []*Symbol
	byTrait := make(map[string]*Symbol)
	for _, impl := range t.Impls(typ) {
		for _, sid := range impl.symbols[name] {
			s := &t.symbols[sid]
			if !s.IsMethod() {
				continue
			}
			if impl.Trait == "" {
				inherent = append(inherent, s)
			} else if _, seen := byTrait[impl.Trait]; !seen {
				byTrait[impl.Trait] = s
			}
		}
	}

	if len(inherent) == 1 {
		if len(byTrait) > 0 {
			Logger().Debug("inherent method hides trait methods",
				zap.String("type", typ.Identity()),
				zap.String("method", name),
				zap.Int("traits", len(byTrait)))
		}
		return inherent[0], nil
	}
	if len(inherent) > 1 {
		return nil, errors.Ambiguous(errors.PhaseResolve, typ.Identity()+"::"+name, candidateNames(inherent))
	}

	return fromTraits(byTrait, typ.Identity()+"::"+name)
}

func fromTraits(byTrait map[string]*Symbol, name string) (*Symbol, error) {
	switch len(byTrait) {
	case 0:
		return nil, errors.NotFound(errors.PhaseResolve, "method", name)
	case 1:
		for _, s := range byTrait {
			return s, nil
		}
	}
	traits := make([]string, 0, len(byTrait))
	for tr := range byTrait {
		traits = append(traits, tr)
	}
	sort.Strings(traits)
	return nil, errors.Ambiguous(errors.PhaseResolve, name, traits)
}

// traitMethod finds a method declared by the trait at path.
func (t *Table) traitMethod(trait, name string) (*Symbol, error) {
	id, err := t.ScopeOf(trait)
	if err != nil {
		return nil, err
	}
	for _, sid := range t.scopes[id].symbols[name] {
		s := &t.symbols[sid]
		if s.IsMethod() {
			return s, nil
		}
	}
	return nil, errors.NotFound(errors.PhaseResolve, "method", trait+"::"+name)
}

// ResolveAssociated finds the associated function name of typ. Inherent
// impls are searched before trait impls; candidates are narrowed by arity,
// explicit generics and then argument types.
func (t *Table) ResolveAssociated(typ *types.Descriptor, name string, call Call) (*Symbol, error) {
	if typ == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil type")
	}
	full := typ.Identity() + "::" + name

	var inherent []*Symbol
	traitCands := make(map[string][]*Symbol)
	for _, impl := range t.Impls(typ) {
		for _, sid := range impl.symbols[name] {
			s := &t.symbols[sid]
			if impl.Trait == "" {
				inherent = append(inherent, s)
			} else {
				traitCands[impl.Trait] = append(traitCands[impl.Trait], s)
			}
		}
	}

	if len(inherent) > 0 {
		narrowed := narrow(inherent, call)
		switch len(narrowed) {
		case 1:
			return narrowed[0], nil
		case 0:
			// Fall through to traits.
		default:
			return nil, errors.Ambiguous(errors.PhaseResolve, full, candidateNames(narrowed))
		}
	}

	byTrait := make(map[string]*Symbol)
	for trait, cands := range traitCands {
		narrowed := narrow(cands, call)
		switch len(narrowed) {
		case 0:
		case 1:
			byTrait[trait] = narrowed[0]
		default:
			return nil, errors.Ambiguous(errors.PhaseResolve, full, candidateNames(narrowed))
		}
	}
	return fromTraits(byTrait, full)
}

func narrow(cands []*Symbol, call Call) []*Symbol {
	out := cands
	if call.Arity >= 0 {
		out = filter(out, func(s *Symbol) bool { return s.Arity() == call.Arity })
	}
	if len(call.Generics) > 0 {
		out = filter(out, func(s *Symbol) bool { return sameGenerics(s.Generics, call.Generics) })
	}
	if len(out) > 1 && len(call.ArgTypes) > 0 {
		inferred := filter(out, func(s *Symbol) bool { return paramsMatch(s, call.ArgTypes) })
		if len(inferred) > 0 {
			out = inferred
		}
	}
	return out
}

func filter(in []*Symbol, keep func(*Symbol) bool) []*Symbol {
	var out []*Symbol
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func paramsMatch(s *Symbol, args []*types.Descriptor) bool {
	if s.Type == nil || len(s.Type.Params) != len(args) {
		return false
	}
	for i, a := range args {
		if a != nil && !types.Equal(s.Type.Params[i], a) {
			return false
		}
	}
	return true
}

func candidateNames(syms []*Symbol) []string {
	out := make([]string, len(syms))
	for i, s := range syms {
		out[i] = s.QualifiedName()
	}
	sort.Strings(out)
	return out
}

// Methods returns the method names callable on typ, sorted.
func (t *Table) Methods(typ *types.Descriptor) []string {
	seen := make(map[string]struct{})
	for _, impl := range t.Impls(typ.Nominal()) {
		for name, ids := range impl.symbols {
			for _, sid := range ids {
				if t.symbols[sid].IsMethod() {
					seen[name] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
