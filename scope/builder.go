package scope

import (
	"sort"
	"strconv"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
	"go.uber.org/zap"
)

// Builder assembles a Table. It is not safe for concurrent use.
type Builder struct {
	scopes  []Scope
	symbols []Symbol
	vtables map[uint64]VTable
	impls   map[string][]ID
	blocks  int
	built   bool
}

// NewBuilder creates a builder holding only the top scope.
func NewBuilder() *Builder {
	b := &Builder{
		vtables: make(map[uint64]VTable),
		impls:   make(map[string][]ID),
	}
	b.scopes = append(b.scopes, Scope{
		ID:       RootID,
		Parent:   NoScope,
		Kind:     KindRoot,
		children: make(map[string]ID),
		symbols:  make(map[string][]SymbolID),
	})
	return b
}

func (b *Builder) child(parent ID, name string, kind Kind) ID {
	p := &b.scopes[parent]
	if id, ok := p.children[name]; ok {
		return id
	}

	path := name
	if p.Path != "" {
		path = p.Path + "::" + name
	}
	id := ID(len(b.scopes))
	b.scopes = append(b.scopes, Scope{
		ID:       id,
		Parent:   parent,
		Name:     name,
		Path:     path,
		Kind:     kind,
		children: make(map[string]ID),
		symbols:  make(map[string][]SymbolID),
	})
	// b.scopes may have been reallocated.
	b.scopes[parent].children[name] = id
	return id
}

// Crate returns the scope of the named crate, creating it if needed.
func (b *Builder) Crate(name string) ID {
	return b.child(RootID, name, KindCrate)
}

// Module returns the named child module of parent, creating it if needed.
func (b *Builder) Module(parent ID, name string) ID {
	return b.child(parent, name, KindModule)
}

// ModulePath creates the module chain for a path such as "demo::a::b",
// whose first segment is the crate.
func (b *Builder) ModulePath(path string) ID {
	p := ParsePath(path)
	if len(p.Segments) == 0 {
		return RootID
	}
	id := b.Crate(p.Segments[0].Name)
	for _, seg := range p.Segments[1:] {
		id = b.Module(id, seg.Name)
	}
	return id
}

// Function returns the body scope of the named function inside parent.
func (b *Builder) Function(parent ID, name string) ID {
	return b.child(parent, name, KindFunction)
}

// Block creates an anonymous lexical block inside parent.
func (b *Builder) Block(parent ID) ID {
	b.blocks++
	return b.child(parent, "{block#"+strconv.Itoa(b.blocks)+"}", KindBlock)
}

// Trait returns the named trait scope inside parent.
func (b *Builder) Trait(parent ID, name string) ID {
	return b.child(parent, name, KindTrait)
}

// Impl creates an impl block for self inside parent. Trait is the
// implemented trait path, empty for an inherent impl.
func (b *Builder) Impl(parent ID, self *types.Descriptor, trait string) ID {
	name := "<impl " + self.Identity() + ">"
	if trait != "" {
		name = "<impl " + trait + " for " + self.Identity() + ">"
	}
	id := b.child(parent, name, KindImpl)
	s := &b.scopes[id]
	if s.SelfType == nil {
		s.SelfType = self
		s.Trait = trait
		key := self.Identity()
		b.impls[key] = append(b.impls[key], id)
	}
	return id
}

// Define adds a symbol to scope. Path defaults to the scope path plus the
// name, or Type::name and <Type as Trait>::name inside impls; Name defaults
// to the demangled last segment of Linkage. Impl members inherit SelfType
// and Trait from the impl.
func (b *Builder) Define(scope ID, sym Symbol) (SymbolID, error) {
	if b.built {
		return 0, errors.InvalidInput(errors.PhaseLoad, "scope table already built")
	}
	if int(scope) < 0 || int(scope) >= len(b.scopes) {
		return 0, errors.NotFound(errors.PhaseLoad, "scope", strconv.Itoa(int(scope)))
	}
	s := &b.scopes[scope]

	if sym.Name == "" && sym.Linkage != "" {
		p := ParsePath(Demangle(sym.Linkage))
		sym.Name = p.Last().Name
	}
	if sym.Name == "" {
		return 0, errors.InvalidInput(errors.PhaseLoad, "symbol without name")
	}
	if sym.Path == "" {
		switch {
		case s.Kind == KindImpl && s.Trait != "":
			sym.Path = "<" + s.SelfType.Identity() + " as " + s.Trait + ">::" + sym.Name
		case s.Kind == KindImpl:
			sym.Path = s.SelfType.Identity() + "::" + sym.Name
		case s.Path != "":
			sym.Path = s.Path + "::" + sym.Name
		default:
			sym.Path = sym.Name
		}
	}
	if s.Kind == KindImpl {
		if sym.SelfType == nil {
			sym.SelfType = s.SelfType
		}
		if sym.Trait == "" {
			sym.Trait = s.Trait
		}
	}
	if s.Kind == KindTrait && sym.Kind == SymFunction {
		sym.Kind = SymTraitMethod
		if sym.Trait == "" {
			sym.Trait = s.Path
		}
	}

	for _, existing := range s.symbols[sym.Name] {
		if sameGenerics(b.symbols[existing].Generics, sym.Generics) && b.symbols[existing].Kind == sym.Kind {
			return 0, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
				Detail("duplicate symbol %s", sym.QualifiedName()).
				Build()
		}
	}

	sym.ID = SymbolID(len(b.symbols))
	sym.Scope = scope
	b.symbols = append(b.symbols, sym)
	s.symbols[sym.Name] = append(s.symbols[sym.Name], sym.ID)
	return sym.ID, nil
}

// DefineType is Define for a type symbol named after the descriptor's last
// path segment.
func (b *Builder) DefineType(scope ID, typ *types.Descriptor) (SymbolID, error) {
	p := ParsePath(typ.Path)
	return b.Define(scope, Symbol{
		Kind:     SymType,
		Name:     p.Last().Name,
		Path:     typ.Path,
		Type:     typ,
		Generics: typ.Args,
	})
}

// VTable records that the vtable at addr belongs to typ's impl of trait.
func (b *Builder) VTable(addr uint64, typ *types.Descriptor, trait string) {
	b.vtables[addr] = VTable{Address: addr, Type: typ, Trait: trait}
}

// Build freezes the builder into a Table.
func (b *Builder) Build() *Table {
	b.built = true

	var funcs []SymbolID
	for _, s := range b.symbols {
		if (s.Kind == SymFunction || s.Kind == SymTraitMethod) && s.Address != 0 {
			funcs = append(funcs, s.ID)
		}
	}
	sort.SliceStable(funcs, func(i, j int) bool {
		return b.symbols[funcs[i]].Address < b.symbols[funcs[j]].Address
	})

	t := &Table{
		scopes:  b.scopes,
		symbols: b.symbols,
		vtables: b.vtables,
		impls:   b.impls,
		byAddr:  funcs,
	}
	Logger().Debug("scope table built",
		zap.Int("scopes", len(t.scopes)),
		zap.Int("symbols", len(t.symbols)),
		zap.Int("vtables", len(t.vtables)))
	return t
}

func sameGenerics(a, b []*types.Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
