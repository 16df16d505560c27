package scope

import (
	"sort"

	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/types"
)

// Table is the frozen scope hierarchy of one program image.
// Returned *Scope and *Symbol values must not be modified.
type Table struct {
	vtables map[uint64]VTable
	impls   map[string][]ID
	scopes  []Scope
	symbols []Symbol
	byAddr  []SymbolID
}

// Scope returns the scope with the given ID.
func (t *Table) Scope(id ID) (*Scope, bool) {
	if id < 0 || int(id) >= len(t.scopes) {
		return nil, false
	}
	return &t.scopes[id], true
}

// Symbol returns the symbol with the given ID.
func (t *Table) Symbol(id SymbolID) (*Symbol, bool) {
	if id < 0 || int(id) >= len(t.symbols) {
		return nil, false
	}
	return &t.symbols[id], true
}

// NumScopes returns the number of scopes including the top scope.
func (t *Table) NumScopes() int { return len(t.scopes) }

// NumSymbols returns the number of symbols.
func (t *Table) NumSymbols() int { return len(t.symbols) }

// Children returns the child scope names of id in sorted order.
func (t *Table) Children(id ID) []string {
	s, ok := t.Scope(id)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.children))
	for name := range s.children {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Names returns the symbol names visible directly in id, sorted.
func (t *Table) Names(id ID) []string {
	s, ok := t.Scope(id)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.symbols))
	for name := range s.symbols {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Local returns the symbols named name declared directly in id.
func (t *Table) Local(id ID, name string) []*Symbol {
	s, ok := t.Scope(id)
	if !ok {
		return nil
	}
	ids := s.symbols[name]
	out := make([]*Symbol, len(ids))
	for i, sid := range ids {
		out[i] = &t.symbols[sid]
	}
	return out
}

// ScopeOf returns the scope at an absolute path such as "demo::a::b".
func (t *Table) ScopeOf(path string) (ID, error) {
	p := ParsePath(path)
	id := RootID
	for _, seg := range p.Segments {
		next, ok := t.scopes[id].children[seg.Name]
		if !ok {
			return NoScope, errors.NotFound(errors.PhaseResolve, "scope", path)
		}
		id = next
	}
	return id, nil
}

// Module returns the nearest crate or module enclosing id, including id.
func (t *Table) Module(id ID) ID {
	for id != NoScope {
		s := &t.scopes[id]
		if s.Kind.isModule() {
			return id
		}
		id = s.Parent
	}
	return NoScope
}

// Crate returns the crate enclosing id.
func (t *Table) Crate(id ID) ID {
	for id != NoScope {
		s := &t.scopes[id]
		if s.Kind == KindCrate {
			return id
		}
		id = s.Parent
	}
	return NoScope
}

// Impl returns the nearest impl scope enclosing id, including id.
func (t *Table) Impl(id ID) (*Scope, bool) {
	for id != NoScope {
		s := &t.scopes[id]
		switch s.Kind {
		case KindImpl:
			return s, true
		case KindCrate, KindModule:
			return nil, false
		}
		id = s.Parent
	}
	return nil, false
}

// SymbolAt returns the function whose entry address is addr.
func (t *Table) SymbolAt(addr uint64) (*Symbol, bool) {
	i := sort.Search(len(t.byAddr), func(i int) bool {
		return t.symbols[t.byAddr[i]].Address >= addr
	})
	if i < len(t.byAddr) && t.symbols[t.byAddr[i]].Address == addr {
		return &t.symbols[t.byAddr[i]], true
	}
	return nil, false
}

// Symbolize implements decoder.Symbolizer.
func (t *Table) Symbolize(addr uint64) (string, int, bool) {
	s, ok := t.SymbolAt(addr)
	if !ok {
		return "", -1, false
	}
	return s.QualifiedName(), int(s.ID), true
}

// VTable returns the concrete type behind a trait object vtable.
func (t *Table) VTable(addr uint64) (VTable, bool) {
	v, ok := t.vtables[addr]
	return v, ok
}

// Impls returns the impl scopes of a type, inherent impls first.
func (t *Table) Impls(typ *types.Descriptor) []*Scope {
	ids := t.impls[typ.Identity()]
	out := make([]*Scope, 0, len(ids))
	for _, id := range ids {
		if t.scopes[id].Trait == "" {
			out = append(out, &t.scopes[id])
		}
	}
	for _, id := range ids {
		if t.scopes[id].Trait != "" {
			out = append(out, &t.scopes[id])
		}
	}
	return out
}
