package scope

import (
	"strings"

	"github.com/wippyai/debug-eval/types"
)

// ID addresses a scope in a Table.
type ID int32

// RootID is the top scope. NoScope marks an absent parent.
const (
	RootID  ID = 0
	NoScope ID = -1
)

// Kind is the kind of a scope.
type Kind uint8

const (
	KindRoot Kind = iota
	KindCrate
	KindModule
	KindFunction
	KindBlock
	KindImpl
	KindTrait
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindCrate:
		return "crate"
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindBlock:
		return "block"
	case KindImpl:
		return "impl"
	case KindTrait:
		return "trait"
	}
	return "unknown"
}

// isModule reports whether path resolution treats the scope as a module.
func (k Kind) isModule() bool {
	return k == KindCrate || k == KindModule
}

// Scope is one node of the hierarchy.
type Scope struct {
	// SelfType is the implementing type of an impl scope.
	SelfType *types.Descriptor
	children map[string]ID
	symbols  map[string][]SymbolID
	Name     string
	Path     string
	// Trait is the implemented trait of an impl scope, empty for inherent impls.
	Trait  string
	ID     ID
	Parent ID
	Kind   Kind
}

// SymbolID addresses a symbol in a Table.
type SymbolID int32

// SymbolKind is the kind of a named item.
type SymbolKind uint8

const (
	SymType SymbolKind = iota
	SymFunction
	SymStatic
	SymTraitMethod
)

func (k SymbolKind) String() string {
	switch k {
	case SymType:
		return "type"
	case SymFunction:
		return "function"
	case SymStatic:
		return "static"
	case SymTraitMethod:
		return "trait_method"
	}
	return "unknown"
}

// Receiver is how a method takes self.
type Receiver uint8

const (
	RecvNone Receiver = iota
	RecvValue
	RecvRef
	RecvRefMut
)

func (r Receiver) String() string {
	switch r {
	case RecvValue:
		return "self"
	case RecvRef:
		return "&self"
	case RecvRefMut:
		return "&mut self"
	}
	return "none"
}

// Symbol is a named item. For functions Type is the signature, including the
// self parameter of methods. For statics and types it is the item's type.
type Symbol struct {
	Type     *types.Descriptor
	SelfType *types.Descriptor
	Path     string
	Name     string
	Trait    string
	Linkage  string
	Generics []*types.Descriptor
	Address  uint64
	ID       SymbolID
	Scope    ID
	Kind     SymbolKind
	Receiver Receiver
}

// IsMethod reports whether the symbol takes a self receiver.
func (s *Symbol) IsMethod() bool {
	return s.Receiver != RecvNone
}

// Arity returns the number of parameters of a function symbol.
func (s *Symbol) Arity() int {
	if s.Type == nil || s.Type.Kind != types.KindFunction {
		return 0
	}
	return len(s.Type.Params)
}

// QualifiedName returns the path with explicit generic arguments.
func (s *Symbol) QualifiedName() string {
	if len(s.Generics) == 0 {
		return s.Path
	}
	ids := make([]string, len(s.Generics))
	for i, g := range s.Generics {
		ids[i] = g.Identity()
	}
	return s.Path + "::<" + strings.Join(ids, ", ") + ">"
}

// VTable records the concrete type behind a trait object vtable.
type VTable struct {
	Type    *types.Descriptor
	Trait   string
	Address uint64
}

// Segment is one element of a path with optional generic arguments.
type Segment struct {
	Name     string
	Generics []*types.Descriptor
}

// Path is a :: separated name.
type Path struct {
	Segments []Segment
	Absolute bool
}

// ParsePath splits a textual path. Generic arguments are not parsed.
func ParsePath(s string) Path {
	var p Path
	if strings.HasPrefix(s, "::") {
		p.Absolute = true
		s = s[2:]
	}
	if s == "" {
		return p
	}
	for _, part := range strings.Split(s, "::") {
		p.Segments = append(p.Segments, Segment{Name: strings.TrimSpace(part)})
	}
	return p
}

// String renders the path without generic arguments.
func (p Path) String() string {
	names := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		names[i] = s.Name
		if len(s.Generics) > 0 {
			ids := make([]string, len(s.Generics))
			for j, g := range s.Generics {
				ids[j] = g.Identity()
			}
			names[i] += "::<" + strings.Join(ids, ", ") + ">"
		}
	}
	out := strings.Join(names, "::")
	if p.Absolute {
		return "::" + out
	}
	return out
}

// Prefix returns the path without its last segment.
func (p Path) Prefix() Path {
	if len(p.Segments) == 0 {
		return p
	}
	return Path{Absolute: p.Absolute, Segments: p.Segments[:len(p.Segments)-1]}
}

// Last returns the final segment.
func (p Path) Last() Segment {
	if len(p.Segments) == 0 {
		return Segment{}
	}
	return p.Segments[len(p.Segments)-1]
}
