package eval

import (
	"context"
	"fmt"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/decoder"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval/internal/ast"
	"github.com/wippyai/debug-eval/eval/internal/parser"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
	"go.uber.org/zap"
)

// Local is a variable visible at the evaluation point. Value is set for
// locals that do not live in memory; otherwise Type is loaded from Addr.
type Local struct {
	Type  *types.Descriptor
	Value *value.Value
	Addr  uint64
}

// Frame is the evaluation point: its lexical scope and its locals.
type Frame interface {
	Scope() scope.ID
	Local(name string) (Local, bool)
}

// StaticFrame is a Frame over a fixed set of locals.
type StaticFrame struct {
	Locals map[string]Local
	ID     scope.ID
}

func (f *StaticFrame) Scope() scope.ID { return f.ID }

func (f *StaticFrame) Local(name string) (Local, bool) {
	l, ok := f.Locals[name]
	return l, ok
}

// Invoker runs a compiled function in the target.
type Invoker interface {
	Invoke(ctx context.Context, fn *scope.Symbol, args []*value.Value) (*value.Value, error)
}

// InvokerFunc adapts a function to Invoker.
type InvokerFunc func(ctx context.Context, fn *scope.Symbol, args []*value.Value) (*value.Value, error)

func (f InvokerFunc) Invoke(ctx context.Context, fn *scope.Symbol, args []*value.Value) (*value.Value, error) {
	return f(ctx, fn, args)
}

// Evaluator evaluates expressions over one program image. It is safe for
// concurrent use once constructed.
type Evaluator struct {
	reg        *types.Registry
	table      *scope.Table
	dec        *decoder.Decoder
	mem        debugeval.Memory
	invoker    Invoker
	generation uint64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithInvoker enables calls into target code.
func WithInvoker(inv Invoker) Option {
	return func(e *Evaluator) { e.invoker = inv }
}

// WithGeneration stamps decoded values with an image generation.
func WithGeneration(gen uint64) Option {
	return func(e *Evaluator) { e.generation = gen }
}

// New creates an evaluator. A nil table resolves no names; a nil mem fails
// every read.
func New(reg *types.Registry, table *scope.Table, mem debugeval.Memory, opts ...Option) *Evaluator {
	if table == nil {
		table = scope.NewBuilder().Build()
	}
	if mem == nil {
		mem = debugeval.MemoryFunc(func(addr, length uint64) ([]byte, error) {
			return nil, fmt.Errorf("no target memory: read of %d bytes at 0x%x", length, addr)
		})
	}
	e := &Evaluator{
		reg:   reg,
		table: table,
		dec:   decoder.New(reg.PointerSize()),
		mem:   mem,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decoder returns the decoder the evaluator loads values with.
func (e *Evaluator) Decoder() *decoder.Decoder { return e.dec }

// DecodeOptions returns the options used for every load.
func (e *Evaluator) DecodeOptions() decoder.Options {
	return decoder.Options{Symbols: e.table, Generation: e.generation}
}

// Evaluate parses and evaluates expr at frame. A nil frame evaluates at the
// root scope with no locals.
func (e *Evaluator) Evaluate(ctx context.Context, expr string, frame Frame) (*value.Value, error) {
	tree, err := parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		frame = &StaticFrame{ID: scope.RootID}
	}
	r := &run{Evaluator: e, ctx: ctx, frame: frame}
	v, err := r.eval(tree)
	if err != nil {
		Logger().Debug("evaluation failed", zap.String("expr", expr), zap.Error(err))
		return nil, err
	}
	return v, nil
}

// run is the state of one evaluation.
type run struct {
	*Evaluator
	ctx   context.Context
	frame Frame
}

func (r *run) prim(p types.Primitive) *types.Descriptor {
	return r.reg.Primitive(p)
}

func (r *run) load(typ *types.Descriptor, addr uint64) (*value.Value, error) {
	return r.dec.Load(typ, addr, r.mem, r.DecodeOptions())
}

func (r *run) eval(node ast.Expr) (*value.Value, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseEval, errors.KindIO, err, "evaluation cancelled")
	}

	switch n := node.(type) {
	case *ast.Literal:
		return r.literal(n, false)
	case *ast.Path:
		return r.path(n)
	case *ast.Paren:
		return r.eval(n.X)
	case *ast.Unary:
		return r.unary(n)
	case *ast.Binary:
		return r.binary(n)
	case *ast.Assign:
		return r.assign(n)
	case *ast.Cast:
		return r.cast(n)
	case *ast.Range:
		return nil, errors.Unsupported(errors.PhaseEval, "ranges are only valid inside an index")
	case *ast.Field:
		x, err := r.eval(n.X)
		if err != nil {
			return nil, err
		}
		return r.field(x, n.Name)
	case *ast.Index:
		return r.index(n)
	case *ast.MethodCall:
		return r.methodCall(n)
	case *ast.Call:
		return r.call(n)
	case *ast.StructLit:
		return r.structLit(n)
	case *ast.Tuple:
		return r.tuple(n)
	case *ast.Array:
		return r.array(n)
	case *ast.Repeat:
		return r.repeat(n)
	}
	return nil, errors.Unsupported(errors.PhaseEval, fmt.Sprintf("expression %T", node))
}

func (r *run) evalAll(nodes []ast.Expr) ([]*value.Value, error) {
	out := make([]*value.Value, len(nodes))
	for i, n := range nodes {
		v, err := r.eval(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// resolveTypes turns turbofish arguments into descriptors.
func (r *run) resolveTypes(names []types.TypeName) ([]*types.Descriptor, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]*types.Descriptor, len(names))
	for i, n := range names {
		d, err := r.resolveType(n)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// resolveType resolves a written type, trying the scope table for plain
// paths so that module-relative names work.
func (r *run) resolveType(n types.TypeName) (*types.Descriptor, error) {
	if n.Kind == types.NamePath && len(n.Args) == 0 {
		if _, ok := types.ParsePrimitive(n.Path); !ok && n.Path != "str" {
			if d, err := r.table.ResolveType(r.frame.Scope(), scope.ParsePath(n.Path)); err == nil {
				return d, nil
			}
		}
	}
	return r.reg.Resolve(n)
}

// scopePath converts a parsed path for the resolver.
func (r *run) scopePath(p *ast.Path) (scope.Path, error) {
	sp := scope.Path{Absolute: p.Absolute, Segments: make([]scope.Segment, len(p.Segments))}
	for i, s := range p.Segments {
		g, err := r.resolveTypes(s.Generics)
		if err != nil {
			return scope.Path{}, err
		}
		sp.Segments[i] = scope.Segment{Name: s.Name, Generics: g}
	}
	return sp, nil
}
