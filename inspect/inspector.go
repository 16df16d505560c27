package inspect

import (
	"context"
	"sync/atomic"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/debuginfo"
	"github.com/wippyai/debug-eval/decoder"
	"github.com/wippyai/debug-eval/errors"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/format"
	"github.com/wippyai/debug-eval/types"
	"github.com/wippyai/debug-eval/value"
	"go.uber.org/zap"
)

// Option configures an Inspector.
type Option func(*Inspector)

// WithMemory sets the target memory. Without it the image's own memory
// regions are used.
func WithMemory(m debugeval.Memory) Option {
	return func(in *Inspector) { in.mem = m }
}

// WithInvoker enables calls into target code.
func WithInvoker(inv eval.Invoker) Option {
	return func(in *Inspector) { in.invoker = inv }
}

// WithMaxElements caps the elements printed per sequence.
func WithMaxElements(n int) Option {
	return func(in *Inspector) { in.maxElements = n }
}

// WithLogger sets the inspector's logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inspector) { in.logger = l }
}

// state is one installed image and the evaluator built over it.
type state struct {
	img *debuginfo.Image
	ev  *eval.Evaluator
	mem debugeval.Memory
}

// Inspector evaluates and formats values over the current program image.
// It is safe for concurrent use; Reload may run alongside other calls.
type Inspector struct {
	cur         atomic.Pointer[state]
	gen         atomic.Uint64
	mem         debugeval.Memory
	invoker     eval.Invoker
	logger      *zap.Logger
	maxElements int
}

// New creates an inspector over img.
func New(img *debuginfo.Image, opts ...Option) (*Inspector, error) {
	in := &Inspector{}
	for _, opt := range opts {
		opt(in)
	}
	if in.logger == nil {
		in.logger = Logger()
	}
	if err := in.Reload(img); err != nil {
		return nil, err
	}
	return in, nil
}

// Reload installs img as the current image and stamps it with the next
// generation. Values from earlier images become stale.
func (in *Inspector) Reload(img *debuginfo.Image) error {
	if img == nil || img.Types == nil {
		return errors.InvalidInput(errors.PhaseLoad, "nil image")
	}

	mem := in.mem
	if mem == nil && img.Memory != nil {
		mem = img.Memory
	}

	img.Generation = in.gen.Add(1)
	opts := []eval.Option{eval.WithGeneration(img.Generation)}
	if in.invoker != nil {
		opts = append(opts, eval.WithInvoker(in.invoker))
	}
	in.cur.Store(&state{
		img: img,
		ev:  eval.New(img.Types, img.Scopes, mem, opts...),
		mem: mem,
	})

	in.logger.Debug("image installed",
		zap.Uint64("generation", img.Generation),
		zap.String("source", img.Source))
	return nil
}

// Image returns the current image.
func (in *Inspector) Image() *debuginfo.Image {
	return in.cur.Load().img
}

// Generation returns the current image generation.
func (in *Inspector) Generation() uint64 {
	return in.cur.Load().img.Generation
}

// Frame returns a named frame of the current image.
func (in *Inspector) Frame(name string) (eval.Frame, bool) {
	return in.cur.Load().img.Frame(name)
}

// Decode loads a value of typ at addr. unsizedLen is the element count of
// a dynamically sized trailing field and is ignored for sized types.
func (in *Inspector) Decode(ctx context.Context, typ *types.Descriptor, addr, unsizedLen uint64) (*value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindIO, err, "decode cancelled")
	}
	if typ == nil {
		return nil, errors.InvalidInput(errors.PhaseDecode, "nil type")
	}
	s := in.cur.Load()
	if s.mem == nil {
		return nil, errors.IO(errors.PhaseDecode, "no target memory", nil)
	}

	opts := s.ev.DecodeOptions()
	if typ.Unsized || hasUnsizedTail(typ) {
		opts.UnsizedLen = decoder.Len(unsizedLen)
	}
	v, err := s.ev.Decoder().Load(typ, addr, s.mem, opts)
	if err != nil {
		in.logger.Debug("decode failed",
			zap.String("type", typ.Identity()),
			zap.Uint64("addr", addr),
			zap.Error(err))
		return nil, err
	}
	return v, nil
}

func hasUnsizedTail(typ *types.Descriptor) bool {
	n := len(typ.Fields)
	return n > 0 && typ.Fields[n-1].Type.Unsized
}

// DecodeNamed is Decode with the type given by name, such as
// "demo::Maybe<u8>" or "&[i32]".
func (in *Inspector) DecodeNamed(ctx context.Context, typeName string, addr, unsizedLen uint64) (*value.Value, error) {
	typ, err := in.cur.Load().img.Types.LookupName(typeName)
	if err != nil {
		return nil, err
	}
	return in.Decode(ctx, typ, addr, unsizedLen)
}

// Evaluate evaluates expr at frame. A nil frame evaluates at the top scope.
func (in *Inspector) Evaluate(ctx context.Context, expr string, frame eval.Frame) (*value.Value, error) {
	return in.cur.Load().ev.Evaluate(ctx, expr, frame)
}

// Format renders v. Values decoded under an earlier image are stale.
func (in *Inspector) Format(v *value.Value) (string, error) {
	if v == nil {
		return "", errors.InvalidInput(errors.PhaseFormat, "nil value")
	}
	s := in.cur.Load()
	if g := v.Generation(); g != 0 && g != s.img.Generation {
		return "", errors.Stale(errors.PhaseFormat, g, s.img.Generation)
	}
	f := format.Formatter{
		Memory:      s.mem,
		Decoder:     s.ev.Decoder(),
		Options:     s.ev.DecodeOptions(),
		MaxElements: in.maxElements,
	}
	return f.Format(v)
}
