package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad    Phase = "load"    // debug-info ingestion
	PhaseDecode  Phase = "decode"  // bytes to values
	PhaseResolve Phase = "resolve" // name resolution
	PhaseParse   Phase = "parse"   // expression parsing
	PhaseEval    Phase = "eval"    // expression evaluation
	PhaseFormat  Phase = "format"  // value rendering
	PhaseInvoke  Phase = "invoke"  // target function calls
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindAmbiguous       Kind = "ambiguous"
	KindMalformedLayout Kind = "malformed_layout"
	KindTypeMismatch    Kind = "type_mismatch"
	KindOutOfRange      Kind = "out_of_range"
	KindIO              Kind = "io"
	KindSyntax          Kind = "syntax"
	KindOverflow        Kind = "overflow"
	KindInvalidInput    Kind = "invalid_input"
	KindUnsupported     Kind = "unsupported"
	KindStale           Kind = "stale"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the type name involved
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
		Value:  name,
	}
}

// Ambiguous creates an ambiguity error listing the competing candidates
func Ambiguous(phase Phase, name string, candidates []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAmbiguous,
		Detail: fmt.Sprintf("%q is ambiguous: %s", name, strings.Join(candidates, ", ")),
		Value:  name,
	}
}

// MalformedLayout creates an error for bytes inconsistent with a type's shape
func MalformedLayout(path []string, typeName, detail string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedLayout,
		Path:   path,
		Type:   typeName,
		Detail: detail,
	}
}

// ShortBuffer creates a malformed layout error for a truncated byte range
func ShortBuffer(path []string, typeName string, have, want uint64) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedLayout,
		Path:   path,
		Type:   typeName,
		Detail: fmt.Sprintf("have %d bytes, need %d", have, want),
	}
}

// InvalidDiscriminant creates an error for a tag or niche that matches no variant
func InvalidDiscriminant(path []string, typeName string, disc uint64) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformedLayout,
		Path:   path,
		Type:   typeName,
		Detail: fmt.Sprintf("discriminant 0x%x matches no variant", disc),
		Value:  disc,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, typeName, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Type:   typeName,
		Detail: detail,
	}
}

// OutOfRange creates an index or bounds error
func OutOfRange(phase Phase, index, length uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfRange,
		Detail: fmt.Sprintf("index %d out of range (length %d)", index, length),
		Value:  index,
	}
}

// IO wraps a failure of the memory or invocation collaborator
func IO(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: detail,
		Cause:  cause,
	}
}

// Syntax creates a parse error at a byte offset of the expression
func Syntax(pos int, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Detail: fmt.Sprintf("offset %d: %s", pos, detail),
		Value:  pos,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Type:   targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Stale creates an error for a handle produced by a previous program image
func Stale(phase Phase, have, current uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStale,
		Detail: fmt.Sprintf("value from image generation %d, current is %d", have, current),
		Value:  have,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a debug-info loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}
