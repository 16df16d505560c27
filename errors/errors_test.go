package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindMalformedLayout,
				Path:   []string{"config", "mode"},
				Type:   "demo::Mode",
				Detail: "tag 7 matches no variant",
			},
			contains: []string{"[decode]", "malformed_layout", "config.mode", "demo::Mode", "tag 7"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseEval,
				Kind:  KindOutOfRange,
			},
			contains: []string{"[eval]", "out_of_range"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindIO,
				Detail: "read 0x1000",
				Cause:  errors.New("page not mapped"),
			},
			contains: []string{"[decode]", "io", "read 0x1000", "caused by", "page not mapped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseInvoke,
		Kind:  KindIO,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseResolve,
		Kind:  KindAmbiguous,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseResolve, Kind: KindAmbiguous}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseEval, Kind: KindAmbiguous}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseResolve, Kind: KindNotFound}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseResolve, Kind: KindAmbiguous}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestIsKind(t *testing.T) {
	inner := NotFound(PhaseResolve, "symbol", "x")
	wrapped := Wrap(PhaseEval, KindIO, fmt.Errorf("call: %w", inner), "invoke")

	if !IsKind(wrapped, KindIO) {
		t.Error("IsKind should match outer kind")
	}
	if !IsKind(wrapped, KindNotFound) {
		t.Error("IsKind should match kind deeper in the chain")
	}
	if IsKind(wrapped, KindAmbiguous) {
		t.Error("IsKind matched absent kind")
	}
	if IsKind(nil, KindIO) {
		t.Error("IsKind(nil) should be false")
	}
	if got := KindOf(fmt.Errorf("ctx: %w", inner)); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindMalformedLayout).
		Path("point", "x").
		Type("i32").
		Value(42).
		Cause(cause).
		Detail("expected %d bytes, got %d", 4, 2).
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindMalformedLayout {
		t.Errorf("Kind = %v, want %v", err.Kind, KindMalformedLayout)
	}
	if len(err.Path) != 2 || err.Path[0] != "point" || err.Path[1] != "x" {
		t.Errorf("Path = %v, want [point x]", err.Path)
	}
	if err.Type != "i32" {
		t.Errorf("Type = %v, want 'i32'", err.Type)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected 4 bytes, got 2" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
		text  string
	}{
		{"NotFound", NotFound(PhaseResolve, "symbol", "demo::f"), PhaseResolve, KindNotFound, `"demo::f"`},
		{"Ambiguous", Ambiguous(PhaseResolve, "show", []string{"A::show", "B::show"}), PhaseResolve, KindAmbiguous, "A::show, B::show"},
		{"MalformedLayout", MalformedLayout([]string{"a"}, "T", "bad"), PhaseDecode, KindMalformedLayout, "bad"},
		{"ShortBuffer", ShortBuffer(nil, "u32", 2, 4), PhaseDecode, KindMalformedLayout, "have 2 bytes, need 4"},
		{"InvalidDiscriminant", InvalidDiscriminant(nil, "E", 9), PhaseDecode, KindMalformedLayout, "0x9"},
		{"TypeMismatch", TypeMismatch(PhaseEval, "bool", "cannot index"), PhaseEval, KindTypeMismatch, "cannot index"},
		{"OutOfRange", OutOfRange(PhaseEval, 10, 5), PhaseEval, KindOutOfRange, "index 10 out of range (length 5)"},
		{"IO", IO(PhaseDecode, "read", errors.New("eof")), PhaseDecode, KindIO, "eof"},
		{"Syntax", Syntax(3, "unexpected ')'"), PhaseParse, KindSyntax, "offset 3"},
		{"Overflow", Overflow(PhaseParse, 300, "u8"), PhaseParse, KindOverflow, "300 overflows u8"},
		{"Unsupported", Unsupported(PhaseInvoke, "aggregate arguments"), PhaseInvoke, KindUnsupported, "aggregate"},
		{"InvalidInput", InvalidInput(PhaseLoad, "missing size"), PhaseLoad, KindInvalidInput, "missing size"},
		{"Stale", Stale(PhaseFormat, 1, 2), PhaseFormat, KindStale, "generation 1"},
		{"Load", Load("parse records", errors.New("yaml")), PhaseLoad, KindInvalidInput, "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.text) {
				t.Errorf("Error() = %q, want substring %q", tt.err.Error(), tt.text)
			}
		})
	}
}
