// Package errors provides structured error types for the debug-eval library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, type name, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindMalformedLayout).
//		Path("config", "mode").
//		Type("demo::Mode").
//		Detail("tag %d matches no variant", 7).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseResolve, "symbol", "demo::missing")
//	err := errors.OutOfRange(errors.PhaseEval, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
// IsKind matches on Kind alone, which is what callers displaying results
// usually want.
package errors
