// Package value holds the decoded representation of target data.
//
// A Value is immutable once constructed. It is produced either by the
// decoder from target bytes or by the evaluator from literals and
// arithmetic. Each value keeps the descriptor it was built from, the
// address it was read at (if any) and the image generation that produced
// it; none of these are ever updated afterwards.
//
// Scalars keep their raw little-endian bytes so that 128-bit integers and
// floats round-trip exactly. Accessors convert on demand.
package value
