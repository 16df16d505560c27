// Package layout computes C-like memory layouts for aggregate shapes.
//
// Debug info normally records field offsets explicitly and the decoder uses
// those. This package fills the gaps: ingestion records that omit offsets,
// and tuple or array types synthesized while evaluating expressions.
//
// # Layout Rules
//
//   - Fields are placed in declaration order, each at the next offset that
//     satisfies its alignment
//   - Aggregate alignment is the maximum member alignment (minimum 1)
//   - Aggregate size is rounded up to its alignment
//   - Unions place every member at offset 0
//   - Zero-sized members are allowed and occupy no bytes
//
// This package is internal to types.
package layout
