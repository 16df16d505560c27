// Package eval evaluates debugger expressions against a stopped target.
//
// An expression is parsed into a tree and walked once. Names are looked up
// in the frame's locals first and then through the scope table; values are
// decoded on demand through the decoder, so every evaluation observes the
// target as it is at that moment.
//
// # Supported Forms
//
//   - Paths, enum variants, statics and functions
//   - Field access, tuple indexes, method calls with auto-reference and
//     auto-deref of the receiver
//   - Indexing and slicing of arrays, slices and raw pointers
//   - Struct, tuple and array literals
//   - Arithmetic, bitwise, comparison and logical operators with wrapping
//     integer semantics, and as casts
//   - Dereference, address-of and assignment
//
// Calls into target code go through an Invoker. Without one, any call
// fails with errors.KindUnsupported. Assignment type-checks the place and
// returns the converted value; it never writes target memory.
//
// # Example
//
//	ev := eval.New(reg, table, mem, eval.WithInvoker(target))
//	v, err := ev.Evaluate(ctx, "self.items[1..3]", frame)
package eval
