// Package decoder reconstructs values from target bytes and type descriptors.
//
// The decoder is stateless apart from the target pointer size. Each call
// reads exactly the bytes it is given (or fetches them from a Memory) and
// returns a fully built value.Value; nothing is cached between calls since
// the target may have changed.
//
// # Decoding Rules
//
//   - Aggregates decode every field at its recorded offset
//   - Enums use the descriptor's Strategy; a tag or niche that selects no
//     variant is a malformed layout
//   - Unions keep their raw bytes; UnionField reinterprets them on request
//   - References, pointers and slices are never followed eagerly; use Deref
//     and Element
//   - Dynamically sized trailing data needs Options.UnsizedLen
//
// # Example
//
//	dec := decoder.New(reg.PointerSize())
//	v, err := dec.Load(typ, 0x1000, mem, decoder.Options{})
//
// # Errors
//
// Short buffers, invalid tags, invalid bools and invalid chars are reported
// as errors.KindMalformedLayout with the field path that failed. Memory
// failures are wrapped as errors.KindIO.
package decoder
