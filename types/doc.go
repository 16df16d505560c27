// Package types is the static type model consumed by the decoder, resolver
// and evaluator.
//
// A Descriptor describes the shape and layout of one type as recorded in
// debug info: field offsets, discriminant placement and niche sentinels.
// Descriptors are plain data. The decoder interprets them; nothing in this
// package reads memory.
//
// # Identity
//
// Every descriptor has an identity string. Named types use their fully
// qualified path followed by generic arguments:
//
//	demo::Wrapper<i32>
//	core::option::Option<&u8>
//
// Anonymous shapes use structural identities such as &T, *mut T, [T; 4],
// &[T], (A, B) and fn(A) -> R. Two instantiations of the same generic path
// with different arguments are distinct types with independent layouts.
//
// # Enum Layouts
//
// Each enum carries exactly one Strategy chosen by the compiler and recorded
// at ingestion. The decoder never infers a layout:
//
//	StrategyDirect  tag integer at a fixed offset
//	StrategyNiche   sentinel values in a payload field select data-less variants
//	StrategySingle  one variant, no tag
//	StrategyEmpty   no variants, the type exists only for lookup
//
// # Registry
//
// A Registry collects named descriptors during ingestion and is sealed
// afterwards. Sealed registries are safe for concurrent readers.
package types
