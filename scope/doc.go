// Package scope resolves names against the module and trait hierarchy of a
// program image.
//
// Scopes live in an arena addressed by ID and link to their parent by ID.
// The top scope (Root) holds one child per crate. Below a crate come
// modules, traits, impl blocks, function bodies and nested blocks.
//
// # Path Forms
//
//	::krate::m::item     absolute, from the top scope
//	crate::m::item       from the crate of the evaluation point
//	self::item           from the nearest enclosing module
//	super::super::item   one module up per super, never above the crate
//	m::item              relative; the first segment is searched from the
//	                     innermost scope outward so nested items shadow
//	                     outer ones
//
// # Methods
//
// Method lookup on a receiver type considers inherent impls first and then
// trait impls. An inherent method hides trait methods of the same name.
// The same name from two traits is ambiguous.
//
// A Table is built once by a Builder and never modified afterwards, so it
// may be shared between goroutines.
package scope
