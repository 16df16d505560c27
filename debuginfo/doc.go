// Package debuginfo loads program images from YAML debug-info records.
//
// A record file describes the types, scopes, functions, statics, trait
// impls and vtables of one compiled program, optionally with frames (named
// evaluation points and their locals) and memory regions for offline use:
//
//	format: "1.0.0"
//	types:
//	  - name: demo::Point
//	    kind: struct
//	    fields:
//	      - {name: x, type: i32}
//	      - {name: y, type: i32}
//	functions:
//	  - {path: demo::add, type: "fn(i32, i32) -> i32", address: 0x2010}
//
// Types may refer to each other in any order. Field offsets are computed in
// declaration order when a type record has no size; enums always need an
// explicit size and, with more than one variant, an explicit strategy.
// Niche encodings are never inferred.
//
// The format field is checked against SupportedFormat. Unknown record
// fields are rejected.
package debuginfo
