// Package format renders values the way the source language's debuggers
// print them.
//
// Output is deterministic and follows the shape of the value rather than
// the source text that produced it:
//
//	demo::Point { x: 3, y: -4 }
//	demo::Pair { a: 5, b: Some(3) }
//	demo::Wrapper(9)
//	&[i32] [2, 3]
//	(&demo::Point) 0x1010
//	{fn(i32) -> i32} 0x2000 <demo::add_one>
//
// Format works without target memory; slices then render as their fat
// pointer. A Formatter with Memory set reads slice elements and string
// bytes, bounded by MaxElements.
package format
