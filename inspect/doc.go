// Package inspect is the entry point for debugger front ends.
//
// An Inspector holds the current program image (types, scopes, frames)
// together with the target's memory and invoker, and exposes the three
// operations a front end needs: decode a typed address, evaluate an
// expression at a frame, and format a value.
//
//	img, err := debuginfo.LoadFile("app.yaml")
//	...
//	in, err := inspect.New(img, inspect.WithInvoker(target))
//	v, err := in.Evaluate(ctx, "point.x + 1", frame)
//	s, err := in.Format(v)
//
// Reload installs a new image. Each image gets a new generation; values
// decoded under an earlier generation are rejected as stale rather than
// formatted against types they no longer match.
package inspect
