// Package debugeval reconstructs and evaluates values of a compiled program
// from raw target memory and static debug information.
//
// The library sits between a debugger and the program being debugged. The
// debugger supplies bytes read from the target, type descriptors from debug
// info and the lexical point of evaluation; this library turns those into
// structured values, evaluates small expressions against them and renders
// the results as text.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	debugeval/          Root package with the Memory contract and Snapshot memory
//	├── types/          Type descriptor model (structs, enums, generics, layouts)
//	├── value/          Immutable decoded values
//	├── decoder/        Layout decoder: bytes + descriptor -> value
//	├── scope/          Module/trait scope arena and name resolution
//	├── eval/           Expression lexer, parser and evaluator
//	├── format/         Stable textual rendering of values
//	├── debuginfo/      Debug-info record ingestion and image reload
//	├── inspect/        Facade used by the debugger (Decode, Evaluate, Format)
//	├── target/wasm/    wazero-backed target for memory reads and calls
//	└── errors/         Structured error types
//
// # Quick Start
//
//	img, err := debuginfo.LoadFile("program.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	in, err := inspect.New(img, inspect.WithMemory(mem), inspect.WithInvoker(invoker))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	frame, _ := in.Frame("main")
//
//	v, err := in.Evaluate(ctx, "point.x + 1", frame)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, _ := in.Format(v)
//	fmt.Println(text) // 3
//
// # Enum Layouts
//
// Enum representations are recorded at ingestion time, never inferred:
//
//	Direct  tag at a fixed offset selects the variant
//	Niche   a sentinel bit pattern borrowed from a payload field selects a
//	        payload-less variant; any other pattern is the data variant
//	Single  one variant, no tag
//	Empty   no variants; the type exists but no value can be decoded
//
// # Thread Safety
//
// Registries and scope tables are sealed after ingestion and are safe for
// concurrent reads. Decoding and evaluation hold no shared mutable state.
// Memory byte ranges are read per call and never cached.
package debugeval
