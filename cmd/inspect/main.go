package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	debugeval "github.com/wippyai/debug-eval"
	"github.com/wippyai/debug-eval/debuginfo"
	"github.com/wippyai/debug-eval/decoder"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/inspect"
	"github.com/wippyai/debug-eval/internal/demo"
	"github.com/wippyai/debug-eval/scope"
	"github.com/wippyai/debug-eval/target/wasm"
	"go.uber.org/zap"
)

type options struct {
	debugFile   string
	wasmFile    string
	frame       string
	expr        string
	demo        bool
	watch       bool
	interactive bool
	verbose     bool
	maxElements int
}

func main() {
	var o options
	flag.StringVar(&o.debugFile, "debug", "", "Path to YAML debug info")
	flag.StringVar(&o.wasmFile, "wasm", "", "Core wasm module to use as the target (memory and calls)")
	flag.StringVar(&o.frame, "frame", "", "Frame to evaluate in (default: main, or the first frame)")
	flag.StringVar(&o.expr, "e", "", "Evaluate one expression and exit")
	flag.BoolVar(&o.demo, "demo", false, "Use the built-in demo program")
	flag.BoolVar(&o.watch, "watch", false, "Reload the debug info when the file changes")
	flag.BoolVar(&o.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&o.verbose, "v", false, "Verbose logging to stderr")
	flag.IntVar(&o.maxElements, "max", 0, "Maximum elements printed per sequence (0: default)")
	flag.Parse()

	if o.debugFile == "" && !o.demo {
		fmt.Fprintln(os.Stderr, "Usage: inspect -debug <info.yaml> [-wasm <module.wasm>] [-frame name] [-e expr]")
		fmt.Fprintln(os.Stderr, "       inspect -demo [-e expr]")
		fmt.Fprintln(os.Stderr, "       inspect -debug <info.yaml> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setLoggers(l *zap.Logger) {
	decoder.SetLogger(l)
	scope.SetLogger(l)
	eval.SetLogger(l)
	debuginfo.SetLogger(l)
	inspect.SetLogger(l)
	wasm.SetLogger(l)
}

func run(o options) error {
	ctx := context.Background()

	logger := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = l
		defer logger.Sync()
	}
	setLoggers(logger)

	img, invoker, mem, err := loadImage(o)
	if err != nil {
		return err
	}

	if o.wasmFile != "" {
		data, err := os.ReadFile(o.wasmFile)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		tg, err := wasm.New(ctx, data, &wasm.Config{Name: o.wasmFile})
		if err != nil {
			return fmt.Errorf("load target: %w", err)
		}
		defer tg.Close(ctx)
		invoker, mem = tg, tg
	}

	opts := []inspect.Option{inspect.WithLogger(logger), inspect.WithMaxElements(o.maxElements)}
	if invoker != nil {
		opts = append(opts, inspect.WithInvoker(invoker))
	}
	if mem != nil {
		opts = append(opts, inspect.WithMemory(mem))
	}
	in, err := inspect.New(img, opts...)
	if err != nil {
		return err
	}
	s, err := newSession(in, o.frame)
	if err != nil {
		return err
	}

	if o.expr != "" {
		out, err := s.exec(ctx, o.expr)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	var w *debuginfo.Watcher
	if o.watch && o.debugFile != "" {
		if w, err = debuginfo.Watch(o.debugFile); err != nil {
			return err
		}
		defer w.Close()
	}

	if o.interactive {
		return runInteractive(s, w)
	}
	return runREPL(ctx, s, w)
}

// loadImage returns the program image and, for the demo, its native
// invoker and memory.
func loadImage(o options) (*debuginfo.Image, eval.Invoker, debugeval.Memory, error) {
	if o.demo {
		p, err := demo.New()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("demo: %w", err)
		}
		img := &debuginfo.Image{
			Types:  p.Types,
			Scopes: p.Scopes,
			Memory: p.Memory,
			Frames: map[string]*eval.StaticFrame{"main": {ID: p.Main, Locals: p.Locals}},
		}
		return img, p, nil, nil
	}

	img, err := debuginfo.LoadFile(o.debugFile)
	if err != nil {
		return nil, nil, nil, err
	}
	return img, nil, nil, nil
}
