package main

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"github.com/wippyai/debug-eval/debuginfo"
	"golang.org/x/term"
)

const historyFile = ".debug_eval_history"

// runREPL reads lines from a terminal with history and editing, or plain
// lines when stdin is not a terminal.
func runREPL(ctx context.Context, s *session, w *debuginfo.Watcher) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runScript(ctx, s, os.Stdin, os.Stdout)
	}

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Println("Type :help for commands.")
	for {
		pollReload(s, w)

		line, err := ln.Prompt(s.prompt())
		if stderrors.Is(err, io.EOF) || stderrors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		ln.AppendHistory(line)

		out, err := s.exec(ctx, line)
		if stderrors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

// runScript evaluates one line at a time from r.
func runScript(ctx context.Context, s *session, r io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		res, err := s.exec(ctx, sc.Text())
		if stderrors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if res != "" {
			fmt.Fprintln(out, res)
		}
	}
	return sc.Err()
}

// pollReload installs any image the watcher has produced since the last
// prompt.
func pollReload(s *session, w *debuginfo.Watcher) {
	if w == nil {
		return
	}
	for {
		select {
		case img, ok := <-w.Images():
			if !ok {
				return
			}
			if err := s.install(img); err != nil {
				fmt.Fprintf(os.Stderr, "reload: %v\n", err)
				continue
			}
			fmt.Printf("reloaded %s (generation %d)\n", img.Source, img.Generation)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "reload: %v\n", err)
		default:
			return
		}
	}
}
