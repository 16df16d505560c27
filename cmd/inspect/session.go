package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/debug-eval/debuginfo"
	"github.com/wippyai/debug-eval/eval"
	"github.com/wippyai/debug-eval/inspect"
	"github.com/wippyai/debug-eval/scope"
)

var errQuit = stderrors.New("quit")

const helpText = `Enter an expression to evaluate it at the current frame, or a command:
  :frames              list evaluation points
  :frame NAME          switch to a frame
  :type NAME           show a type's layout
  :methods TYPE        list methods callable on a type
  :decode TYPE ADDR    decode a value of TYPE at ADDR
  :reload              reload the debug info file
  :help                show this text
  :quit                exit`

// session is one interactive evaluation context shared by the line REPL
// and the TUI.
type session struct {
	in        *inspect.Inspector
	frame     eval.Frame
	frameName string
}

func newSession(in *inspect.Inspector, frameName string) (*session, error) {
	s := &session{in: in}
	if frameName == "" {
		if names := in.Image().FrameNames(); len(names) > 0 {
			frameName = names[0]
			for _, n := range names {
				if n == "main" {
					frameName = n
				}
			}
		}
	}
	if frameName != "" {
		if err := s.selectFrame(frameName); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) selectFrame(name string) error {
	f, ok := s.in.Frame(name)
	if !ok {
		return fmt.Errorf("no frame %q (have %s)", name, strings.Join(s.in.Image().FrameNames(), ", "))
	}
	s.frame, s.frameName = f, name
	return nil
}

// prompt returns the prompt naming the current frame.
func (s *session) prompt() string {
	if s.frameName == "" {
		return "> "
	}
	return s.frameName + "> "
}

// exec runs one input line and returns its printable result.
func (s *session) exec(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if !strings.HasPrefix(line, ":") {
		v, err := s.in.Evaluate(ctx, line, s.frame)
		if err != nil {
			return "", err
		}
		return s.in.Format(v)
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit", "exit":
		return "", errQuit
	case "h", "help":
		return helpText, nil
	case "frames":
		names := s.in.Image().FrameNames()
		if len(names) == 0 {
			return "(no frames)", nil
		}
		return strings.Join(names, "\n"), nil
	case "frame":
		if arg == "" {
			return s.frameName, nil
		}
		if err := s.selectFrame(arg); err != nil {
			return "", err
		}
		return "frame " + arg, nil
	case "type":
		return s.describe(arg)
	case "methods":
		typ, err := s.in.Image().Types.LookupName(arg)
		if err != nil {
			return "", err
		}
		names := s.in.Image().Scopes.Methods(typ)
		if len(names) == 0 {
			return "(no methods)", nil
		}
		return strings.Join(names, "\n"), nil
	case "decode":
		return s.decode(ctx, arg)
	case "reload":
		return s.reload()
	}
	return "", fmt.Errorf("unknown command :%s (try :help)", cmd)
}

func (s *session) describe(name string) (string, error) {
	typ, err := s.in.Image().Types.LookupName(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s size=%d align=%d", typ.Kind, typ.Identity(), typ.Size, typ.Align)
	for _, f := range typ.Fields {
		fmt.Fprintf(&b, "\n  +%-4d %s: %s", f.Offset, f.Name, f.Type.Identity())
	}
	for i, v := range typ.Variants {
		fmt.Fprintf(&b, "\n  #%d %s", i, v.Name)
		for _, f := range v.Fields {
			fmt.Fprintf(&b, "\n      +%-4d %s: %s", f.Offset, f.Name, f.Type.Identity())
		}
	}
	if len(typ.Variants) > 0 {
		fmt.Fprintf(&b, "\n  strategy %s", typ.Strategy.Kind)
	}
	return b.String(), nil
}

func (s *session) decode(ctx context.Context, arg string) (string, error) {
	i := strings.LastIndexByte(arg, ' ')
	if i < 0 {
		return "", fmt.Errorf("usage: :decode TYPE ADDR")
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(arg[i+1:]), 0, 64)
	if err != nil {
		return "", fmt.Errorf("bad address: %w", err)
	}
	v, err := s.in.DecodeNamed(ctx, strings.TrimSpace(arg[:i]), addr, 0)
	if err != nil {
		return "", err
	}
	return s.in.Format(v)
}

func (s *session) reload() (string, error) {
	src := s.in.Image().Source
	if src == "" {
		return "", fmt.Errorf("image was not loaded from a file")
	}
	img, err := debuginfo.LoadFile(src)
	if err != nil {
		return "", err
	}
	if err := s.install(img); err != nil {
		return "", err
	}
	return fmt.Sprintf("reloaded %s (generation %d)", src, img.Generation), nil
}

// install makes img current and re-selects the frame by name.
func (s *session) install(img *debuginfo.Image) error {
	if err := s.in.Reload(img); err != nil {
		return err
	}
	if s.frameName == "" {
		return nil
	}
	if err := s.selectFrame(s.frameName); err != nil {
		s.frame, s.frameName = &eval.StaticFrame{ID: scope.RootID}, ""
		return err
	}
	return nil
}
