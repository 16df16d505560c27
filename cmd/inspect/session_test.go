package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wippyai/debug-eval/inspect"
)

func demoSession(t *testing.T) *session {
	t.Helper()
	img, invoker, _, err := loadImage(options{demo: true})
	if err != nil {
		t.Fatal(err)
	}
	in, err := inspect.New(img, inspect.WithInvoker(invoker))
	if err != nil {
		t.Fatal(err)
	}
	s, err := newSession(in, "")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSession_Exec(t *testing.T) {
	s := demoSession(t)
	if s.prompt() != "main> " {
		t.Errorf("prompt = %q", s.prompt())
	}

	tests := []struct {
		line    string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"p.x + 1", "4", false},
		{"demo::add(1, 2)", "3", false},
		{":frames", "main", false},
		{":frame", "main", false},
		{":decode demo::Pair 0x101a", "demo::Pair { a: 5, b: Some(3) }", false},
		{":decode u32 4224", "42", false},
		{":methods demo::Point", "area\nmanhattan", false},
		{":frame nope", "", true},
		{":decode u32", "", true},
		{":decode u32 zz", "", true},
		{":reload", "", true},
		{":bogus", "", true},
		{"p.", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := s.exec(context.Background(), tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("exec: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSession_Type(t *testing.T) {
	s := demoSession(t)
	got, err := s.exec(context.Background(), ":type demo::Shape")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"enum demo::Shape size=16 align=8", "#1 Rect", "+12   h: u32", "strategy direct"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestRunScript(t *testing.T) {
	s := demoSession(t)
	var out bytes.Buffer
	in := strings.NewReader("p.y\nnope\n:quit\np.x\n")
	if err := runScript(context.Background(), s, in, &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || lines[0] != "-4" || !strings.HasPrefix(lines[1], "error: ") {
		t.Errorf("output:\n%s", out.String())
	}
}
