package debuginfo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wippyai/debug-eval/debuginfo"
)

// replace writes data next to path and renames it over path, so the
// watcher never sees a half-written file.
func replace(t *testing.T, path, data string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.yaml")
	replace(t, path, minimal)

	w, err := debuginfo.Watch(path)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	replace(t, path, minimal+`statics:
  - {path: demo::COUNT, type: u32, address: 0x80}
`)

	timeout := time.After(5 * time.Second)
	for {
		var img *debuginfo.Image
		select {
		case img = <-w.Images():
		case <-w.Errors():
			continue
		case <-timeout:
			t.Fatal("no reload within 5s")
		}
		if img.Scopes.NumSymbols() == 2 {
			if img.Source == "" {
				t.Error("reloaded image has no source")
			}
			break
		}
	}

	replace(t, path, "format: \"9.0.0\"\n")
	timeout = time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case <-w.Images():
		case err := <-w.Errors():
			if err == nil {
				t.Error("nil error")
			}
			done = true
		case <-timeout:
			t.Fatal("no error within 5s")
		}
	}

	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	for range w.Images() {
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
