package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/native/nativetest"
)

func setup(t *testing.T, pages int) (string, *nativetest.Library, *Reloader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lib := nativetest.New(nativetest.DocSpec{Pages: nativetest.Pages(pages)})
	r, err := New(context.Background(), path, Options{Debounce: 20 * time.Millisecond, Attempts: 2, Delay: time.Millisecond}, engine.WithLibrary(lib))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return path, lib, r
}

func TestReloadSwapsEngine(t *testing.T) {
	_, lib, r := setup(t, 2)
	first := r.Engine()
	if first.PageCount() != 2 {
		t.Fatalf("initial pages %d", first.PageCount())
	}
	var seen *engine.Engine
	r.OnReload(func(e *engine.Engine) { seen = e })

	lib.Doc.Pages = nativetest.Pages(5)
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	cur := r.Engine()
	if cur == first || cur.PageCount() != 5 || seen != cur {
		t.Fatalf("engine not swapped: pages %d", cur.PageCount())
	}
	if _, err := first.GetFull(context.Background(), 1); !errors.Is(err, engine.ErrClosed) {
		t.Fatalf("replaced engine still open: %v", err)
	}
}

func TestReloadFailureKeepsEngine(t *testing.T) {
	path, lib, r := setup(t, 2)
	first := r.Engine()

	if err := os.WriteFile(path, []byte("corrupt"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := r.Reload(context.Background())
	if !errors.Is(err, engine.ErrParseFailure) {
		t.Fatalf("Reload of corrupt file: %v", err)
	}
	if lib.Contexts() != 3 {
		t.Fatalf("expected two reload attempts, saw %d contexts", lib.Contexts()-1)
	}
	if r.Engine() != first {
		t.Fatalf("engine replaced after failed reload")
	}
	if _, err := first.GetFull(context.Background(), 1); err != nil {
		t.Fatalf("current engine unusable: %v", err)
	}

	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lib.Doc.Password = "secret"
	before := lib.Contexts()
	if err := r.Reload(context.Background()); !errors.Is(err, engine.ErrAuthenticationCancelled) {
		t.Fatalf("Reload of locked file: %v", err)
	}
	if lib.Contexts() != before+1 {
		t.Fatalf("authentication failure retried")
	}
}

func TestRunReloadsOnWrite(t *testing.T) {
	path, lib, r := setup(t, 1)
	reloaded := make(chan *engine.Engine, 4)
	r.OnReload(func(e *engine.Engine) { reloaded <- e })

	lib.Doc.Pages = nativetest.Pages(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("%PDF-1.7 updated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case e := <-reloaded:
		if e.PageCount() != 4 {
			t.Fatalf("reloaded engine has %d pages", e.PageCount())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload after write")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}
