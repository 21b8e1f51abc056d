package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newWatcher(t *testing.T) (*Watcher, <-chan string) {
	t.Helper()
	ch := make(chan string, 16)
	w, err := New(func(path string) { ch <- path }, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w, ch
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func expectQuiet(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected change to %s", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_AddRemove(t *testing.T) {
	w, _ := newWatcher(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	if err := w.Add(a); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := w.Add(b); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := w.Add(a); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("Add again error = %v, want ErrAlreadyWatching", err)
	}

	files := w.Files()
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("Files() = %v, want [%s %s]", files, a, b)
	}

	if err := w.Remove(a); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if err := w.Remove(a); !errors.Is(err, ErrNotWatching) {
		t.Errorf("Remove again error = %v, want ErrNotWatching", err)
	}
	if err := w.Remove(b); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	if len(w.dirs) != 0 {
		t.Errorf("dirs = %v, want none", w.dirs)
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, _ := newWatcher(t)

	if err := w.Add(filepath.Join(t.TempDir(), "missing", "a.txt")); err == nil {
		t.Error("Add should fail for a missing directory")
	}
	if len(w.Files()) != 0 {
		t.Errorf("Files() = %v, want none", w.Files())
	}
}

func TestWatcher_Change(t *testing.T) {
	w, ch := newWatcher(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	write(t, path, "one")

	if err := w.Add(path); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	write(t, path, "two")

	if got := waitFor(t, ch); got != path {
		t.Errorf("changed path = %s, want %s", got, path)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	ch := make(chan string, 16)
	w, err := New(func(path string) { ch <- path }, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	defer w.Close()

	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := w.Add(path); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	for i := 0; i < 5; i++ {
		write(t, path, string(rune('a'+i)))
	}

	waitFor(t, ch)
	expectQuiet(t, ch)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	w, ch := newWatcher(t)
	dir := t.TempDir()

	if err := w.Add(filepath.Join(dir, "doc.txt")); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	write(t, filepath.Join(dir, "other.txt"), "x")

	expectQuiet(t, ch)
}

func TestWatcher_Close(t *testing.T) {
	w, err := New(func(string) {})
	if err != nil {
		t.Fatalf("New error = %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
	if err := w.Add("doc.txt"); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Add after Close error = %v, want ErrWatcherClosed", err)
	}
}
