package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", c.Debounce, DefaultDebounce)
	}
	if c.Disabled {
		t.Error("ApplyDefaults should not disable watching")
	}
}

func TestQueue_Coalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Op
		want Op
	}{
		{"single write", []Op{OpWrite}, OpWrite},
		{"create then writes", []Op{OpCreate, OpWrite, OpWrite}, OpCreate},
		{"write then remove", []Op{OpWrite, OpRemove}, OpRemove},
		{"create then remove", []Op{OpCreate, OpRemove}, OpRemove},
		{"remove then write", []Op{OpRemove, OpWrite}, OpRemove},
		{"remove then create", []Op{OpRemove, OpCreate}, OpWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Watcher{pending: make(map[string]pendingEvent)}
			now := time.Now()
			for i, op := range tt.ops {
				w.queue("/a/settings.json", op, now.Add(time.Duration(i)*time.Millisecond))
			}
			got := w.pending["/a/settings.json"]
			if got.op != tt.want {
				t.Errorf("op = %v, want %v", got.op, tt.want)
			}
			if !got.time.Equal(now.Add(time.Duration(len(tt.ops)-1) * time.Millisecond)) {
				t.Errorf("time not updated to the latest event")
			}
		})
	}
}

func TestFlush_WaitsForQuietWindow(t *testing.T) {
	w := &Watcher{
		debounce: 50 * time.Millisecond,
		pending:  make(map[string]pendingEvent),
		files:    make(map[string]*fileWatch),
	}
	var got []Event
	w.files["/a/settings.json"] = &fileWatch{handlers: map[uint64]Handler{1: func(ev Event) { got = append(got, ev) }}}

	now := time.Now()
	w.queue("/a/settings.json", OpWrite, now)

	w.flush(now.Add(10 * time.Millisecond))
	if len(got) != 0 {
		t.Fatalf("flushed %d events before the window elapsed", len(got))
	}
	w.flush(now.Add(60 * time.Millisecond))
	if len(got) != 1 || got[0].Op != OpWrite {
		t.Fatalf("got %+v, want one write", got)
	}
	if len(w.pending) != 0 {
		t.Error("pending not drained")
	}
}

func TestFlush_RecoversHandlerPanic(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	called := false
	w.files["/a/settings.json"] = &fileWatch{handlers: map[uint64]Handler{
		1: func(Event) { panic("boom") },
		2: func(Event) { called = true },
	}}
	now := time.Now()
	w.queue("/a/settings.json", OpWrite, now)
	w.flush(now.Add(time.Second))
	if !called {
		t.Error("second handler not called after the first panicked")
	}
}

func TestWatch_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	w := newTestWatcher(t)
	ch := make(chan Event, 8)
	d := w.Watch(path, func(ev Event) { ch <- ev })
	defer d.Dispose()

	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, ch)
	if ev.Path != path {
		t.Errorf("Path = %q, want %q", ev.Path, path)
	}
	if ev.Op == OpRemove {
		t.Errorf("Op = %v, want write or create", ev.Op)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ev = waitEvent(t, ch)
	if ev.Op != OpRemove {
		t.Errorf("Op = %v, want remove", ev.Op)
	}
}

func TestWatch_MissingParentDirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".vscode", "settings.json")

	w := newTestWatcher(t)
	ch := make(chan Event, 8)
	d := w.Watch(path, func(ev Event) { ch <- ev })
	defer d.Dispose()

	if got := w.files[path].armedDir; got != root {
		t.Fatalf("armed on %q, want %q", got, root)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, ch)
	if ev.Path != path || ev.Op == OpRemove {
		t.Errorf("event = %+v, want create or write of %s", ev, path)
	}
}

func TestWatch_DisposeReleasesDirectory(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t)

	a := w.Watch(filepath.Join(dir, "a.json"), func(Event) {})
	b := w.Watch(filepath.Join(dir, "b.json"), func(Event) {})
	if w.dirs[dir] != 2 {
		t.Fatalf("dir refs = %d, want 2", w.dirs[dir])
	}
	a.Dispose()
	a.Dispose()
	if w.dirs[dir] != 1 {
		t.Fatalf("dir refs = %d, want 1", w.dirs[dir])
	}
	b.Dispose()
	if _, ok := w.dirs[dir]; ok {
		t.Error("directory still watched after last dispose")
	}
	if len(w.files) != 0 {
		t.Errorf("files = %d, want 0", len(w.files))
	}
}

func TestWatcher_Health(t *testing.T) {
	w := newTestWatcher(t)
	if h := w.Health(context.Background()); h.Name != "watcher" || h.Status != "healthy" {
		t.Errorf("Health() = %+v", h)
	}
}

func TestWatcher_CloseWithoutStart(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
