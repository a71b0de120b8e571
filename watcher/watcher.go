package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/prefkit/component"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
)

// Op is the kind of change reported for a file.
type Op int

const (
	OpWrite Op = iota
	OpCreate
	OpRemove
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	default:
		return "write"
	}
}

// Event is a debounced change to a watched file.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives events for one watched file.
type Handler func(Event)

type fileWatch struct {
	handlers map[uint64]Handler
	armedDir string
}

type pendingEvent struct {
	op   Op
	time time.Time
}

// Watcher watches individual files for changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	files   map[string]*fileWatch
	dirs    map[string]int
	nextID  uint64
	pending map[string]pendingEvent

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// New creates a watcher. Events are delivered once Start has been called.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		files:    make(map[string]*fileWatch),
		dirs:     make(map[string]int),
		pending:  make(map[string]pendingEvent),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get("watcher")
	}
	return w, nil
}

// Watch calls h for every change to the file at path, which need not exist.
func (w *Watcher) Watch(path string, h Handler) event.Disposable {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	fw, ok := w.files[path]
	if !ok {
		fw = &fileWatch{handlers: make(map[uint64]Handler)}
		w.files[path] = fw
		w.arm(path, fw)
	}
	w.nextID++
	id := w.nextID
	fw.handlers[id] = h

	return event.DisposeFunc(func() { w.unwatch(path, id) })
}

func (w *Watcher) unwatch(path string, id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fw, ok := w.files[path]
	if !ok {
		return
	}
	delete(fw.handlers, id)
	if len(fw.handlers) > 0 {
		return
	}
	delete(w.files, path)
	delete(w.pending, path)
	w.release(fw.armedDir)
}

// arm watches the nearest existing ancestor directory of path. Callers hold mu.
func (w *Watcher) arm(path string, fw *fileWatch) {
	dir := filepath.Dir(path)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
	if fw.armedDir == dir {
		return
	}
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			w.log.Warn("unable to watch directory", logger.Fields(logger.FieldPath, dir, logger.FieldError, err.Error()))
			return
		}
	}
	w.dirs[dir]++
	if fw.armedDir != "" {
		w.release(fw.armedDir)
	}
	fw.armedDir = dir
}

// release drops one reference to dir. Callers hold mu.
func (w *Watcher) release(dir string) {
	if dir == "" {
		return
	}
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fsw.Remove(dir)
	}
}

// rearm moves files that are armed on a distant ancestor closer to their
// parent directory. A file that turns out to exist already is reported as
// created, since its creation may have preceded the new watch.
func (w *Watcher) rearm(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, fw := range w.files {
		if fw.armedDir == filepath.Dir(path) {
			continue
		}
		w.arm(path, fw)
		if fw.armedDir == filepath.Dir(path) {
			if _, err := os.Stat(path); err == nil {
				w.queue(path, OpCreate, now)
			}
		}
	}
}

// Name implements component.Component.
func (w *Watcher) Name() string { return "watcher" }

// Start launches the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.startOnce.Do(func() { go w.run() })
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop(ctx context.Context) error {
	return w.Close()
}

// Health implements component.Component.
func (w *Watcher) Health(ctx context.Context) component.Health {
	w.mu.Lock()
	files, dirs := len(w.files), len(w.dirs)
	w.mu.Unlock()
	return component.Health{
		Name:    w.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d files, %d directories", files, dirs),
	}
}

// Close stops the event loop and releases the fsnotify watcher.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		// a watcher that never started has no loop to wait for
		w.startOnce.Do(func() { close(w.doneCh) })
		<-w.doneCh
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", logger.Fields(logger.FieldError, err.Error()))
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)
	now := time.Now()

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			w.rearm(now)
			return
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; !ok {
		return
	}
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.queue(name, OpRemove, now)
	case ev.Has(fsnotify.Create):
		w.queue(name, OpCreate, now)
	case ev.Has(fsnotify.Write):
		w.queue(name, OpWrite, now)
	}
}

// queue records an event for debounced delivery. Callers hold mu.
// A removal replaces anything pending; a creation is kept over later writes.
func (w *Watcher) queue(path string, op Op, now time.Time) {
	existing, ok := w.pending[path]
	switch {
	case !ok, op == OpRemove:
	case op == OpWrite && existing.op != OpWrite:
		op = existing.op
	case op == OpCreate && existing.op == OpRemove:
		// removed then recreated: the content changed
		op = OpWrite
	}
	w.pending[path] = pendingEvent{op: op, time: now}
}

// flush delivers events that have been quiet for a full debounce window.
func (w *Watcher) flush(now time.Time) {
	threshold := now.Add(-w.debounce)

	type delivery struct {
		ev       Event
		handlers []Handler
	}
	var out []delivery

	w.mu.Lock()
	for path, p := range w.pending {
		if p.time.After(threshold) {
			continue
		}
		delete(w.pending, path)
		fw, ok := w.files[path]
		if !ok {
			continue
		}
		d := delivery{ev: Event{Path: path, Op: p.op, Time: p.time}}
		for _, h := range fw.handlers {
			d.handlers = append(d.handlers, h)
		}
		out = append(out, d)
	}
	w.mu.Unlock()

	for _, d := range out {
		for _, h := range d.handlers {
			w.call(h, d.ev)
		}
	}
}

func (w *Watcher) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("watch handler panicked", logger.Fields(logger.FieldPath, ev.Path, logger.FieldError, fmt.Sprint(r)))
		}
	}()
	h(ev)
}
