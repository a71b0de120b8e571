package workspace

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kbukum/prefkit/component"
	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/uri"
)

// Service holds the current workspace roots.
//
// Mutations are serialized and each one that changes the root set fires a
// single change event before the next mutation starts. Listeners must not
// mutate the service from inside the callback.
type Service struct {
	opMu sync.Mutex

	mu        sync.RWMutex
	roots     []Folder
	published bool
	ready     chan struct{}

	changed event.Emitter[[]Folder]
	initial []Folder
	log     *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithFolders sets the roots published by Start.
func WithFolders(folders ...Folder) Option {
	return func(s *Service) { s.initial = folders }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a service with no published roots.
func NewService(opts ...Option) *Service {
	s := &Service{ready: make(chan struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("workspace")
	}
	return s
}

// Roots waits for the first root set and returns a copy of the current one.
func (s *Service) Roots(ctx context.Context) ([]Folder, error) {
	select {
	case <-s.ready:
		return s.TryGetRoots(), nil
	case <-ctx.Done():
		return nil, errors.NotReady("workspace").WithCause(ctx.Err())
	}
}

// TryGetRoots returns the current roots without waiting. Before the first
// publication the result is empty.
func (s *Service) TryGetRoots() []Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

// OnChanged subscribes to root changes.
func (s *Service) OnChanged(listener func([]Folder)) event.Disposable {
	return s.changed.Event(listener)
}

// SetRoots replaces the root set. Duplicate URIs are dropped. The first call
// always publishes, even when folders is empty.
func (s *Service) SetRoots(folders []Folder) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.apply(dedupe(folders))
}

// AddRoot appends f unless a root with the same URI exists.
func (s *Service) AddRoot(f Folder) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.TryGetRoots()
	if slices.ContainsFunc(current, func(r Folder) bool { return r.URI.Equal(f.URI) }) {
		return false
	}
	return s.apply(append(current, f))
}

// RemoveRoot removes the root with URI u.
func (s *Service) RemoveRoot(u uri.URI) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.TryGetRoots()
	next := slices.DeleteFunc(slices.Clone(current), func(r Folder) bool { return r.URI.Equal(u) })
	if len(next) == len(current) {
		return false
	}
	return s.apply(next)
}

// apply stores roots and fires when they differ. Callers hold opMu.
func (s *Service) apply(roots []Folder) bool {
	s.mu.Lock()
	first := !s.published
	if !first && equalRoots(s.roots, roots) {
		s.mu.Unlock()
		return false
	}
	s.roots = roots
	s.published = true
	s.mu.Unlock()

	if first {
		close(s.ready)
	}
	s.log.Info("workspace roots changed", logger.Fields(logger.FieldCount, len(roots)))
	s.changed.Fire(slices.Clone(roots))
	return true
}

func equalRoots(a, b []Folder) bool {
	return slices.EqualFunc(a, b, func(x, y Folder) bool {
		return x.URI.Equal(y.URI) && x.Name == y.Name
	})
}

// Name implements component.Component.
func (s *Service) Name() string { return "workspace" }

// Start publishes the folders given with WithFolders unless roots were
// already set.
func (s *Service) Start(ctx context.Context) error {
	s.mu.RLock()
	published := s.published
	s.mu.RUnlock()
	if !published {
		s.SetRoots(s.initial)
	}
	return nil
}

// Stop drops all change listeners.
func (s *Service) Stop(ctx context.Context) error {
	s.changed.Dispose()
	return nil
}

// Health implements component.Component.
func (s *Service) Health(ctx context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.published {
		return component.Health{Name: s.Name(), Status: component.StatusDegraded, Message: "roots not published"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d roots", len(s.roots))}
}
