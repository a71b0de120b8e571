package provider

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/kbukum/prefkit/component"
	"github.com/kbukum/prefkit/errors"
	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/observability"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/workspace"
)

// Entry is a registered provider together with the file it serves.
// Entries are immutable once published.
type Entry struct {
	Key        string
	Folder     uri.URI
	ConfigURI  uri.URI
	ConfigName string
	ConfigPath string
	Provider   Provider

	seq uint64
	sub event.Disposable
}

// Seq returns the registration sequence number. Lower numbers were
// registered earlier.
func (e *Entry) Seq() uint64 { return e.seq }

type snapshot struct {
	entries []*Entry
	byKey   map[string]*Entry
}

var emptySnapshot = &snapshot{byKey: map[string]*Entry{}}

func (s *snapshot) add(e *Entry) {
	s.entries = append(s.entries, e)
	s.byKey[e.Key] = e
}

// ReconcileResult reports what one reconcile pass did.
type ReconcileResult struct {
	Added   []string
	Removed []string
	// Failed lists keys whose provider could not be created. They are
	// retried on the next pass.
	Failed []string
}

// Changed reports whether the pass added or removed anything.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMiddleware decorates every provider the registry creates.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(r *Registry) { r.middleware = append(r.middleware, mw...) }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(log *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// WithRegistryMetrics sets the metrics instruments.
func WithRegistryMetrics(m *observability.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// Registry keeps exactly one provider per (folder, config path, config name)
// of the current workspace roots.
//
// Readers load an immutable snapshot and never block on a reconcile pass.
// Passes are serialized; each builds a new snapshot, publishes it in one
// step and only then disposes the providers it dropped.
type Registry struct {
	roots      RootSource
	factory    Factory
	configs    *preference.Configurations
	middleware []Middleware
	log        *logger.Logger
	metrics    *observability.Metrics

	snap atomic.Pointer[snapshot]

	reconcileMu sync.Mutex
	seq         uint64
	stopped     bool
	rootsSub    event.Disposable

	changed event.Emitter[preference.ChangeSet]

	ctx    context.Context
	cancel context.CancelFunc

	readyOnce sync.Once
	readyCh   chan struct{}
	readyMu   sync.Mutex
	readyErr  error
}

// NewRegistry creates a registry. Nothing is created until Start.
func NewRegistry(roots RootSource, factory Factory, configs *preference.Configurations, opts ...RegistryOption) *Registry {
	if configs == nil {
		configs = preference.DefaultConfigurations()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		roots:   roots,
		factory: factory,
		configs: configs,
		ctx:     ctx,
		cancel:  cancel,
		readyCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("provider")
	}
	r.snap.Store(emptySnapshot)
	return r
}

// Configurations returns the naming policy.
func (r *Registry) Configurations() *preference.Configurations { return r.configs }

// Roots returns the current workspace roots.
func (r *Registry) Roots() []workspace.Folder { return r.roots.TryGetRoots() }

// Name implements component.Component.
func (r *Registry) Name() string { return "provider-registry" }

// Start waits for the workspace roots, creates the initial providers and
// follows root changes from then on. Provider readiness is awaited in the
// background; see Ready.
func (r *Registry) Start(ctx context.Context) error {
	if _, err := r.roots.Roots(ctx); err != nil {
		return err
	}

	r.reconcileMu.Lock()
	if r.stopped {
		r.reconcileMu.Unlock()
		return errors.NotReady(r.Name())
	}
	// Subscribed before the first pass so a change racing with it is not lost.
	r.rootsSub = r.roots.OnChanged(func([]workspace.Folder) {
		r.UpdateProviders(r.ctx)
	})
	r.reconcileMu.Unlock()

	result := r.UpdateProviders(ctx)
	r.log.Info("provider registry started", logger.Fields(
		logger.FieldCount, r.Len(),
		"failed", len(result.Failed),
	))

	go r.awaitReady(r.snap.Load().entries)
	return nil
}

func (r *Registry) awaitReady(entries []*Entry) {
	var mu sync.Mutex
	var result *multierror.Error
	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *Entry) {
			defer wg.Done()
			if err := e.Provider.Ready(r.ctx); err != nil {
				r.log.Error("provider not ready", logger.Fields(
					logger.FieldConfigURI, e.ConfigURI.String(),
					logger.FieldError, err.Error(),
				))
				r.metrics.RecordError(r.ctx, "ready", e.ConfigName)
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", e.Key, err))
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()

	r.readyMu.Lock()
	r.readyErr = result.ErrorOrNil()
	r.readyMu.Unlock()
	r.readyOnce.Do(func() { close(r.readyCh) })
}

// Ready blocks until every provider present after the first pass has
// settled. Provider failures do not fail readiness; they are logged and
// reported by Health.
func (r *Registry) Ready(ctx context.Context) error {
	select {
	case <-r.readyCh:
		return nil
	case <-ctx.Done():
		return errors.NotReady(r.Name()).WithCause(ctx.Err())
	}
}

// ReadyErrors returns the readiness failures collected after Start.
func (r *Registry) ReadyErrors() error {
	r.readyMu.Lock()
	defer r.readyMu.Unlock()
	return r.readyErr
}

// OnChanged subscribes to preference changes of every registered provider.
// Removing a folder fires a change naming every preference its providers
// held.
func (r *Registry) OnChanged(listener func(preference.ChangeSet)) event.Disposable {
	return r.changed.Event(listener)
}

// Snapshot returns the registered entries in registration order.
func (r *Registry) Snapshot() []*Entry {
	return slices.Clone(r.snap.Load().entries)
}

// Keys returns the registered identity keys in registration order.
func (r *Registry) Keys() []string {
	entries := r.snap.Load().entries
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Len returns the number of registered providers.
func (r *Registry) Len() int { return len(r.snap.Load().entries) }

type desiredKey struct {
	key    string
	folder uri.URI
	path   string
	name   string
}

func (r *Registry) desired(roots []workspace.Folder) []desiredKey {
	var out []desiredKey
	seen := make(map[string]struct{})
	for _, root := range roots {
		for _, path := range r.configs.Paths {
			for _, name := range r.configs.ConfigNames() {
				key := r.configs.Key(root.URI, path, name)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, desiredKey{key: key, folder: root.URI, path: path, name: name})
			}
		}
	}
	return out
}

// UpdateProviders reconciles the registered providers with the current
// roots. Running it again without a root change does nothing.
func (r *Registry) UpdateProviders(ctx context.Context) ReconcileResult {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	var result ReconcileResult
	if r.stopped {
		return result
	}

	ctx, op := observability.StartOperation(ctx, observability.SpanReconcile, r.metrics)
	roots := r.roots.TryGetRoots()
	current := r.snap.Load()
	next := &snapshot{byKey: make(map[string]*Entry, len(current.entries))}
	var created []*Entry

	for _, d := range r.desired(roots) {
		if e, ok := current.byKey[d.key]; ok {
			next.add(e)
			continue
		}
		e, err := r.create(d)
		if err != nil {
			r.log.Error("provider creation failed", logger.Fields(
				logger.FieldKey, d.key,
				logger.FieldError, err.Error(),
			))
			r.metrics.RecordError(ctx, "create", d.name)
			result.Failed = append(result.Failed, d.key)
			continue
		}
		r.metrics.RecordProviderCreated(ctx, d.name)
		next.add(e)
		created = append(created, e)
		result.Added = append(result.Added, d.key)
	}

	var stale []*Entry
	for _, e := range current.entries {
		if _, ok := next.byKey[e.Key]; !ok {
			stale = append(stale, e)
			result.Removed = append(result.Removed, e.Key)
		}
	}

	if !result.Changed() {
		op.End("unchanged", nil)
		r.metrics.RecordReconcile(ctx, false, op.Duration())
		return result
	}

	slices.SortFunc(next.entries, func(a, b *Entry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	r.snap.Store(next)

	// New providers are subscribed only once they are visible to readers, so
	// the change set of their initial load can be resolved by listeners.
	for _, e := range created {
		e.sub = e.Provider.OnChanged(func(cs preference.ChangeSet) { r.changed.Fire(cs) })
	}

	removed := r.removedFolderChanges(roots, stale)
	for _, e := range stale {
		r.dispose(ctx, e)
	}

	op.End("changed", nil)
	r.metrics.RecordReconcile(ctx, true, op.Duration())
	r.log.Info("providers reconciled", logger.Fields(
		"added", len(result.Added),
		"removed", len(result.Removed),
		"failed", len(result.Failed),
		logger.FieldDuration, op.Duration().String(),
	))

	if len(removed) > 0 {
		r.changed.Fire(removed)
	}
	return result
}

func (r *Registry) create(d desiredKey) (*Entry, error) {
	opts := Options{
		Folder:     d.folder,
		ConfigURI:  r.configs.CreateURI(d.folder, d.path, d.name),
		ConfigName: d.name,
		ConfigPath: d.path,
		Section:    r.configs.IsSectionName(d.name),
	}
	p, err := r.factory.Create(opts)
	if err != nil {
		return nil, errors.ProviderCreateFailed(d.key, err)
	}
	if p == nil {
		return nil, errors.ProviderCreateFailed(d.key, fmt.Errorf("factory returned no provider"))
	}
	p = Chain(r.middleware...)(p, opts)

	r.seq++
	e := &Entry{
		Key:        d.key,
		Folder:     d.folder,
		ConfigURI:  opts.ConfigURI,
		ConfigName: d.name,
		ConfigPath: d.path,
		Provider:   p,
		seq:        r.seq,
	}

	r.log.Debug("provider created", logger.Fields(
		logger.FieldKey, d.key,
		logger.FieldConfigName, d.name,
	))
	return e, nil
}

func (r *Registry) dispose(ctx context.Context, e *Entry) {
	e.sub.Dispose()
	e.Provider.Dispose()
	r.metrics.RecordProviderDisposed(ctx, e.ConfigName)
	r.log.Debug("provider disposed", logger.Fields(logger.FieldKey, e.Key))
}

// removedFolderChanges names every preference held by stale providers whose
// folder is no longer a root. It must run before those providers are
// disposed.
func (r *Registry) removedFolderChanges(roots []workspace.Folder, stale []*Entry) preference.ChangeSet {
	present := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		present[root.URI.String()] = struct{}{}
	}
	changes := make(preference.ChangeSet)
	for _, e := range stale {
		if _, ok := present[e.Folder.String()]; ok {
			continue
		}
		domain := []string{e.Folder.String()}
		for name, val := range e.Provider.Preferences(uri.URI{}) {
			changes[name] = preference.Change{
				PreferenceName: name,
				Scope:          preference.ScopeFolder,
				Domain:         domain,
				OldValue:       val,
			}
		}
	}
	return changes
}

// Stop disposes every provider and stops following root changes.
func (r *Registry) Stop(ctx context.Context) error {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	if r.rootsSub != nil {
		r.rootsSub.Dispose()
	}
	r.cancel()

	current := r.snap.Swap(emptySnapshot)
	for _, e := range current.entries {
		r.dispose(ctx, e)
	}
	r.changed.Dispose()
	r.log.Info("provider registry stopped", logger.Fields(logger.FieldCount, len(current.entries)))
	return nil
}

// Health reports degraded while readiness is pending or when some provider
// failed to load.
func (r *Registry) Health(ctx context.Context) component.Health {
	h := component.Health{Name: r.Name(), Status: component.StatusHealthy}
	select {
	case <-r.readyCh:
	default:
		h.Status = component.StatusDegraded
		h.Message = "providers loading"
		return h
	}
	if err := r.ReadyErrors(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = err.Error()
		return h
	}
	h.Message = fmt.Sprintf("%d providers", r.Len())
	return h
}

var _ component.Component = (*Registry)(nil)
