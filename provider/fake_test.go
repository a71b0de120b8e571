package provider_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/provider"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/workspace"
)

// fakeProvider keeps its "file" in memory. Section providers expose their
// content under the section name, like the file-backed provider.
type fakeProvider struct {
	opts provider.Options

	mu       sync.Mutex
	data     map[string]any
	exists   bool
	refuse   bool
	readyErr error
	attempts int
	// pending is loaded, and announced, on the first subscription.
	pending map[string]any

	disposed atomic.Int32
	changed  event.Emitter[preference.ChangeSet]
}

func (p *fakeProvider) exposed() map[string]any {
	if p.opts.Section {
		return map[string]any{p.opts.ConfigName: preference.Clone(p.data)}
	}
	return p.data
}

func (p *fakeProvider) Resolve(name string, resource uri.URI) preference.ResolveResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists || !p.Contains(resource) {
		return preference.ResolveResult{}
	}
	v, ok := preference.Lookup(p.exposed(), name)
	if !ok {
		return preference.ResolveResult{}
	}
	return preference.ResolveResult{Value: v, ConfigURI: p.opts.ConfigURI}
}

func (p *fakeProvider) Preferences(resource uri.URI) map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists || !p.Contains(resource) {
		return map[string]any{}
	}
	out, _ := preference.Clone(p.exposed()).(map[string]any)
	return out
}

func (p *fakeProvider) SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool {
	p.mu.Lock()
	p.attempts++
	if p.refuse || !p.Contains(resource) {
		p.mu.Unlock()
		return false
	}
	if p.data == nil {
		p.data = map[string]any{}
	}
	key := name
	if p.opts.Section && len(name) > len(p.opts.ConfigName)+1 {
		key = name[len(p.opts.ConfigName)+1:]
	}
	old := p.data[key]
	if value == nil {
		delete(p.data, key)
	} else {
		p.data[key] = value
	}
	p.exists = true
	p.mu.Unlock()

	p.changed.Fire(preference.ChangeSet{name: {PreferenceName: name, OldValue: old, NewValue: value}})
	return true
}

func (p *fakeProvider) ConfigURI(resource uri.URI) (uri.URI, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.exists || !p.Contains(resource) {
		return uri.URI{}, false
	}
	return p.opts.ConfigURI, true
}

func (p *fakeProvider) Contains(resource uri.URI) bool {
	return resource.IsZero() || p.opts.Folder.IsEqualOrParent(resource)
}

func (p *fakeProvider) OnChanged(listener func(preference.ChangeSet)) event.Disposable {
	d := p.changed.Event(listener)

	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	if pending != nil {
		p.data = pending
		p.exists = true
	}
	p.mu.Unlock()

	if pending != nil {
		cs := preference.ChangeSet{}
		for name, v := range pending {
			cs[name] = preference.Change{PreferenceName: name, NewValue: v}
		}
		p.changed.Fire(cs)
	}
	return d
}

func (p *fakeProvider) Ready(ctx context.Context) error { return p.readyErr }

func (p *fakeProvider) Dispose() { p.disposed.Add(1) }

func (p *fakeProvider) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// fakeFactory creates fakeProviders. files seeds the content of existing
// files by URI path; loads is content that appears on first subscription; failures makes creation fail a number of times per
// path.
type fakeFactory struct {
	mu        sync.Mutex
	files     map[string]map[string]any
	refuse    map[string]bool
	loads     map[string]map[string]any
	readyErrs map[string]error
	failures  map[string]int
	created   map[string][]*fakeProvider
	creates   int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		files:     map[string]map[string]any{},
		refuse:    map[string]bool{},
		loads:     map[string]map[string]any{},
		readyErrs: map[string]error{},
		failures:  map[string]int{},
		created:   map[string][]*fakeProvider{},
	}
}

func (f *fakeFactory) Create(opts provider.Options) (provider.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	path := opts.ConfigURI.Path()
	if n := f.failures[path]; n > 0 {
		f.failures[path] = n - 1
		return nil, errors.New("disk on fire")
	}
	p := &fakeProvider{opts: opts, refuse: f.refuse[path], readyErr: f.readyErrs[path]}
	if data, ok := f.files[path]; ok {
		p.data, _ = preference.Clone(data).(map[string]any)
		p.exists = true
	}
	if data, ok := f.loads[path]; ok {
		p.pending, _ = preference.Clone(data).(map[string]any)
	}
	f.created[path] = append(f.created[path], p)
	return p, nil
}

// get returns the latest provider created for the file at path.
func (f *fakeFactory) get(t *testing.T, path string) *fakeProvider {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.created[path]
	if len(ps) == 0 {
		t.Fatalf("no provider created for %s", path)
	}
	return ps[len(ps)-1]
}

func (f *fakeFactory) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func folders(paths ...string) []workspace.Folder {
	out := make([]workspace.Folder, len(paths))
	for i, p := range paths {
		out[i] = workspace.NewFolder(uri.MustParse(p))
	}
	return out
}

type fixture struct {
	ws      *workspace.Service
	factory *fakeFactory
	reg     *provider.Registry
	mgr     *provider.Manager
}

// newFixture starts a registry over roots with the default naming policy.
// configure runs before the registry starts.
func newFixture(t *testing.T, configure func(*fakeFactory), roots ...string) *fixture {
	t.Helper()
	ws := workspace.NewService(workspace.WithLogger(logger.NewNop()))
	ws.SetRoots(folders(roots...))

	factory := newFakeFactory()
	if configure != nil {
		configure(factory)
	}
	reg := provider.NewRegistry(ws, factory, preference.DefaultConfigurations(),
		provider.WithRegistryLogger(logger.NewNop()))
	if err := reg.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = reg.Stop(context.Background()) })

	return &fixture{
		ws:      ws,
		factory: factory,
		reg:     reg,
		mgr:     provider.NewManager(reg, provider.WithManagerLogger(logger.NewNop())),
	}
}
