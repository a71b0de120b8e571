package jsonfile

import (
	"context"

	"github.com/spf13/afero"

	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/provider"
	"github.com/kbukum/prefkit/resilience"
	"github.com/kbukum/prefkit/watcher"
)

// Option configures a Factory.
type Option func(*Factory)

// WithFS sets the file system. Defaults to the OS file system.
func WithFS(fs afero.Fs) Option {
	return func(f *Factory) { f.fs = fs }
}

// WithWatcher reloads providers when their file changes on disk.
func WithWatcher(w *watcher.Watcher) Option {
	return func(f *Factory) { f.watcher = w }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(f *Factory) { f.log = log }
}

// WithRetry sets the retry policy for reloads.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(f *Factory) { f.retry = cfg }
}

// WithScope sets the scope reported in change sets.
func WithScope(scope preference.Scope) Option {
	return func(f *Factory) { f.scope = scope }
}

// Factory creates file-backed providers.
type Factory struct {
	fs      afero.Fs
	watcher *watcher.Watcher
	log     *logger.Logger
	retry   resilience.RetryConfig
	scope   preference.Scope
}

var _ provider.Factory = (*Factory)(nil)

// NewFactory creates a factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		fs:    afero.NewOsFs(),
		retry: resilience.ReloadRetryConfig(),
		scope: preference.ScopeFolder,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Get("jsonfile")
	}
	return f
}

// Create returns a provider for the file named by opts. The file is loaded
// in the background once the provider is first subscribed to, waited on or
// read, so the change set of the initial load reaches its subscriber.
func (f *Factory) Create(opts provider.Options) (provider.Provider, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		opts:    opts,
		fs:      f.fs,
		log:     f.log.WithFields(logger.Fields(logger.FieldConfigURI, opts.ConfigURI.String())),
		retry:   f.retry,
		scope:   f.scope,
		domain:  []string{opts.Folder.String()},
		ctx:     ctx,
		cancel:  cancel,
		readyCh: make(chan struct{}),
	}
	if f.watcher != nil {
		p.watch = f.watcher.Watch(opts.ConfigURI.FSPath(), p.onFileEvent)
	}
	return p, nil
}
