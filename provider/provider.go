package provider

import (
	"context"

	"github.com/kbukum/prefkit/event"
	"github.com/kbukum/prefkit/preference"
	"github.com/kbukum/prefkit/uri"
	"github.com/kbukum/prefkit/workspace"
)

// Provider serves the preferences stored in one configuration file of one
// folder. A zero resource means no particular resource.
type Provider interface {
	// Resolve returns the value of name for resource. An empty result means
	// the provider has nothing to say.
	Resolve(name string, resource uri.URI) preference.ResolveResult

	// Preferences returns every preference the provider holds for resource.
	Preferences(resource uri.URI) map[string]any

	// SetPreference writes name. A nil value removes it. False means the
	// write was not accepted here and another provider may be tried.
	SetPreference(ctx context.Context, name string, value any, resource uri.URI) bool

	// ConfigURI returns the provider's file when it exists and applies to
	// resource.
	ConfigURI(resource uri.URI) (uri.URI, bool)

	// Contains reports whether resource lies inside the provider's folder.
	Contains(resource uri.URI) bool

	OnChanged(listener func(preference.ChangeSet)) event.Disposable

	// Ready blocks until the initial load has settled and returns its error.
	// A provider whose load failed still serves (empty) results.
	Ready(ctx context.Context) error

	Dispose()
}

// Options identifies the file a provider is created for.
type Options struct {
	Folder     uri.URI
	ConfigURI  uri.URI
	ConfigName string
	ConfigPath string
	// Section is set when ConfigName is a section name rather than the
	// default config name.
	Section bool
}

// Factory creates providers.
type Factory interface {
	Create(opts Options) (Provider, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(opts Options) (Provider, error)

// Create calls f.
func (f FactoryFunc) Create(opts Options) (Provider, error) { return f(opts) }

// RootSource supplies the workspace folder roots.
type RootSource interface {
	// Roots blocks until the initial roots are known.
	Roots(ctx context.Context) ([]workspace.Folder, error)
	TryGetRoots() []workspace.Folder
	OnChanged(listener func([]workspace.Folder)) event.Disposable
}

var _ RootSource = (*workspace.Service)(nil)
