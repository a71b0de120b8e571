package bootstrap

import (
	"time"

	"github.com/spf13/afero"

	"github.com/kbukum/prefkit/logger"
	"github.com/kbukum/prefkit/provider"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	fs              afero.Fs
	factory         provider.Factory
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger instead of initializing one from Settings.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithFS sets the file system configuration files and workspace files are
// read from. File watching only works against the OS file system.
func WithFS(fs afero.Fs) Option {
	return func(o *appOptions) { o.fs = fs }
}

// WithFactory replaces the JSON file provider factory.
func WithFactory(f provider.Factory) Option {
	return func(o *appOptions) { o.factory = f }
}
