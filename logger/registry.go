package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// components caches the loggers handed out by Get. The cache is dropped
// whenever the global logger changes.
var components = &componentLoggers{
	loggers: make(map[string]*Logger),
	levels:  make(map[string]zerolog.Level),
}

type componentLoggers struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
	levels  map[string]zerolog.Level
}

// Register pins l as the logger Get returns for name until the global
// logger is replaced.
func Register(name string, l *Logger) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.loggers[name] = l
}

// Get returns the logger of a component: the global logger tagged with
// name, at the component's configured level if it has one.
func Get(name string) *Logger {
	components.mu.RLock()
	l, ok := components.loggers[name]
	components.mu.RUnlock()
	if ok {
		return l
	}

	components.mu.Lock()
	defer components.mu.Unlock()
	if l, ok := components.loggers[name]; ok {
		return l
	}
	l = GetGlobalLogger().WithComponent(name)
	if lvl, ok := components.levels[name]; ok {
		l = l.WithLevel(lvl)
	}
	components.loggers[name] = l
	return l
}

// resetComponents drops cached loggers. A non-nil levels map replaces the
// per-component overrides.
func resetComponents(levels map[string]zerolog.Level) {
	components.mu.Lock()
	defer components.mu.Unlock()
	components.loggers = make(map[string]*Logger)
	if levels != nil {
		components.levels = levels
	}
}
