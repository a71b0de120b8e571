package watcher

import "time"

// DefaultDebounce is the coalescing window used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Config is the settings section for file watching.
type Config struct {
	Disabled bool          `yaml:"disabled" mapstructure:"disabled"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
}
