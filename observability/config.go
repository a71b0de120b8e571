package observability

import "time"

// Config is the settings section that turns OTLP export on.
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	ServiceName    string        `yaml:"service_name" mapstructure:"service_name"`
	Environment    string        `yaml:"environment" mapstructure:"environment"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills unset fields; serviceName is used when none is configured.
func (c *Config) ApplyDefaults(serviceName string) {
	if c.ServiceName == "" {
		c.ServiceName = serviceName
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

func (c *Config) export(version string) Export {
	return Export{
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
	}
}

// TracerConfig derives the tracer settings.
func (c *Config) TracerConfig(version string) TracerConfig {
	return TracerConfig{Export: c.export(version), SampleRate: c.SampleRate}
}

// MeterConfig derives the meter settings.
func (c *Config) MeterConfig(version string) *MeterConfig {
	return &MeterConfig{Export: c.export(version), Interval: c.MetricInterval}
}
