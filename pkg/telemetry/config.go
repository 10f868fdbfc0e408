package telemetry

// Config is the telemetry configuration for one CLI invocation.
type Config struct {
	// Logging configures structured logging.
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics configures the prometheus metrics collector.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing configures pipeline tracing.
	Tracing TracingConfig `mapstructure:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format selects the output format (console, json).
	Format string `mapstructure:"format"`
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled turns the collector on. Disabled collectors record nothing.
	Enabled bool `mapstructure:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig configures pipeline tracing.
type TracingConfig struct {
	// Enabled turns span export on. Disabled tracing is a no-op.
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the configuration used when nothing is set:
// info-level console logging, metrics and tracing off.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: false, Namespace: "rsd"},
		Tracing: TracingConfig{Enabled: false},
	}
}
