package telemetry

import "time"

// Config is the telemetry configuration for the cosmo CLI.
type Config struct {
	// ServiceName identifies this binary in traces.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Tracing configures distributed tracing.
	Tracing TracingConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool

	// Exporter specifies the trace exporter (otlp, stdout, none).
	Exporter string

	// Endpoint is the OTLP collector endpoint.
	Endpoint string

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64

	// ExportTimeout is the timeout for trace export.
	ExportTimeout time.Duration

	// Insecure disables TLS for the exporter connection.
	Insecure bool
}

// DefaultConfig returns the configuration used when nothing is overridden:
// console logs at info level, tracing off.
func DefaultConfig(version string) Config {
	return Config{
		ServiceName:    "cosmo",
		ServiceVersion: version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 10 * time.Second,
		},
	}
}
