package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Result values for linking and refresh metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Status values for mailbox operation metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Config holds the instrumentation configuration.
type Config struct {
	// ServiceName identifies the service in exported telemetry.
	ServiceName string

	// ServiceVersion is stamped on every resource.
	ServiceVersion string

	// ServiceInstanceID defaults to the hostname when empty.
	ServiceInstanceID string

	// Enabled turns the whole subsystem on or off. When off, every
	// recording call is a no-op.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp, stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout, none.
	TracingExporter string

	// OTLPEndpoint is the collector endpoint, host:port without scheme.
	OTLPEndpoint string

	// OTLPInsecure disables TLS towards the collector. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the head sampling ratio, 0.0 to 1.0.
	TraceSamplingRate float64

	// DetailedLabels adds mailbox-domain labels to mailbox operation
	// metrics. Off by default to keep cardinality bounded.
	DetailedLabels bool
}

// DefaultConfig builds a Config from environment variables with defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:       getEnvOrDefault("OTEL_SERVICE_NAME", "inboxlink"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: getEnvOrDefault("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           getEnvBoolOrDefault("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   getEnvOrDefault("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   getEnvOrDefault("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      getEnvBoolOrDefault("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: getEnvFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    getEnvBoolOrDefault("METRICS_DETAILED_LABELS", false),
	}
}

// Validate checks exporter names, endpoint requirements and sampling bounds.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterOTLP, ExporterStdout:
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}
	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
