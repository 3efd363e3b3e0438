// Package instrumentation provides OpenTelemetry metrics and tracing for the
// inboxlink service.
//
// # Metrics
//
// HTTP metrics:
//   - http_requests_total: counter of HTTP requests by method, path and status
//   - http_request_duration_seconds: histogram of HTTP request durations
//
// Account linking metrics:
//   - oauth_link_total: counter of completed linking flows by result
//   - oauth_token_refresh_total: counter of token refresh attempts by result
//
// Mailbox metrics:
//   - mail_operations_total: counter of mailbox operations by operation and status
//   - mail_operation_duration_seconds: histogram of mailbox operation durations
//
// # Configuration
//
// Configured via environment variables:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector endpoint
//   - OTEL_TRACES_SAMPLER_ARG: trace sampling rate (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: inboxlink)
//
// Metric labels stay low-cardinality: user identifiers never appear as label
// values, only mailbox domains when detailed labels are explicitly enabled.
package instrumentation
