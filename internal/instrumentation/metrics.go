package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrDomain    = "mailbox_domain"
)

// Metrics records the service's observability metrics. A zero Metrics is a
// valid no-op recorder, used when instrumentation is disabled.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	oauthLinkTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	mailOperationsTotal   metric.Int64Counter
	mailOperationDuration metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics registers all instruments on the given meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.oauthLinkTotal, err = meter.Int64Counter(
		"oauth_link_total",
		metric.WithDescription("Total number of completed account linking flows"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_link_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	m.mailOperationsTotal, err = meter.Int64Counter(
		"mail_operations_total",
		metric.WithDescription("Total number of mailbox operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_operations_total counter: %w", err)
	}

	m.mailOperationDuration, err = meter.Float64Histogram(
		"mail_operation_duration_seconds",
		metric.WithDescription("Mailbox operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail_operation_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one handled HTTP request. Path must be the route
// pattern, never the raw URL, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordLinkFlow records a completed account linking flow.
// Result is ResultSuccess or ResultFailure.
func (m *Metrics) RecordLinkFlow(ctx context.Context, result string) {
	if m.oauthLinkTotal == nil {
		return
	}
	m.oauthLinkTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh records a token refresh attempt.
// Result is ResultSuccess or ResultFailure.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordMailOperation records a mailbox operation (list, fetch, batch).
// The mailbox address is reduced to its domain, and only when detailed
// labels are enabled.
func (m *Metrics) RecordMailOperation(ctx context.Context, operation, status, mailbox string, duration time.Duration) {
	if m.mailOperationsTotal == nil || m.mailOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && mailbox != "" {
		attrs = append(attrs, attribute.String(attrDomain, mailboxDomain(mailbox)))
	}

	m.mailOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.mailOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// mailboxDomain reduces a mailbox address to its domain. Full addresses are
// never used as label values.
func mailboxDomain(mailbox string) string {
	parts := strings.Split(mailbox, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "unknown"
}
