package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BureauMetrics holds the pipeline instruments. A nil *BureauMetrics is valid
// and records nothing.
type BureauMetrics struct {
	bureauCalls  metric.Int64Counter
	fallbacks    metric.Int64Counter
	consentPolls metric.Int64Counter
	reportCache  metric.Int64Counter
}

// NewBureauMetrics creates the instruments on meter.
func NewBureauMetrics(meter metric.Meter) (*BureauMetrics, error) {
	calls, err := meter.Int64Counter("bureau_calls_total",
		metric.WithDescription("Bureau calls by provider and outcome"))
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("bureau_fallbacks_total",
		metric.WithDescription("Primary bureau failures that triggered the secondary bureau"))
	if err != nil {
		return nil, err
	}
	polls, err := meter.Int64Counter("bureau_consent_polls_total",
		metric.WithDescription("Consent polling runs by result"))
	if err != nil {
		return nil, err
	}
	cache, err := meter.Int64Counter("bureau_report_cache_total",
		metric.WithDescription("Report cache lookups by result"))
	if err != nil {
		return nil, err
	}
	return &BureauMetrics{
		bureauCalls:  calls,
		fallbacks:    fallbacks,
		consentPolls: polls,
		reportCache:  cache,
	}, nil
}

// BureauCall counts one bureau call.
func (m *BureauMetrics) BureauCall(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.bureauCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// Fallback counts one switch to the secondary bureau.
func (m *BureauMetrics) Fallback(ctx context.Context, failureClass string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("failure_class", failureClass)))
}

// ConsentPoll counts one finished polling run.
func (m *BureauMetrics) ConsentPoll(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.consentPolls.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// ReportCache counts one cache lookup.
func (m *BureauMetrics) ReportCache(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.reportCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
