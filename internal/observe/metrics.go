// Package observe carries the observability plumbing for ventavoz:
// OpenTelemetry metric instruments, tracing helpers, and the HTTP middleware
// that wires both into request handling.
//
// Metrics flow through the OTel Metrics API and reach Prometheus via the
// exporter bridge installed by [InitProvider]. Production code uses the
// shared [DefaultMetrics] instance; tests build their own with [NewMetrics]
// and an isolated [metric.MeterProvider].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all ventavoz instruments.
const meterName = "github.com/dquispe/ventavoz"

// Metrics bundles every instrument the application records. The OTel types
// are individually safe for concurrent use.
type Metrics struct {
	// ResolveDuration is end-to-end command resolution latency.
	ResolveDuration metric.Float64Histogram

	// LLMDuration is LLM item-extraction latency.
	LLMDuration metric.Float64Histogram

	// STTDuration is speech-to-text latency.
	STTDuration metric.Float64Histogram

	// Commands counts resolved voice commands, attributed by "intent" and
	// "path" ("rule" or "llm").
	Commands metric.Int64Counter

	// MatchOutcomes counts per-query catalog outcomes, attributed by
	// "outcome" ("resolved", "ambiguous", "not_found").
	MatchOutcomes metric.Int64Counter

	// ProviderRequests counts model API calls, attributed by "provider",
	// "kind" and "status".
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts model API failures, attributed by "provider"
	// and "kind".
	ProviderErrors metric.Int64Counter

	// ActiveRequests is the number of commands currently in flight.
	ActiveRequests metric.Int64UpDownCounter

	// HTTPRequestDuration is HTTP latency, attributed by "method" and
	// "path". Recorded by [Middleware].
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram boundaries in seconds. Rule-based resolution
// lands in the low milliseconds; LLM and STT calls reach whole seconds.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates every instrument on a meter from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	var firstErr error
	latency := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return h
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return c
	}

	m := &Metrics{
		ResolveDuration:  latency("ventavoz.resolve.duration", "End-to-end latency of voice command resolution."),
		LLMDuration:      latency("ventavoz.llm.duration", "Latency of LLM item extraction."),
		STTDuration:      latency("ventavoz.stt.duration", "Latency of speech-to-text transcription."),
		Commands:         counter("ventavoz.commands", "Total resolved voice commands by intent and resolution path."),
		MatchOutcomes:    counter("ventavoz.match.outcomes", "Total catalog match outcomes per item query."),
		ProviderRequests: counter("ventavoz.provider.requests", "Total provider API requests by provider, kind, and status."),
		ProviderErrors:   counter("ventavoz.provider.errors", "Total provider errors by provider and kind."),
	}

	var err error
	if m.ActiveRequests, err = meter.Int64UpDownCounter("ventavoz.active_requests",
		metric.WithDescription("Number of voice commands currently being resolved."),
	); err != nil && firstErr == nil {
		firstErr = err
	}
	if m.HTTPRequestDuration, err = meter.Float64Histogram("ventavoz.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil && firstErr == nil {
		firstErr = err
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the shared [Metrics] instance, built from the
// global meter provider on first call. It panics if instrument creation
// fails, which the global provider never does.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr shortens [attribute.String] at call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand increments the command counter for one resolved command.
func (m *Metrics) RecordCommand(ctx context.Context, intent, path string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("intent", intent),
			attribute.String("path", path),
		),
	)
}

// RecordMatchOutcome increments the outcome counter for one item query.
func (m *Metrics) RecordMatchOutcome(ctx context.Context, outcome string) {
	m.MatchOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordProviderRequest increments the provider request counter.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError increments the provider error counter.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
