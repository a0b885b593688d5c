package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics builds Metrics on an isolated provider whose ManualReader
// lets tests read back recorded values.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// counterValue returns the value of the data point in the named sum metric
// whose attribute key equals value. Fails the test when the metric or data
// point is missing.
func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not recorded", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q data is %T, want Sum[int64]", name, met.Data)
	}
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == key && kv.Value.AsString() == value {
				return dp.Value
			}
		}
	}
	t.Fatalf("metric %q has no data point with %s=%s", name, key, value)
	return 0
}

func TestLatencyHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := map[string]metric.Float64Histogram{
		"ventavoz.resolve.duration": m.ResolveDuration,
		"ventavoz.llm.duration":     m.LLMDuration,
		"ventavoz.stt.duration":     m.STTDuration,
	}
	for _, h := range histograms {
		h.Record(ctx, 0.012)
		h.Record(ctx, 1.8)
	}

	rm := collect(t, reader)
	for name := range histograms {
		t.Run(name, func(t *testing.T) {
			met := findMetric(rm, name)
			if met == nil {
				t.Fatalf("metric %q not recorded", name)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q data is %T, want Histogram[float64]", name, met.Data)
			}
			if len(hist.DataPoints) == 0 {
				t.Fatal("histogram has no data points")
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("sample count = %d, want 2", got)
			}
		})
	}
}

func TestRecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "sale", "rule")
	m.RecordCommand(ctx, "sale", "llm")
	m.RecordCommand(ctx, "sale", "rule")
	m.RecordCommand(ctx, "cancel", "rule")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ventavoz.commands", "intent", "cancel"); got != 1 {
		t.Errorf("cancel commands = %d, want 1", got)
	}
	if got := counterValue(t, rm, "ventavoz.commands", "path", "llm"); got != 1 {
		t.Errorf("llm-path commands = %d, want 1", got)
	}
}

func TestRecordMatchOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMatchOutcome(ctx, "resolved")
	m.RecordMatchOutcome(ctx, "resolved")
	m.RecordMatchOutcome(ctx, "ambiguous")
	m.RecordMatchOutcome(ctx, "not_found")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ventavoz.match.outcomes", "outcome", "resolved"); got != 2 {
		t.Errorf("resolved outcomes = %d, want 2", got)
	}
	if got := counterValue(t, rm, "ventavoz.match.outcomes", "outcome", "ambiguous"); got != 1 {
		t.Errorf("ambiguous outcomes = %d, want 1", got)
	}
}

func TestRecordProviderRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "whisperapi", "stt", "ok")
	m.RecordProviderRequest(ctx, "whisperapi", "stt", "ok")
	m.RecordProviderRequest(ctx, "whisperapi", "stt", "error")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ventavoz.provider.requests", "status", "ok"); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
	if got := counterValue(t, rm, "ventavoz.provider.requests", "status", "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
}

func TestRecordProviderError(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordProviderError(context.Background(), "openai", "llm")

	rm := collect(t, reader)
	if got := counterValue(t, rm, "ventavoz.provider.errors", "provider", "openai"); got != 1 {
		t.Errorf("provider errors = %d, want 1", got)
	}
}

func TestActiveRequestsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveRequests.Add(ctx, 1)
	m.ActiveRequests.Add(ctx, 1)
	m.ActiveRequests.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "ventavoz.active_requests")
	if met == nil {
		t.Fatal("ventavoz.active_requests not recorded")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric data is %T, want Sum[int64]", met.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("in-flight count = %d, want 1", got)
	}
}

func TestHTTPRequestDurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.HTTPRequestDuration.Record(context.Background(), 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "ventavoz.http.request.duration")
	if met == nil {
		t.Fatal("ventavoz.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric data is %T, want Histogram[float64]", met.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different pointers")
	}
}
