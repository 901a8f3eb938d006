package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRecordCompute(t *testing.T) {
	t.Helper()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordCompute(ctx, ComputeMetrics{
		Strategy: "both",
		Source:   "http",
		Mismatch: true,
		Duration: 250 * time.Microsecond,
	})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	metrics := map[string]metricdata.Metrics{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics[m.Name] = m
		}
	}

	sumCompute, ok := metrics["bezout.compute.total"]
	if !ok {
		t.Fatalf("missing bezout.compute.total metric")
	}
	computeData, ok := sumCompute.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type for compute metric")
	}
	if len(computeData.DataPoints) != 1 {
		t.Fatalf("expected 1 datapoint, got %d", len(computeData.DataPoints))
	}
	if computeData.DataPoints[0].Value != 1 {
		t.Fatalf("expected compute count 1, got %d", computeData.DataPoints[0].Value)
	}
	if value, ok := computeData.DataPoints[0].Attributes.Value(attribute.Key("compute.strategy")); !ok || value.AsString() != "both" {
		t.Fatalf("expected compute.strategy attribute to be both, got %v", value)
	}
	if value, ok := computeData.DataPoints[0].Attributes.Value(attribute.Key("compute.source")); !ok || value.AsString() != "http" {
		t.Fatalf("expected compute.source attribute to be http, got %v", value)
	}

	sumMismatch, ok := metrics["bezout.compute.mismatch_total"]
	if !ok {
		t.Fatalf("missing bezout.compute.mismatch_total metric")
	}
	mismatchData := sumMismatch.Data.(metricdata.Sum[int64])
	if mismatchData.DataPoints[0].Value != 1 {
		t.Fatalf("expected mismatch count 1, got %d", mismatchData.DataPoints[0].Value)
	}

	hist, ok := metrics["bezout.compute.duration_us"]
	if !ok {
		t.Fatalf("missing bezout.compute.duration_us metric")
	}
	histData := hist.Data.(metricdata.Histogram[float64])
	if histData.DataPoints[0].Count != 1 {
		t.Fatalf("expected histogram count 1, got %d", histData.DataPoints[0].Count)
	}
	if histData.DataPoints[0].Sum != 250 {
		t.Fatalf("expected histogram sum 250, got %v", histData.DataPoints[0].Sum)
	}
}

func TestRecordCompute_NoMismatch(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
	})

	ResetMetricsForTest()

	RecordCompute(ctx, ComputeMetrics{Strategy: "iterative", Source: "cli"})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "bezout.compute.mismatch_total" {
				t.Fatalf("mismatch counter should not have datapoints without a mismatch")
			}
		}
	}
}

func TestRecordComputeResult(t *testing.T) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider()
	tp.RegisterSpanProcessor(recorder)
	tracer := tp.Tracer("test")

	_, span := tracer.Start(context.Background(), "compute")
	RecordComputeResult(span, "iterative", 240, 46, 2, -9, 47)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	events := spans[0].Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 compute event, got %d", len(events))
	}
	event := events[0]
	if event.Name != "compute.result" {
		t.Fatalf("unexpected event name %q", event.Name)
	}

	attrs := attribute.NewSet(event.Attributes...)
	if value, ok := attrs.Value(attribute.Key("compute.gcd")); !ok || value.AsString() != "2" {
		t.Fatalf("expected compute.gcd '2', got %v", value)
	}
	if value, ok := attrs.Value(attribute.Key("compute.x")); !ok || value.AsInt64() != -9 {
		t.Fatalf("expected compute.x -9, got %v", value)
	}
	if value, ok := attrs.Value(attribute.Key("compute.y")); !ok || value.AsInt64() != 47 {
		t.Fatalf("expected compute.y 47, got %v", value)
	}

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown tracer provider: %v", err)
	}
}
