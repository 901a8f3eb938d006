package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	metricsOnce             sync.Once
	metricsInitErr          error
	computeCounter          metric.Int64Counter
	computeMismatchCounter  metric.Int64Counter
	computeLatencyHistogram metric.Float64Histogram
)

// ComputeMetrics captures the fields needed to record one extended gcd
// evaluation.
type ComputeMetrics struct {
	Strategy string
	Source   string
	Mismatch bool
	Duration time.Duration
}

// RecordCompute emits counters and a latency histogram describing a
// single evaluation. Mismatch marks a disagreement between the two
// variants when both were run; that counter staying at zero is the
// operational form of the equivalence guarantee.
func RecordCompute(ctx context.Context, metrics ComputeMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("compute.strategy", metrics.Strategy),
		attribute.String("compute.source", metrics.Source),
	}

	computeCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if metrics.Duration > 0 {
		computeLatencyHistogram.Record(ctx, float64(metrics.Duration)/float64(time.Microsecond), metric.WithAttributes(attrs...))
	}

	if metrics.Mismatch {
		computeMismatchCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("bezout.compute")

		computeCounter, metricsInitErr = meter.Int64Counter(
			"bezout.compute.total",
			metric.WithDescription("Extended gcd evaluations partitioned by strategy and source"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		computeMismatchCounter, metricsInitErr = meter.Int64Counter(
			"bezout.compute.mismatch_total",
			metric.WithDescription("Evaluations where the iterative and recursive variants disagreed"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		computeLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"bezout.compute.duration_us",
			metric.WithDescription("Observed evaluation latency"),
			metric.WithUnit("us"),
		)
	})

	return metricsInitErr
}

// RecordComputeResult attaches the result triple to the provided span.
// Operands and gcd are formatted as strings because span attributes
// have no unsigned 64-bit representation.
func RecordComputeResult(span trace.Span, strategy string, a, b, gcd uint64, x, y int64) {
	if span == nil || !span.IsRecording() {
		return
	}

	span.AddEvent("compute.result", trace.WithAttributes(
		attribute.String("compute.strategy", strategy),
		attribute.String("compute.a", strconv.FormatUint(a, 10)),
		attribute.String("compute.b", strconv.FormatUint(b, 10)),
		attribute.String("compute.gcd", strconv.FormatUint(gcd, 10)),
		attribute.Int64("compute.x", x),
		attribute.Int64("compute.y", y),
	))
}
