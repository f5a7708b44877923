package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/e2b-dev/infra/packages/scull/pkg/scull"
)

const (
	ReadMetricName  = "scull.ops.read"
	WriteMetricName = "scull.ops.write"
	SeekMetricName  = "scull.ops.seek"
	BytesMetricName = "scull.ops.bytes"
)

type Metrics struct {
	ReadMetric  metric.Int64Histogram
	WriteMetric metric.Int64Histogram
	SeekMetric  metric.Int64Histogram
	BytesMetric metric.Int64Counter
}

func NewMetrics(meterProvider metric.MeterProvider) (Metrics, error) {
	meter := meterProvider.Meter("pkg.scull.metrics")

	read, err := meter.Int64Histogram(ReadMetricName,
		metric.WithDescription("Latency of device reads"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get read metric: %w", err)
	}

	write, err := meter.Int64Histogram(WriteMetricName,
		metric.WithDescription("Latency of device writes"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get write metric: %w", err)
	}

	seek, err := meter.Int64Histogram(SeekMetricName,
		metric.WithDescription("Latency of device seeks"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get seek metric: %w", err)
	}

	transferred, err := meter.Int64Counter(BytesMetricName,
		metric.WithDescription("Total bytes transferred"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get bytes metric: %w", err)
	}

	return Metrics{
		ReadMetric:  read,
		WriteMetric: write,
		SeekMetric:  seek,
		BytesMetric: transferred,
	}, nil
}

func (c Metrics) Begin(metric metric.Int64Histogram) Stopwatch {
	return Stopwatch{metric: metric, start: time.Now()}
}

func KV[T ~string](key string, value T) attribute.KeyValue {
	return attribute.String(key, string(value))
}

type Stopwatch struct {
	metric metric.Int64Histogram
	start  time.Time
}

func (t Stopwatch) End(ctx context.Context, kv ...attribute.KeyValue) {
	amount := time.Since(t.start).Microseconds()
	t.metric.Record(ctx, amount, metric.WithAttributes(kv...))
}

// Observer records latency and transferred bytes of every handle operation.
func (c Metrics) Observer() scull.Observer {
	return observer{metrics: c}
}

type observer struct {
	metrics Metrics
}

func (o observer) Begin(call scull.Call) func(int64, error) {
	var histogram metric.Int64Histogram
	switch call.Op {
	case scull.OpRead:
		histogram = o.metrics.ReadMetric
	case scull.OpWrite:
		histogram = o.metrics.WriteMetric
	default:
		histogram = o.metrics.SeekMetric
	}

	sw := o.metrics.Begin(histogram)

	return func(result int64, err error) {
		ctx := context.Background()

		outcome := "success"
		switch {
		case errors.Is(err, io.EOF):
			outcome = "eof"
		case err != nil:
			outcome = "error"
		}

		attrs := []attribute.KeyValue{
			KV("op", call.Op),
			KV("result", outcome),
		}

		sw.End(ctx, attrs...)

		if call.Op != scull.OpSeek && result > 0 {
			o.metrics.BytesMetric.Add(ctx, result, metric.WithAttributes(attrs...))
		}
	}
}
