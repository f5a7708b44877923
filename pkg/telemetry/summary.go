package telemetry

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Summary aggregates one latency histogram data point.
type Summary struct {
	Metric string
	Result string
	Count  uint64
	Min    int64
	Max    int64
	Mean   float64
}

// Summarize collects the latency histograms from the reader.
func Summarize(ctx context.Context, reader sdkmetric.Reader) ([]Summary, error) {
	var rm metricdata.ResourceMetrics

	err := reader.Collect(ctx, &rm)
	if err != nil {
		return nil, fmt.Errorf("failed to collect metrics: %w", err)
	}

	var summaries []Summary
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			histogram, ok := m.Data.(metricdata.Histogram[int64])
			if !ok {
				continue
			}

			for _, dp := range histogram.DataPoints {
				s := Summary{
					Metric: m.Name,
					Count:  dp.Count,
				}

				if v, ok := dp.Attributes.Value(attribute.Key("result")); ok {
					s.Result = v.AsString()
				}

				if v, ok := dp.Min.Value(); ok {
					s.Min = v
				}

				if v, ok := dp.Max.Value(); ok {
					s.Max = v
				}

				if dp.Count > 0 {
					s.Mean = float64(dp.Sum) / float64(dp.Count)
				}

				summaries = append(summaries, s)
			}
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Metric != summaries[j].Metric {
			return summaries[i].Metric < summaries[j].Metric
		}

		return summaries[i].Result < summaries[j].Result
	})

	return summaries, nil
}
