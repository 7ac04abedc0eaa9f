package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/ethpandaops/qahub/pkg/api/store"
)

// PlaceholderCoverage is reported as the coverage figure. It is a fixed
// value, not a measurement.
const PlaceholderCoverage = 85.0

// TestStats is the dashboard summary over all recorded test executions.
type TestStats struct {
	TotalTests  int64   `json:"totalTests"`
	Passed      int64   `json:"passed"`
	Failed      int64   `json:"failed"`
	PassRate    float64 `json:"passRate"`
	AvgDuration float64 `json:"avgDuration"`
	Coverage    float64 `json:"coverage"`
}

// Source supplies the raw aggregate the statistics are computed from.
type Source interface {
	SummarizeTests(ctx context.Context) (*store.TestSummary, error)
}

// Aggregator computes TestStats from a Source.
type Aggregator struct {
	src Source
}

// NewAggregator creates an Aggregator reading from src.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Compute reads the current test summary and derives the statistics.
// Storage errors are returned unchanged in the chain.
func (a *Aggregator) Compute(ctx context.Context) (*TestStats, error) {
	summary, err := a.src.SummarizeTests(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}

	stats := Summarize(summary)

	return &stats, nil
}

// Summarize converts a raw summary into TestStats. The pass rate is a
// percentage rounded to one decimal and the average duration is converted
// from milliseconds to seconds rounded to two decimals. Both are zero when
// there are no tests.
func Summarize(summary *store.TestSummary) TestStats {
	stats := TestStats{
		Coverage: PlaceholderCoverage,
	}

	if summary == nil {
		return stats
	}

	stats.TotalTests = summary.Total
	stats.Passed = summary.Passed
	stats.Failed = summary.Failed

	if summary.Total > 0 {
		stats.PassRate = roundTo(
			float64(summary.Passed)/float64(summary.Total)*100, 1,
		)
		stats.AvgDuration = roundTo(summary.AvgDurationMs/1000, 2)
	}

	return stats
}

// roundTo rounds v to the given number of decimal places, halves away
// from zero.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))

	return math.Round(v*scale) / scale
}
