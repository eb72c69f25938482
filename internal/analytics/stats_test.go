package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/feature"
)

func TestCorrelation(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	up := []float64{2, 4, 6, 8, 10}
	down := []float64{10, 8, 6, 4, 2}

	assert.InDelta(t, 1, analytics.Correlation(xs, up), 1e-9)
	assert.InDelta(t, -1, analytics.Correlation(xs, down), 1e-9)
}

func TestQuantile(t *testing.T) {
	xs := []float64{5, 1, 3, 2, 4}
	assert.InDelta(t, 3, analytics.Quantile(xs, 0.5), 1e-9)
	// The input must stay untouched.
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, xs)
}

func TestDescribeColumn(t *testing.T) {
	d := analytics.DescribeColumn([]float64{1, 2, 3, 4, 5})
	assert.Equal(t, 5, d.N)
	assert.InDelta(t, 3, d.Mean, 1e-9)
	assert.InDelta(t, 1, d.Min, 1e-9)
	assert.InDelta(t, 5, d.Max, 1e-9)
	assert.InDelta(t, 3, d.Median, 1e-9)

	empty := analytics.DescribeColumn(nil)
	assert.Zero(t, empty.N)
}

func TestChiSquareIndependence(t *testing.T) {
	// Strong association: late deliveries almost always score low.
	statistic, p := analytics.ChiSquareIndependence(40, 10, 10, 40)
	assert.Greater(t, statistic, 10.0)
	assert.Less(t, p, 0.01)

	// Perfect independence.
	statistic, p = analytics.ChiSquareIndependence(25, 25, 25, 25)
	assert.InDelta(t, 0, statistic, 1e-9)
	assert.InDelta(t, 1, p, 1e-9)

	// Degenerate margin.
	statistic, p = analytics.ChiSquareIndependence(0, 0, 10, 10)
	assert.Zero(t, statistic)
	assert.InDelta(t, 1, p, 1e-9)
}

func TestDelayReviewCorrelation(t *testing.T) {
	var orders []feature.OrderFeature
	add := func(delay, score float64, times int) {
		for i := 0; i < times; i++ {
			d, s := delay, score
			orders = append(orders, feature.OrderFeature{DelayDays: &d, ReviewScore: &s})
		}
	}
	add(5, 1, 20)  // late, unhappy
	add(-3, 5, 70) // early, happy
	add(4, 2, 5)   // late, unhappy
	add(-1, 4, 5)  // early, happy

	stats := analytics.DelayReviewCorrelation(orders)

	assert.Equal(t, 100, stats.N)
	assert.Negative(t, stats.Correlation, "later deliveries score worse")
	assert.Less(t, stats.PValue, 0.05)
}

func TestDelayReviewCorrelationTooFewRows(t *testing.T) {
	d, s := 1.0, 3.0
	stats := analytics.DelayReviewCorrelation([]feature.OrderFeature{{DelayDays: &d, ReviewScore: &s}})
	assert.Equal(t, 1, stats.N)
	assert.Zero(t, stats.Correlation)
	assert.InDelta(t, 1, stats.PValue, 1e-9)
}
