package report_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/feature"
	"github.com/storelens/storelens/internal/report"
	"github.com/storelens/storelens/internal/train"
)

func testSnapshot() *analytics.Snapshot {
	return &analytics.Snapshot{
		TotalRevenue: 1000,
		TotalOrders:  10,
		RevenueByCategory: []analytics.RevenueRow{
			{Key: "computers_accessories", Revenue: 600, Orders: 6},
			{Key: "health_beauty", Revenue: 400, Orders: 4},
		},
		RevenueByState: []analytics.RevenueRow{{Key: "SP", Revenue: 1000, Orders: 10}},
		Delivery:       analytics.DeliverySummary{Delivered: 10, Early: 8, OnTime: 1, Late: 1, MeanDelay: -1.2},
		ScoreDistribution: []analytics.ScoreCount{
			{Score: 1, Count: 1}, {Score: 2, Count: 0}, {Score: 3, Count: 1},
			{Score: 4, Count: 2}, {Score: 5, Count: 6},
		},
		MonthlySatisfaction: []analytics.MonthlyScore{
			{Month: "2018-01", AvgScore: 4.5, Reviews: 6},
			{Month: "2018-02", AvgScore: 3.8, Reviews: 4},
		},
		Funnel: analytics.Funnel{QualifiedLeads: 20, ClosedDeals: 5, ConversionRate: 0.25},
		ConversionBySegment: []analytics.GroupConversion{
			{Group: "home_decor", Leads: 5, Closed: 5, Rate: 1},
		},
		FeatureColumns: []analytics.FeatureSummary{
			{Feature: "delay_days", Describe: analytics.Describe{N: 10, Mean: -1.2, StdDev: 1.8, Min: -3, Max: 4}},
			{Feature: "price", Describe: analytics.Describe{N: 10, Mean: 100, Min: 50, Max: 150}},
		},
	}
}

func testOrders() []feature.OrderFeature {
	delays := []float64{-2, -1, 0.5, 3, -2, -3, 1, -1, -2, 4}
	out := make([]feature.OrderFeature, len(delays))
	for i := range delays {
		out[i] = feature.OrderFeature{DelayDays: &delays[i]}
	}
	return out
}

func TestRenderCharts(t *testing.T) {
	dir := t.TempDir()

	err := report.RenderCharts(testSnapshot(), testOrders(), filepath.Join(dir, "charts"))
	require.NoError(t, err)

	for _, name := range []string{
		"revenue_by_category.png",
		"revenue_by_state.png",
		"delivery_delay_histogram.png",
		"review_scores.png",
		"monthly_satisfaction.png",
		"lead_funnel.png",
	} {
		assert.FileExists(t, filepath.Join(dir, "charts", name))
	}
}

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	results := []*train.Result{{
		Task:    "delivery_delay",
		Kind:    train.Regression,
		Rows:    100,
		Metrics: map[string]float64{"mae": 1.1, "r2": 0.9, "rmse": 1.5},
		Importances: []train.Importance{
			{Feature: "distance_km", Weight: 1.2},
			{Feature: "price", Weight: 0.3},
		},
	}}

	require.NoError(t, report.WriteWorkbook(testSnapshot(), results, dir))

	f, err := excelize.OpenFile(filepath.Join(dir, report.WorkbookName))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"Revenue", "Delivery", "Satisfaction", "Leads", "Models"}, sheets)

	category, err := f.GetCellValue("Revenue", "A2")
	require.NoError(t, err)
	assert.Equal(t, "computers_accessories", category)

	task, err := f.GetCellValue("Models", "A2")
	require.NoError(t, err)
	assert.Equal(t, "delivery_delay", task)

	// Metrics are written alphabetically, one row each.
	metric, err := f.GetCellValue("Models", "D2")
	require.NoError(t, err)
	assert.Equal(t, "mae", metric)

	// Feature summaries sit next to the delivery metrics.
	featureName, err := f.GetCellValue("Delivery", "D2")
	require.NoError(t, err)
	assert.Equal(t, "delay_days", featureName)
	featureN, err := f.GetCellValue("Delivery", "E2")
	require.NoError(t, err)
	assert.Equal(t, "10", featureN)
}
