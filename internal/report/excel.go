package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/train"
)

// WorkbookName is the file written into the output directory.
const WorkbookName = "storelens_summary.xlsx"

// WriteWorkbook saves the aggregate tables and model results as one Excel
// workbook for offline reporting.
func WriteWorkbook(s *analytics.Snapshot, results []*train.Result, outDir string) error {
	f := excelize.NewFile()

	f.SetSheetName("Sheet1", "Revenue")
	writeRevenueSheet(f, s)

	if _, err := f.NewSheet("Delivery"); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	writeDeliverySheet(f, s)

	if _, err := f.NewSheet("Satisfaction"); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	writeSatisfactionSheet(f, s)

	if _, err := f.NewSheet("Leads"); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	writeLeadSheet(f, s)

	if _, err := f.NewSheet("Models"); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	writeModelSheet(f, results)

	path := filepath.Join(outDir, WorkbookName)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetColWidth(sheet, cell, cell, 22)
	}
}

func writeRevenueSheet(f *excelize.File, s *analytics.Snapshot) {
	writeHeader(f, "Revenue", []string{"Category", "Revenue", "Orders", "", "State", "Revenue", "Orders"})

	for i, r := range s.RevenueByCategory {
		row := i + 2
		f.SetCellValue("Revenue", fmt.Sprintf("A%d", row), r.Key)
		f.SetCellValue("Revenue", fmt.Sprintf("B%d", row), r.Revenue)
		f.SetCellValue("Revenue", fmt.Sprintf("C%d", row), r.Orders)
	}
	for i, r := range s.RevenueByState {
		row := i + 2
		f.SetCellValue("Revenue", fmt.Sprintf("E%d", row), r.Key)
		f.SetCellValue("Revenue", fmt.Sprintf("F%d", row), r.Revenue)
		f.SetCellValue("Revenue", fmt.Sprintf("G%d", row), r.Orders)
	}
}

func writeDeliverySheet(f *excelize.File, s *analytics.Snapshot) {
	writeHeader(f, "Delivery", []string{
		"Metric", "Value", "",
		"Feature", "N", "Mean", "Std Dev", "Min", "Q1", "Median", "Q3", "Max",
	})

	rows := []struct {
		metric string
		value  any
	}{
		{"Delivered orders", s.Delivery.Delivered},
		{"Early", s.Delivery.Early},
		{"On time", s.Delivery.OnTime},
		{"Late", s.Delivery.Late},
		{"Mean delay (days)", s.Delivery.MeanDelay},
		{"Median delay (days)", s.Delivery.MedianDelay},
		{"P90 delay (days)", s.Delivery.P90Delay},
		{"Delay/review correlation", s.DelayReview.Correlation},
		{"Late vs low-review chi-square", s.DelayReview.ChiSquare},
		{"Late vs low-review p-value", s.DelayReview.PValue},
	}
	for i, r := range rows {
		row := i + 2
		f.SetCellValue("Delivery", fmt.Sprintf("A%d", row), r.metric)
		f.SetCellValue("Delivery", fmt.Sprintf("B%d", row), r.value)
	}

	for i, fs := range s.FeatureColumns {
		row := i + 2
		f.SetCellValue("Delivery", fmt.Sprintf("D%d", row), fs.Feature)
		f.SetCellValue("Delivery", fmt.Sprintf("E%d", row), fs.N)
		f.SetCellValue("Delivery", fmt.Sprintf("F%d", row), fs.Mean)
		f.SetCellValue("Delivery", fmt.Sprintf("G%d", row), fs.StdDev)
		f.SetCellValue("Delivery", fmt.Sprintf("H%d", row), fs.Min)
		f.SetCellValue("Delivery", fmt.Sprintf("I%d", row), fs.Q1)
		f.SetCellValue("Delivery", fmt.Sprintf("J%d", row), fs.Median)
		f.SetCellValue("Delivery", fmt.Sprintf("K%d", row), fs.Q3)
		f.SetCellValue("Delivery", fmt.Sprintf("L%d", row), fs.Max)
	}
}

func writeSatisfactionSheet(f *excelize.File, s *analytics.Snapshot) {
	writeHeader(f, "Satisfaction", []string{"Month", "Avg Score", "Reviews", "", "Score", "Count"})

	for i, m := range s.MonthlySatisfaction {
		row := i + 2
		f.SetCellValue("Satisfaction", fmt.Sprintf("A%d", row), m.Month)
		f.SetCellValue("Satisfaction", fmt.Sprintf("B%d", row), m.AvgScore)
		f.SetCellValue("Satisfaction", fmt.Sprintf("C%d", row), m.Reviews)
	}
	for i, sc := range s.ScoreDistribution {
		row := i + 2
		f.SetCellValue("Satisfaction", fmt.Sprintf("E%d", row), sc.Score)
		f.SetCellValue("Satisfaction", fmt.Sprintf("F%d", row), sc.Count)
	}
}

func writeLeadSheet(f *excelize.File, s *analytics.Snapshot) {
	writeHeader(f, "Leads", []string{"Segment", "Leads", "Closed", "Rate", "", "Origin", "Leads", "Closed", "Rate"})

	f.SetCellValue("Leads", "A2", "TOTAL")
	f.SetCellValue("Leads", "B2", s.Funnel.QualifiedLeads)
	f.SetCellValue("Leads", "C2", s.Funnel.ClosedDeals)
	f.SetCellValue("Leads", "D2", s.Funnel.ConversionRate)

	for i, g := range s.ConversionBySegment {
		row := i + 3
		f.SetCellValue("Leads", fmt.Sprintf("A%d", row), g.Group)
		f.SetCellValue("Leads", fmt.Sprintf("B%d", row), g.Leads)
		f.SetCellValue("Leads", fmt.Sprintf("C%d", row), g.Closed)
		f.SetCellValue("Leads", fmt.Sprintf("D%d", row), g.Rate)
	}
	for i, g := range s.ConversionByOrigin {
		row := i + 3
		f.SetCellValue("Leads", fmt.Sprintf("F%d", row), g.Group)
		f.SetCellValue("Leads", fmt.Sprintf("G%d", row), g.Leads)
		f.SetCellValue("Leads", fmt.Sprintf("H%d", row), g.Closed)
		f.SetCellValue("Leads", fmt.Sprintf("I%d", row), g.Rate)
	}
}

func writeModelSheet(f *excelize.File, results []*train.Result) {
	writeHeader(f, "Models", []string{"Task", "Kind", "Rows", "Metric", "Value", "Top Features"})

	row := 2
	for _, res := range results {
		for _, m := range metricRows(res) {
			f.SetCellValue("Models", fmt.Sprintf("A%d", row), res.Task)
			f.SetCellValue("Models", fmt.Sprintf("B%d", row), string(res.Kind))
			f.SetCellValue("Models", fmt.Sprintf("C%d", row), res.Rows)
			f.SetCellValue("Models", fmt.Sprintf("D%d", row), m.name)
			f.SetCellValue("Models", fmt.Sprintf("E%d", row), m.value)
			f.SetCellValue("Models", fmt.Sprintf("F%d", row), topFeatures(res, 3))
			row++
		}
	}
}

type metricRow struct {
	name  string
	value float64
}

func metricRows(res *train.Result) []metricRow {
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]metricRow, 0, len(names))
	for _, name := range names {
		out = append(out, metricRow{name: name, value: res.Metrics[name]})
	}
	return out
}

func topFeatures(res *train.Result, n int) string {
	if len(res.Importances) < n {
		n = len(res.Importances)
	}
	names := make([]string, 0, n)
	for _, imp := range res.Importances[:n] {
		names = append(names, imp.Feature)
	}
	return strings.Join(names, ", ")
}
