// Package report renders the static outputs of a pipeline run: PNG charts
// and one Excel workbook summarizing the aggregate tables and model
// results.
package report

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/feature"
)

const topCategories = 15

var (
	barBlue    = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	barGreen   = color.RGBA{R: 46, G: 204, B: 113, A: 255}
	lineOrange = color.RGBA{R: 243, G: 156, B: 18, A: 255}
)

// RenderCharts writes every PNG into outDir, creating it if needed.
func RenderCharts(s *analytics.Snapshot, orders []feature.OrderFeature, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	charts := []struct {
		file string
		fn   func(string) error
	}{
		{"revenue_by_category.png", func(p string) error { return revenueBarChart(s.RevenueByCategory, "Revenue by Product Category", p) }},
		{"revenue_by_state.png", func(p string) error { return revenueBarChart(s.RevenueByState, "Revenue by Customer State", p) }},
		{"delivery_delay_histogram.png", func(p string) error { return delayHistogram(orders, p) }},
		{"review_scores.png", func(p string) error { return scoreBarChart(s.ScoreDistribution, p) }},
		{"monthly_satisfaction.png", func(p string) error { return satisfactionLineChart(s.MonthlySatisfaction, p) }},
		{"lead_funnel.png", func(p string) error { return funnelChart(s.Funnel, p) }},
	}

	for _, c := range charts {
		path := filepath.Join(outDir, c.file)
		if err := c.fn(path); err != nil {
			return fmt.Errorf("chart %s: %w", c.file, err)
		}
		log.Debug().Str("file", path).Msg("chart rendered")
	}
	return nil
}

func revenueBarChart(rows []analytics.RevenueRow, title, path string) error {
	if len(rows) > topCategories {
		rows = rows[:topCategories]
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Revenue (R$)"

	values := make(plotter.Values, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		values[i] = r.Revenue
		labels[i] = r.Key
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.Color = barBlue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

func delayHistogram(orders []feature.OrderFeature, path string) error {
	var delays plotter.Values
	for _, o := range orders {
		if o.DelayDays == nil {
			continue
		}
		// Clip the long tails so the bulk of the distribution stays visible.
		d := *o.DelayDays
		if d < -30 {
			d = -30
		}
		if d > 30 {
			d = 30
		}
		delays = append(delays, d)
	}
	if len(delays) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Delivery Delay Distribution"
	p.X.Label.Text = "Delay (days, positive = late)"
	p.Y.Label.Text = "Orders"

	hist, err := plotter.NewHist(delays, 50)
	if err != nil {
		return err
	}
	hist.FillColor = barBlue
	p.Add(hist)

	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}

func scoreBarChart(dist []analytics.ScoreCount, path string) error {
	p := plot.New()
	p.Title.Text = "Review Score Distribution"
	p.X.Label.Text = "Score"
	p.Y.Label.Text = "Reviews"

	values := make(plotter.Values, len(dist))
	labels := make([]string, len(dist))
	for i, s := range dist {
		values[i] = float64(s.Count)
		labels[i] = fmt.Sprintf("%d", s.Score)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = barGreen
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

func satisfactionLineChart(monthly []analytics.MonthlyScore, path string) error {
	if len(monthly) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Average Customer Satisfaction Over Time"
	p.Y.Label.Text = "Average Review Score"
	p.Y.Min = 0
	p.Y.Max = 5

	pts := make(plotter.XYs, len(monthly))
	labels := make([]string, len(monthly))
	for i, m := range monthly {
		pts[i].X = float64(i)
		pts[i].Y = m.AvgScore
		labels[i] = m.Month
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = lineOrange
	line.Width = vg.Points(2)
	p.Add(line)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

func funnelChart(f analytics.Funnel, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Lead Conversion Funnel (%.1f%%)", f.ConversionRate*100)
	p.Y.Label.Text = "Leads"

	bars, err := plotter.NewBarChart(plotter.Values{
		float64(f.QualifiedLeads),
		float64(f.ClosedDeals),
	}, vg.Points(60))
	if err != nil {
		return err
	}
	bars.Color = barGreen
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX("Qualified Leads", "Closed Deals")

	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}
