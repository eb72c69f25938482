// Package pipeline wires the batch stages end to end: ingest → clean →
// feature-engineer → aggregate → train → render. Stages run strictly in
// order; each fully materializes its output before the next starts.
package pipeline

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/cleaning"
	"github.com/storelens/storelens/internal/dataset"
	"github.com/storelens/storelens/internal/feature"
	"github.com/storelens/storelens/internal/report"
	"github.com/storelens/storelens/internal/train"
)

type Options struct {
	DataDir       string
	ManifestPath  string
	OutputDir     string
	Seed          int64
	MinRows       int
	TestFrac      float64
	RenderReports bool
}

// Run is the materialized result of one pipeline execution; the dashboard
// serves it as-is.
type Run struct {
	ID         string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration"`
	LoadReport dataset.LoadReport `json:"load_report"`
	Clean      cleaning.Report    `json:"clean_report"`

	Bundle    *dataset.Bundle          `json:"-"`
	Orders    []feature.OrderFeature   `json:"-"`
	Customers []feature.CustomerFeature `json:"-"`

	Snapshot *analytics.Snapshot `json:"-"`
	Results  []*train.Result     `json:"-"`
	Skipped  []string            `json:"skipped_tasks"`
}

// Execute runs every stage once over the flat files in opts.DataDir.
func Execute(opts Options) (*Run, error) {
	runID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}

	run := &Run{ID: runID.String(), StartedAt: time.Now()}
	logger := log.With().Str("run_id", run.ID).Logger()

	manifest, err := dataset.LoadManifest(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	stageStart := time.Now()
	raw, loadReport, err := dataset.Load(opts.DataDir, manifest)
	if err != nil {
		return nil, fmt.Errorf("ingestion failed: %w", err)
	}
	run.LoadReport = loadReport
	logger.Info().Dur("took", time.Since(stageStart)).Int("orders", len(raw.Orders)).Msg("ingestion done")

	stageStart = time.Now()
	clean, cleanReport := cleaning.Clean(raw)
	run.Bundle = clean
	run.Clean = cleanReport
	logger.Info().Dur("took", time.Since(stageStart)).Int("dropped", cleanReport.Total()).Msg("cleaning done")

	stageStart = time.Now()
	geo := feature.NewGeoIndex(clean.Geolocations)
	run.Orders = feature.BuildOrderFeatures(clean, geo)
	run.Customers = feature.BuildCustomerFeatures(run.Orders)
	logger.Info().
		Dur("took", time.Since(stageStart)).
		Int("order_features", len(run.Orders)).
		Int("customer_features", len(run.Customers)).
		Msg("feature engineering done")

	stageStart = time.Now()
	run.Snapshot = analytics.Build(clean, run.Orders)
	logger.Info().Dur("took", time.Since(stageStart)).Msg("aggregation done")

	stageStart = time.Now()
	runner := train.NewRunner(opts.Seed, opts.MinRows, opts.TestFrac)
	results, skipped, err := runner.RunAll(
		train.DelayRegression(run.Orders),
		train.ReviewRegression(run.Orders),
		train.ChurnClassification(run.Customers, feature.ObservationEnd(clean.Orders)),
		train.LeadConversion(clean.Leads, clean.ClosedDeals),
	)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	run.Results = results
	run.Skipped = skipped
	logger.Info().
		Dur("took", time.Since(stageStart)).
		Int("trained", len(results)).
		Strs("skipped", skipped).
		Msg("training done")

	if opts.RenderReports {
		stageStart = time.Now()
		if err := report.RenderCharts(run.Snapshot, run.Orders, opts.OutputDir); err != nil {
			return nil, fmt.Errorf("chart rendering failed: %w", err)
		}
		if err := report.WriteWorkbook(run.Snapshot, run.Results, opts.OutputDir); err != nil {
			return nil, fmt.Errorf("workbook export failed: %w", err)
		}
		logger.Info().Dur("took", time.Since(stageStart)).Str("dir", opts.OutputDir).Msg("reports written")
	}

	run.Duration = time.Since(run.StartedAt)
	return run, nil
}
