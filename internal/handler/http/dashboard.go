// Package http serves the dashboard API. Handlers read the precomputed
// pipeline run; they own no business logic beyond slicing and limits.
package http

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/pipeline"
	"github.com/storelens/storelens/internal/train"
)

//go:embed index.html
var indexHTML []byte

const defaultLimit = 10

type topQuery struct {
	Limit int `validate:"min=1,max=100"`
}

type DashboardHandler struct {
	run      *pipeline.Run
	validate *validator.Validate
}

func NewDashboardHandler(run *pipeline.Run) *DashboardHandler {
	return &DashboardHandler{
		run:      run,
		validate: validator.New(),
	}
}

func (h *DashboardHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleIndex)
	router.Get("/health", h.handleHealth)
	router.Get("/api/overview", h.handleOverview)
	router.Get("/api/revenue/categories", h.handleRevenue(func() []analytics.RevenueRow { return h.run.Snapshot.RevenueByCategory }))
	router.Get("/api/revenue/states", h.handleRevenue(func() []analytics.RevenueRow { return h.run.Snapshot.RevenueByState }))
	router.Get("/api/revenue/sellers", h.handleRevenue(func() []analytics.RevenueRow { return h.run.Snapshot.RevenueBySeller }))
	router.Get("/api/delivery", h.handleDelivery)
	router.Get("/api/satisfaction", h.handleSatisfaction)
	router.Get("/api/leads", h.handleLeads)
	router.Get("/api/models", h.handleModels)
	router.Get("/api/audit", h.handleAudit)
}

func (h *DashboardHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		log.Error().Err(err).Msg("Failed to write index page")
	}
}

func (h *DashboardHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// OverviewResponse backs the KPI cards.
type OverviewResponse struct {
	RunID              string  `json:"run_id"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalOrders        int     `json:"total_orders"`
	EarlyDeliveryRate  float64 `json:"early_delivery_rate"`
	AvgSatisfaction    float64 `json:"avg_satisfaction"`
	LeadConversionRate float64 `json:"lead_conversion_rate"`
}

func (h *DashboardHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	s := h.run.Snapshot

	resp := OverviewResponse{
		RunID:              h.run.ID,
		TotalRevenue:       s.TotalRevenue,
		TotalOrders:        s.TotalOrders,
		LeadConversionRate: s.Funnel.ConversionRate,
	}
	if s.Delivery.Delivered > 0 {
		resp.EarlyDeliveryRate = float64(s.Delivery.Early) / float64(s.Delivery.Delivered)
	}

	var scoreSum, scoreCount float64
	for _, sc := range s.ScoreDistribution {
		scoreSum += float64(sc.Score * sc.Count)
		scoreCount += float64(sc.Count)
	}
	if scoreCount > 0 {
		resp.AvgSatisfaction = scoreSum / scoreCount
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *DashboardHandler) handleRevenue(rows func() []analytics.RevenueRow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := h.parseLimit(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		all := rows()
		if limit < len(all) {
			all = all[:limit]
		}
		respondWithJSON(w, http.StatusOK, all)
	}
}

func (h *DashboardHandler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"summary":      h.run.Snapshot.Delivery,
		"delay_review": h.run.Snapshot.DelayReview,
		"features":     h.run.Snapshot.FeatureColumns,
	})
}

func (h *DashboardHandler) handleSatisfaction(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"monthly":      h.run.Snapshot.MonthlySatisfaction,
		"distribution": h.run.Snapshot.ScoreDistribution,
	})
}

func (h *DashboardHandler) handleLeads(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"funnel":     h.run.Snapshot.Funnel,
		"by_segment": h.run.Snapshot.ConversionBySegment,
		"by_origin":  h.run.Snapshot.ConversionByOrigin,
	})
}

// ModelsResponse flags skipped tasks next to the trained ones.
type ModelsResponse struct {
	Results []*train.Result `json:"results"`
	Skipped []string        `json:"skipped"`
}

func (h *DashboardHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, ModelsResponse{
		Results: h.run.Results,
		Skipped: h.run.Skipped,
	})
}

func (h *DashboardHandler) handleAudit(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":       h.run.ID,
		"started_at":   h.run.StartedAt,
		"duration_ms":  h.run.Duration.Milliseconds(),
		"load_report":  h.run.LoadReport,
		"clean_report": h.run.Clean,
	})
}

func (h *DashboardHandler) parseLimit(r *http.Request) (int, error) {
	q := topQuery{Limit: defaultLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("limit must be an integer, got %q", raw)
		}
		q.Limit = n
	}
	if err := h.validate.Struct(q); err != nil {
		return 0, fmt.Errorf("limit must be between 1 and 100")
	}
	return q.Limit, nil
}
