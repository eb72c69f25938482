// Package analytics materializes the aggregate tables the charts, workbook
// and dashboard consume. Aggregation reads cleaned tables and derived
// features; it owns no presentation logic.
package analytics

import (
	"math"
	"sort"

	"github.com/storelens/storelens/internal/dataset"
	"github.com/storelens/storelens/internal/feature"
)

type RevenueRow struct {
	Key     string  `json:"key"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

const (
	DeliveryEarly  = "early"
	DeliveryOnTime = "on_time"
	DeliveryLate   = "late"
)

type DeliverySummary struct {
	Delivered   int     `json:"delivered"`
	Early       int     `json:"early"`
	OnTime      int     `json:"on_time"`
	Late        int     `json:"late"`
	MeanDelay   float64 `json:"mean_delay_days"`
	MedianDelay float64 `json:"median_delay_days"`
	P90Delay    float64 `json:"p90_delay_days"`
}

type MonthlyScore struct {
	Month    string  `json:"month"`
	AvgScore float64 `json:"avg_score"`
	Reviews  int     `json:"reviews"`
}

type ScoreCount struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

type Funnel struct {
	QualifiedLeads int     `json:"qualified_leads"`
	ClosedDeals    int     `json:"closed_deals"`
	ConversionRate float64 `json:"conversion_rate"`
}

type GroupConversion struct {
	Group  string  `json:"group"`
	Leads  int     `json:"leads"`
	Closed int     `json:"closed"`
	Rate   float64 `json:"rate"`
}

type PaymentTypeRow struct {
	Type            string  `json:"type"`
	Count           int     `json:"count"`
	Value           float64 `json:"value"`
	AvgInstallments float64 `json:"avg_installments"`
}

// Snapshot is the full set of aggregate tables for one pipeline run.
type Snapshot struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalOrders  int     `json:"total_orders"`

	RevenueByCategory []RevenueRow `json:"revenue_by_category"`
	RevenueByState    []RevenueRow `json:"revenue_by_state"`
	RevenueBySeller   []RevenueRow `json:"revenue_by_seller"`

	Delivery            DeliverySummary `json:"delivery"`
	ScoreDistribution   []ScoreCount    `json:"score_distribution"`
	MonthlySatisfaction []MonthlyScore  `json:"monthly_satisfaction"`

	Funnel              Funnel            `json:"funnel"`
	ConversionBySegment []GroupConversion `json:"conversion_by_segment"`
	ConversionByOrigin  []GroupConversion `json:"conversion_by_origin"`

	Payments []PaymentTypeRow `json:"payments"`

	DelayReview    DelayReviewStats `json:"delay_review"`
	FeatureColumns []FeatureSummary `json:"feature_columns"`
}

// FeatureSummary pairs one numeric feature column with its descriptive
// statistics over the orders that carry a value for it.
type FeatureSummary struct {
	Feature string `json:"feature"`
	Describe
}

// DeliveryStatus classifies a signed delay the way the reports bucket it:
// the whole-day difference decides, so a delivery later the same calendar
// day as the estimate still counts as on time.
func DeliveryStatus(delayDays float64) string {
	switch d := math.Floor(delayDays); {
	case d < 0:
		return DeliveryEarly
	case d == 0:
		return DeliveryOnTime
	default:
		return DeliveryLate
	}
}

// Build computes every aggregate table from the cleaned bundle and the
// per-order features.
func Build(b *dataset.Bundle, orders []feature.OrderFeature) *Snapshot {
	s := &Snapshot{}

	english := make(map[string]string, len(b.Translations))
	for _, t := range b.Translations {
		english[t.Category] = t.English
	}
	productCategory := make(map[string]string, len(b.Products))
	for _, p := range b.Products {
		cat := p.Category
		if en, ok := english[cat]; ok && en != "" {
			cat = en
		}
		productCategory[p.ID] = cat
	}
	customerState := make(map[string]string, len(b.Customers))
	for _, c := range b.Customers {
		customerState[c.ID] = c.State
	}
	orderCustomer := make(map[string]string, len(b.Orders))
	for _, o := range b.Orders {
		orderCustomer[o.ID] = o.CustomerID
	}

	byCategory := map[string]*RevenueRow{}
	byState := map[string]*RevenueRow{}
	bySeller := map[string]*RevenueRow{}
	for _, it := range b.OrderItems {
		s.TotalRevenue += it.Price

		if cat, ok := productCategory[it.ProductID]; ok && cat != "" {
			addRevenue(byCategory, cat, it.Price)
		}
		if state, ok := customerState[orderCustomer[it.OrderID]]; ok && state != "" {
			addRevenue(byState, state, it.Price)
		}
		addRevenue(bySeller, it.SellerID, it.Price)
	}
	s.TotalOrders = len(b.Orders)
	s.RevenueByCategory = sortRevenue(byCategory)
	s.RevenueByState = sortRevenue(byState)
	s.RevenueBySeller = sortRevenue(bySeller)

	s.Delivery = summarizeDelivery(orders)
	s.ScoreDistribution, s.MonthlySatisfaction = summarizeSatisfaction(b)
	s.Funnel, s.ConversionBySegment, s.ConversionByOrigin = summarizeLeads(b)
	s.Payments = summarizePayments(b.Payments)
	s.DelayReview = DelayReviewCorrelation(orders)
	s.FeatureColumns = summarizeFeatures(orders)

	return s
}

func addRevenue(m map[string]*RevenueRow, key string, price float64) {
	row := m[key]
	if row == nil {
		row = &RevenueRow{Key: key}
		m[key] = row
	}
	row.Revenue += price
	row.Orders++
}

func sortRevenue(m map[string]*RevenueRow) []RevenueRow {
	out := make([]RevenueRow, 0, len(m))
	for _, row := range m {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func summarizeDelivery(orders []feature.OrderFeature) DeliverySummary {
	var sum DeliverySummary
	var delays []float64
	for _, o := range orders {
		if o.DelayDays == nil {
			continue
		}
		sum.Delivered++
		delays = append(delays, *o.DelayDays)
		switch DeliveryStatus(*o.DelayDays) {
		case DeliveryEarly:
			sum.Early++
		case DeliveryOnTime:
			sum.OnTime++
		case DeliveryLate:
			sum.Late++
		}
	}
	if len(delays) == 0 {
		return sum
	}
	sum.MeanDelay = Mean(delays)
	sum.MedianDelay = Quantile(delays, 0.5)
	sum.P90Delay = Quantile(delays, 0.9)
	return sum
}

func summarizeSatisfaction(b *dataset.Bundle) ([]ScoreCount, []MonthlyScore) {
	purchaseMonth := make(map[string]string, len(b.Orders))
	for _, o := range b.Orders {
		purchaseMonth[o.ID] = o.PurchasedAt.Format("2006-01")
	}

	counts := map[int]int{}
	type monthAcc struct {
		sum float64
		n   int
	}
	months := map[string]*monthAcc{}
	for _, r := range b.Reviews {
		counts[r.Score]++
		month, ok := purchaseMonth[r.OrderID]
		if !ok {
			continue
		}
		a := months[month]
		if a == nil {
			a = &monthAcc{}
			months[month] = a
		}
		a.sum += float64(r.Score)
		a.n++
	}

	dist := make([]ScoreCount, 0, 5)
	for score := 1; score <= 5; score++ {
		dist = append(dist, ScoreCount{Score: score, Count: counts[score]})
	}

	monthly := make([]MonthlyScore, 0, len(months))
	for month, a := range months {
		monthly = append(monthly, MonthlyScore{Month: month, AvgScore: a.sum / float64(a.n), Reviews: a.n})
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month < monthly[j].Month })

	return dist, monthly
}

func summarizeLeads(b *dataset.Bundle) (Funnel, []GroupConversion, []GroupConversion) {
	closedByMQL := make(map[string]dataset.ClosedDeal, len(b.ClosedDeals))
	for _, d := range b.ClosedDeals {
		closedByMQL[d.MQLID] = d
	}

	funnel := Funnel{QualifiedLeads: len(b.Leads), ClosedDeals: len(b.ClosedDeals)}
	if funnel.QualifiedLeads > 0 {
		funnel.ConversionRate = float64(funnel.ClosedDeals) / float64(funnel.QualifiedLeads)
	}

	bySegment := map[string]*GroupConversion{}
	byOrigin := map[string]*GroupConversion{}
	for _, l := range b.Leads {
		deal, closed := closedByMQL[l.MQLID]

		origin := l.Origin
		if origin == "" {
			origin = "unknown"
		}
		addConversion(byOrigin, origin, closed)

		// Segment comes from the deal side of the join, so open leads are
		// only countable when a segment is known.
		if closed && deal.Segment != "" {
			addConversion(bySegment, deal.Segment, true)
		}
	}

	return funnel, sortConversions(bySegment), sortConversions(byOrigin)
}

func addConversion(m map[string]*GroupConversion, key string, closed bool) {
	g := m[key]
	if g == nil {
		g = &GroupConversion{Group: key}
		m[key] = g
	}
	g.Leads++
	if closed {
		g.Closed++
	}
	g.Rate = float64(g.Closed) / float64(g.Leads)
}

func sortConversions(m map[string]*GroupConversion) []GroupConversion {
	out := make([]GroupConversion, 0, len(m))
	for _, g := range m {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// summarizeFeatures describes every numeric feature column. Columns with no
// populated values are omitted rather than reported as all-zero.
func summarizeFeatures(orders []feature.OrderFeature) []FeatureSummary {
	cols := []struct {
		name  string
		value func(feature.OrderFeature) (float64, bool)
	}{
		{"delay_days", func(o feature.OrderFeature) (float64, bool) { return deref(o.DelayDays) }},
		{"distance_km", func(o feature.OrderFeature) (float64, bool) { return deref(o.DistanceKM) }},
		{"price", func(o feature.OrderFeature) (float64, bool) { return o.Price, true }},
		{"freight_value", func(o feature.OrderFeature) (float64, bool) { return o.Freight, true }},
		{"freight_ratio", func(o feature.OrderFeature) (float64, bool) { return deref(o.FreightRatio) }},
		{"weight_g", func(o feature.OrderFeature) (float64, bool) { return deref(o.WeightG) }},
		{"volume_cm3", func(o feature.OrderFeature) (float64, bool) { return deref(o.VolumeCM3) }},
		{"installments", func(o feature.OrderFeature) (float64, bool) { return deref(o.Installments) }},
	}

	out := make([]FeatureSummary, 0, len(cols))
	for _, c := range cols {
		var xs []float64
		for _, o := range orders {
			if v, ok := c.value(o); ok {
				xs = append(xs, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		out = append(out, FeatureSummary{Feature: c.name, Describe: DescribeColumn(xs)})
	}
	return out
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func summarizePayments(payments []dataset.Payment) []PaymentTypeRow {
	byType := map[string]*PaymentTypeRow{}
	installments := map[string]int{}
	for _, p := range payments {
		row := byType[p.Type]
		if row == nil {
			row = &PaymentTypeRow{Type: p.Type}
			byType[p.Type] = row
		}
		row.Count++
		row.Value += p.Value
		installments[p.Type] += p.Installments
	}
	out := make([]PaymentTypeRow, 0, len(byType))
	for _, row := range byType {
		row.AvgInstallments = float64(installments[row.Type]) / float64(row.Count)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}
