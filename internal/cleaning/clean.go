// Package cleaning normalizes the raw tables: exact duplicates are removed,
// bounded fields are forced into their domain, and rows breaking basic
// ordering invariants are discarded. Dropped rows are counted, never
// repaired.
package cleaning

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storelens/storelens/internal/dataset"
)

const (
	ReasonDuplicate  = "duplicate"
	ReasonOutOfRange = "out_of_range"
	ReasonInvariant  = "invariant_violation"
)

// Drop is one audit line: how many rows of a dataset were discarded and why.
type Drop struct {
	Dataset string `json:"dataset"`
	Reason  string `json:"reason"`
	Count   int    `json:"count"`
}

type Report struct {
	Drops []Drop `json:"drops"`
}

func (r *Report) add(ds, reason string, n int) {
	if n == 0 {
		return
	}
	r.Drops = append(r.Drops, Drop{Dataset: ds, Reason: reason, Count: n})
	log.Debug().Str("dataset", ds).Str("reason", reason).Int("count", n).Msg("rows dropped")
}

// Total returns the number of dropped rows across all datasets.
func (r *Report) Total() int {
	total := 0
	for _, d := range r.Drops {
		total += d.Count
	}
	return total
}

// Clean returns a normalized copy of the bundle and the audit report.
// Cleaning is idempotent: cleaning an already-clean bundle drops nothing.
func Clean(b *dataset.Bundle) (*dataset.Bundle, Report) {
	out := &dataset.Bundle{}
	var report Report

	out.Orders, report.Drops = cleanOrders(b.Orders, report.Drops)
	out.Customers = dedupe(b.Customers, &report, "customers", func(c dataset.Customer) string {
		return c.ID + "|" + c.UniqueID
	})
	out.OrderItems = dedupe(b.OrderItems, &report, "order_items", func(i dataset.OrderItem) string {
		return fmt.Sprintf("%s|%d", i.OrderID, i.Seq)
	})
	out.Products = dedupe(b.Products, &report, "products", func(p dataset.Product) string {
		return p.ID
	})
	out.Sellers = dedupe(b.Sellers, &report, "sellers", func(s dataset.Seller) string {
		return s.ID
	})
	out.Reviews, report.Drops = cleanReviews(b.Reviews, report.Drops)
	out.Payments, report.Drops = cleanPayments(b.Payments, report.Drops)
	out.Geolocations = dedupe(b.Geolocations, &report, "geolocation", func(g dataset.Geolocation) string {
		return fmt.Sprintf("%s|%.6f|%.6f", g.ZipPrefix, g.Lat, g.Lng)
	})
	out.Translations = dedupe(b.Translations, &report, "category_translations", func(t dataset.CategoryTranslation) string {
		return t.Category
	})
	out.Leads = dedupe(b.Leads, &report, "qualified_leads", func(l dataset.Lead) string {
		return l.MQLID
	})
	out.ClosedDeals = dedupe(b.ClosedDeals, &report, "closed_deals", func(d dataset.ClosedDeal) string {
		return d.MQLID
	})

	return out, report
}

// dedupe keeps the first occurrence of every key.
func dedupe[T any](rows []T, report *Report, name string, key func(T) string) []T {
	seen := make(map[string]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	report.add(name, ReasonDuplicate, len(rows)-len(out))
	return out
}

func cleanOrders(orders []dataset.Order, drops []Drop) ([]dataset.Order, []Drop) {
	report := Report{Drops: drops}
	deduped := dedupe(orders, &report, "orders", func(o dataset.Order) string { return o.ID })

	out := make([]dataset.Order, 0, len(deduped))
	invariant := 0
	for _, o := range deduped {
		// Delivery before purchase is data-quality noise, not a real order.
		if o.DeliveredAt != nil && o.DeliveredAt.Before(o.PurchasedAt) {
			invariant++
			continue
		}
		out = append(out, o)
	}
	report.add("orders", ReasonInvariant, invariant)
	return out, report.Drops
}

func cleanReviews(reviews []dataset.Review, drops []Drop) ([]dataset.Review, []Drop) {
	report := Report{Drops: drops}
	deduped := dedupe(reviews, &report, "order_reviews", func(r dataset.Review) string {
		return r.ID + "|" + r.OrderID
	})

	out := make([]dataset.Review, 0, len(deduped))
	outOfRange := 0
	for _, r := range deduped {
		if r.Score < 1 || r.Score > 5 {
			outOfRange++
			continue
		}
		out = append(out, r)
	}
	report.add("order_reviews", ReasonOutOfRange, outOfRange)
	return out, report.Drops
}

func cleanPayments(payments []dataset.Payment, drops []Drop) ([]dataset.Payment, []Drop) {
	report := Report{Drops: drops}
	deduped := dedupe(payments, &report, "order_payments", func(p dataset.Payment) string {
		return fmt.Sprintf("%s|%d", p.OrderID, p.Sequential)
	})

	out := make([]dataset.Payment, 0, len(deduped))
	outOfRange := 0
	for _, p := range deduped {
		if p.Value < 0 || p.Installments < 0 {
			outOfRange++
			continue
		}
		out = append(out, p)
	}
	report.add("order_payments", ReasonOutOfRange, outOfRange)
	return out, report.Drops
}
