// Package feature derives per-order and per-customer metrics from the
// cleaned tables. Every derivation is a pure function of its inputs; a
// missing input yields a nil feature, never a silent zero.
package feature

import (
	"time"

	"github.com/storelens/storelens/internal/dataset"
)

const hoursPerDay = 24

// daysPerMonth converts lifetime spans to months for the purchase-frequency
// and CLV formulas.
const daysPerMonth = 30

// OrderFeature is the feature row for one delivered-or-not order.
type OrderFeature struct {
	OrderID     string
	CustomerID  string
	CustomerUID string
	SellerID    string
	PurchasedAt time.Time
	Delivered   bool

	DelayDays    *float64
	DistanceKM   *float64
	Price        float64
	Freight      float64
	FreightRatio *float64
	WeightG      *float64
	VolumeCM3    *float64
	Installments *float64
	ReviewScore  *float64
}

// CustomerFeature aggregates one unique customer's purchase history.
type CustomerFeature struct {
	CustomerUID   string
	Orders        int
	FirstPurchase time.Time
	LastPurchase  time.Time

	LifetimeDays   float64
	OrdersPerMonth float64
	AvgOrderValue  float64
	AvgReview      *float64
	CLV            float64
}

// DeliveryDelayDays is the signed difference between actual and estimated
// delivery in days. Positive means late. Nil when the order was never
// delivered.
func DeliveryDelayDays(o dataset.Order) *float64 {
	if o.DeliveredAt == nil {
		return nil
	}
	d := o.DeliveredAt.Sub(o.EstimatedAt).Hours() / hoursPerDay
	return &d
}

// ProductVolumeCM3 multiplies the three dimensions, nil if any is missing.
func ProductVolumeCM3(p dataset.Product) *float64 {
	if p.LengthCM == nil || p.HeightCM == nil || p.WidthCM == nil {
		return nil
	}
	v := *p.LengthCM * *p.HeightCM * *p.WidthCM
	return &v
}

// FreightRatio is freight/price, nil when price is not positive.
func FreightRatio(price, freight float64) *float64 {
	if price <= 0 {
		return nil
	}
	r := freight / price
	return &r
}

// OrdersPerMonth floors the lifetime at one month so a single-order
// customer has a finite frequency of one order in their first month.
func OrdersPerMonth(orders int, lifetimeDays float64) float64 {
	months := lifetimeDays / daysPerMonth
	if months < 1 {
		months = 1
	}
	return float64(orders) / months
}

// CLV is a relative-ranking proxy, not currency-exact accounting.
func CLV(avgOrderValue, ordersPerMonth, lifetimeDays float64) float64 {
	months := lifetimeDays / daysPerMonth
	if months < 1 {
		months = 1
	}
	return avgOrderValue * ordersPerMonth * months
}

// ObservationEnd is the latest purchase timestamp in the order set. Churn
// labeling anchors to it so reruns over the same files are reproducible.
func ObservationEnd(orders []dataset.Order) time.Time {
	var end time.Time
	for _, o := range orders {
		if o.PurchasedAt.After(end) {
			end = o.PurchasedAt
		}
	}
	return end
}

// BuildOrderFeatures joins orders with their items, products, payments,
// reviews and the geo index into one feature row per order.
func BuildOrderFeatures(b *dataset.Bundle, geo *GeoIndex) []OrderFeature {
	customerByID := make(map[string]dataset.Customer, len(b.Customers))
	for _, c := range b.Customers {
		customerByID[c.ID] = c
	}
	productByID := make(map[string]dataset.Product, len(b.Products))
	for _, p := range b.Products {
		productByID[p.ID] = p
	}
	sellerByID := make(map[string]dataset.Seller, len(b.Sellers))
	for _, s := range b.Sellers {
		sellerByID[s.ID] = s
	}

	itemsByOrder := make(map[string][]dataset.OrderItem)
	for _, it := range b.OrderItems {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}
	paymentsByOrder := make(map[string][]dataset.Payment)
	for _, p := range b.Payments {
		paymentsByOrder[p.OrderID] = append(paymentsByOrder[p.OrderID], p)
	}
	reviewsByOrder := make(map[string][]dataset.Review)
	for _, r := range b.Reviews {
		reviewsByOrder[r.OrderID] = append(reviewsByOrder[r.OrderID], r)
	}

	out := make([]OrderFeature, 0, len(b.Orders))
	for _, o := range b.Orders {
		f := OrderFeature{
			OrderID:     o.ID,
			CustomerID:  o.CustomerID,
			PurchasedAt: o.PurchasedAt,
			Delivered:   o.DeliveredAt != nil,
			DelayDays:   DeliveryDelayDays(o),
		}

		cust, hasCustomer := customerByID[o.CustomerID]
		if hasCustomer {
			f.CustomerUID = cust.UniqueID
		}

		items := itemsByOrder[o.ID]
		weightKnown, volumeKnown := true, true
		var weight, volume float64
		for _, it := range items {
			f.Price += it.Price
			f.Freight += it.Freight
			if f.SellerID == "" {
				f.SellerID = it.SellerID
			}

			p, ok := productByID[it.ProductID]
			if !ok {
				weightKnown, volumeKnown = false, false
				continue
			}
			if p.WeightG == nil {
				weightKnown = false
			} else {
				weight += *p.WeightG
			}
			if v := ProductVolumeCM3(p); v == nil {
				volumeKnown = false
			} else {
				volume += *v
			}
		}
		if len(items) > 0 && weightKnown {
			f.WeightG = &weight
		}
		if len(items) > 0 && volumeKnown {
			f.VolumeCM3 = &volume
		}
		f.FreightRatio = FreightRatio(f.Price, f.Freight)

		if hasCustomer {
			if seller, ok := sellerByID[f.SellerID]; ok {
				f.DistanceKM = geo.DistanceKM(seller.ZipPrefix, cust.ZipPrefix)
			}
		}

		if payments := paymentsByOrder[o.ID]; len(payments) > 0 {
			max := 0
			for _, p := range payments {
				if p.Installments > max {
					max = p.Installments
				}
			}
			inst := float64(max)
			f.Installments = &inst
		}

		if reviews := reviewsByOrder[o.ID]; len(reviews) > 0 {
			sum := 0
			for _, r := range reviews {
				sum += r.Score
			}
			avg := float64(sum) / float64(len(reviews))
			f.ReviewScore = &avg
		}

		out = append(out, f)
	}
	return out
}

// BuildCustomerFeatures folds order features per unique customer.
func BuildCustomerFeatures(orders []OrderFeature) []CustomerFeature {
	type acc struct {
		first, last  time.Time
		orders       int
		revenue      float64
		reviewSum    float64
		reviewCount  int
	}
	accs := make(map[string]*acc)
	var uids []string
	for _, o := range orders {
		if o.CustomerUID == "" {
			continue
		}
		a := accs[o.CustomerUID]
		if a == nil {
			a = &acc{first: o.PurchasedAt, last: o.PurchasedAt}
			accs[o.CustomerUID] = a
			uids = append(uids, o.CustomerUID)
		}
		if o.PurchasedAt.Before(a.first) {
			a.first = o.PurchasedAt
		}
		if o.PurchasedAt.After(a.last) {
			a.last = o.PurchasedAt
		}
		a.orders++
		a.revenue += o.Price
		if o.ReviewScore != nil {
			a.reviewSum += *o.ReviewScore
			a.reviewCount++
		}
	}

	out := make([]CustomerFeature, 0, len(uids))
	for _, uid := range uids {
		a := accs[uid]
		lifetime := a.last.Sub(a.first).Hours() / hoursPerDay
		avgValue := a.revenue / float64(a.orders)
		perMonth := OrdersPerMonth(a.orders, lifetime)

		f := CustomerFeature{
			CustomerUID:    uid,
			Orders:         a.orders,
			FirstPurchase:  a.first,
			LastPurchase:   a.last,
			LifetimeDays:   lifetime,
			OrdersPerMonth: perMonth,
			AvgOrderValue:  avgValue,
			CLV:            CLV(avgValue, perMonth, lifetime),
		}
		if a.reviewCount > 0 {
			avg := a.reviewSum / float64(a.reviewCount)
			f.AvgReview = &avg
		}
		out = append(out, f)
	}
	return out
}
