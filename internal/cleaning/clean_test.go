package cleaning_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/cleaning"
	"github.com/storelens/storelens/internal/dataset"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestCleanReviewScores(t *testing.T) {
	b := &dataset.Bundle{
		Reviews: []dataset.Review{
			{ID: "r1", OrderID: "o1", Score: 1},
			{ID: "r2", OrderID: "o2", Score: 5},
			{ID: "r3", OrderID: "o3", Score: 0},
			{ID: "r4", OrderID: "o4", Score: 6},
			{ID: "r5", OrderID: "o5", Score: -2},
		},
	}

	clean, report := cleaning.Clean(b)

	require.Len(t, clean.Reviews, 2)
	for _, r := range clean.Reviews {
		assert.GreaterOrEqual(t, r.Score, 1)
		assert.LessOrEqual(t, r.Score, 5)
	}

	var outOfRange int
	for _, d := range report.Drops {
		if d.Dataset == "order_reviews" && d.Reason == cleaning.ReasonOutOfRange {
			outOfRange = d.Count
		}
	}
	assert.Equal(t, 3, outOfRange)
}

func TestCleanDedupeIdempotent(t *testing.T) {
	b := &dataset.Bundle{
		Customers: []dataset.Customer{
			{ID: "c1", UniqueID: "u1"},
			{ID: "c1", UniqueID: "u1"},
			{ID: "c2", UniqueID: "u2"},
		},
		Geolocations: []dataset.Geolocation{
			{ZipPrefix: "01001", Lat: -23.55, Lng: -46.63},
			{ZipPrefix: "01001", Lat: -23.55, Lng: -46.63},
		},
	}

	once, report := cleaning.Clean(b)
	assert.Len(t, once.Customers, 2)
	assert.Len(t, once.Geolocations, 1)
	assert.Equal(t, 2, report.Total())

	twice, secondReport := cleaning.Clean(once)
	assert.Len(t, twice.Customers, len(once.Customers), "cleaning twice changes nothing")
	assert.Len(t, twice.Geolocations, len(once.Geolocations))
	assert.Zero(t, secondReport.Total())
}

func TestCleanOrderInvariant(t *testing.T) {
	b := &dataset.Bundle{
		Orders: []dataset.Order{
			{
				ID:          "ok",
				PurchasedAt: ts("2018-01-01"),
				EstimatedAt: ts("2018-01-10"),
				DeliveredAt: tsPtr("2018-01-09"),
			},
			{
				ID:          "delivered_before_purchase",
				PurchasedAt: ts("2018-01-05"),
				EstimatedAt: ts("2018-01-10"),
				DeliveredAt: tsPtr("2018-01-02"),
			},
			{
				ID:          "undelivered",
				PurchasedAt: ts("2018-01-05"),
				EstimatedAt: ts("2018-01-10"),
			},
		},
	}

	clean, report := cleaning.Clean(b)

	require.Len(t, clean.Orders, 2)
	ids := []string{clean.Orders[0].ID, clean.Orders[1].ID}
	assert.ElementsMatch(t, []string{"ok", "undelivered"}, ids)

	var invariant int
	for _, d := range report.Drops {
		if d.Dataset == "orders" && d.Reason == cleaning.ReasonInvariant {
			invariant = d.Count
		}
	}
	assert.Equal(t, 1, invariant)
}

func TestCleanPayments(t *testing.T) {
	b := &dataset.Bundle{
		Payments: []dataset.Payment{
			{OrderID: "o1", Sequential: 1, Type: "credit_card", Installments: 3, Value: 120},
			{OrderID: "o1", Sequential: 1, Type: "credit_card", Installments: 3, Value: 120},
			{OrderID: "o2", Sequential: 1, Type: "boleto", Installments: 1, Value: -7},
		},
	}

	clean, report := cleaning.Clean(b)
	require.Len(t, clean.Payments, 1)
	assert.Equal(t, "o1", clean.Payments[0].OrderID)
	assert.Equal(t, 2, report.Total())
}
