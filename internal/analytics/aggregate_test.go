package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/analytics"
	"github.com/storelens/storelens/internal/dataset"
	"github.com/storelens/storelens/internal/feature"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDeliveryStatus(t *testing.T) {
	tests := []struct {
		name  string
		delay float64
		want  string
	}{
		{"clearly_late", 3, analytics.DeliveryLate},
		{"clearly_early", -2, analytics.DeliveryEarly},
		{"same_day", 0.4, analytics.DeliveryOnTime},
		{"just_before_midnight", -0.1, analytics.DeliveryEarly},
		{"exactly_zero", 0, analytics.DeliveryOnTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.DeliveryStatus(tt.delay))
		})
	}
}

func TestBuildRevenueTables(t *testing.T) {
	b := &dataset.Bundle{
		Orders: []dataset.Order{
			{ID: "o1", CustomerID: "c1", PurchasedAt: ts("2018-01-03")},
			{ID: "o2", CustomerID: "c2", PurchasedAt: ts("2018-02-03")},
		},
		Customers: []dataset.Customer{
			{ID: "c1", UniqueID: "u1", State: "SP"},
			{ID: "c2", UniqueID: "u2", State: "RJ"},
		},
		OrderItems: []dataset.OrderItem{
			{OrderID: "o1", Seq: 1, ProductID: "p1", SellerID: "s1", Price: 100},
			{OrderID: "o1", Seq: 2, ProductID: "p2", SellerID: "s1", Price: 50},
			{OrderID: "o2", Seq: 1, ProductID: "p1", SellerID: "s2", Price: 30},
		},
		Products: []dataset.Product{
			{ID: "p1", Category: "informatica_acessorios"},
			{ID: "p2", Category: "beleza_saude"},
		},
		Translations: []dataset.CategoryTranslation{
			{Category: "informatica_acessorios", English: "computers_accessories"},
			{Category: "beleza_saude", English: "health_beauty"},
		},
	}

	s := analytics.Build(b, nil)

	assert.InDelta(t, 180, s.TotalRevenue, 1e-9)
	assert.Equal(t, 2, s.TotalOrders)

	require.NotEmpty(t, s.RevenueByCategory)
	assert.Equal(t, "computers_accessories", s.RevenueByCategory[0].Key)
	assert.InDelta(t, 130, s.RevenueByCategory[0].Revenue, 1e-9)

	require.Len(t, s.RevenueByState, 2)
	assert.Equal(t, "SP", s.RevenueByState[0].Key)
	assert.InDelta(t, 150, s.RevenueByState[0].Revenue, 1e-9)

	require.Len(t, s.RevenueBySeller, 2)
	assert.Equal(t, "s1", s.RevenueBySeller[0].Key)
}

func TestBuildDeliverySummary(t *testing.T) {
	late, early, onTime := 3.0, -2.0, 0.2
	orders := []feature.OrderFeature{
		{DelayDays: &late},
		{DelayDays: &late},
		{DelayDays: &early},
		{DelayDays: &onTime},
		{DelayDays: nil}, // undelivered orders stay out of the stats
	}

	s := analytics.Build(&dataset.Bundle{}, orders)

	assert.Equal(t, 4, s.Delivery.Delivered)
	assert.Equal(t, 2, s.Delivery.Late)
	assert.Equal(t, 1, s.Delivery.Early)
	assert.Equal(t, 1, s.Delivery.OnTime)
	assert.InDelta(t, (3+3-2+0.2)/4, s.Delivery.MeanDelay, 1e-9)
}

func TestBuildLeadFunnel(t *testing.T) {
	b := &dataset.Bundle{
		Leads: []dataset.Lead{
			{MQLID: "l1", FirstContact: ts("2018-01-01"), Origin: "paid_search"},
			{MQLID: "l2", FirstContact: ts("2018-01-02"), Origin: "paid_search"},
			{MQLID: "l3", FirstContact: ts("2018-01-03"), Origin: "organic_search"},
			{MQLID: "l4", FirstContact: ts("2018-01-04"), Origin: ""},
		},
		ClosedDeals: []dataset.ClosedDeal{
			{MQLID: "l1", Segment: "home_decor", WonAt: ts("2018-02-01")},
		},
	}

	s := analytics.Build(b, nil)

	assert.Equal(t, 4, s.Funnel.QualifiedLeads)
	assert.Equal(t, 1, s.Funnel.ClosedDeals)
	assert.InDelta(t, 0.25, s.Funnel.ConversionRate, 1e-9)

	require.Len(t, s.ConversionBySegment, 1)
	assert.Equal(t, "home_decor", s.ConversionBySegment[0].Group)

	byOrigin := map[string]analytics.GroupConversion{}
	for _, g := range s.ConversionByOrigin {
		byOrigin[g.Group] = g
	}
	assert.Equal(t, 2, byOrigin["paid_search"].Leads)
	assert.Equal(t, 1, byOrigin["paid_search"].Closed)
	assert.Equal(t, 1, byOrigin["unknown"].Leads, "empty origin is bucketed as unknown")
}

func TestBuildFeatureSummaries(t *testing.T) {
	d1, d2, d3 := -2.0, 1.0, 4.0
	dist := 360.0
	orders := []feature.OrderFeature{
		{DelayDays: &d1, DistanceKM: &dist, Price: 100, Freight: 20},
		{DelayDays: &d2, Price: 50, Freight: 10},
		{DelayDays: &d3, Price: 150, Freight: 30},
	}

	s := analytics.Build(&dataset.Bundle{}, orders)

	byFeature := map[string]analytics.FeatureSummary{}
	for _, fs := range s.FeatureColumns {
		byFeature[fs.Feature] = fs
	}

	delay, ok := byFeature["delay_days"]
	require.True(t, ok)
	assert.Equal(t, 3, delay.N)
	assert.InDelta(t, 1, delay.Mean, 1e-9)
	assert.InDelta(t, -2, delay.Min, 1e-9)
	assert.InDelta(t, 4, delay.Max, 1e-9)
	assert.InDelta(t, 1, delay.Median, 1e-9)

	distance, ok := byFeature["distance_km"]
	require.True(t, ok, "a column with any populated rows is summarized")
	assert.Equal(t, 1, distance.N)

	price, ok := byFeature["price"]
	require.True(t, ok)
	assert.Equal(t, 3, price.N)
	assert.InDelta(t, 100, price.Mean, 1e-9)

	_, ok = byFeature["weight_g"]
	assert.False(t, ok, "columns with no populated rows are omitted")
}

func TestBuildPayments(t *testing.T) {
	b := &dataset.Bundle{
		Payments: []dataset.Payment{
			{OrderID: "o1", Sequential: 1, Type: "credit_card", Installments: 4, Value: 200},
			{OrderID: "o2", Sequential: 1, Type: "credit_card", Installments: 2, Value: 100},
			{OrderID: "o3", Sequential: 1, Type: "boleto", Installments: 1, Value: 50},
		},
	}

	s := analytics.Build(b, nil)

	require.Len(t, s.Payments, 2)
	assert.Equal(t, "credit_card", s.Payments[0].Type, "rows sorted by total value")
	assert.Equal(t, 2, s.Payments[0].Count)
	assert.InDelta(t, 300, s.Payments[0].Value, 1e-9)
	assert.InDelta(t, 3, s.Payments[0].AvgInstallments, 1e-9)
	assert.InDelta(t, 1, s.Payments[1].AvgInstallments, 1e-9)
}

func TestBuildSatisfaction(t *testing.T) {
	b := &dataset.Bundle{
		Orders: []dataset.Order{
			{ID: "o1", PurchasedAt: ts("2018-01-10")},
			{ID: "o2", PurchasedAt: ts("2018-01-20")},
			{ID: "o3", PurchasedAt: ts("2018-02-05")},
		},
		Reviews: []dataset.Review{
			{ID: "r1", OrderID: "o1", Score: 5, CreatedAt: ts("2018-01-15")},
			{ID: "r2", OrderID: "o2", Score: 3, CreatedAt: ts("2018-01-25")},
			{ID: "r3", OrderID: "o3", Score: 1, CreatedAt: ts("2018-02-10")},
		},
	}

	s := analytics.Build(b, nil)

	require.Len(t, s.MonthlySatisfaction, 2)
	assert.Equal(t, "2018-01", s.MonthlySatisfaction[0].Month)
	assert.InDelta(t, 4, s.MonthlySatisfaction[0].AvgScore, 1e-9)
	assert.Equal(t, 2, s.MonthlySatisfaction[0].Reviews)

	require.Len(t, s.ScoreDistribution, 5)
	assert.Equal(t, 1, s.ScoreDistribution[0].Count) // score 1
	assert.Equal(t, 1, s.ScoreDistribution[4].Count) // score 5
}
