package train

import (
	"sort"
	"time"

	"github.com/storelens/storelens/internal/dataset"
	"github.com/storelens/storelens/internal/feature"
)

// churnWindowDays: a customer whose last purchase predates the observation
// end by more than this is labeled churned.
const churnWindowDays = 180

type prepareFunc func() (*Frame, error)

type task struct {
	name    string
	kind    Kind
	prepare prepareFunc
}

func (t *task) Name() string             { return t.name }
func (t *task) Kind() Kind               { return t.kind }
func (t *task) Prepare() (*Frame, error) { return t.prepare() }

// DelayRegression predicts the signed delivery delay of delivered orders
// from shipping-side features.
func DelayRegression(orders []feature.OrderFeature) Task {
	return &task{
		name: "delivery_delay",
		kind: Regression,
		prepare: func() (*Frame, error) {
			f := &Frame{Features: []string{
				"distance_km", "freight_ratio", "weight_g", "volume_cm3", "price", "installments",
			}}
			for _, o := range orders {
				if o.DelayDays == nil || o.DistanceKM == nil || o.FreightRatio == nil ||
					o.WeightG == nil || o.VolumeCM3 == nil || o.Installments == nil {
					continue
				}
				f.X = append(f.X, []float64{
					*o.DistanceKM, *o.FreightRatio, *o.WeightG, *o.VolumeCM3, o.Price, *o.Installments,
				})
				f.Y = append(f.Y, *o.DelayDays)
			}
			return f, nil
		},
	}
}

// ReviewRegression predicts the review score left for an order, with the
// delivery delay as the lead candidate driver.
func ReviewRegression(orders []feature.OrderFeature) Task {
	return &task{
		name: "review_score",
		kind: Regression,
		prepare: func() (*Frame, error) {
			f := &Frame{Features: []string{
				"delay_days", "price", "freight_value", "installments", "distance_km",
			}}
			for _, o := range orders {
				if o.ReviewScore == nil || o.DelayDays == nil ||
					o.Installments == nil || o.DistanceKM == nil {
					continue
				}
				f.X = append(f.X, []float64{
					*o.DelayDays, o.Price, o.Freight, *o.Installments, *o.DistanceKM,
				})
				f.Y = append(f.Y, *o.ReviewScore)
			}
			return f, nil
		},
	}
}

// ChurnClassification labels a customer churned when no purchase falls in
// the final window of the observation period.
func ChurnClassification(customers []feature.CustomerFeature, observationEnd time.Time) Task {
	return &task{
		name: "churn",
		kind: Classification,
		prepare: func() (*Frame, error) {
			cutoff := observationEnd.AddDate(0, 0, -churnWindowDays)
			f := &Frame{Features: []string{
				"lifetime_days", "orders_per_month", "avg_order_value", "avg_review", "clv",
			}}
			for _, c := range customers {
				if c.AvgReview == nil {
					continue
				}
				label := 0.0
				if c.LastPurchase.Before(cutoff) {
					label = 1
				}
				f.X = append(f.X, []float64{
					c.LifetimeDays, c.OrdersPerMonth, c.AvgOrderValue, *c.AvgReview, c.CLV,
				})
				f.Y = append(f.Y, label)
			}
			return f, nil
		},
	}
}

// LeadConversion predicts whether a qualified lead closes. Origin is
// one-hot encoded; the contact month enters as a single monotonic numeric.
func LeadConversion(leads []dataset.Lead, deals []dataset.ClosedDeal) Task {
	return &task{
		name: "lead_conversion",
		kind: Classification,
		prepare: func() (*Frame, error) {
			closed := make(map[string]bool, len(deals))
			for _, d := range deals {
				closed[d.MQLID] = true
			}

			originSet := map[string]bool{}
			var firstContact time.Time
			for i, l := range leads {
				originSet[originOf(l)] = true
				if i == 0 || l.FirstContact.Before(firstContact) {
					firstContact = l.FirstContact
				}
			}
			origins := make([]string, 0, len(originSet))
			for o := range originSet {
				origins = append(origins, o)
			}
			sort.Strings(origins)

			f := &Frame{Features: []string{"contact_month"}}
			for _, o := range origins {
				f.Features = append(f.Features, "origin_"+o)
			}

			for _, l := range leads {
				row := make([]float64, len(f.Features))
				row[0] = l.FirstContact.Sub(firstContact).Hours() / (24 * 30)
				for i, o := range origins {
					if originOf(l) == o {
						row[i+1] = 1
					}
				}
				f.X = append(f.X, row)

				label := 0.0
				if closed[l.MQLID] {
					label = 1
				}
				f.Y = append(f.Y, label)
			}
			return f, nil
		},
	}
}

func originOf(l dataset.Lead) string {
	if l.Origin == "" {
		return "unknown"
	}
	return l.Origin
}
