package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/storelens/storelens/internal/feature"
)

// lowScoreMax marks a review as negative for the independence test.
const lowScoreMax = 2

// Mean wraps gonum's mean for the common []float64 case.
func Mean(xs []float64) float64 {
	return stat.Mean(xs, nil)
}

// Quantile returns the empirical p-quantile without mutating xs.
func Quantile(xs []float64, p float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Describe is a five-number-plus summary for one numeric column.
type Describe struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

func DescribeColumn(xs []float64) Describe {
	if len(xs) == 0 {
		return Describe{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return Describe{
		N:      len(xs),
		Mean:   stat.Mean(sorted, nil),
		StdDev: stat.StdDev(sorted, nil),
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

// Correlation is the Pearson correlation of two equal-length columns.
func Correlation(xs, ys []float64) float64 {
	return stat.Correlation(xs, ys, nil)
}

// ChiSquareIndependence runs the 2x2 independence test on the contingency
// counts [a b; c d] and returns the statistic with its p-value (1 degree of
// freedom). Degenerate margins give a zero statistic and p of 1.
func ChiSquareIndependence(a, b, c, d float64) (statistic, pValue float64) {
	n := a + b + c + d
	r1, r2 := a+b, c+d
	c1, c2 := a+c, b+d
	if n == 0 || r1 == 0 || r2 == 0 || c1 == 0 || c2 == 0 {
		return 0, 1
	}

	expected := [4]float64{r1 * c1 / n, r1 * c2 / n, r2 * c1 / n, r2 * c2 / n}
	observed := [4]float64{a, b, c, d}
	for i := range observed {
		diff := observed[i] - expected[i]
		statistic += diff * diff / expected[i]
	}

	dist := distuv.ChiSquared{K: 1}
	return statistic, dist.Survival(statistic)
}

// DelayReviewStats answers whether late delivery and poor reviews move
// together: Pearson correlation between delay and score, plus a chi-squared
// independence test between "late" and "low score".
type DelayReviewStats struct {
	N           int     `json:"n"`
	Correlation float64 `json:"correlation"`
	ChiSquare   float64 `json:"chi_square"`
	PValue      float64 `json:"p_value"`
}

func DelayReviewCorrelation(orders []feature.OrderFeature) DelayReviewStats {
	var delays, scores []float64
	var lateLow, lateHigh, onTimeLow, onTimeHigh float64
	for _, o := range orders {
		if o.DelayDays == nil || o.ReviewScore == nil {
			continue
		}
		delays = append(delays, *o.DelayDays)
		scores = append(scores, *o.ReviewScore)

		late := DeliveryStatus(*o.DelayDays) == DeliveryLate
		low := *o.ReviewScore <= lowScoreMax
		switch {
		case late && low:
			lateLow++
		case late && !low:
			lateHigh++
		case !late && low:
			onTimeLow++
		default:
			onTimeHigh++
		}
	}

	out := DelayReviewStats{N: len(delays), PValue: 1}
	if len(delays) < 3 {
		return out
	}
	out.Correlation = Correlation(delays, scores)
	out.ChiSquare, out.PValue = ChiSquareIndependence(lateLow, lateHigh, onTimeLow, onTimeHigh)
	return out
}
