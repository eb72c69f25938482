package train

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler standardizes columns to zero mean and unit variance using the
// training-set statistics. Constant columns keep a unit divisor.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(x [][]float64) *scaler {
	if len(x) == 0 {
		return &scaler{}
	}
	cols := len(x[0])
	s := &scaler{mean: make([]float64, cols), std: make([]float64, cols)}

	col := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		s.mean[j] = stat.Mean(col, nil)
		s.std[j] = stat.StdDev(col, nil)
		if s.std[j] == 0 {
			s.std[j] = 1
		}
	}
	return s
}

func (s *scaler) transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.std[j]
		}
		out[i] = scaled
	}
	return out
}

// fitOLS solves the least-squares problem for an intercept plus one
// coefficient per feature via QR decomposition.
func fitOLS(x [][]float64, y []float64) (coefs []float64, intercept float64, err error) {
	n := len(x)
	if n == 0 {
		return nil, 0, fmt.Errorf("empty training set")
	}
	d := len(x[0])

	design := mat.NewDense(n, d+1, nil)
	for i, row := range x {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var qr mat.QR
	qr.Factorize(design)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(n, 1, y)); err != nil {
		// mat.Condition flags an ill-conditioned system whose solution was
		// still computed; correlated features make that routine here.
		if _, ok := err.(mat.Condition); !ok {
			return nil, 0, fmt.Errorf("least squares solve failed: %w", err)
		}
	}

	intercept = beta.At(0, 0)
	coefs = make([]float64, d)
	for j := 0; j < d; j++ {
		coefs[j] = beta.At(j+1, 0)
	}
	return coefs, intercept, nil
}
