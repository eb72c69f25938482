package train

import "math"

const (
	logisticIters = 500
	logisticRate  = 0.1
)

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// fitLogistic runs batch gradient descent on standardized features. Labels
// are 0/1. Inputs must already be standardized or the fixed step size will
// not converge.
func fitLogistic(x [][]float64, y []float64) (coefs []float64, intercept float64) {
	n := len(x)
	if n == 0 {
		return nil, 0
	}
	d := len(x[0])
	coefs = make([]float64, d)
	grad := make([]float64, d)

	for iter := 0; iter < logisticIters; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradIntercept := 0.0

		for i, row := range x {
			err := sigmoid(intercept+dot(coefs, row)) - y[i]
			gradIntercept += err
			for j, v := range row {
				grad[j] += err * v
			}
		}

		step := logisticRate / float64(n)
		intercept -= step * gradIntercept
		for j := range coefs {
			coefs[j] -= step * grad[j]
		}
	}
	return coefs, intercept
}
