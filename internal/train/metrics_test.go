package train_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storelens/storelens/internal/train"
)

func TestRegressionMetrics(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	perfect := []float64{1, 2, 3, 4}
	off := []float64{2, 3, 4, 5}

	assert.Zero(t, train.MAE(actual, perfect))
	assert.Zero(t, train.RMSE(actual, perfect))
	assert.InDelta(t, 1, train.R2(actual, perfect), 1e-9)

	assert.InDelta(t, 1, train.MAE(actual, off), 1e-9)
	assert.InDelta(t, 1, train.RMSE(actual, off), 1e-9)
	assert.Less(t, train.R2(actual, off), 1.0)
}

func TestR2ConstantActuals(t *testing.T) {
	assert.Zero(t, train.R2([]float64{2, 2, 2}, []float64{1, 2, 3}))
}

func TestAccuracy(t *testing.T) {
	labels := []float64{1, 0, 1, 0}
	assert.InDelta(t, 1, train.Accuracy(labels, []float64{0.9, 0.1, 0.8, 0.2}), 1e-9)
	assert.InDelta(t, 0.5, train.Accuracy(labels, []float64{0.9, 0.1, 0.2, 0.8}), 1e-9)
	assert.Zero(t, train.Accuracy(nil, nil))
}

func TestROCAUC(t *testing.T) {
	labels := []float64{1, 1, 0, 0}

	assert.InDelta(t, 1, train.ROCAUC(labels, []float64{0.9, 0.8, 0.2, 0.1}), 1e-9)
	assert.InDelta(t, 0, train.ROCAUC(labels, []float64{0.1, 0.2, 0.8, 0.9}), 1e-9)

	// All predictions tied: no ranking information.
	assert.InDelta(t, 0.5, train.ROCAUC(labels, []float64{0.5, 0.5, 0.5, 0.5}), 1e-9)

	// Single-class test sets carry no measurable signal.
	assert.InDelta(t, 0.5, train.ROCAUC([]float64{1, 1}, []float64{0.4, 0.9}), 1e-9)
}
