// Package train runs the four supervised-learning tasks. Every task follows
// the same shape: prepare a feature frame, split it with a fixed seed, fit,
// evaluate, and rank feature importances. Tasks share no state and may run
// in any order.
package train

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	Regression     Kind = "regression"
	Classification Kind = "classification"
)

// ErrInsufficientData marks a task that was skipped, not failed: fewer
// labeled rows were available than the configured minimum.
var ErrInsufficientData = errors.New("not enough labeled rows to train")

// Frame is a dense feature table: one row of X per label in Y.
type Frame struct {
	Features []string
	X        [][]float64
	Y        []float64
}

func (f *Frame) Rows() int {
	return len(f.Y)
}

// Task is one trainable problem. Prepare returns only fully-populated rows;
// rows with missing features never reach the model.
type Task interface {
	Name() string
	Kind() Kind
	Prepare() (*Frame, error)
}

type Importance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Result carries everything a task produces. Coefficients are on the
// standardized feature scale, so their magnitudes are comparable and the
// importance ranking is just their absolute order.
type Result struct {
	Task         string             `json:"task"`
	Kind         Kind               `json:"kind"`
	Rows         int                `json:"rows"`
	TestRows     int                `json:"test_rows"`
	Metrics      map[string]float64 `json:"metrics"`
	Importances  []Importance       `json:"importances"`
	Coefficients []float64          `json:"coefficients"`
	Intercept    float64            `json:"intercept"`
}

// TopFeature is the highest-ranked importance, or "" for an empty model.
func (r *Result) TopFeature() string {
	if len(r.Importances) == 0 {
		return ""
	}
	return r.Importances[0].Feature
}

// Runner executes tasks with a fixed split seed for reproducibility.
type Runner struct {
	Seed     int64
	MinRows  int
	TestFrac float64
}

func NewRunner(seed int64, minRows int, testFrac float64) *Runner {
	return &Runner{Seed: seed, MinRows: minRows, TestFrac: testFrac}
}

// Run executes one task end to end. A frame below MinRows returns
// ErrInsufficientData so the caller can skip the task and move on.
func (r *Runner) Run(t Task) (*Result, error) {
	frame, err := t.Prepare()
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.Name(), err)
	}
	if frame.Rows() < r.MinRows {
		return nil, fmt.Errorf("task %s has %d rows, need %d: %w", t.Name(), frame.Rows(), r.MinRows, ErrInsufficientData)
	}

	trainSet, testSet := split(frame, r.Seed, r.TestFrac)
	scaler := fitScaler(trainSet.X)
	trainX := scaler.transform(trainSet.X)
	testX := scaler.transform(testSet.X)

	var coefs []float64
	var intercept float64
	switch t.Kind() {
	case Classification:
		coefs, intercept = fitLogistic(trainX, trainSet.Y)
	default:
		coefs, intercept, err = fitOLS(trainX, trainSet.Y)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name(), err)
		}
	}

	res := &Result{
		Task:         t.Name(),
		Kind:         t.Kind(),
		Rows:         frame.Rows(),
		TestRows:     testSet.Rows(),
		Coefficients: coefs,
		Intercept:    intercept,
		Importances:  rankImportances(frame.Features, coefs),
	}

	switch t.Kind() {
	case Classification:
		probs := make([]float64, len(testX))
		for i, row := range testX {
			probs[i] = sigmoid(intercept + dot(coefs, row))
		}
		res.Metrics = map[string]float64{
			"accuracy": Accuracy(testSet.Y, probs),
			"roc_auc":  ROCAUC(testSet.Y, probs),
		}
	default:
		preds := make([]float64, len(testX))
		for i, row := range testX {
			preds[i] = intercept + dot(coefs, row)
		}
		res.Metrics = map[string]float64{
			"mae":  MAE(testSet.Y, preds),
			"rmse": RMSE(testSet.Y, preds),
			"r2":   R2(testSet.Y, preds),
		}
	}

	log.Info().
		Str("task", t.Name()).
		Int("rows", res.Rows).
		Str("top_feature", res.TopFeature()).
		Interface("metrics", res.Metrics).
		Msg("task trained")

	return res, nil
}

// RunAll runs every task, collecting results and skipping the ones with too
// little data. Only unexpected failures propagate.
func (r *Runner) RunAll(tasks ...Task) ([]*Result, []string, error) {
	var results []*Result
	var skipped []string
	for _, t := range tasks {
		res, err := r.Run(t)
		if errors.Is(err, ErrInsufficientData) {
			log.Warn().Str("task", t.Name()).Err(err).Msg("task skipped")
			skipped = append(skipped, t.Name())
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		results = append(results, res)
	}
	return results, skipped, nil
}

// split shuffles deterministically and holds out testFrac of the rows, with
// at least one row on each side.
func split(f *Frame, seed int64, testFrac float64) (train, test *Frame) {
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(f.Rows())

	nTest := int(float64(f.Rows()) * testFrac)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= f.Rows() {
		nTest = f.Rows() - 1
	}

	train = &Frame{Features: f.Features}
	test = &Frame{Features: f.Features}
	for i, idx := range perm {
		if i < nTest {
			test.X = append(test.X, f.X[idx])
			test.Y = append(test.Y, f.Y[idx])
		} else {
			train.X = append(train.X, f.X[idx])
			train.Y = append(train.Y, f.Y[idx])
		}
	}
	return train, test
}

func rankImportances(features []string, coefs []float64) []Importance {
	out := make([]Importance, len(features))
	for i, name := range features {
		w := coefs[i]
		if w < 0 {
			w = -w
		}
		out[i] = Importance{Feature: name, Weight: w}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
