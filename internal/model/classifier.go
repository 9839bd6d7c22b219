// Package model implements the two baseline next-day direction
// classifiers: a logistic regression and a random forest. Both
// consume dense float matrices (one row per observation) and expose
// class-1 probabilities for arbitrary new rows.
package model

import "errors"

// ErrNotFitted is returned when predicting before Fit.
var ErrNotFitted = errors.New("classifier not fitted")

// ErrEmptyTrainingSet is returned when Fit receives no rows.
var ErrEmptyTrainingSet = errors.New("empty training set")

// Classifier is the interface both baselines satisfy.
type Classifier interface {
	// Name identifies the model in reports.
	Name() string
	// Fit trains on features X (rows x cols) and binary labels y.
	Fit(X [][]float64, y []int) error
	// PredictProba returns the class-1 probability per row of X.
	PredictProba(X [][]float64) ([]float64, error)
}

// validate checks matrix shape agreement for Fit.
func validate(X [][]float64, y []int) (cols int, err error) {
	if len(X) == 0 || len(y) != len(X) {
		return 0, ErrEmptyTrainingSet
	}
	cols = len(X[0])
	if cols == 0 {
		return 0, ErrEmptyTrainingSet
	}
	for _, row := range X {
		if len(row) != cols {
			return 0, errors.New("ragged feature matrix")
		}
	}
	return cols, nil
}
