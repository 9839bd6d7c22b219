package models

import "time"

// ModelReport holds holdout evaluation results for one classifier.
type ModelReport struct {
	Model            string  `json:"model"`
	Accuracy         float64 `json:"accuracy"`           // at 0.5 threshold
	Baseline         float64 `json:"baseline"`            // naive coin flip, 0.500
	DecileSpreadDay  float64 `json:"decile_spread_daily"` // top minus bottom bucket
	DecileSpreadYear float64 `json:"decile_spread_annual"` // (1+daily)^252 - 1, toy
	TrainRows        int     `json:"train_rows"`
	HoldoutRows      int     `json:"holdout_rows"`
}

// Prediction is a probability-of-rise score for one ticker on the
// latest available feature date, for human inspection.
type Prediction struct {
	Ticker string  `json:"ticker"`
	Date   time.Time `json:"date"`
	Prob   float64 `json:"prob_up"`
}

// TrainReport is the full output of one training run.
type TrainReport struct {
	Reports     []ModelReport           `json:"reports"`
	Predictions map[string][]Prediction `json:"predictions"` // model name -> ranked
	FeatureCols []string                `json:"feature_cols"`
	Cutoff      time.Time               `json:"cutoff"`
	FinishedAt  time.Time               `json:"finished_at"`
}
