// Package nowcast ties the labeled dataset to the baseline
// classifiers: it builds feature matrices, trains both models, scores
// the holdout, and ranks the latest-date probabilities per ticker.
package nowcast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quantlabs/nowcast/internal/model"
	"github.com/quantlabs/nowcast/pkg/models"
)

// ErrNoFeatureColumns is returned when no model input columns remain.
var ErrNoFeatureColumns = errors.New("no usable feature columns")

const (
	naiveBaseline   = 0.5
	tradingSessions = 252
	decileBuckets   = 10
)

// Harness runs training and prediction for the two baselines.
type Harness struct {
	log        *zap.Logger
	useBuzz    bool
	seed       int64
	forestSize int
}

// New returns a Harness. useBuzz controls whether the buzz columns
// enter the feature matrix.
func New(log *zap.Logger, useBuzz bool, seed int64, forestSize int) *Harness {
	if log == nil {
		log = zap.NewNop()
	}
	return &Harness{log: log, useBuzz: useBuzz, seed: seed, forestSize: forestSize}
}

// FeatureColumns returns the model input columns for this run.
func (h *Harness) FeatureColumns() []string {
	if h.useBuzz {
		return append([]string(nil), models.TrainingFeatureColumns...)
	}
	var cols []string
	for _, c := range models.TrainingFeatureColumns {
		if c == "mentions" || c == "avg_sentiment" {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// BuildMatrix converts rows into a dense matrix over cols, filling
// undefined values with zero, plus the label and next-return vectors.
func BuildMatrix(rows []models.TrainingRow, cols []string) (X [][]float64, y []int, rets []float64, err error) {
	if len(cols) == 0 {
		return nil, nil, nil, ErrNoFeatureColumns
	}
	X = make([][]float64, len(rows))
	y = make([]int, len(rows))
	rets = make([]float64, len(rows))
	for i, r := range rows {
		vec := make([]float64, len(cols))
		for j, c := range cols {
			vec[j] = zeroFill(columnValue(r, c))
		}
		X[i] = vec
		y[i] = r.Y
		rets[i] = r.NextRet
	}
	return X, y, rets, nil
}

func columnValue(r models.TrainingRow, col string) float64 {
	switch col {
	case "r1":
		return r.R1
	case "r5":
		return r.R5
	case "r20":
		return r.R20
	case "vol20":
		return r.Vol20
	case "rsi14":
		return r.RSI14
	case "hi52d_dist":
		return r.Hi52dDist
	case "lo52d_dist":
		return r.Lo52dDist
	case "mentions":
		return r.Mentions
	case "avg_sentiment":
		return r.AvgSentiment
	}
	return math.NaN()
}

func zeroFill(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Train fits both classifiers on the train split and evaluates them
// on the holdout split. latest holds the unlabeled rows for the most
// recent feature date; cutoff is the split boundary used.
func (h *Harness) Train(train, holdout, latest []models.TrainingRow, cutoff time.Time) (*models.TrainReport, error) {
	cols := h.FeatureColumns()
	trainX, trainY, _, err := BuildMatrix(train, cols)
	if err != nil {
		return nil, err
	}
	holdX, holdY, holdRets, err := BuildMatrix(holdout, cols)
	if err != nil {
		return nil, err
	}

	classifiers := []model.Classifier{
		model.NewLogistic(),
		model.NewForest(h.forestSize, h.seed),
	}

	report := &models.TrainReport{
		Predictions: make(map[string][]models.Prediction, len(classifiers)),
		FeatureCols: cols,
		Cutoff:      cutoff,
		FinishedAt:  time.Now().UTC(),
	}

	latestX, _, _, _ := BuildMatrix(latest, cols)

	for _, clf := range classifiers {
		start := time.Now()
		if err := clf.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fit %s: %w", clf.Name(), err)
		}
		probs, err := clf.PredictProba(holdX)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", clf.Name(), err)
		}

		daily, annual := decileSpread(probs, holdRets)
		mr := models.ModelReport{
			Model:            clf.Name(),
			Accuracy:         accuracyAt(probs, holdY, 0.5),
			Baseline:         naiveBaseline,
			DecileSpreadDay:  daily,
			DecileSpreadYear: annual,
			TrainRows:        len(train),
			HoldoutRows:      len(holdout),
		}
		report.Reports = append(report.Reports, mr)

		if len(latest) > 0 {
			report.Predictions[clf.Name()] = rankPredictions(clf, latest, latestX)
		}

		h.log.Info("model evaluated",
			zap.String("model", clf.Name()),
			zap.Float64("accuracy", mr.Accuracy),
			zap.Float64("decile_spread_daily", mr.DecileSpreadDay),
			zap.Duration("elapsed", time.Since(start)))
	}
	return report, nil
}

// Predict scores the latest-date rows with a freshly fitted model of
// each kind and returns ranked probabilities per model.
func (h *Harness) Predict(train []models.TrainingRow, latest []models.TrainingRow) (map[string][]models.Prediction, error) {
	cols := h.FeatureColumns()
	trainX, trainY, _, err := BuildMatrix(train, cols)
	if err != nil {
		return nil, err
	}
	latestX, _, _, err := BuildMatrix(latest, cols)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.Prediction, 2)
	for _, clf := range []model.Classifier{
		model.NewLogistic(),
		model.NewForest(h.forestSize, h.seed),
	} {
		if err := clf.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fit %s: %w", clf.Name(), err)
		}
		out[clf.Name()] = rankPredictions(clf, latest, latestX)
	}
	return out, nil
}

func rankPredictions(clf model.Classifier, rows []models.TrainingRow, X [][]float64) []models.Prediction {
	probs, err := clf.PredictProba(X)
	if err != nil {
		return nil
	}
	preds := make([]models.Prediction, len(rows))
	for i, r := range rows {
		preds[i] = models.Prediction{Ticker: r.Ticker, Date: r.Date, Prob: probs[i]}
	}
	sort.Slice(preds, func(a, b int) bool {
		if preds[a].Prob != preds[b].Prob {
			return preds[a].Prob > preds[b].Prob
		}
		return preds[a].Ticker < preds[b].Ticker
	})
	return preds
}

func accuracyAt(probs []float64, y []int, threshold float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	correct := 0
	for i, p := range probs {
		pred := 0
		if p >= threshold {
			pred = 1
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(probs))
}

// decileSpread buckets observations into up to ten quantile intervals
// of predicted probability and reports the mean next-day return of the
// top interval minus the bottom one, plus a compounded annual figure.
// Bucket edges are probability values with duplicates dropped, so tied
// probabilities always share a bucket; if ties collapse everything into
// fewer than two buckets the spread degrades to zeros, not an error.
func decileSpread(probs, rets []float64) (daily, annual float64) {
	n := len(probs)
	if n == 0 || n != len(rets) {
		return 0, 0
	}

	sorted := append([]float64(nil), probs...)
	sort.Float64s(sorted)

	edges := make([]float64, 0, decileBuckets+1)
	for k := 0; k <= decileBuckets; k++ {
		q := quantile(sorted, float64(k)/float64(decileBuckets))
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	buckets := len(edges) - 1
	if buckets < 2 {
		return 0, 0
	}

	var botSum, topSum float64
	var botN, topN int
	for i, p := range probs {
		switch bucketOf(p, edges) {
		case 0:
			botSum += rets[i]
			botN++
		case buckets - 1:
			topSum += rets[i]
			topN++
		}
	}
	if botN == 0 || topN == 0 {
		return 0, 0
	}

	daily = topSum/float64(topN) - botSum/float64(botN)
	if math.IsNaN(daily) || math.IsInf(daily, 0) {
		return 0, 0
	}
	annual = math.Pow(1+daily, tradingSessions) - 1
	return daily, annual
}

// quantile interpolates linearly between order statistics.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// bucketOf places p into the interval (edges[i], edges[i+1]], with the
// lowest interval closed on both sides.
func bucketOf(p float64, edges []float64) int {
	for i := 1; i < len(edges); i++ {
		if p <= edges[i] {
			return i - 1
		}
	}
	return len(edges) - 2
}
