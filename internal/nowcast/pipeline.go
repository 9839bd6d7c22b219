package nowcast

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quantlabs/nowcast/internal/dataset"
	"github.com/quantlabs/nowcast/internal/store"
	"github.com/quantlabs/nowcast/pkg/models"
)

// Pipeline loads persisted features and buzz, assembles the labeled
// dataset, and runs the training harness. It is shared by the train
// CLI command and the dashboard trigger endpoint.
type Pipeline struct {
	log      *zap.Logger
	dbPath   string
	buzzDir  string
	testDays int
	harness  *Harness
}

// NewPipeline wires a Pipeline over the on-disk stores.
func NewPipeline(log *zap.Logger, dbPath, buzzDir string, testDays int, harness *Harness) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log, dbPath: dbPath, buzzDir: buzzDir, testDays: testDays, harness: harness}
}

// loadData reads features and buzz from disk. A missing feature store
// is fatal: the prices step has to run first.
func (p *Pipeline) loadData() ([]models.FeatureRow, []models.BuzzAggregate, error) {
	if !store.Exists(p.dbPath) {
		return nil, nil, fmt.Errorf("feature store %s not found: run the prices step first", p.dbPath)
	}
	fs, err := store.OpenFeatureStore(p.dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open feature store: %w", err)
	}
	defer fs.Close()

	features, err := fs.LoadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("load features: %w", err)
	}

	buzz, err := store.NewBuzzStore(p.buzzDir).ReadAll()
	if err != nil {
		p.log.Warn("buzz unavailable, continuing with zero fill", zap.Error(err))
		buzz = nil
	}
	return features, buzz, nil
}

// LoadRows assembles the labeled, joined dataset from the stores.
func (p *Pipeline) LoadRows() ([]models.TrainingRow, error) {
	features, buzz, err := p.loadData()
	if err != nil {
		return nil, err
	}
	rows := dataset.Assemble(features, buzz)
	p.log.Info("dataset assembled",
		zap.Int("feature_rows", len(features)),
		zap.Int("buzz_aggregates", len(buzz)),
		zap.Int("labeled_rows", len(rows)))
	return rows, nil
}

// Run executes a full training run against the stored data. The
// prediction surface scores the newest feature date, which is never a
// labeled row.
func (p *Pipeline) Run() (*models.TrainReport, error) {
	features, buzz, err := p.loadData()
	if err != nil {
		return nil, err
	}
	rows := dataset.Assemble(features, buzz)
	train, holdout, err := dataset.TimeSplit(rows, p.testDays)
	if err != nil {
		return nil, err
	}
	cutoff := dataset.Cutoff(rows, p.testDays)
	p.log.Info("time split",
		zap.Int("train_rows", len(train)),
		zap.Int("holdout_rows", len(holdout)),
		zap.Time("cutoff", cutoff))
	latest := dataset.LatestRows(features, buzz)
	return p.harness.Train(train, holdout, latest, cutoff)
}

// Latest fits on all labeled rows and scores the most recent feature
// date, for the predict surface.
func (p *Pipeline) Latest() (map[string][]models.Prediction, error) {
	features, buzz, err := p.loadData()
	if err != nil {
		return nil, err
	}
	latest := dataset.LatestRows(features, buzz)
	if len(latest) == 0 {
		return nil, fmt.Errorf("no feature rows available")
	}
	rows := dataset.Assemble(features, buzz)
	return p.harness.Predict(rows, latest)
}
