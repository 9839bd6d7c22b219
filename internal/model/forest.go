package model

import (
	"math"
	"math/rand"
)

// Forest is a random forest of CART trees trained on bootstrap
// samples with sqrt-feature subsampling. The seed fixes both the
// bootstrap draws and the per-node feature subsets, so training is
// reproducible.
type Forest struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64

	trees []*treeNode
}

// NewForest returns a Forest with the given size and seed.
func NewForest(trees int, seed int64) *Forest {
	if trees <= 0 {
		trees = 300
	}
	return &Forest{
		Trees:    trees,
		MaxDepth: 10,
		MinLeaf:  2,
		Seed:     seed,
	}
}

func (f *Forest) Name() string { return "random_forest" }

// Fit grows the ensemble.
func (f *Forest) Fit(X [][]float64, y []int) error {
	cols, err := validate(X, y)
	if err != nil {
		return err
	}
	n := len(X)
	subs := int(math.Sqrt(float64(cols)))
	if subs < 1 {
		subs = 1
	}
	params := treeParams{
		maxDepth:    f.MaxDepth,
		minLeaf:     f.MinLeaf,
		featureSubs: subs,
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.trees = make([]*treeNode, f.Trees)
	for t := 0; t < f.Trees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees[t] = buildTree(X, y, idx, 0, params, rng)
	}
	return nil
}

// PredictProba averages the class-1 leaf fractions across trees.
func (f *Forest) PredictProba(X [][]float64) ([]float64, error) {
	if f.trees == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for _, t := range f.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}
