package model

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a CART classification tree. Leaves carry
// the class-1 fraction of the training rows that reached them.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	prob      float64
	leaf      bool
}

type treeParams struct {
	maxDepth    int
	minLeaf     int
	featureSubs int
}

// buildTree grows a tree on the rows indexed by idx, choosing the
// best gini split over a random feature subset at each node.
func buildTree(X [][]float64, y []int, idx []int, depth int, p treeParams, rng *rand.Rand) *treeNode {
	ones := 0
	for _, i := range idx {
		ones += y[i]
	}
	prob := float64(ones) / float64(len(idx))

	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf || ones == 0 || ones == len(idx) {
		return &treeNode{leaf: true, prob: prob}
	}

	feat, thr, ok := bestSplit(X, y, idx, p, rng)
	if !ok {
		return &treeNode{leaf: true, prob: prob}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minLeaf || len(right) < p.minLeaf {
		return &treeNode{leaf: true, prob: prob}
	}

	return &treeNode{
		feature:   feat,
		threshold: thr,
		left:      buildTree(X, y, left, depth+1, p, rng),
		right:     buildTree(X, y, right, depth+1, p, rng),
	}
}

// bestSplit scans a random subset of features for the threshold with
// the lowest weighted gini impurity.
func bestSplit(X [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	cols := len(X[0])
	feats := rng.Perm(cols)
	if p.featureSubs < len(feats) {
		feats = feats[:p.featureSubs]
	}

	bestGini := math.Inf(1)
	order := make([]int, len(idx))

	for _, f := range feats {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		total := len(order)
		totalOnes := 0
		for _, i := range order {
			totalOnes += y[i]
		}

		leftN, leftOnes := 0, 0
		for k := 0; k < total-1; k++ {
			i := order[k]
			leftN++
			leftOnes += y[i]
			// Only split between distinct values.
			if X[i][f] == X[order[k+1]][f] {
				continue
			}
			if leftN < p.minLeaf || total-leftN < p.minLeaf {
				continue
			}
			g := weightedGini(leftOnes, leftN, totalOnes-leftOnes, total-leftN)
			if g < bestGini {
				bestGini = g
				feature = f
				threshold = (X[i][f] + X[order[k+1]][f]) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func weightedGini(leftOnes, leftN, rightOnes, rightN int) float64 {
	total := float64(leftN + rightN)
	return float64(leftN)/total*gini(leftOnes, leftN) +
		float64(rightN)/total*gini(rightOnes, rightN)
}

func gini(ones, n int) float64 {
	p := float64(ones) / float64(n)
	return 2 * p * (1 - p)
}

// predict walks the tree for one row.
func (t *treeNode) predict(row []float64) float64 {
	node := t
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.prob
}
