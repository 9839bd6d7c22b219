package model

import "math"

// Logistic is a batch gradient-descent logistic regression with
// per-feature standardization and L2 regularization. Training is
// deterministic: fixed initialization, fixed epoch count.
type Logistic struct {
	LearningRate float64
	Epochs       int
	L2           float64

	weights []float64
	bias    float64
	means   []float64
	stds    []float64
}

// NewLogistic returns a Logistic with default hyperparameters.
func NewLogistic() *Logistic {
	return &Logistic{
		LearningRate: 0.1,
		Epochs:       400,
		L2:           1e-3,
	}
}

func (l *Logistic) Name() string { return "logistic" }

// Fit estimates weights on standardized features.
func (l *Logistic) Fit(X [][]float64, y []int) error {
	cols, err := validate(X, y)
	if err != nil {
		return err
	}
	n := len(X)

	l.means = make([]float64, cols)
	l.stds = make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += X[i][j]
		}
		mean := sum / float64(n)
		varSum := 0.0
		for i := 0; i < n; i++ {
			d := X[i][j] - mean
			varSum += d * d
		}
		std := math.Sqrt(varSum / float64(n))
		if std == 0 {
			std = 1
		}
		l.means[j] = mean
		l.stds[j] = std
	}

	// Standardize once up front.
	Z := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = (X[i][j] - l.means[j]) / l.stds[j]
		}
		Z[i] = row
	}

	l.weights = make([]float64, cols)
	l.bias = 0
	grad := make([]float64, cols)

	for epoch := 0; epoch < l.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0
		for i := 0; i < n; i++ {
			p := sigmoid(dot(l.weights, Z[i]) + l.bias)
			e := p - float64(y[i])
			for j := 0; j < cols; j++ {
				grad[j] += e * Z[i][j]
			}
			gradBias += e
		}
		scale := l.LearningRate / float64(n)
		for j := 0; j < cols; j++ {
			l.weights[j] -= scale * (grad[j] + l.L2*l.weights[j])
		}
		l.bias -= scale * gradBias
	}
	return nil
}

// PredictProba returns class-1 probabilities for each row of X.
func (l *Logistic) PredictProba(X [][]float64) ([]float64, error) {
	if l.weights == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		z := l.bias
		for j := 0; j < len(l.weights) && j < len(row); j++ {
			z += l.weights[j] * (row[j] - l.means[j]) / l.stds[j]
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp well behaved on extreme inputs.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
