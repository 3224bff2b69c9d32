package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// linearModel is the on-disk form of a LinearScorer.
type linearModel struct {
	Classes int         `json:"classes"`
	Inputs  int         `json:"inputs"`
	Weights [][]float64 `json:"weights"` // Classes rows of Inputs columns
	Bias    []float64   `json:"bias"`
	Softmax bool        `json:"softmax"`
}

// LinearScorer scores an example as W·x + b, optionally followed by softmax.
type LinearScorer struct {
	weights *mat.Dense
	bias    []float64
	softmax bool
}

// NewLinearScorer builds a scorer from a classes x inputs weight matrix and a
// per-class bias. bias may be nil.
func NewLinearScorer(weights [][]float64, bias []float64, softmax bool) (*LinearScorer, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return nil, fmt.Errorf("linear model has no weights")
	}

	rows, cols := len(weights), len(weights[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range weights {
		if len(row) != cols {
			return nil, fmt.Errorf("weight row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	if bias == nil {
		bias = make([]float64, rows)
	}
	if len(bias) != rows {
		return nil, fmt.Errorf("bias has %d entries, want %d", len(bias), rows)
	}

	return &LinearScorer{
		weights: mat.NewDense(rows, cols, data),
		bias:    append([]float64(nil), bias...),
		softmax: softmax,
	}, nil
}

// LoadLinearScorer reads a JSON model file.
func LoadLinearScorer(path string) (*LinearScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var m linearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}

	s, err := NewLinearScorer(m.Weights, m.Bias, m.Softmax)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	if m.Classes != 0 && m.Classes != s.Classes() {
		return nil, fmt.Errorf("model %s: declares %d classes, weights have %d", path, m.Classes, s.Classes())
	}
	if m.Inputs != 0 && m.Inputs != s.Inputs() {
		return nil, fmt.Errorf("model %s: declares %d inputs, weights have %d", path, m.Inputs, s.Inputs())
	}

	return s, nil
}

// Classes returns the number of output classes.
func (s *LinearScorer) Classes() int {
	r, _ := s.weights.Dims()
	return r
}

// Inputs returns the expected feature vector length.
func (s *LinearScorer) Inputs() int {
	_, c := s.weights.Dims()
	return c
}

// Score implements Scorer.
func (s *LinearScorer) Score(x []float64) ([]float64, error) {
	if len(x) != s.Inputs() {
		return nil, fmt.Errorf("input has %d features, model expects %d", len(x), s.Inputs())
	}

	var out mat.VecDense
	out.MulVec(s.weights, mat.NewVecDense(len(x), x))

	scores := make([]float64, s.Classes())
	for i := range scores {
		scores[i] = out.AtVec(i) + s.bias[i]
	}

	if s.softmax {
		softmax(scores)
	}
	return scores, nil
}

// Close is a no-op; it lets LinearScorer satisfy the same lifecycle as DNNScorer.
func (s *LinearScorer) Close() error {
	return nil
}

// softmax rewrites v in place as a probability distribution.
func softmax(v []float64) {
	maxV := floats.Max(v)
	for i := range v {
		v[i] = math.Exp(v[i] - maxV)
	}
	floats.Scale(1/floats.Sum(v), v)
}
