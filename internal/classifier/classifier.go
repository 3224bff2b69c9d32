// Package classifier maps feature vectors to gesture labels using a
// pre-loaded scoring model and a label catalog.
package classifier

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/features"
	"github.com/ayusman/mudra/internal/labels"
)

var (
	// ErrNoScores is returned when the scorer produces an empty distribution.
	ErrNoScores = errors.New("classifier: scorer returned no scores")
	// ErrUnknownClass is returned when the best class has no catalog entry.
	ErrUnknownClass = errors.New("classifier: class index not in label catalog")
)

// Scorer evaluates a single example and returns one score per class.
type Scorer interface {
	Score(x []float64) ([]float64, error)
}

// ScoreFunc adapts an ordinary function to the Scorer interface.
type ScoreFunc func(x []float64) ([]float64, error)

// Score calls f(x).
func (f ScoreFunc) Score(x []float64) ([]float64, error) {
	return f(x)
}

// Prediction is the outcome of a classification.
type Prediction struct {
	Label string
	Index int
	Score float64
}

// Classifier picks the best-scoring class for a feature vector. It holds no
// mutable state of its own.
type Classifier struct {
	scorer  Scorer
	catalog *labels.Catalog
}

// New returns a Classifier over scorer and catalog.
func New(scorer Scorer, catalog *labels.Catalog) (*Classifier, error) {
	if scorer == nil {
		return nil, errors.New("classifier: nil scorer")
	}
	if catalog == nil {
		return nil, errors.New("classifier: nil label catalog")
	}
	return &Classifier{scorer: scorer, catalog: catalog}, nil
}

// Catalog returns the label catalog the classifier reports names from.
func (c *Classifier) Catalog() *labels.Catalog {
	return c.catalog
}

// Classify returns the label of the highest-scoring class. An empty vector
// returns "" without invoking the scorer.
func (c *Classifier) Classify(vec features.FeatureVector) (string, error) {
	p, err := c.ClassifyDetailed(vec)
	if err != nil {
		return "", err
	}
	return p.Label, nil
}

// ClassifyDetailed is Classify that also reports the winning index and its
// score. Index is -1 for an empty vector. No confidence threshold is
// applied: the best class is returned however low its score is. When
// several classes share the top score the lowest index wins.
func (c *Classifier) ClassifyDetailed(vec features.FeatureVector) (Prediction, error) {
	if vec.Empty() {
		return Prediction{Index: -1}, nil
	}

	scores, err := c.scorer.Score(vec)
	if err != nil {
		return Prediction{Index: -1}, fmt.Errorf("score: %w", err)
	}
	if len(scores) == 0 {
		return Prediction{Index: -1}, ErrNoScores
	}

	best := floats.MaxIdx(scores)
	name, ok := c.catalog.Name(best)
	if !ok {
		return Prediction{Index: best, Score: scores[best]},
			fmt.Errorf("%w: index %d, %d labels", ErrUnknownClass, best, c.catalog.Len())
	}

	return Prediction{Label: name, Index: best, Score: scores[best]}, nil
}
