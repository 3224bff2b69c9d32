package classifier

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/labels"
)

// InputWidth is the length of the feature vectors the loop feeds a model.
const InputWidth = 2 * detector.NumLandmarks

// ModelScorer is a Scorer that owns resources released by Close.
type ModelScorer interface {
	Scorer
	io.Closer
}

// OpenScorer loads the scoring model at path. JSON files are read as linear
// models; anything else is handed to OpenCV.
func OpenScorer(path string) (ModelScorer, error) {
	if path == "" {
		return nil, fmt.Errorf("no model path configured")
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadLinearScorer(path)
	}
	return LoadDNNScorer(path, "")
}

// Open loads the model and the label catalog and returns a ready Classifier
// together with the scorer, which the caller must Close. Failures name the
// resource that could not be loaded.
func Open(modelPath, labelsPath string) (*Classifier, ModelScorer, error) {
	scorer, err := OpenScorer(modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load classifier model: %w", err)
	}

	catalog, err := labels.LoadFile(labelsPath)
	if err != nil {
		scorer.Close()
		return nil, nil, fmt.Errorf("load label catalog: %w", err)
	}

	if err := checkClasses(scorer, catalog, modelPath, labelsPath); err != nil {
		scorer.Close()
		return nil, nil, err
	}

	c, err := New(scorer, catalog)
	if err != nil {
		scorer.Close()
		return nil, nil, err
	}
	return c, scorer, nil
}

// classCount reports how many scores s produces per example. Models other
// than linear ones are asked with one forward pass over a zero vector.
func classCount(s Scorer) (int, error) {
	if ls, ok := s.(*LinearScorer); ok {
		return ls.Classes(), nil
	}
	scores, err := s.Score(make([]float64, InputWidth))
	if err != nil {
		return 0, err
	}
	return len(scores), nil
}

// checkClasses fails unless the model emits exactly one score per catalog
// entry.
func checkClasses(s Scorer, catalog *labels.Catalog, modelPath, labelsPath string) error {
	n, err := classCount(s)
	if err != nil {
		return fmt.Errorf("test forward pass of model %s: %w", modelPath, err)
	}
	if n != catalog.Len() {
		return fmt.Errorf("model %s has %d classes but %s lists %d labels",
			modelPath, n, labelsPath, catalog.Len())
	}
	return nil
}
