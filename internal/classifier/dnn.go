package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/features"
)

// DNNScorer runs a dense gesture model through OpenCV's dnn module. The
// model takes a 1 x N float32 row and produces one score per class.
type DNNScorer struct {
	net  gocv.Net
	path string
	mu   sync.Mutex
}

// LoadDNNScorer reads an ONNX (.onnx) or frozen TensorFlow (.pb) model.
// config is an optional companion file (for example a .pbtxt graph).
func LoadDNNScorer(path, config string) (*DNNScorer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}

	var net gocv.Net
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		net = gocv.ReadNetFromONNX(path)
	case ".pb":
		net = gocv.ReadNetFromTensorflow(path)
	default:
		net = gocv.ReadNet(path, config)
	}

	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("model %s: OpenCV could not load the network", path)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.WithField("model", path).Info("Gesture model loaded")

	return &DNNScorer{net: net, path: path}, nil
}

// Score implements Scorer.
func (s *DNNScorer) Score(x []float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := features.FeatureVector(x).Float32()
	input := gocv.NewMatWithSize(1, len(row), gocv.MatTypeCV32F)
	defer input.Close()
	for i, v := range row {
		input.SetFloatAt(0, i, v)
	}

	s.net.SetInput(input, "")
	prob := s.net.Forward("")
	defer prob.Close()

	if prob.Empty() {
		return nil, fmt.Errorf("model %s produced no output", s.path)
	}

	data, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}

	scores := make([]float64, len(data))
	for i, v := range data {
		scores[i] = float64(v)
	}
	return scores, nil
}

// Close releases the network.
func (s *DNNScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
