package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/CyberGuardHQ/cyberguard/pkg/features"
)

// ModelArtifact is the serialized form of a trained model bundle: the
// scaler, both ensemble members, the ensemble weights, and the Platt
// calibration parameters, all trained together against one feature layout.
// Artifacts are immutable after load; retraining produces a new version.
type ModelArtifact struct {
	Version      string      `json:"version"`
	TrainedAt    time.Time   `json:"trained_at"`
	FeatureNames []string    `json:"feature_names"`
	Scaler       Scaler      `json:"scaler"`
	Forest       Forest      `json:"forest"`
	MLP          MLP         `json:"mlp"`
	Weights      Weights     `json:"ensemble_weights"`
	Calibration  Calibration `json:"calibration"`
	Metrics      Metrics     `json:"metrics"`
}

// Scaler standardizes a feature vector: (x - Mean) / Scale, element-wise.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Weights blends the two ensemble members. They are normalized at scoring
// time, so only the ratio matters.
type Weights struct {
	Forest float64 `json:"forest"`
	MLP    float64 `json:"mlp"`
}

// Metrics are the held-out evaluation numbers recorded at training time.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Validate checks internal consistency. A model that fails validation must
// never be scored against: dimensions are a contract with the extractor.
func (a *ModelArtifact) Validate() error {
	if a.Version == "" {
		return fmt.Errorf("artifact has no version")
	}
	if len(a.FeatureNames) != features.NumFeatures {
		return fmt.Errorf("artifact expects %d features, extractor produces %d",
			len(a.FeatureNames), features.NumFeatures)
	}
	for i, name := range features.FeatureNames() {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("feature %d: artifact has %q, extractor produces %q",
				i, a.FeatureNames[i], name)
		}
	}
	if len(a.Scaler.Mean) != features.NumFeatures || len(a.Scaler.Scale) != features.NumFeatures {
		return fmt.Errorf("scaler dimensions %d/%d do not match feature count",
			len(a.Scaler.Mean), len(a.Scaler.Scale))
	}
	for i, s := range a.Scaler.Scale {
		if s == 0 {
			return fmt.Errorf("scaler scale[%d] is zero", i)
		}
	}
	if err := a.Forest.validate(features.NumFeatures); err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	if err := a.MLP.validate(features.NumFeatures); err != nil {
		return fmt.Errorf("mlp: %w", err)
	}
	if a.Weights.Forest < 0 || a.Weights.MLP < 0 || a.Weights.Forest+a.Weights.MLP == 0 {
		return fmt.Errorf("ensemble weights %v/%v must be non-negative and not both zero",
			a.Weights.Forest, a.Weights.MLP)
	}
	if a.Calibration.Slope >= 0 {
		return fmt.Errorf("calibration slope %v must be negative to preserve ranking",
			a.Calibration.Slope)
	}
	if a.Metrics.Accuracy < 0 || a.Metrics.Accuracy > 1 {
		return fmt.Errorf("accuracy %v outside [0,1]", a.Metrics.Accuracy)
	}
	return nil
}

// scale standardizes a raw vector into a fresh slice.
func (a *ModelArtifact) scale(vec *features.FeatureVector) []float64 {
	scaled := make([]float64, features.NumFeatures)
	for i := range scaled {
		scaled[i] = (vec.Values[i] - a.Scaler.Mean[i]) / a.Scaler.Scale[i]
	}
	return scaled
}

// Scores carries every intermediate probability for one prediction, so
// logs and responses can show how the final number was reached.
type Scores struct {
	Forest     float64 `json:"forest"`
	MLP        float64 `json:"mlp"`
	Ensemble   float64 `json:"ensemble"`
	Calibrated float64 `json:"calibrated"`
}

// Model is a validated artifact ready for scoring. Immutable and safe for
// concurrent use.
type Model struct {
	artifact *ModelArtifact
}

// NewModel validates the artifact and wraps it for scoring.
func NewModel(a *ModelArtifact) (*Model, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &Model{artifact: a}, nil
}

// LoadModel reads and validates a JSON artifact from disk.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	model, err := NewModel(&artifact)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return model, nil
}

// Version returns the artifact version string.
func (m *Model) Version() string { return m.artifact.Version }

// Accuracy returns the held-out accuracy recorded at training time.
func (m *Model) Accuracy() float64 { return m.artifact.Metrics.Accuracy }

// Predict scores a feature vector through both ensemble members, blends
// them, and calibrates the result. Deterministic: the same vector always
// produces the same scores.
func (m *Model) Predict(vec *features.FeatureVector) Scores {
	scaled := m.artifact.scale(vec)

	s := Scores{
		Forest: m.artifact.Forest.Predict(scaled),
		MLP:    m.artifact.MLP.Predict(scaled),
	}
	wf, wm := m.artifact.Weights.Forest, m.artifact.Weights.MLP
	s.Ensemble = (wf*s.Forest + wm*s.MLP) / (wf + wm)
	s.Calibrated = m.artifact.Calibration.Apply(s.Ensemble)
	return s
}

// Registry holds the live model and supports atomic hot swaps, so a reload
// never disturbs in-flight predictions.
type Registry struct {
	current atomic.Pointer[Model]
}

// NewRegistry creates a registry serving the given model.
func NewRegistry(m *Model) *Registry {
	r := &Registry{}
	r.current.Store(m)
	return r
}

// Current returns the live model. Callers keep using the model they were
// handed even if a swap happens mid-request.
func (r *Registry) Current() *Model {
	return r.current.Load()
}

// Reload loads a new artifact from path and swaps it in. On any failure
// the previous model keeps serving.
func (r *Registry) Reload(path string) (*Model, error) {
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	r.current.Store(model)
	return model, nil
}
