package ml

import (
	"fmt"
	"math"
)

// Layer is one dense layer. Weights is row-major, one row per output unit.
type Layer struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"` // "relu" or "sigmoid"
}

// MLP is a small feed-forward network: ReLU hidden layers and a single
// sigmoid output unit producing a phishing probability.
type MLP struct {
	Layers []Layer `json:"layers"`
}

// Predict runs a forward pass for one scaled feature vector.
func (m *MLP) Predict(x []float64) float64 {
	current := x
	for li := range m.Layers {
		layer := &m.Layers[li]
		next := make([]float64, len(layer.Weights))
		for i, row := range layer.Weights {
			sum := layer.Biases[i]
			for j, w := range row {
				sum += w * current[j]
			}
			next[i] = activate(layer.Activation, sum)
		}
		current = next
	}
	return current[0]
}

func activate(name string, v float64) float64 {
	switch name {
	case "relu":
		if v < 0 {
			return 0
		}
		return v
	case "sigmoid":
		return 1 / (1 + math.Exp(-v))
	default:
		return v
	}
}

func (m *MLP) validate(numFeatures int) error {
	if len(m.Layers) == 0 {
		return fmt.Errorf("no layers")
	}
	inputs := numFeatures
	for li, layer := range m.Layers {
		if len(layer.Weights) == 0 {
			return fmt.Errorf("layer %d has no units", li)
		}
		if len(layer.Biases) != len(layer.Weights) {
			return fmt.Errorf("layer %d: %d biases for %d units", li, len(layer.Biases), len(layer.Weights))
		}
		for ui, row := range layer.Weights {
			if len(row) != inputs {
				return fmt.Errorf("layer %d unit %d: %d weights, expected %d", li, ui, len(row), inputs)
			}
		}
		switch layer.Activation {
		case "relu", "sigmoid":
		default:
			return fmt.Errorf("layer %d: unknown activation %q", li, layer.Activation)
		}
		inputs = len(layer.Weights)
	}
	last := m.Layers[len(m.Layers)-1]
	if len(last.Weights) != 1 || last.Activation != "sigmoid" {
		return fmt.Errorf("output layer must be a single sigmoid unit")
	}
	return nil
}
