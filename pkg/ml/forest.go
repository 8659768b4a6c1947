package ml

import "fmt"

// leafNode marks a Node with no split; its Value is the phishing
// probability at that leaf.
const leafNode = -1

// Node is one decision-tree node in flattened-array form. Interior nodes
// route left when the feature value is <= Threshold.
type Node struct {
	Feature   int     `json:"feature"` // leafNode for leaves
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"` // leaf probability
}

// Tree is a single decision tree; Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one scaled feature vector.
func (t *Tree) Predict(x []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Feature == leafNode {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// Forest is a random forest scored as the mean of its trees' leaf
// probabilities.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// Predict returns the forest's phishing probability for x.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// validate checks every node's indices and feature references so Predict
// can walk without bounds checks failing at scoring time.
func (f *Forest) validate(numFeatures int) error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.Feature == leafNode {
				if node.Value < 0 || node.Value > 1 {
					return fmt.Errorf("tree %d node %d: leaf value %v outside [0,1]", ti, ni, node.Value)
				}
				continue
			}
			if node.Feature < 0 || node.Feature >= numFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, node.Feature)
			}
			if node.Left <= ni || node.Left >= len(tree.Nodes) ||
				node.Right <= ni || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d: child indices %d/%d invalid", ti, ni, node.Left, node.Right)
			}
		}
	}
	return nil
}
