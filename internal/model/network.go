package model

import (
	"fmt"
	"math"
)

// Network is a validated, ready-to-run feed-forward network assembled from
// an artifact pair.
type Network struct {
	topo    Topology
	weights Weights
}

// NewNetwork pairs a topology with its weights. The pair must already be
// shape-consistent; LoadArtifact guarantees this, direct construction
// re-validates.
func NewNetwork(topo Topology, weights Weights) (*Network, error) {
	if err := validate(topo, weights); err != nil {
		return nil, err
	}
	return &Network{topo: topo, weights: weights}, nil
}

// Inputs returns the feature-vector length the network expects.
func (n *Network) Inputs() int {
	return n.topo.Layers[0].Inputs
}

// Infer runs the feature vector through every layer and returns the first
// output unit. Errors on a feature vector of the wrong length or on a
// non-finite result.
func (n *Network) Infer(features []float64) (float64, error) {
	if len(features) != n.Inputs() {
		return 0, fmt.Errorf("infer: got %d features, network expects %d", len(features), n.Inputs())
	}

	acts := features
	for i, spec := range n.topo.Layers {
		lw := n.weights.Layers[i]
		next := make([]float64, spec.Units)
		for u := 0; u < spec.Units; u++ {
			sum := lw.B[u]
			for j, x := range acts {
				sum += lw.W[u][j] * x
			}
			next[u] = activate(spec.Activation, sum)
		}
		acts = next
	}

	out := acts[0]
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("infer: non-finite output")
	}
	return out, nil
}

func activate(name string, x float64) float64 {
	switch name {
	case "relu":
		return math.Max(0, x)
	case "sigmoid":
		return 1 / (1 + math.Exp(-x))
	case "tanh":
		return math.Tanh(x)
	default: // "linear"
		return x
	}
}
