// Package model loads and runs the flood-risk prediction artifact.
//
// An artifact is a directory holding a descriptor pair:
//
//	topology.json  ordered dense-layer descriptors (inputs, units, activation)
//	weights.json   per-layer weight matrix and bias vector
//
// Both files must be present, well-formed, and shape-consistent or the load
// fails as a unit; there is no partial load.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	topologyFile = "topology.json"
	weightsFile  = "weights.json"
)

// LayerSpec describes one dense layer.
type LayerSpec struct {
	Inputs     int    `json:"inputs"`
	Units      int    `json:"units"`
	Activation string `json:"activation"` // "relu", "sigmoid", "tanh", or "linear"
}

// Topology is the ordered layer structure of the network.
type Topology struct {
	Layers []LayerSpec `json:"layers"`
}

// LayerWeights holds the parameters for one dense layer. W is indexed
// [unit][input]; B has one entry per unit.
type LayerWeights struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`
}

// Weights holds the parameters for every layer, in topology order.
type Weights struct {
	Layers []LayerWeights `json:"layers"`
}

// LoadArtifact reads the topology/weights pair from dir and validates that
// the two are shape-consistent. Any missing file, malformed JSON, or shape
// mismatch fails the whole load.
func LoadArtifact(dir string) (Topology, Weights, error) {
	var topo Topology
	if err := readJSON(filepath.Join(dir, topologyFile), &topo); err != nil {
		return Topology{}, Weights{}, fmt.Errorf("load topology: %w", err)
	}

	var weights Weights
	if err := readJSON(filepath.Join(dir, weightsFile), &weights); err != nil {
		return Topology{}, Weights{}, fmt.Errorf("load weights: %w", err)
	}

	if err := validate(topo, weights); err != nil {
		return Topology{}, Weights{}, fmt.Errorf("artifact %s: %w", dir, err)
	}
	return topo, weights, nil
}

// SaveArtifact writes the topology/weights pair to dir, creating it if
// needed. The pair is validated before anything is written.
func SaveArtifact(dir string, topo Topology, weights Weights) error {
	if err := validate(topo, weights); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, topologyFile), topo); err != nil {
		return fmt.Errorf("save topology: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, weightsFile), weights); err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}

func validate(topo Topology, weights Weights) error {
	if len(topo.Layers) == 0 {
		return fmt.Errorf("topology has no layers")
	}
	if len(topo.Layers) != len(weights.Layers) {
		return fmt.Errorf("topology has %d layers, weights has %d", len(topo.Layers), len(weights.Layers))
	}
	for i, spec := range topo.Layers {
		if spec.Inputs <= 0 || spec.Units <= 0 {
			return fmt.Errorf("layer %d: non-positive dimensions", i)
		}
		switch spec.Activation {
		case "relu", "sigmoid", "tanh", "linear":
		default:
			return fmt.Errorf("layer %d: unknown activation %q", i, spec.Activation)
		}
		if i > 0 && spec.Inputs != topo.Layers[i-1].Units {
			return fmt.Errorf("layer %d: expects %d inputs, previous layer emits %d",
				i, spec.Inputs, topo.Layers[i-1].Units)
		}
		lw := weights.Layers[i]
		if len(lw.W) != spec.Units || len(lw.B) != spec.Units {
			return fmt.Errorf("layer %d: weights sized for %d units, topology says %d",
				i, len(lw.W), spec.Units)
		}
		for u, row := range lw.W {
			if len(row) != spec.Inputs {
				return fmt.Errorf("layer %d unit %d: %d weights for %d inputs", i, u, len(row), spec.Inputs)
			}
		}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
