// Command genmodel writes a small, hand-initialized model artifact that the
// risk engine can load. It exists so model mode can be exercised locally and
// in CI without a training pipeline: the generated network approximates the
// heuristic's shape (weighted sum of the normalized signals squashed through
// a sigmoid) closely enough to produce sensible scores.
//
// Usage:
//
//	go run ./cmd/genmodel -out model
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/couchcryptid/flood-risk-service/internal/model"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "model", "output directory for topology.json and weights.json")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	topo, weights := devArtifact()
	if err := model.SaveArtifact(*out, topo, weights); err != nil {
		return err
	}

	log.Printf("wrote model artifact to %s", *out)
	return nil
}

// devArtifact builds a 5-input network: one hidden relu layer and a sigmoid
// output. Inputs are the engine's normalized features (rainfall/50,
// soil moisture, waterLevel/6, two 0.05 placeholders).
func devArtifact() (model.Topology, model.Weights) {
	topo := model.Topology{Layers: []model.LayerSpec{
		{Inputs: 5, Units: 4, Activation: "relu"},
		{Inputs: 4, Units: 1, Activation: "sigmoid"},
	}}

	weights := model.Weights{Layers: []model.LayerWeights{
		{
			// Hidden units: rainfall-dominant, water-dominant,
			// soil-dominant, and a combined-saturation unit.
			W: [][]float64{
				{2.2, 0.3, 0.4, 0, 0},
				{0.4, 0.3, 2.4, 0, 0},
				{0.3, 1.8, 0.3, 0, 0},
				{1.2, 1.2, 1.2, 0, 0},
			},
			B: []float64{-0.3, -0.4, -0.5, -1.6},
		},
		{
			W: [][]float64{{1.4, 1.5, 1.1, 2.0}},
			B: []float64{-2.2},
		},
	}}

	return topo, weights
}
