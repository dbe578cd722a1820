// Command score runs the scoring path once for a signal triple given on the
// command line, printing the heuristic result and, when an artifact
// directory is supplied, the model result next to it. Useful for
// spot-checking threshold behavior and comparing a candidate artifact
// against the heuristic before deploying it.
//
// Usage:
//
//	go run ./cmd/score -rainfall 45 -water-level 4.2 -soil-moisture 0.7
//	go run ./cmd/score -rainfall 45 -water-level 4.2 -soil-moisture 0.7 -model-dir model
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/model"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rainfall := flag.Float64("rainfall", 0, "rainfall in mm")
	waterLevel := flag.Float64("water-level", 0, "river water level in metres")
	soilMoisture := flag.Float64("soil-moisture", 0, "soil moisture fraction in [0,1]")
	modelDir := flag.String("model-dir", "", "optional model artifact directory")
	flag.Parse()

	heuristic := domain.HeuristicScore(*rainfall, *waterLevel, *soilMoisture)
	fmt.Printf("heuristic: %d (%s)\n", heuristic, domain.ClassifyRisk(heuristic))

	if *modelDir == "" {
		return nil
	}

	topo, weights, err := model.LoadArtifact(*modelDir)
	if err != nil {
		return fmt.Errorf("load artifact: %w", err)
	}
	net, err := model.NewNetwork(topo, weights)
	if err != nil {
		return err
	}

	features := []float64{*rainfall / 50, *soilMoisture, *waterLevel / 6, 0.05, 0.05}
	out, err := net.Infer(features)
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	score := domain.ClampScore(int(math.Round(out * 100)))
	fmt.Printf("model:     %d (%s)\n", score, domain.ClassifyRisk(score))

	return nil
}
