package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() (Topology, Weights) {
	topo := Topology{Layers: []LayerSpec{
		{Inputs: 2, Units: 2, Activation: "relu"},
		{Inputs: 2, Units: 1, Activation: "sigmoid"},
	}}
	weights := Weights{Layers: []LayerWeights{
		{W: [][]float64{{0.5, -0.2}, {0.1, 0.4}}, B: []float64{0.1, -0.1}},
		{W: [][]float64{{1.0, -1.0}}, B: []float64{0.2}},
	}}
	return topo, weights
}

func TestSaveAndLoadArtifact(t *testing.T) {
	dir := t.TempDir()
	topo, weights := testArtifact()

	require.NoError(t, SaveArtifact(dir, topo, weights))

	gotTopo, gotWeights, err := LoadArtifact(dir)
	require.NoError(t, err)
	assert.Equal(t, topo, gotTopo)
	assert.Equal(t, weights, gotWeights)
}

func TestLoadArtifact_MissingDir(t *testing.T) {
	_, _, err := LoadArtifact(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadArtifact_MissingWeights(t *testing.T) {
	dir := t.TempDir()
	topo, weights := testArtifact()
	require.NoError(t, SaveArtifact(dir, topo, weights))
	require.NoError(t, os.Remove(filepath.Join(dir, "weights.json")))

	_, _, err := LoadArtifact(dir)
	assert.Error(t, err)
}

func TestLoadArtifact_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	topo, weights := testArtifact()
	require.NoError(t, SaveArtifact(dir, topo, weights))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "topology.json"), []byte("{not-json"), 0o644))

	_, _, err := LoadArtifact(dir)
	assert.Error(t, err)
}

func TestLoadArtifact_ShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	topo, weights := testArtifact()
	require.NoError(t, SaveArtifact(dir, topo, weights))

	// Rewrite weights with a dropped layer; the pair must fail as a unit.
	data := []byte(`{"layers":[{"w":[[0.5,-0.2],[0.1,0.4]],"b":[0.1,-0.1]}]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weights.json"), data, 0o644))

	_, _, err := LoadArtifact(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layers")
}

func TestSaveArtifact_RejectsInvalid(t *testing.T) {
	topo, weights := testArtifact()
	topo.Layers[1].Inputs = 3 // disagrees with previous layer's units
	err := SaveArtifact(t.TempDir(), topo, weights)
	assert.Error(t, err)
}

func TestValidate_UnknownActivation(t *testing.T) {
	topo, weights := testArtifact()
	topo.Layers[0].Activation = "softmax"
	assert.Error(t, validate(topo, weights))
}
