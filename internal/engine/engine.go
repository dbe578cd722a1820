// Package engine computes the flood-risk score, preferring a loaded model
// and degrading transparently to the deterministic heuristic.
package engine

import (
	"log/slog"
	"math"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/model"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// Engine modes.
const (
	ModeModel     = "model"
	ModeHeuristic = "heuristic"
)

// featureCount is the fixed inference input width: the three normalized
// signals plus two placeholder features reserved for upstream gauges that
// are not wired in this deployment.
const featureCount = 5

// State describes the engine's operating mode. Attempted becomes true on the
// first Score call and the load is never retried afterward; a missing or
// corrupt artifact must not be hammered on every cycle.
type State struct {
	Loaded    bool   `json:"loaded"`
	Attempted bool   `json:"attempted"`
	Mode      string `json:"mode"`
}

// Engine scores signal triples. The model artifact is loaded lazily on the
// first Score call, exactly once for the process lifetime; Score is safe for
// concurrent use.
type Engine struct {
	modelDir string
	logger   *slog.Logger
	metrics  *observability.Metrics

	loadOnce sync.Once

	mu    sync.RWMutex
	net   *model.Network
	state State
}

// New creates an engine that will look for its artifact in modelDir.
func New(modelDir string, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		modelDir: modelDir,
		logger:   logger,
		metrics:  metrics,
		state:    State{Mode: ModeHeuristic},
	}
}

// Score produces an integer risk score in [0,100] for the three signals.
// Model mode runs inference over the normalized features; any inference
// error falls back to the heuristic for that call only. Heuristic mode is
// permanent once entered.
func (e *Engine) Score(rainfall, waterLevel, soilMoisture float64) int {
	e.loadOnce.Do(e.loadModel)

	if net := e.network(); net != nil {
		features := []float64{rainfall / 50, soilMoisture, waterLevel / 6, 0.05, 0.05}
		out, err := net.Infer(features)
		if err != nil {
			// Transient miss: score heuristically but stay in model mode.
			e.logger.Warn("inference failed, using heuristic for this cycle", "error", err)
			e.metrics.InferenceFallbacks.Inc()
			return domain.HeuristicScore(rainfall, waterLevel, soilMoisture)
		}
		return domain.ClampScore(int(math.Round(out * 100)))
	}

	return domain.HeuristicScore(rainfall, waterLevel, soilMoisture)
}

// State reports the current operating mode.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) network() *model.Network {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.net
}

func (e *Engine) loadModel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Attempted = true

	topo, weights, err := model.LoadArtifact(e.modelDir)
	if err != nil {
		e.logger.Warn("model artifact unavailable, scoring heuristically for process lifetime",
			"dir", e.modelDir, "error", err)
		e.metrics.EngineModelLoaded.Set(0)
		return
	}

	net, err := model.NewNetwork(topo, weights)
	if err != nil {
		e.logger.Warn("model artifact rejected, scoring heuristically for process lifetime",
			"dir", e.modelDir, "error", err)
		e.metrics.EngineModelLoaded.Set(0)
		return
	}
	if net.Inputs() != featureCount {
		e.logger.Warn("model artifact rejected, scoring heuristically for process lifetime",
			"dir", e.modelDir, "inputs", net.Inputs(), "expected", featureCount)
		e.metrics.EngineModelLoaded.Set(0)
		return
	}

	e.net = net
	e.state.Loaded = true
	e.state.Mode = ModeModel
	e.metrics.EngineModelLoaded.Set(1)
	e.logger.Info("model artifact loaded", "dir", e.modelDir)
}
