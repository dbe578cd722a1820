// Package pipeline runs the prediction cycle: fetch the three signals
// concurrently, score, persist, broadcast, and alert. One cycle at a time,
// on a fixed interval, with an optional manual trigger.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/source"
)

// ErrCycleInFlight is returned by TriggerNow when a manual run is already
// queued or running; at most one manual run queues behind the current cycle.
var ErrCycleInFlight = errors.New("a cycle is already running or queued")

// Scorer produces a risk score for one signal triple.
type Scorer interface {
	Score(rainfall, waterLevel, soilMoisture float64) int
}

// RecordStore persists one record per cycle.
type RecordStore interface {
	Save(ctx context.Context, rec domain.RiskRecord) (int64, error)
}

// Broadcaster publishes a persisted record to downstream consumers.
type Broadcaster interface {
	Publish(ctx context.Context, rec domain.RiskRecord) error
}

// Alerter decides whether a record triggers an outbound alert.
type Alerter interface {
	MaybeAlert(ctx context.Context, rec *domain.RiskRecord)
}

// Deps wires the runner's collaborators.
type Deps struct {
	Rainfall     source.Client
	WaterLevel   source.Client
	SoilMoisture source.Client
	Scorer       Scorer
	Store        RecordStore
	Broadcaster  Broadcaster
	Gate         Alerter

	Location     domain.Coordinates
	Interval     time.Duration
	FetchTimeout time.Duration

	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Runner executes prediction cycles. Scheduled ticks and manual triggers
// feed one select loop, so cycles never interleave.
type Runner struct {
	deps    Deps
	trigger chan struct{}

	inFlight atomic.Bool
	ready    atomic.Bool
}

// New creates a Runner from its dependencies.
func New(deps Deps) *Runner {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &Runner{
		deps:    deps,
		trigger: make(chan struct{}, 1),
	}
}

// Ready reports whether at least one cycle has completed end to end.
func (r *Runner) Ready() bool {
	return r.ready.Load()
}

// CheckReadiness implements the HTTP adapter's readiness contract.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no prediction cycle has completed yet")
	}
	return nil
}

// TriggerNow queues a manual cycle. At most one manual run waits behind the
// in-flight cycle; beyond that the trigger is rejected rather than stacked.
func (r *Runner) TriggerNow() error {
	select {
	case r.trigger <- struct{}{}:
		return nil
	default:
		return ErrCycleInFlight
	}
}

// Run executes cycles until the context is cancelled. Cycle failures never
// stop the loop: the scheduler keeps ticking regardless of prior outcomes.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.deps.Clock.NewTicker(r.deps.Interval)
	defer ticker.Stop()

	r.deps.Logger.Info("cycle runner started",
		"interval", r.deps.Interval, "fetch_timeout", r.deps.FetchTimeout)

	for {
		select {
		case <-ctx.Done():
			r.deps.Logger.Info("cycle runner stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.runCycle(ctx)
		case <-r.trigger:
			r.deps.Logger.Info("manual cycle triggered")
			r.runCycle(ctx)
		}
	}
}

// runCycle performs one fetch-score-persist-broadcast-alert pass. A failed
// step aborts the remaining steps of this cycle only.
func (r *Runner) runCycle(ctx context.Context) {
	r.inFlight.Store(true)
	defer r.inFlight.Store(false)

	m := r.deps.Metrics
	m.CycleRunning.Set(1)
	defer m.CycleRunning.Set(0)
	start := time.Now()

	rainfall, waterLevel, soilMoisture := r.fetchAll(ctx)

	score := r.deps.Scorer.Score(rainfall.Value, waterLevel.Value, soilMoisture.Value)
	rec := domain.NewRiskRecord(r.deps.Location, rainfall, waterLevel, soilMoisture, score)
	m.LastPrediction.Set(float64(rec.Prediction))

	id, err := r.deps.Store.Save(ctx, rec)
	if err != nil {
		r.deps.Logger.Error("persist failed, aborting cycle", "error", err)
		m.StoreErrors.Inc()
		m.CyclesTotal.WithLabelValues("aborted").Inc()
		return
	}
	rec.ID = id

	if err := r.deps.Broadcaster.Publish(ctx, rec); err != nil {
		r.deps.Logger.Error("broadcast failed, aborting cycle", "record_id", id, "error", err)
		m.BroadcastErrors.Inc()
		m.CyclesTotal.WithLabelValues("aborted").Inc()
		return
	}

	r.deps.Gate.MaybeAlert(ctx, &rec)

	m.CycleDuration.Observe(time.Since(start).Seconds())
	m.CyclesTotal.WithLabelValues("completed").Inc()
	r.ready.Store(true)

	r.deps.Logger.Info("cycle completed",
		"record_id", rec.ID,
		"prediction", rec.Prediction,
		"risk_level", rec.RiskLevel,
		"rainfall", rec.Rainfall,
		"water_level", rec.WaterLevel,
		"soil_moisture", rec.SoilMoisture,
	)
}

// fetchAll runs the three signal fetches concurrently. Each fetch gets its
// own timeout context, so a slow source neither blocks past its own deadline
// nor cancels its siblings; failures are already absorbed inside the clients.
func (r *Runner) fetchAll(ctx context.Context) (rainfall, waterLevel, soilMoisture domain.Reading) {
	fetch := func(c source.Client, out *domain.Reading) func() {
		return func() {
			fctx, cancel := context.WithTimeout(ctx, r.deps.FetchTimeout)
			defer cancel()
			*out = c.Fetch(fctx)
		}
	}

	var wg sync.WaitGroup
	for _, fn := range []func(){
		fetch(r.deps.Rainfall, &rainfall),
		fetch(r.deps.WaterLevel, &waterLevel),
		fetch(r.deps.SoilMoisture, &soilMoisture),
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
	return rainfall, waterLevel, soilMoisture
}
