// Package alert decides whether a scored record triggers an outbound push
// notification and guarantees at-most-one alert per record.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// Topic is the push topic all flood alerts are published under.
const Topic = "flood_alerts"

// Payload is the notification handed to the Notifier.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Topic string `json:"topic"`
	Data  Data   `json:"data"`
}

// Data carries the structured alert fields for client-side handling.
type Data struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Risk  int     `json:"risk"`
	Level string  `json:"level"`
}

// Notifier delivers one alert payload.
type Notifier interface {
	Send(ctx context.Context, p Payload) error
}

// FlagWriter is the single authorized write-back path for a record's
// sent-alert flag.
type FlagWriter interface {
	UpdateSentAlert(ctx context.Context, id int64, sent bool) error
}

// Gate enforces the alerting rules: only medium/high records, at most one
// alert per record, optionally rate-limited per risk level across cycles.
// A nil Notifier turns the gate into a logged no-op.
type Gate struct {
	notifier Notifier
	store    FlagWriter
	cooldown time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewGate builds the alert gate. cooldown zero disables cross-cycle
// suppression; notifier may be nil when no gateway is configured.
func NewGate(notifier Notifier, store FlagWriter, cooldown time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		notifier: notifier,
		store:    store,
		cooldown: cooldown,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		lastSent: make(map[string]time.Time),
	}
}

// MaybeAlert sends an alert for the record if the gate's conditions hold.
// On confirmed delivery it flips SentAlert in memory and persists the flag;
// on delivery failure the flag stays false so an external retry path can
// revisit the record. Nothing here is ever fatal to the cycle.
func (g *Gate) MaybeAlert(ctx context.Context, rec *domain.RiskRecord) {
	if g.notifier == nil {
		g.logger.Debug("no notifier configured, skipping alert", "record_id", rec.ID)
		g.metrics.AlertsSuppressed.WithLabelValues("disabled").Inc()
		return
	}
	if rec.RiskLevel == domain.RiskLow {
		g.metrics.AlertsSuppressed.WithLabelValues("low_risk").Inc()
		return
	}
	if rec.SentAlert {
		g.metrics.AlertsSuppressed.WithLabelValues("already_sent").Inc()
		return
	}
	if !g.allow(rec.RiskLevel) {
		g.logger.Info("alert suppressed by cooldown",
			"record_id", rec.ID, "risk_level", rec.RiskLevel, "cooldown", g.cooldown)
		g.metrics.AlertsSuppressed.WithLabelValues("cooldown").Inc()
		return
	}

	p := buildPayload(rec)
	if err := g.notifier.Send(ctx, p); err != nil {
		g.logger.Warn("alert delivery failed, sent_alert stays false",
			"record_id", rec.ID, "risk_level", rec.RiskLevel, "error", err)
		g.metrics.DeliveryErrors.Inc()
		return
	}

	g.markSent(rec.RiskLevel)
	rec.SentAlert = true
	g.metrics.AlertsSent.Inc()
	g.logger.Info("flood alert sent", "record_id", rec.ID, "risk_level", rec.RiskLevel, "prediction", rec.Prediction)

	if err := g.store.UpdateSentAlert(ctx, rec.ID, true); err != nil {
		// The alert went out but the flag did not persist; a restart could
		// re-alert this record. Loud log so the operator knows.
		g.logger.Error("failed to persist sent_alert flag", "record_id", rec.ID, "error", err)
		g.metrics.StoreErrors.Inc()
	}
}

// allow implements the optional cross-cycle cooldown per risk level.
func (g *Gate) allow(level string) bool {
	if g.cooldown <= 0 {
		return true
	}
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if ts, ok := g.lastSent[level]; ok && now.Sub(ts) < g.cooldown {
		return false
	}
	return true
}

func (g *Gate) markSent(level string) {
	if g.cooldown <= 0 {
		return
	}
	g.mu.Lock()
	g.lastSent[level] = g.clock.Now()
	g.mu.Unlock()
}

func buildPayload(rec *domain.RiskRecord) Payload {
	return Payload{
		Title: fmt.Sprintf("Flood risk %s", rec.RiskLevel),
		Body: fmt.Sprintf("Risk score %d/100. Rainfall %.1fmm, water level %.2fm, soil moisture %.2f.",
			rec.Prediction, rec.Rainfall, rec.WaterLevel, rec.SoilMoisture),
		Topic: Topic,
		Data: Data{
			Lat:   rec.Location.Lat,
			Lng:   rec.Location.Lng,
			Risk:  rec.Prediction,
			Level: rec.RiskLevel,
		},
	}
}
