package domain

import (
	"time"
)

// FallbackSource is the provenance marker recorded when a provider call
// failed and the fixed fallback constant was used instead.
const FallbackSource = "fallback"

// Signal fallback constants, applied by the source clients on any
// acquisition failure.
const (
	FallbackRainfall     = 0.0
	FallbackWaterLevel   = 2.1
	FallbackSoilMoisture = 0.5
)

// Risk levels derived from the prediction score.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Reading is one observation of a single signal: the numeric value plus
// where it came from (provider name or [FallbackSource]).
type Reading struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// Coordinates is a WGS-84 latitude/longitude pair for the monitored location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Provenance records which provider (or fallback) supplied each signal of a
// cycle.
type Provenance struct {
	Rainfall     string `json:"rainfall"`
	WaterLevel   string `json:"waterLevel"`
	SoilMoisture string `json:"soilMoisture"`
}

// RiskRecord is one cycle's output: the three signal values, their
// provenance, and the computed prediction. It is created by the cycle
// runner, persisted, broadcast, and then only its SentAlert field may
// change, exactly once, through the store's UpdateSentAlert path.
type RiskRecord struct {
	ID           int64       `json:"id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Location     Coordinates `json:"location"`
	Rainfall     float64     `json:"rainfall"`
	WaterLevel   float64     `json:"waterLevel"`
	SoilMoisture float64     `json:"soilMoisture"`
	DataSource   Provenance  `json:"dataSource"`
	Prediction   int         `json:"prediction"`
	RiskLevel    string      `json:"riskLevel"`
	SentAlert    bool        `json:"sentAlert"`
}

// NewRiskRecord assembles a record from the three readings and the computed
// score. The timestamp is taken from the package clock and never changes
// afterward; the score is clamped to [0,100] and classified.
func NewRiskRecord(loc Coordinates, rainfall, waterLevel, soilMoisture Reading, prediction int) RiskRecord {
	prediction = ClampScore(prediction)
	return RiskRecord{
		Timestamp:    clock.Now().UTC(),
		Location:     loc,
		Rainfall:     rainfall.Value,
		WaterLevel:   waterLevel.Value,
		SoilMoisture: soilMoisture.Value,
		DataSource: Provenance{
			Rainfall:     rainfall.Source,
			WaterLevel:   waterLevel.Source,
			SoilMoisture: soilMoisture.Source,
		},
		Prediction: prediction,
		RiskLevel:  ClassifyRisk(prediction),
	}
}

// ClassifyRisk maps a prediction score to its risk level.
func ClassifyRisk(prediction int) string {
	switch {
	case prediction >= 70:
		return RiskHigh
	case prediction >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampScore bounds a score to the valid [0,100] range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Alertable reports whether this record should trigger an outbound alert:
// risk above low and no alert sent yet.
func (r *RiskRecord) Alertable() bool {
	return r.RiskLevel != RiskLow && !r.SentAlert
}
