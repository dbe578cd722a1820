package domain

import "math"

// HeuristicScore computes the deterministic flood-risk score used whenever no
// model artifact is available (and as the per-call fallback when inference
// fails). The buckets are hand-tuned against historical basin data and must
// stay byte-for-byte stable: dashboards and alert thresholds downstream
// assume identical output for identical inputs.
//
// Units: rainfall in mm, waterLevel in metres, soilMoisture in [0,1].
func HeuristicScore(rainfall, waterLevel, soilMoisture float64) int {
	score := rainfallPoints(rainfall) + waterLevelPoints(waterLevel) + soilMoisturePoints(soilMoisture)

	// All three signals elevated at once compound nonlinearly: saturated
	// ground plus a high river plus active rain is worse than the sum of
	// its parts.
	if rainfall > 20 && waterLevel > 3 && soilMoisture > 0.7 {
		score *= 1.3
	}

	return ClampScore(int(math.Round(score)))
}

func rainfallPoints(mm float64) float64 {
	switch {
	case mm > 50:
		return 45
	case mm > 30:
		return 38
	case mm > 20:
		return 28
	case mm > 10:
		return 18
	case mm > 5:
		return 10
	default:
		// Linear below 5mm: a drizzle contributes its own millimetres.
		return mm
	}
}

func waterLevelPoints(m float64) float64 {
	switch {
	case m > 5:
		return 35
	case m > 4:
		return 28
	case m > 3:
		return 20
	case m > 2.5:
		return 12
	case m > 2:
		return 5
	default:
		return 0
	}
}

// Soil boundaries are inclusive: moisture exactly at 0.7 earns the 12-point
// bucket, while the combined multiplier above still requires strictly more
// than 0.7.
func soilMoisturePoints(frac float64) float64 {
	switch {
	case frac >= 0.9:
		return 20
	case frac >= 0.8:
		return 16
	case frac >= 0.7:
		return 12
	case frac >= 0.6:
		return 8
	case frac >= 0.5:
		return 4
	default:
		return 0
	}
}
