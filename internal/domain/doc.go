// Package domain models one flood-risk monitoring cycle.
//
// # Signals
//
// Each cycle acquires three environmental signals for the monitored
// location:
//
//	rainfall      current precipitation in mm (Open-Meteo)
//	water level   river gauge height in metres
//	soil moisture volumetric fraction in [0,1] (Open-Meteo, top 1cm)
//
// A signal whose provider cannot be reached within the per-call timeout is
// replaced by a fixed fallback constant and its provenance recorded as
// "fallback". A degraded signal never aborts a cycle.
//
// # Risk score
//
// The prediction is an integer in [0,100]. When a model artifact is loaded
// the score comes from inference; otherwise [HeuristicScore] produces it
// from hand-tuned threshold buckets. The score maps onto three risk levels:
//
//	 <30   low
//	30-69  medium
//	 >=70  high
//
// Medium and high records are eligible for an outbound alert. SentAlert
// flips false->true at most once per record, only after confirmed delivery.
//
// # Fallback constants
//
// Rainfall falls back to 0 (assume no rain rather than invent rain). Water
// level falls back to 2.1m and soil moisture to 0.5, long-run normals for
// the monitored basin, so a missing signal biases the score toward neither
// extreme.
package domain
