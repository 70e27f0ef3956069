package engine

import "github.com/itzzomkar/navyatra-engine/core/model"

// Gate thresholds for the "is optimization needed" decision.
const (
	minOnTimePerformance = 0.85
	minUtilization       = 0.3
	maxUtilization       = 0.9
	minEnergyEfficiency  = 0.7
)

// optimizationNeeded decides whether the main and peak cycles should
// submit a job for this snapshot. Any single degraded condition opens
// the gate; a healthy off-peak system is left alone.
func optimizationNeeded(snap *model.Snapshot) bool {
	switch {
	case snap.HasEmergency():
		return true
	case snap.OnTimePerformance < minOnTimePerformance:
		return true
	case snap.CapacityUtilization < minUtilization || snap.CapacityUtilization > maxUtilization:
		return true
	case snap.EnergyEfficiency < minEnergyEfficiency:
		return true
	case snap.Trend == model.TrendRapidlyRising:
		return true
	case snap.Period.IsPeak():
		return true
	}
	return false
}
