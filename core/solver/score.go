package solver

import (
	"math"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// Metric keys shared by the built-in solvers.
const (
	MetricCrowdingRelief = "crowding_relief"
	MetricEnergySavings  = "energy_savings_kwh"
	MetricCostDelta      = "cost_delta"
	MetricUtilization    = "utilization"
	MetricViolations     = "constraint_violations"
)

// idealUtilization is the target occupancy band center the fleet aims for.
const idealUtilization = 0.7

// scoreResult derives the fitness score and improvement percentage from
// the metrics map. Both values come from the same metrics; they are
// never produced independently.
func scoreResult(metrics map[string]float64, baselineUtil float64) (fitness, improvement float64) {
	relief := model.Clamp01(metrics[MetricCrowdingRelief])
	util := model.Clamp01(metrics[MetricUtilization])
	savings := metrics[MetricEnergySavings]
	violations := metrics[MetricViolations]

	// closeness of the projected utilization to the ideal band
	utilScore := model.Clamp01(1 - math.Abs(util-idealUtilization)/idealUtilization)
	// savings normalized against a 100 kWh reference band; negative
	// savings (extra service) reduce the score but never below zero
	savingsNorm := model.Clamp01(0.5 + savings/200)

	fitness = 10 * (0.4*relief + 0.35*utilScore + 0.25*savingsNorm)
	fitness -= violations * 0.5
	if fitness < 0 {
		fitness = 0
	}
	if fitness > 10 {
		fitness = 10
	}

	// improvement is the reduction of distance to the ideal band
	before := math.Abs(baselineUtil - idealUtilization)
	after := math.Abs(util - idealUtilization)
	if before > 1e-9 {
		improvement = (before - after) / before * 100
	} else {
		improvement = relief * 100
	}
	return fitness, improvement
}
