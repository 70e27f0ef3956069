package strategy

import (
	"context"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// HeuristicRecommender derives an advisory suggestion from load trend and
// energy price. It is the default recommender while no learned service is
// deployed; its confidence stays low unless several signals agree.
type HeuristicRecommender struct {
	Roles Roles
	// ExpensiveKWh is the energy price above which efficiency gains weight.
	ExpensiveKWh float64
}

// Recommend scores the context with fixed rules.
func (r HeuristicRecommender) Recommend(_ context.Context, s Summary) (Recommendation, error) {
	expensive := r.ExpensiveKWh
	if expensive <= 0 {
		expensive = 0.25
	}

	switch {
	case s.Trend == model.TrendRapidlyRising:
		return Recommendation{
			Strategy:   r.Roles.PassengerThroughput,
			Confidence: 0.6 + 0.4*model.Clamp01(s.PassengerLoad),
			Reasoning:  "passenger load rising rapidly",
		}, nil
	case s.Trend == model.TrendRising && s.CapacityUtilization > 0.75:
		return Recommendation{
			Strategy:   r.Roles.PassengerThroughput,
			Confidence: 0.65,
			Reasoning:  "rising load on a crowded network",
		}, nil
	case s.EnergyPrice >= expensive && s.PassengerLoad < 0.5:
		return Recommendation{
			Strategy:   r.Roles.EnergyEfficiency,
			Confidence: 0.75,
			Reasoning:  "expensive energy and spare capacity",
		}, nil
	case s.Trend == model.TrendFalling && s.CapacityUtilization < 0.4:
		return Recommendation{
			Strategy:   r.Roles.EnergyEfficiency,
			Confidence: 0.7,
			Reasoning:  "demand falling on an underused network",
		}, nil
	default:
		return Recommendation{
			Strategy:   r.Roles.EnergyEfficiency,
			Confidence: 0.3,
			Reasoning:  "no strong signal",
		}, nil
	}
}
