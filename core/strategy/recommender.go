package strategy

import (
	"context"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// Summary is the condensed operational context handed to a recommender.
type Summary struct {
	Period              model.PeriodType
	PassengerLoad       float64
	CapacityUtilization float64
	OnTimePerformance   float64
	EnergyEfficiency    float64
	Trend               model.LoadTrend
	EnergyPrice         float64
}

// Recommendation is the advisory output of a learned recommender.
type Recommendation struct {
	Strategy   string
	Confidence float64
	Reasoning  string
}

// Recommender suggests a strategy for the given context. The suggestion
// is advisory only: the selector consults it for the throughput and
// efficiency rules and never lets it override the safety or maintenance
// precedence.
type Recommender interface {
	Recommend(ctx context.Context, s Summary) (Recommendation, error)
}

// StaticRecommender returns a fixed recommendation. Intended for tests
// and as a stand-in while no learned service is deployed.
type StaticRecommender struct {
	Out Recommendation
	Err error
}

// Recommend returns the configured recommendation.
func (r StaticRecommender) Recommend(context.Context, Summary) (Recommendation, error) {
	return r.Out, r.Err
}
