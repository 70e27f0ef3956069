package model

import "fmt"

// ChangeType classifies an applied schedule adjustment.
type ChangeType string

const (
	ChangeHeadway  ChangeType = "headway"
	ChangeCapacity ChangeType = "capacity"
	ChangeEnergy   ChangeType = "energy"
)

// Change is one concrete schedule, capacity or energy adjustment
// produced by a solver and committed downstream by the applier.
type Change struct {
	Type        ChangeType
	TargetID    string // route or vehicle the change applies to
	Description string
	Delta       float64
}

// Recommendation is an advisory note attached to a result for operators.
type Recommendation struct {
	Title    string
	Detail   string
	Severity string
}

// OptimizationResult is the outcome of one solver run. FitnessScore and
// ImprovementPct are derived from Metrics by the solver, never set
// independently of them.
type OptimizationResult struct {
	FitnessScore    float64 // 0..10
	ImprovementPct  float64
	Metrics         map[string]float64
	AppliedChanges  []Change
	Recommendations []Recommendation
	Iterations      int
}

// Validate checks internal consistency of a result.
func (r OptimizationResult) Validate() error {
	if r.FitnessScore < 0 || r.FitnessScore > 10 {
		return fmt.Errorf("fitness score %.2f outside [0,10]", r.FitnessScore)
	}
	if len(r.Metrics) == 0 {
		return fmt.Errorf("result carries no metrics")
	}
	return nil
}
