package model

import (
	"fmt"
	"time"
)

// PriorityLabel names the operating objective a strategy optimizes for.
type PriorityLabel string

const (
	PrioritySafetyFirst         PriorityLabel = "safety_first"
	PriorityServiceContinuity   PriorityLabel = "service_continuity"
	PriorityPassengerThroughput PriorityLabel = "passenger_throughput"
	PriorityEnergyEfficiency    PriorityLabel = "energy_efficiency"
)

// Strategy is a named optimization configuration. Strategies are loaded
// once at startup and never mutated at runtime.
type Strategy struct {
	Name        string
	Priority    PriorityLabel
	AlgorithmID string
	Parameters  map[string]float64
	Constraints map[string]float64
}

// Validate checks that the strategy is usable.
func (s Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy name must not be empty")
	}
	if s.AlgorithmID == "" {
		return fmt.Errorf("strategy %s: algorithm id must not be empty", s.Name)
	}
	return nil
}

// Param returns the named parameter or def when absent.
func (s Strategy) Param(name string, def float64) float64 {
	if v, ok := s.Parameters[name]; ok {
		return v
	}
	return def
}

// EstimatedDuration returns the expected solver run time, taken from the
// estimated_duration_seconds parameter. The timeout watcher cancels jobs
// running longer than 1.5 times this value.
func (s Strategy) EstimatedDuration() time.Duration {
	const defSeconds = 120
	sec := s.Param("estimated_duration_seconds", defSeconds)
	if sec <= 0 {
		sec = defSeconds
	}
	return time.Duration(sec * float64(time.Second))
}

// WithParams returns a copy of the strategy with the given parameters
// overlaid. The receiver's parameter map is not modified, so catalog
// entries stay immutable even when the scheduler intensifies a profile.
func (s Strategy) WithParams(overrides map[string]float64) Strategy {
	merged := make(map[string]float64, len(s.Parameters)+len(overrides))
	for k, v := range s.Parameters {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	s.Parameters = merged
	return s
}
