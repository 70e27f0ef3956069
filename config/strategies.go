package config

import "github.com/itzzomkar/navyatra-engine/core/model"

// StrategyConfig is the file representation of one catalog entry.
type StrategyConfig struct {
	Name        string             `json:"name"`
	Priority    string             `json:"priority"`
	Algorithm   string             `json:"algorithm"`
	Parameters  map[string]float64 `json:"parameters"`
	Constraints map[string]float64 `json:"constraints"`
}

// ModelStrategies converts the configured strategies to their model form.
func (c *Config) ModelStrategies() []model.Strategy {
	out := make([]model.Strategy, 0, len(c.Strategies))
	for _, s := range c.Strategies {
		out = append(out, model.Strategy{
			Name:        s.Name,
			Priority:    model.PriorityLabel(s.Priority),
			AlgorithmID: s.Algorithm,
			Parameters:  s.Parameters,
			Constraints: s.Constraints,
		})
	}
	return out
}
