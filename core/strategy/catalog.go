package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// ErrUnknownStrategy is returned when a strategy name is not in the catalog.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Roles maps each priority label to the strategy name the selector uses
// for it. Every role must resolve to a catalog entry at startup.
type Roles struct {
	SafetyFirst         string `json:"safety_first"`
	ServiceContinuity   string `json:"service_continuity"`
	PassengerThroughput string `json:"passenger_throughput"`
	EnergyEfficiency    string `json:"energy_efficiency"`
}

// Catalog is an immutable registry of named strategies. Strategy tuning
// is a deployment-time configuration change; there is no mutation API.
type Catalog struct {
	byName map[string]model.Strategy
}

// NewCatalog validates the strategies and builds the catalog.
func NewCatalog(strategies []model.Strategy) (*Catalog, error) {
	byName := make(map[string]model.Strategy, len(strategies))
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate strategy %s", s.Name)
		}
		byName[s.Name] = s
	}
	return &Catalog{byName: byName}, nil
}

// Get returns the named strategy or ErrUnknownStrategy.
func (c *Catalog) Get(name string) (model.Strategy, error) {
	s, ok := c.byName[name]
	if !ok {
		return model.Strategy{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s, nil
}

// All returns every strategy sorted by name.
func (c *Catalog) All() []model.Strategy {
	out := make([]model.Strategy, 0, len(c.byName))
	for _, s := range c.byName {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveRoles checks at startup that every selector role references an
// existing strategy. A missing reference is a fatal configuration error.
func (c *Catalog) ResolveRoles(r Roles) error {
	for _, name := range []string{r.SafetyFirst, r.ServiceContinuity, r.PassengerThroughput, r.EnergyEfficiency} {
		if _, err := c.Get(name); err != nil {
			return err
		}
	}
	return nil
}
