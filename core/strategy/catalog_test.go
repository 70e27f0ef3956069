package strategy

import (
	"errors"
	"testing"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

func testStrategies() []model.Strategy {
	return []model.Strategy{
		{Name: "safety", Priority: model.PrioritySafetyFirst, AlgorithmID: "greedy_headway"},
		{Name: "continuity", Priority: model.PriorityServiceContinuity, AlgorithmID: "greedy_headway"},
		{Name: "throughput", Priority: model.PriorityPassengerThroughput, AlgorithmID: "lp_allocation"},
		{Name: "efficiency", Priority: model.PriorityEnergyEfficiency, AlgorithmID: "lp_allocation"},
	}
}

func testRoles() Roles {
	return Roles{
		SafetyFirst:         "safety",
		ServiceContinuity:   "continuity",
		PassengerThroughput: "throughput",
		EnergyEfficiency:    "efficiency",
	}
}

func TestCatalogGet(t *testing.T) {
	c, err := NewCatalog(testStrategies())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s, err := c.Get("safety")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Priority != model.PrioritySafetyFirst {
		t.Errorf("unexpected priority %v", s.Priority)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy got %v", err)
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	ss := testStrategies()
	ss = append(ss, model.Strategy{Name: "safety", AlgorithmID: "x"})
	if _, err := NewCatalog(ss); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestCatalogAllSorted(t *testing.T) {
	c, _ := NewCatalog(testStrategies())
	all := c.All()
	if len(all) != 4 {
		t.Fatalf("expected 4 strategies got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("not sorted: %s before %s", all[i-1].Name, all[i].Name)
		}
	}
}

func TestResolveRolesMissingIsFatal(t *testing.T) {
	c, _ := NewCatalog(testStrategies())
	roles := testRoles()
	roles.SafetyFirst = "not_configured"
	if err := c.ResolveRoles(roles); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy got %v", err)
	}
}
