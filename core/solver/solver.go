package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// ErrInfeasible indicates the solver cannot satisfy the constraints.
var ErrInfeasible = errors.New("solver infeasible")

// ErrTimeout indicates the solver exceeded its time budget.
var ErrTimeout = errors.New("solver timeout")

// ErrUnknownAlgorithm is returned when an algorithm id is not registered.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Progress reports solver progress back to the job manager.
// percent is in [0,100].
type Progress func(percent float64, iteration int)

// Request is the input to one solver run. The snapshot is captured by
// value at submission time and never changes during the run.
type Request struct {
	Snapshot    *model.Snapshot
	Parameters  map[string]float64
	Constraints map[string]float64
	Progress    Progress
}

// Param returns the named parameter or def when absent.
func (r Request) Param(name string, def float64) float64 {
	if v, ok := r.Parameters[name]; ok {
		return v
	}
	return def
}

// Constraint returns the named constraint or def when absent.
func (r Request) Constraint(name string, def float64) float64 {
	if v, ok := r.Constraints[name]; ok {
		return v
	}
	return def
}

func (r Request) report(percent float64, iteration int) {
	if r.Progress != nil {
		r.Progress(percent, iteration)
	}
}

// Solver produces an optimization result for a request. Implementations
// must honor ctx cancellation promptly: the job manager cancels the
// context on job cancellation and on timeout.
type Solver interface {
	Solve(ctx context.Context, req Request) (model.OptimizationResult, error)
}

// Registry maps algorithm ids to solver implementations. It is populated
// at startup and read-only afterwards.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Solver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Solver)}
}

// DefaultRegistry returns a registry with the built-in solvers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(AlgorithmLPAllocation, NewLPAllocator())
	r.Register(AlgorithmGreedyHeadway, NewGreedyHeadway())
	return r
}

// Register adds a solver under the given algorithm id.
func (r *Registry) Register(id string, s Solver) {
	r.mu.Lock()
	r.byID[id] = s
	r.mu.Unlock()
}

// Resolve returns the solver for the algorithm id.
func (r *Registry) Resolve(id string) (Solver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, id)
	}
	return s, nil
}

// IDs returns the registered algorithm ids sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
