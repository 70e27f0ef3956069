package apply

import (
	"context"
	"fmt"
	"sync"

	"github.com/itzzomkar/navyatra-engine/core/logger"
	"github.com/itzzomkar/navyatra-engine/core/model"
)

// ScheduleStore is the downstream collaborator that receives accepted
// schedule, capacity and energy changes.
type ScheduleStore interface {
	ApplyChanges(ctx context.Context, jobID string, changes []model.Change) error
}

// Applier commits accepted results to the schedule store exactly once
// per job. Re-applying an already applied result is a no-op.
type Applier struct {
	store ScheduleStore
	log   logger.Logger

	mu       sync.Mutex
	applied  map[string]struct{}
	inflight map[string]struct{}
}

// NewApplier creates an applier writing to store.
func NewApplier(store ScheduleStore, log logger.Logger) *Applier {
	return &Applier{
		store:    store,
		log:      log,
		applied:  make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Apply commits the result's changes downstream. The first successful
// application wins; subsequent calls for the same job return nil
// without touching the store. A call racing an in-flight application
// of the same job is likewise a no-op, so the store sees at most one
// write per job id regardless of caller concurrency.
func (a *Applier) Apply(ctx context.Context, jobID string, result *model.OptimizationResult) error {
	if result == nil || len(result.AppliedChanges) == 0 {
		return nil
	}

	a.mu.Lock()
	if _, done := a.applied[jobID]; done {
		a.mu.Unlock()
		a.log.Debugf("job %s already applied, skipping", jobID)
		return nil
	}
	if _, busy := a.inflight[jobID]; busy {
		a.mu.Unlock()
		a.log.Debugf("job %s apply already in flight, skipping", jobID)
		return nil
	}
	a.inflight[jobID] = struct{}{}
	a.mu.Unlock()

	err := a.store.ApplyChanges(ctx, jobID, result.AppliedChanges)

	a.mu.Lock()
	delete(a.inflight, jobID)
	if err == nil {
		a.applied[jobID] = struct{}{}
	}
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("apply job %s: %w", jobID, err)
	}
	a.log.Infof("applied %d changes from job %s", len(result.AppliedChanges), jobID)
	return nil
}

// Applied reports whether the job's result has been committed.
func (a *Applier) Applied(jobID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.applied[jobID]
	return ok
}
