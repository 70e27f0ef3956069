package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/core/solver"
	"github.com/itzzomkar/navyatra-engine/internal/clock"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

// okSolver completes immediately with a consistent result.
type okSolver struct{}

func (okSolver) Solve(_ context.Context, req solver.Request) (model.OptimizationResult, error) {
	if req.Progress != nil {
		req.Progress(50, 1)
	}
	return model.OptimizationResult{
		FitnessScore: 6.5,
		Metrics:      map[string]float64{"utilization": 0.7},
		Iterations:   1,
	}, nil
}

// blockingSolver waits for cancellation and reports it like a
// well-behaved solver.
type blockingSolver struct{ started chan struct{} }

func (s *blockingSolver) Solve(ctx context.Context, _ solver.Request) (model.OptimizationResult, error) {
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	<-ctx.Done()
	return model.OptimizationResult{}, fmt.Errorf("%w: %v", solver.ErrTimeout, ctx.Err())
}

type infeasibleSolver struct{}

func (infeasibleSolver) Solve(context.Context, solver.Request) (model.OptimizationResult, error) {
	return model.OptimizationResult{}, fmt.Errorf("%w: fleet budget too small", solver.ErrInfeasible)
}

// memArchive is an in-memory ArchiveStore for tests.
type memArchive struct {
	mu   sync.Mutex
	recs []Record
}

func (a *memArchive) Append(_ context.Context, rec Record) error {
	a.mu.Lock()
	a.recs = append(a.recs, rec)
	a.mu.Unlock()
	return nil
}

func (a *memArchive) Query(_ context.Context, _ ArchiveQuery) ([]Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.recs))
	copy(out, a.recs)
	return out, nil
}

func (a *memArchive) Close() error { return nil }

func testStrategy(algorithm string) model.Strategy {
	return model.Strategy{
		Name:        "throughput",
		Priority:    model.PriorityPassengerThroughput,
		AlgorithmID: algorithm,
		Parameters:  map[string]float64{"estimated_duration_seconds": 100},
	}
}

func newTestManager(t *testing.T, cfg Config, reg *solver.Registry, clk clock.Clock) (*Manager, *eventbus.Bus, *memArchive) {
	t.Helper()
	bus := eventbus.New()
	arch := &memArchive{}
	m, err := NewManager(cfg, reg, arch, bus, nil, nopLogger{}, clk)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m, bus, arch
}

// waitPhase consumes bus events until the wanted phase arrives for the job.
func waitPhase(t *testing.T, ch <-chan eventbus.Event, jobID string, phase events.JobPhase) events.JobEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			je, ok := ev.(events.JobEvent)
			if ok && je.JobID == jobID && je.Phase == phase {
				return je
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s on job %s", phase, jobID)
		}
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	reg := solver.NewRegistry()
	reg.Register("ok", okSolver{})
	m, bus, arch := newTestManager(t, Config{}, reg, nil)
	sub := bus.Subscribe()

	snap := &model.Snapshot{Period: model.PeriodDayTime}
	id, err := m.Submit(testStrategy("ok"), snap)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ev := waitPhase(t, sub, id, events.JobCompleted)
	if ev.Result == nil || ev.Result.FitnessScore != 6.5 {
		t.Errorf("completed event missing result: %+v", ev)
	}
	m.Wait()

	if m.ActiveCount() != 0 {
		t.Errorf("terminal job still in active table")
	}
	if _, err := m.Progress(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after archive, got %v", err)
	}
	recs, _ := arch.Query(context.Background(), ArchiveQuery{})
	if len(recs) != 1 || recs[0].Status != "completed" {
		t.Errorf("expected one archived completed record, got %+v", recs)
	}
}

func TestSubmitUnknownAlgorithm(t *testing.T) {
	m, _, _ := newTestManager(t, Config{}, solver.NewRegistry(), nil)
	if _, err := m.Submit(testStrategy("ghost"), &model.Snapshot{}); !errors.Is(err, solver.ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm got %v", err)
	}
}

func TestSubmitCapacityExceeded(t *testing.T) {
	reg := solver.NewRegistry()
	blocker := &blockingSolver{}
	reg.Register("block", blocker)
	m, _, _ := newTestManager(t, Config{MaxActiveJobs: 2}, reg, nil)

	snap := &model.Snapshot{}
	for i := 0; i < 2; i++ {
		if _, err := m.Submit(testStrategy("block"), snap); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if _, err := m.Submit(testStrategy("block"), snap); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded got %v", err)
	}

	// free the slots
	for _, v := range m.activeIDs() {
		m.Cancel(v, "test teardown")
	}
	m.Wait()
}

func (m *Manager) activeIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

func TestCancelIsIdempotent(t *testing.T) {
	reg := solver.NewRegistry()
	started := make(chan struct{}, 1)
	reg.Register("block", &blockingSolver{started: started})
	m, bus, arch := newTestManager(t, Config{}, reg, nil)
	sub := bus.Subscribe()

	id, err := m.Submit(testStrategy("block"), &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	m.Cancel(id, "operator request")
	ev := waitPhase(t, sub, id, events.JobCancelled)
	if ev.Reason != "operator request" {
		t.Errorf("expected recorded reason, got %q", ev.Reason)
	}
	m.Wait()

	// cancelling a terminal job must be a silent no-op
	m.Cancel(id, "again")
	m.Cancel("no-such-job", "whatever")

	recs, _ := arch.Query(context.Background(), ArchiveQuery{})
	if len(recs) != 1 || recs[0].Status != "cancelled" {
		t.Fatalf("expected single cancelled record, got %+v", recs)
	}
}

func TestInfeasibleJobFails(t *testing.T) {
	reg := solver.NewRegistry()
	reg.Register("bad", infeasibleSolver{})
	m, bus, _ := newTestManager(t, Config{}, reg, nil)
	sub := bus.Subscribe()

	id, err := m.Submit(testStrategy("bad"), &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ev := waitPhase(t, sub, id, events.JobFailed)
	if ev.Reason == "" {
		t.Errorf("failed event must carry the reason")
	}
	m.Wait()
	if m.ActiveCount() != 0 {
		t.Errorf("failed job still in active table")
	}
}

func TestProgressVisibleWhileRunning(t *testing.T) {
	reg := solver.NewRegistry()
	progressed := make(chan struct{})
	reg.Register("slow", solverFunc(func(ctx context.Context, req solver.Request) (model.OptimizationResult, error) {
		req.Progress(42, 7)
		close(progressed)
		<-ctx.Done()
		return model.OptimizationResult{}, fmt.Errorf("%w: %v", solver.ErrTimeout, ctx.Err())
	}))
	m, _, _ := newTestManager(t, Config{}, reg, nil)

	id, err := m.Submit(testStrategy("slow"), &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-progressed
	p, err := m.Progress(id)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Percent != 42 || p.Iteration != 7 {
		t.Errorf("unexpected progress %+v", p)
	}
	m.Cancel(id, "done testing")
	m.Wait()
}

type solverFunc func(context.Context, solver.Request) (model.OptimizationResult, error)

func (f solverFunc) Solve(ctx context.Context, req solver.Request) (model.OptimizationResult, error) {
	return f(ctx, req)
}

func TestWatcherCancelsOnlyPastTimeout(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	reg := solver.NewRegistry()
	started := make(chan struct{}, 1)
	reg.Register("block", &blockingSolver{started: started})
	m, bus, _ := newTestManager(t, Config{WatchIntervalSeconds: 15}, reg, clk)
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartWatcher(ctx)

	// estimated duration 100s, so the bound is 150s
	id, err := m.Submit(testStrategy("block"), &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	clk.Advance(140 * time.Second)
	time.Sleep(50 * time.Millisecond) // let the watcher consume its ticks
	if m.ActiveCount() != 1 {
		t.Fatalf("job cancelled before the timeout bound")
	}

	clk.Advance(20 * time.Second)
	ev := waitPhase(t, sub, id, events.JobCancelled)
	if ev.Reason != CancelReasonTimeout {
		t.Errorf("expected timeout reason got %q", ev.Reason)
	}
	m.Wait()
}

func TestConcurrentJobsAreIndependent(t *testing.T) {
	reg := solver.NewRegistry()
	reg.Register("ok", okSolver{})
	reg.Register("bad", infeasibleSolver{})
	m, bus, arch := newTestManager(t, Config{MaxActiveJobs: 4}, reg, nil)
	// waitPhase discards events it is not waiting for, so each job gets
	// its own subscription to observe its terminal phase regardless of
	// completion order.
	sub := bus.Subscribe()
	badSub := bus.Subscribe()

	good := testStrategy("ok")
	bad := testStrategy("bad")
	bad.Name = "efficiency"

	goodID, err := m.Submit(good, &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit good: %v", err)
	}
	badID, err := m.Submit(bad, &model.Snapshot{})
	if err != nil {
		t.Fatalf("submit bad: %v", err)
	}

	waitPhase(t, sub, goodID, events.JobCompleted)
	waitPhase(t, badSub, badID, events.JobFailed)
	m.Wait()

	recs, _ := arch.Query(context.Background(), ArchiveQuery{})
	if len(recs) != 2 {
		t.Fatalf("expected two archived records got %d", len(recs))
	}
	seen := map[string]int{}
	for _, r := range recs {
		seen[r.ID]++
	}
	if seen[goodID] != 1 || seen[badID] != 1 {
		t.Errorf("each job must be archived exactly once: %v", seen)
	}
}
