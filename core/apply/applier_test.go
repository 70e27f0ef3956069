package apply

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

type memStore struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *memStore) ApplyChanges(_ context.Context, _ string, _ []model.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls++
	return nil
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testResult() *model.OptimizationResult {
	return &model.OptimizationResult{
		FitnessScore:   5,
		Metrics:        map[string]float64{"utilization": 0.7},
		AppliedChanges: []model.Change{{Type: model.ChangeHeadway, TargetID: "network", Delta: 0.1}},
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	store := &memStore{}
	a := NewApplier(store, nopLogger{})

	for i := 0; i < 3; i++ {
		if err := a.Apply(context.Background(), "job-1", testResult()); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	if got := store.callCount(); got != 1 {
		t.Fatalf("store touched %d times, want 1", got)
	}
	if !a.Applied("job-1") {
		t.Errorf("job not marked applied")
	}
}

func TestApplyFailureIsRetriable(t *testing.T) {
	store := &memStore{err: errors.New("store down")}
	a := NewApplier(store, nopLogger{})

	if err := a.Apply(context.Background(), "job-1", testResult()); err == nil {
		t.Fatalf("expected error")
	}
	if a.Applied("job-1") {
		t.Fatalf("failed apply must not mark the job applied")
	}

	store.err = nil
	if err := a.Apply(context.Background(), "job-1", testResult()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := store.callCount(); got != 1 {
		t.Fatalf("expected one successful store call, got %d", got)
	}
}

type blockingStore struct {
	memStore
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) ApplyChanges(ctx context.Context, jobID string, ch []model.Change) error {
	s.entered <- struct{}{}
	<-s.release
	return s.memStore.ApplyChanges(ctx, jobID, ch)
}

func TestApplyConcurrentCallsWriteOnce(t *testing.T) {
	store := &blockingStore{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	a := NewApplier(store, nopLogger{})

	done := make(chan error, 1)
	go func() { done <- a.Apply(context.Background(), "job-1", testResult()) }()
	<-store.entered

	// second caller races the in-flight application of the same job
	if err := a.Apply(context.Background(), "job-1", testResult()); err != nil {
		t.Fatalf("concurrent apply: %v", err)
	}
	if got := store.callCount(); got != 0 {
		t.Fatalf("racing call must not reach the store, got %d writes", got)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if got := store.callCount(); got != 1 {
		t.Fatalf("store touched %d times, want 1", got)
	}
	if !a.Applied("job-1") {
		t.Errorf("job not marked applied")
	}
}

func TestApplyEmptyResultIsNoop(t *testing.T) {
	store := &memStore{}
	a := NewApplier(store, nopLogger{})
	if err := a.Apply(context.Background(), "job-1", nil); err != nil {
		t.Fatalf("apply nil: %v", err)
	}
	if store.callCount() != 0 {
		t.Fatalf("store must not be touched for empty results")
	}
}

type panickySink struct{}

func (panickySink) Publish(events.JobEvent) error { panic("subscriber bug") }

type countingSink struct {
	mu  sync.Mutex
	got []events.JobEvent
}

func (s *countingSink) Publish(ev events.JobEvent) error {
	s.mu.Lock()
	s.got = append(s.got, ev)
	s.mu.Unlock()
	return nil
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestNotifierAppliesAndForwards(t *testing.T) {
	bus := eventbus.New()
	store := &memStore{}
	a := NewApplier(store, nopLogger{})
	sink := &countingSink{}
	n := NewNotifier(bus, a, nopLogger{}, panickySink{}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)
	time.Sleep(10 * time.Millisecond)

	bus.Publish(events.JobEvent{JobID: "j1", Phase: events.JobCompleted, Result: testResult()})
	bus.Publish(events.JobEvent{JobID: "j2", Phase: events.JobFailed, Reason: "infeasible"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if sink.count() == 2 && store.callCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	// a panicking sink must not prevent delivery to healthy sinks
	if sink.count() != 2 {
		t.Fatalf("expected 2 forwarded events got %d", sink.count())
	}
	if store.callCount() != 1 {
		t.Fatalf("expected completed result applied once, got %d", store.callCount())
	}
	if !a.Applied("j1") {
		t.Errorf("j1 not marked applied")
	}
}
