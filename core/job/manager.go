package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/logger"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/core/solver"
	"github.com/itzzomkar/navyatra-engine/internal/clock"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// ErrCapacityExceeded is returned when the active-job bound is reached.
// The condition is transient: the trigger skips the cycle and retries
// on the next one.
var ErrCapacityExceeded = errors.New("job capacity exceeded")

// ErrNotFound is returned for unknown or already archived job ids.
var ErrNotFound = errors.New("job not found")

// CancelReasonTimeout marks jobs cancelled by the timeout watcher.
const CancelReasonTimeout = "timeout"

// timeoutFactor multiplies a strategy's estimated duration to obtain
// the hard bound enforced by the watcher.
const timeoutFactor = 1.5

// Config holds job manager tuning parameters.
type Config struct {
	// MaxActiveJobs bounds the number of concurrently active jobs.
	MaxActiveJobs int `json:"max_active_jobs"`
	// WatchIntervalSeconds is how often the timeout watcher scans.
	WatchIntervalSeconds int `json:"watch_interval_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxActiveJobs <= 0 {
		c.MaxActiveJobs = 4
	}
	if c.WatchIntervalSeconds <= 0 {
		c.WatchIntervalSeconds = 15
	}
}

// Manager owns the lifecycle of optimization jobs: creation, execution,
// progress, completion and the table of concurrently active jobs. All
// job state is guarded by a single mutex; the lock is never held across
// solver execution.
type Manager struct {
	cfg      Config
	registry *solver.Registry
	archive  ArchiveStore
	bus      eventbus.EventBus
	sink     coremetrics.MetricsSink
	log      logger.Logger
	clk      clock.Clock

	mu     sync.Mutex
	active map[string]*Job

	wg sync.WaitGroup
}

// NewManager creates a job manager. archive, bus and sink may be nil.
func NewManager(cfg Config, registry *solver.Registry, archive ArchiveStore, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger, clk clock.Clock) (*Manager, error) {
	if registry == nil {
		return nil, fmt.Errorf("job: nil solver registry")
	}
	if log == nil {
		return nil, fmt.Errorf("job: nil logger")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	cfg.SetDefaults()
	return &Manager{
		cfg:      cfg,
		registry: registry,
		archive:  archive,
		bus:      bus,
		sink:     sink,
		log:      log,
		clk:      clk,
		active:   make(map[string]*Job),
	}, nil
}

// Submit creates a job for the strategy against the snapshot and starts
// asynchronous execution. It returns immediately with the job id. The
// snapshot reference is captured at submission; later refreshes never
// alter a running job's input.
func (m *Manager) Submit(strategy model.Strategy, snap *model.Snapshot) (string, error) {
	sv, err := m.registry.Resolve(strategy.AlgorithmID)
	if err != nil {
		return "", err
	}

	now := m.clk.Now()
	j := &Job{
		ID:        uuid.NewString(),
		Strategy:  strategy,
		Snapshot:  snap,
		Status:    StatusCreated,
		CreatedAt: now,
	}

	m.mu.Lock()
	if len(m.active) >= m.cfg.MaxActiveJobs {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %d active", ErrCapacityExceeded, m.cfg.MaxActiveJobs)
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.Status = StatusRunning
	j.StartedAt = now
	m.active[j.ID] = j
	m.mu.Unlock()

	m.publish(events.JobEvent{JobID: j.ID, Phase: events.JobSubmitted, Strategy: strategy.Name, OccurredAt: now})
	m.log.Infof("job %s submitted: strategy=%s algorithm=%s", j.ID, strategy.Name, strategy.AlgorithmID)

	m.wg.Add(1)
	go m.execute(ctx, j, sv)
	return j.ID, nil
}

// Progress returns the current progress of an active job.
func (m *Manager) Progress(id string) (ProgressInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.active[id]
	if !ok {
		return ProgressInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ProgressInfo{Percent: j.Progress, Iteration: j.Iteration}, nil
}

// Get returns a copy of the observable state of an active job.
func (m *Manager) Get(id string) (View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.active[id]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j.view(), nil
}

// ActiveCount returns the number of jobs in the active table.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Cancel requests cooperative cancellation of a running job, recording
// the reason. Cancelling a terminal or unknown job is a no-op.
func (m *Manager) Cancel(id, reason string) {
	m.mu.Lock()
	j, ok := m.active[id]
	if !ok || j.Status != StatusRunning {
		m.mu.Unlock()
		return
	}
	if j.cancelReason == "" {
		j.cancelReason = reason
	}
	cancel := j.cancel
	m.mu.Unlock()

	m.log.Infof("job %s cancel requested: %s", id, reason)
	cancel()
}

// StartWatcher runs the timeout watcher until ctx is done. Any running
// job whose elapsed time exceeds 1.5x its strategy's estimated duration
// is cancelled with reason "timeout".
func (m *Manager) StartWatcher(ctx context.Context) {
	interval := time.Duration(m.cfg.WatchIntervalSeconds) * time.Second
	t := m.clk.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C():
				m.scanTimeouts()
			}
		}
	}()
}

func (m *Manager) scanTimeouts() {
	now := m.clk.Now()
	var expired []string
	m.mu.Lock()
	for id, j := range m.active {
		if j.Status != StatusRunning {
			continue
		}
		bound := time.Duration(timeoutFactor * float64(j.Strategy.EstimatedDuration()))
		if now.Sub(j.StartedAt) > bound {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.Cancel(id, CancelReasonTimeout)
	}
}

// Wait blocks until every in-flight job goroutine has finished.
// Intended for shutdown and tests.
func (m *Manager) Wait() { m.wg.Wait() }

// execute runs the solver and drives the job to a terminal state.
func (m *Manager) execute(ctx context.Context, j *Job, sv solver.Solver) {
	defer m.wg.Done()
	req := solver.Request{
		Snapshot:    j.Snapshot,
		Parameters:  j.Strategy.Parameters,
		Constraints: j.Strategy.Constraints,
		Progress: func(percent float64, iteration int) {
			m.updateProgress(j, percent, iteration)
		},
	}

	result, err := sv.Solve(ctx, req)
	switch {
	case err == nil:
		if verr := result.Validate(); verr != nil {
			m.finish(j, StatusFailed, fmt.Sprintf("inconsistent result: %v", verr), nil)
			return
		}
		m.finish(j, StatusCompleted, "", &result)
	case errors.Is(err, solver.ErrInfeasible):
		m.finish(j, StatusFailed, err.Error(), nil)
	case ctx.Err() != nil:
		// cancelled by Cancel or the timeout watcher
		m.mu.Lock()
		reason := j.cancelReason
		m.mu.Unlock()
		if reason == "" {
			reason = CancelReasonTimeout
		}
		m.finish(j, StatusCancelled, reason, nil)
	case errors.Is(err, solver.ErrTimeout):
		m.finish(j, StatusCancelled, CancelReasonTimeout, nil)
	default:
		m.finish(j, StatusFailed, err.Error(), nil)
	}
}

func (m *Manager) updateProgress(j *Job, percent float64, iteration int) {
	m.mu.Lock()
	if j.Status != StatusRunning {
		m.mu.Unlock()
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.Progress = percent
	j.Iteration = iteration
	m.mu.Unlock()

	m.publish(events.JobEvent{
		JobID:      j.ID,
		Phase:      events.JobProgress,
		Strategy:   j.Strategy.Name,
		Progress:   percent,
		Iteration:  iteration,
		OccurredAt: m.clk.Now(),
	})
}

// finish moves the job to a terminal state, archives it and removes it
// from the active table. Transitions out of a terminal state never
// happen: the first finish wins.
func (m *Manager) finish(j *Job, status Status, reason string, result *model.OptimizationResult) {
	now := m.clk.Now()

	m.mu.Lock()
	if j.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	j.Status = status
	j.FinishedAt = now
	j.FailureReason = reason
	j.Result = result
	if status == StatusCompleted {
		j.Progress = 100
	}
	rec := recordOf(j)
	delete(m.active, j.ID)
	m.mu.Unlock()

	if j.cancel != nil {
		j.cancel() // release the job context
	}

	phase := events.JobCompleted
	switch status {
	case StatusFailed:
		phase = events.JobFailed
	case StatusCancelled:
		phase = events.JobCancelled
	}
	m.publish(events.JobEvent{
		JobID:      j.ID,
		Phase:      phase,
		Strategy:   j.Strategy.Name,
		Progress:   j.Progress,
		Iteration:  j.Iteration,
		Reason:     reason,
		Result:     result,
		OccurredAt: now,
	})

	if m.sink != nil {
		outcome := coremetrics.JobRecord{
			JobID:    j.ID,
			Strategy: j.Strategy.Name,
			Status:   status.String(),
			Reason:   reason,
			Duration: now.Sub(j.StartedAt),
			Time:     now,
		}
		if result != nil {
			outcome.Fitness = result.FitnessScore
			outcome.Improvement = result.ImprovementPct
		}
		if err := m.sink.RecordJobOutcome(outcome); err != nil {
			m.log.Warnf("record job outcome: %v", err)
		}
	}

	if m.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.archive.Append(ctx, rec); err != nil {
			m.log.Errorf("archive job %s: %v", j.ID, err)
		}
	}

	m.log.Infof("job %s %s (strategy=%s, reason=%q)", j.ID, status, j.Strategy.Name, reason)
}

func (m *Manager) publish(ev events.JobEvent) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}
