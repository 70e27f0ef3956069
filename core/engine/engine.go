package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/logger"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/core/strategy"
	"github.com/itzzomkar/navyatra-engine/internal/clock"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// Trigger names used in events, logs and metrics.
const (
	TriggerMain        = "main"
	TriggerPeak        = "peak"
	TriggerEmergency   = "emergency_watch"
	TriggerRefresh     = "state_refresh"
	TriggerMaintenance = "maintenance"
)

// Config holds scheduler timing parameters.
type Config struct {
	MainIntervalMinutes      int `json:"main_interval_minutes"`
	PeakIntervalMinutes      int `json:"peak_interval_minutes"`
	EmergencyIntervalMinutes int `json:"emergency_interval_minutes"`
	RefreshIntervalMinutes   int `json:"refresh_interval_minutes"`
	// MaintenanceHour is the off-peak hour for the daily proactive run.
	MaintenanceHour int `json:"maintenance_hour"`
	// PeakProfile overlays strategy parameters during peak cycles.
	PeakProfile map[string]float64 `json:"peak_profile"`
}

// SetDefaults applies the documented default cadence.
func (c *Config) SetDefaults() {
	if c.MainIntervalMinutes <= 0 {
		c.MainIntervalMinutes = 5
	}
	if c.PeakIntervalMinutes <= 0 {
		c.PeakIntervalMinutes = 2
	}
	if c.EmergencyIntervalMinutes <= 0 {
		c.EmergencyIntervalMinutes = 1
	}
	if c.RefreshIntervalMinutes <= 0 {
		c.RefreshIntervalMinutes = 1
	}
	if c.MaintenanceHour <= 0 {
		c.MaintenanceHour = 3
	}
	if c.PeakProfile == nil {
		c.PeakProfile = map[string]float64{"max_iterations": 200, "search_effort": 2}
	}
}

// SnapshotSource supplies the operational picture.
type SnapshotSource interface {
	Current() *model.Snapshot
	Refresh(ctx context.Context)
}

// Selector resolves a strategy for a snapshot.
type Selector interface {
	Select(snap *model.Snapshot) (model.Strategy, error)
}

// Submitter starts optimization jobs.
type Submitter interface {
	Submit(strategy model.Strategy, snap *model.Snapshot) (string, error)
}

// Engine drives the control loop through five independently timed
// triggers. Each trigger runs autonomously; one cycle's failure never
// stops the next tick.
type Engine struct {
	cfg      Config
	src      SnapshotSource
	selector Selector
	jobs     Submitter
	catalog  *strategy.Catalog
	roles    strategy.Roles
	bus      eventbus.EventBus
	sink     coremetrics.MetricsSink
	log      logger.Logger
	clk      clock.Clock

	mu              sync.Mutex
	lastMaintenance time.Time
}

// New creates an engine. bus and sink may be nil.
func New(cfg Config, src SnapshotSource, selector Selector, jobs Submitter, catalog *strategy.Catalog, roles strategy.Roles, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger, clk clock.Clock) (*Engine, error) {
	if src == nil || selector == nil || jobs == nil || catalog == nil {
		return nil, fmt.Errorf("engine: nil dependency")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	cfg.SetDefaults()
	if err := catalog.ResolveRoles(roles); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:      cfg,
		src:      src,
		selector: selector,
		jobs:     jobs,
		catalog:  catalog,
		roles:    roles,
		bus:      bus,
		sink:     sink,
		log:      log,
		clk:      clk,
	}, nil
}

// Start launches every trigger loop. The loops stop when ctx is done.
func (e *Engine) Start(ctx context.Context) {
	min := time.Minute
	// Tickers are created here, before the goroutines start, so every
	// trigger is scheduled once Start returns.
	go e.loop(ctx, TriggerMain, e.clk.NewTicker(time.Duration(e.cfg.MainIntervalMinutes)*min), e.mainCycle)
	go e.loop(ctx, TriggerPeak, e.clk.NewTicker(time.Duration(e.cfg.PeakIntervalMinutes)*min), e.peakCycle)
	go e.loop(ctx, TriggerEmergency, e.clk.NewTicker(time.Duration(e.cfg.EmergencyIntervalMinutes)*min), e.emergencyCycle)
	go e.loop(ctx, TriggerRefresh, e.clk.NewTicker(time.Duration(e.cfg.RefreshIntervalMinutes)*min), e.refreshCycle)
	go e.loop(ctx, TriggerMaintenance, e.clk.NewTicker(min), e.maintenanceCycle)
	e.log.Infof("engine started: main=%dm peak=%dm emergency=%dm refresh=%dm maintenance=%02d:00",
		e.cfg.MainIntervalMinutes, e.cfg.PeakIntervalMinutes, e.cfg.EmergencyIntervalMinutes,
		e.cfg.RefreshIntervalMinutes, e.cfg.MaintenanceHour)
}

func (e *Engine) loop(ctx context.Context, trigger string, t clock.Ticker, fn func(context.Context) (string, bool, error)) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			e.runCycle(ctx, trigger, fn)
		}
	}
}

// runCycle executes one trigger run. Panics and errors are contained:
// they are logged, reported as a cycle event and metric, and the loop
// continues on schedule.
func (e *Engine) runCycle(ctx context.Context, trigger string, fn func(context.Context) (string, bool, error)) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("%s cycle panic: %v", trigger, r)
			cycleErrors.WithLabelValues(trigger).Inc()
			e.publishCycle(trigger, false, "", fmt.Errorf("panic: %v", r))
		}
	}()

	cyclesTotal.WithLabelValues(trigger).Inc()
	jobID, gateOpen, err := fn(ctx)
	if err != nil {
		cycleErrors.WithLabelValues(trigger).Inc()
		e.log.Warnf("%s cycle: %v", trigger, err)
	}
	if jobID != "" {
		jobsSubmitted.WithLabelValues(trigger).Inc()
	}
	e.publishCycle(trigger, gateOpen, jobID, err)
}

func (e *Engine) publishCycle(trigger string, gateOpen bool, jobID string, err error) {
	now := e.clk.Now()
	if e.bus != nil {
		e.bus.Publish(events.CycleEvent{Trigger: trigger, GateOpen: gateOpen, JobID: jobID, Err: err, OccurredAt: now})
	}
	if e.sink != nil {
		if rec, ok := e.sink.(coremetrics.CycleRecorder); ok {
			errStr := ""
			if err != nil {
				errStr = err.Error()
			}
			_ = rec.RecordCycle(coremetrics.CycleRecord{
				Trigger:   trigger,
				GateOpen:  gateOpen,
				Submitted: jobID != "",
				Err:       errStr,
				Time:      now,
			})
		}
	}
}

// mainCycle is the routine pipeline: snapshot, gate, select, submit.
func (e *Engine) mainCycle(ctx context.Context) (string, bool, error) {
	return e.pipeline(ctx, nil, false)
}

// RunOnce refreshes state and forces a single main pipeline pass outside
// the timed loops. It returns the submitted job id, if any, and whether
// the gate was open.
func (e *Engine) RunOnce(ctx context.Context) (string, bool, error) {
	e.src.Refresh(ctx)
	jobID, gateOpen, err := e.mainCycle(ctx)
	e.publishCycle(TriggerMain, gateOpen, jobID, err)
	return jobID, gateOpen, err
}

// peakCycle runs the same pipeline with an intensified parameter
// profile, and only during peak periods.
func (e *Engine) peakCycle(ctx context.Context) (string, bool, error) {
	snap := e.src.Current()
	if !snap.Period.IsPeak() {
		return "", false, nil
	}
	return e.pipeline(ctx, e.cfg.PeakProfile, false)
}

// emergencyCycle submits a safety job as soon as an emergency, severe
// overcrowding or a delay cluster shows up, bypassing the gate.
func (e *Engine) emergencyCycle(context.Context) (string, bool, error) {
	snap := e.src.Current()
	urgent := snap.HasEmergency() ||
		snap.CapacityUtilization > 0.95 ||
		snap.OnTimePerformance < 0.5
	if !urgent {
		return "", false, nil
	}
	st, err := e.catalog.Get(e.roles.SafetyFirst)
	if err != nil {
		return "", true, err
	}
	id, err := e.jobs.Submit(st, snap)
	if err != nil {
		return "", true, err
	}
	e.log.Warnf("emergency response job %s submitted", id)
	return id, true, nil
}

// refreshCycle keeps the aggregator current independently of job runs.
func (e *Engine) refreshCycle(ctx context.Context) (string, bool, error) {
	e.src.Refresh(ctx)
	return "", false, nil
}

// maintenanceCycle proactively submits a continuity job once a day at
// the configured off-peak hour.
func (e *Engine) maintenanceCycle(context.Context) (string, bool, error) {
	now := e.clk.Now()
	if now.Hour() != e.cfg.MaintenanceHour {
		return "", false, nil
	}
	e.mu.Lock()
	sameDay := e.lastMaintenance.Year() == now.Year() && e.lastMaintenance.YearDay() == now.YearDay()
	if sameDay {
		e.mu.Unlock()
		return "", false, nil
	}
	e.lastMaintenance = now
	e.mu.Unlock()

	st, err := e.catalog.Get(e.roles.ServiceContinuity)
	if err != nil {
		return "", true, err
	}
	id, err := e.jobs.Submit(st, e.src.Current())
	if err != nil {
		return "", true, err
	}
	return id, true, nil
}

// pipeline runs gate, selection and submission against the current
// snapshot. overlay, when set, intensifies the chosen strategy.
func (e *Engine) pipeline(_ context.Context, overlay map[string]float64, bypassGate bool) (string, bool, error) {
	snap := e.src.Current()

	if !bypassGate && !optimizationNeeded(snap) {
		gateDecisions.WithLabelValues("closed").Inc()
		return "", false, nil
	}
	gateDecisions.WithLabelValues("open").Inc()

	st, err := e.selector.Select(snap)
	if err != nil {
		return "", true, err
	}
	if overlay != nil {
		st = st.WithParams(overlay)
	}
	id, err := e.jobs.Submit(st, snap)
	if err != nil {
		return "", true, err
	}
	return id, true, nil
}
