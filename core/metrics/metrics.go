package metrics

import (
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// JobRecord represents a terminal job outcome to be recorded.
type JobRecord struct {
	JobID       string
	Strategy    string
	Status      string
	Reason      string
	Duration    time.Duration
	Fitness     float64
	Improvement float64
	Time        time.Time
}

// MetricsSink records job outcomes for observability purposes.
type MetricsSink interface {
	RecordJobOutcome(rec JobRecord) error
}

// SnapshotRecord captures the derived metrics of one snapshot refresh.
type SnapshotRecord struct {
	Snapshot *model.Snapshot
	Time     time.Time
}

// SnapshotRecorder records snapshot refreshes.
type SnapshotRecorder interface {
	RecordSnapshot(rec SnapshotRecord) error
}

// CycleRecord captures the outcome of a scheduler trigger run.
type CycleRecord struct {
	Trigger   string
	GateOpen  bool
	Submitted bool
	Err       string
	Time      time.Time
}

// CycleRecorder records scheduler cycles.
type CycleRecorder interface {
	RecordCycle(rec CycleRecord) error
}

// SelectionRecord captures one strategy selection decision.
type SelectionRecord struct {
	Strategy   string
	Source     string
	Confidence float64
	Time       time.Time
}

// SelectionRecorder records strategy selections.
type SelectionRecorder interface {
	RecordSelection(rec SelectionRecord) error
}

// NopSink implements every recorder interface with no-op methods.
type NopSink struct{}

func (NopSink) RecordJobOutcome(JobRecord) error      { return nil }
func (NopSink) RecordSnapshot(SnapshotRecord) error   { return nil }
func (NopSink) RecordCycle(CycleRecord) error         { return nil }
func (NopSink) RecordSelection(SelectionRecord) error { return nil }
