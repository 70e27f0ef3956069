package events

import (
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// JobPhase names the lifecycle stage a JobEvent reports.
type JobPhase string

const (
	JobSubmitted JobPhase = "submitted"
	JobProgress  JobPhase = "progress"
	JobCompleted JobPhase = "completed"
	JobFailed    JobPhase = "failed"
	JobCancelled JobPhase = "cancelled"
)

// JobEvent is published for every job lifecycle transition and on
// progress updates. Result is only set on completion.
type JobEvent struct {
	JobID      string
	Phase      JobPhase
	Strategy   string
	Progress   float64
	Iteration  int
	Reason     string
	Result     *model.OptimizationResult
	OccurredAt time.Time
}

// CycleEvent reports the outcome of one scheduler trigger run.
type CycleEvent struct {
	Trigger    string
	GateOpen   bool
	JobID      string
	Err        error
	OccurredAt time.Time
}

// SnapshotEvent is published after the aggregator refreshes state.
type SnapshotEvent struct {
	Snapshot *model.Snapshot
}

// SelectionEvent records which strategy was chosen and by what source.
// Source is "rule" or "recommender".
type SelectionEvent struct {
	Strategy   string
	Source     string
	Confidence float64
	OccurredAt time.Time
}
