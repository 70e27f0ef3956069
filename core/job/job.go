package job

import (
	"context"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// Status is the lifecycle state of an optimization job.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is one execution of a strategy against a snapshot. The manager
// owns every job exclusively; external callers only see View copies.
type Job struct {
	ID       string
	Strategy model.Strategy
	Snapshot *model.Snapshot

	Status        Status
	CreatedAt     time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	Progress      float64
	Iteration     int
	Result        *model.OptimizationResult
	FailureReason string

	cancel       context.CancelFunc
	cancelReason string
}

// View is an immutable copy of a job's observable state.
type View struct {
	ID            string
	Strategy      string
	Status        Status
	CreatedAt     time.Time
	StartedAt     time.Time
	FinishedAt    time.Time
	Progress      float64
	Iteration     int
	Result        *model.OptimizationResult
	FailureReason string
}

func (j *Job) view() View {
	return View{
		ID:            j.ID,
		Strategy:      j.Strategy.Name,
		Status:        j.Status,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		Progress:      j.Progress,
		Iteration:     j.Iteration,
		Result:        j.Result,
		FailureReason: j.FailureReason,
	}
}

// ProgressInfo is the answer to a progress query.
type ProgressInfo struct {
	Percent   float64
	Iteration int
}
