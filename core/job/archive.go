package job

import (
	"context"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// Record is the archived form of a terminal job, persisted for
// historical analytics.
type Record struct {
	ID            string                    `json:"id"`
	Strategy      string                    `json:"strategy"`
	Algorithm     string                    `json:"algorithm"`
	Status        string                    `json:"status"`
	FailureReason string                    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Progress      float64                   `json:"progress"`
	Iterations    int                       `json:"iterations"`
	Result        *model.OptimizationResult `json:"result,omitempty"`
	Snapshot      *model.Snapshot           `json:"snapshot,omitempty"`
}

// ArchiveQuery filters archived records.
type ArchiveQuery struct {
	Start  time.Time
	End    time.Time
	Status string
}

// ArchiveStore persists terminal job records and supports querying.
type ArchiveStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q ArchiveQuery) ([]Record, error)
	Close() error
}

func recordOf(j *Job) Record {
	return Record{
		ID:            j.ID,
		Strategy:      j.Strategy.Name,
		Algorithm:     j.Strategy.AlgorithmID,
		Status:        j.Status.String(),
		FailureReason: j.FailureReason,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		Progress:      j.Progress,
		Iterations:    j.Iteration,
		Result:        j.Result,
		Snapshot:      j.Snapshot,
	}
}
