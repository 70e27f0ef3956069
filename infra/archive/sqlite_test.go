package archive

import (
	"context"
	"testing"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/job"
	"github.com/itzzomkar/navyatra-engine/core/model"
)

func testRecord(id, status string, finished time.Time) job.Record {
	return job.Record{
		ID:         id,
		Strategy:   "efficiency",
		Algorithm:  "lp_allocation",
		Status:     status,
		CreatedAt:  finished.Add(-2 * time.Minute),
		StartedAt:  finished.Add(-2 * time.Minute),
		FinishedAt: finished,
		Progress:   100,
		Iterations: 12,
		Result: &model.OptimizationResult{
			FitnessScore: 6.1,
			Metrics:      map[string]float64{"utilization": 0.7},
		},
	}
}

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now()
	if err := store.Append(context.Background(), testRecord("j1", "completed", now)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(context.Background(), testRecord("j2", "failed", now.Add(time.Minute))); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := store.Query(context.Background(), job.ArchiveQuery{Status: "completed"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].ID != "j1" {
		t.Fatalf("expected j1, got %+v", out)
	}
	if out[0].Result == nil || out[0].Result.FitnessScore != 6.1 {
		t.Fatalf("result not round-tripped: %+v", out[0].Result)
	}
}

func TestSQLiteStore_TimeRange(t *testing.T) {
	store, err := NewSQLiteStore("file:range.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Now().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		rec := testRecord("j", "completed", base.Add(time.Duration(i)*time.Hour))
		rec.ID = rec.ID + string(rune('a'+i))
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), job.ArchiveQuery{
		Start: base.Add(30 * time.Minute),
		End:   base.Add(90 * time.Minute),
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].ID != "jb" {
		t.Fatalf("expected middle record, got %+v", out)
	}
}
