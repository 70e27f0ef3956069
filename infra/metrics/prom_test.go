package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/model"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	rec := coremetrics.JobRecord{
		JobID:    "job1",
		Strategy: "efficiency",
		Status:   "completed",
		Duration: 2 * time.Second,
		Fitness:  6.5,
		Time:     time.Now(),
	}
	if err := sink.RecordJobOutcome(rec); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	if got := testutil.ToFloat64(sink.jobs.WithLabelValues("efficiency", "completed")); got != 1 {
		t.Errorf("jobs counter = %v", got)
	}
	if got := testutil.ToFloat64(sink.fitness.WithLabelValues("efficiency")); got != 6.5 {
		t.Errorf("fitness gauge = %v", got)
	}

	snap := &model.Snapshot{PassengerLoad: 0.4, CapacityUtilization: 0.6, OnTimePerformance: 0.9, EnergyEfficiency: 0.8, ActiveVehicles: 12}
	if err := sink.RecordSnapshot(coremetrics.SnapshotRecord{Snapshot: snap, Time: time.Now()}); err != nil {
		t.Fatalf("record snapshot: %v", err)
	}
	if got := testutil.ToFloat64(sink.vehicles); got != 12 {
		t.Errorf("vehicles gauge = %v", got)
	}
	if got := testutil.ToFloat64(sink.network.WithLabelValues("passenger_load")); got != 0.4 {
		t.Errorf("load gauge = %v", got)
	}

	if err := sink.RecordSelection(coremetrics.SelectionRecord{Strategy: "safety", Source: "rule"}); err != nil {
		t.Fatalf("record selection: %v", err)
	}
	if got := testutil.ToFloat64(sink.selections.WithLabelValues("safety", "rule")); got != 1 {
		t.Errorf("selections counter = %v", got)
	}
}

func TestPromSinkReregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}
