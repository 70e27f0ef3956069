package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/infra/logger"
)

// InfluxSink writes optimization and network events to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordJobOutcome writes the terminal outcome of an optimization job.
func (s *InfluxSink) RecordJobOutcome(rec coremetrics.JobRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization_job").
		AddTag("job_id", rec.JobID).
		AddTag("strategy", rec.Strategy).
		AddTag("status", rec.Status).
		AddTag("component", "job_manager")
	if rec.Reason != "" {
		p = p.AddTag("reason", rec.Reason)
	}
	p = p.AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		AddField("fitness", round3(rec.Fitness)).
		AddField("improvement_pct", round3(rec.Improvement)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSnapshot writes the derived metrics of a network snapshot.
func (s *InfluxSink) RecordSnapshot(rec coremetrics.SnapshotRecord) error {
	if rec.Snapshot == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := rec.Snapshot
	p := write.NewPointWithMeasurement("network_snapshot").
		AddTag("period", snap.Period.String()).
		AddTag("component", "state_aggregator").
		AddField("passenger_load", round3(snap.PassengerLoad)).
		AddField("capacity_utilization", round3(snap.CapacityUtilization)).
		AddField("on_time_performance", round3(snap.OnTimePerformance)).
		AddField("energy_efficiency", round3(snap.EnergyEfficiency)).
		AddField("active_vehicles", snap.ActiveVehicles).
		AddField("emergencies", len(snap.Emergencies)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCycle writes the outcome of one scheduler trigger run.
func (s *InfluxSink) RecordCycle(rec coremetrics.CycleRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scheduler_cycle").
		AddTag("trigger", rec.Trigger).
		AddTag("gate_open", strconv.FormatBool(rec.GateOpen)).
		AddTag("component", "scheduler").
		AddField("submitted", rec.Submitted).
		AddField("errors", rec.Err).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSelection writes a strategy selection decision.
func (s *InfluxSink) RecordSelection(rec coremetrics.SelectionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("strategy_selection").
		AddTag("strategy", rec.Strategy).
		AddTag("source", rec.Source).
		AddTag("component", "selector").
		AddField("confidence", round3(rec.Confidence)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
