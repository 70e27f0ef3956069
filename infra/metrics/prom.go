package metrics

import (
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records optimization outcomes and network state in Prometheus metrics.
type PromSink struct {
	jobs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fitness    *prometheus.GaugeVec
	selections *prometheus.CounterVec
	network    *prometheus.GaugeVec
	vehicles   prometheus.Gauge
}

// NewPromSink registers optimization metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_jobs_total",
		Help: "Total number of finished optimization jobs",
	}, []string{"strategy", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimization_job_duration_seconds",
		Help:    "Wall time spent by optimization jobs",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})
	fitness := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimization_fitness_score",
		Help: "Fitness score of the last completed job per strategy",
	}, []string{"strategy"})
	selections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_selections_total",
		Help: "Strategy selection decisions by source",
	}, []string{"strategy", "source"})
	network := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "network_state",
		Help: "Derived network state metrics from the last snapshot",
	}, []string{"metric"})
	vehicles := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "network_active_vehicles",
		Help: "Number of vehicles in service in the last snapshot",
	})

	if err := reg.Register(jobs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			jobs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(fitness); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			fitness = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(selections); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			selections = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(network); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			network = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(vehicles); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			vehicles = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{
		jobs:       jobs,
		duration:   duration,
		fitness:    fitness,
		selections: selections,
		network:    network,
		vehicles:   vehicles,
	}, nil
}

// RecordJobOutcome increments the job counter and observes its duration.
func (s *PromSink) RecordJobOutcome(rec coremetrics.JobRecord) error {
	s.jobs.WithLabelValues(rec.Strategy, rec.Status).Inc()
	s.duration.WithLabelValues(rec.Strategy).Observe(rec.Duration.Seconds())
	if rec.Status == "completed" {
		s.fitness.WithLabelValues(rec.Strategy).Set(rec.Fitness)
	}
	return nil
}

// RecordSnapshot exports the derived snapshot metrics as gauges.
func (s *PromSink) RecordSnapshot(rec coremetrics.SnapshotRecord) error {
	snap := rec.Snapshot
	if snap == nil {
		return nil
	}
	s.network.WithLabelValues("passenger_load").Set(snap.PassengerLoad)
	s.network.WithLabelValues("capacity_utilization").Set(snap.CapacityUtilization)
	s.network.WithLabelValues("on_time_performance").Set(snap.OnTimePerformance)
	s.network.WithLabelValues("energy_efficiency").Set(snap.EnergyEfficiency)
	s.vehicles.Set(float64(snap.ActiveVehicles))
	return nil
}

// RecordSelection counts a selection decision.
func (s *PromSink) RecordSelection(rec coremetrics.SelectionRecord) error {
	s.selections.WithLabelValues(rec.Strategy, rec.Source).Inc()
	return nil
}
