package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cyclesTotal   *prometheus.CounterVec
	cycleErrors   *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
	jobsSubmitted *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_cycles_total",
			Help: "Number of scheduler trigger runs",
		},
		[]string{"trigger"},
	)
	errs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_cycle_errors_total",
			Help: "Number of scheduler trigger runs that ended in error",
		},
		[]string{"trigger"},
	)
	gate := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_gate_decisions_total",
			Help: "Gate decisions by outcome",
		},
		[]string{"decision"},
	)
	submitted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_jobs_submitted_total",
			Help: "Optimization jobs submitted by trigger",
		},
		[]string{"trigger"},
	)
	return cycles, errs, gate, submitted
}

func init() {
	cyclesTotal, cycleErrors, gateDecisions, jobsSubmitted = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cyclesTotal, cycleErrors, gateDecisions, jobsSubmitted)
}

// ResetMetrics reinitializes metric collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	cyclesTotal, cycleErrors, gateDecisions, jobsSubmitted = newCollectors()
	if reg != nil {
		reg.MustRegister(cyclesTotal, cycleErrors, gateDecisions, jobsSubmitted)
	}
}
