package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	plansTotal         prometheus.Counter
	planDuration       prometheus.Histogram
	victimsAssigned    prometheus.Counter
	detectionsIngested *prometheus.CounterVec
	activeVictims      prometheus.Gauge
	unassignedVictims  prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Histogram, prometheus.Counter, *prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge) {
	plans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rescue_plans_total",
		Help: "Number of completed planning passes",
	})
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rescue_plan_duration_seconds",
		Help:    "Wall-clock duration of one planning pass",
		Buckets: prometheus.DefBuckets,
	})
	assigned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rescue_victims_assigned_total",
		Help: "Number of victim assignments applied to responder routes",
	})
	det := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_detections_ingested_total",
		Help: "Number of detections accepted by the victim registry",
	}, []string{"outcome"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rescue_active_victims",
		Help: "Victims currently awaiting rescue",
	})
	unassigned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rescue_unassigned_victims",
		Help: "Active victims the last planning pass could not fit on any responder",
	})
	return plans, dur, assigned, det, active, unassigned
}

func init() {
	plansTotal, planDuration, victimsAssigned, detectionsIngested, activeVictims, unassignedVictims = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(plansTotal, planDuration, victimsAssigned, detectionsIngested, activeVictims, unassignedVictims)
}

// ResetMetrics reinitializes collectors for testing purposes and registers
// them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	plansTotal, planDuration, victimsAssigned, detectionsIngested, activeVictims, unassignedVictims = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
