package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/opensar/rescue/core/metrics"
)

// PromSink records planning events in Prometheus metrics.
type PromSink struct {
	plans      *prometheus.CounterVec
	duration   prometheus.Histogram
	assigned   prometheus.Gauge
	unassigned prometheus.Gauge
	victims    prometheus.Gauge
	responders prometheus.Gauge
	load       prometheus.Gauge
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The Prometheus server should be started separately via StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_plans_total",
		Help: "Total number of planning passes",
	}, []string{"timed_out"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_plan_duration_seconds",
		Help:    "Wall-clock duration of a planning pass",
		Buckets: prometheus.DefBuckets,
	})
	assigned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_assigned_victims",
		Help: "Victims assigned to a route by the latest plan",
	})
	unassigned := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_unassigned_victims",
		Help: "Victims left without a responder by the latest plan",
	})
	victims := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_active_victims",
		Help: "Active victims known to the registry",
	})
	responders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_available_responders",
		Help: "Responders currently available for assignment",
	})
	load := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_system_load",
		Help: "Active victims per available responder",
	})

	s := &PromSink{
		plans:      plans,
		duration:   duration,
		assigned:   assigned,
		unassigned: unassigned,
		victims:    victims,
		responders: responders,
		load:       load,
	}
	for _, c := range []prometheus.Collector{plans, duration, assigned, unassigned, victims, responders, load} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordPlanResult updates the planning counters and gauges.
func (s *PromSink) RecordPlanResult(res coremetrics.PlanResult) error {
	s.plans.WithLabelValues(strconv.FormatBool(res.TimedOut)).Inc()
	s.duration.Observe(res.Duration.Seconds())
	s.assigned.Set(float64(res.AssignedVictims))
	s.unassigned.Set(float64(res.Unassigned))
	return nil
}

// RecordSystemState refreshes the registry-size gauges.
func (s *PromSink) RecordSystemState(st coremetrics.SystemState) error {
	s.victims.Set(float64(st.ActiveVictims))
	s.responders.Set(float64(st.AvailableResponders))
	s.load.Set(st.SystemLoad)
	return nil
}
