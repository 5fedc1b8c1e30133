// Package metrics defines the sink interfaces the dispatch engine records
// observability data through. Concrete sinks (Prometheus, InfluxDB) live in
// infra/metrics.
package metrics

import (
	"time"

	"github.com/opensar/rescue/core/model"
)

// PlanResult captures one replan for recording.
type PlanResult struct {
	Solutions       []model.RouteSolution
	AssignedVictims int
	Unassigned      int
	TimedOut        bool
	Duration        time.Duration
	Time            time.Time
}

// MetricsSink records plan results for observability purposes.
type MetricsSink interface {
	RecordPlanResult(res PlanResult) error
}

// DetectionRecord captures one ingested detection.
type DetectionRecord struct {
	VictimID string
	Created  bool
	Time     time.Time
}

// DetectionRecorder is implemented by sinks able to record detection events.
type DetectionRecorder interface {
	RecordDetection(rec DetectionRecord) error
}

// SystemState is a periodic snapshot of registry sizes and load.
type SystemState struct {
	ActiveVictims       int
	AvailableResponders int
	AverageSurvival     float64
	SystemLoad          float64
	Time                time.Time
}

// SystemStateRecorder is implemented by sinks able to record system state.
type SystemStateRecorder interface {
	RecordSystemState(st SystemState) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordPlanResult(PlanResult) error { return nil }

func (NopSink) RecordDetection(DetectionRecord) error { return nil }

func (NopSink) RecordSystemState(SystemState) error { return nil }
