package metrics

import coremetrics "github.com/opensar/rescue/core/metrics"

// MultiSink fans planning records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPlanResult forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordPlanResult(res coremetrics.PlanResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordPlanResult(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordDetection forwards detection events to sinks that support them.
func (m *MultiSink) RecordDetection(rec coremetrics.DetectionRecord) error {
	for _, s := range m.Sinks {
		if dr, ok := s.(coremetrics.DetectionRecorder); ok {
			if err := dr.RecordDetection(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSystemState forwards state snapshots to sinks that support them.
func (m *MultiSink) RecordSystemState(st coremetrics.SystemState) error {
	for _, s := range m.Sinks {
		if sr, ok := s.(coremetrics.SystemStateRecorder); ok {
			if err := sr.RecordSystemState(st); err != nil {
				return err
			}
		}
	}
	return nil
}
