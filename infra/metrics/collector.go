package metrics

import (
	"context"
	"time"

	"github.com/opensar/rescue/core/events"
	coremetrics "github.com/opensar/rescue/core/metrics"
	"github.com/opensar/rescue/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// planning and detection events. It stops when the context is canceled.
// Sinks with blocking writers (Influx) are fed this way so the coordinator
// never waits on them during a replan.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.PlanEvent:
					assigned := 0
					for _, sol := range e.Solutions {
						assigned += len(sol.OrderedVictimIDs)
					}
					_ = sink.RecordPlanResult(coremetrics.PlanResult{
						Solutions:       e.Solutions,
						AssignedVictims: assigned,
						Unassigned:      len(e.Unassigned),
						TimedOut:        e.TimedOut,
						Duration:        e.Duration,
						Time:            time.Now(),
					})
				case events.DetectionEvent:
					if r, ok := sink.(coremetrics.DetectionRecorder); ok {
						_ = r.RecordDetection(coremetrics.DetectionRecord{
							VictimID: e.VictimID,
							Created:  e.Created,
							Time:     time.Now(),
						})
					}
				}
			}
		}
	}()
}
