// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - DetectionEvent: a detection was merged or inserted into the registry
//   - PlanEvent: a replan finished and produced solutions
//   - RouteAppliedEvent: a solution was applied to a responder
//   - UnassignableEvent: active victims no responder could take this pass
//   - CompletionEvent: a responder reported finishing its route
package events
