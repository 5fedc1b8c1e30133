package events

import (
	"time"

	"github.com/opensar/rescue/core/model"
)

// DetectionEvent is published after a detection passed validation and reached
// the victim registry.
type DetectionEvent struct {
	VictimID string
	Created  bool // false when the detection merged into an existing victim
	Location model.Position
}

// PlanEvent is published at the end of every replan.
type PlanEvent struct {
	Solutions  []model.RouteSolution
	Unassigned []string
	TimedOut   bool
	Duration   time.Duration
}

// RouteAppliedEvent is emitted for each responder that received a route.
type RouteAppliedEvent struct {
	ResponderID string
	VictimIDs   []string
}

// UnassignableEvent reports victims that fit no responder this pass. They
// remain active and are retried on the next replan.
type UnassignableEvent struct {
	VictimIDs []string
}

// CompletionEvent is published when a responder reports its route done.
type CompletionEvent struct {
	ResponderID string
	Served      []string
}
