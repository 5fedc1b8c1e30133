package model

import "fmt"

// ResponderStatus is the availability state of a responder team.
type ResponderStatus int

const (
	ResponderAvailable ResponderStatus = iota
	ResponderEnroute
	ResponderUnavailable
)

func (s ResponderStatus) String() string {
	switch s {
	case ResponderAvailable:
		return "available"
	case ResponderEnroute:
		return "enroute"
	case ResponderUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ParseResponderStatus converts the wire representation from status reports.
func ParseResponderStatus(s string) (ResponderStatus, error) {
	switch s {
	case "available":
		return ResponderAvailable, nil
	case "enroute":
		return ResponderEnroute, nil
	case "unavailable":
		return ResponderUnavailable, nil
	default:
		return ResponderUnavailable, fmt.Errorf("unknown responder status %q", s)
	}
}

// Responder represents an emergency response team that can be routed to
// victims. CurrentRoute is written exclusively by the coordinator applying a
// planner solution.
type Responder struct {
	ID           string          `json:"id"`
	Location     Position        `json:"location"`
	Capacity     int             `json:"capacity"` // max victims per route
	Status       ResponderStatus `json:"status"`
	CurrentRoute []string        `json:"current_route"` // ordered victim ids, empty when available
}

// Validate checks that a responder update is usable.
func (r Responder) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !r.Location.Valid() {
		return &ValidationError{Field: "location", Reason: fmt.Sprintf("invalid coordinates (%v, %v)", r.Location.Lat, r.Location.Lon)}
	}
	if r.Capacity < 0 {
		return &ValidationError{Field: "capacity", Reason: "must not be negative"}
	}
	return nil
}
