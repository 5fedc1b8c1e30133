// Package audit persists a record of every planning pass so that dispatch
// decisions can be reconstructed after the fact.
package audit

import (
	"context"
	"time"

	"github.com/opensar/rescue/core/model"
)

// Record captures one replan: the snapshot sizes that went in and the
// solutions that came out.
type Record struct {
	Timestamp     time.Time             `json:"timestamp"`
	ActiveVictims int                   `json:"active_victims"`
	Responders    int                   `json:"responders"`
	Solutions     []model.RouteSolution `json:"solutions"`
	Unassigned    []string              `json:"unassigned,omitempty"`
	TimedOut      bool                  `json:"timed_out,omitempty"`
	DurationMS    int64                 `json:"duration_ms"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start       time.Time
	End         time.Time
	ResponderID string
	Limit       int
}

// matches reports whether the record passes the query filters.
func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.ResponderID != "" {
		found := false
		for _, sol := range r.Solutions {
			if sol.ResponderID == q.ResponderID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Store persists plan records and supports querying them back.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
