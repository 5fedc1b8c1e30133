// Package registry holds the two shared mutable resources of the dispatch
// engine: victim records and responder records. All mutation goes through the
// narrow operation set defined here; each operation is atomic with respect to
// concurrent callers.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensar/rescue/core/geo"
	"github.com/opensar/rescue/core/model"
)

// DefaultMergeRadiusM is the distance within which two detections are treated
// as the same physical victim.
const DefaultMergeRadiusM = 50.0

// VictimRegistry deduplicates and ages victim detections. Records transition
// active -> served | expired; terminal records are retained for audit until
// the retention window elapses.
type VictimRegistry struct {
	mu           sync.RWMutex
	victims      map[string]*model.Victim
	order        []string // insertion order for deterministic iteration
	terminalAt   map[string]time.Time
	mergeRadiusM float64
	retention    time.Duration
}

// NewVictimRegistry creates a registry merging detections within mergeRadiusM
// meters and retaining terminal records for retention. Non-positive arguments
// fall back to 50 m and 24 h.
func NewVictimRegistry(mergeRadiusM float64, retention time.Duration) *VictimRegistry {
	if mergeRadiusM <= 0 {
		mergeRadiusM = DefaultMergeRadiusM
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &VictimRegistry{
		victims:      make(map[string]*model.Victim),
		terminalAt:   make(map[string]time.Time),
		mergeRadiusM: mergeRadiusM,
		retention:    retention,
	}
}

// UpsertDetection merges the detection into an existing active victim within
// the merge radius, or inserts a new victim with a fresh id. The location is
// latest-wins on merge; DetectedAt and SurvivalLikelihood keep the first
// detection's values so scoring stays monotonic. Returns the victim id and
// whether a new record was created. Idempotent under repeated delivery.
func (r *VictimRegistry) UpsertDetection(d model.Detection) (string, bool, error) {
	if err := d.Validate(); err != nil {
		return "", false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		v := r.victims[id]
		if v.Status != model.VictimActive {
			continue
		}
		if geo.Distance(v.Location, d.Location) <= r.mergeRadiusM {
			v.Location = d.Location
			return v.ID, false, nil
		}
	}

	v := &model.Victim{
		ID:                 uuid.NewString(),
		Location:           d.Location,
		InjuryLevel:        d.InjuryLevel,
		SurvivalLikelihood: d.SurvivalLikelihood,
		DetectedAt:         d.DetectedAt,
		Status:             model.VictimActive,
	}
	if v.DetectedAt.IsZero() {
		v.DetectedAt = time.Now()
	}
	r.victims[v.ID] = v
	r.order = append(r.order, v.ID)
	return v.ID, true, nil
}

// MarkServed transitions the victim to served. Unknown ids and already-served
// victims are no-ops: the upstream feed resends stale data.
func (r *VictimRegistry) MarkServed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.victims[id]
	if !ok || v.Status != model.VictimActive {
		return
	}
	v.Status = model.VictimServed
	r.terminalAt[id] = time.Now()
}

// ExpireStale transitions unassigned active victims older than maxAge to
// expired, and purges terminal records once a retention window has elapsed
// since their transition. assigned reports whether a victim currently belongs
// to a responder route. Returns the ids that expired in this sweep.
func (r *VictimRegistry) ExpireStale(now time.Time, maxAge time.Duration, assigned func(id string) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	kept := r.order[:0]
	for _, id := range r.order {
		v := r.victims[id]
		if v.Status == model.VictimActive && now.Sub(v.DetectedAt) > maxAge {
			if assigned == nil || !assigned(id) {
				v.Status = model.VictimExpired
				r.terminalAt[id] = now
				expired = append(expired, id)
			}
		}
		if v.Status != model.VictimActive && now.Sub(r.terminalTime(id, v)) > r.retention {
			delete(r.victims, id)
			delete(r.terminalAt, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return expired
}

// terminalTime returns when the victim left the active state. Records that
// predate transition tracking fall back to their detection time.
func (r *VictimRegistry) terminalTime(id string, v *model.Victim) time.Time {
	if at, ok := r.terminalAt[id]; ok {
		return at
	}
	return v.DetectedAt
}

// ActiveVictims returns copies of all active victims in insertion order.
func (r *VictimRegistry) ActiveVictims() []model.Victim {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Victim, 0, len(r.order))
	for _, id := range r.order {
		if v := r.victims[id]; v.Status == model.VictimActive {
			out = append(out, *v)
		}
	}
	return out
}

// Get returns a copy of the victim with the given id.
func (r *VictimRegistry) Get(id string) (model.Victim, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.victims[id]
	if !ok {
		return model.Victim{}, false
	}
	return *v, true
}

// Snapshot returns copies of all retained victims in insertion order,
// including served and expired records kept for audit.
func (r *VictimRegistry) Snapshot() []model.Victim {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Victim, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.victims[id])
	}
	return out
}
