package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opensar/rescue/core/model"
)

// CapacityExceededError reports a route assignment that violates a
// responder's capacity. The planner never produces such routes; this is only
// reachable through direct misuse of SetRoute.
type CapacityExceededError struct {
	ResponderID string
	Capacity    int
	Assigned    int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: responder %s can serve %d victims, got %d", e.ResponderID, e.Capacity, e.Assigned)
}

// ResponderRegistry holds responder records and their availability state.
type ResponderRegistry struct {
	mu         sync.RWMutex
	responders map[string]*model.Responder
}

// NewResponderRegistry creates an empty registry.
func NewResponderRegistry() *ResponderRegistry {
	return &ResponderRegistry{responders: make(map[string]*model.Responder)}
}

// Upsert inserts or replaces the responder's status, location and capacity.
// An existing route is preserved unless the update carries one.
func (r *ResponderRegistry) Upsert(upd model.Responder) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.responders[upd.ID]
	if ok && len(upd.CurrentRoute) == 0 {
		upd.CurrentRoute = cur.CurrentRoute
	}
	r.responders[upd.ID] = &upd
	return nil
}

// SetAvailable marks the responder available and clears its route. Unknown
// ids are no-ops.
func (r *ResponderRegistry) SetAvailable(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if resp, ok := r.responders[id]; ok {
		resp.Status = model.ResponderAvailable
		resp.CurrentRoute = nil
	}
}

// SetRoute assigns the ordered victim ids to the responder and marks it
// enroute. Fails with CapacityExceededError when the route does not fit.
func (r *ResponderRegistry) SetRoute(id string, victimIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responders[id]
	if !ok {
		return nil
	}
	if len(victimIDs) > resp.Capacity {
		return &CapacityExceededError{ResponderID: id, Capacity: resp.Capacity, Assigned: len(victimIDs)}
	}
	resp.CurrentRoute = append([]string(nil), victimIDs...)
	resp.Status = model.ResponderEnroute
	return nil
}

// Get returns a copy of the responder with the given id.
func (r *ResponderRegistry) Get(id string) (model.Responder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp, ok := r.responders[id]
	if !ok {
		return model.Responder{}, false
	}
	return cloneResponder(resp), true
}

// AvailableResponders returns copies of all available responders ordered by
// id for deterministic planning.
func (r *ResponderRegistry) AvailableResponders() []model.Responder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Responder, 0, len(r.responders))
	for _, resp := range r.responders {
		if resp.Status == model.ResponderAvailable {
			out = append(out, cloneResponder(resp))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns copies of all responders ordered by id.
func (r *ResponderRegistry) Snapshot() []model.Responder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Responder, 0, len(r.responders))
	for _, resp := range r.responders {
		out = append(out, cloneResponder(resp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneResponder(r *model.Responder) model.Responder {
	cp := *r
	cp.CurrentRoute = append([]string(nil), r.CurrentRoute...)
	return cp
}
