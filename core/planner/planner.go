// Package planner assigns ordered victim sequences to available responders.
// It implements a capacitated, time-bounded multi-vehicle construction
// heuristic: victims are ranked by priority, responders are filled greedily
// with nearest-insertion, and a 2-opt pass tightens each route. There is no
// depot; every responder starts from its reported location and does not
// return.
//
// Route optimality is explicitly not a goal. The operating requirement is a
// good route within a bounded wall-clock budget, suitable for continuous
// replanning as detections arrive.
package planner

import (
	"context"
	"sort"
	"time"

	"github.com/opensar/rescue/core/geo"
	"github.com/opensar/rescue/core/model"
)

// Config bounds the routes the planner may produce.
type Config struct {
	// MaxRouteDuration is the per-responder time budget. Default 5 hours.
	MaxRouteDuration time.Duration
	// MaxVictimsPerRoute caps a route's length, further bounded by each
	// responder's capacity. Default 5.
	MaxVictimsPerRoute int
	// SpeedMS is the average traversal speed handed to the cost model.
	SpeedMS float64
}

func (c *Config) setDefaults() {
	if c.MaxRouteDuration <= 0 {
		c.MaxRouteDuration = 5 * time.Hour
	}
	if c.MaxVictimsPerRoute <= 0 {
		c.MaxVictimsPerRoute = 5
	}
}

// Result is the outcome of one planning pass. A timed-out pass is still a
// valid result carrying everything constructed before the deadline.
type Result struct {
	Solutions []model.RouteSolution
	// UnassignedVictimIDs lists active victims no responder could take this
	// pass. They stay active and are reconsidered on the next pass.
	UnassignedVictimIDs []string
	// TimedOut reports that the context expired before construction finished.
	TimedOut bool
}

// Planner builds route solutions from registry snapshots.
type Planner struct {
	cfg  Config
	cost geo.Cost
}

// New returns a Planner with the given bounds.
func New(cfg Config) *Planner {
	cfg.setDefaults()
	return &Planner{cfg: cfg, cost: geo.NewCost(cfg.SpeedMS)}
}

// route is a responder's sequence under construction.
type route struct {
	responder model.Responder
	stops     []model.Victim
	distanceM float64
}

// insertionCost returns the added distance of placing v at position pos.
func (r *route) insertionCost(v model.Victim, pos int) float64 {
	prev := r.responder.Location
	if pos > 0 {
		prev = r.stops[pos-1].Location
	}
	added := geo.Distance(prev, v.Location)
	if pos < len(r.stops) {
		next := r.stops[pos].Location
		added += geo.Distance(v.Location, next) - geo.Distance(prev, next)
	}
	return added
}

// bestInsertion returns the position minimising added distance and that
// distance. Ties resolve to the earliest position for determinism.
func (r *route) bestInsertion(v model.Victim) (int, float64) {
	bestPos, bestAdded := 0, r.insertionCost(v, 0)
	for pos := 1; pos <= len(r.stops); pos++ {
		if added := r.insertionCost(v, pos); added < bestAdded {
			bestPos, bestAdded = pos, added
		}
	}
	return bestPos, bestAdded
}

func (r *route) insert(v model.Victim, pos int, addedM float64) {
	r.stops = append(r.stops, model.Victim{})
	copy(r.stops[pos+1:], r.stops[pos:])
	r.stops[pos] = v
	r.distanceM += addedM
}

// Plan partitions victims across responders and orders each visit sequence.
// Victims must carry their PriorityScore; responders are taken in the order
// given, which the registry fixes by id. The context deadline is the planning
// wall-clock ceiling: on expiry the best solution found so far is returned.
func (p *Planner) Plan(ctx context.Context, victims []model.Victim, responders []model.Responder) Result {
	var res Result
	if len(victims) == 0 || len(responders) == 0 {
		for _, v := range victims {
			res.UnassignedVictimIDs = append(res.UnassignedVictimIDs, v.ID)
		}
		return res
	}

	ranked := append([]model.Victim(nil), victims...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.Before(b.DetectedAt)
		}
		return a.ID < b.ID
	})

	assigned := make(map[string]bool, len(ranked))
	budgetS := p.cfg.MaxRouteDuration.Seconds()

construction:
	for _, resp := range responders {
		cap := p.cfg.MaxVictimsPerRoute
		if resp.Capacity < cap {
			cap = resp.Capacity
		}
		r := &route{responder: resp}

		for len(r.stops) < cap {
			if ctx.Err() != nil {
				res.TimedOut = true
				p.finish(&res, r, assigned)
				break construction
			}
			pos, added, ok := p.nextFit(ranked, assigned, r, budgetS)
			if !ok {
				break
			}
			v := ranked[pos]
			insertAt, _ := r.bestInsertion(v)
			r.insert(v, insertAt, added)
			assigned[v.ID] = true
		}
		p.finish(&res, r, assigned)
	}

	for _, v := range ranked {
		if !assigned[v.ID] {
			res.UnassignedVictimIDs = append(res.UnassignedVictimIDs, v.ID)
		}
	}
	return res
}

// nextFit finds the highest-priority unassigned victim whose best insertion
// keeps the route within the time budget. Returns its index in ranked and the
// added distance.
func (p *Planner) nextFit(ranked []model.Victim, assigned map[string]bool, r *route, budgetS float64) (int, float64, bool) {
	for i, v := range ranked {
		if assigned[v.ID] {
			continue
		}
		_, added := r.bestInsertion(v)
		if p.cost.TravelTime(r.distanceM+added) <= budgetS {
			return i, added, true
		}
	}
	return 0, 0, false
}

// finish runs the improvement pass and appends the responder's solution if it
// received any victims.
func (p *Planner) finish(res *Result, r *route, assigned map[string]bool) {
	if len(r.stops) == 0 {
		return
	}
	r.twoOpt()
	sol := model.RouteSolution{
		ResponderID:              r.responder.ID,
		OrderedVictimIDs:         make([]string, len(r.stops)),
		TotalDistanceMeters:      r.distanceM,
		EstimatedDurationSeconds: p.cost.TravelTime(r.distanceM),
	}
	for i, v := range r.stops {
		sol.OrderedVictimIDs[i] = v.ID
	}
	res.Solutions = append(res.Solutions, sol)
}

// twoOpt repeatedly reverses route segments while doing so shortens the open
// path. Membership never changes, so capacity stays respected, and since the
// distance only decreases the time budget keeps holding.
func (r *route) twoOpt() {
	if len(r.stops) < 3 {
		return
	}
	improved := true
	for improved {
		improved = false
		for i := 0; i < len(r.stops)-1; i++ {
			for j := i + 1; j < len(r.stops); j++ {
				if delta := r.reverseDelta(i, j); delta < -1e-9 {
					for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
						r.stops[lo], r.stops[hi] = r.stops[hi], r.stops[lo]
					}
					r.distanceM += delta
					improved = true
				}
			}
		}
	}
}

// reverseDelta is the distance change from reversing stops[i..j] on the open
// path. Only the two boundary legs change.
func (r *route) reverseDelta(i, j int) float64 {
	before := r.responder.Location
	if i > 0 {
		before = r.stops[i-1].Location
	}
	delta := geo.Distance(before, r.stops[j].Location) - geo.Distance(before, r.stops[i].Location)
	if j < len(r.stops)-1 {
		after := r.stops[j+1].Location
		delta += geo.Distance(r.stops[i].Location, after) - geo.Distance(r.stops[j].Location, after)
	}
	return delta
}
