// Package dispatch orchestrates the rescue engine: it owns the victim and
// responder registries, decides when to replan, runs the planner over a
// consistent snapshot and applies the resulting routes.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/opensar/rescue/core/dispatch/audit"
	"github.com/opensar/rescue/core/events"
	"github.com/opensar/rescue/core/logger"
	"github.com/opensar/rescue/core/metrics"
	"github.com/opensar/rescue/core/model"
	"github.com/opensar/rescue/core/planner"
	"github.com/opensar/rescue/core/registry"
	"github.com/opensar/rescue/core/scoring"
	"github.com/opensar/rescue/internal/eventbus"
)

// SystemStatus is the engine-level summary exposed to collaborators.
type SystemStatus struct {
	TotalActiveVictims        int     `json:"total_active_victims"`
	AvailableResponders       int     `json:"available_responders"`
	AverageSurvivalLikelihood float64 `json:"average_survival_likelihood"`
	SystemLoad                float64 `json:"system_load"`
	UnassignedVictims         int     `json:"unassigned_victims"`
}

// Coordinator is the sole mutator of cross-registry relationships. Ingestion
// (OnDetection, OnResponderStatus, OnRouteCompletion) is fast and safe for
// many concurrent producers; Replan runs on its own schedule and always
// computes over a consistent snapshot taken when it starts.
type Coordinator struct {
	cfg        Config
	victims    *registry.VictimRegistry
	responders *registry.ResponderRegistry
	planner    *planner.Planner
	logger     logger.Logger
	metrics    metrics.MetricsSink
	bus        eventbus.EventBus
	store      audit.Store

	replanCh chan struct{}

	mu             sync.Mutex
	lastSolutions  []model.RouteSolution
	lastUnassigned []string
}

// NewCoordinator creates a coordinator. sink, bus and store may each be nil.
func NewCoordinator(cfg Config, log logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus, store audit.Store) (*Coordinator, error) {
	if log == nil {
		return nil, fmt.Errorf("dispatch: nil logger provided to NewCoordinator")
	}
	cfg.SetDefaults()
	return &Coordinator{
		cfg:        cfg,
		victims:    registry.NewVictimRegistry(cfg.MergeRadiusM, time.Duration(cfg.RetentionMinutes)*time.Minute),
		responders: registry.NewResponderRegistry(),
		planner: planner.New(planner.Config{
			MaxRouteDuration:   time.Duration(cfg.MaxRouteDurationMinutes) * time.Minute,
			MaxVictimsPerRoute: cfg.MaxVictimsPerRoute,
			SpeedMS:            cfg.SpeedMS,
		}),
		logger:   log,
		metrics:  sink,
		bus:      bus,
		store:    store,
		replanCh: make(chan struct{}, 1),
	}, nil
}

// Victims exposes the victim registry for read access.
func (c *Coordinator) Victims() *registry.VictimRegistry { return c.victims }

// Responders exposes the responder registry for read access.
func (c *Coordinator) Responders() *registry.ResponderRegistry { return c.responders }

// OnDetection feeds a detection event into the victim registry. Invalid
// events are rejected with a ValidationError and dropped; duplicates merge
// silently. When ReactOnDetection is set, a previously unseen victim requests
// an immediate replan.
func (c *Coordinator) OnDetection(d model.Detection) (string, error) {
	id, created, err := c.victims.UpsertDetection(d)
	if err != nil {
		detectionsIngested.WithLabelValues("rejected").Inc()
		return "", err
	}
	outcome := "merged"
	if created {
		outcome = "created"
	}
	detectionsIngested.WithLabelValues(outcome).Inc()
	if c.bus != nil {
		c.bus.Publish(events.DetectionEvent{VictimID: id, Created: created, Location: d.Location})
	}
	if dr, ok := c.metrics.(metrics.DetectionRecorder); ok {
		if err := dr.RecordDetection(metrics.DetectionRecord{VictimID: id, Created: created, Time: time.Now()}); err != nil {
			c.logger.Errorf("detection metrics error: %v", err)
		}
	}
	if created && c.cfg.ReactOnDetection {
		c.RequestReplan()
	}
	return id, nil
}

// OnResponderStatus applies a responder status report.
func (c *Coordinator) OnResponderStatus(r model.Responder) error {
	if err := c.responders.Upsert(r); err != nil {
		return err
	}
	if r.Status == model.ResponderAvailable {
		c.responders.SetAvailable(r.ID)
	}
	return nil
}

// OnRouteCompletion marks every victim on the responder's route as served and
// returns the responder to the available pool. Unknown responders are no-ops.
func (c *Coordinator) OnRouteCompletion(responderID string) {
	resp, ok := c.responders.Get(responderID)
	if !ok {
		c.logger.Warnf("completion for unknown responder %s", responderID)
		return
	}
	served := append([]string(nil), resp.CurrentRoute...)
	for _, vid := range served {
		c.victims.MarkServed(vid)
	}
	c.responders.SetAvailable(responderID)
	c.logger.Infof("responder %s completed route, %d victims served", responderID, len(served))
	if c.bus != nil {
		c.bus.Publish(events.CompletionEvent{ResponderID: responderID, Served: served})
	}
}

// RequestReplan schedules an immediate replan on the Run loop. Requests
// collapse: at most one is pending at a time.
func (c *Coordinator) RequestReplan() {
	select {
	case c.replanCh <- struct{}{}:
	default:
	}
}

// plannable returns responders that can take a route this pass: available
// ones plus enroute ones, whose routes are superseded by the new plan.
// Including enroute responders keeps Replan idempotent — replanning an
// unchanged snapshot reproduces the same assignment.
func (c *Coordinator) plannable() []model.Responder {
	all := c.responders.Snapshot()
	out := all[:0]
	for _, r := range all {
		if r.Status != model.ResponderUnavailable {
			out = append(out, r)
		}
	}
	return out
}

// Replan runs one full scoring and routing pass and applies the result.
// Victims on a live route are protected from expiry; everything else older
// than the configured max age ages out first. Partial results from a
// timed-out pass are applied like any other.
func (c *Coordinator) Replan(ctx context.Context, now time.Time) []model.RouteSolution {
	onRoute := c.assignedVictims()
	expired := c.victims.ExpireStale(now, time.Duration(c.cfg.MaxVictimAgeMinutes)*time.Minute, func(id string) bool { return onRoute[id] })
	if len(expired) > 0 {
		c.logger.Infof("%d victims expired without assignment", len(expired))
	}

	victims := c.victims.ActiveVictims()
	responders := c.plannable()
	scoring.Rank(victims, now)

	pctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.PlanTimeoutSeconds)*time.Second)
	defer cancel()
	start := time.Now()
	res := c.planner.Plan(pctx, victims, responders)
	elapsed := time.Since(start)
	if res.TimedOut {
		c.logger.Warnf("planning pass hit its %ds budget, applying partial solution", c.cfg.PlanTimeoutSeconds)
	}

	assigned := 0
	routed := make(map[string]bool, len(res.Solutions))
	for _, sol := range res.Solutions {
		routed[sol.ResponderID] = true
	}
	// A responder the new plan leaves empty goes back to the available pool;
	// its previous route is superseded.
	for _, r := range responders {
		if !routed[r.ID] {
			c.responders.SetAvailable(r.ID)
		}
	}
	for _, sol := range res.Solutions {
		if err := c.responders.SetRoute(sol.ResponderID, sol.OrderedVictimIDs); err != nil {
			// Planner output respects capacity; reaching this means the
			// responder shrank between snapshot and application.
			c.logger.Errorf("route application failed for %s: %v", sol.ResponderID, err)
			continue
		}
		assigned += len(sol.OrderedVictimIDs)
		if c.bus != nil {
			c.bus.Publish(events.RouteAppliedEvent{ResponderID: sol.ResponderID, VictimIDs: sol.OrderedVictimIDs})
		}
	}

	c.mu.Lock()
	c.lastSolutions = res.Solutions
	c.lastUnassigned = res.UnassignedVictimIDs
	c.mu.Unlock()

	plansTotal.Inc()
	planDuration.Observe(elapsed.Seconds())
	victimsAssigned.Add(float64(assigned))
	activeVictims.Set(float64(len(victims)))
	unassignedVictims.Set(float64(len(res.UnassignedVictimIDs)))

	if c.bus != nil {
		c.bus.Publish(events.PlanEvent{Solutions: res.Solutions, Unassigned: res.UnassignedVictimIDs, TimedOut: res.TimedOut, Duration: elapsed})
		if len(res.UnassignedVictimIDs) > 0 {
			c.bus.Publish(events.UnassignableEvent{VictimIDs: res.UnassignedVictimIDs})
		}
	}
	if c.metrics != nil {
		rec := metrics.PlanResult{
			Solutions:       res.Solutions,
			AssignedVictims: assigned,
			Unassigned:      len(res.UnassignedVictimIDs),
			TimedOut:        res.TimedOut,
			Duration:        elapsed,
			Time:            now,
		}
		if err := c.metrics.RecordPlanResult(rec); err != nil {
			c.logger.Errorf("plan metrics error: %v", err)
		}
		if sr, ok := c.metrics.(metrics.SystemStateRecorder); ok {
			st := c.Status()
			if err := sr.RecordSystemState(metrics.SystemState{
				ActiveVictims:       st.TotalActiveVictims,
				AvailableResponders: st.AvailableResponders,
				AverageSurvival:     st.AverageSurvivalLikelihood,
				SystemLoad:          st.SystemLoad,
				Time:                now,
			}); err != nil {
				c.logger.Errorf("state metrics error: %v", err)
			}
		}
	}
	if c.store != nil {
		err := c.store.Append(context.Background(), audit.Record{
			Timestamp:     now,
			ActiveVictims: len(victims),
			Responders:    len(responders),
			Solutions:     res.Solutions,
			Unassigned:    res.UnassignedVictimIDs,
			TimedOut:      res.TimedOut,
			DurationMS:    elapsed.Milliseconds(),
		})
		if err != nil {
			c.logger.Errorf("audit append error: %v", err)
		}
	}

	c.logger.Infof("replan: %d victims across %d responders, %d unassigned", assigned, len(res.Solutions), len(res.UnassignedVictimIDs))
	return res.Solutions
}

// assignedVictims returns the set of victim ids on any current route.
func (c *Coordinator) assignedVictims() map[string]bool {
	out := make(map[string]bool)
	for _, r := range c.responders.Snapshot() {
		for _, vid := range r.CurrentRoute {
			out[vid] = true
		}
	}
	return out
}

// Run drives the replan loop until the context is canceled: a fixed cadence
// plus immediate passes requested by RequestReplan.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(c.cfg.ReplanCadenceSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Replan(ctx, time.Now())
		case <-c.replanCh:
			c.Replan(ctx, time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Routes returns the most recent solution set.
func (c *Coordinator) Routes() []model.RouteSolution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.RouteSolution(nil), c.lastSolutions...)
}

// VictimsByPriority returns active victims scored at now, highest first.
func (c *Coordinator) VictimsByPriority(now time.Time) []model.Victim {
	victims := c.victims.ActiveVictims()
	scoring.Rank(victims, now)
	return victims
}

// Status summarises the engine state for the API and dashboard.
func (c *Coordinator) Status() SystemStatus {
	victims := c.victims.ActiveVictims()
	avail := len(c.responders.AvailableResponders())

	avg := 0.0
	if len(victims) > 0 {
		likelihoods := make([]float64, len(victims))
		for i, v := range victims {
			likelihoods[i] = v.SurvivalLikelihood
		}
		avg = stat.Mean(likelihoods, nil)
	}

	denom := avail
	if denom < 1 {
		denom = 1
	}
	c.mu.Lock()
	unassigned := len(c.lastUnassigned)
	c.mu.Unlock()
	return SystemStatus{
		TotalActiveVictims:        len(victims),
		AvailableResponders:       avail,
		AverageSurvivalLikelihood: avg,
		SystemLoad:                float64(len(victims)) / float64(denom),
		UnassignedVictims:         unassigned,
	}
}

// Close releases resources held by the coordinator.
func (c *Coordinator) Close() error {
	if c.bus != nil {
		c.bus.Close()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
