package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/opensar/rescue/core/events"
	"github.com/opensar/rescue/core/model"
	"github.com/opensar/rescue/internal/eventbus"
)

// RoutePlan is the wire form of an applied plan.
type RoutePlan struct {
	PlanID    string                `json:"plan_id"`
	Timestamp int64                 `json:"timestamp"`
	Routes    []model.RouteSolution `json:"routes"`
}

// PublishRoutes publishes the plan on the route topic, retrying transient
// publish failures with exponential backoff.
func (c *Client) PublishRoutes(solutions []model.RouteSolution) (string, error) {
	plan := RoutePlan{
		PlanID:    uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Routes:    solutions,
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return "", err
	}

	qos := byte(0)
	if q, ok := c.cfg.QoS["routes"]; ok {
		qos = q
	}
	var publishErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		token := c.cli.Publish(c.cfg.RouteTopic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			c.logger.Infof("published plan %s with %d routes", plan.PlanID, len(solutions))
			break
		}
		c.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(c.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		return "", publishErr
	}
	return plan.PlanID, nil
}

// StartRoutePublisher forwards every applied plan from the event bus to the
// route topic until the context is canceled.
func StartRoutePublisher(ctx context.Context, bus eventbus.EventBus, c *Client) {
	if bus == nil || c == nil {
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
				if pe, ok := ev.(events.PlanEvent); ok {
					if _, err := c.PublishRoutes(pe.Solutions); err != nil {
						c.logger.Errorf("route publish failed: %v", err)
					}
				}
			}
		}
	}()
}
