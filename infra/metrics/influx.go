package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/opensar/rescue/core/metrics"
	"github.com/opensar/rescue/infra/logger"
)

// InfluxSink writes planning events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordPlanResult writes the planning pass and its routes as line protocol
// events.
func (s *InfluxSink) RecordPlanResult(res coremetrics.PlanResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("plan_event").
		AddTag("timed_out", strconv.FormatBool(res.TimedOut)).
		AddTag("component", "dispatch_coordinator").
		AddField("routes", len(res.Solutions)).
		AddField("assigned_victims", res.AssignedVictims).
		AddField("unassigned_victims", res.Unassigned).
		AddField("duration_ms", res.Duration.Milliseconds()).
		SetTime(res.Time)
	if err := s.writeAPI.WritePoint(ctx, p); err != nil {
		return err
	}
	for _, sol := range res.Solutions {
		rp := write.NewPointWithMeasurement("route_event").
			AddTag("responder_id", sol.ResponderID).
			AddTag("component", "dispatch_coordinator").
			AddField("victims", len(sol.OrderedVictimIDs)).
			AddField("distance_m", sol.TotalDistanceMeters).
			AddField("duration_s", sol.EstimatedDurationSeconds).
			SetTime(res.Time)
		if err := s.writeAPI.WritePoint(ctx, rp); err != nil {
			return err
		}
	}
	return nil
}

// RecordDetection writes a detection ingestion event.
func (s *InfluxSink) RecordDetection(rec coremetrics.DetectionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("detection_event").
		AddTag("victim_id", rec.VictimID).
		AddTag("created", strconv.FormatBool(rec.Created)).
		AddTag("component", "ingestion").
		AddField("count", 1).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSystemState persists a periodic registry snapshot.
func (s *InfluxSink) RecordSystemState(st coremetrics.SystemState) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("system_state").
		AddTag("component", "dispatch_coordinator").
		AddField("active_victims", st.ActiveVictims).
		AddField("available_responders", st.AvailableResponders).
		AddField("average_survival", st.AverageSurvival).
		AddField("system_load", st.SystemLoad).
		SetTime(st.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
