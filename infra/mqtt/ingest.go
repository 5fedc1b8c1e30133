package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/opensar/rescue/core/model"
)

// DronePosition is the drone's reported fix. Altitude is carried for
// completeness but unused by planning.
type DronePosition struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	AltM float64 `json:"alt_m"`
}

// DetectedPerson is the detection block embedded in drone telemetry.
// SurvivalLikelihood is set upstream by the estimator; when absent the
// per-injury fallback table fills it.
type DetectedPerson struct {
	PersonID           string         `json:"person_id"`
	InjuryLevel        string         `json:"injury_level"`
	Confidence         float64        `json:"confidence"`
	AgeEst             int            `json:"age_est"`
	Vitals             map[string]int `json:"vitals"`
	SurvivalLikelihood *float64       `json:"survival_likelihood,omitempty"`
}

// Telemetry is one drone telemetry frame.
type Telemetry struct {
	TimestampUTC   string          `json:"timestamp_utc"`
	DroneID        string          `json:"drone_id"`
	Position       DronePosition   `json:"position"`
	SpeedMS        float64         `json:"speed_m_s"`
	HeadingDeg     float64         `json:"heading_deg"`
	BatteryPct     float64         `json:"battery_pct"`
	Status         string          `json:"status"`
	DetectedPerson *DetectedPerson `json:"detected_person,omitempty"`
	MessageSeq     int             `json:"message_seq"`
}

// ResponderUpdate is a responder status report.
type ResponderUpdate struct {
	ResponderID string  `json:"responder_id"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Capacity    int     `json:"capacity"`
	Status      string  `json:"status"`
}

// fallbackSurvival mirrors the estimator's per-injury defaults for frames
// that arrive without a likelihood.
var fallbackSurvival = map[model.InjuryLevel]float64{
	model.InjuryNone:        0.9,
	model.InjuryMinor:       0.7,
	model.InjurySevere:      0.4,
	model.InjuryUnconscious: 0.2,
}

// Detection converts the telemetry frame into a registry detection. The
// victim's location is the drone's fix at detection time.
func (t Telemetry) Detection(now time.Time) model.Detection {
	p := t.DetectedPerson
	injury := model.ParseInjuryLevel(p.InjuryLevel)
	survival := fallbackSurvival[injury]
	if p.SurvivalLikelihood != nil {
		survival = *p.SurvivalLikelihood
	}
	detectedAt := now
	if ts, err := time.Parse(time.RFC3339, t.TimestampUTC); err == nil {
		detectedAt = ts
	}
	return model.Detection{
		CandidateID:        p.PersonID,
		Location:           model.Position{Lat: t.Position.Lat, Lon: t.Position.Lon},
		InjuryLevel:        injury,
		SurvivalLikelihood: survival,
		DetectedAt:         detectedAt,
	}
}

func (c *Client) onTelemetry(_ paho.Client, msg paho.Message) {
	var t Telemetry
	if err := json.Unmarshal(msg.Payload(), &t); err != nil {
		c.logger.Errorf("failed to decode telemetry on %s: %v", msg.Topic(), err)
		return
	}
	if t.DetectedPerson == nil {
		return
	}
	id, err := c.dispatcher.OnDetection(t.Detection(time.Now()))
	if err != nil {
		c.logger.Warnf("detection from %s rejected: %v", t.DroneID, err)
		return
	}
	c.logger.Debugf("detection %s ingested from drone %s (seq %d)", id, t.DroneID, t.MessageSeq)
}

func (c *Client) onResponder(_ paho.Client, msg paho.Message) {
	var u ResponderUpdate
	if err := json.Unmarshal(msg.Payload(), &u); err != nil {
		c.logger.Errorf("failed to decode responder update on %s: %v", msg.Topic(), err)
		return
	}
	if u.ResponderID == "" {
		u.ResponderID = lastTopicSegment(msg.Topic())
	}
	status, err := model.ParseResponderStatus(u.Status)
	if err != nil {
		c.logger.Warnf("responder update %s: %v", u.ResponderID, err)
		return
	}
	r := model.Responder{
		ID:       u.ResponderID,
		Location: model.Position{Lat: u.Lat, Lon: u.Lon},
		Capacity: u.Capacity,
		Status:   status,
	}
	if err := c.dispatcher.OnResponderStatus(r); err != nil {
		c.logger.Warnf("responder update %s rejected: %v", u.ResponderID, err)
	}
}

func (c *Client) onCompletion(_ paho.Client, msg paho.Message) {
	var m struct {
		ResponderID string `json:"responder_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		c.logger.Errorf("failed to decode completion on %s: %v", msg.Topic(), err)
		return
	}
	if m.ResponderID == "" {
		m.ResponderID = lastTopicSegment(msg.Topic())
	}
	c.dispatcher.OnRouteCompletion(m.ResponderID)
}

func lastTopicSegment(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
