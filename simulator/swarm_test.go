package simulator

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/opensar/rescue/infra/mqtt"
)

type capturePublisher struct {
	topics   []string
	payloads [][]byte
}

func (c *capturePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return &dummyToken{}
}

type dummyToken struct{}

func (dummyToken) Wait() bool                     { return true }
func (dummyToken) WaitTimeout(time.Duration) bool { return true }
func (dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (dummyToken) Error() error                   { return nil }

func TestNewSwarmSeedsFleet(t *testing.T) {
	s := NewSwarm(Config{Drones: 8, Responders: 3, Seed: 1})
	if len(s.drones) != 8 || len(s.responders) != 3 {
		t.Fatalf("fleet = %d drones, %d responders", len(s.drones), len(s.responders))
	}
	for _, d := range s.drones {
		if d.pos.Lat < 34.0322 || d.pos.Lat > 34.0722 {
			t.Fatalf("drone %s outside epicentre box: %v", d.id, d.pos)
		}
	}
}

func TestTickProducesFrames(t *testing.T) {
	s := NewSwarm(Config{Drones: 5, Seed: 7, DetectionRate: 1})
	frames := s.Tick(time.Now())
	if len(frames) != 5 {
		t.Fatalf("frames = %d, want 5", len(frames))
	}
	for _, f := range frames {
		if f.DroneID == "" || f.MessageSeq != 1 {
			t.Fatalf("frame malformed: %+v", f)
		}
		if f.DetectedPerson == nil {
			t.Fatalf("detection rate 1 produced no detection: %+v", f)
		}
		if f.DetectedPerson.Vitals["hr"] == 0 {
			t.Fatalf("vitals not generated: %+v", f.DetectedPerson)
		}
	}
}

func TestDetectionsResightKnownVictims(t *testing.T) {
	s := NewSwarm(Config{Drones: 1, Seed: 3, DetectionRate: 1})
	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		for _, f := range s.Tick(time.Now()) {
			if f.DetectedPerson != nil {
				seen[f.DetectedPerson.PersonID]++
			}
		}
	}
	resighted := 0
	for _, n := range seen {
		if n > 1 {
			resighted++
		}
	}
	if resighted == 0 {
		t.Fatal("no victim was ever re-sighted")
	}
}

func TestAnnounceResponders(t *testing.T) {
	s := NewSwarm(Config{Responders: 4, Seed: 2})
	pub := &capturePublisher{}
	if err := s.AnnounceResponders(pub); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if len(pub.topics) != 4 {
		t.Fatalf("publishes = %d, want 4", len(pub.topics))
	}
	var u mqtt.ResponderUpdate
	if err := json.Unmarshal(pub.payloads[0], &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.ResponderID != "responder-00" || u.Status != "available" || u.Capacity < 3 {
		t.Fatalf("unexpected update %+v", u)
	}
	if pub.topics[0] != "rescue/responders/responder-00" {
		t.Fatalf("topic = %s", pub.topics[0])
	}
}

func TestBatteryDrainFlipsStatus(t *testing.T) {
	s := NewSwarm(Config{Drones: 1, Seed: 5})
	for i := 0; i < 100; i++ {
		s.Tick(time.Now())
	}
	if s.drones[0].status != "returning" {
		t.Fatalf("status after full drain = %s", s.drones[0].status)
	}
	if s.drones[0].battery != 0 {
		t.Fatalf("battery floor violated: %v", s.drones[0].battery)
	}
}
