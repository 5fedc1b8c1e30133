// Package simulator generates a drone swarm sweeping an earthquake zone and
// publishes its telemetry over MQTT, exercising the full ingestion path
// without hardware in the loop.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/opensar/rescue/infra/logger"
	"github.com/opensar/rescue/infra/mqtt"
)

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

type drone struct {
	id      string
	pos     mqtt.DronePosition
	battery float64
	status  string
	speedMS float64
	heading float64
	msgSeq  int
}

type simVictim struct {
	id     string
	pos    mqtt.DronePosition
	injury string
	ageEst int
}

// Swarm holds the simulated fleet state between ticks.
type Swarm struct {
	cfg        Config
	rng        *rand.Rand
	drones     []*drone
	responders []string
	victims    []simVictim
	logger     logger.Logger
}

// NewSwarm seeds the fleet around the epicentre. A zero seed derives one from
// the clock.
func NewSwarm(cfg Config) *Swarm {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	s := &Swarm{cfg: cfg, rng: rng, logger: logger.New("simulator")}
	for i := 0; i < cfg.Drones; i++ {
		s.drones = append(s.drones, &drone{
			id: fmt.Sprintf("drone-%03d", i),
			pos: mqtt.DronePosition{
				Lat:  cfg.EpicentreLat + rng.Float64()*0.04 - 0.02,
				Lon:  cfg.EpicentreLon + rng.Float64()*0.04 - 0.02,
				AltM: 5 + rng.Float64()*45,
			},
			battery: 60 + rng.Float64()*40,
			status:  "searching",
			speedMS: 0.5 + rng.Float64()*2.5,
			heading: rng.Float64() * 360,
		})
	}
	for i := 0; i < cfg.Responders; i++ {
		s.responders = append(s.responders, fmt.Sprintf("responder-%02d", i))
	}
	return s
}

// vitalsFor samples heart rate, respiration and SpO2 around the profile of
// the given injury level.
func (s *Swarm) vitalsFor(injury string) map[string]int {
	var hr, resp, spo2 distuv.Normal
	switch injury {
	case "unconscious":
		hr = distuv.Normal{Mu: 40, Sigma: 5}
		resp = distuv.Normal{Mu: 7, Sigma: 1.5}
		spo2 = distuv.Normal{Mu: 70, Sigma: 5}
	case "severe":
		hr = distuv.Normal{Mu: 65, Sigma: 8}
		resp = distuv.Normal{Mu: 15, Sigma: 3}
		spo2 = distuv.Normal{Mu: 85, Sigma: 3}
	case "minor":
		hr = distuv.Normal{Mu: 85, Sigma: 8}
		resp = distuv.Normal{Mu: 16, Sigma: 2}
		spo2 = distuv.Normal{Mu: 94, Sigma: 2}
	default:
		hr = distuv.Normal{Mu: 80, Sigma: 10}
		resp = distuv.Normal{Mu: 18, Sigma: 3}
		spo2 = distuv.Normal{Mu: 97, Sigma: 1.5}
	}
	return map[string]int{
		"hr":   clampInt(hr.Rand(), 25, 180),
		"resp": clampInt(resp.Rand(), 4, 40),
		"spo2": clampInt(spo2.Rand(), 50, 100),
	}
}

func clampInt(v float64, lo, hi int) int {
	n := int(v)
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

var injuryLevels = []string{"none", "minor", "severe", "unconscious"}

// detect rolls the per-tick detection chance for a drone. Roughly a third of
// detections are fresh victims; the rest re-sight an already known one, which
// downstream must merge rather than duplicate.
func (s *Swarm) detect(d *drone) *mqtt.DetectedPerson {
	if s.rng.Float64() >= s.cfg.DetectionRate {
		return nil
	}
	var v simVictim
	if len(s.victims) == 0 || s.rng.Float64() < 0.3 {
		v = simVictim{
			id: "victim-" + uuid.NewString()[:8],
			pos: mqtt.DronePosition{
				Lat: d.pos.Lat + s.rng.Float64()*0.002 - 0.001,
				Lon: d.pos.Lon + s.rng.Float64()*0.002 - 0.001,
			},
			injury: injuryLevels[s.rng.Intn(len(injuryLevels))],
			ageEst: 5 + s.rng.Intn(76),
		}
		s.victims = append(s.victims, v)
	} else {
		v = s.victims[s.rng.Intn(len(s.victims))]
	}
	return &mqtt.DetectedPerson{
		PersonID:    v.id,
		InjuryLevel: v.injury,
		Confidence:  0.7 + s.rng.Float64()*0.25,
		AgeEst:      v.ageEst,
		Vitals:      s.vitalsFor(v.injury),
	}
}

// Tick advances every drone one step and returns the telemetry frames to
// publish.
func (s *Swarm) Tick(now time.Time) []mqtt.Telemetry {
	frames := make([]mqtt.Telemetry, 0, len(s.drones))
	for _, d := range s.drones {
		d.pos.Lat += s.rng.Float64()*0.0002 - 0.0001
		d.pos.Lon += s.rng.Float64()*0.0002 - 0.0001
		d.pos.AltM += s.rng.Float64()*4 - 2
		if d.pos.AltM < 5 {
			d.pos.AltM = 5
		}
		if d.pos.AltM > 50 {
			d.pos.AltM = 50
		}
		d.battery -= 0.5 + s.rng.Float64()*1.5
		if d.battery < 0 {
			d.battery = 0
		}
		if d.battery < 20 {
			d.status = "returning"
		}
		d.msgSeq++

		frames = append(frames, mqtt.Telemetry{
			TimestampUTC:   now.UTC().Format(time.RFC3339),
			DroneID:        d.id,
			Position:       d.pos,
			SpeedMS:        d.speedMS,
			HeadingDeg:     d.heading,
			BatteryPct:     d.battery,
			Status:         d.status,
			DetectedPerson: s.detect(d),
			MessageSeq:     d.msgSeq,
		})
	}
	return frames
}

// AnnounceResponders publishes the responder fleet as available units spread
// around the epicentre.
func (s *Swarm) AnnounceResponders(cli publisher) error {
	for _, id := range s.responders {
		u := mqtt.ResponderUpdate{
			ResponderID: id,
			Lat:         s.cfg.EpicentreLat + s.rng.Float64()*0.02 - 0.01,
			Lon:         s.cfg.EpicentreLon + s.rng.Float64()*0.02 - 0.01,
			Capacity:    3 + s.rng.Intn(3),
			Status:      "available",
		}
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		topic := "rescue/responders/" + id
		if token := cli.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
			return token.Error()
		}
	}
	s.logger.Infof("announced %d responders", len(s.responders))
	return nil
}

// Run publishes telemetry at the configured interval until the context is
// canceled.
func (s *Swarm) Run(ctx context.Context, cli publisher) error {
	if err := s.AnnounceResponders(cli); err != nil {
		return err
	}
	ticker := time.NewTicker(time.Duration(s.cfg.IntervalMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, frame := range s.Tick(now) {
				payload, err := json.Marshal(frame)
				if err != nil {
					return err
				}
				topic := "rescue/telemetry/" + frame.DroneID
				if token := cli.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
					s.logger.Errorf("telemetry publish failed: %v", token.Error())
				}
			}
		}
	}
}

// Connect dials the broker with the swarm's client id.
func Connect(broker string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("rescue-simulator")
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
