package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://broker:1883"
  client_id: "engine-1"
  username: "user"
  password: "pass"
  telemetry_topic: "field/telemetry/+"
dispatch:
  replan_cadence_seconds: 5
  plan_timeout_seconds: 10
  react_on_detection: true
  merge_radius_m: 75
metrics:
  prometheus_enabled: true
  prometheus_addr: ":9100"
audit:
  backend: "sqlite"
  path: "audit.db"
api:
  addr: ":8080"
simulator:
  drones: 12
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://broker:1883"},
		{"client_id", cfg.MQTT.ClientID, "engine-1"},
		{"telemetry_topic", cfg.MQTT.TelemetryTopic, "field/telemetry/+"},
		{"responder_topic default", cfg.MQTT.ResponderTopic, "rescue/responders/+"},
		{"replan_cadence", cfg.Dispatch.ReplanCadenceSeconds, 5},
		{"plan_timeout", cfg.Dispatch.PlanTimeoutSeconds, 10},
		{"react_on_detection", cfg.Dispatch.ReactOnDetection, true},
		{"merge_radius", cfg.Dispatch.MergeRadiusM, 75.0},
		{"max_victims default", cfg.Dispatch.MaxVictimsPerRoute, 5},
		{"prom_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"audit_backend", cfg.Audit.Backend, "sqlite"},
		{"api_addr", cfg.API.Addr, ":8080"},
		{"sim_drones", cfg.Simulator.Drones, 12},
		{"sim_responders default", cfg.Simulator.Responders, 5},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("mqtt:\n  broker: \"tcp://file:1883\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("R_MQTT__BROKER", "tcp://env:1883")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Fatalf("env override ignored: %s", cfg.MQTT.Broker)
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestLoadRejectsBadAuditBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "mqtt:\n  broker: \"tcp://b:1883\"\naudit:\n  backend: \"csv\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected audit backend error")
	}
}
