package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/opensar/rescue/core/model"
)

type fakeDispatcher struct {
	detections  []model.Detection
	responders  []model.Responder
	completions []string
	detectErr   error
}

func (f *fakeDispatcher) OnDetection(d model.Detection) (string, error) {
	if f.detectErr != nil {
		return "", f.detectErr
	}
	f.detections = append(f.detections, d)
	return fmt.Sprintf("victim-%d", len(f.detections)), nil
}

func (f *fakeDispatcher) OnResponderStatus(r model.Responder) error {
	f.responders = append(f.responders, r)
	return nil
}

func (f *fakeDispatcher) OnRouteCompletion(id string) {
	f.completions = append(f.completions, id)
}

func withMockClient(t *testing.T) *mockClient {
	t.Helper()
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
	return mc
}

func TestNewClientSubscribesFieldTopics(t *testing.T) {
	mc := withMockClient(t)
	cfg := Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"telemetry": 1}}
	if _, err := NewClient(cfg, &fakeDispatcher{}); err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(mc.subscribed) != 3 {
		t.Fatalf("subscriptions = %d, want 3", len(mc.subscribed))
	}
	if mc.subscribed[0].topic != "rescue/telemetry/+" || mc.subscribed[0].qos != 1 {
		t.Fatalf("telemetry subscription wrong: %+v", mc.subscribed[0])
	}
	if mc.subscribed[1].topic != "rescue/responders/+" || mc.subscribed[2].topic != "rescue/completions/+" {
		t.Fatalf("topic layout wrong: %+v", mc.subscribed)
	}
}

func TestOnTelemetryDetection(t *testing.T) {
	withMockClient(t)
	disp := &fakeDispatcher{}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"}, disp)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	payload := `{
		"timestamp_utc": "2026-08-29T10:00:00Z",
		"drone_id": "drone_3",
		"position": {"lat": 34.05, "lon": -118.24, "alt_m": 30},
		"battery_pct": 81.5,
		"status": "searching",
		"detected_person": {"person_id": "p1", "injury_level": "severe", "confidence": 0.88, "vitals": {"hr": 120}},
		"message_seq": 7
	}`
	cli.onTelemetry(nil, mockMessage{p: []byte(payload), topic: "rescue/telemetry/drone_3"})

	if len(disp.detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(disp.detections))
	}
	d := disp.detections[0]
	if d.InjuryLevel != model.InjurySevere || d.CandidateID != "p1" {
		t.Fatalf("detection decoded wrong: %+v", d)
	}
	if d.SurvivalLikelihood != 0.4 {
		t.Fatalf("fallback survival = %v, want 0.4", d.SurvivalLikelihood)
	}
	want := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if !d.DetectedAt.Equal(want) {
		t.Fatalf("detectedAt = %v", d.DetectedAt)
	}
}

func TestOnTelemetryExplicitSurvival(t *testing.T) {
	withMockClient(t)
	disp := &fakeDispatcher{}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"}, disp)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	payload := `{"drone_id":"d1","position":{"lat":1,"lon":2},"detected_person":{"person_id":"p2","injury_level":"minor","survival_likelihood":0.55}}`
	cli.onTelemetry(nil, mockMessage{p: []byte(payload)})
	if len(disp.detections) != 1 || disp.detections[0].SurvivalLikelihood != 0.55 {
		t.Fatalf("estimator value not preferred: %+v", disp.detections)
	}
}

func TestOnTelemetryIgnoresFramesWithoutDetection(t *testing.T) {
	withMockClient(t)
	disp := &fakeDispatcher{}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"}, disp)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	cli.onTelemetry(nil, mockMessage{p: []byte(`{"drone_id":"d1","position":{"lat":1,"lon":2}}`)})
	cli.onTelemetry(nil, mockMessage{p: []byte(`not json`)})
	if len(disp.detections) != 0 {
		t.Fatalf("unexpected detections: %+v", disp.detections)
	}
}

func TestOnResponder(t *testing.T) {
	withMockClient(t)
	disp := &fakeDispatcher{}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"}, disp)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	payload := `{"lat": 34.05, "lon": -118.24, "capacity": 4, "status": "available"}`
	cli.onResponder(nil, mockMessage{p: []byte(payload), topic: "rescue/responders/unit_7"})
	if len(disp.responders) != 1 {
		t.Fatalf("responders = %d", len(disp.responders))
	}
	r := disp.responders[0]
	if r.ID != "unit_7" || r.Capacity != 4 || r.Status != model.ResponderAvailable {
		t.Fatalf("responder decoded wrong: %+v", r)
	}

	cli.onResponder(nil, mockMessage{p: []byte(`{"responder_id":"x","status":"bogus"}`)})
	if len(disp.responders) != 1 {
		t.Fatalf("invalid status accepted")
	}
}

func TestOnCompletion(t *testing.T) {
	withMockClient(t)
	disp := &fakeDispatcher{}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883"}, disp)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	cli.onCompletion(nil, mockMessage{p: []byte(`{"responder_id":"unit_1"}`)})
	cli.onCompletion(nil, mockMessage{p: []byte(`{}`), topic: "rescue/completions/unit_2"})
	if len(disp.completions) != 2 || disp.completions[0] != "unit_1" || disp.completions[1] != "unit_2" {
		t.Fatalf("completions = %v", disp.completions)
	}
}

func TestPublishRoutesRetries(t *testing.T) {
	mc := withMockClient(t)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, &fakeDispatcher{})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	planID, err := cli.PublishRoutes([]model.RouteSolution{{ResponderID: "r1", OrderedVictimIDs: []string{"v1"}}})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if planID == "" {
		t.Fatalf("empty plan id")
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected a retry, got %d publishes", len(mc.published))
	}
	if mc.published[0].topic != "rescue/routes" {
		t.Fatalf("topic = %s", mc.published[0].topic)
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 || tlsCfg.RootCAs == nil {
		t.Fatalf("tls config incomplete")
	}
}

// helper to generate a self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0600); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

// mockClient implements pahoClient and enough of paho.Client for OnConnect.
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic string
		qos   byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, _ interface{}) paho.Token {
	m.published = append(m.published, struct {
		topic string
		qos   byte
	}{topic, qos})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	p     []byte
	topic string
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
