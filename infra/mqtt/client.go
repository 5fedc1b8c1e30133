// Package mqtt connects the dispatch engine to the field: drone telemetry,
// responder status and route completions arrive over an MQTT broker, and
// each applied plan is published back for responders to pick up.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/opensar/rescue/core/model"
	"github.com/opensar/rescue/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker          string          `json:"broker"`
	ClientID        string          `json:"client_id"`
	Username        string          `json:"username"`
	Password        string          `json:"password"`
	UseTLS          bool            `json:"use_tls"`
	ClientCert      string          `json:"client_cert"`
	ClientKey       string          `json:"client_key"`
	CABundle        string          `json:"ca_bundle"`
	AuthMethod      string          `json:"auth_method"`
	QoS             map[string]byte `json:"qos"`
	TelemetryTopic  string          `json:"telemetry_topic"`
	ResponderTopic  string          `json:"responder_topic"`
	CompletionTopic string          `json:"completion_topic"`
	RouteTopic      string          `json:"route_topic"`
	MaxRetries      int             `json:"max_retries"`
	BackoffMS       int             `json:"backoff_ms"`
	TLSConfig       *tls.Config     `json:"-"`
}

// SetDefaults fills in the standard topic layout when unset.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "rescue-engine"
	}
	if c.TelemetryTopic == "" {
		c.TelemetryTopic = "rescue/telemetry/+"
	}
	if c.ResponderTopic == "" {
		c.ResponderTopic = "rescue/responders/+"
	}
	if c.CompletionTopic == "" {
		c.CompletionTopic = "rescue/completions/+"
	}
	if c.RouteTopic == "" {
		c.RouteTopic = "rescue/routes"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Dispatcher is the slice of the coordinator the MQTT layer feeds.
type Dispatcher interface {
	OnDetection(d model.Detection) (string, error)
	OnResponderStatus(r model.Responder) error
	OnRouteCompletion(responderID string)
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Client subscribes to the field topics and forwards decoded events to the
// dispatcher. It also publishes applied plans on the route topic.
type Client struct {
	cli        pahoClient
	cfg        Config
	dispatcher Dispatcher
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewClient connects to the broker and subscribes to the telemetry,
// responder and completion topics.
func NewClient(cfg Config, dispatcher Dispatcher) (*Client, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	cl := &Client{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		subs := []struct {
			topic   string
			key     string
			handler paho.MessageHandler
		}{
			{cfg.TelemetryTopic, "telemetry", cl.onTelemetry},
			{cfg.ResponderTopic, "responders", cl.onResponder},
			{cfg.CompletionTopic, "completions", cl.onCompletion},
		}
		for _, s := range subs {
			qos := byte(0)
			if q, ok := cfg.QoS[s.key]; ok {
				qos = q
			}
			if token := c.Subscribe(s.topic, qos, s.handler); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s error: %v", s.topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	cl.cli = c
	return cl, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Disconnect gracefully closes the MQTT connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
