// Package app assembles the engine from configuration: logger, metrics
// sinks, audit store, MQTT ingestion, coordinator and HTTP surfaces.
package app

import (
	"context"
	"fmt"

	"github.com/opensar/rescue/api"
	"github.com/opensar/rescue/config"
	"github.com/opensar/rescue/core/dispatch"
	"github.com/opensar/rescue/core/dispatch/audit"
	coremetrics "github.com/opensar/rescue/core/metrics"
	"github.com/opensar/rescue/infra/logger"
	"github.com/opensar/rescue/infra/metrics"
	"github.com/opensar/rescue/infra/mqtt"
	"github.com/opensar/rescue/internal/eventbus"
)

// Service owns the running engine and its attachments.
type Service struct {
	Coordinator *dispatch.Coordinator
	client      *mqtt.Client
	bus         eventbus.EventBus
	store       audit.Store
	influx      coremetrics.MetricsSink
	log         logger.Logger
	cfg         *config.Config
}

// New creates a Service from the configuration. The Prometheus sink is
// attached to the coordinator directly; the Influx sink writes over HTTP, so
// it is fed from the event bus to keep it off the planning path.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	var sink coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		prom, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sink = prom
	}
	var influx coremetrics.MetricsSink
	if cfg.Metrics.InfluxEnabled {
		influx = metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
	}

	store, err := newAuditStore(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	bus := eventbus.New()
	coord, err := dispatch.NewCoordinator(cfg.Dispatch, logger.New("coordinator"), sink, bus, store)
	if err != nil {
		return nil, fmt.Errorf("coordinator: %w", err)
	}

	client, err := mqtt.NewClient(cfg.MQTT, coord)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	return &Service{
		Coordinator: coord,
		client:      client,
		bus:         bus,
		store:       store,
		influx:      influx,
		log:         log,
		cfg:         cfg,
	}, nil
}

func newAuditStore(cfg config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Path)
	case "jsonl":
		return audit.NewJSONLStore(cfg.Path)
	default:
		return nil, nil
	}
}

// Run starts the replan loop, route publishing and HTTP surfaces, blocking
// until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Coordinator.Run(ctx)
	mqtt.StartRoutePublisher(ctx, s.bus, s.client)
	metrics.StartEventCollector(ctx, s.bus, s.influx)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go func() {
		mux := api.NewMux(s.Coordinator, s.store)
		if err := api.StartServer(ctx, s.cfg.API.Addr, mux); err != nil {
			s.log.Errorf("api server: %v", err)
		}
	}()
	s.log.Infof("rescue engine running")
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.client.Disconnect()
	return s.Coordinator.Close()
}
