package app

import (
	"context"
	"fmt"

	"github.com/itzzomkar/navyatra-engine/config"
	"github.com/itzzomkar/navyatra-engine/core/apply"
	"github.com/itzzomkar/navyatra-engine/core/engine"
	"github.com/itzzomkar/navyatra-engine/core/job"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/solver"
	"github.com/itzzomkar/navyatra-engine/core/state"
	"github.com/itzzomkar/navyatra-engine/core/strategy"
	"github.com/itzzomkar/navyatra-engine/infra/archive"
	"github.com/itzzomkar/navyatra-engine/infra/feeds"
	"github.com/itzzomkar/navyatra-engine/infra/logger"
	"github.com/itzzomkar/navyatra-engine/infra/metrics"
	"github.com/itzzomkar/navyatra-engine/infra/notify"
	"github.com/itzzomkar/navyatra-engine/internal/clock"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// Service wires the feed hub, aggregator, selector, job manager, engine
// and notifier together from the configuration.
type Service struct {
	Engine     *engine.Engine
	Jobs       *job.Manager
	Aggregator *state.Aggregator

	hub      *feeds.Hub
	bridge   *notify.Bridge
	notifier *apply.Notifier
	bus      eventbus.EventBus
	store    job.ArchiveStore
	sink     coremetrics.MetricsSink
	log      logger.Logger

	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	hub, err := feeds.NewHub(cfg.Feeds)
	if err != nil {
		return nil, fmt.Errorf("feed hub: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	cfg.Metrics.SetDefaults()
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	agg := state.NewAggregator(cfg.State, state.Feeds{
		Telemetry:   hub,
		Passengers:  hub,
		Weather:     hub,
		EnergyPrice: hub,
		Maintenance: hub,
	}, sink, bus, logger.New("state"))

	catalog, err := strategy.NewCatalog(cfg.ModelStrategies())
	if err != nil {
		return nil, fmt.Errorf("strategy catalog: %w", err)
	}
	rec := strategy.HeuristicRecommender{Roles: cfg.Roles}
	sel, err := strategy.NewSelector(cfg.Selector, catalog, cfg.Roles, rec, bus, logger.New("selector"))
	if err != nil {
		return nil, fmt.Errorf("selector: %w", err)
	}

	store, err := archive.New(cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	mgr, err := job.NewManager(cfg.Jobs, solver.DefaultRegistry(), store, bus, sink, logger.New("jobs"), clock.Real{})
	if err != nil {
		return nil, fmt.Errorf("job manager: %w", err)
	}

	bridge, err := notify.NewBridge(cfg.Feeds, cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("notify bridge: %w", err)
	}
	applier := apply.NewApplier(bridge, logger.New("apply"))
	notifier := apply.NewNotifier(bus, applier, logger.New("notify"), bridge)

	eng, err := engine.New(cfg.Engine, agg, sel, mgr, catalog, cfg.Roles, bus, sink, logger.New("engine"), clock.Real{})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Service{
		Engine:      eng,
		Jobs:        mgr,
		Aggregator:  agg,
		hub:         hub,
		bridge:      bridge,
		notifier:    notifier,
		bus:         bus,
		store:       store,
		sink:        sink,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the control loop and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.notifier.Run(ctx)
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	s.Jobs.StartWatcher(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	// first snapshot before the loops start submitting
	s.Aggregator.Refresh(ctx)
	s.Engine.Start(ctx)
	s.log.Infof("optimization engine running")

	<-ctx.Done()
	s.Jobs.Wait()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.hub.Disconnect()
	s.bridge.Disconnect()
	s.bus.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
