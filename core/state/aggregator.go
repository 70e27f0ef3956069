package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/logger"
	coremetrics "github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// Config holds aggregator tuning parameters.
type Config struct {
	// FeedTimeoutSeconds bounds each individual feed read so a slow feed
	// cannot stall the refresh cycle.
	FeedTimeoutSeconds int `json:"feed_timeout_seconds"`
	// NominalWaiting is the station waiting count considered a full load.
	NominalWaiting int `json:"nominal_waiting"`
	// BaselineKWh is the reference per-vehicle energy draw used to derive
	// the efficiency metric.
	BaselineKWh float64 `json:"baseline_kwh"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.FeedTimeoutSeconds <= 0 {
		c.FeedTimeoutSeconds = 5
	}
	if c.NominalWaiting <= 0 {
		c.NominalWaiting = 200
	}
	if c.BaselineKWh <= 0 {
		c.BaselineKWh = 250
	}
}

// Feeds bundles the data sources the aggregator reads from.
type Feeds struct {
	Telemetry   TelemetryFeed
	Passengers  PassengerFlowFeed
	Weather     WeatherFeed
	EnergyPrice EnergyPriceFeed
	Maintenance MaintenanceFeed
}

const trendWindow = 6

// Aggregator maintains the latest operational snapshot. Refresh builds a
// complete new snapshot and publishes it atomically; readers calling
// Current never observe a partially updated view. A failing feed keeps
// its previous sub-state and is flagged stale in the snapshot.
type Aggregator struct {
	cfg   Config
	feeds Feeds
	log   logger.Logger
	sink  coremetrics.MetricsSink
	bus   eventbus.EventBus
	now   func() time.Time

	snapshot atomic.Pointer[model.Snapshot]

	mu          sync.Mutex
	vehicles    []model.Vehicle
	flows       []model.StationFlow
	weather     WeatherReport
	price       float64
	windows     []model.MaintenanceWindow
	emergencies map[string]model.Emergency
	loadHistory []float64
}

// NewAggregator creates an aggregator. The sink and bus may be nil.
func NewAggregator(cfg Config, feeds Feeds, sink coremetrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) *Aggregator {
	cfg.SetDefaults()
	a := &Aggregator{
		cfg:         cfg,
		feeds:       feeds,
		log:         log,
		sink:        sink,
		bus:         bus,
		now:         time.Now,
		emergencies: make(map[string]model.Emergency),
	}
	a.snapshot.Store(&model.Snapshot{Timestamp: a.now(), Period: model.PeriodOf(a.now())})
	return a
}

// SetNow overrides the time source. Intended for tests.
func (a *Aggregator) SetNow(now func() time.Time) { a.now = now }

// Current returns the latest snapshot in O(1) without blocking refresh.
func (a *Aggregator) Current() *model.Snapshot {
	return a.snapshot.Load()
}

// RaiseEmergency adds or replaces an active emergency alert. The change
// becomes visible to readers on the next Refresh.
func (a *Aggregator) RaiseEmergency(e model.Emergency) {
	a.mu.Lock()
	a.emergencies[e.ID] = e
	a.mu.Unlock()
	a.log.Warnf("emergency raised: %s (%s) %s", e.ID, e.Severity, e.Description)
}

// ResolveEmergency marks the emergency resolved. Unknown ids are ignored.
func (a *Aggregator) ResolveEmergency(id string) {
	a.mu.Lock()
	if e, ok := a.emergencies[id]; ok {
		a.emergencies[id] = e.Resolve(a.now())
	}
	a.mu.Unlock()
}

// EscalateEmergency raises the severity of an active emergency.
func (a *Aggregator) EscalateEmergency(id string) {
	a.mu.Lock()
	if e, ok := a.emergencies[id]; ok {
		a.emergencies[id] = e.Escalate()
	}
	a.mu.Unlock()
}

// Refresh re-reads every feed and publishes a new snapshot. A feed read
// failure is isolated: the prior value is kept and the feed is flagged
// stale. Refresh is safe to call concurrently with Current.
func (a *Aggregator) Refresh(ctx context.Context) {
	timeout := time.Duration(a.cfg.FeedTimeoutSeconds) * time.Second
	var stale []string

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.feeds.Telemetry != nil {
		if vs, err := readFeed(ctx, timeout, a.feeds.Telemetry.Vehicles); err != nil {
			a.log.Warnf("telemetry feed: %v", err)
			stale = append(stale, FeedTelemetry)
		} else {
			a.vehicles = vs
		}
	}
	if a.feeds.Passengers != nil {
		if fs, err := readFeed(ctx, timeout, a.feeds.Passengers.Flows); err != nil {
			a.log.Warnf("passenger flow feed: %v", err)
			stale = append(stale, FeedPassengers)
		} else {
			a.flows = fs
		}
	}
	if a.feeds.Weather != nil {
		if w, err := readFeed(ctx, timeout, a.feeds.Weather.Conditions); err != nil {
			a.log.Warnf("weather feed: %v", err)
			stale = append(stale, FeedWeather)
		} else {
			a.weather = w
		}
	}
	if a.feeds.EnergyPrice != nil {
		if p, err := readFeed(ctx, timeout, a.feeds.EnergyPrice.Price); err != nil {
			a.log.Warnf("energy price feed: %v", err)
			stale = append(stale, FeedEnergyPrice)
		} else {
			a.price = p
		}
	}
	if a.feeds.Maintenance != nil {
		if ws, err := readFeed(ctx, timeout, a.feeds.Maintenance.Windows); err != nil {
			a.log.Warnf("maintenance feed: %v", err)
			stale = append(stale, FeedMaintenance)
		} else {
			a.windows = ws
		}
	}

	snap := a.buildLocked(stale)
	a.snapshot.Store(snap)

	if a.sink != nil {
		if rec, ok := a.sink.(coremetrics.SnapshotRecorder); ok {
			if err := rec.RecordSnapshot(coremetrics.SnapshotRecord{Snapshot: snap, Time: snap.Timestamp}); err != nil {
				a.log.Warnf("record snapshot: %v", err)
			}
		}
	}
	if a.bus != nil {
		a.bus.Publish(events.SnapshotEvent{Snapshot: snap})
	}
}

// buildLocked derives a new snapshot from the cached sub-states.
// Callers must hold a.mu.
func (a *Aggregator) buildLocked(stale []string) *model.Snapshot {
	now := a.now()

	load := a.passengerLoadLocked()
	a.loadHistory = append(a.loadHistory, load)
	if len(a.loadHistory) > trendWindow {
		a.loadHistory = a.loadHistory[len(a.loadHistory)-trendWindow:]
	}

	active := 0
	onTime := 0
	util := 0.0
	energy := 0.0
	for _, v := range a.vehicles {
		if !v.Eligible() {
			continue
		}
		active++
		util += v.Utilization()
		energy += v.EnergyKWh
		if v.OnTime {
			onTime++
		}
	}
	otp := 1.0
	capUtil := 0.0
	eff := 1.0
	if active > 0 {
		otp = float64(onTime) / float64(active)
		capUtil = util / float64(active)
		avgKWh := energy / float64(active)
		if avgKWh > 0 {
			eff = model.Clamp01(a.cfg.BaselineKWh / avgKWh)
		}
	}

	emergencies := make([]model.Emergency, 0, len(a.emergencies))
	for _, e := range a.emergencies {
		if !e.Resolved {
			emergencies = append(emergencies, e)
		}
	}
	windows := make([]model.MaintenanceWindow, len(a.windows))
	copy(windows, a.windows)

	return &model.Snapshot{
		Timestamp:           now,
		Period:              model.PeriodOf(now),
		PassengerLoad:       model.Clamp01(load),
		CapacityUtilization: model.Clamp01(capUtil),
		OnTimePerformance:   model.Clamp01(otp),
		EnergyEfficiency:    model.Clamp01(eff),
		Trend:               trendOf(a.loadHistory),
		ActiveVehicles:      active,
		Weather:             a.weather.Impact,
		EnergyPrice:         a.price,
		MaintenanceWindows:  windows,
		Emergencies:         emergencies,
		StaleFeeds:          stale,
	}
}

func (a *Aggregator) passengerLoadLocked() float64 {
	if len(a.flows) == 0 {
		return 0
	}
	waiting := 0
	for _, f := range a.flows {
		waiting += f.Waiting
	}
	nominal := a.cfg.NominalWaiting * len(a.flows)
	if nominal == 0 {
		return 0
	}
	return model.Clamp01(float64(waiting) / float64(nominal))
}

// trendOf compares the recent half of the history against the older half.
func trendOf(hist []float64) model.LoadTrend {
	if len(hist) < 4 {
		return model.TrendStable
	}
	mid := len(hist) / 2
	older := mean(hist[:mid])
	recent := mean(hist[mid:])
	delta := recent - older
	switch {
	case delta > 0.15:
		return model.TrendRapidlyRising
	case delta > 0.05:
		return model.TrendRising
	case delta < -0.05:
		return model.TrendFalling
	default:
		return model.TrendStable
	}
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// readFeed invokes fn under a bounded timeout derived from ctx.
func readFeed[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
