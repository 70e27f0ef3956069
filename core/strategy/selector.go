package strategy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/events"
	"github.com/itzzomkar/navyatra-engine/core/logger"
	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/internal/eventbus"
)

// SelectorConfig tunes recommender handling.
type SelectorConfig struct {
	// FreshnessSeconds is how long a cached recommendation stays
	// authoritative for the throughput/efficiency rules.
	FreshnessSeconds int `json:"freshness_seconds"`
	// MinConfidence below which a recommendation is ignored.
	MinConfidence float64 `json:"min_confidence"`
	// CallTimeoutSeconds bounds the asynchronous recommender call.
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *SelectorConfig) SetDefaults() {
	if c.FreshnessSeconds <= 0 {
		c.FreshnessSeconds = 120
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = 0.6
	}
	if c.CallTimeoutSeconds <= 0 {
		c.CallTimeoutSeconds = 5
	}
}

// PeakLoadThreshold is the passenger load above which the throughput
// strategy applies outside peak periods.
const PeakLoadThreshold = 0.7

type cachedRecommendation struct {
	rec Recommendation
	at  time.Time
}

// Selector resolves exactly one strategy for a snapshot. Deterministic
// rules are evaluated top to bottom; an optional recommender may steer
// only the last two rules and never blocks selection.
type Selector struct {
	cfg     SelectorConfig
	catalog *Catalog
	roles   Roles
	rec     Recommender
	log     logger.Logger
	bus     eventbus.EventBus
	now     func() time.Time

	mu       sync.Mutex
	cached   *cachedRecommendation
	inFlight atomic.Bool
}

// NewSelector builds a selector. The recommender and bus may be nil.
// Role resolution failures are fatal configuration errors.
func NewSelector(cfg SelectorConfig, catalog *Catalog, roles Roles, rec Recommender, bus eventbus.EventBus, log logger.Logger) (*Selector, error) {
	cfg.SetDefaults()
	if err := catalog.ResolveRoles(roles); err != nil {
		return nil, err
	}
	return &Selector{
		cfg:     cfg,
		catalog: catalog,
		roles:   roles,
		rec:     rec,
		log:     log,
		bus:     bus,
		now:     time.Now,
	}, nil
}

// SetNow overrides the time source. Intended for tests.
func (s *Selector) SetNow(now func() time.Time) { s.now = now }

// Select resolves the strategy for the snapshot. Precedence:
//  1. active emergency or severe weather: safety-first
//  2. active maintenance window: service continuity
//  3. peak period or load above threshold: passenger throughput
//  4. otherwise: energy efficiency
//
// A fresh, confident recommendation replaces rules 3 and 4 only.
func (s *Selector) Select(snap *model.Snapshot) (model.Strategy, error) {
	now := s.now()

	if snap.HasEmergency() || snap.Weather == model.WeatherSevere {
		return s.resolve(s.roles.SafetyFirst, "rule", 0)
	}
	if snap.MaintenanceActive(now) {
		return s.resolve(s.roles.ServiceContinuity, "rule", 0)
	}

	s.refreshRecommendationAsync(snap)

	if rec, ok := s.freshRecommendation(now); ok {
		if st, err := s.catalog.Get(rec.Strategy); err == nil {
			s.publish(st.Name, "recommender", rec.Confidence)
			return st, nil
		}
		s.log.Warnf("recommender suggested unknown strategy %q, falling back to rules", rec.Strategy)
	}

	if snap.Period.IsPeak() || snap.PassengerLoad > PeakLoadThreshold {
		return s.resolve(s.roles.PassengerThroughput, "rule", 0)
	}
	return s.resolve(s.roles.EnergyEfficiency, "rule", 0)
}

func (s *Selector) resolve(name, source string, confidence float64) (model.Strategy, error) {
	st, err := s.catalog.Get(name)
	if err != nil {
		return model.Strategy{}, err
	}
	s.publish(st.Name, source, confidence)
	return st, nil
}

func (s *Selector) publish(name, source string, confidence float64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.SelectionEvent{
		Strategy:   name,
		Source:     source,
		Confidence: confidence,
		OccurredAt: s.now(),
	})
}

// freshRecommendation returns the cached recommendation if it is still
// inside the freshness window and confident enough.
func (s *Selector) freshRecommendation(now time.Time) (Recommendation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return Recommendation{}, false
	}
	window := time.Duration(s.cfg.FreshnessSeconds) * time.Second
	if now.Sub(s.cached.at) > window {
		return Recommendation{}, false
	}
	if s.cached.rec.Confidence < s.cfg.MinConfidence {
		return Recommendation{}, false
	}
	return s.cached.rec, true
}

// refreshRecommendationAsync starts one recommender call in the
// background. Selection never waits on it; the result is cached for the
// next decision. At most one call is in flight at a time.
func (s *Selector) refreshRecommendationAsync(snap *model.Snapshot) {
	if s.rec == nil {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return
	}
	summary := Summary{
		Period:              snap.Period,
		PassengerLoad:       snap.PassengerLoad,
		CapacityUtilization: snap.CapacityUtilization,
		OnTimePerformance:   snap.OnTimePerformance,
		EnergyEfficiency:    snap.EnergyEfficiency,
		Trend:               snap.Trend,
		EnergyPrice:         snap.EnergyPrice,
	}
	go func() {
		defer s.inFlight.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.CallTimeoutSeconds)*time.Second)
		defer cancel()
		rec, err := s.rec.Recommend(ctx, summary)
		if err != nil {
			s.log.Debugf("recommender call failed: %v", err)
			return
		}
		s.mu.Lock()
		s.cached = &cachedRecommendation{rec: rec, at: s.now()}
		s.mu.Unlock()
	}()
}
