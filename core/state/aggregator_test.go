package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

type stubFeeds struct {
	vehicles    []model.Vehicle
	vehiclesErr error
	flows       []model.StationFlow
	flowsErr    error
	weather     WeatherReport
	weatherErr  error
	price       float64
	priceErr    error
	windows     []model.MaintenanceWindow
	windowsErr  error
}

func (s *stubFeeds) Vehicles(context.Context) ([]model.Vehicle, error) {
	return s.vehicles, s.vehiclesErr
}
func (s *stubFeeds) Flows(context.Context) ([]model.StationFlow, error) {
	return s.flows, s.flowsErr
}
func (s *stubFeeds) Conditions(context.Context) (WeatherReport, error) {
	return s.weather, s.weatherErr
}
func (s *stubFeeds) Price(context.Context) (float64, error) {
	return s.price, s.priceErr
}
func (s *stubFeeds) Windows(context.Context) ([]model.MaintenanceWindow, error) {
	return s.windows, s.windowsErr
}

func newTestAggregator(s *stubFeeds) *Aggregator {
	feeds := Feeds{Telemetry: s, Passengers: s, Weather: s, EnergyPrice: s, Maintenance: s}
	return NewAggregator(Config{NominalWaiting: 100, BaselineKWh: 100}, feeds, nil, nil, nopLogger{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

func TestRefreshDerivesMetrics(t *testing.T) {
	s := &stubFeeds{
		vehicles: []model.Vehicle{
			{ID: "b1", Status: model.VehicleInService, Occupancy: 50, Capacity: 100, OnTime: true, EnergyKWh: 100},
			{ID: "b2", Status: model.VehicleInService, Occupancy: 100, Capacity: 100, OnTime: false, EnergyKWh: 100},
			{ID: "b3", Status: model.VehicleOutOfOrder, Occupancy: 0, Capacity: 100},
		},
		flows: []model.StationFlow{{StationID: "s1", Waiting: 50}},
		weather: WeatherReport{Impact: model.WeatherModerate},
		price:   0.21,
	}
	a := newTestAggregator(s)
	a.Refresh(context.Background())

	snap := a.Current()
	if snap.ActiveVehicles != 2 {
		t.Fatalf("expected 2 active vehicles got %d", snap.ActiveVehicles)
	}
	if snap.OnTimePerformance != 0.5 {
		t.Errorf("otp expected 0.5 got %.2f", snap.OnTimePerformance)
	}
	if snap.CapacityUtilization != 0.75 {
		t.Errorf("utilization expected 0.75 got %.2f", snap.CapacityUtilization)
	}
	if snap.PassengerLoad != 0.5 {
		t.Errorf("load expected 0.5 got %.2f", snap.PassengerLoad)
	}
	if snap.Weather != model.WeatherModerate {
		t.Errorf("unexpected weather %v", snap.Weather)
	}
	if snap.EnergyPrice != 0.21 {
		t.Errorf("unexpected price %v", snap.EnergyPrice)
	}
	if len(snap.StaleFeeds) != 0 {
		t.Errorf("unexpected stale feeds %v", snap.StaleFeeds)
	}
}

func TestRefreshIsolatesFeedFailure(t *testing.T) {
	s := &stubFeeds{
		flows: []model.StationFlow{{StationID: "s1", Waiting: 80}},
		price: 0.30,
	}
	a := newTestAggregator(s)
	a.Refresh(context.Background())
	if a.Current().PassengerLoad != 0.8 {
		t.Fatalf("expected load 0.8 got %.2f", a.Current().PassengerLoad)
	}

	// the flow feed now fails; the prior value must survive and the feed
	// must be flagged stale, while the price keeps refreshing
	s.flowsErr = errors.New("broker unreachable")
	s.price = 0.45
	a.Refresh(context.Background())

	snap := a.Current()
	if snap.PassengerLoad != 0.8 {
		t.Errorf("expected prior load kept, got %.2f", snap.PassengerLoad)
	}
	if !snap.FeedStale(FeedPassengers) {
		t.Errorf("expected passenger feed flagged stale, got %v", snap.StaleFeeds)
	}
	if snap.FeedStale(FeedEnergyPrice) {
		t.Errorf("price feed should not be stale")
	}
	if snap.EnergyPrice != 0.45 {
		t.Errorf("expected refreshed price, got %.2f", snap.EnergyPrice)
	}
}

func TestCurrentNeverBlocksDuringRefresh(t *testing.T) {
	s := &stubFeeds{flows: []model.StationFlow{{Waiting: 10}}}
	a := newTestAggregator(s)
	a.Refresh(context.Background())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if snap := a.Current(); snap == nil {
				t.Error("nil snapshot observed")
				return
			}
		}
	}()
	for i := 0; i < 50; i++ {
		a.Refresh(context.Background())
	}
	close(stop)
	wg.Wait()
}

func TestEmergencyLifecycle(t *testing.T) {
	s := &stubFeeds{}
	a := newTestAggregator(s)

	a.RaiseEmergency(model.Emergency{ID: "e1", Type: "signal_failure", Severity: model.SeverityMinor})
	a.Refresh(context.Background())
	if !a.Current().HasEmergency() {
		t.Fatalf("expected active emergency")
	}

	a.EscalateEmergency("e1")
	a.Refresh(context.Background())
	if got := a.Current().Emergencies[0].Severity; got != model.SeverityMajor {
		t.Errorf("expected major severity got %v", got)
	}

	a.ResolveEmergency("e1")
	a.Refresh(context.Background())
	if a.Current().HasEmergency() {
		t.Errorf("expected no active emergency after resolve")
	}
}

func TestTrendRapidlyRising(t *testing.T) {
	s := &stubFeeds{}
	a := newTestAggregator(s)
	for _, waiting := range []int{10, 10, 10, 60, 70, 80} {
		s.flows = []model.StationFlow{{Waiting: waiting}}
		a.Refresh(context.Background())
	}
	if got := a.Current().Trend; got != model.TrendRapidlyRising {
		t.Fatalf("expected rapidly_rising got %v", got)
	}
}

func TestSlowFeedBoundedByTimeout(t *testing.T) {
	slow := &slowPriceFeed{delay: 200 * time.Millisecond}
	a := NewAggregator(Config{FeedTimeoutSeconds: 1}, Feeds{EnergyPrice: slow}, nil, nil, nopLogger{})
	// a timeout shorter than the feed delay marks the feed stale
	a.cfg.FeedTimeoutSeconds = 1
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	a.Refresh(ctx)
	if !a.Current().FeedStale(FeedEnergyPrice) {
		t.Fatalf("expected slow feed flagged stale")
	}
}

type slowPriceFeed struct{ delay time.Duration }

func (f *slowPriceFeed) Price(ctx context.Context) (float64, error) {
	select {
	case <-time.After(f.delay):
		return 0.1, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
