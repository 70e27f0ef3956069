package state

import (
	"context"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
)

// Feed names used in Snapshot.StaleFeeds when a read fails.
const (
	FeedTelemetry   = "telemetry"
	FeedPassengers  = "passenger_flow"
	FeedWeather     = "weather"
	FeedEnergyPrice = "energy_price"
	FeedMaintenance = "maintenance"
)

// TelemetryFeed supplies the latest per-vehicle telemetry.
type TelemetryFeed interface {
	Vehicles(ctx context.Context) ([]model.Vehicle, error)
}

// PassengerFlowFeed supplies per-station passenger counts.
type PassengerFlowFeed interface {
	Flows(ctx context.Context) ([]model.StationFlow, error)
}

// WeatherReport is the weather feed payload.
type WeatherReport struct {
	Condition string
	Impact    model.WeatherImpact
	Time      time.Time
}

// WeatherFeed supplies the current weather condition and impact grade.
type WeatherFeed interface {
	Conditions(ctx context.Context) (WeatherReport, error)
}

// EnergyPriceFeed supplies the current energy price per kWh.
type EnergyPriceFeed interface {
	Price(ctx context.Context) (float64, error)
}

// MaintenanceFeed supplies scheduled maintenance windows.
type MaintenanceFeed interface {
	Windows(ctx context.Context) ([]model.MaintenanceWindow, error)
}
