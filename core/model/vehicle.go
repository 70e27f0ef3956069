package model

import "time"

// VehicleStatus describes the operational state of a fleet vehicle.
type VehicleStatus string

const (
	VehicleInService   VehicleStatus = "in_service"
	VehicleAvailable   VehicleStatus = "available"
	VehicleEnRoute     VehicleStatus = "en_route"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleOutOfOrder  VehicleStatus = "out_of_order"
)

// Vehicle is the telemetry view of a single transit vehicle.
type Vehicle struct {
	ID          string
	RouteID     string
	Status      VehicleStatus
	Latitude    float64
	Longitude   float64
	SpeedKmh    float64
	Occupancy   int     // passengers currently on board
	Capacity    int     // seated plus standing capacity
	OnTime      bool    // within schedule tolerance at last stop
	EnergyKWh   float64 // energy drawn since start of service
	LastSeen    time.Time
}

// Eligible reports whether the vehicle may participate in a re-optimization.
func (v Vehicle) Eligible() bool {
	switch v.Status {
	case VehicleInService, VehicleAvailable, VehicleEnRoute:
		return true
	}
	return false
}

// Utilization returns the occupancy fraction, clamped to [0,1].
func (v Vehicle) Utilization() float64 {
	if v.Capacity <= 0 {
		return 0
	}
	return Clamp01(float64(v.Occupancy) / float64(v.Capacity))
}

// StationFlow holds per-station passenger counts from the flow feed.
type StationFlow struct {
	StationID string
	Inbound   int
	Outbound  int
	Waiting   int
	Timestamp time.Time
}
