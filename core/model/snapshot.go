package model

import "time"

// PeriodType classifies the operating period of the service day.
type PeriodType int

const (
	PeriodEarlyMorning PeriodType = iota
	PeriodMorningPeak
	PeriodDayTime
	PeriodEveningPeak
	PeriodNight
)

// String returns a human-readable representation of the period type.
func (p PeriodType) String() string {
	switch p {
	case PeriodEarlyMorning:
		return "early_morning"
	case PeriodMorningPeak:
		return "morning_peak"
	case PeriodDayTime:
		return "day_time"
	case PeriodEveningPeak:
		return "evening_peak"
	case PeriodNight:
		return "night"
	default:
		return "unknown"
	}
}

// IsPeak reports whether the period is a morning or evening peak.
func (p PeriodType) IsPeak() bool {
	return p == PeriodMorningPeak || p == PeriodEveningPeak
}

// PeriodOf maps a wall-clock time to a period type.
func PeriodOf(t time.Time) PeriodType {
	h := t.Hour()
	switch {
	case h >= 4 && h < 7:
		return PeriodEarlyMorning
	case h >= 7 && h < 10:
		return PeriodMorningPeak
	case h >= 10 && h < 17:
		return PeriodDayTime
	case h >= 17 && h < 20:
		return PeriodEveningPeak
	default:
		return PeriodNight
	}
}

// WeatherImpact grades how strongly current weather degrades operations.
type WeatherImpact int

const (
	WeatherNone WeatherImpact = iota
	WeatherMinimal
	WeatherLow
	WeatherModerate
	WeatherSevere
)

// String returns a human-readable representation of the weather impact.
func (w WeatherImpact) String() string {
	switch w {
	case WeatherNone:
		return "none"
	case WeatherMinimal:
		return "minimal"
	case WeatherLow:
		return "low"
	case WeatherModerate:
		return "moderate"
	case WeatherSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// LoadTrend describes how passenger load has been evolving recently.
type LoadTrend int

const (
	TrendStable LoadTrend = iota
	TrendRising
	TrendRapidlyRising
	TrendFalling
)

// String returns a human-readable representation of the trend.
func (t LoadTrend) String() string {
	switch t {
	case TrendStable:
		return "stable"
	case TrendRising:
		return "rising"
	case TrendRapidlyRising:
		return "rapidly_rising"
	case TrendFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable point-in-time view of operating conditions.
// All normalized metrics are clamped to [0,1]. A snapshot is always
// replaced wholesale by the aggregator, never mutated in place, so a
// reader holding a *Snapshot can use it without synchronization.
type Snapshot struct {
	Timestamp           time.Time
	Period              PeriodType
	PassengerLoad       float64 // fraction of nominal demand, 0..1
	CapacityUtilization float64 // occupied seats over offered seats, 0..1
	OnTimePerformance   float64 // fraction of vehicles on time, 0..1
	EnergyEfficiency    float64 // normalized efficiency score, 0..1
	Trend               LoadTrend
	ActiveVehicles      int
	Weather             WeatherImpact
	EnergyPrice         float64 // currency per kWh
	MaintenanceWindows  []MaintenanceWindow
	Emergencies         []Emergency
	StaleFeeds          []string // feed names whose last read failed
}

// HasEmergency reports whether any unresolved emergency alert is active.
func (s *Snapshot) HasEmergency() bool {
	for _, e := range s.Emergencies {
		if !e.Resolved {
			return true
		}
	}
	return false
}

// MaintenanceActive reports whether a maintenance window overlaps t.
func (s *Snapshot) MaintenanceActive(t time.Time) bool {
	for _, w := range s.MaintenanceWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// FeedStale reports whether the named feed failed its last read.
func (s *Snapshot) FeedStale(name string) bool {
	for _, f := range s.StaleFeeds {
		if f == name {
			return true
		}
	}
	return false
}

// Clamp01 bounds v to the [0,1] range expected of snapshot metrics.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
