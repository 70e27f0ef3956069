package feeds

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/core/state"
)

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	// the wildcard segment sits before the trailing literal one
	return parts[len(parts)-2]
}

func lastSegment(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}

func parseVehicle(topic string, payload []byte) (model.Vehicle, error) {
	var msg struct {
		VehicleID string  `json:"vehicle_id"`
		RouteID   string  `json:"route_id"`
		Status    string  `json:"status"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		SpeedKmh  float64 `json:"speed_kmh"`
		Occupancy int     `json:"occupancy"`
		Capacity  int     `json:"capacity"`
		OnTime    *bool   `json:"on_time"`
		EnergyKWh float64 `json:"energy_kwh"`
		TS        *int64  `json:"ts"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return model.Vehicle{}, err
	}
	if msg.VehicleID == "" {
		msg.VehicleID = extractID(topic)
	}
	if msg.VehicleID == "" {
		return model.Vehicle{}, fmt.Errorf("vehicle state without id")
	}
	v := model.Vehicle{
		ID:        msg.VehicleID,
		RouteID:   msg.RouteID,
		Status:    model.VehicleStatus(msg.Status),
		Latitude:  msg.Lat,
		Longitude: msg.Lon,
		SpeedKmh:  msg.SpeedKmh,
		Occupancy: msg.Occupancy,
		Capacity:  msg.Capacity,
		EnergyKWh: msg.EnergyKWh,
		LastSeen:  time.Now(),
	}
	if msg.Status == "" {
		v.Status = model.VehicleInService
	}
	if msg.OnTime != nil {
		v.OnTime = *msg.OnTime
	} else {
		v.OnTime = true
	}
	if msg.TS != nil {
		v.LastSeen = time.Unix(*msg.TS, 0)
	}
	return v, nil
}

func parseFlow(topic string, payload []byte) (model.StationFlow, error) {
	var msg struct {
		StationID string `json:"station_id"`
		Inbound   int    `json:"inbound"`
		Outbound  int    `json:"outbound"`
		Waiting   int    `json:"waiting"`
		TS        *int64 `json:"ts"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return model.StationFlow{}, err
	}
	if msg.StationID == "" {
		msg.StationID = extractID(topic)
	}
	if msg.StationID == "" {
		return model.StationFlow{}, fmt.Errorf("station flow without id")
	}
	f := model.StationFlow{
		StationID: msg.StationID,
		Inbound:   msg.Inbound,
		Outbound:  msg.Outbound,
		Waiting:   msg.Waiting,
		Timestamp: time.Now(),
	}
	if msg.TS != nil {
		f.Timestamp = time.Unix(*msg.TS, 0)
	}
	return f, nil
}

func parseWeather(payload []byte) (state.WeatherReport, error) {
	var msg struct {
		Condition string `json:"condition"`
		Impact    string `json:"impact"`
		TS        *int64 `json:"ts"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return state.WeatherReport{}, err
	}
	rep := state.WeatherReport{
		Condition: msg.Condition,
		Impact:    weatherImpact(msg.Impact),
		Time:      time.Now(),
	}
	if msg.TS != nil {
		rep.Time = time.Unix(*msg.TS, 0)
	}
	return rep, nil
}

func weatherImpact(s string) model.WeatherImpact {
	switch strings.ToLower(s) {
	case "minimal":
		return model.WeatherMinimal
	case "low":
		return model.WeatherLow
	case "moderate":
		return model.WeatherModerate
	case "severe":
		return model.WeatherSevere
	default:
		return model.WeatherNone
	}
}

func parsePrice(payload []byte) (float64, error) {
	var msg struct {
		PricePerKWh float64 `json:"price_per_kwh"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return 0, err
	}
	if msg.PricePerKWh < 0 {
		return 0, fmt.Errorf("negative energy price: %f", msg.PricePerKWh)
	}
	return msg.PricePerKWh, nil
}

func parseMaintenance(payload []byte) ([]model.MaintenanceWindow, error) {
	var msgs []struct {
		ID     string    `json:"id"`
		Type   string    `json:"type"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
		Impact string    `json:"impact"`
	}
	if err := json.Unmarshal(payload, &msgs); err != nil {
		return nil, err
	}
	windows := make([]model.MaintenanceWindow, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" || !m.End.After(m.Start) {
			return nil, fmt.Errorf("invalid maintenance window %q", m.ID)
		}
		windows = append(windows, model.MaintenanceWindow{
			ID:     m.ID,
			Type:   m.Type,
			Start:  m.Start,
			End:    m.End,
			Impact: m.Impact,
		})
	}
	return windows, nil
}
