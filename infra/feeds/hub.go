package feeds

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/itzzomkar/navyatra-engine/core/model"
	"github.com/itzzomkar/navyatra-engine/core/state"
	"github.com/itzzomkar/navyatra-engine/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Hub subscribes to the network feed topics and caches the latest value of
// each feed. It implements all five feed interfaces consumed by the state
// aggregator. A cached value older than Config.MaxAgeSeconds is treated as
// missing so the aggregator marks the feed stale.
type Hub struct {
	cfg Config
	cli pahoClient
	log logger.Logger

	mu       sync.Mutex
	vehicles map[string]model.Vehicle
	flows    map[string]model.StationFlow
	weather  state.WeatherReport
	price    float64
	windows  []model.MaintenanceWindow
	seen     map[string]time.Time

	discCh chan string
}

var (
	_ state.TelemetryFeed     = (*Hub)(nil)
	_ state.PassengerFlowFeed = (*Hub)(nil)
	_ state.WeatherFeed       = (*Hub)(nil)
	_ state.EnergyPriceFeed   = (*Hub)(nil)
	_ state.MaintenanceFeed   = (*Hub)(nil)
)

// NewHub connects to the MQTT broker and subscribes to all feed topics.
func NewHub(cfg Config) (*Hub, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	h := &Hub{
		cfg:      cfg,
		log:      logger.New("feed-hub"),
		vehicles: make(map[string]model.Vehicle),
		flows:    make(map[string]model.StationFlow),
		seen:     make(map[string]time.Time),
		discCh:   make(chan string, 100),
	}
	opts.OnConnect = func(c paho.Client) {
		h.log.Infof("feed hub connected to %s", cfg.Broker)
		h.subscribeAll(c)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		h.log.Errorf("feed connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		h.log.Warnf("reconnecting to feed broker")
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	h.cli = cli
	return h, nil
}

func (h *Hub) subscribeAll(c paho.Client) {
	subs := []struct {
		topic string
		kind  string
		fn    paho.MessageHandler
	}{
		{h.cfg.Topics.VehicleState, "vehicle_state", h.onVehicle},
		{h.cfg.Topics.StationFlow, "station_flow", h.onFlow},
		{h.cfg.Topics.Weather, "weather", h.onWeather},
		{h.cfg.Topics.EnergyPrice, "energy_price", h.onPrice},
		{h.cfg.Topics.Maintenance, "maintenance", h.onMaintenance},
		{h.cfg.Topics.DiscoveryResponse, "discovery", h.onDiscovery},
	}
	for _, s := range subs {
		if token := c.Subscribe(s.topic, h.cfg.qosFor(s.kind), s.fn); token.Wait() && token.Error() != nil {
			h.log.Errorf("subscribe %s: %v", s.topic, token.Error())
		}
	}
}

func (h *Hub) onVehicle(_ paho.Client, msg paho.Message) {
	v, err := parseVehicle(msg.Topic(), msg.Payload())
	if err != nil {
		h.log.Errorf("vehicle state decode: %v", err)
		return
	}
	h.mu.Lock()
	h.vehicles[v.ID] = v
	h.seen[state.FeedTelemetry] = time.Now()
	h.mu.Unlock()
}

func (h *Hub) onFlow(_ paho.Client, msg paho.Message) {
	f, err := parseFlow(msg.Topic(), msg.Payload())
	if err != nil {
		h.log.Errorf("station flow decode: %v", err)
		return
	}
	h.mu.Lock()
	h.flows[f.StationID] = f
	h.seen[state.FeedPassengers] = time.Now()
	h.mu.Unlock()
}

func (h *Hub) onWeather(_ paho.Client, msg paho.Message) {
	rep, err := parseWeather(msg.Payload())
	if err != nil {
		h.log.Errorf("weather decode: %v", err)
		return
	}
	h.mu.Lock()
	h.weather = rep
	h.seen[state.FeedWeather] = time.Now()
	h.mu.Unlock()
}

func (h *Hub) onPrice(_ paho.Client, msg paho.Message) {
	p, err := parsePrice(msg.Payload())
	if err != nil {
		h.log.Errorf("energy price decode: %v", err)
		return
	}
	h.mu.Lock()
	h.price = p
	h.seen[state.FeedEnergyPrice] = time.Now()
	h.mu.Unlock()
}

func (h *Hub) onMaintenance(_ paho.Client, msg paho.Message) {
	windows, err := parseMaintenance(msg.Payload())
	if err != nil {
		h.log.Errorf("maintenance decode: %v", err)
		return
	}
	h.mu.Lock()
	h.windows = windows
	h.seen[state.FeedMaintenance] = time.Now()
	h.mu.Unlock()
}

func (h *Hub) onDiscovery(_ paho.Client, msg paho.Message) {
	select {
	case h.discCh <- lastSegment(msg.Topic()):
	default:
	}
}

func (h *Hub) fresh(feed string) bool {
	ts, ok := h.seen[feed]
	if !ok {
		return false
	}
	maxAge := time.Duration(h.cfg.MaxAgeSeconds) * time.Second
	return time.Since(ts) <= maxAge
}

// Vehicles returns the latest telemetry of every known vehicle.
func (h *Hub) Vehicles(_ context.Context) ([]model.Vehicle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh(state.FeedTelemetry) {
		return nil, fmt.Errorf("no recent vehicle telemetry")
	}
	out := make([]model.Vehicle, 0, len(h.vehicles))
	for _, v := range h.vehicles {
		out = append(out, v)
	}
	return out, nil
}

// Flows returns the latest per-station passenger counts.
func (h *Hub) Flows(_ context.Context) ([]model.StationFlow, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh(state.FeedPassengers) {
		return nil, fmt.Errorf("no recent passenger flow data")
	}
	out := make([]model.StationFlow, 0, len(h.flows))
	for _, f := range h.flows {
		out = append(out, f)
	}
	return out, nil
}

// Conditions returns the last received weather report.
func (h *Hub) Conditions(_ context.Context) (state.WeatherReport, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh(state.FeedWeather) {
		return state.WeatherReport{}, fmt.Errorf("no recent weather report")
	}
	return h.weather, nil
}

// Price returns the last received energy price per kWh.
func (h *Hub) Price(_ context.Context) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh(state.FeedEnergyPrice) {
		return 0, fmt.Errorf("no recent energy price")
	}
	return h.price, nil
}

// Windows returns the scheduled maintenance windows. The maintenance topic
// is expected to carry a retained message, so an empty cache after the
// freshness window means the planning system stopped publishing.
func (h *Hub) Windows(_ context.Context) ([]model.MaintenanceWindow, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fresh(state.FeedMaintenance) {
		return nil, fmt.Errorf("no recent maintenance schedule")
	}
	return append([]model.MaintenanceWindow(nil), h.windows...), nil
}

// Discover pings the fleet and collects vehicle identifiers until the
// timeout expires. It is used at startup to size the fleet before the
// first telemetry messages arrive.
func (h *Hub) Discover(ctx context.Context, timeout time.Duration) ([]string, error) {
	token := h.cli.Publish(h.cfg.Topics.DiscoveryRequest, h.cfg.qosFor("discovery"), false, []byte("ping"))
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	ids := make(map[string]struct{})
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case id := <-h.discCh:
			if id != "" {
				ids[id] = struct{}{}
			}
		case <-timer.C:
			out := make([]string, 0, len(ids))
			for id := range ids {
				out = append(out, id)
			}
			return out, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (h *Hub) Disconnect() {
	if h.cli != nil && h.cli.IsConnected() {
		h.cli.Disconnect(250)
	}
}
